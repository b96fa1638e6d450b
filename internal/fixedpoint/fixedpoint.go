// Package fixedpoint converts between human float prices and the
// integer-tick representation the matching engine keys and compares
// on. The engine never matches on floats, only at the ingest/display
// boundary.
package fixedpoint

import "math"

// epsilon is added before truncation so exact-decimal float inputs
// (e.g. 99.99 at tick=0.01) round to the intended tick instead of
// landing one unit low because of binary float representation error.
// Non-negotiable: naive int(p*multiplier) corrupts prices like 99.99
// on some float paths.
const epsilon = 1e-9

// Converter holds the tick decimal configuration fixed at construction
// (default tick = 0.01 -> multiplier = 100, tickDec = 2).
type Converter struct {
	tickDec    int
	multiplier int64
}

// NewConverter builds a Converter for the given tick size, e.g. 0.01.
func NewConverter(tickSize float64) Converter {
	tickDec := int(math.Round(math.Log10(1 / tickSize)))
	return Converter{
		tickDec:    tickDec,
		multiplier: int64(math.Pow(10, float64(tickDec))),
	}
}

// TickDec returns the number of decimal places in the tick size.
func (c Converter) TickDec() int { return c.tickDec }

// Multiplier returns 10^TickDec, the scale factor between float prices
// and integer ticks.
func (c Converter) Multiplier() int64 { return c.multiplier }

// ToTicks converts a float price to its integer-tick representation.
func (c Converter) ToTicks(price float64) int64 {
	return int64((price + epsilon) * float64(c.multiplier))
}

// ToFloat converts an integer-tick price back to a float, rounded to
// the configured tick decimal for display.
func (c Converter) ToFloat(ticks int64) float64 {
	scaled := float64(ticks) / float64(c.multiplier)
	shift := math.Pow(10, float64(c.tickDec))
	return math.Round(scaled*shift) / shift
}

// ScaleFunds converts a float funds amount into the same scaled-integer
// units as price*size, for market_order_funds callers.
func (c Converter) ScaleFunds(funds float64) float64 {
	return funds * float64(c.multiplier)
}
