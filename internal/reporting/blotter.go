// Package reporting formats trades and quotes for human/log
// consumption. It is display-only: it converts the engine's int64-tick
// prices back to decimal strings using shopspring/decimal, and never
// feeds a decimal.Decimal back into the matching core, which remains
// float64-size/int64-tick throughout — decimal only formats the
// already-computed result for a blotter line or log field.
package reporting

import (
	"fmt"

	"github.com/shopspring/decimal"

	"larkbook/internal/common"
	"larkbook/internal/fixedpoint"
)

// Blotter renders trades and quotes using a fixed tick->price
// converter, so its output carries the same decimal precision the
// product's tick size implies.
type Blotter struct {
	converter fixedpoint.Converter
}

// New constructs a Blotter for the given product tick converter.
func New(converter fixedpoint.Converter) Blotter {
	return Blotter{converter: converter}
}

func (b Blotter) priceDecimal(ticks int64) decimal.Decimal {
	return decimal.NewFromFloat(b.converter.ToFloat(ticks)).Round(int32(b.converter.TickDec()))
}

// TradeLine renders one trade as a single blotter line.
func (b Blotter) TradeLine(t common.Trade) string {
	price := b.priceDecimal(t.Price)
	size := decimal.NewFromFloat(t.Size).Round(8)
	return fmt.Sprintf("%s  %-4s  price=%s size=%s taker=%d maker=%d makerOrder=%d",
		t.Time, t.TakerSide, price.String(), size.String(), t.TakerTraderID, t.MakerTraderID, t.MakerOrderID)
}

// QuoteLine renders the current best bid/ask as a single line.
func (b Blotter) QuoteLine(ask int64, askSize float64, bid int64, bidSize float64, ok bool) string {
	if !ok {
		return "quote: book one-sided or empty"
	}
	return fmt.Sprintf("bid=%s (%s)  ask=%s (%s)  spread=%s",
		b.priceDecimal(bid).String(), decimal.NewFromFloat(bidSize).Round(8).String(),
		b.priceDecimal(ask).String(), decimal.NewFromFloat(askSize).Round(8).String(),
		b.priceDecimal(ask).Sub(b.priceDecimal(bid)).String())
}

// SnapLines renders a full price-aggregated snapshot, bids then asks,
// each in the order given by bidOrder/askOrder; it does not sort them.
func (b Blotter) SnapLines(bids map[int64]float64, asks map[int64]float64, bidOrder, askOrder []int64) []string {
	lines := make([]string, 0, len(bidOrder)+len(askOrder))
	for _, p := range bidOrder {
		lines = append(lines, fmt.Sprintf("BID  %s  %s", b.priceDecimal(p).String(), decimal.NewFromFloat(bids[p]).Round(8).String()))
	}
	for _, p := range askOrder {
		lines = append(lines, fmt.Sprintf("ASK  %s  %s", b.priceDecimal(p).String(), decimal.NewFromFloat(asks[p]).Round(8).String()))
	}
	return lines
}
