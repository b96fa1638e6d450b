// Command ordserver runs the TCP agent order intake front end against a
// single in-memory OrderBook, with the price-level index variant and
// fixed-point tick size selectable at startup.
package main

import (
	"context"
	"flag"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"larkbook/internal/book"
	"larkbook/internal/common"
	"larkbook/internal/fixedpoint"
	"larkbook/internal/levels"
	"larkbook/internal/matching"
	"larkbook/internal/ordwire"
)

func main() {
	address := flag.String("address", "0.0.0.0", "listen address")
	port := flag.Int("port", 9001, "listen port")
	variant := flag.String("variant", "rbtree", "price index variant: sorted_map|rbtree|avltree|array")
	levelKind := flag.String("level", "orderedmap", "price level kind: orderedmap|deque")
	tickSize := flag.Float64("tick-size", 0.01, "product tick size")
	minPrice := flag.Float64("min-price", 0, "array variant: minimum price")
	maxPrice := flag.Float64("max-price", 1_000_000, "array variant: maximum price")
	verbose := flag.Bool("verbose", false, "debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	converter := fixedpoint.NewConverter(*tickSize)

	lk := book.KindOrderedMap
	if *levelKind == "deque" {
		lk = book.KindDeque
	}

	bounds := levels.Bounds{}
	if *variant == "array" {
		bounds = levels.Bounds{
			Enabled: true,
			Min:     converter.ToTicks(*minPrice),
			Max:     converter.ToTicks(*maxPrice),
		}
	}

	index := levels.New(levels.VariantKind(*variant), bounds, lk)
	ob := matching.New(index)

	eng := &engineAdapter{ob: ob, converter: converter}
	srv := ordwire.New(*address, *port, eng)

	log.Info().Str("variant", *variant).Str("level", *levelKind).Msg("ordserver: starting")
	if err := srv.Run(ctx); err != nil {
		log.Error().Err(err).Msg("ordserver: exited with error")
	}
}

// engineAdapter bridges ordwire.Server onto a single OrderBook. It is
// only ever called from ordwire's sessionHandler goroutine, which is
// what preserves the engine's single-threaded-per-instance invariant
// despite many concurrent TCP connections feeding it.
type engineAdapter struct {
	ob        *matching.OrderBook
	converter fixedpoint.Converter
}

func (e *engineAdapter) PlaceOrder(msg ordwire.NewOrderMessage) ([]common.Trade, *common.OrderInBook, error) {
	traderID := int64(msg.TraderID)
	switch msg.OrderType {
	case 1:
		trades := e.ob.MarketOrder(msg.Size, msg.Side, traderID, nowStamp())
		return trades, nil, nil
	default:
		ticks := e.converter.ToTicks(msg.Price)
		trades, oib := e.ob.Limit(ticks, msg.Side, msg.Size, traderID, nowStamp())
		return trades, oib, nil
	}
}

func (e *engineAdapter) CancelOrder(orderID uint64) error {
	e.ob.Cancel(orderID)
	return nil
}

func (e *engineAdapter) UpdateOrder(msg ordwire.UpdateOrderMessage) error {
	e.ob.Update(msg.OrderID, msg.NewSize)
	return nil
}

func nowStamp() string { return time.Now().UTC().Format(time.RFC3339Nano) }

func (e *engineAdapter) LogBook() {
	ask, askSize, bid, bidSize, ok := e.ob.GetQuotes()
	if !ok {
		log.Info().Msg("ordserver: book one-sided or empty")
		return
	}
	log.Info().
		Float64("bid", e.converter.ToFloat(bid)).Float64("bidSize", bidSize).
		Float64("ask", e.converter.ToFloat(ask)).Float64("askSize", askSize).
		Int("orders", e.ob.OrderCount()).
		Msg("ordserver: book snapshot")
}
