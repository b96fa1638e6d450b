// Command replay drives a single OrderBook from a recorded L3 feed
// (internal/replay), logging trades through the product's tick
// converter (internal/reporting) and exposing Prometheus metrics
// plus an optional live trade-tape WebSocket feed.
package main

import (
	"context"
	"flag"
	"io"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"larkbook/internal/book"
	"larkbook/internal/fixedpoint"
	"larkbook/internal/levels"
	"larkbook/internal/market"
	"larkbook/internal/matching"
	"larkbook/internal/metrics"
	"larkbook/internal/replay"
	"larkbook/internal/reporting"
	"larkbook/internal/tradetape"
)

func main() {
	snapshotDir := flag.String("snapshots", "testdata/snapshots", "directory of snapshot JSON files")
	messageDir := flag.String("messages", "testdata/messages", "directory of NDJSON message files")
	variant := flag.String("variant", "rbtree", "price index variant: sorted_map|rbtree|avltree|array")
	levelKind := flag.String("level", "orderedmap", "price level kind: orderedmap|deque")
	tickSize := flag.Float64("tick-size", 0.01, "product tick size")
	minPrice := flag.Float64("min-price", 0, "array variant: minimum price")
	maxPrice := flag.Float64("max-price", 1_000_000, "array variant: maximum price")
	maxSeqSkip := flag.Int64("max-sequence-skip", 1, "maximum tolerated sequence gap before resync")
	metricsAddr := flag.String("metrics-addr", ":2112", "address to serve /metrics on, empty disables")
	ws := flag.Bool("ws", false, "broadcast trades over a WebSocket trade tape")
	wsAddr := flag.String("ws-addr", ":8090", "address to serve the WebSocket trade tape on")
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
		bounds = levels.Bounds{Enabled: true, Min: converter.ToTicks(*minPrice), Max: converter.ToTicks(*maxPrice)}
	}

	newBook := func() (*matching.OrderBook, *market.Market) {
		index := levels.New(levels.VariantKind(*variant), bounds, lk)
		ob := matching.New(index)
		return ob, market.New(ob, converter)
	}
	ob, mkt := newBook()
	blotter := reporting.New(converter)

	if *metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", metrics.Handler())
		go func() {
			if err := http.ListenAndServe(*metricsAddr, mux); err != nil {
				log.Error().Err(err).Msg("replay: metrics server exited")
			}
		}()
		log.Info().Str("addr", *metricsAddr).Msg("replay: serving metrics")
	}

	var hub *tradetape.Hub
	if *ws {
		hub = tradetape.NewHub()
		go hub.Run()
		mux := http.NewServeMux()
		mux.Handle("/tradetape", hub)
		go func() {
			if err := http.ListenAndServe(*wsAddr, mux); err != nil {
				log.Error().Err(err).Msg("replay: trade tape server exited")
			}
		}()
		log.Info().Str("addr", *wsAddr).Msg("replay: serving trade tape")
	}

	stream, err := replay.NewStream(*snapshotDir, *messageDir, *maxSeqSkip)
	if err != nil {
		log.Fatal().Err(err).Msg("replay: failed to build stream")
	}
	defer stream.Close()

	firstSnapshot := true

	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("replay: shutting down")
			return
		default:
		}

		event, err := stream.Next()
		if err == io.EOF {
			log.Info().Msg("replay: stream exhausted")
			return
		}
		if err != nil {
			log.Fatal().Err(err).Msg("replay: stream error")
		}

		if event.Snapshot != nil {
			if firstSnapshot {
				firstSnapshot = false
			} else {
				metrics.ResyncTotal.Inc()
			}
			snap, err := event.Snapshot.ToMarketSnapshot()
			if err != nil {
				log.Fatal().Err(err).Msg("replay: bad snapshot")
			}
			ob, mkt = newBook()
			mkt.FillSnap(snap)
			continue
		}

		msg := event.Message.ToMarketMessage()
		metrics.MessagesTotal.WithLabelValues(string(msg.Type)).Inc()
		trades, _ := mkt.SendMessage(msg)
		for _, t := range trades {
			metrics.TradesTotal.Inc()
			log.Debug().Str("trade", blotter.TradeLine(t)).Msg("replay: trade")
			if hub != nil {
				hub.BroadcastTrade(t)
			}
		}

		ask, _, bid, _, ok := ob.GetQuotes()
		metrics.ObserveQuotes(ask, bid, ok)
		metrics.OrderCount.Set(float64(ob.OrderCount()))

		if err := ob.CheckCrossed(); err != nil {
			log.Warn().Err(err).Msg("replay: book inconsistency detected, forcing resync")
			snap, rsErr := stream.ForceResync()
			if rsErr != nil {
				log.Fatal().Err(rsErr).Msg("replay: no further snapshot available to resync from")
			}
			metrics.ResyncTotal.Inc()
			mktSnap, convErr := snap.ToMarketSnapshot()
			if convErr != nil {
				log.Fatal().Err(convErr).Msg("replay: bad snapshot")
			}
			ob, mkt = newBook()
			mkt.FillSnap(mktSnap)
		}
	}
}
