package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"scanner-go/internal/config"
	"scanner-go/internal/correlation"
	"scanner-go/internal/eventbus"
	"scanner-go/internal/fetch"
	"scanner-go/internal/indicator"
	"scanner-go/internal/model"
	"scanner-go/internal/notify"
	"scanner-go/internal/orchestrator"
	"scanner-go/internal/portfolio"
	"scanner-go/internal/store"
	"scanner-go/internal/util"
	"scanner-go/internal/weight"
)

func main() {
	defer util.RecoverAndLog("main")

	cfg := config.Load()

	log.Println("🔧 Initializing services...")

	exchangeClient := fetch.New(cfg.ExchangeBaseURL, cfg)
	macroClient := fetch.New(cfg.MacroBaseURL, cfg)

	learner := weight.New()
	corrEngine := correlation.NewEngine(cfg.MacroSymbol)
	bus := eventbus.New()
	port := portfolio.New()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	signalStore, err := store.New(ctx, cfg.MongoURI)
	if err != nil {
		log.Fatalf("❌ Failed to initialize signal store: %v", err)
	}
	defer signalStore.Close(context.Background())

	orch := orchestrator.New(exchangeClient, exchangeClient, learner, corrEngine, bus, cfg)

	macroStream := fetch.NewMacroPriceStream(cfg.MacroWSURL, cfg.MacroSymbol)
	util.SafeGo("macro price stream", func() { macroStream.Run(ctx) })

	if cfg.TelegramBotToken != "" {
		notifier, err := notify.New(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Printf("⚠️  Telegram notifications disabled: %v", err)
		} else {
			notifier.Attach(bus)
		}
	}

	bus.Subscribe(eventbus.SignalEnter, func(payload any) {
		tick, ok := payload.(model.Tick)
		if !ok {
			return
		}
		port.OnSignalEnter(tick)
		if err := signalStore.Save(context.Background(), ptrSignal(store.FromTick(tick))); err != nil {
			log.Printf("⚠️  [Main] failed to persist signal for %s: %v", tick.MarketID, err)
		}
	})

	bus.Subscribe(eventbus.CycleComplete, func(payload any) {
		for _, tick := range orch.AllTicks() {
			port.RefreshFromTick(tick)
			if store.Settled(tick) {
				port.CloseOnSettlement(tick.MarketID, time.Now())
			}
		}
	})

	util.SafeGo("macro correlation refresher", func() { runCorrelationRefresher(ctx, macroClient, macroStream, cfg, corrEngine) })
	util.SafeGo("outcome resolution loop", func() { runOutcomeResolutionLoop(ctx, signalStore, orch, cfg) })
	util.SafeGo("weight refresh loop", func() { runWeightRefreshLoop(ctx, signalStore, learner, cfg) })
	util.SafeGo("retention purge loop", func() { runPurgeLoop(ctx, signalStore, cfg) })

	log.Println("✅ All services initialized successfully")

	shutdownChan := make(chan struct{})
	util.SafeGo("shutdown handler", func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("🛑 Received shutdown signal...")

		shutdownTimer := time.NewTimer(30 * time.Second)
		go func() {
			<-shutdownTimer.C
			log.Println("⚠️  Shutdown timeout - forcing exit")
			os.Exit(1)
		}()

		orch.Stop()
		cancel()
		shutdownTimer.Stop()
		close(shutdownChan)
	})

	log.Println("🚀 Scanner is now running...")
	orch.Start(ctx)
	<-shutdownChan
}

func ptrSignal(s model.Signal) *model.Signal { return &s }

// runCorrelationRefresher keeps the BTC correlation engine current by
// polling the macro klines endpoint on its own cadence, independent of
// the per-market poll cycle.
func runCorrelationRefresher(ctx context.Context, macroClient *fetch.Client, macroStream *fetch.MacroPriceStream, cfg *config.Config, corr *correlation.Engine) {
	ticker := time.NewTicker(model.MinRefreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			if !corr.ShouldRefresh(now) {
				continue
			}
			refreshCorrelationOnce(ctx, macroClient, macroStream, cfg, corr, now)
		}
	}
}

// refreshCorrelationOnce recomputes indicators off the REST klines
// (the only source with enough history), but substitutes the WS
// stream's last trade price when it is fresher than the REST
// candle's close — the stream sits in front of the REST poll per
// spec.md §4.1, read-last-price only, and falls back transparently
// whenever it is down or stale.
func refreshCorrelationOnce(ctx context.Context, macroClient *fetch.Client, macroStream *fetch.MacroPriceStream, cfg *config.Config, corr *correlation.Engine, now time.Time) {
	candles, err := macroClient.FetchKlines(ctx, cfg.MacroSymbol, "1m", 200)
	if err != nil || len(candles) == 0 {
		if err != nil {
			log.Printf("⚠️  [Main] macro klines fetch failed: %v", err)
		}
		return
	}

	closes := model.Closes(candles)
	highs := model.Highs(candles)
	lows := model.Lows(candles)
	volumes := model.Volumes(candles)

	vwapSeries := indicator.CalculateVWAP(highs, lows, closes, volumes)
	vwap := vwapSeries[len(vwapSeries)-1]
	vwapSlope := indicator.VWAPSlope(vwapSeries, 5)
	rsi := indicator.GetLastRSI(closes, 14)
	_, _, hist := indicator.GetLastMACD(closes, 12, 26, 9)

	price := closes[len(closes)-1]
	if streamPrice, age, ok := macroStream.LastPrice(now); ok && age < model.MinRefreshInterval {
		price = streamPrice
	}

	corr.Refresh(now, price, rsi, vwap, vwapSlope, hist)
}

// runOutcomeResolutionLoop settles or voids every open signal on a
// fixed cadence, deriving settlement from the latest tick the
// orchestrator has observed for that signal's market.
func runOutcomeResolutionLoop(ctx context.Context, s *store.Store, orch *orchestrator.Orchestrator, cfg *config.Config) {
	interval := time.Duration(cfg.OutcomeResolveMins) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := s.ResolveOutcomes(ctx, orch, time.Now()); err != nil {
				log.Printf("⚠️  [Main] outcome resolution pass failed: %v", err)
			}
		}
	}
}

// runWeightRefreshLoop periodically rebuilds the published weight
// table from settled outcomes and logs drift against the baseline.
func runWeightRefreshLoop(ctx context.Context, s *store.Store, learner *weight.Learner, cfg *config.Config) {
	interval := time.Duration(cfg.WeightRefreshMins) * time.Minute
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			signals, err := s.SettledOutcomes(ctx)
			if err != nil {
				log.Printf("⚠️  [Main] failed to load settled outcomes: %v", err)
				continue
			}

			table, deltas := learner.Refresh(signals)
			if table == nil {
				continue
			}
			log.Printf("⚖️  [Main] weight table refreshed to v%d (%d outcomes, %d audited deltas)", table.Version, len(signals), len(deltas))

			if severity, count, mean := learner.DetectDrift(); severity != weight.DriftNone {
				log.Printf("⚠️  [Main] weight drift detected: severity=%s keys=%d meanDivergence=%.3f", severity, count, mean)
			}
		}
	}
}

// runPurgeLoop deletes signals past the retention window once a day.
func runPurgeLoop(ctx context.Context, s *store.Store, cfg *config.Config) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Purge(ctx, cfg.RetentionDays, time.Now()); err != nil {
				log.Printf("⚠️  [Main] retention purge failed: %v", err)
			}
		}
	}
}
