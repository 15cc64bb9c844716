// Package orchestrator implements C7: discovers markets, manages
// poller lifetimes, staggers polls within a cycle, and broadcasts
// events over the event bus.
package orchestrator

import (
	"context"
	"log"
	"sort"
	"sync"
	"time"

	"scanner-go/internal/config"
	"scanner-go/internal/correlation"
	"scanner-go/internal/eventbus"
	"scanner-go/internal/model"
	"scanner-go/internal/poller"
)

// DiscoveryClient is the C1 surface used for market discovery.
type DiscoveryClient interface {
	FetchMarketCatalog(ctx context.Context, seriesID string, limit int) ([]model.Market, error)
}

// WeightSource supplies the current published weight table to new pollers.
type WeightSource interface {
	Current() *model.WeightTable
}

// Orchestrator runs the scanner's main loop. start() is idempotent;
// it returns only after stop() completes the in-flight cycle.
type Orchestrator struct {
	discovery DiscoveryClient
	exchange  poller.ExchangeClient
	weights   WeightSource
	corr      *correlation.Engine
	bus       *eventbus.Bus
	cfg       *config.Config

	mu       sync.RWMutex
	pollers  map[string]*poller.Poller
	stopOnce sync.Once
	stopCh   chan struct{}
	started  bool
	cycles   int
}

// New builds an orchestrator. Nothing runs until Start is called.
func New(discovery DiscoveryClient, exchange poller.ExchangeClient, weights WeightSource, corr *correlation.Engine, bus *eventbus.Bus, cfg *config.Config) *Orchestrator {
	return &Orchestrator{
		discovery: discovery,
		exchange:  exchange,
		weights:   weights,
		corr:      corr,
		bus:       bus,
		cfg:       cfg,
		pollers:   make(map[string]*poller.Poller),
		stopCh:    make(chan struct{}),
	}
}

// Start runs discovery, instantiates one poller per returned market,
// emits scanner:ready, then loops cycles until Stop is called. Start
// blocks; callers typically run it in its own goroutine.
func (o *Orchestrator) Start(ctx context.Context) {
	o.mu.Lock()
	if o.started {
		o.mu.Unlock()
		return
	}
	o.started = true
	o.mu.Unlock()

	o.bus.Emit(eventbus.ScannerStart, nil)

	if err := o.discover(ctx); err != nil {
		log.Printf("❌ [Orchestrator] initial discovery failed: %v", err)
	}

	o.bus.Emit(eventbus.ScannerReady, map[string]int{"marketCount": o.pollerCount()})

	for {
		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		o.runCycle(ctx)
		o.cycles++

		if o.cycles%o.cfg.RediscoveryCycles == 0 {
			if err := o.discover(ctx); err != nil {
				log.Printf("❌ [Orchestrator] rediscovery failed, keeping existing market set: %v", err)
			}
		}

		select {
		case <-o.stopCh:
			return
		case <-ctx.Done():
			return
		case <-time.After(time.Duration(o.cfg.PollIntervalMs) * time.Millisecond):
		}
	}
}

// Stop signals the main loop to exit after its current poll batch.
// Idempotent.
func (o *Orchestrator) Stop() {
	o.stopOnce.Do(func() {
		close(o.stopCh)
		o.bus.Emit(eventbus.ScannerStop, nil)
	})
}

func (o *Orchestrator) pollerCount() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.pollers)
}

// discover refreshes the active market set: new markets get a poller
// and market:added; absent markets are stopped and market:removed.
// On failure, existing pollers continue using the previous set.
func (o *Orchestrator) discover(ctx context.Context) error {
	markets, err := o.discovery.FetchMarketCatalog(ctx, "", o.cfg.MaxMarkets)
	if err != nil {
		return err
	}

	filtered := filterMarkets(markets, o.cfg)

	o.mu.Lock()
	defer o.mu.Unlock()

	seen := make(map[string]bool, len(filtered))
	for _, m := range filtered {
		seen[m.ID] = true
		if _, exists := o.pollers[m.ID]; !exists {
			o.pollers[m.ID] = poller.New(m, o.exchange, o.cfg, o.weights, o.corr)
			o.bus.Emit(eventbus.MarketAdded, m)
		}
	}

	for id := range o.pollers {
		if !seen[id] {
			delete(o.pollers, id)
			o.bus.Emit(eventbus.MarketRemoved, id)
		}
	}

	return nil
}

func filterMarkets(markets []model.Market, cfg *config.Config) []model.Market {
	allow := make(map[string]bool, len(cfg.CategoryAllowList))
	for _, c := range cfg.CategoryAllowList {
		allow[c] = true
	}

	out := make([]model.Market, 0, len(markets))
	for _, m := range markets {
		if m.Liquidity < cfg.MinLiquidity {
			continue
		}
		if len(allow) > 0 && !allow[m.Category] {
			continue
		}
		out = append(out, m)
		if len(out) >= cfg.MaxMarkets {
			break
		}
	}
	return out
}

// runCycle polls every active market once, staggered by
// StaggerDelayMs, then emits signal:enter for each ENTER tick and a
// final cycle:complete. A per-poller error never aborts the cycle.
func (o *Orchestrator) runCycle(ctx context.Context) {
	o.mu.RLock()
	pollers := make([]*poller.Poller, 0, len(o.pollers))
	for _, p := range o.pollers {
		pollers = append(pollers, p)
	}
	o.mu.RUnlock()

	stagger := time.Duration(o.cfg.StaggerDelayMs) * time.Millisecond
	counts := map[string]int{"marketsPolled": 0, "signalsEntered": 0, "errors": 0}

	for i, p := range pollers {
		tick := func() (t model.Tick) {
			defer func() {
				if r := recover(); r != nil {
					log.Printf("⚠️  [Orchestrator] poller for %s panicked: %v", p.Market().ID, r)
					t = model.Tick{MarketID: p.Market().ID, Reason: "poller_panic"}
				}
			}()
			return p.Poll(ctx, time.Now())
		}()

		counts["marketsPolled"]++
		if !tick.OK {
			counts["errors"]++
			if tick.Reason != "" {
				o.bus.Emit(eventbus.ErrorEvent, map[string]string{"market_id": tick.MarketID, "reason": tick.Reason})
			}
		} else if tick.Rec.Action == model.ActionEnter {
			counts["signalsEntered"]++
			o.bus.Emit(eventbus.SignalEnter, tick)
		}

		if i < len(pollers)-1 {
			select {
			case <-ctx.Done():
				return
			case <-time.After(stagger):
			}
		}
	}

	o.bus.Emit(eventbus.CycleComplete, counts)
}

// AllTicks returns a snapshot of every poller's last tick.
func (o *Orchestrator) AllTicks() []model.Tick {
	o.mu.RLock()
	defer o.mu.RUnlock()

	ticks := make([]model.Tick, 0, len(o.pollers))
	for _, p := range o.pollers {
		if t, ok := p.LastTick(); ok {
			ticks = append(ticks, t)
		}
	}
	return ticks
}

// ActiveSignals returns ENTER ticks sorted by best edge descending.
func (o *Orchestrator) ActiveSignals() []model.Tick {
	all := o.AllTicks()
	active := make([]model.Tick, 0, len(all))
	for _, t := range all {
		if t.OK && t.Rec.Action == model.ActionEnter {
			active = append(active, t)
		}
	}
	sort.Slice(active, func(i, j int) bool {
		return bestEdge(active[i]) > bestEdge(active[j])
	})
	return active
}

func bestEdge(t model.Tick) float64 {
	if t.Edges.EdgeDown > t.Edges.EdgeUp {
		return t.Edges.EdgeDown
	}
	return t.Edges.EdgeUp
}

// Stats summarizes tracked/signal counts per category.
type Stats struct {
	TrackedCount int
	SignalCount  int
	PerCategory  map[string]int
}

// Stats returns the current summary the dashboard surface consults.
func (o *Orchestrator) Stats() Stats {
	all := o.AllTicks()
	stats := Stats{TrackedCount: len(all), PerCategory: make(map[string]int)}

	for _, t := range all {
		stats.PerCategory[t.Category]++
		if t.OK && t.Rec.Action == model.ActionEnter {
			stats.SignalCount++
		}
	}
	return stats
}

// LatestTick adapts the orchestrator to store.TickSource.
func (o *Orchestrator) LatestTick(marketID string) (model.Tick, bool) {
	o.mu.RLock()
	p, ok := o.pollers[marketID]
	o.mu.RUnlock()
	if !ok {
		return model.Tick{}, false
	}
	return p.LastTick()
}
