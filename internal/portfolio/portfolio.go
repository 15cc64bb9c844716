// Package portfolio implements C13: virtual (non-executing) positions
// opened from signal:enter events, refreshed every cycle from the
// latest tick, and closed on settlement.
package portfolio

import (
	"log"
	"sync"
	"time"

	"scanner-go/internal/model"
)

// PositionStatus is the lifecycle state of a virtual position.
type PositionStatus string

const (
	StatusOpen   PositionStatus = "OPEN"
	StatusClosed PositionStatus = "CLOSED"
)

// Position is one simulated entry opened from a signal.
type Position struct {
	MarketID     string
	Question     string
	Side         model.Side
	EntryPrice   float64
	BetPct       float64
	CurrentPrice float64
	Status       PositionStatus
	OpenedAt     time.Time
	ClosedAt     time.Time
	PnLPct       float64
}

// Portfolio tracks at most one open position per market.
type Portfolio struct {
	mu        sync.RWMutex
	positions map[string]*Position
	closed    []Position
}

// New builds an empty portfolio.
func New() *Portfolio {
	return &Portfolio{positions: make(map[string]*Position)}
}

// OnSignalEnter opens a position for tick.MarketID if none is
// currently open for that market. Ticks whose recommendation is not
// ENTER, or that aren't OK, are ignored.
func (p *Portfolio) OnSignalEnter(tick model.Tick) {
	if !tick.OK || tick.Rec.Action != model.ActionEnter {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if _, open := p.positions[tick.MarketID]; open {
		return
	}

	entry := tick.Prices.Yes
	if tick.Rec.Side == model.SideDown {
		entry = tick.Prices.No
	}

	p.positions[tick.MarketID] = &Position{
		MarketID:     tick.MarketID,
		Question:     tick.Question,
		Side:         tick.Rec.Side,
		EntryPrice:   entry,
		BetPct:       tick.Kelly.BetPct,
		CurrentPrice: entry,
		Status:       StatusOpen,
		OpenedAt:     tick.Timestamp,
	}
	log.Printf("📂 [Portfolio] opened %s %s @ %.4f (bet %.2f%%)", tick.MarketID, tick.Rec.Side, entry, tick.Kelly.BetPct*100)
}

// RefreshFromTick updates the open position's current_price from the
// latest tick for its market. Called once per broadcast cycle per
// market.
func (p *Portfolio) RefreshFromTick(tick model.Tick) {
	if !tick.OK {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	pos, open := p.positions[tick.MarketID]
	if !open {
		return
	}

	current := tick.Prices.Yes
	if pos.Side == model.SideDown {
		current = tick.Prices.No
	}
	pos.CurrentPrice = current
}

// CloseOnSettlement closes the open position for marketID with
// pnlPct = ((current - entry) / entry) * betPct * 100. Entry and
// current are the held side's own price (the NO price for a DOWN
// position), so a DOWN position gains when the YES price falls.
// A no-op if no position is open.
func (p *Portfolio) CloseOnSettlement(marketID string, now time.Time) (Position, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	pos, open := p.positions[marketID]
	if !open {
		return Position{}, false
	}

	delta := (pos.CurrentPrice - pos.EntryPrice) / pos.EntryPrice
	pos.PnLPct = delta * pos.BetPct * 100
	pos.Status = StatusClosed
	pos.ClosedAt = now

	closed := *pos
	p.closed = append(p.closed, closed)
	delete(p.positions, marketID)

	log.Printf("📁 [Portfolio] closed %s %s pnl=%.2f%%", marketID, pos.Side, pos.PnLPct)
	return closed, true
}

// Open returns a snapshot of every currently open position.
func (p *Portfolio) Open() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Position, 0, len(p.positions))
	for _, pos := range p.positions {
		out = append(out, *pos)
	}
	return out
}

// Closed returns every position ever closed, oldest first.
func (p *Portfolio) Closed() []Position {
	p.mu.RLock()
	defer p.mu.RUnlock()

	out := make([]Position, len(p.closed))
	copy(out, p.closed)
	return out
}

// Summary aggregates win rate and average pnl across closed positions,
// in the spirit of the teacher's risk-summary reporting.
type Summary struct {
	OpenCount   int
	ClosedCount int
	Wins        int
	Losses      int
	AvgPnLPct   float64
}

// Stats computes the current Summary.
func (p *Portfolio) Stats() Summary {
	p.mu.RLock()
	defer p.mu.RUnlock()

	s := Summary{OpenCount: len(p.positions), ClosedCount: len(p.closed)}
	if len(p.closed) == 0 {
		return s
	}

	var total float64
	for _, c := range p.closed {
		total += c.PnLPct
		if c.PnLPct > 0 {
			s.Wins++
		} else {
			s.Losses++
		}
	}
	s.AvgPnLPct = total / float64(len(p.closed))
	return s
}
