// Package correlation tracks a macro market (BTC) and derives edge
// multipliers for correlated markets (C10).
package correlation

import (
	"strings"
	"sync"
	"time"

	"scanner-go/internal/model"
)

// Engine owns the single-refresher, many-reader macro state.
type Engine struct {
	mu    sync.RWMutex
	state model.CorrelationState
}

// NewEngine seeds an engine with a neutral, never-updated state for symbol.
func NewEngine(symbol string) *Engine {
	return &Engine{state: model.CorrelationState{Symbol: symbol, Bias: model.BiasNeutral}}
}

// Snapshot returns the current macro state. Safe for concurrent readers.
func (e *Engine) Snapshot() model.CorrelationState {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.state
}

// ShouldRefresh reports whether at least MinRefreshInterval has
// elapsed since the last successful refresh.
func (e *Engine) ShouldRefresh(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return now.Sub(e.state.UpdatedAt) >= model.MinRefreshInterval
}

// Refresh recomputes bias from a fresh price/indicator reading and
// publishes the new snapshot. On failure (handled by the caller not
// calling Refresh at all), the existing snapshot is left untouched —
// there is no partial-write path here.
func (e *Engine) Refresh(now time.Time, price, rsi, vwap, vwapSlope, macdHist float64) {
	bias, strength := voteBias(price, vwap, rsi, macdHist, vwapSlope)

	e.mu.Lock()
	defer e.mu.Unlock()
	e.state = model.CorrelationState{
		Symbol:       e.state.Symbol,
		LastPrice:    price,
		RSI:          rsi,
		VWAP:         vwap,
		VWAPSlope:    vwapSlope,
		MACDHist:     macdHist,
		Bias:         bias,
		BiasStrength: strength,
		UpdatedAt:    now,
	}
}

// voteBias runs the four-sub-signal vote from spec.md §4.10.
func voteBias(price, vwap, rsi, macdHist, vwapSlope float64) (model.Bias, float64) {
	bullVotes, bearVotes := 0, 0

	if price > vwap {
		bullVotes++
	} else if price < vwap {
		bearVotes++
	}

	if rsi > 55 {
		bullVotes++
	} else if rsi < 45 {
		bearVotes++
	}

	if macdHist > 0 {
		bullVotes++
	} else if macdHist < 0 {
		bearVotes++
	}

	if vwapSlope > 0 {
		bullVotes++
	} else if vwapSlope < 0 {
		bearVotes++
	}

	switch {
	case bullVotes >= 3:
		return model.BiasBullish, float64(bullVotes) / 4
	case bearVotes >= 3:
		return model.BiasBearish, float64(bearVotes) / 4
	case bullVotes == 2 && bearVotes == 1:
		return model.BiasLeanBull, float64(bullVotes) / 4
	case bearVotes == 2 && bullVotes == 1:
		return model.BiasLeanBear, float64(bearVotes) / 4
	default:
		return model.BiasNeutral, 0
	}
}

// Adjustment computes computeCorrelationAdj from spec.md §4.10: a
// multiplier scaling both edges of a market before C4's decision.
// category is compared case-sensitively against "crypto" per the
// preserved literal matching rule.
func Adjustment(state model.CorrelationState, category string, question string, side model.Side, tags []string) float64 {
	if category != "crypto" {
		return 1.0
	}

	ethTagged := false
	for _, t := range tags {
		if strings.EqualFold(t, "eth") || strings.EqualFold(t, "ethereum") {
			ethTagged = true
			break
		}
	}

	aligned := biasAligned(state.Bias, side)
	conflicting := biasConflicting(state.Bias, side)

	if ethTagged {
		switch {
		case aligned:
			return 1 + state.BiasStrength*0.2
		case conflicting:
			return 1 - state.BiasStrength*0.2
		default:
			return 1.0
		}
	}

	if isAboveQuestion(question) {
		switch {
		case aligned:
			return 1 + state.BiasStrength*0.3
		case conflicting:
			return 1 - state.BiasStrength*0.3
		}
	}

	switch state.Bias {
	case model.BiasLeanBull, model.BiasLeanBear:
		return 1.05
	}

	return 1.0
}

func isAboveQuestion(question string) bool {
	q := strings.ToLower(question)
	return strings.Contains(q, "above") || strings.Contains(q, "over") || strings.Contains(q, "higher")
}

func biasAligned(bias model.Bias, side model.Side) bool {
	if side == model.SideUp {
		return bias == model.BiasBullish || bias == model.BiasLeanBull
	}
	return bias == model.BiasBearish || bias == model.BiasLeanBear
}

func biasConflicting(bias model.Bias, side model.Side) bool {
	if side == model.SideUp {
		return bias == model.BiasBearish || bias == model.BiasLeanBear
	}
	return bias == model.BiasBullish || bias == model.BiasLeanBull
}
