// Package regime classifies each tick's price action into a
// trend/range/chop regime and a volatility tier (C11), and tracks
// per-market regime transitions.
package regime

import (
	"math"
	"time"

	"scanner-go/internal/model"
)

// Classify derives the regime from price-vs-vwap, slope, cross count
// and volume, per the literal rule order in spec.md §4.11.
func Classify(price, vwap, vwapSlope float64, crossCount int, recentVolume, avgVolume float64) model.Regime {
	lowVolume := avgVolume > 0 && recentVolume < avgVolume*0.5
	flat := vwap != 0 && math.Abs(price-vwap)/vwap < 0.001

	switch {
	case lowVolume && flat:
		return model.RegimeChop
	case price > vwap && vwapSlope > 0:
		return model.RegimeTrendUp
	case price < vwap && vwapSlope < 0:
		return model.RegimeTrendDown
	case crossCount >= 3:
		return model.RegimeRange
	default:
		return model.RegimeRange
	}
}

// Volatility classifies ATR% against category-calibrated thresholds.
func Volatility(category string, atrPct float64) (model.VolatilityClass, float64) {
	var low, high float64
	if category == "crypto" {
		low, high = 0.05, 0.3
	} else {
		low, high = 0.5, 3.0
	}

	switch {
	case atrPct < low:
		return model.VolLow, 0.8
	case atrPct > high:
		return model.VolHigh, 1.5
	default:
		return model.VolNormal, 1.0
	}
}

// Tracker holds the per-market regime history and stability
// calculation, owned exclusively by that market's poller (§5).
type Tracker struct {
	history *model.RegimeHistory
}

// NewTracker starts a tracker with no prior regime: the first
// Update() call records no transition, only an entry.
func NewTracker() *Tracker {
	return &Tracker{history: &model.RegimeHistory{}}
}

// Update applies the newly classified regime, recording a transition
// if it differs from the current one, and returns the stability score
// and the count of transitions within the last 60 minutes.
func (t *Tracker) Update(now time.Time, newRegime model.Regime) (stability float64, recentTransitions int) {
	h := t.history
	if h.Current == "" {
		h.Current = newRegime
		h.EnteredAt = now
	} else if h.Current != newRegime {
		h.Record(model.RegimeTransition{
			From:     h.Current,
			To:       newRegime,
			At:       now,
			Duration: now.Sub(h.EnteredAt),
		})
		h.Current = newRegime
		h.EnteredAt = now
	}

	holdMinutes := now.Sub(h.EnteredAt).Minutes()
	recentTransitions = h.TransitionsSince(now.Add(-60 * time.Minute))
	stability = math.Min(100, holdMinutes/30*100) - 15*float64(recentTransitions)
	if stability < 0 {
		stability = 0
	}
	return stability, recentTransitions
}

// Current returns the tracker's current regime.
func (t *Tracker) Current() model.Regime {
	return t.history.Current
}
