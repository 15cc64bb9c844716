// Package weight implements C9: it periodically derives per-feature
// multipliers from settled outcomes and publishes them by atomic
// pointer swap for C3 to consult.
package weight

import (
	"sync/atomic"

	"gonum.org/v1/gonum/stat"

	"scanner-go/internal/model"
)

const (
	minSettledOutcomes = 50
	confidenceDenom     = 50.0
	deltaAuditThreshold = 0.05
	driftThreshold      = 0.20
)

// Learner owns the published weight table via an atomic pointer swap;
// readers never see a partially-built table.
type Learner struct {
	published atomic.Pointer[model.WeightTable]
	baseline  atomic.Pointer[model.WeightTable]
}

// New seeds a learner with an all-default table.
func New() *Learner {
	l := &Learner{}
	empty := &model.WeightTable{Global: map[model.WeightKey]float64{}, ByCategory: map[string]map[model.WeightKey]float64{}, Combo: map[[2]model.WeightKey]float64{}}
	l.published.Store(empty)
	return l
}

// Current returns the currently published table.
func (l *Learner) Current() *model.WeightTable {
	return l.published.Load()
}

type outcomeTally struct {
	wins, losses int
}

func (t outcomeTally) total() int { return t.wins + t.losses }

// winRateMultiplier implements the S4 formula: clamp((winRate-0.5)*2*conf, -0.5, 0.5), m = 1+w.
func winRateMultiplier(t outcomeTally) float64 {
	total := t.total()
	if total == 0 {
		return model.DefaultWeight
	}
	winRate := float64(t.wins) / float64(total)
	conf := float64(total) / confidenceDenom
	if conf > 1 {
		conf = 1
	}
	raw := (winRate - 0.5) * 2 * conf
	if raw > 0.5 {
		raw = 0.5
	}
	if raw < -0.5 {
		raw = -0.5
	}
	return 1 + raw
}

// Refresh recomputes the whole table from settled signals and
// publishes it by a single pointer swap. Returns nil (no publish)
// when fewer than minSettledOutcomes signals are settled.
func (l *Learner) Refresh(signals []model.Signal) (*model.WeightTable, []WeightDelta) {
	if len(signals) < minSettledOutcomes {
		return nil, nil
	}

	global := map[model.WeightKey]outcomeTally{}
	byCategory := map[string]map[model.WeightKey]outcomeTally{}
	combo := map[[2]model.WeightKey]outcomeTally{}

	for _, sig := range signals {
		won := sig.Outcome == model.OutcomeWin
		for _, key := range featureKeys(sig.Features) {
			tallyInto(global, key, won)
			catTable, ok := byCategory[sig.Category]
			if !ok {
				catTable = map[model.WeightKey]outcomeTally{}
				byCategory[sig.Category] = catTable
			}
			tallyInto(catTable, key, won)
		}

		comboKey := [2]model.WeightKey{
			{Feature: "vwap_position", Value: sig.Features.VWAPPosition},
			{Feature: "rsi_zone", Value: sig.Features.RSIZone},
		}
		t := combo[comboKey]
		if won {
			t.wins++
		} else {
			t.losses++
		}
		combo[comboKey] = t
	}

	newTable := &model.WeightTable{
		Global:     buildMultipliers(global),
		ByCategory: map[string]map[model.WeightKey]float64{},
		Combo:      buildComboMultipliers(combo),
	}
	for cat, t := range byCategory {
		newTable.ByCategory[cat] = buildMultipliers(t)
	}

	old := l.published.Load()
	newTable.Version = old.Version + 1
	deltas := diff(old, newTable)

	l.published.Store(newTable)
	if l.baseline.Load() == nil {
		l.baseline.Store(old)
	}

	return newTable, deltas
}

func tallyInto(table map[model.WeightKey]outcomeTally, key model.WeightKey, won bool) {
	t := table[key]
	if won {
		t.wins++
	} else {
		t.losses++
	}
	table[key] = t
}

func buildMultipliers(table map[model.WeightKey]outcomeTally) map[model.WeightKey]float64 {
	out := make(map[model.WeightKey]float64, len(table))
	for key, t := range table {
		out[key] = winRateMultiplier(t)
	}
	return out
}

func buildComboMultipliers(table map[[2]model.WeightKey]outcomeTally) map[[2]model.WeightKey]float64 {
	out := make(map[[2]model.WeightKey]float64, len(table))
	for key, t := range table {
		m := winRateMultiplier(t)
		if m > 1.3 {
			m = 1.3
		}
		if m < 0.7 {
			m = 0.7
		}
		out[key] = m
	}
	return out
}

func featureKeys(f model.ClassifiedFeatures) []model.WeightKey {
	return []model.WeightKey{
		{Feature: "vwap_position", Value: f.VWAPPosition},
		{Feature: "vwap_slope_dir", Value: f.VWAPSlopeDir},
		{Feature: "rsi_zone", Value: f.RSIZone},
		{Feature: "macd_state", Value: f.MACDState},
		{Feature: "heiken_color", Value: f.HeikenColor},
		{Feature: "ob_zone", Value: f.OBZone},
		{Feature: "vol_regime", Value: f.VolRegime},
	}
}

// WeightDelta is one versioned audit row for a weight change |Δ|>0.05.
type WeightDelta struct {
	Key    model.WeightKey
	Before float64
	After  float64
}

func diff(old, newTable *model.WeightTable) []WeightDelta {
	var deltas []WeightDelta
	for key, after := range newTable.Global {
		before := old.Get("", key)
		if abs(after-before) > deltaAuditThreshold {
			deltas = append(deltas, WeightDelta{Key: key, Before: before, After: after})
		}
	}
	return deltas
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// DriftSeverity classifies how many learned weights have diverged
// from the learner's baseline snapshot by more than driftThreshold.
type DriftSeverity string

const (
	DriftNone   DriftSeverity = "none"
	DriftLow    DriftSeverity = "low"
	DriftMedium DriftSeverity = "medium"
	DriftHigh   DriftSeverity = "high"
)

// DetectDrift compares the current published table against the
// stored baseline, reporting both a severity bucket and the mean
// absolute divergence of the keys that drifted (via gonum's stat
// package, the same dependency the pack's sentinel-style repos use
// for win-rate statistics).
func (l *Learner) DetectDrift() (severity DriftSeverity, count int, meanDivergence float64) {
	baseline := l.baseline.Load()
	current := l.published.Load()
	if baseline == nil || current == nil {
		return DriftNone, 0, 0
	}

	var divergences []float64
	for key, cur := range current.Global {
		base := baseline.Get("", key)
		if d := abs(cur - base); d > driftThreshold {
			divergences = append(divergences, d)
		}
	}

	count = len(divergences)
	if count > 0 {
		meanDivergence = stat.Mean(divergences, nil)
	}

	switch {
	case count == 0:
		return DriftNone, 0, 0
	case count <= 2:
		return DriftLow, count, meanDivergence
	case count <= 5:
		return DriftMedium, count, meanDivergence
	default:
		return DriftHigh, count, meanDivergence
	}
}
