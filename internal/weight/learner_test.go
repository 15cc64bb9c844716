package weight

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func makeSignal(category string, won bool, vwapPos, rsiZone string) model.Signal {
	outcome := model.OutcomeLoss
	if won {
		outcome = model.OutcomeWin
	}
	return model.Signal{
		Category: category,
		Outcome:  outcome,
		Features: model.ClassifiedFeatures{
			VWAPPosition: vwapPos,
			RSIZone:      rsiZone,
			MACDState:    "POSITIVE",
			HeikenColor:  "green",
			OBZone:       "BALANCED",
			VolRegime:    "NORMAL_VOL",
		},
	}
}

func TestNewLearnerStartsAtDefaultWeights(t *testing.T) {
	l := New()
	table := l.Current()
	assert.Equal(t, model.DefaultWeight, table.Get("crypto", model.WeightKey{Feature: "rsi_zone", Value: "OVERBOUGHT"}))
}

func TestRefreshRequiresMinimumSettledOutcomes(t *testing.T) {
	l := New()
	signals := make([]model.Signal, 10)
	for i := range signals {
		signals[i] = makeSignal("crypto", true, "ABOVE", "BULLISH")
	}
	table, deltas := l.Refresh(signals)
	assert.Nil(t, table)
	assert.Nil(t, deltas)
}

func TestRefreshPublishesHigherWeightForWinningFeature(t *testing.T) {
	l := New()
	var signals []model.Signal
	for i := 0; i < 60; i++ {
		signals = append(signals, makeSignal("crypto", true, "ABOVE", "BULLISH"))
	}
	table, _ := l.Refresh(signals)
	assert.NotNil(t, table)
	assert.Equal(t, 1, table.Version)

	w := table.Get("crypto", model.WeightKey{Feature: "vwap_position", Value: "ABOVE"})
	assert.Greater(t, w, 1.0, "a feature present in every winning signal should earn a multiplier above 1.0")
}

func TestRefreshPublishesLowerWeightForLosingFeature(t *testing.T) {
	l := New()
	var signals []model.Signal
	for i := 0; i < 60; i++ {
		signals = append(signals, makeSignal("crypto", false, "BELOW", "BEARISH"))
	}
	table, _ := l.Refresh(signals)
	w := table.Get("crypto", model.WeightKey{Feature: "vwap_position", Value: "BELOW"})
	assert.Less(t, w, 1.0)
}

func TestWinRateMultiplierClampsToHalfRange(t *testing.T) {
	allWins := outcomeTally{wins: 100, losses: 0}
	assert.Equal(t, 1.5, winRateMultiplier(allWins))

	allLosses := outcomeTally{wins: 0, losses: 100}
	assert.Equal(t, 0.5, winRateMultiplier(allLosses))

	noData := outcomeTally{}
	assert.Equal(t, model.DefaultWeight, winRateMultiplier(noData))
}

func TestDetectDriftNoneWithoutBaseline(t *testing.T) {
	l := New()
	severity, count, mean := l.DetectDrift()
	assert.Equal(t, DriftNone, severity)
	assert.Equal(t, 0, count)
	assert.Equal(t, 0.0, mean)
}

func TestDetectDriftHighWhenManyKeysDiverge(t *testing.T) {
	l := New()
	var firstBatch []model.Signal
	for i := 0; i < 60; i++ {
		firstBatch = append(firstBatch, makeSignal("crypto", true, "ABOVE", "BULLISH"))
	}
	l.Refresh(firstBatch) // seeds the baseline from the all-default starting table

	var secondBatch []model.Signal
	for i := 0; i < 60; i++ {
		secondBatch = append(secondBatch, makeSignal("crypto", false, "BELOW", "OVERSOLD"))
	}
	l.Refresh(secondBatch)

	severity, count, _ := l.DetectDrift()
	assert.Equal(t, DriftHigh, severity)
	assert.Greater(t, count, 0)
}
