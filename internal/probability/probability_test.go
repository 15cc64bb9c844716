package probability

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestScoreDegenerateFallsBackToOrderbookOnly(t *testing.T) {
	ind := model.IndicatorSnapshot{
		Price:              100,
		VWAP:               99, // would otherwise vote UP strongly
		RSI:                100, // RSIDegenerate: >= 99
		MACD:               0,
		Signal:             0,
		Hist:               0,
		OrderbookImbalance: 2.0, // STRONG_BID
	}

	rawUp, degenerate, _ := Score(ind.Price, ind, "crypto", nil)
	assert.True(t, degenerate, "RSI pinned and MACD pinned at zero should be degenerate")
	assert.Greater(t, rawUp, 0.5, "orderbook imbalance must still vote even in the degenerate path")
}

func TestScoreOrderbookContributionCappedWhenDegenerate(t *testing.T) {
	table := &model.WeightTable{
		Global: map[model.WeightKey]float64{
			{Feature: "ob_zone", Value: "STRONG_BID"}: 5.0, // would blow past the +/-1 cap if uncapped
		},
	}
	ind := model.IndicatorSnapshot{
		RSI:                100,
		MACD:               0,
		Signal:             0,
		Hist:               0,
		OrderbookImbalance: 2.0,
	}

	rawUncapped, _, _ := Score(ind.Price, ind, "crypto", nil)
	rawCapped, _, _ := Score(ind.Price, ind, "crypto", table)

	// Both degenerate: weight of 5.0 must be clamped to the same +1
	// contribution a weight of 1.0 (default) would have produced.
	assert.InDelta(t, rawUncapped, rawCapped, 1e-9)
}

func TestScoreNonDegenerateAllVotesUp(t *testing.T) {
	ind := model.IndicatorSnapshot{
		Price:              101,
		VWAP:               100,
		VWAPSlope:          0.5,
		RSI:                60,
		RSISlope:           0.1,
		MACD:               1,
		Signal:             0.5,
		Hist:               0.5,
		HistDelta:          0.1,
		HeikenColor:        "green",
		HeikenStreak:       3,
		OrderbookImbalance: 1.0, // BALANCED, no contribution
	}

	rawUp, degenerate, votes := Score(ind.Price, ind, "crypto", nil)
	assert.False(t, degenerate)
	assert.Greater(t, rawUp, 0.5)
	assert.Equal(t, 4, votes.Up, "vwap position, vwap slope, rsi zone, and macd histogram should all vote up")
	assert.Equal(t, 0, votes.Down)
}

func TestScoreVoteCountsSplitOnMixedSignals(t *testing.T) {
	ind := model.IndicatorSnapshot{
		Price:              99,
		VWAP:               100, // votes down
		VWAPSlope:          0.5, // votes up
		RSI:                40,
		RSISlope:           -0.1, // rsi<45 & slope<0: votes down
		OrderbookImbalance: 1.6,  // STRONG_BID: votes up
	}

	_, degenerate, votes := Score(ind.Price, ind, "crypto", nil)
	assert.False(t, degenerate)
	assert.Equal(t, 2, votes.Up)
	assert.Equal(t, 2, votes.Down)
}

func TestScoreVoteCountsZeroWhenDegenerateExceptOrderbook(t *testing.T) {
	ind := model.IndicatorSnapshot{
		Price:              100,
		VWAP:               99,
		RSI:                100,
		MACD:               0,
		Signal:             0,
		Hist:               0,
		OrderbookImbalance: 2.0, // STRONG_BID
	}

	_, degenerate, votes := Score(ind.Price, ind, "crypto", nil)
	assert.True(t, degenerate)
	assert.Equal(t, 1, votes.Up, "only the always-on orderbook vote should count while degenerate")
	assert.Equal(t, 0, votes.Down)
}

func TestScoreFailedVWAPReclaimPenalizesUp(t *testing.T) {
	base := model.IndicatorSnapshot{
		Price:              101,
		VWAP:               100,
		RSI:                60,
		RSISlope:           0.1,
		OrderbookImbalance: 1.0,
	}
	withFailedReclaim := base
	withFailedReclaim.FailedVWAPReclaim = true

	rawBase, _, _ := Score(base.Price, base, "crypto", nil)
	rawPenalized, _, _ := Score(withFailedReclaim.Price, withFailedReclaim, "crypto", nil)

	assert.Less(t, rawPenalized, rawBase)
}

func TestApplyTimeDecayClampsToUnitInterval(t *testing.T) {
	scored := ApplyTimeDecay(0.99, 120, 15)
	assert.GreaterOrEqual(t, scored.AdjustedUp, 0.0)
	assert.LessOrEqual(t, scored.AdjustedUp, 1.0)
	assert.InDelta(t, 1-scored.AdjustedUp, scored.AdjustedDown, 1e-9)
}

func TestApplyTimeDecayNearSettlementTracksRemainingFraction(t *testing.T) {
	// remainingMinutes <= horizon: decay == remainingMinutes/horizon exactly.
	scored := ApplyTimeDecay(0.8, 5, 20)
	assert.InDelta(t, 0.25, scored.Decay, 1e-9)
	assert.InDelta(t, 0.5+(0.8-0.5)*0.25, scored.AdjustedUp, 1e-9)
}

func TestApplyTimeDecayZeroHorizonCollapsesToHalf(t *testing.T) {
	scored := ApplyTimeDecay(0.9, 10, 0)
	assert.Equal(t, 0.0, scored.Decay)
	assert.InDelta(t, 0.5, scored.AdjustedUp, 1e-9)
}

func TestHorizonSelectsByCategoryAndDuration(t *testing.T) {
	assert.Equal(t, 15, Horizon("crypto", true, 15, 60, 240))
	assert.Equal(t, 60, Horizon("crypto", false, 15, 60, 240))
	assert.Equal(t, 240, Horizon("politics", true, 15, 60, 240))
}

func TestWeightTableGetFallsBackToDefault(t *testing.T) {
	var table *model.WeightTable
	assert.Equal(t, model.DefaultWeight, weightLookup(table, "crypto", "rsi_zone", "OVERBOUGHT"))
}
