package confidence

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestScoreFloorsNegativeTotalToZero(t *testing.T) {
	// Every sub-score pushed as negative as possible: confluence
	// conflict, bearish correlation, chop regime, flow conflict.
	in := Input{
		Edge:               0,
		Degenerate:         false,
		MajorVotes:         0,
		MinorVotes:         1,
		ConfluenceAligned:  0,
		ConfluenceConflict: 2,
		CorrelationAdj:     0.8,
		Volatility:         model.VolHigh,
		FlowConflicts:      true,
		Decay:              0,
		RegimeAligned:      false,
		Regime:             model.RegimeChop,
	}
	out := Score(in)
	assert.GreaterOrEqual(t, out.Score, 0.0)
	assert.Equal(t, model.TierVeryLow, out.Tier)
}

func TestScoreHighConfluenceStrongFlowReachesHighTier(t *testing.T) {
	in := Input{
		Edge:              0.15,
		MajorVotes:         5,
		MinorVotes:         1,
		ConfluenceAligned:  3,
		CorrelationAdj:     1.2,
		Volatility:         model.VolLow,
		FlowSupports:       true,
		FlowQuality:        model.FlowDeep,
		Decay:              0.7,
		RegimeAligned:      true,
		Regime:             model.RegimeTrendUp,
	}
	out := Score(in)
	assert.Equal(t, model.TierHigh, out.Tier)
	assert.LessOrEqual(t, out.Score, 100.0)
}

func TestDegenerateIndicatorAgreementIsFlatLow(t *testing.T) {
	assert.Equal(t, 2.0, indicatorAgreement(5, 1, true))
}

func TestTierBoundaries(t *testing.T) {
	assert.Equal(t, model.TierHigh, tier(80))
	assert.Equal(t, model.TierMedium, tier(60))
	assert.Equal(t, model.TierLow, tier(40))
	assert.Equal(t, model.TierVeryLow, tier(39.9))
}

func TestEdgeMagnitudeClampsAtTwentyPoints(t *testing.T) {
	assert.Equal(t, 20.0, edgeMagnitude(1.0))
	assert.Equal(t, 0.0, edgeMagnitude(0))
}
