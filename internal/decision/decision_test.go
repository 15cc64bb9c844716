package decision

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestEdgesAppliesCorrelationAdjustmentToBothSides(t *testing.T) {
	edges := Edges(0.60, 0.40, 0.50, 0.50, 1.1)
	assert.InDelta(t, (0.60-0.50)*1.1, edges.EdgeUp, 1e-9)
	assert.InDelta(t, (0.40-0.50)*1.1, edges.EdgeDown, 1e-9)
}

func TestDecidePassesBelowThreshold(t *testing.T) {
	in := Input{
		Edges:      model.Edges{EdgeUp: 0.01, EdgeDown: -0.01},
		Volatility: model.VolNormal,
		Regime:     model.RegimeRange,
	}
	rec := Decide(in)
	assert.Equal(t, model.ActionPass, rec.Action)
}

func TestDecideEntersAboveThreshold(t *testing.T) {
	in := Input{
		Edges:            model.Edges{EdgeUp: 0.12, EdgeDown: 0.0},
		Volatility:       model.VolNormal,
		Regime:           model.RegimeRange,
		RemainingMinutes: 10,
		HorizonMinutes:   15,
	}
	rec := Decide(in)
	assert.Equal(t, model.ActionEnter, rec.Action)
	assert.Equal(t, model.SideUp, rec.Side)
	assert.Equal(t, model.StrengthStrong, rec.Strength)
}

func TestDecideChopRegimeRequiresConfluenceOrBigEdge(t *testing.T) {
	// Chop regime, weak confluence, edge under 2x base threshold: pass
	// even though it would clear a plain threshold check.
	in := Input{
		Edges:              model.Edges{EdgeUp: 0.04, EdgeDown: 0.0},
		Volatility:         model.VolNormal,
		Regime:             model.RegimeChop,
		ConfluenceAligned:  1,
		ConfluenceConflict: 0,
	}
	rec := Decide(in)
	assert.Equal(t, model.ActionPass, rec.Action)
}

func TestDecideChopRegimeEntersOnStrongConfluence(t *testing.T) {
	in := Input{
		Edges:              model.Edges{EdgeUp: 0.07, EdgeDown: 0.0},
		Volatility:         model.VolNormal,
		Regime:             model.RegimeChop,
		ConfluenceAligned:  3,
		ConfluenceConflict: 0,
		RemainingMinutes:   30,
		HorizonMinutes:     60,
	}
	rec := Decide(in)
	assert.Equal(t, model.ActionEnter, rec.Action)
}

func TestEffectiveThresholdLowVolLowersThreshold(t *testing.T) {
	lowVol := effectiveThreshold(Input{Volatility: model.VolLow, Regime: model.RegimeRange}, model.SideUp)
	normalVol := effectiveThreshold(Input{Volatility: model.VolNormal, Regime: model.RegimeRange}, model.SideUp)
	highVol := effectiveThreshold(Input{Volatility: model.VolHigh, Regime: model.RegimeRange}, model.SideUp)

	assert.Less(t, lowVol, normalVol)
	assert.Greater(t, highVol, normalVol)
}

func TestEffectiveThresholdConfluenceDividesThreshold(t *testing.T) {
	noConfluence := effectiveThreshold(Input{Volatility: model.VolNormal, Regime: model.RegimeRange, ConfluenceAligned: 1}, model.SideUp)
	withConfluence := effectiveThreshold(Input{Volatility: model.VolNormal, Regime: model.RegimeRange, ConfluenceAligned: 3}, model.SideUp)
	assert.Less(t, withConfluence, noConfluence)
}

func TestEffectiveThresholdTrendAlignedSideGetsDiscount(t *testing.T) {
	aligned := effectiveThreshold(Input{Volatility: model.VolNormal, Regime: model.RegimeTrendUp}, model.SideUp)
	against := effectiveThreshold(Input{Volatility: model.VolNormal, Regime: model.RegimeTrendUp}, model.SideDown)
	assert.Less(t, aligned, against)
}

func TestClassifyPhaseBucketsByRemainingFraction(t *testing.T) {
	assert.Equal(t, model.PhaseEarly, classifyPhase(90, 100))
	assert.Equal(t, model.PhaseMid, classifyPhase(50, 100))
	assert.Equal(t, model.PhaseLate, classifyPhase(10, 100))
	assert.Equal(t, model.PhaseMid, classifyPhase(10, 0))
}

func TestClassifyStrengthLateWindowLowersBar(t *testing.T) {
	// Outside the late window a 0.06 edge is only GOOD; inside the
	// late window (last quarter of horizon) the same edge is STRONG.
	assert.Equal(t, model.StrengthGood, classifyStrength(0.06, 80, 100))
	assert.Equal(t, model.StrengthStrong, classifyStrength(0.06, 20, 100))
}
