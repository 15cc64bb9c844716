package correlation

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestNewEngineStartsNeutral(t *testing.T) {
	e := NewEngine("BTCUSDT")
	snap := e.Snapshot()
	assert.Equal(t, model.BiasNeutral, snap.Bias)
	assert.Equal(t, "BTCUSDT", snap.Symbol)
}

func TestShouldRefreshRespectsMinInterval(t *testing.T) {
	e := NewEngine("BTCUSDT")
	now := time.Now()
	assert.True(t, e.ShouldRefresh(now), "never-refreshed engine should always be due")

	e.Refresh(now, 100, 60, 99, 0.1, 0.5)
	assert.False(t, e.ShouldRefresh(now.Add(time.Second)))
	assert.True(t, e.ShouldRefresh(now.Add(model.MinRefreshInterval+time.Second)))
}

func TestRefreshBullishRequiresThreeOfFourVotes(t *testing.T) {
	e := NewEngine("BTCUSDT")
	now := time.Now()
	// price>vwap, rsi>55, macdHist>0, vwapSlope>0 -> 4 bull votes.
	e.Refresh(now, 105, 60, 100, 0.5, 0.2)
	snap := e.Snapshot()
	assert.Equal(t, model.BiasBullish, snap.Bias)
	assert.Equal(t, 1.0, snap.BiasStrength)
}

func TestRefreshTwoVsOneIsLeaning(t *testing.T) {
	e := NewEngine("BTCUSDT")
	now := time.Now()
	// price>vwap (bull), rsi>55 (bull), macdHist<0 (bear), slope==0 (no vote) -> 2 bull, 1 bear.
	e.Refresh(now, 105, 60, 100, 0, -0.2)
	snap := e.Snapshot()
	assert.Equal(t, model.BiasLeanBull, snap.Bias)
}

func TestRefreshRetainsStateOnNoCall(t *testing.T) {
	// Open Question 3: a failed fetch means the caller simply never
	// calls Refresh; the prior snapshot must be untouched.
	e := NewEngine("BTCUSDT")
	now := time.Now()
	e.Refresh(now, 105, 60, 100, 0.5, 0.2)
	before := e.Snapshot()
	after := e.Snapshot()
	assert.Equal(t, before, after)
}

func TestAdjustmentNonCryptoCategoryIsNeutral(t *testing.T) {
	state := model.CorrelationState{Bias: model.BiasBullish, BiasStrength: 1.0}
	adj := Adjustment(state, "politics", "Will X happen?", model.SideUp, nil)
	assert.Equal(t, 1.0, adj)
}

func TestAdjustmentCaseSensitiveCategoryMismatch(t *testing.T) {
	// "Crypto" (capitalized) must fall through to 1.0 same as any
	// other non-matching category — preserved literal behavior.
	state := model.CorrelationState{Bias: model.BiasBullish, BiasStrength: 1.0}
	adj := Adjustment(state, "Crypto", "Will BTC be above $100k?", model.SideUp, nil)
	assert.Equal(t, 1.0, adj)
}

func TestAdjustmentEthTaggedAlignedBoostsEdge(t *testing.T) {
	state := model.CorrelationState{Bias: model.BiasBullish, BiasStrength: 1.0}
	adj := Adjustment(state, "crypto", "Will ETH rise?", model.SideUp, []string{"eth"})
	assert.InDelta(t, 1.2, adj, 1e-9)
}

func TestAdjustmentAboveQuestionConflictingReducesEdge(t *testing.T) {
	state := model.CorrelationState{Bias: model.BiasBearish, BiasStrength: 1.0}
	adj := Adjustment(state, "crypto", "Will BTC be above $100k?", model.SideUp, nil)
	assert.InDelta(t, 0.7, adj, 1e-9)
}

func TestAdjustmentLeaningBiasGivesSmallBoost(t *testing.T) {
	state := model.CorrelationState{Bias: model.BiasLeanBull, BiasStrength: 0.5}
	adj := Adjustment(state, "crypto", "Will it rain tomorrow?", model.SideUp, nil)
	assert.Equal(t, 1.05, adj)
}
