package regime

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestClassifyLowVolumeFlatIsChopBeforeTrendCheck(t *testing.T) {
	// price > vwap and slope > 0 would otherwise classify TREND_UP,
	// but low volume + flat price must win per the literal rule order.
	regime := Classify(100.05, 100, 0.5, 0, 10, 100)
	assert.Equal(t, model.RegimeChop, regime)
}

func TestClassifyTrendUp(t *testing.T) {
	regime := Classify(105, 100, 0.5, 0, 100, 100)
	assert.Equal(t, model.RegimeTrendUp, regime)
}

func TestClassifyTrendDown(t *testing.T) {
	regime := Classify(95, 100, -0.5, 0, 100, 100)
	assert.Equal(t, model.RegimeTrendDown, regime)
}

func TestClassifyRange(t *testing.T) {
	regime := Classify(100, 100, 0, 1, 100, 100)
	assert.Equal(t, model.RegimeRange, regime)
}

func TestVolatilityCryptoUsesTighterThresholds(t *testing.T) {
	class, mult := Volatility("crypto", 0.04)
	assert.Equal(t, model.VolLow, class)
	assert.Equal(t, 0.8, mult)

	class, mult = Volatility("crypto", 0.5)
	assert.Equal(t, model.VolHigh, class)
	assert.Equal(t, 1.5, mult)
}

func TestVolatilityNonCryptoCategoryCaseSensitive(t *testing.T) {
	// "Crypto" (capitalized) must NOT get crypto thresholds — the
	// preserved literal case-sensitivity rule.
	class, _ := Volatility("Crypto", 0.4)
	assert.Equal(t, model.VolLow, class)
}

func TestTrackerFirstUpdateRecordsNoTransition(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	_, transitions := tr.Update(now, model.RegimeTrendUp)
	assert.Equal(t, 0, transitions)
	assert.Equal(t, model.RegimeTrendUp, tr.Current())
}

func TestTrackerTransitionIncrementsRecentCount(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.Update(now, model.RegimeTrendUp)
	_, transitions := tr.Update(now.Add(time.Minute), model.RegimeRange)
	assert.Equal(t, 1, transitions)
}

func TestTrackerStabilityGrowsWithHoldTimeAndDropsWithTransitions(t *testing.T) {
	tr := NewTracker()
	now := time.Now()
	tr.Update(now, model.RegimeTrendUp)
	freshStability, _ := tr.Update(now.Add(time.Minute), model.RegimeTrendUp)

	churny := NewTracker()
	churny.Update(now, model.RegimeTrendUp)
	churny.Update(now.Add(time.Minute), model.RegimeRange)
	churnyStability, _ := churny.Update(now.Add(2*time.Minute), model.RegimeTrendUp)

	assert.Greater(t, freshStability, churnyStability)
}
