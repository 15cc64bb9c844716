package kelly

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"scanner-go/internal/model"
)

func TestSizeReturnsZeroForDegenerateMarketPrice(t *testing.T) {
	assert.Equal(t, model.Kelly{Tier: model.TierHigh}, Size(0.6, 0, model.TierHigh))
	assert.Equal(t, model.Kelly{Tier: model.TierHigh}, Size(0.6, 1, model.TierHigh))
}

func TestSizeEdgeIncreasesBetPctMonotonically(t *testing.T) {
	low := Size(0.55, 0.50, model.TierHigh)
	high := Size(0.70, 0.50, model.TierHigh)
	assert.Greater(t, high.BetPct, low.BetPct)
}

func TestSizeCapsAtMaxBetPct(t *testing.T) {
	out := Size(0.95, 0.10, model.TierHigh)
	assert.LessOrEqual(t, out.BetPct, maxBetPct)
}

func TestSizeTierMultiplierScalesDownBet(t *testing.T) {
	high := Size(0.55, 0.50, model.TierHigh)
	medium := Size(0.55, 0.50, model.TierMedium)
	low := Size(0.55, 0.50, model.TierLow)
	veryLow := Size(0.55, 0.50, model.TierVeryLow)

	assert.Greater(t, high.BetPct, medium.BetPct)
	assert.Greater(t, medium.BetPct, low.BetPct)
	assert.Equal(t, 0.0, veryLow.BetPct)
}

func TestSizeNegativeEdgeClampsKellyFullToZero(t *testing.T) {
	// p well below market-implied probability: full Kelly would be
	// negative, clamped to 0.
	out := Size(0.10, 0.80, model.TierHigh)
	assert.Equal(t, 0.0, out.KellyFull)
	assert.Equal(t, 0.0, out.BetPct)
}
