// Package kelly computes fractional-Kelly bet sizing (C5) from a
// model probability and market price, tiered by confidence.
package kelly

import (
	"github.com/shopspring/decimal"

	"scanner-go/internal/model"
	"scanner-go/internal/util"
)

const (
	fractionalFactor = 0.25
	maxBetPct        = 0.05
)

func tierMultiplier(tier model.ConfidenceTier) float64 {
	switch tier {
	case model.TierHigh:
		return 1.0
	case model.TierMedium:
		return 0.7
	case model.TierLow:
		return 0.4
	default:
		return 0.0
	}
}

// Size computes the Kelly result for one side: p is the model
// probability of that side, marketPrice is the live price for the
// same side.
func Size(p, marketPrice float64, tier model.ConfidenceTier) model.Kelly {
	if marketPrice <= 0 || marketPrice >= 1 {
		return model.Kelly{Tier: tier}
	}

	pd := decimal.NewFromFloat(p)
	q := decimal.NewFromInt(1).Sub(pd)
	b := decimal.NewFromInt(1).Div(decimal.NewFromFloat(marketPrice)).Sub(decimal.NewFromInt(1))

	if b.IsZero() {
		return model.Kelly{Tier: tier}
	}

	fullKelly := pd.Mul(b).Sub(q).Div(b)
	full, _ := fullKelly.Float64()
	full = util.Clamp(full, 0, 1)

	betPct := util.Clamp(full*fractionalFactor*tierMultiplier(tier), 0, maxBetPct)

	oddsF, _ := b.Float64()

	return model.Kelly{
		BetPct:    betPct,
		KellyFull: full,
		Odds:      oddsF,
		Tier:      tier,
	}
}
