// Package decision implements the edge computation and ENTER/PASS
// decision of C4: it compares the model's adjusted probabilities to
// live market prices, applies regime/volatility gates, and classifies
// signal strength and phase.
package decision

import "scanner-go/internal/model"

const baseThreshold = 0.03

// Edges computes edgeUp/edgeDown for a (model, market) pair.
func Edges(adjustedUp, adjustedDown, marketYes, marketNo, correlationAdj float64) model.Edges {
	edgeUp := (adjustedUp - marketYes) * correlationAdj
	edgeDown := (adjustedDown - marketNo) * correlationAdj
	return model.Edges{EdgeUp: edgeUp, EdgeDown: edgeDown}
}

// Input bundles everything the decision needs beyond the raw edges.
type Input struct {
	Edges              model.Edges
	Volatility         model.VolatilityClass
	Regime             model.Regime
	ConfluenceAligned  int // timeframes aligned with the best-edge side
	ConfluenceConflict int // timeframes conflicting with the best-edge side
	RemainingMinutes   float64
	HorizonMinutes     int
}

// volMultiplier returns the threshold multiplier for spec.md §4.4's
// "lower threshold in quiet markets" rule.
func volMultiplier(v model.VolatilityClass) float64 {
	switch v {
	case model.VolLow:
		return 0.8
	case model.VolHigh:
		return 1.5
	default:
		return 1.0
	}
}

// effectiveThreshold applies the volatility multiplier, the
// confluence divisor, and the regime gate to the base threshold.
func effectiveThreshold(in Input, side model.Side) float64 {
	threshold := baseThreshold * volMultiplier(in.Volatility)

	if in.ConfluenceAligned >= 2 {
		threshold /= float64(in.ConfluenceAligned)
	}

	switch in.Regime {
	case model.RegimeChop:
		threshold *= 1.5
	case model.RegimeTrendUp:
		if side == model.SideUp {
			threshold *= 0.8
		}
	case model.RegimeTrendDown:
		if side == model.SideDown {
			threshold *= 0.8
		}
	}

	return threshold
}

// Decide picks the best-edge side and returns ENTER or PASS along
// with strength/phase classification.
func Decide(in Input) model.Recommendation {
	side := model.SideUp
	best := in.Edges.EdgeUp
	if in.Edges.EdgeDown > in.Edges.EdgeUp {
		side = model.SideDown
		best = in.Edges.EdgeDown
	}

	if in.Regime == model.RegimeChop && in.ConfluenceAligned < 2 && best < baseThreshold*2 {
		return model.Recommendation{Action: model.ActionPass}
	}

	threshold := effectiveThreshold(in, side)
	if best < threshold {
		return model.Recommendation{Action: model.ActionPass}
	}

	return model.Recommendation{
		Action:   model.ActionEnter,
		Side:     side,
		Strength: classifyStrength(best, in.RemainingMinutes, in.HorizonMinutes),
		Phase:    classifyPhase(in.RemainingMinutes, in.HorizonMinutes),
	}
}

// classifyStrength buckets edge magnitude, tightened as settlement
// approaches (a given edge is worth more when there's less time left
// for it to mean-revert away).
func classifyStrength(edge, remainingMinutes float64, horizonMinutes int) model.Strength {
	lateWindow := horizonMinutes > 0 && remainingMinutes <= float64(horizonMinutes)*0.25

	switch {
	case edge >= 0.10 || (lateWindow && edge >= 0.06):
		return model.StrengthStrong
	case edge >= 0.05 || (lateWindow && edge >= 0.03):
		return model.StrengthGood
	default:
		return model.StrengthWeak
	}
}

// classifyPhase buckets remaining time into early/mid/late thirds of
// the indicator horizon.
func classifyPhase(remainingMinutes float64, horizonMinutes int) model.Phase {
	if horizonMinutes <= 0 {
		return model.PhaseMid
	}
	frac := remainingMinutes / float64(horizonMinutes)
	switch {
	case frac > 0.66:
		return model.PhaseEarly
	case frac > 0.33:
		return model.PhaseMid
	default:
		return model.PhaseLate
	}
}
