// Package confidence composes the eight-component additive score of
// C5 into a normalized 0-100 confidence with a tier.
package confidence

import (
	"scanner-go/internal/model"
	"scanner-go/internal/util"
)

// Input bundles the raw signals each sub-score needs.
type Input struct {
	Edge              float64
	Degenerate        bool
	MajorVotes        int
	MinorVotes        int
	ConfluenceAligned int
	ConfluenceConflict int
	CorrelationAdj    float64
	Volatility        model.VolatilityClass
	FlowSupports      bool
	FlowAlignedScore  float64
	FlowQuality       model.FlowQuality
	FlowConflicts     bool
	Decay             float64
	RegimeAligned     bool
	Regime            model.Regime
}

func edgeMagnitude(edge float64) float64 {
	return util.Clamp(edge*100, 0, 20)
}

func indicatorAgreement(major, minor int, degenerate bool) float64 {
	if degenerate {
		return 2
	}
	if minor == 0 {
		minor = 1
	}
	return util.Clamp((float64(major)/float64(minor)-1)*8, 0, 20)
}

func multiTFConfluence(aligned, conflicting int) float64 {
	switch {
	case aligned >= 3:
		return 15
	case aligned >= 2:
		return 10
	case aligned >= 1:
		return 5
	case conflicting >= 2:
		return -5
	default:
		return 0
	}
}

func btcCorrelation(adj float64) float64 {
	switch {
	case adj > 1.1:
		return 10
	case adj > 1.0:
		return 5
	case adj < 0.9:
		return -5
	case adj < 1.0:
		return -2
	default:
		return 0
	}
}

func volatilityRegime(v model.VolatilityClass) float64 {
	switch v {
	case model.VolLow:
		return 10
	case model.VolHigh:
		return 2
	default:
		return 6
	}
}

func orderFlow(supports bool, alignedScore float64, quality model.FlowQuality, conflicts bool) float64 {
	switch {
	case supports && quality == model.FlowDeep:
		return 15
	case alignedScore > 30:
		return 12
	case supports:
		return 8
	case conflicts:
		return -5
	default:
		return 0
	}
}

func timeDecay(decay float64) float64 {
	switch {
	case decay >= 0.6 && decay <= 0.9:
		return 5
	case decay >= 0.4:
		return 3
	case decay >= 0.2:
		return 1
	default:
		return 0
	}
}

func regimeQuality(aligned bool, regime model.Regime) float64 {
	switch {
	case aligned && (regime == model.RegimeTrendUp || regime == model.RegimeTrendDown):
		return 5
	case regime == model.RegimeRange:
		return 2
	case regime == model.RegimeChop:
		return -3
	default:
		return 0
	}
}

// Score runs the additive breakdown and floors the raw total to 0
// before normalizing to [0,100], per the preserved Open Question
// decision.
func Score(in Input) model.Confidence {
	b := model.ConfidenceBreakdown{
		EdgeMagnitude:      edgeMagnitude(in.Edge),
		IndicatorAgreement: indicatorAgreement(in.MajorVotes, in.MinorVotes, in.Degenerate),
		MultiTFConfluence:  multiTFConfluence(in.ConfluenceAligned, in.ConfluenceConflict),
		BTCCorrelation:     btcCorrelation(in.CorrelationAdj),
		VolatilityRegime:   volatilityRegime(in.Volatility),
		OrderFlow:          orderFlow(in.FlowSupports, in.FlowAlignedScore, in.FlowQuality, in.FlowConflicts),
		TimeDecay:          timeDecay(in.Decay),
		RegimeQuality:      regimeQuality(in.RegimeAligned, in.Regime),
	}

	total := b.EdgeMagnitude + b.IndicatorAgreement + b.MultiTFConfluence +
		b.BTCCorrelation + b.VolatilityRegime + b.OrderFlow + b.TimeDecay + b.RegimeQuality

	if total < 0 {
		total = 0
	}
	score := util.Clamp(total, 0, 100)

	return model.Confidence{
		Score:     score,
		Tier:      tier(score),
		Breakdown: b,
	}
}

func tier(score float64) model.ConfidenceTier {
	switch {
	case score >= 80:
		return model.TierHigh
	case score >= 60:
		return model.TierMedium
	case score >= 40:
		return model.TierLow
	default:
		return model.TierVeryLow
	}
}
