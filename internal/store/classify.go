package store

import (
	"github.com/google/uuid"

	"scanner-go/internal/model"
)

// classifyFeatures derives the join-key feature set spec.md §4.8
// requires, mirroring the zone/state discretization the probability
// scorer uses internally.
func classifyFeatures(ind model.IndicatorSnapshot) model.ClassifiedFeatures {
	return model.ClassifiedFeatures{
		VWAPPosition: vwapPositionZone(ind.Price, ind.VWAP),
		VWAPSlopeDir: vwapSlopeZone(ind.VWAPSlope),
		RSIZone:      rsiZone(ind.RSI),
		MACDState:    macdStateZone(ind.Hist, ind.HistDelta),
		HeikenColor:  ind.HeikenColor,
		OBZone:       obZone(ind.OrderbookImbalance),
		VolRegime:    "", // filled in by FromTick, which knows the volatility class
		Degenerate:   ind.Degenerate,
	}
}

func vwapPositionZone(price, vwap float64) string {
	if vwap == 0 {
		return "AT"
	}
	diff := (price - vwap) / vwap
	switch {
	case diff > 0.0005:
		return "ABOVE"
	case diff < -0.0005:
		return "BELOW"
	default:
		return "AT"
	}
}

func vwapSlopeZone(slope float64) string {
	switch {
	case slope > 0:
		return "UP"
	case slope < 0:
		return "DOWN"
	default:
		return "FLAT"
	}
}

func rsiZone(rsi float64) string {
	switch {
	case rsi <= 30:
		return "OVERSOLD"
	case rsi < 45:
		return "BEARISH"
	case rsi <= 55:
		return "NEUTRAL"
	case rsi < 70:
		return "BULLISH"
	default:
		return "OVERBOUGHT"
	}
}

// macdStateZone buckets the histogram into spec.md §4.8's literal
// five-value join key: a green (positive) histogram is EXPANDING when
// it's growing and FADING when it's shrinking back toward zero, same
// for a red (negative) histogram; a histogram sitting exactly at zero
// is its own bucket.
func macdStateZone(hist, histDelta float64) string {
	switch {
	case hist == 0:
		return "ZERO"
	case hist > 0 && histDelta > 0:
		return "EXPANDING_GREEN"
	case hist > 0:
		return "FADING_GREEN"
	case histDelta < 0:
		return "EXPANDING_RED"
	default:
		return "FADING_RED"
	}
}

func obZone(imbalance float64) string {
	switch {
	case imbalance > 1.5:
		return "STRONG_BID"
	case imbalance > 1.2:
		return "BID"
	case imbalance < 0.67:
		return "STRONG_ASK"
	case imbalance < 0.83:
		return "ASK"
	default:
		return "BALANCED"
	}
}

// FromTick builds the durable Signal row for an ENTER tick.
func FromTick(tick model.Tick) model.Signal {
	features := classifyFeatures(tick.Indicators)
	features.VolRegime = string(tick.Volatility)

	edge := tick.Edges.EdgeUp
	if tick.Rec.Side == model.SideDown {
		edge = tick.Edges.EdgeDown
	}

	return model.Signal{
		ID:       uuid.New().String(),
		MarketID: tick.MarketID,
		Question: tick.Question,
		Category: tick.Category,

		Side:     tick.Rec.Side,
		Strength: tick.Rec.Strength,
		Phase:    tick.Rec.Phase,
		Regime:   tick.RegimeClass,

		ModelUp:   tick.Probabilities.AdjustedUp,
		ModelDown: tick.Probabilities.AdjustedDown,
		MarketYes: tick.Prices.Yes,
		MarketNo:  tick.Prices.No,
		Edge:      edge,

		RSI:                tick.Indicators.RSI,
		OrderbookImbalance: tick.Indicators.OrderbookImbalance,
		SettlementLeftMin:  tick.SettlementMinutesLeft,
		Liquidity:          tick.Liquidity,

		Features: features,

		Confidence:       tick.Confidence.Score,
		ConfidenceTier:   tick.Confidence.Tier,
		KellyBetPct:      tick.Kelly.BetPct,
		KellySizingTier:  tick.Kelly.Tier,
		FlowAlignedScore: tick.OrderFlow.AlignedScore,
		FlowQuality:      tick.OrderFlow.Quality,

		CreatedAt: tick.Timestamp,
	}
}
