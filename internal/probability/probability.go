// Package probability implements the weighted-vote directional
// scorer (C3): it converts one market's indicator snapshot into a
// raw up/down probability, then applies a time-decay adjustment
// toward 0.5 as settlement recedes or approaches.
package probability

import (
	"math"

	"scanner-go/internal/model"
	"scanner-go/internal/util"
)

// Scored is the C3 output consulted by C4/C5.
type Scored struct {
	RawUp        float64
	AdjustedUp   float64
	AdjustedDown float64
	Degenerate   bool
	Decay        float64
}

// VoteCounts is how many of Score's directional indicators voted each
// way, independent of their weight — the raw agreement count C5's
// indicator-agreement sub-score needs.
type VoteCounts struct {
	Up   int
	Down int
}

func discretizeRSIZone(rsi float64) string {
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

func discretizeVWAPPosition(price, vwap float64) string {
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

func discretizeOBZone(imbalance float64) string {
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

// weightLookup resolves the weight for one feature/value pair from
// the current (possibly nil) weight table.
func weightLookup(table *model.WeightTable, category, feature, value string) float64 {
	return table.Get(category, model.WeightKey{Feature: feature, Value: value})
}

// Score runs the weighted-vote table from spec.md §4.3 over one
// market's indicator snapshot, returning rawUp and the degenerate
// flag. price is the current underlying/reference price (for crypto
// markets the last close; for non-crypto markets the synthetic
// tick price).
func Score(price float64, ind model.IndicatorSnapshot, category string, table *model.WeightTable) (rawUp float64, degenerate bool, votes VoteCounts) {
	up, down := 1.0, 1.0

	rsiDegenerate := model.RSIDegenerate(ind.RSI)
	macdDegenerate := model.MACDDegenerate(ind.MACD, ind.Signal, ind.Hist)
	degenerate = rsiDegenerate && macdDegenerate

	if !degenerate {
		if price > ind.VWAP {
			w := weightLookup(table, category, "vwap_position", "ABOVE")
			up += 2 * w
			votes.Up++
		} else if price < ind.VWAP {
			w := weightLookup(table, category, "vwap_position", "BELOW")
			down += 2 * w
			votes.Down++
		}

		if ind.VWAPSlope > 0 {
			w := weightLookup(table, category, "vwap_slope_dir", "UP")
			up += 2 * w
			votes.Up++
		} else if ind.VWAPSlope < 0 {
			w := weightLookup(table, category, "vwap_slope_dir", "DOWN")
			down += 2 * w
			votes.Down++
		}

		if ind.RSI > 55 && ind.RSISlope > 0 {
			w := weightLookup(table, category, "rsi_zone", discretizeRSIZone(ind.RSI))
			up += 2 * w
			votes.Up++
		} else if ind.RSI < 45 && ind.RSISlope < 0 {
			w := weightLookup(table, category, "rsi_zone", discretizeRSIZone(ind.RSI))
			down += 2 * w
			votes.Down++
		}

		if ind.Hist > 0 && ind.HistDelta > 0 {
			w := weightLookup(table, category, "macd_state", "EXPANDING_GREEN")
			up += 2 * w
			votes.Up++
		} else if ind.Hist < 0 && ind.HistDelta < 0 {
			w := weightLookup(table, category, "macd_state", "EXPANDING_RED")
			down += 2 * w
			votes.Down++
		}

		// MACD sign and Heiken-Ashi streak boost both sides' weight
		// equally (participation, not direction) so they never move
		// the vote tally.
		if ind.MACD > 0 {
			w := weightLookup(table, category, "macd_state", "POSITIVE")
			up += 1 * w
			down += 1 * w
		} else if ind.MACD < 0 {
			w := weightLookup(table, category, "macd_state", "NEGATIVE")
			up += 1 * w
			down += 1 * w
		}

		if ind.HeikenColor == "green" && ind.HeikenStreak >= 2 {
			w := weightLookup(table, category, "heiken_color", "green")
			up += 1 * w
			down += 1 * w
		} else if ind.HeikenColor == "red" && ind.HeikenStreak >= 2 {
			w := weightLookup(table, category, "heiken_color", "red")
			up += 1 * w
			down += 1 * w
		}

		if ind.FailedVWAPReclaim {
			down += 3
			votes.Down++
		}
	}

	// Orderbook imbalance always participates, even in the degenerate
	// path, capped at +/-1 per level.
	obZone := discretizeOBZone(ind.OrderbookImbalance)
	obWeight := weightLookup(table, category, "ob_zone", obZone)
	switch {
	case ind.OrderbookImbalance > 1.5:
		up += clampContribution(2*obWeight, degenerate)
		votes.Up++
	case ind.OrderbookImbalance > 1.2:
		up += clampContribution(1*obWeight, degenerate)
		votes.Up++
	case ind.OrderbookImbalance < 0.67:
		down += clampContribution(2*obWeight, degenerate)
		votes.Down++
	case ind.OrderbookImbalance < 0.83:
		down += clampContribution(1*obWeight, degenerate)
		votes.Down++
	}

	rawUp = up / (up + down)
	return rawUp, degenerate, votes
}

// clampContribution caps the orderbook-imbalance-only contribution at
// +/-1 per level in the degenerate path; outside the degenerate path
// the weighted contribution is used unmodified.
func clampContribution(weighted float64, degenerate bool) float64 {
	if !degenerate {
		return weighted
	}
	if weighted > 1 {
		return 1
	}
	if weighted < -1 {
		return -1
	}
	return weighted
}

// Horizon returns the indicator horizon H in minutes for a market's
// category, per spec.md §4.3.
func Horizon(category string, shortDated bool, horizonShortCrypto, horizonLongCrypto, horizonNonCrypto int) int {
	if category == "crypto" {
		if shortDated {
			return horizonShortCrypto
		}
		return horizonLongCrypto
	}
	return horizonNonCrypto
}

// ApplyTimeDecay transforms rawUp into the adjusted probabilities.
func ApplyTimeDecay(rawUp float64, remainingMinutes float64, horizonMinutes int) Scored {
	h := float64(horizonMinutes)

	var decay float64
	switch {
	case h <= 0:
		decay = 0
	case remainingMinutes <= h:
		decay = remainingMinutes / h
	default:
		decay = math.Sqrt(h / remainingMinutes)
	}

	adjustedUp := util.Clamp(0.5+(rawUp-0.5)*decay, 0, 1)
	return Scored{
		RawUp:        rawUp,
		AdjustedUp:   adjustedUp,
		AdjustedDown: 1 - adjustedUp,
		Decay:        decay,
	}
}
