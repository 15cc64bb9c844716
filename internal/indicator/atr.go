package indicator

import (
	"math"

	"scanner-go/internal/model"
)

// CalculateATR computes the EMA-smoothed Average True Range.
func CalculateATR(candles []model.Candle, period int) float64 {
	if len(candles) < period+1 {
		return 0
	}

	trValues := make([]float64, len(candles))
	for i := 1; i < len(candles); i++ {
		high := candles[i].High
		low := candles[i].Low
		prevClose := candles[i-1].Close

		tr1 := high - low
		tr2 := math.Abs(high - prevClose)
		tr3 := math.Abs(low - prevClose)

		trValues[i] = math.Max(tr1, math.Max(tr2, tr3))
	}

	sumTR := 0.0
	for i := 1; i <= period; i++ {
		sumTR += trValues[i]
	}
	currentATR := sumTR / float64(period)

	for i := period + 1; i < len(candles); i++ {
		currentATR = ((currentATR * float64(period-1)) + trValues[i]) / float64(period)
	}

	return currentATR
}

// ATRPercent expresses ATR as a percentage of the last close.
func ATRPercent(atr, lastClose float64) float64 {
	if lastClose == 0 {
		return 0
	}
	return atr / lastClose * 100
}
