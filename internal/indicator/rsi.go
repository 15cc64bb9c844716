package indicator

import "math"

// CalculateRSI computes the Relative Strength Index with Wilder's
// smoothing. Returns an empty slice until at least period+1 closes
// exist.
func CalculateRSI(closes []float64, period int) []float64 {
	if len(closes) < period+1 {
		return []float64{}
	}

	const epsilon = 1e-10 // threshold for near-zero average loss

	rsi := make([]float64, len(closes))
	gains := make([]float64, len(closes)-1)
	losses := make([]float64, len(closes)-1)

	for i := 1; i < len(closes); i++ {
		change := closes[i] - closes[i-1]
		if change > 0 {
			gains[i-1] = change
		} else {
			losses[i-1] = math.Abs(change)
		}
	}

	var avgGain, avgLoss float64
	for i := 0; i < period; i++ {
		avgGain += gains[i]
		avgLoss += losses[i]
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	if avgLoss < epsilon {
		rsi[period] = 100
	} else {
		rs := avgGain / avgLoss
		rsi[period] = 100 - (100 / (1 + rs))
	}
	rsi[period] = math.Max(0, math.Min(100, rsi[period]))

	for i := period; i < len(gains); i++ {
		avgGain = (avgGain*float64(period-1) + gains[i]) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + losses[i]) / float64(period)

		if avgLoss < epsilon {
			rsi[i+1] = 100
		} else {
			rs := avgGain / avgLoss
			rsi[i+1] = 100 - (100 / (1 + rs))
		}
		rsi[i+1] = math.Max(0, math.Min(100, rsi[i+1]))
	}

	return rsi
}

// GetLastRSI returns the most recent RSI value, or 0 if undefined.
func GetLastRSI(closes []float64, period int) float64 {
	rsi := CalculateRSI(closes, period)
	if len(rsi) == 0 {
		return 0
	}
	return rsi[len(rsi)-1]
}

// RSISlope returns the simple difference over the last two RSI
// values, 0 if undefined.
func RSISlope(closes []float64, period int) float64 {
	rsi := CalculateRSI(closes, period)
	if len(rsi) < 2 {
		return 0
	}
	return rsi[len(rsi)-1] - rsi[len(rsi)-2]
}
