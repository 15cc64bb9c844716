package indicator

// VWAPSlope computes (vwap[now] - vwap[now-N]) / N over the session
// VWAP series. Returns 0 if there aren't enough points.
func VWAPSlope(vwap []float64, lookback int) float64 {
	if lookback <= 0 || len(vwap) <= lookback {
		return 0
	}
	now := len(vwap) - 1
	return (vwap[now] - vwap[now-lookback]) / float64(lookback)
}

// VWAPCrossCount counts sign changes of (close - vwap) across the
// last window bars.
func VWAPCrossCount(closes, vwap []float64, window int) int {
	n := len(closes)
	if n != len(vwap) || n < 2 {
		return 0
	}
	start := n - window
	if start < 1 {
		start = 1
	}

	count := 0
	prevSign := sign(closes[start-1] - vwap[start-1])
	for i := start; i < n; i++ {
		s := sign(closes[i] - vwap[i])
		if s != 0 && prevSign != 0 && s != prevSign {
			count++
		}
		if s != 0 {
			prevSign = s
		}
	}
	return count
}

// FailedVWAPReclaim reports: last close below vwap AND prior close
// above prior vwap.
func FailedVWAPReclaim(closes, vwap []float64) bool {
	n := len(closes)
	if n != len(vwap) || n < 2 {
		return false
	}
	lastBelow := closes[n-1] < vwap[n-1]
	priorAbove := closes[n-2] > vwap[n-2]
	return lastBelow && priorAbove
}

func sign(v float64) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	default:
		return 0
	}
}
