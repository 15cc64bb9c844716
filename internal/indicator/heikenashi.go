package indicator

import "scanner-go/internal/model"

// HeikenAshiCandle is one smoothed Heiken-Ashi bar.
type HeikenAshiCandle struct {
	Open, High, Low, Close float64
}

// CalculateHeikenAshi applies the standard recurrence:
//
//	haClose = (open+high+low+close)/4
//	haOpen  = (prevHaOpen+prevHaClose)/2  (first bar: (open+close)/2)
//	haHigh  = max(high, haOpen, haClose)
//	haLow   = min(low, haOpen, haClose)
func CalculateHeikenAshi(candles []model.Candle) []HeikenAshiCandle {
	if len(candles) == 0 {
		return nil
	}

	out := make([]HeikenAshiCandle, len(candles))
	for i, c := range candles {
		haClose := (c.Open + c.High + c.Low + c.Close) / 4
		var haOpen float64
		if i == 0 {
			haOpen = (c.Open + c.Close) / 2
		} else {
			haOpen = (out[i-1].Open + out[i-1].Close) / 2
		}
		haHigh := max3(c.High, haOpen, haClose)
		haLow := min3(c.Low, haOpen, haClose)

		out[i] = HeikenAshiCandle{Open: haOpen, High: haHigh, Low: haLow, Close: haClose}
	}
	return out
}

// HeikenAshiColorStreak returns the color of the last Heiken-Ashi
// candle ("green" or "red") and the length of the consecutive run of
// that color ending at the last candle.
func HeikenAshiColorStreak(candles []model.Candle) (color string, streak int) {
	ha := CalculateHeikenAshi(candles)
	if len(ha) == 0 {
		return "", 0
	}

	colorOf := func(c HeikenAshiCandle) string {
		if c.Close >= c.Open {
			return "green"
		}
		return "red"
	}

	color = colorOf(ha[len(ha)-1])
	streak = 1
	for i := len(ha) - 2; i >= 0; i-- {
		if colorOf(ha[i]) != color {
			break
		}
		streak++
	}
	return color, streak
}

func max3(a, b, c float64) float64 {
	m := a
	if b > m {
		m = b
	}
	if c > m {
		m = c
	}
	return m
}

func min3(a, b, c float64) float64 {
	m := a
	if b < m {
		m = b
	}
	if c < m {
		m = c
	}
	return m
}
