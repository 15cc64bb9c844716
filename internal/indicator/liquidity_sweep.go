package indicator

import "scanner-go/internal/model"

// DetectLiquiditySweep labels the last candle as a stop-hunt reversal
// when it wicks beyond the prior lookback window's high/low and
// closes back inside it: BUY_SIDE sweeps resting buy-stops above a
// prior high before reversing down, SELL_SIDE sweeps resting
// sell-stops below a prior low before reversing up.
func DetectLiquiditySweep(candles []model.Candle, lookback int) string {
	if len(candles) < lookback+1 {
		return ""
	}

	last := candles[len(candles)-1]
	window := candles[len(candles)-1-lookback : len(candles)-1]

	priorHigh, priorLow := window[0].High, window[0].Low
	for _, c := range window[1:] {
		if c.High > priorHigh {
			priorHigh = c.High
		}
		if c.Low < priorLow {
			priorLow = c.Low
		}
	}

	switch {
	case last.High > priorHigh && last.Close < priorHigh:
		return "BUY_SIDE"
	case last.Low < priorLow && last.Close > priorLow:
		return "SELL_SIDE"
	default:
		return ""
	}
}
