package model

// IndicatorSnapshot holds every derived numeric used by one poll.
type IndicatorSnapshot struct {
	// Price is the underlying reference price the snapshot was scored
	// against (last close for crypto, synthetic tick price otherwise).
	Price float64 `json:"price" bson:"price"`

	VWAP      float64 `json:"vwap" bson:"vwap"`
	VWAPSlope float64 `json:"vwap_slope" bson:"vwap_slope"`

	RSI      float64 `json:"rsi" bson:"rsi"`
	RSISlope float64 `json:"rsi_slope" bson:"rsi_slope"`

	MACD      float64 `json:"macd" bson:"macd"`
	Signal    float64 `json:"signal" bson:"signal"`
	Hist      float64 `json:"hist" bson:"hist"`
	HistDelta float64 `json:"hist_delta" bson:"hist_delta"`

	HeikenColor  string `json:"heiken_color" bson:"heiken_color"`
	HeikenStreak int    `json:"heiken_streak" bson:"heiken_streak"`

	ATR    float64 `json:"atr" bson:"atr"`
	ATRPct float64 `json:"atr_pct" bson:"atr_pct"`

	BollingerWidth float64 `json:"bollinger_width" bson:"bollinger_width"`
	Squeeze        bool    `json:"squeeze" bson:"squeeze"`

	VWAPCrossCount int `json:"vwap_cross_count" bson:"vwap_cross_count"`

	RecentVolume  float64 `json:"recent_volume" bson:"recent_volume"`
	AverageVolume float64 `json:"average_volume" bson:"average_volume"`

	FailedVWAPReclaim bool `json:"failed_vwap_reclaim" bson:"failed_vwap_reclaim"`

	OrderbookImbalance float64 `json:"orderbook_imbalance" bson:"orderbook_imbalance"`

	// Degenerate is true when RSI and MACD both carry no signal.
	Degenerate bool `json:"degenerate" bson:"degenerate"`

	// Supplemented informational fields (never consulted by C3/C4).
	CandlestickPattern string  `json:"candlestick_pattern,omitempty" bson:"candlestick_pattern,omitempty"`
	StochRSI           float64 `json:"stoch_rsi" bson:"stoch_rsi"`
	LiquiditySweep     string  `json:"liquidity_sweep,omitempty" bson:"liquidity_sweep,omitempty"`
	TrendState         string  `json:"trend_state,omitempty" bson:"trend_state,omitempty"`
}

// RSIDegenerate reports the literal ≥99 or ≤1 pin.
func RSIDegenerate(rsi float64) bool {
	return rsi >= 99 || rsi <= 1
}

// MACDDegenerate reports the literal triple-zero pin.
func MACDDegenerate(macd, signal, hist float64) bool {
	return macd == 0 && signal == 0 && hist == 0
}
