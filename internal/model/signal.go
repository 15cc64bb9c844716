package model

import "time"

type Outcome string

const (
	OutcomeWin  Outcome = "WIN"
	OutcomeLoss Outcome = "LOSS"
	OutcomeVoid Outcome = "VOID"
)

// ClassifiedFeatures is the join key set the weight learner (C9)
// correlates against settled outcomes.
type ClassifiedFeatures struct {
	VWAPPosition string `json:"vwap_position" bson:"vwap_position"`   // ABOVE, BELOW, AT
	VWAPSlopeDir string `json:"vwap_slope_dir" bson:"vwap_slope_dir"` // UP, DOWN, FLAT
	RSIZone      string `json:"rsi_zone" bson:"rsi_zone"`
	MACDState    string `json:"macd_state" bson:"macd_state"`
	HeikenColor  string `json:"heiken_color" bson:"heiken_color"`
	OBZone       string `json:"ob_zone" bson:"ob_zone"`
	VolRegime    string `json:"vol_regime" bson:"vol_regime"`
	Degenerate   bool   `json:"degenerate" bson:"degenerate"`
}

// Signal is a Tick whose recommendation was ENTER, persisted durably
// and later annotated with a settlement outcome.
type Signal struct {
	ID       string `json:"id" bson:"id"`
	MarketID string `json:"market_id" bson:"market_id"`
	Question string `json:"question" bson:"question"`
	Category string `json:"category" bson:"category"`

	Side     Side     `json:"side" bson:"side"`
	Strength Strength `json:"strength" bson:"strength"`
	Phase    Phase    `json:"phase" bson:"phase"`
	Regime   Regime   `json:"regime" bson:"regime"`

	ModelUp   float64 `json:"model_up" bson:"model_up"`
	ModelDown float64 `json:"model_down" bson:"model_down"`
	MarketYes float64 `json:"market_yes" bson:"market_yes"`
	MarketNo  float64 `json:"market_no" bson:"market_no"`
	Edge      float64 `json:"edge" bson:"edge"`

	RSI                float64 `json:"rsi" bson:"rsi"`
	OrderbookImbalance float64 `json:"orderbook_imbalance" bson:"orderbook_imbalance"`
	SettlementLeftMin  float64 `json:"settlement_left_min" bson:"settlement_left_min"`
	Liquidity          float64 `json:"liquidity" bson:"liquidity"`

	Features ClassifiedFeatures `json:"features" bson:"features"`

	Confidence       float64        `json:"confidence" bson:"confidence"`
	ConfidenceTier   ConfidenceTier `json:"confidence_tier" bson:"confidence_tier"`
	KellyBetPct      float64        `json:"kelly_bet_pct" bson:"kelly_bet_pct"`
	KellySizingTier  ConfidenceTier `json:"kelly_sizing_tier" bson:"kelly_sizing_tier"`
	FlowAlignedScore float64        `json:"flow_aligned_score" bson:"flow_aligned_score"`
	FlowQuality      FlowQuality    `json:"flow_quality" bson:"flow_quality"`

	Outcome         Outcome    `json:"outcome,omitempty" bson:"outcome,omitempty"`
	OutcomePriceYes float64    `json:"outcome_price_yes,omitempty" bson:"outcome_price_yes,omitempty"`
	OutcomePriceNo  float64    `json:"outcome_price_no,omitempty" bson:"outcome_price_no,omitempty"`
	SettledAt       *time.Time `json:"settled_at,omitempty" bson:"settled_at,omitempty"`
	PnLPct          float64    `json:"pnl_pct,omitempty" bson:"pnl_pct,omitempty"`

	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}

// IsSettled reports whether the outcome transitioned away from null.
func (s *Signal) IsSettled() bool {
	return s.Outcome != ""
}
