package model

import "time"

type PositionStatus string

const (
	PositionOpen   PositionStatus = "open"
	PositionClosed PositionStatus = "closed"
)

// VirtualPosition describes a simulated, non-executing position.
// internal/portfolio tracks its positions with its own
// portfolio.Position type, not this one.
type VirtualPosition struct {
	MarketID     string         `json:"market_id" bson:"market_id"`
	Side         Side           `json:"side" bson:"side"`
	EntryPrice   float64        `json:"entry_price" bson:"entry_price"`
	CurrentPrice float64        `json:"current_price" bson:"current_price"`
	BetFraction  float64        `json:"bet_fraction" bson:"bet_fraction"`
	Confidence   float64        `json:"confidence" bson:"confidence"`
	EdgeAtEntry  float64        `json:"edge_at_entry" bson:"edge_at_entry"`
	Status       PositionStatus `json:"status" bson:"status"`
	PnLPct       float64        `json:"pnl_pct" bson:"pnl_pct"`
	CloseReason  string         `json:"close_reason,omitempty" bson:"close_reason,omitempty"`
	OpenedAt     time.Time      `json:"opened_at" bson:"opened_at"`
	ClosedAt     *time.Time     `json:"closed_at,omitempty" bson:"closed_at,omitempty"`
}
