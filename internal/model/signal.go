package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Action is the discrete output of the decision policy.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// Record kinds stored alongside each other in the decision log.
const (
	KindDecision  = "decision"
	KindExecution = "execution"
)

// Signal is the aggregated sentiment pair driving one decision. A nil field
// means the value was missing upstream.
type Signal struct {
	Ticker         string   `json:"ticker"`
	SentimentScore *float64 `json:"sentiment_score"`
	ExpectedImpact *float64 `json:"expected_impact"`
}

// TradeDecision is the append-only record of one ticker evaluation.
type TradeDecision struct {
	CycleID        string    `json:"cycle_id" bson:"cycle_id"`
	Ticker         string    `json:"stock" bson:"stock"`
	Action         Action    `json:"decision" bson:"decision"`
	SentimentScore *float64  `json:"sentiment_score" bson:"sentiment_score"`
	ExpectedImpact *float64  `json:"expected_impact" bson:"expected_impact"`
	Reason         string    `json:"reason" bson:"reason"`
	DecidedAt      time.Time `json:"timestamp" bson:"timestamp"`
}

// ExecutionRecord is appended after an order was accepted by the brokerage.
type ExecutionRecord struct {
	CycleID        string           `json:"cycle_id" bson:"cycle_id"`
	Ticker         string           `json:"stock" bson:"stock"`
	Action         Action           `json:"decision" bson:"decision"`
	Quantity       int64            `json:"quantity" bson:"quantity"`
	OrderID        string           `json:"order_id" bson:"order_id"`
	Status         string           `json:"status" bson:"status"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price" bson:"filled_avg_price"`
	SubmittedAt    time.Time        `json:"submitted_at" bson:"submitted_at"`
	RecordedAt     time.Time        `json:"timestamp" bson:"timestamp"`
}
