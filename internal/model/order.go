package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Side is the direction of an order.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)

// OrderRequest is a market order instruction built by the engine.
type OrderRequest struct {
	Ticker      string `json:"symbol"`
	Quantity    int64  `json:"qty"`
	Side        Side   `json:"side"`
	Type        string `json:"type"`
	TimeInForce string `json:"time_in_force"`
}

// NewMarketOrder returns a day market order.
func NewMarketOrder(ticker string, qty int64, side Side) OrderRequest {
	return OrderRequest{Ticker: ticker, Quantity: qty, Side: side, Type: "market", TimeInForce: "day"}
}

// OrderResult is what the brokerage reports back for a submitted order.
type OrderResult struct {
	ID             string           `json:"id"`
	Status         string           `json:"status"`
	FilledQty      decimal.Decimal  `json:"filled_qty"`
	FilledAvgPrice *decimal.Decimal `json:"filled_avg_price,omitempty"`
	SubmittedAt    time.Time        `json:"submitted_at"`
}
