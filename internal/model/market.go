package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// MarketSnapshot is a point-in-time quote. Ask >= Bid is assumed, not checked.
type MarketSnapshot struct {
	Ticker    string    `json:"ticker"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	LastPrice float64   `json:"last_price"`
	Volume    float64   `json:"volume"`
	FetchedAt time.Time `json:"fetched_at"`
}

// Mid is the bid/ask midpoint.
func (m *MarketSnapshot) Mid() float64 { return (m.Bid + m.Ask) / 2 }

// Spread is ask minus bid.
func (m *MarketSnapshot) Spread() float64 { return m.Ask - m.Bid }

// Price is the reference price used to size and affordability-check a buy:
// the last trade when known, otherwise the ask.
func (m *MarketSnapshot) Price() float64 {
	if m.LastPrice > 0 {
		return m.LastPrice
	}
	return m.Ask
}

// Account is the brokerage cash view.
type Account struct {
	Cash        decimal.Decimal `json:"cash"`
	BuyingPower decimal.Decimal `json:"buying_power"`
}
