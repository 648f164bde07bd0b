package model

import "time"

// LedgerState is the persisted state of the local paper ledger.
type LedgerState struct {
	StartingCash float64             `json:"starting_cash"`
	Cash         float64             `json:"cash"`
	RealizedPnL  float64             `json:"realized_pnl"`
	Positions    map[string]LotState `json:"positions"`
	Orders       int64               `json:"orders"`
	UpdatedAt    time.Time           `json:"updated_at"`
}

// LotState is one held position in the paper ledger.
type LotState struct {
	Qty     int64   `json:"qty"`
	AvgCost float64 `json:"avg_cost"`
}
