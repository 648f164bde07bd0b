package engine

import "github.com/shopspring/decimal"

// Sizer picks the share quantity of a buy.
type Sizer interface {
	Size(cash decimal.Decimal, price float64) int64
}

// FixedSizer always buys Qty shares.
type FixedSizer struct{ Qty int64 }

func (s FixedSizer) Size(decimal.Decimal, float64) int64 {
	if s.Qty < 1 {
		return 1
	}
	return s.Qty
}
