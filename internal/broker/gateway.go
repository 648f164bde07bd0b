package broker

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

var (
	// ErrUnavailable marks data the gateway could not supply.
	ErrUnavailable = errors.New("market data unavailable")
	// ErrRejected marks an order the brokerage refused.
	ErrRejected = errors.New("order rejected")
)

// QuoteSource supplies market snapshots.
type QuoteSource interface {
	Quote(ctx context.Context, ticker string) (*model.MarketSnapshot, error)
}

// Gateway is the market data and order-routing surface used by the engine.
type Gateway interface {
	QuoteSource
	// Position returns held shares; no position is zero with a nil error.
	Position(ctx context.Context, ticker string) (decimal.Decimal, error)
	Account(ctx context.Context) (*model.Account, error)
	SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error)
}
