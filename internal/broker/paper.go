package broker

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sidvijay2004/trading-agent/internal/fund"
	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Paper is a self-contained gateway: quotes come from an upstream source and
// fills are booked in a local ledger at the touch (ask for buys, bid for sells).
type Paper struct {
	Quotes QuoteSource
	Ledger *fund.Ledger
	Now    func() time.Time

	mu     sync.Mutex
	nextID int64
}

// NewPaper wraps quotes with ledger.
func NewPaper(quotes QuoteSource, ledger *fund.Ledger) *Paper {
	return &Paper{Quotes: quotes, Ledger: ledger, Now: time.Now}
}

func (p *Paper) Quote(ctx context.Context, ticker string) (*model.MarketSnapshot, error) {
	if p.Quotes == nil {
		return nil, fmt.Errorf("%w: no quote source", ErrUnavailable)
	}
	return p.Quotes.Quote(ctx, ticker)
}

func (p *Paper) Position(_ context.Context, ticker string) (decimal.Decimal, error) {
	return decimal.NewFromInt(p.Ledger.Position(ticker)), nil
}

func (p *Paper) Account(context.Context) (*model.Account, error) {
	cash := decimal.NewFromFloat(p.Ledger.Cash())
	return &model.Account{Cash: cash, BuyingPower: cash}, nil
}

func (p *Paper) SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	snap, err := p.Quote(ctx, req.Ticker)
	if err != nil {
		return nil, fmt.Errorf("price order: %w", err)
	}
	price := snap.Ask
	if req.Side == model.SideSell {
		price = snap.Bid
	}
	if price <= 0 {
		price = snap.Price()
	}

	if err := p.Ledger.Fill(req.Ticker, req.Side, req.Quantity, price); err != nil {
		if errors.Is(err, fund.ErrInsufficientCash) || errors.Is(err, fund.ErrInsufficientPosition) {
			return nil, fmt.Errorf("%w: %v", ErrRejected, err)
		}
		return nil, fmt.Errorf("book fill: %w", err)
	}

	p.mu.Lock()
	p.nextID++
	id := "paper-" + strconv.FormatInt(p.nextID, 10)
	p.mu.Unlock()

	avg := decimal.NewFromFloat(price)
	return &model.OrderResult{
		ID:             id,
		Status:         "filled",
		FilledQty:      decimal.NewFromInt(req.Quantity),
		FilledAvgPrice: &avg,
		SubmittedAt:    p.Now().UTC(),
	}, nil
}

// StaticQuotes serves fixed snapshots; unknown tickers are unavailable.
type StaticQuotes map[string]model.MarketSnapshot

func (s StaticQuotes) Quote(_ context.Context, ticker string) (*model.MarketSnapshot, error) {
	q, ok := s[ticker]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, ticker)
	}
	q.Ticker = ticker
	return &q, nil
}
