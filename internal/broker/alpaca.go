package broker

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/alpaca"
	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/sidvijay2004/trading-agent/internal/httputil"
	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Alpaca routes orders through the Alpaca trading API and prices them from the
// market-data API. The SDK calls take no context; ctx is checked before each call.
type Alpaca struct {
	Trading *alpaca.Client
	Data    *marketdata.Client
	Now     func() time.Time
}

// NewAlpaca creates a gateway with optional proxy support.
func NewAlpaca(tradingURL, dataURL, key, secret, proxyURL string) *Alpaca {
	hc := httputil.NewClient(proxyURL).HTTP
	return &Alpaca{
		Trading: alpaca.NewClient(alpaca.ClientOpts{
			APIKey:     key,
			APISecret:  secret,
			BaseURL:    strings.TrimRight(tradingURL, "/"),
			HTTPClient: hc,
		}),
		Data: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:     key,
			APISecret:  secret,
			BaseURL:    strings.TrimRight(dataURL, "/"),
			HTTPClient: hc,
		}),
		Now: time.Now,
	}
}

// Quote fetches the latest quote, trade and daily volume for ticker.
func (a *Alpaca) Quote(ctx context.Context, ticker string) (*model.MarketSnapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	snap, err := a.Data.GetSnapshot(ticker, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, fmt.Errorf("%w: snapshot %s: %v", ErrUnavailable, ticker, err)
	}
	if snap == nil || snap.LatestQuote == nil {
		return nil, fmt.Errorf("%w: no quote for %s", ErrUnavailable, ticker)
	}

	out := &model.MarketSnapshot{
		Ticker:    ticker,
		Bid:       snap.LatestQuote.BidPrice,
		Ask:       snap.LatestQuote.AskPrice,
		FetchedAt: a.Now().UTC(),
	}
	if snap.LatestTrade != nil {
		out.LastPrice = snap.LatestTrade.Price
	}
	if snap.DailyBar != nil {
		out.Volume = float64(snap.DailyBar.Volume)
	}
	return out, nil
}

// Position returns the held quantity; a 404 means no position.
func (a *Alpaca) Position(ctx context.Context, ticker string) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	pos, err := a.Trading.GetPosition(ticker)
	var apiErr *alpaca.APIError
	if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound {
		return decimal.Zero, nil
	}
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: position %s: %v", ErrUnavailable, ticker, err)
	}
	return pos.Qty, nil
}

// Account returns cash and buying power.
func (a *Alpaca) Account(ctx context.Context) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	acct, err := a.Trading.GetAccount()
	if err != nil {
		return nil, fmt.Errorf("%w: account: %v", ErrUnavailable, err)
	}
	return &model.Account{Cash: acct.Cash, BuyingPower: acct.BuyingPower}, nil
}

// SubmitOrder places a market order.
func (a *Alpaca) SubmitOrder(ctx context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: submit order: %w", ErrUnavailable, err)
	}
	qty := decimal.NewFromInt(req.Quantity)
	side := alpaca.Buy
	if req.Side == model.SideSell {
		side = alpaca.Sell
	}
	order, err := a.Trading.PlaceOrder(alpaca.PlaceOrderRequest{
		Symbol:      req.Ticker,
		Qty:         &qty,
		Side:        side,
		Type:        alpaca.OrderType(req.Type),
		TimeInForce: alpaca.TimeInForce(req.TimeInForce),
	})
	if err != nil {
		var apiErr *alpaca.APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode >= 400 && apiErr.StatusCode < 500 {
			return nil, fmt.Errorf("%w: %s %d %s: %v", ErrRejected, req.Side, req.Quantity, req.Ticker, err)
		}
		return nil, fmt.Errorf("%w: submit order: %w", ErrUnavailable, err)
	}

	res := &model.OrderResult{
		ID:             order.ID,
		Status:         order.Status,
		FilledQty:      order.FilledQty,
		FilledAvgPrice: order.FilledAvgPrice,
		SubmittedAt:    order.SubmittedAt,
	}
	if res.Status == "rejected" {
		return res, fmt.Errorf("%w: %s %d %s", ErrRejected, req.Side, req.Quantity, req.Ticker)
	}
	return res, nil
}
