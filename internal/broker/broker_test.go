package broker

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sidvijay2004/trading-agent/internal/fund"
	"github.com/sidvijay2004/trading-agent/internal/model"
)

func newAlpacaServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v2/stocks/AAPL/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"AAPL","latestTrade":{"p":187.4},"latestQuote":{"bp":187.3,"ap":187.5},"dailyBar":{"v":150000}}`))
	})
	mux.HandleFunc("/v2/stocks/NVDA/snapshot", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	mux.HandleFunc("/v2/positions/GME", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"symbol":"GME","qty":"5"}`))
	})
	mux.HandleFunc("/v2/positions/AAPL", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"code":40410000,"message":"position does not exist"}`))
	})
	mux.HandleFunc("/v2/account", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"cash":"2500.75","buying_power":"5001.50"}`))
	})
	mux.HandleFunc("/v2/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Errorf("decode order body: %v", err)
		}
		if body["symbol"] == "AMC" {
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"code":40310000,"message":"insufficient buying power"}`))
			return
		}
		if body["qty"] != "1" || body["type"] != "market" || body["time_in_force"] != "day" {
			t.Errorf("unexpected order body %v", body)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"id":"o-1","status":"accepted","filled_qty":"0","filled_avg_price":null,"submitted_at":"2025-03-03T15:04:05.123Z"}`))
	})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("APCA-API-KEY-ID") != "key" || r.Header.Get("APCA-API-SECRET-KEY") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		mux.ServeHTTP(w, r)
	}))
}

func TestAlpaca(t *testing.T) {
	srv := newAlpacaServer(t)
	defer srv.Close()
	a := NewAlpaca(srv.URL, srv.URL, "key", "secret", "")
	ctx := context.Background()

	q, err := a.Quote(ctx, "AAPL")
	if err != nil {
		t.Fatalf("quote: %v", err)
	}
	if q.Bid != 187.3 || q.Ask != 187.5 || q.Volume != 150000 || q.LastPrice != 187.4 {
		t.Errorf("unexpected snapshot %+v", q)
	}

	if _, err := a.Quote(ctx, "NVDA"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("expected ErrUnavailable, got %v", err)
	}

	qty, err := a.Position(ctx, "GME")
	if err != nil || qty.IntPart() != 5 {
		t.Errorf("position GME = %v, %v", qty, err)
	}
	qty, err = a.Position(ctx, "AAPL")
	if err != nil || !qty.IsZero() {
		t.Errorf("404 should be zero position, got %v, %v", qty, err)
	}

	acct, err := a.Account(ctx)
	if err != nil {
		t.Fatalf("account: %v", err)
	}
	if acct.Cash.String() != "2500.75" {
		t.Errorf("cash = %s", acct.Cash)
	}

	res, err := a.SubmitOrder(ctx, model.NewMarketOrder("AAPL", 1, model.SideBuy))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if res.ID != "o-1" || res.Status != "accepted" || res.FilledAvgPrice != nil {
		t.Errorf("unexpected result %+v", res)
	}

	_, err = a.SubmitOrder(ctx, model.NewMarketOrder("AMC", 1, model.SideBuy))
	if !errors.Is(err, ErrRejected) || !strings.Contains(err.Error(), "buying power") {
		t.Errorf("expected rejection, got %v", err)
	}
}

func TestAlpaca_BadCredentials(t *testing.T) {
	srv := newAlpacaServer(t)
	defer srv.Close()
	a := NewAlpaca(srv.URL, srv.URL, "wrong", "secret", "")
	if _, err := a.Position(context.Background(), "GME"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("auth failure should surface as unavailable, got %v", err)
	}
}

func TestAlpaca_CancelledContext(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		http.NotFound(w, r)
	}))
	defer srv.Close()
	a := NewAlpaca(srv.URL, srv.URL, "key", "secret", "")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	calls := map[string]func() error{
		"quote":    func() error { _, err := a.Quote(ctx, "AAPL"); return err },
		"position": func() error { _, err := a.Position(ctx, "AAPL"); return err },
		"account":  func() error { _, err := a.Account(ctx); return err },
		"order":    func() error { _, err := a.SubmitOrder(ctx, model.NewMarketOrder("AAPL", 1, model.SideBuy)); return err },
	}
	for name, call := range calls {
		if err := call(); !errors.Is(err, ErrUnavailable) {
			t.Errorf("%s: err = %v, want ErrUnavailable", name, err)
		}
	}
	if hits != 0 {
		t.Errorf("cancelled calls reached the server %d times", hits)
	}
}

func TestPaper(t *testing.T) {
	ledger, err := fund.NewLedger("", 500)
	if err != nil {
		t.Fatal(err)
	}
	quotes := StaticQuotes{
		"AAPL": {Bid: 199, Ask: 200, Volume: 1e6},
		"GME":  {Bid: 20, Ask: 21, Volume: 1e6},
	}
	p := NewPaper(quotes, ledger)
	ctx := context.Background()

	res, err := p.SubmitOrder(ctx, model.NewMarketOrder("AAPL", 2, model.SideBuy))
	if err != nil {
		t.Fatalf("buy: %v", err)
	}
	if res.Status != "filled" || res.FilledAvgPrice.String() != "200" {
		t.Errorf("unexpected fill %+v", res)
	}
	if pos, _ := p.Position(ctx, "AAPL"); pos.IntPart() != 2 {
		t.Errorf("position = %v", pos)
	}
	acct, _ := p.Account(ctx)
	if acct.Cash.String() != "100" {
		t.Errorf("cash = %s", acct.Cash)
	}

	if _, err := p.SubmitOrder(ctx, model.NewMarketOrder("AAPL", 1, model.SideBuy)); !errors.Is(err, ErrRejected) {
		t.Errorf("expected insufficient cash rejection, got %v", err)
	}
	if _, err := p.SubmitOrder(ctx, model.NewMarketOrder("GME", 1, model.SideSell)); !errors.Is(err, ErrRejected) {
		t.Errorf("expected oversell rejection, got %v", err)
	}

	res, err = p.SubmitOrder(ctx, model.NewMarketOrder("AAPL", 2, model.SideSell))
	if err != nil {
		t.Fatalf("sell: %v", err)
	}
	if res.FilledAvgPrice.String() != "199" {
		t.Errorf("sell should fill at bid, got %s", res.FilledAvgPrice)
	}

	if _, err := p.Quote(ctx, "TSLA"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("unknown ticker should be unavailable, got %v", err)
	}
}
