package engine

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sidvijay2004/trading-agent/internal/broker"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/store"
	"github.com/sidvijay2004/trading-agent/internal/strategy"
)

// fakeGateway serves canned market state and records submitted orders.
type fakeGateway struct {
	quotes    map[string]model.MarketSnapshot
	positions map[string][]int64 // successive Position answers; last one repeats
	posErr    map[string]error
	cash      decimal.Decimal
	acctErr   error
	orderErr  error
	orders    []model.OrderRequest
	calls     map[string]int
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		quotes:    map[string]model.MarketSnapshot{},
		positions: map[string][]int64{},
		posErr:    map[string]error{},
		cash:      decimal.NewFromInt(10_000),
		calls:     map[string]int{},
	}
}

func (g *fakeGateway) Quote(_ context.Context, t string) (*model.MarketSnapshot, error) {
	q, ok := g.quotes[t]
	if !ok {
		return nil, broker.ErrUnavailable
	}
	q.Ticker = t
	return &q, nil
}

func (g *fakeGateway) Position(_ context.Context, t string) (decimal.Decimal, error) {
	if err := g.posErr[t]; err != nil {
		return decimal.Zero, err
	}
	seq := g.positions[t]
	i := g.calls[t]
	g.calls[t]++
	if len(seq) == 0 {
		return decimal.Zero, nil
	}
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return decimal.NewFromInt(seq[i]), nil
}

func (g *fakeGateway) Account(context.Context) (*model.Account, error) {
	if g.acctErr != nil {
		return nil, g.acctErr
	}
	return &model.Account{Cash: g.cash, BuyingPower: g.cash}, nil
}

func (g *fakeGateway) SubmitOrder(_ context.Context, req model.OrderRequest) (*model.OrderResult, error) {
	g.orders = append(g.orders, req)
	if g.orderErr != nil {
		return nil, g.orderErr
	}
	price := decimal.NewFromFloat(g.quotes[req.Ticker].Ask)
	return &model.OrderResult{ID: "ord-" + req.Ticker, Status: "filled", FilledQty: decimal.NewFromInt(req.Quantity), FilledAvgPrice: &price, SubmittedAt: time.Now()}, nil
}

type countingRecorder struct {
	decisions map[model.Action]int
	orders    map[string]int
	cycles    int
}

func newCountingRecorder() *countingRecorder {
	return &countingRecorder{decisions: map[model.Action]int{}, orders: map[string]int{}}
}

func (r *countingRecorder) Decision(a model.Action) { r.decisions[a]++ }

func (r *countingRecorder) Order(side model.Side, ok bool) {
	result := "ok"
	if !ok {
		result = "failed"
	}
	r.orders[string(side)+"/"+result]++
}

func (r *countingRecorder) Cycle(time.Duration) { r.cycles++ }

func seed(t *testing.T, st *store.Memory, coll, ticker string, score, impact float64, at time.Time) {
	t.Helper()
	err := st.InsertObservation(context.Background(), coll, &model.SentimentObservation{
		Ticker: ticker, Source: model.SourceNews, ObservedAt: at,
		Sentiment: model.Sentiment{Compound: score}, ExpectedImpact: impact,
		ExternalID: ticker + at.String(),
	})
	if err != nil {
		t.Fatal(err)
	}
}

func newEngine(st store.Store, gw broker.Gateway, log zerolog.Logger) *Engine {
	return &Engine{
		Aggregator: &Aggregator{Store: st, Collections: model.Collections(), Limit: 5, Mode: AggregateLatest, Log: log},
		Store:      st,
		Gateway:    gw,
		Thresholds: strategy.DefaultThresholds(),
		Sizer:      FixedSizer{Qty: 1},
		Log:        log,
		NewID:      func() string { return "cycle-1" },
	}
}

func decisionFor(t *testing.T, ds []model.TradeDecision, ticker string) model.TradeDecision {
	t.Helper()
	var found []model.TradeDecision
	for _, d := range ds {
		if d.Ticker == ticker {
			found = append(found, d)
		}
	}
	if len(found) != 1 {
		t.Fatalf("expected exactly one decision for %s, got %d", ticker, len(found))
	}
	return found[0]
}

func TestRunCycle_Scenarios(t *testing.T) {
	st := store.NewMemory()
	now := time.Now().UTC()
	seed(t, st, model.CollectionNews, "AAPL", 0.8, 3, now)
	seed(t, st, model.CollectionNews, "GME", 0.2, 3, now)
	seed(t, st, model.CollectionSocialPost, "TSLA", 0.5, 1, now)
	seed(t, st, model.CollectionMicroblog, "NVDA", 0.9, 5, now)

	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 187.3, Ask: 187.5, LastPrice: 187.4, Volume: 150000}
	gw.quotes["GME"] = model.MarketSnapshot{Bid: 20, Ask: 21.5, Volume: 250000}
	gw.quotes["TSLA"] = model.MarketSnapshot{Bid: 250, Ask: 250.3, Volume: 500000}
	gw.positions["GME"] = []int64{5}
	gw.positions["TSLA"] = []int64{2}

	rep, err := newEngine(st, gw, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatalf("RunCycle: %v", err)
	}

	ds := st.Decisions()
	if len(ds) != 4 {
		t.Fatalf("expected 4 decisions, got %d", len(ds))
	}

	if d := decisionFor(t, ds, "AAPL"); d.Action != model.ActionBuy {
		t.Errorf("AAPL: got %s", d.Action)
	}
	if d := decisionFor(t, ds, "GME"); d.Action != model.ActionSell {
		t.Errorf("GME: got %s", d.Action)
	}
	if d := decisionFor(t, ds, "TSLA"); d.Action != model.ActionHold {
		t.Errorf("TSLA: got %s", d.Action)
	}
	nv := decisionFor(t, ds, "NVDA")
	if nv.Action != model.ActionHold {
		t.Errorf("NVDA: got %s", nv.Action)
	}
	if nv.SentimentScore == nil || *nv.SentimentScore != 0.9 || nv.ExpectedImpact == nil || *nv.ExpectedImpact != 5 {
		t.Errorf("NVDA decision should preserve sentiment inputs, got %+v", nv)
	}

	if len(gw.orders) != 2 {
		t.Fatalf("expected 2 orders, got %+v", gw.orders)
	}
	for _, o := range gw.orders {
		switch o.Ticker {
		case "AAPL":
			if o.Side != model.SideBuy || o.Quantity != 1 {
				t.Errorf("AAPL order = %+v", o)
			}
		case "GME":
			if o.Side != model.SideSell || o.Quantity != 5 {
				t.Errorf("GME order = %+v", o)
			}
		default:
			t.Errorf("unexpected order %+v", o)
		}
		if o.Type != "market" || o.TimeInForce != "day" {
			t.Errorf("order should be a day market order: %+v", o)
		}
	}

	if ex := st.Executions(); len(ex) != 2 {
		t.Errorf("expected 2 execution records, got %d", len(ex))
	}
	if rep.CycleID != "cycle-1" || rep.Orders != 2 || len(rep.Outcomes) != 4 {
		t.Errorf("unexpected report %+v", rep)
	}
	for _, d := range ds {
		if d.CycleID != "cycle-1" {
			t.Errorf("decision missing cycle id: %+v", d)
		}
	}
}

func TestRunCycle_RecordsMetrics(t *testing.T) {
	st := store.NewMemory()
	now := time.Now().UTC()
	seed(t, st, model.CollectionNews, "AAPL", 0.8, 3, now)
	seed(t, st, model.CollectionNews, "GME", 0.2, 3, now.Add(time.Second))
	seed(t, st, model.CollectionNews, "TSLA", 0.5, 1, now.Add(2*time.Second))

	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 187.3, Ask: 187.5, Volume: 150000}
	gw.quotes["GME"] = model.MarketSnapshot{Bid: 20, Ask: 21.5, Volume: 250000}
	gw.positions["GME"] = []int64{5}

	tests := []struct {
		name     string
		orderErr error
		orders   map[string]int
	}{
		{"filled", nil, map[string]int{"buy/ok": 1, "sell/ok": 1}},
		{"rejected", broker.ErrRejected, map[string]int{"buy/failed": 1, "sell/failed": 1}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gw.orderErr = tt.orderErr
			rec := newCountingRecorder()
			eng := newEngine(st, gw, zerolog.Nop())
			eng.Metrics = rec
			if _, err := eng.RunCycle(context.Background()); err != nil {
				t.Fatal(err)
			}
			if rec.cycles != 1 {
				t.Errorf("cycles = %d, want 1", rec.cycles)
			}
			want := map[model.Action]int{model.ActionBuy: 1, model.ActionSell: 1, model.ActionHold: 1}
			for a, n := range want {
				if rec.decisions[a] != n {
					t.Errorf("%s decisions = %d, want %d", a, rec.decisions[a], n)
				}
			}
			if len(rec.orders) != len(tt.orders) {
				t.Errorf("orders = %v, want %v", rec.orders, tt.orders)
			}
			for k, n := range tt.orders {
				if rec.orders[k] != n {
					t.Errorf("%s orders = %d, want %d", k, rec.orders[k], n)
				}
			}
		})
	}
}

func TestRunCycle_SellWithNothingHeldAtExecution(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, model.CollectionNews, "GME", 0.2, 3, time.Now())

	gw := newFakeGateway()
	gw.quotes["GME"] = model.MarketSnapshot{Bid: 20, Ask: 21.5, Volume: 250000}
	// Position is 5 when the policy looks, 0 by the time the order is built.
	gw.positions["GME"] = []int64{5, 0}

	var buf bytes.Buffer
	if _, err := newEngine(st, gw, zerolog.New(&buf)).RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}

	d := decisionFor(t, st.Decisions(), "GME")
	if d.Action != model.ActionSell {
		t.Errorf("decision should keep the intended sell, got %s", d.Action)
	}
	if len(gw.orders) != 0 {
		t.Errorf("no order expected, got %+v", gw.orders)
	}
	if len(st.Executions()) != 0 {
		t.Error("no execution record expected")
	}
	if !strings.Contains(buf.String(), "sell skipped: nothing held") {
		t.Errorf("expected warning in log, got %s", buf.String())
	}
}

func TestRunCycle_CountInvariantUnderFailures(t *testing.T) {
	st := store.NewMemory()
	now := time.Now()
	tickers := []string{"AAPL", "GME", "TSLA", "NVDA", "META"}
	for i, tk := range tickers {
		seed(t, st, model.CollectionNews, tk, 0.8, 3, now.Add(time.Duration(i)*time.Second))
	}
	st.RecentErr = map[string]error{model.CollectionMicroblog: errors.New("collection offline")}

	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 100, Ask: 100.1, Volume: 1e6}
	gw.quotes["GME"] = model.MarketSnapshot{Bid: 20, Ask: 20.1, Volume: 1e6}
	gw.quotes["TSLA"] = model.MarketSnapshot{Bid: 250, Ask: 250.1, Volume: 1e6}
	gw.posErr["GME"] = errors.New("timeout")
	gw.orderErr = errors.New("broker down")

	rep, err := newEngine(st, gw, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	ds := st.Decisions()
	if len(ds) != len(tickers) {
		t.Fatalf("expected %d decisions, got %d", len(tickers), len(ds))
	}
	for _, tk := range tickers {
		decisionFor(t, ds, tk)
	}
	if len(st.Executions()) != 0 {
		t.Error("failed orders must not produce execution records")
	}
	if rep.Failures == 0 {
		t.Error("expected failures to be counted")
	}
	// AAPL, GME and TSLA all attempt buys; an unknown position does not block a buy.
	if len(gw.orders) != 3 {
		t.Errorf("expected 3 attempted orders, got %d", len(gw.orders))
	}
}

func TestRunCycle_BuySkippedOnInsufficientCash(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, model.CollectionNews, "AAPL", 0.8, 3, time.Now())
	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 187.3, Ask: 187.5, LastPrice: 187.4, Volume: 150000}
	gw.cash = decimal.NewFromInt(100)

	rep, err := newEngine(st, gw, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if d := decisionFor(t, st.Decisions(), "AAPL"); d.Action != model.ActionBuy {
		t.Errorf("decision should remain buy, got %s", d.Action)
	}
	if len(gw.orders) != 0 || len(st.Executions()) != 0 {
		t.Error("unaffordable buy must not be submitted")
	}
	if rep.Outcomes[0].Note != "insufficient cash" {
		t.Errorf("note = %q", rep.Outcomes[0].Note)
	}
}

func TestRunCycle_AccountUnavailable(t *testing.T) {
	st := store.NewMemory()
	seed(t, st, model.CollectionNews, "AAPL", 0.8, 3, time.Now())
	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 100, Ask: 100.1, Volume: 150000}
	gw.acctErr = errors.New("account api down")

	if _, err := newEngine(st, gw, zerolog.Nop()).RunCycle(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(gw.orders) != 0 {
		t.Error("buy with unknown cash must not be submitted")
	}
	decisionFor(t, st.Decisions(), "AAPL")
}

func TestRunCycle_DecisionInsertFailureDoesNotAbort(t *testing.T) {
	st := store.NewMemory()
	now := time.Now()
	seed(t, st, model.CollectionNews, "AAPL", 0.8, 3, now)
	seed(t, st, model.CollectionNews, "TSLA", 0.5, 1, now.Add(time.Second))
	st.InsertErr = errors.New("disk full")
	gw := newFakeGateway()
	gw.quotes["AAPL"] = model.MarketSnapshot{Bid: 100, Ask: 100.1, Volume: 150000}
	gw.quotes["TSLA"] = model.MarketSnapshot{Bid: 250, Ask: 250.3, Volume: 500000}

	rep, err := newEngine(st, gw, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Outcomes) != 2 {
		t.Errorf("both tickers should be evaluated, got %d", len(rep.Outcomes))
	}
}

func TestRunCycle_EmptyShortCircuits(t *testing.T) {
	gw := newFakeGateway()
	rep, err := newEngine(store.NewMemory(), gw, zerolog.Nop()).RunCycle(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(rep.Outcomes) != 0 || len(gw.calls) != 0 {
		t.Errorf("empty window should not touch the gateway: %+v", rep)
	}
}

func TestRunCycle_Misconfigured(t *testing.T) {
	if _, err := (&Engine{}).RunCycle(context.Background()); err == nil {
		t.Error("expected error for missing dependencies")
	}
}

func TestAggregate_LastWriterWins(t *testing.T) {
	st := store.NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, st, model.CollectionNews, "AAPL", 0.1, 1, base)
	seed(t, st, model.CollectionNews, "AAPL", 0.2, 2, base.Add(time.Minute))
	seed(t, st, model.CollectionSocialPost, "AAPL", 0.9, 4, base)
	seed(t, st, model.CollectionSocialPost, "GME", -0.5, 3, base)
	seed(t, st, model.CollectionMicroblog, "TSLA", 0.4, 2, base)

	agg := &Aggregator{Store: st, Collections: model.Collections(), Limit: 5, Mode: AggregateLatest, Log: zerolog.Nop()}
	sigs := agg.Aggregate(context.Background())
	if len(sigs) != 3 {
		t.Fatalf("expected 3 tickers, got %d", len(sigs))
	}
	if sigs[0].Ticker != "AAPL" || sigs[1].Ticker != "GME" || sigs[2].Ticker != "TSLA" {
		t.Errorf("unexpected order %v %v %v", sigs[0].Ticker, sigs[1].Ticker, sigs[2].Ticker)
	}
	// The later collection overrides the earlier one.
	if *sigs[0].SentimentScore != 0.9 || *sigs[0].ExpectedImpact != 4 {
		t.Errorf("AAPL = %v/%v, want 0.9/4", *sigs[0].SentimentScore, *sigs[0].ExpectedImpact)
	}
}

func TestAggregate_WithinCollectionOldestOfWindowWins(t *testing.T) {
	st := store.NewMemory()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	seed(t, st, model.CollectionNews, "AAPL", 0.1, 1, base)
	seed(t, st, model.CollectionNews, "AAPL", 0.2, 2, base.Add(time.Minute))

	agg := &Aggregator{Store: st, Collections: []string{model.CollectionNews}, Limit: 5, Log: zerolog.Nop()}
	sigs := agg.Aggregate(context.Background())
	if len(sigs) != 1 || *sigs[0].SentimentScore != 0.1 {
		t.Errorf("results are visited newest first, so the older entry is written last: %+v", sigs)
	}
}

func TestAggregate_Average(t *testing.T) {
	st := store.NewMemory()
	base := time.Now()
	seed(t, st, model.CollectionNews, "AAPL", 0.2, 2, base)
	seed(t, st, model.CollectionSocialPost, "AAPL", 0.6, 4, base)

	agg := &Aggregator{Store: st, Collections: model.Collections(), Limit: 5, Mode: AggregateAverage, Log: zerolog.Nop()}
	sigs := agg.Aggregate(context.Background())
	if len(sigs) != 1 {
		t.Fatalf("expected one ticker, got %d", len(sigs))
	}
	if got := *sigs[0].SentimentScore; got < 0.399 || got > 0.401 {
		t.Errorf("average score = %v", got)
	}
	if *sigs[0].ExpectedImpact != 3 {
		t.Errorf("average impact = %v", *sigs[0].ExpectedImpact)
	}
}

func TestAggregate_LimitWindow(t *testing.T) {
	st := store.NewMemory()
	base := time.Now()
	for i, tk := range []string{"A", "B", "C", "D", "E", "F", "G"} {
		seed(t, st, model.CollectionNews, tk, 0.5, 1, base.Add(time.Duration(i)*time.Second))
	}
	agg := &Aggregator{Store: st, Collections: model.Collections(), Limit: 5, Log: zerolog.Nop()}
	sigs := agg.Aggregate(context.Background())
	if len(sigs) != 5 {
		t.Fatalf("only the 5 most recent observations count, got %d", len(sigs))
	}
	if sigs[0].Ticker != "G" {
		t.Errorf("newest first, got %s", sigs[0].Ticker)
	}
}
