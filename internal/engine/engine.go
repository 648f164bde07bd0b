package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/sidvijay2004/trading-agent/internal/broker"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/store"
	"github.com/sidvijay2004/trading-agent/internal/strategy"
)

// Outcome is what happened to one ticker during a cycle.
type Outcome struct {
	Decision  model.TradeDecision
	Execution *model.ExecutionRecord
	// Note explains why a buy or sell did not reach the brokerage, or why it failed there.
	Note string
}

// CycleReport summarizes one decision cycle.
type CycleReport struct {
	CycleID    string
	StartedAt  time.Time
	FinishedAt time.Time
	Outcomes   []Outcome
	Orders     int
	Failures   int
}

// Engine evaluates aggregated sentiment against market state, executes the
// resulting orders and records the audit trail.
type Engine struct {
	Aggregator *Aggregator
	Store      store.Store
	Gateway    broker.Gateway
	Thresholds strategy.Thresholds
	Sizer      Sizer
	Metrics    Recorder
	Log        zerolog.Logger
	Now        func() time.Time
	NewID      func() string
}

var errMisconfigured = errors.New("engine: store, gateway and aggregator are required")

// RunCycle evaluates every ticker with recent sentiment, one at a time. Each
// ticker gets exactly one decision record; no per-ticker failure stops the
// cycle. Only a misconfigured engine returns an error.
func (e *Engine) RunCycle(ctx context.Context) (*CycleReport, error) {
	if e.Store == nil || e.Gateway == nil || e.Aggregator == nil {
		return nil, errMisconfigured
	}
	now := e.now()
	rep := &CycleReport{CycleID: e.newID(), StartedAt: now}
	log := e.Log.With().Str("cycle_id", rep.CycleID).Logger()

	signals := e.Aggregator.Aggregate(ctx)
	if len(signals) == 0 {
		log.Info().Msg("no recent sentiment, nothing to evaluate")
		rep.FinishedAt = e.now()
		return rep, nil
	}
	log.Info().Int("tickers", len(signals)).Msg("decision cycle started")

	for _, sig := range signals {
		out := e.evaluate(ctx, rep.CycleID, sig, log.With().Str("ticker", sig.Ticker).Logger(), rep)
		rep.Outcomes = append(rep.Outcomes, out)
	}

	rep.FinishedAt = e.now()
	e.metrics().Cycle(rep.FinishedAt.Sub(rep.StartedAt))
	log.Info().Int("orders", rep.Orders).Int("failures", rep.Failures).
		Dur("elapsed", rep.FinishedAt.Sub(rep.StartedAt)).Msg("decision cycle finished")
	return rep, nil
}

func (e *Engine) evaluate(ctx context.Context, cycleID string, sig model.Signal, log zerolog.Logger, rep *CycleReport) Outcome {
	in := strategy.Input{
		Ticker:         sig.Ticker,
		SentimentScore: sig.SentimentScore,
		ExpectedImpact: sig.ExpectedImpact,
	}
	if sig.SentimentScore != nil && sig.ExpectedImpact != nil {
		snap, err := e.Gateway.Quote(ctx, sig.Ticker)
		if err != nil {
			log.Warn().Err(err).Msg("quote unavailable")
			rep.Failures++
		} else {
			in.Snapshot = snap
			owned, err := e.Gateway.Position(ctx, sig.Ticker)
			if err != nil {
				log.Warn().Err(err).Msg("position unavailable")
				rep.Failures++
			} else {
				in.Owned, in.OwnedKnown = owned.IntPart(), true
			}
		}
	}

	verdict := strategy.Decide(in, e.Thresholds)
	out := Outcome{Decision: model.TradeDecision{
		CycleID:        cycleID,
		Ticker:         sig.Ticker,
		Action:         verdict.Action,
		SentimentScore: sig.SentimentScore,
		ExpectedImpact: sig.ExpectedImpact,
		Reason:         verdict.Reason,
		DecidedAt:      e.now().UTC(),
	}}

	if err := e.Store.InsertDecision(ctx, &out.Decision); err != nil {
		log.Error().Err(err).Msg("record decision")
		rep.Failures++
	}
	e.metrics().Decision(verdict.Action)
	log.Info().Str("action", string(verdict.Action)).Str("reason", verdict.Reason).Msg("decision")

	switch verdict.Action {
	case model.ActionBuy:
		e.buy(ctx, &out, in.Snapshot, log, rep)
	case model.ActionSell:
		e.sell(ctx, &out, log, rep)
	}
	return out
}

func (e *Engine) buy(ctx context.Context, out *Outcome, snap *model.MarketSnapshot, log zerolog.Logger, rep *CycleReport) {
	acct, err := e.Gateway.Account(ctx)
	if err != nil {
		out.Note = "account unavailable"
		log.Warn().Err(err).Msg("buy skipped: account unavailable")
		rep.Failures++
		return
	}

	price := snap.Price()
	qty := e.sizer().Size(acct.Cash, price)
	need := decimal.NewFromFloat(price).Mul(decimal.NewFromInt(qty))
	if qty < 1 || price <= 0 || acct.Cash.LessThan(need) {
		out.Note = "insufficient cash"
		log.Warn().Str("cash", acct.Cash.String()).Str("needed", need.String()).Msg("buy skipped: insufficient cash")
		return
	}
	e.submit(ctx, out, model.NewMarketOrder(out.Decision.Ticker, qty, model.SideBuy), log, rep)
}

func (e *Engine) sell(ctx context.Context, out *Outcome, log zerolog.Logger, rep *CycleReport) {
	owned, err := e.Gateway.Position(ctx, out.Decision.Ticker)
	if err != nil {
		out.Note = "position unknown"
		log.Warn().Err(err).Msg("sell skipped: position unknown")
		return
	}
	qty := owned.IntPart()
	if qty <= 0 {
		out.Note = "nothing held"
		log.Warn().Msg("sell skipped: nothing held")
		return
	}
	e.submit(ctx, out, model.NewMarketOrder(out.Decision.Ticker, qty, model.SideSell), log, rep)
}

func (e *Engine) submit(ctx context.Context, out *Outcome, req model.OrderRequest, log zerolog.Logger, rep *CycleReport) {
	log = log.With().Str("side", string(req.Side)).Int64("qty", req.Quantity).Logger()
	rep.Orders++

	res, err := e.Gateway.SubmitOrder(ctx, req)
	if err != nil {
		out.Note = "order failed: " + err.Error()
		e.metrics().Order(req.Side, false)
		log.Error().Err(err).Msg("order failed")
		rep.Failures++
		return
	}
	e.metrics().Order(req.Side, true)

	exec := &model.ExecutionRecord{
		CycleID:        out.Decision.CycleID,
		Ticker:         req.Ticker,
		Action:         out.Decision.Action,
		Quantity:       req.Quantity,
		OrderID:        res.ID,
		Status:         res.Status,
		FilledAvgPrice: res.FilledAvgPrice,
		SubmittedAt:    res.SubmittedAt,
		RecordedAt:     e.now().UTC(),
	}
	out.Execution = exec
	if err := e.Store.InsertExecution(ctx, exec); err != nil {
		log.Error().Err(err).Str("order_id", res.ID).Msg("record execution")
		rep.Failures++
		return
	}
	log.Info().Str("order_id", res.ID).Str("status", res.Status).Msg("order submitted")
}

func (e *Engine) sizer() Sizer {
	if e.Sizer == nil {
		return FixedSizer{Qty: 1}
	}
	return e.Sizer
}

func (e *Engine) metrics() Recorder {
	if e.Metrics == nil {
		return nopRecorder{}
	}
	return e.Metrics
}

func (e *Engine) now() time.Time {
	if e.Now == nil {
		return time.Now()
	}
	return e.Now()
}

func (e *Engine) newID() string {
	if e.NewID == nil {
		return uuid.NewString()
	}
	return e.NewID()
}
