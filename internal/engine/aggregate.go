package engine

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/store"
)

// Aggregation modes.
const (
	AggregateLatest  = "latest"
	AggregateAverage = "average"
)

// Aggregator reduces the recent observation window to one signal per ticker.
type Aggregator struct {
	Store       store.Store
	Collections []string
	Limit       int
	Mode        string
	Log         zerolog.Logger
}

// Aggregate reads the Limit most recent observations of every collection, in
// declaration order. In latest mode the last observation visited for a ticker
// wins; in average mode compound and impact are averaged over the window.
// Tickers come back in first-seen order. A collection that cannot be read is
// skipped.
func (a *Aggregator) Aggregate(ctx context.Context) []model.Signal {
	type acc struct {
		score, impact float64
		n             int
	}
	var order []string
	byTicker := make(map[string]*acc)

	for _, coll := range a.Collections {
		obs, err := a.Store.Recent(ctx, coll, a.Limit)
		if err != nil {
			a.Log.Warn().Err(err).Str("collection", coll).Msg("read recent observations")
			continue
		}
		for _, o := range obs {
			if o.Ticker == "" {
				continue
			}
			cur, seen := byTicker[o.Ticker]
			if !seen {
				cur = &acc{}
				byTicker[o.Ticker] = cur
				order = append(order, o.Ticker)
			}
			if a.Mode == AggregateAverage {
				cur.score += o.Sentiment.Compound
				cur.impact += o.ExpectedImpact
				cur.n++
			} else {
				cur.score, cur.impact, cur.n = o.Sentiment.Compound, o.ExpectedImpact, 1
			}
		}
	}

	out := make([]model.Signal, 0, len(order))
	for _, t := range order {
		c := byTicker[t]
		score := c.score / float64(c.n)
		impact := c.impact / float64(c.n)
		out = append(out, model.Signal{Ticker: t, SentimentScore: &score, ExpectedImpact: &impact})
	}
	return out
}
