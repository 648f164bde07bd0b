package strategy

import (
	"fmt"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Input is everything the policy looks at for one ticker. A nil Snapshot
// means market data was unavailable; OwnedKnown=false means the position
// lookup failed.
type Input struct {
	Ticker         string
	SentimentScore *float64
	ExpectedImpact *float64
	Snapshot       *model.MarketSnapshot
	Owned          int64
	OwnedKnown     bool
}

// Verdict is the policy output.
type Verdict struct {
	Action model.Action
	Reason string
}

// Decide maps one ticker's inputs to buy, sell or hold. It never fails: any
// missing input resolves to hold.
func Decide(in Input, t Thresholds) Verdict {
	if in.SentimentScore == nil || in.ExpectedImpact == nil {
		return Verdict{Action: model.ActionHold, Reason: "sentiment missing"}
	}
	if in.Snapshot == nil {
		return Verdict{Action: model.ActionHold, Reason: "market data unavailable"}
	}

	score, impact := *in.SentimentScore, *in.ExpectedImpact
	detail := describe(score, impact, in.Snapshot)

	if buySignal(score, impact, in.Snapshot, t) {
		return Verdict{Action: model.ActionBuy, Reason: "buy thresholds met: " + detail}
	}
	if sellSignal(score, impact, in.Snapshot, t) {
		if !in.OwnedKnown {
			return Verdict{Action: model.ActionHold, Reason: "sell thresholds met, position unknown: " + detail}
		}
		if in.Owned <= 0 {
			return Verdict{Action: model.ActionHold, Reason: "sell thresholds met, nothing held: " + detail}
		}
		return Verdict{Action: model.ActionSell, Reason: fmt.Sprintf("sell thresholds met, holding %d: %s", in.Owned, detail)}
	}
	return Verdict{Action: model.ActionHold, Reason: "thresholds not met: " + detail}
}
