package sentiment

import (
	"time"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Toolkit bundles the capabilities every collector needs: scoring, impact
// estimation and ticker identification.
type Toolkit struct {
	Scorer  Scorer
	Tickers *Tickers
	Now     func() time.Time
}

// NewToolkit returns a Toolkit using the VADER scorer.
func NewToolkit(tickers *Tickers) *Toolkit {
	return &Toolkit{Scorer: NewVader(), Tickers: tickers, Now: time.Now}
}

func (k *Toolkit) ScoreSentiment(text string) model.Sentiment { return k.Scorer.Score(text) }

func (k *Toolkit) EstimateImpact(text string, s model.Sentiment, publisher string) float64 {
	return Impact(text, s, publisher)
}

func (k *Toolkit) IdentifyTicker(text string) (string, bool) { return k.Tickers.Identify(text) }

// Observe scores text and builds an observation for ticker. An empty ticker
// is resolved from the text; ok is false when no tracked ticker is found.
func (k *Toolkit) Observe(src model.Source, ticker, text, externalID, publisher string) (model.SentimentObservation, bool) {
	if ticker == "" {
		var found bool
		if ticker, found = k.IdentifyTicker(text); !found {
			return model.SentimentObservation{}, false
		}
	} else if !k.Tickers.Tracked(ticker) {
		return model.SentimentObservation{}, false
	}

	s := k.ScoreSentiment(text)
	now := time.Now
	if k.Now != nil {
		now = k.Now
	}
	return model.SentimentObservation{
		Ticker:         ticker,
		Source:         src,
		Sentiment:      s,
		ExpectedImpact: k.EstimateImpact(text, s, publisher),
		ObservedAt:     now().UTC(),
		ExternalID:     externalID,
		Publisher:      publisher,
		Text:           text,
	}, true
}
