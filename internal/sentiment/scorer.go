package sentiment

import (
	"math"
	"strings"

	"github.com/jonreiter/govader"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Scorer turns text into a sentiment record. Implementations are safe for
// concurrent use.
type Scorer interface {
	Score(text string) model.Sentiment
}

// Vader scores text with the VADER lexicon and rules.
type Vader struct {
	analyzer *govader.SentimentIntensityAnalyzer
}

// NewVader loads the VADER lexicon.
func NewVader() *Vader {
	return &Vader{analyzer: govader.NewSentimentIntensityAnalyzer()}
}

// Score implements Scorer. Compound is VADER's normalized score; polarity is
// the positive share minus the negative share and subjectivity is everything
// that is not neutral. Blank text scores zero on every axis.
func (v *Vader) Score(text string) model.Sentiment {
	if strings.TrimSpace(text) == "" {
		return model.Sentiment{}
	}
	s := v.analyzer.PolarityScores(text)
	if s.Positive+s.Negative+s.Neutral == 0 {
		return model.Sentiment{Compound: round(clamp(s.Compound, -1, 1), 4)}
	}
	return model.Sentiment{
		Compound:     round(clamp(s.Compound, -1, 1), 4),
		Polarity:     round(clamp(s.Positive-s.Negative, -1, 1), 4),
		Subjectivity: round(clamp(1-s.Neutral, 0, 1), 4),
	}
}

func clamp(v, lo, hi float64) float64 { return math.Max(lo, math.Min(hi, v)) }

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
