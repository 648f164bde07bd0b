package collector

import (
	"context"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Collector pulls one external source and returns scored observations that
// already carry a tracked ticker.
type Collector interface {
	Name() string
	Source() model.Source
	Collect(ctx context.Context) ([]model.SentimentObservation, error)
}

// Static returns a fixed set of observations. Useful for dry runs and tests.
type Static struct {
	Label        string
	Kind         model.Source
	Observations []model.SentimentObservation
	Err          error
}

func (s *Static) Name() string {
	if s.Label == "" {
		return "static"
	}
	return s.Label
}

func (s *Static) Source() model.Source { return s.Kind }

func (s *Static) Collect(context.Context) ([]model.SentimentObservation, error) {
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.SentimentObservation, len(s.Observations))
	copy(out, s.Observations)
	return out, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

func join(parts ...string) string {
	var out string
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += " "
		}
		out += p
	}
	return out
}
