package sentiment

import (
	"strings"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Publishers whose articles carry extra weight in the impact estimate.
var weightedPublishers = map[string]bool{
	"bloomberg": true,
	"cnbc":      true,
	"reuters":   true,
}

const publisherWeight = 2

// Impact estimates how much a text is likely to move a ticker: sentiment
// strength, body length, publisher weight and market-keyword mentions,
// rounded to two decimals. publisher may be empty.
func Impact(text string, s model.Sentiment, publisher string) float64 {
	strength := abs(s.Compound) * 5
	length := float64(len(strings.Fields(text))) / 100

	var weight float64
	if weightedPublishers[strings.ToLower(strings.TrimSpace(publisher))] {
		weight = publisherWeight
	}

	lower := strings.ToLower(text)
	keywords := float64(strings.Count(lower, "stock") + strings.Count(lower, "market"))

	return round(strength+length+weight+keywords, 2)
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
