package model

import "time"

// Source identifies the kind of channel an observation came from.
type Source string

const (
	SourceNews       Source = "news"
	SourceSocialPost Source = "social-post"
	SourceMicroblog  Source = "microblog"
)

// Collection names used by the sentiment store, one per source.
const (
	CollectionNews       = "news_articles"
	CollectionSocialPost = "reddit_posts"
	CollectionMicroblog  = "X_posts"
)

// Collection returns the store collection observations of this source are written to.
func (s Source) Collection() string {
	switch s {
	case SourceNews:
		return CollectionNews
	case SourceSocialPost:
		return CollectionSocialPost
	case SourceMicroblog:
		return CollectionMicroblog
	}
	return ""
}

// Collections lists the observation collections in source-declaration order.
func Collections() []string {
	return []string{CollectionNews, CollectionSocialPost, CollectionMicroblog}
}

// Sentiment is the normalized sentiment record of one text.
type Sentiment struct {
	Compound     float64 `json:"compound" bson:"compound"`         // [-1, 1]
	Polarity     float64 `json:"polarity" bson:"polarity"`         // [-1, 1]
	Subjectivity float64 `json:"subjectivity" bson:"subjectivity"` // [0, 1]
}

// SentimentObservation is one scored mention of a tracked ticker.
type SentimentObservation struct {
	Ticker         string         `json:"ticker" bson:"ticker"`
	Source         Source         `json:"source" bson:"source"`
	Sentiment      Sentiment      `json:"sentiment" bson:"sentiment"`
	ExpectedImpact float64        `json:"expected_impact" bson:"expected_impact"`
	ObservedAt     time.Time      `json:"observed_at" bson:"observed_at"`
	ExternalID     string         `json:"external_id" bson:"external_id"`
	Publisher      string         `json:"publisher,omitempty" bson:"publisher,omitempty"`
	Author         string         `json:"author,omitempty" bson:"author,omitempty"`
	Text           string         `json:"text,omitempty" bson:"text,omitempty"`
	URL            string         `json:"url,omitempty" bson:"url,omitempty"`
	Meta           map[string]any `json:"meta,omitempty" bson:"meta,omitempty"`
}
