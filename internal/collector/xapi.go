package collector

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/httputil"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/sentiment"
)

// X collects recent posts from the X (Twitter) v2 search API.
type X struct {
	BaseURL     string
	BearerToken string
	Query       string
	MaxResults  int
	Client      *httputil.Client
	Kit         *sentiment.Toolkit
	Log         zerolog.Logger
}

// NewX creates a collector with optional proxy support.
func NewX(baseURL, bearer, query string, maxResults int, proxyURL string, kit *sentiment.Toolkit, log zerolog.Logger) *X {
	return &X{
		BaseURL:     strings.TrimRight(baseURL, "/"),
		BearerToken: bearer,
		Query:       query,
		MaxResults:  maxResults,
		Client:      httputil.NewClient(proxyURL),
		Kit:         kit,
		Log:         log,
	}
}

func (x *X) Name() string         { return "x" }
func (x *X) Source() model.Source { return model.SourceMicroblog }

type tweet struct {
	ID            string `json:"id"`
	Text          string `json:"text"`
	AuthorID      string `json:"author_id"`
	CreatedAt     string `json:"created_at"`
	PublicMetrics struct {
		Likes    int `json:"like_count"`
		Retweets int `json:"retweet_count"`
		Replies  int `json:"reply_count"`
	} `json:"public_metrics"`
}

// Low-engagement posts are skipped: fewer than minLikes likes and fewer than
// minRetweets retweets.
const (
	minLikes    = 5
	minRetweets = 3
)

func (x *X) Collect(ctx context.Context) ([]model.SentimentObservation, error) {
	var resp struct {
		Data     []tweet `json:"data"`
		Includes struct {
			Users []struct {
				ID       string `json:"id"`
				Username string `json:"username"`
			} `json:"users"`
		} `json:"includes"`
	}
	err := x.Client.Do(ctx, &httputil.Request{
		URL: x.BaseURL + "/2/tweets/search/recent",
		Query: url.Values{
			"query":        {x.Query},
			"max_results":  {strconv.Itoa(x.MaxResults)},
			"tweet.fields": {"created_at,public_metrics,author_id"},
			"expansions":   {"author_id"},
			"user.fields":  {"username"},
		},
		Headers: map[string]string{"Authorization": "Bearer " + x.BearerToken},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("search recent: %w", err)
	}

	users := make(map[string]string, len(resp.Includes.Users))
	for _, u := range resp.Includes.Users {
		users[u.ID] = u.Username
	}

	var out []model.SentimentObservation
	for _, t := range resp.Data {
		m := t.PublicMetrics
		if m.Likes < minLikes && m.Retweets < minRetweets {
			continue
		}
		obs, ok := x.Kit.Observe(model.SourceMicroblog, "", t.Text, t.ID, "")
		if !ok {
			continue
		}
		obs.Author = users[t.AuthorID]
		obs.URL = "https://x.com/i/web/status/" + t.ID
		obs.Meta = map[string]any{
			"created_at": t.CreatedAt,
			"likes":      m.Likes,
			"retweets":   m.Retweets,
			"replies":    m.Replies,
		}
		out = append(out, obs)
	}
	x.Log.Debug().Int("tweets", len(resp.Data)).Int("kept", len(out)).Msg("x collected")
	return out, nil
}
