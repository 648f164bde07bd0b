package collector

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/httputil"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/sentiment"
)

// NewsAPI collects business headlines from newsapi.org.
type NewsAPI struct {
	BaseURL  string
	APIKey   string
	Category string
	Client   *httputil.Client
	Kit      *sentiment.Toolkit
	Log      zerolog.Logger
}

// NewNewsAPI creates a collector with optional proxy support.
func NewNewsAPI(baseURL, apiKey, category, proxyURL string, kit *sentiment.Toolkit, log zerolog.Logger) *NewsAPI {
	return &NewsAPI{
		BaseURL:  strings.TrimRight(baseURL, "/"),
		APIKey:   apiKey,
		Category: category,
		Client:   httputil.NewClient(proxyURL),
		Kit:      kit,
		Log:      log,
	}
}

func (n *NewsAPI) Name() string         { return "newsapi" }
func (n *NewsAPI) Source() model.Source { return model.SourceNews }

type newsArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	PublishedAt string `json:"publishedAt"`
}

func (n *NewsAPI) Collect(ctx context.Context) ([]model.SentimentObservation, error) {
	var resp struct {
		Status   string        `json:"status"`
		Message  string        `json:"message"`
		Articles []newsArticle `json:"articles"`
	}
	err := n.Client.Do(ctx, &httputil.Request{
		URL:     n.BaseURL + "/v2/top-headlines",
		Query:   url.Values{"category": {n.Category}, "language": {"en"}},
		Headers: map[string]string{"X-Api-Key": n.APIKey},
	}, &resp)
	if err != nil {
		return nil, fmt.Errorf("fetch headlines: %w", err)
	}
	if resp.Status != "ok" {
		return nil, fmt.Errorf("fetch headlines: status %q: %s", resp.Status, resp.Message)
	}

	var out []model.SentimentObservation
	for _, a := range resp.Articles {
		text := join(a.Title, a.Description)
		obs, ok := n.Kit.Observe(model.SourceNews, "", text, a.URL, a.Source.Name)
		if !ok {
			continue
		}
		obs.Author = a.Author
		obs.URL = a.URL
		obs.Meta = map[string]any{"published_at": a.PublishedAt, "title": a.Title}
		out = append(out, obs)
	}
	n.Log.Debug().Int("articles", len(resp.Articles)).Int("kept", len(out)).Msg("newsapi collected")
	return out, nil
}
