package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"github.com/sidvijay2004/trading-agent/internal/httputil"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/sentiment"
)

const (
	redditTokenURL = "https://www.reddit.com/api/v1/access_token"
	redditBaseURL  = "https://oauth.reddit.com"

	selftextLimit = 500
	topComments   = 5
)

// redditListings are walked in this order for every subreddit.
var redditListings = []string{"hot", "rising"}

// Reddit collects posts from finance subreddits using an app-only OAuth2 token.
type Reddit struct {
	BaseURL    string
	Subreddits []string
	PerListing int
	MinScore   int
	Client     *httputil.Client
	Kit        *sentiment.Toolkit
	Log        zerolog.Logger
}

// RedditOptions carries credentials and endpoints. Empty URLs use reddit.com.
type RedditOptions struct {
	ClientID     string
	ClientSecret string
	UserAgent    string
	TokenURL     string
	BaseURL      string
	ProxyURL     string
	Subreddits   []string
	PerListing   int
	MinScore     int
}

type userAgentTransport struct {
	agent string
	base  http.RoundTripper
}

func (t *userAgentTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set("User-Agent", t.agent)
	return t.base.RoundTrip(r)
}

// NewReddit builds a collector whose HTTP client fetches and refreshes its own token.
func NewReddit(ctx context.Context, opts RedditOptions, kit *sentiment.Toolkit, log zerolog.Logger) *Reddit {
	tokenURL := opts.TokenURL
	if tokenURL == "" {
		tokenURL = redditTokenURL
	}
	base := opts.BaseURL
	if base == "" {
		base = redditBaseURL
	}

	raw := httputil.NewClient(opts.ProxyURL).HTTP
	raw.Transport = &userAgentTransport{agent: opts.UserAgent, base: raw.Transport}

	cc := clientcredentials.Config{
		ClientID:     opts.ClientID,
		ClientSecret: opts.ClientSecret,
		TokenURL:     tokenURL,
		AuthStyle:    oauth2.AuthStyleInHeader,
	}
	authed := cc.Client(context.WithValue(ctx, oauth2.HTTPClient, raw))
	authed.Timeout = raw.Timeout

	return &Reddit{
		BaseURL:    strings.TrimRight(base, "/"),
		Subreddits: opts.Subreddits,
		PerListing: opts.PerListing,
		MinScore:   opts.MinScore,
		Client:     httputil.Wrap(authed),
		Kit:        kit,
		Log:        log,
	}
}

func (r *Reddit) Name() string         { return "reddit" }
func (r *Reddit) Source() model.Source { return model.SourceSocialPost }

type redditPost struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	Selftext    string  `json:"selftext"`
	Author      string  `json:"author"`
	Score       int     `json:"score"`
	NumComments int     `json:"num_comments"`
	Permalink   string  `json:"permalink"`
	CreatedUTC  float64 `json:"created_utc"`
	Subreddit   string  `json:"subreddit"`
}

type redditListing struct {
	Data struct {
		Children []struct {
			Kind string          `json:"kind"`
			Data json.RawMessage `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

// Collect walks every listing of every subreddit. A failed listing is logged
// and skipped; the call errors only when every listing failed.
func (r *Reddit) Collect(ctx context.Context) ([]model.SentimentObservation, error) {
	var (
		out      []model.SentimentObservation
		attempts int
		failures int
		lastErr  error
		seen     = make(map[string]bool)
	)
	for _, sub := range r.Subreddits {
		for _, listing := range redditListings {
			attempts++
			posts, err := r.listing(ctx, sub, listing)
			if err != nil {
				failures++
				lastErr = err
				r.Log.Warn().Err(err).Str("subreddit", sub).Str("listing", listing).Msg("reddit listing failed")
				continue
			}
			for _, p := range posts {
				if seen[p.ID] || p.Score < r.MinScore {
					continue
				}
				seen[p.ID] = true
				obs, ok := r.Kit.Observe(model.SourceSocialPost, "", join(p.Title, p.Selftext), p.ID, "")
				if !ok {
					continue
				}
				// Scored on the full body; only the stored text is capped.
				obs.Text = join(p.Title, truncate(p.Selftext, selftextLimit))
				obs.Author = p.Author
				obs.URL = "https://www.reddit.com" + p.Permalink
				meta := map[string]any{
					"subreddit":    sub,
					"score":        p.Score,
					"num_comments": p.NumComments,
					"created_utc":  p.CreatedUTC,
				}
				comments, err := r.comments(ctx, sub, p.ID)
				if err != nil {
					r.Log.Debug().Err(err).Str("post", p.ID).Msg("reddit comments unavailable")
				} else {
					meta["top_comments"] = comments
				}
				obs.Meta = meta
				out = append(out, obs)
			}
		}
	}
	if attempts > 0 && failures == attempts {
		return nil, fmt.Errorf("all reddit listings failed: %w", lastErr)
	}
	return out, nil
}

func (r *Reddit) listing(ctx context.Context, sub, kind string) ([]redditPost, error) {
	var l redditListing
	err := r.Client.Do(ctx, &httputil.Request{
		URL:   fmt.Sprintf("%s/r/%s/%s", r.BaseURL, url.PathEscape(sub), kind),
		Query: url.Values{"limit": {strconv.Itoa(r.PerListing)}},
	}, &l)
	if err != nil {
		return nil, err
	}
	var posts []redditPost
	for _, c := range l.Data.Children {
		if c.Kind != "t3" {
			continue
		}
		var p redditPost
		if err := json.Unmarshal(c.Data, &p); err != nil {
			continue
		}
		posts = append(posts, p)
	}
	return posts, nil
}

// comments returns the bodies of the top comments of a post. The endpoint
// answers with a two-element array: the post listing, then the comment listing.
func (r *Reddit) comments(ctx context.Context, sub, id string) ([]string, error) {
	var listings []redditListing
	err := r.Client.Do(ctx, &httputil.Request{
		URL:   fmt.Sprintf("%s/r/%s/comments/%s", r.BaseURL, url.PathEscape(sub), url.PathEscape(id)),
		Query: url.Values{"limit": {strconv.Itoa(topComments)}, "sort": {"top"}},
	}, &listings)
	if err != nil {
		return nil, err
	}
	if len(listings) < 2 {
		return nil, nil
	}
	var bodies []string
	for _, c := range listings[1].Data.Children {
		if c.Kind != "t1" || len(bodies) == topComments {
			continue
		}
		var body struct {
			Body string `json:"body"`
		}
		if err := json.Unmarshal(c.Data, &body); err == nil && body.Body != "" {
			bodies = append(bodies, body.Body)
		}
	}
	return bodies, nil
}
