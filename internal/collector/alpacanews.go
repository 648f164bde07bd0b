package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strconv"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/sentiment"
)

// AlpacaNews listens to the Alpaca news stream for a bounded window and
// returns the articles that mention tracked tickers.
type AlpacaNews struct {
	URL    string
	Key    string
	Secret string
	Window time.Duration
	Dialer *websocket.Dialer
	Kit    *sentiment.Toolkit
	Log    zerolog.Logger
}

func NewAlpacaNews(streamURL, key, secret string, window time.Duration, kit *sentiment.Toolkit, log zerolog.Logger) *AlpacaNews {
	return &AlpacaNews{
		URL:    streamURL,
		Key:    key,
		Secret: secret,
		Window: window,
		Dialer: websocket.DefaultDialer,
		Kit:    kit,
		Log:    log,
	}
}

func (a *AlpacaNews) Name() string         { return "alpaca-news" }
func (a *AlpacaNews) Source() model.Source { return model.SourceNews }

type streamMessage struct {
	T         string   `json:"T"`
	Msg       string   `json:"msg"`
	Code      int      `json:"code"`
	ID        int64    `json:"id"`
	Headline  string   `json:"headline"`
	Summary   string   `json:"summary"`
	Author    string   `json:"author"`
	Source    string   `json:"source"`
	URL       string   `json:"url"`
	Symbols   []string `json:"symbols"`
	CreatedAt string   `json:"created_at"`
}

// Collect authenticates, subscribes to all news and reads until the window
// or ctx elapses. Running out of time is the normal end of a collection.
func (a *AlpacaNews) Collect(ctx context.Context) ([]model.SentimentObservation, error) {
	dialer := a.Dialer
	if dialer == nil {
		dialer = websocket.DefaultDialer
	}
	conn, _, err := dialer.DialContext(ctx, a.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("dial news stream: %w", err)
	}
	defer conn.Close()

	deadline := time.Now().Add(a.Window)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	stop := make(chan struct{})
	defer close(stop)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-stop:
		}
	}()

	if err := conn.WriteJSON(map[string]any{"action": "auth", "key": a.Key, "secret": a.Secret}); err != nil {
		return nil, fmt.Errorf("send auth: %w", err)
	}
	if err := conn.WriteJSON(map[string]any{"action": "subscribe", "news": []string{"*"}}); err != nil {
		return nil, fmt.Errorf("send subscribe: %w", err)
	}

	var (
		out  []model.SentimentObservation
		seen = make(map[int64]bool)
	)
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if isTimeout(err) || ctx.Err() != nil {
				a.Log.Debug().Int("kept", len(out)).Msg("news stream window closed")
				return out, nil
			}
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return out, nil
			}
			return out, fmt.Errorf("read news stream: %w", err)
		}

		// The stream sends arrays of messages.
		var batch []streamMessage
		if err := json.Unmarshal(data, &batch); err != nil {
			a.Log.Debug().Err(err).Msg("skip malformed stream frame")
			continue
		}
		for _, m := range batch {
			switch m.T {
			case "error":
				return out, fmt.Errorf("news stream error %d: %s", m.Code, m.Msg)
			case "n":
			default:
				continue
			}
			if seen[m.ID] {
				continue
			}
			seen[m.ID] = true

			text := join(m.Headline, m.Summary)
			// Symbols from the feed take precedence; otherwise search the text.
			ticker, _ := a.Kit.Tickers.First(m.Symbols)
			obs, ok := a.Kit.Observe(model.SourceNews, ticker, text, strconv.FormatInt(m.ID, 10), m.Source)
			if !ok {
				continue
			}
			obs.Author = m.Author
			obs.URL = m.URL
			obs.Meta = map[string]any{"symbols": m.Symbols, "created_at": m.CreatedAt}
			out = append(out, obs)
		}
	}
}

func isTimeout(err error) bool {
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}
