package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/sidvijay2004/trading-agent/internal/strategy"
)

// Broker kinds.
const (
	BrokerAlpaca = "alpaca"
	BrokerLocal  = "local"
)

// Config holds all application configuration.
type Config struct {
	Tickers []string `yaml:"tickers" default:"[\"TSLA\",\"NVDA\",\"META\",\"AMZN\",\"AAPL\",\"GME\",\"AMC\",\"PLTR\",\"MSFT\",\"GOOGL\",\"ARKK\",\"SPY\"]" validate:"min=1,dive,required,uppercase"`

	Log struct {
		Level  string `yaml:"level" default:"info"`
		Format string `yaml:"format" default:"json" validate:"oneof=json console"`
	} `yaml:"log"`

	Store struct {
		DSN string `yaml:"dsn" validate:"required"`
	} `yaml:"store"`

	Broker struct {
		Kind string `yaml:"kind" default:"alpaca" validate:"oneof=alpaca local"`
	} `yaml:"broker"`

	Alpaca struct {
		APIKey       string        `yaml:"api_key"`
		APISecret    string        `yaml:"api_secret"`
		TradingURL   string        `yaml:"trading_url" default:"https://paper-api.alpaca.markets" validate:"url"`
		DataURL      string        `yaml:"data_url" default:"https://data.alpaca.markets" validate:"url"`
		NewsStream   string        `yaml:"news_stream_url" default:"wss://stream.data.alpaca.markets/v1beta1/news"`
		StreamWindow time.Duration `yaml:"stream_window" default:"20s"`
	} `yaml:"alpaca"`

	Paper struct {
		StartingCash float64 `yaml:"starting_cash" default:"100000" validate:"gt=0"`
		StateFile    string  `yaml:"state_file" default:"data/paper_ledger.json"`
	} `yaml:"paper"`

	NewsAPI struct {
		APIKey   string `yaml:"api_key"`
		BaseURL  string `yaml:"base_url" default:"https://newsapi.org" validate:"url"`
		Category string `yaml:"category" default:"business"`
	} `yaml:"newsapi"`

	Reddit struct {
		ClientID     string   `yaml:"client_id"`
		ClientSecret string   `yaml:"client_secret"`
		UserAgent    string   `yaml:"user_agent" default:"trading-agent/1.0"`
		Subreddits   []string `yaml:"subreddits" default:"[\"stocks\",\"wallstreetbets\",\"investing\",\"securityanalysis\"]"`
		PerListing   int      `yaml:"per_listing" default:"3" validate:"gte=1,lte=100"`
		MinScore     int      `yaml:"min_score" default:"50"`
	} `yaml:"reddit"`

	X struct {
		BearerToken string `yaml:"bearer_token"`
		BaseURL     string `yaml:"base_url" default:"https://api.twitter.com" validate:"url"`
		Query       string `yaml:"query" default:"(stock market OR investing OR trading OR WallStreet) -is:retweet lang:en"`
		MaxResults  int    `yaml:"max_results" default:"10" validate:"gte=10,lte=100"`
	} `yaml:"x"`

	Engine struct {
		RecentLimit int    `yaml:"recent_limit" default:"5" validate:"gte=1"`
		Aggregation string `yaml:"aggregation" default:"latest" validate:"oneof=latest average"`
		OrderQty    int64  `yaml:"order_qty" default:"1" validate:"gte=1"`
	} `yaml:"engine"`

	Thresholds strategy.Thresholds `yaml:"thresholds"`

	Schedule struct {
		Cron string `yaml:"cron" default:"0 */15 9-16 * * 1-5"`
	} `yaml:"schedule"`

	Redis struct {
		Addr     string        `yaml:"addr"`
		Password string        `yaml:"password"`
		DB       int           `yaml:"db"`
		LockKey  string        `yaml:"lock_key" default:"trading-agent:cycle"`
		LockTTL  time.Duration `yaml:"lock_ttl" default:"10m"`
	} `yaml:"redis"`

	Kafka struct {
		Brokers []string `yaml:"brokers"`
		Topic   string   `yaml:"topic" default:"trade-decisions"`
	} `yaml:"kafka"`

	Metrics struct {
		PushgatewayURL string `yaml:"pushgateway_url"`
		Job            string `yaml:"job" default:"trading_agent"`
		ListenAddr     string `yaml:"listen_addr"`
	} `yaml:"metrics"`

	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`

	Proxy string `yaml:"proxy"`
}

// Load applies defaults, then reads .env and the YAML file, then applies
// environment overrides. Values set explicitly, zeros included, win over
// defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	// MONGO_URI wins over STORE_DSN when both are set.
	if v := os.Getenv("STORE_DSN"); v != "" {
		cfg.Store.DSN = v
	}
	if v := os.Getenv("MONGO_URI"); v != "" {
		cfg.Store.DSN = v
	}

	str := map[string]*string{
		"BROKER_KIND":          &cfg.Broker.Kind,
		"ALPACA_API_KEY":       &cfg.Alpaca.APIKey,
		"ALPACA_API_SECRET":    &cfg.Alpaca.APISecret,
		"ALPACA_BASE_URL":      &cfg.Alpaca.TradingURL,
		"ALPACA_DATA_URL":      &cfg.Alpaca.DataURL,
		"NEWSAPI_KEY":          &cfg.NewsAPI.APIKey,
		"REDDIT_CLIENT_ID":     &cfg.Reddit.ClientID,
		"REDDIT_CLIENT_SECRET": &cfg.Reddit.ClientSecret,
		"REDDIT_USER_AGENT":    &cfg.Reddit.UserAgent,
		"X_BEARER_TOKEN":       &cfg.X.BearerToken,
		"REDIS_ADDR":           &cfg.Redis.Addr,
		"REDIS_PASSWORD":       &cfg.Redis.Password,
		"PUSHGATEWAY_URL":      &cfg.Metrics.PushgatewayURL,
		"TELEGRAM_BOT_TOKEN":   &cfg.Telegram.BotToken,
		"TELEGRAM_CHAT_ID":     &cfg.Telegram.ChatID,
		"LOG_LEVEL":            &cfg.Log.Level,
		"LOG_FORMAT":           &cfg.Log.Format,
		"CRON_SCHEDULE":        &cfg.Schedule.Cron,
		"HTTPS_PROXY":          &cfg.Proxy,
	}
	for k, dst := range str {
		if v := os.Getenv(k); v != "" {
			*dst = v
		}
	}

	if v := os.Getenv("TRACKED_TICKERS"); v != "" {
		cfg.Tickers = splitList(v, true)
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = splitList(v, false)
	}

	t := &cfg.Thresholds
	floats := []struct {
		key string
		dst *float64
	}{
		{"THRESHOLD_SENTIMENT_BUY", &t.SentimentBuy},
		{"THRESHOLD_SENTIMENT_SELL", &t.SentimentSell},
		{"THRESHOLD_SPREAD_BUY_MAX", &t.SpreadBuyMax},
		{"THRESHOLD_SPREAD_SELL_MIN", &t.SpreadSellMin},
		{"THRESHOLD_VOLUME_BUY_MIN", &t.VolumeBuyMin},
		{"THRESHOLD_VOLUME_SELL_MIN", &t.VolumeSellMin},
		{"THRESHOLD_IMPACT_MIN", &t.ImpactMin},
	}
	for _, f := range floats {
		v := os.Getenv(f.key)
		if v == "" {
			continue
		}
		n, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%s: %w", f.key, err)
		}
		*f.dst = n
	}
	return nil
}

func splitList(v string, upper bool) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if upper {
			p = strings.ToUpper(p)
		}
		out = append(out, p)
	}
	return out
}

// Validate checks that all required fields are set.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fmt.Sprintf("%s failed %q", fe.Namespace(), fe.Tag()))
			}
			return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if c.Broker.Kind == BrokerAlpaca && (c.Alpaca.APIKey == "" || c.Alpaca.APISecret == "") {
		return fmt.Errorf("alpaca.api_key and alpaca.api_secret are required for broker kind %q", BrokerAlpaca)
	}
	if c.Thresholds.SentimentSell > c.Thresholds.SentimentBuy {
		return fmt.Errorf("thresholds.sentiment_sell (%.2f) must not exceed thresholds.sentiment_buy (%.2f)",
			c.Thresholds.SentimentSell, c.Thresholds.SentimentBuy)
	}
	return nil
}
