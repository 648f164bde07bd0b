package main

import (
	"context"
	"errors"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/broker"
	"github.com/sidvijay2004/trading-agent/internal/collector"
	"github.com/sidvijay2004/trading-agent/internal/config"
	"github.com/sidvijay2004/trading-agent/internal/engine"
	"github.com/sidvijay2004/trading-agent/internal/events"
	"github.com/sidvijay2004/trading-agent/internal/fund"
	"github.com/sidvijay2004/trading-agent/internal/lock"
	"github.com/sidvijay2004/trading-agent/internal/logging"
	"github.com/sidvijay2004/trading-agent/internal/metrics"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/notifier"
	"github.com/sidvijay2004/trading-agent/internal/scheduler"
	"github.com/sidvijay2004/trading-agent/internal/sentiment"
	"github.com/sidvijay2004/trading-agent/internal/store"
)

func main() {
	os.Exit(run(os.Args[1:]))
}

// run returns the process exit code: 1 for configuration errors, 2 for bad
// flags and 0 otherwise, including when the store is unreachable.
func run(args []string) int {
	defaultPath := "configs/config.yaml"
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		defaultPath = v
	}
	fs := flag.NewFlagSet("agent", flag.ContinueOnError)
	cfgPath := fs.String("config", defaultPath, "path to the YAML config file")
	daemon := fs.Bool("cron", false, "keep running on the configured schedule")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	boot := logging.New("info", "json")

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		boot.Error().Err(err).Str("path", *cfgPath).Msg("load config")
		return 1
	}
	if err := cfg.Validate(); err != nil {
		boot.Error().Err(err).Msg("config validation")
		return 1
	}

	log := logging.New(cfg.Log.Level, cfg.Log.Format)
	log.Info().Str("broker", cfg.Broker.Kind).Strs("tickers", cfg.Tickers).Msg("trading agent starting")

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	st, err := store.Open(ctx, cfg.Store.DSN)
	if errors.Is(err, store.ErrUnknownDSN) {
		log.Error().Err(err).Msg("open store")
		return 1
	}
	if err != nil {
		log.Warn().Err(err).Msg("store unreachable, skipping cycle")
		return 0
	}
	defer func() {
		closeCtx, done := context.WithTimeout(context.Background(), 10*time.Second)
		defer done()
		if err := st.Close(closeCtx); err != nil {
			log.Warn().Err(err).Msg("close store")
		}
	}()

	alpaca := broker.NewAlpaca(cfg.Alpaca.TradingURL, cfg.Alpaca.DataURL, cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Proxy)
	var (
		gw     broker.Gateway = alpaca
		ledger *fund.Ledger
	)
	if cfg.Broker.Kind == config.BrokerLocal {
		ledger, err = fund.NewLedger(cfg.Paper.StateFile, cfg.Paper.StartingCash)
		if err != nil {
			log.Error().Err(err).Msg("open paper ledger")
			return 1
		}
		gw = broker.NewPaper(alpaca, ledger)
	}

	kit := sentiment.NewToolkit(sentiment.NewTickers(cfg.Tickers))
	cols := buildCollectors(ctx, cfg, kit, log)
	log.Info().Int("collectors", len(cols)).Msg("collectors configured")

	eng := &engine.Engine{
		Aggregator: &engine.Aggregator{
			Store:       st,
			Collections: model.Collections(),
			Limit:       cfg.Engine.RecentLimit,
			Mode:        cfg.Engine.Aggregation,
			Log:         log,
		},
		Store:      st,
		Gateway:    gw,
		Thresholds: cfg.Thresholds,
		Sizer:      engine.FixedSizer{Qty: cfg.Engine.OrderQty},
		Metrics:    metrics.Prometheus{},
		Log:        log,
	}

	orch := scheduler.New(cols, st, eng, log)
	orch.LockKey = cfg.Redis.LockKey
	orch.LockTTL = cfg.Redis.LockTTL
	orch.Ledger = ledger
	orch.PushURL = cfg.Metrics.PushgatewayURL
	orch.PushJob = cfg.Metrics.Job
	orch.Metrics = metrics.Prometheus{}
	if cfg.Redis.Addr != "" {
		rl := lock.NewRedis(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		defer rl.Close()
		orch.Locker = rl
	}
	if len(cfg.Kafka.Brokers) > 0 {
		pub, err := events.NewKafka(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		if err != nil {
			log.Warn().Err(err).Msg("kafka publisher disabled")
		} else {
			defer pub.Close()
			orch.Publisher = pub
		}
	}
	var tn *notifier.TelegramNotifier
	if cfg.Telegram.BotToken != "" && cfg.Telegram.ChatID != "" {
		tn = notifier.NewTelegramNotifier(cfg.Telegram.BotToken, cfg.Telegram.ChatID, cfg.Proxy, log)
		orch.Notifier = tn
	}

	if !*daemon {
		if _, err := orch.RunOnce(ctx); err != nil && !errors.Is(err, scheduler.ErrCycleRunning) {
			log.Error().Err(err).Msg("cycle failed")
		}
		return 0
	}

	if cfg.Metrics.ListenAddr != "" {
		srv := metrics.Serve(cfg.Metrics.ListenAddr)
		defer srv.Close()
		log.Info().Str("addr", cfg.Metrics.ListenAddr).Msg("metrics endpoint listening")
	}
	if err := orch.Register(ctx, cfg.Schedule.Cron); err != nil {
		log.Error().Err(err).Msg("register schedule")
		return 1
	}
	orch.Start()
	defer orch.Stop()

	if tn != nil {
		go tn.StartPolling(ctx, orch.HandleCommand)
		log.Info().Msg("telegram polling started")
	}

	if os.Getenv("RUN_ON_START") == "true" {
		log.Info().Msg("RUN_ON_START enabled, running a cycle now")
		go func() {
			if _, err := orch.RunOnce(ctx); err != nil && !errors.Is(err, scheduler.ErrCycleRunning) {
				log.Error().Err(err).Msg("startup cycle failed")
			}
		}()
	}

	log.Info().Str("schedule", cfg.Schedule.Cron).Msg("trading agent running, press Ctrl+C to stop")
	<-ctx.Done()
	log.Info().Msg("shutdown signal received, stopping")
	return 0
}

// buildCollectors registers every collector whose credentials are configured.
func buildCollectors(ctx context.Context, cfg *config.Config, kit *sentiment.Toolkit, log zerolog.Logger) []collector.Collector {
	var cols []collector.Collector
	if cfg.NewsAPI.APIKey != "" {
		cols = append(cols, collector.NewNewsAPI(cfg.NewsAPI.BaseURL, cfg.NewsAPI.APIKey, cfg.NewsAPI.Category, cfg.Proxy, kit, log))
	}
	if cfg.Reddit.ClientID != "" && cfg.Reddit.ClientSecret != "" {
		cols = append(cols, collector.NewReddit(ctx, collector.RedditOptions{
			ClientID:     cfg.Reddit.ClientID,
			ClientSecret: cfg.Reddit.ClientSecret,
			UserAgent:    cfg.Reddit.UserAgent,
			ProxyURL:     cfg.Proxy,
			Subreddits:   cfg.Reddit.Subreddits,
			PerListing:   cfg.Reddit.PerListing,
			MinScore:     cfg.Reddit.MinScore,
		}, kit, log))
	}
	if cfg.X.BearerToken != "" {
		cols = append(cols, collector.NewX(cfg.X.BaseURL, cfg.X.BearerToken, cfg.X.Query, cfg.X.MaxResults, cfg.Proxy, kit, log))
	}
	if cfg.Alpaca.APIKey != "" && cfg.Alpaca.APISecret != "" && cfg.Alpaca.NewsStream != "" {
		cols = append(cols, collector.NewAlpacaNews(cfg.Alpaca.NewsStream, cfg.Alpaca.APIKey, cfg.Alpaca.APISecret, cfg.Alpaca.StreamWindow, kit, log))
	}
	return cols
}
