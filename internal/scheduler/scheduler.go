package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/sidvijay2004/trading-agent/internal/collector"
	"github.com/sidvijay2004/trading-agent/internal/engine"
	"github.com/sidvijay2004/trading-agent/internal/events"
	"github.com/sidvijay2004/trading-agent/internal/fund"
	"github.com/sidvijay2004/trading-agent/internal/lock"
	"github.com/sidvijay2004/trading-agent/internal/metrics"
	"github.com/sidvijay2004/trading-agent/internal/model"
	"github.com/sidvijay2004/trading-agent/internal/notifier"
	"github.com/sidvijay2004/trading-agent/internal/store"
)

// ErrCycleRunning is returned when another cycle holds the run lock.
var ErrCycleRunning = errors.New("another cycle is running")

// Notifier delivers human-readable cycle summaries.
type Notifier interface {
	SendWithRetry(ctx context.Context, text string, maxRetries int) error
}

// ObservationRecorder counts collected observations by source and result.
type ObservationRecorder interface {
	Observation(source model.Source, result string)
}

type nopObservations struct{}

func (nopObservations) Observation(model.Source, string) {}

// Orchestrator runs collect → decide → publish cycles, once or on a cron schedule.
type Orchestrator struct {
	Cron       *cron.Cron
	Collectors []collector.Collector
	Store      store.Store
	Engine     *engine.Engine
	Locker     lock.Locker
	LockKey    string
	LockTTL    time.Duration
	Publisher  events.Publisher
	Notifier   Notifier
	Ledger     *fund.Ledger
	PushURL    string
	PushJob    string
	Metrics    ObservationRecorder
	Log        zerolog.Logger

	mu   sync.Mutex
	last *engine.CycleReport
}

// New creates an Orchestrator with an in-process lock and no outputs.
func New(cols []collector.Collector, st store.Store, eng *engine.Engine, log zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		Cron:       cron.New(cron.WithSeconds()),
		Collectors: cols,
		Store:      st,
		Engine:     eng,
		Locker:     lock.NewLocal(),
		LockKey:    "trading-agent:cycle",
		LockTTL:    10 * time.Minute,
		Publisher:  events.Noop{},
		Metrics:    nopObservations{},
		Log:        log,
	}
}

// Register schedules RunOnce on spec (six fields, seconds first).
func (o *Orchestrator) Register(ctx context.Context, spec string) error {
	if _, err := o.Cron.AddFunc(spec, func() {
		if _, err := o.RunOnce(ctx); err != nil && !errors.Is(err, ErrCycleRunning) {
			o.Log.Error().Err(err).Msg("scheduled cycle failed")
		}
	}); err != nil {
		return fmt.Errorf("register cycle %q: %w", spec, err)
	}
	return nil
}

// Start starts the cron scheduler.
func (o *Orchestrator) Start() {
	o.Cron.Start()
	o.Log.Info().Msg("scheduler started")
}

// Stop stops the cron scheduler and waits for a running cycle to finish.
func (o *Orchestrator) Stop() {
	<-o.Cron.Stop().Done()
	o.Log.Info().Msg("scheduler stopped")
}

// RunOnce runs one full cycle. Collector failures are logged and do not stop
// the cycle; only lock contention and a misconfigured engine return an error.
func (o *Orchestrator) RunOnce(ctx context.Context) (*engine.CycleReport, error) {
	ok, err := o.Locker.TryLock(ctx, o.LockKey, o.LockTTL)
	if err != nil {
		return nil, fmt.Errorf("acquire run lock: %w", err)
	}
	if !ok {
		o.Log.Warn().Str("key", o.LockKey).Msg("cycle skipped: lock held")
		return nil, ErrCycleRunning
	}
	defer func() {
		// The cycle ctx may already be cancelled; release regardless.
		if err := o.Locker.Unlock(context.WithoutCancel(ctx), o.LockKey); err != nil {
			o.Log.Warn().Err(err).Msg("release run lock")
		}
	}()

	o.collect(ctx)

	rep, err := o.Engine.RunCycle(ctx)
	if err != nil {
		return nil, fmt.Errorf("decision cycle: %w", err)
	}
	o.mu.Lock()
	o.last = rep
	o.mu.Unlock()

	o.publish(ctx, rep)
	return rep, nil
}

func (o *Orchestrator) collect(ctx context.Context) {
	for _, c := range o.Collectors {
		src := c.Source()
		rec := o.Metrics
		if rec == nil {
			rec = nopObservations{}
		}
		log := o.Log.With().Str("collector", c.Name()).Logger()

		obs, err := c.Collect(ctx)
		if err != nil {
			rec.Observation(src, "error")
			log.Error().Err(err).Msg("collect failed")
		}

		stored, dupes := 0, 0
		coll := c.Source().Collection()
		for i := range obs {
			if obs[i].ExternalID != "" {
				exists, err := o.Store.Exists(ctx, coll, obs[i].ExternalID)
				if err != nil {
					log.Warn().Err(err).Str("external_id", obs[i].ExternalID).Msg("existence check failed")
				} else if exists {
					dupes++
					rec.Observation(src, "duplicate")
					continue
				}
			}
			if err := o.Store.InsertObservation(ctx, coll, &obs[i]); err != nil {
				rec.Observation(src, "error")
				log.Error().Err(err).Str("ticker", obs[i].Ticker).Msg("store observation")
				continue
			}
			stored++
			rec.Observation(src, "stored")
		}
		log.Info().Int("collected", len(obs)).Int("stored", stored).Int("duplicates", dupes).Msg("collector done")
	}
}

func (o *Orchestrator) publish(ctx context.Context, rep *engine.CycleReport) {
	if o.PushURL != "" {
		if err := metrics.Push(o.PushURL, o.PushJob); err != nil {
			o.Log.Warn().Err(err).Msg("push metrics")
		}
	}
	if o.Publisher != nil {
		if err := o.Publisher.PublishCycle(ctx, rep); err != nil {
			o.Log.Warn().Err(err).Msg("publish cycle events")
		}
	}
	if o.Notifier != nil && len(rep.Outcomes) > 0 {
		if err := o.Notifier.SendWithRetry(ctx, notifier.FormatCycleReport(rep), 3); err != nil {
			o.Log.Error().Err(err).Msg("send notification")
		}
	}
}

// LastReport returns the most recent completed cycle, or nil.
func (o *Orchestrator) LastReport() *engine.CycleReport {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

// HandleCommand processes a user command and returns a reply.
func (o *Orchestrator) HandleCommand(ctx context.Context, command string) string {
	switch command {
	case "/run":
		rep, err := o.RunOnce(ctx)
		switch {
		case errors.Is(err, ErrCycleRunning):
			return "A cycle is already running."
		case err != nil:
			return "Cycle failed: " + err.Error()
		case len(rep.Outcomes) == 0:
			return "No recent sentiment, nothing evaluated."
		}
		// The summary was already sent by RunOnce.
		return ""
	case "/last":
		if rep := o.LastReport(); rep != nil {
			return notifier.FormatCycleReport(rep)
		}
		return "No cycle has run yet."
	case "/ledger":
		if o.Ledger == nil {
			return "Trading through the brokerage; no local ledger."
		}
		return notifier.FormatLedger(o.Ledger.State())
	default:
		return "Available commands:\n• /run\n• /last\n• /ledger"
	}
}
