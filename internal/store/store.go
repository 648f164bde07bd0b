package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// ErrUnknownDSN is returned by Open for an unsupported connection string.
var ErrUnknownDSN = errors.New("unsupported store dsn")

// Store is the sentiment store and the append-only decision log.
type Store interface {
	// Recent returns up to limit observations of a collection, newest first.
	Recent(ctx context.Context, collection string, limit int) ([]model.SentimentObservation, error)
	// Exists reports whether an observation with externalID is already stored.
	Exists(ctx context.Context, collection, externalID string) (bool, error)
	InsertObservation(ctx context.Context, collection string, obs *model.SentimentObservation) error
	InsertDecision(ctx context.Context, d *model.TradeDecision) error
	InsertExecution(ctx context.Context, e *model.ExecutionRecord) error
	Close(ctx context.Context) error
}

// Open picks an implementation from the dsn scheme:
// mongodb:// or mongodb+srv:// for MongoDB, sqlite://path or file: for
// SQLite and memory:// for the in-process store.
func Open(ctx context.Context, dsn string) (Store, error) {
	switch {
	case strings.HasPrefix(dsn, "mongodb://"), strings.HasPrefix(dsn, "mongodb+srv://"):
		return NewMongo(ctx, dsn)
	case strings.HasPrefix(dsn, "sqlite://"):
		return NewSQLite(strings.TrimPrefix(dsn, "sqlite://"))
	case strings.HasPrefix(dsn, "file:"):
		return NewSQLite(dsn)
	case strings.HasPrefix(dsn, "memory://"):
		return NewMemory(), nil
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownDSN, redact(dsn))
}

// redact drops credentials from a dsn for error messages.
func redact(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at < 0 || scheme < 0 || at < scheme {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}
