package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// SQLite persists observations and the decision log to a single file.
type SQLite struct {
	db *sql.DB
	mu sync.Mutex
}

// NewSQLite opens (or creates) the database and runs migrations.
func NewSQLite(dbPath string) (*SQLite, error) {
	if !strings.HasPrefix(dbPath, "file:") {
		if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
			return nil, fmt.Errorf("create db dir: %w", err)
		}
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	// WAL so dashboards can read while a cycle writes.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	s := &SQLite{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *SQLite) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS observations (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			collection      TEXT NOT NULL,
			ticker          TEXT NOT NULL,
			source          TEXT NOT NULL,
			compound        REAL,
			polarity        REAL,
			subjectivity    REAL,
			expected_impact REAL,
			observed_at     INTEGER NOT NULL,
			external_id     TEXT,
			publisher       TEXT,
			author          TEXT,
			text            TEXT,
			url             TEXT,
			meta            TEXT
		)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_recent ON observations(collection, observed_at)`,
		`CREATE INDEX IF NOT EXISTS idx_obs_external ON observations(collection, external_id)`,

		`CREATE TABLE IF NOT EXISTS trade_decisions (
			id               INTEGER PRIMARY KEY AUTOINCREMENT,
			kind             TEXT NOT NULL,
			cycle_id         TEXT,
			stock            TEXT NOT NULL,
			decision         TEXT NOT NULL,
			sentiment_score  REAL,
			expected_impact  REAL,
			reason           TEXT,
			quantity         INTEGER,
			order_id         TEXT,
			status           TEXT,
			filled_avg_price TEXT,
			submitted_at     INTEGER,
			timestamp        INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_ts ON trade_decisions(timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_decisions_cycle ON trade_decisions(cycle_id)`,
	}

	for _, st := range stmts {
		if _, err := s.db.Exec(st); err != nil {
			return fmt.Errorf("exec %q: %w", st[:40], err)
		}
	}
	return nil
}

func (s *SQLite) Recent(ctx context.Context, collection string, limit int) ([]model.SentimentObservation, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT ticker, source, compound, polarity, subjectivity,
		expected_impact, observed_at, external_id, publisher, author, text, url, meta
		FROM observations WHERE collection = ?
		ORDER BY observed_at DESC, id DESC LIMIT ?`, collection, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent %s: %w", collection, err)
	}
	defer rows.Close()

	var out []model.SentimentObservation
	for rows.Next() {
		var (
			o                                       model.SentimentObservation
			observed                                int64
			extID, publisher, author, text, u, meta sql.NullString
		)
		if err := rows.Scan(&o.Ticker, &o.Source, &o.Sentiment.Compound, &o.Sentiment.Polarity,
			&o.Sentiment.Subjectivity, &o.ExpectedImpact, &observed,
			&extID, &publisher, &author, &text, &u, &meta); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		o.ObservedAt = time.Unix(0, observed).UTC()
		o.ExternalID, o.Publisher, o.Author, o.Text, o.URL = extID.String, publisher.String, author.String, text.String, u.String
		if meta.Valid && meta.String != "" {
			if err := json.Unmarshal([]byte(meta.String), &o.Meta); err != nil {
				return nil, fmt.Errorf("decode meta: %w", err)
			}
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func (s *SQLite) Exists(ctx context.Context, collection, externalID string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM observations WHERE collection = ? AND external_id = ?`,
		collection, externalID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("exists %s: %w", collection, err)
	}
	return n > 0, nil
}

func (s *SQLite) InsertObservation(ctx context.Context, collection string, o *model.SentimentObservation) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var meta []byte
	if len(o.Meta) > 0 {
		var err error
		if meta, err = json.Marshal(o.Meta); err != nil {
			return fmt.Errorf("encode meta: %w", err)
		}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO observations
		(collection, ticker, source, compound, polarity, subjectivity, expected_impact,
		 observed_at, external_id, publisher, author, text, url, meta)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?,?)`,
		collection, o.Ticker, string(o.Source), o.Sentiment.Compound, o.Sentiment.Polarity,
		o.Sentiment.Subjectivity, o.ExpectedImpact, o.ObservedAt.UnixNano(),
		o.ExternalID, o.Publisher, o.Author, o.Text, o.URL, string(meta),
	)
	return err
}

func (s *SQLite) InsertDecision(ctx context.Context, d *model.TradeDecision) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx, `INSERT INTO trade_decisions
		(kind, cycle_id, stock, decision, sentiment_score, expected_impact, reason, timestamp)
		VALUES (?,?,?,?,?,?,?,?)`,
		model.KindDecision, d.CycleID, d.Ticker, string(d.Action),
		d.SentimentScore, d.ExpectedImpact, d.Reason, d.DecidedAt.UnixNano(),
	)
	return err
}

func (s *SQLite) InsertExecution(ctx context.Context, e *model.ExecutionRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var price sql.NullString
	if e.FilledAvgPrice != nil {
		price = sql.NullString{String: e.FilledAvgPrice.String(), Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO trade_decisions
		(kind, cycle_id, stock, decision, quantity, order_id, status, filled_avg_price, submitted_at, timestamp)
		VALUES (?,?,?,?,?,?,?,?,?,?)`,
		model.KindExecution, e.CycleID, e.Ticker, string(e.Action), e.Quantity,
		e.OrderID, e.Status, price, e.SubmittedAt.UnixNano(), e.RecordedAt.UnixNano(),
	)
	return err
}

func (s *SQLite) Close(context.Context) error {
	return s.db.Close()
}
