package store

import (
	"context"
	"sort"
	"sync"

	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Memory is an in-process Store used for dry runs and tests.
type Memory struct {
	mu           sync.Mutex
	observations map[string][]model.SentimentObservation
	decisions    []model.TradeDecision
	executions   []model.ExecutionRecord

	// RecentErr, when set, is returned by Recent for the named collection.
	RecentErr map[string]error
	// InsertErr, when set, is returned by every decision/execution insert.
	InsertErr error
}

func NewMemory() *Memory {
	return &Memory{observations: make(map[string][]model.SentimentObservation)}
}

func (m *Memory) Recent(_ context.Context, collection string, limit int) ([]model.SentimentObservation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.RecentErr[collection]; err != nil {
		return nil, err
	}
	src := m.observations[collection]
	out := make([]model.SentimentObservation, len(src))
	copy(out, src)
	// Stable keeps insertion order among equal timestamps, newest insert first.
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ObservedAt.After(out[j].ObservedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *Memory) Exists(_ context.Context, collection, externalID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.observations[collection] {
		if o.ExternalID == externalID {
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) InsertObservation(_ context.Context, collection string, obs *model.SentimentObservation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.observations[collection] = append(m.observations[collection], *obs)
	return nil
}

func (m *Memory) InsertDecision(_ context.Context, d *model.TradeDecision) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.decisions = append(m.decisions, *d)
	return nil
}

func (m *Memory) InsertExecution(_ context.Context, e *model.ExecutionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InsertErr != nil {
		return m.InsertErr
	}
	m.executions = append(m.executions, *e)
	return nil
}

// Decisions returns a copy of every decision recorded so far.
func (m *Memory) Decisions() []model.TradeDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.TradeDecision, len(m.decisions))
	copy(out, m.decisions)
	return out
}

// Executions returns a copy of every execution recorded so far.
func (m *Memory) Executions() []model.ExecutionRecord {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]model.ExecutionRecord, len(m.executions))
	copy(out, m.executions)
	return out
}

func (m *Memory) Close(context.Context) error { return nil }
