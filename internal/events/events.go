// Package events publishes trading activity to Kafka for downstream consumers.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/sidvijay2004/trading-agent/internal/engine"
	"github.com/sidvijay2004/trading-agent/internal/model"
)

// Event is one message on the decisions topic. Execution is set only for
// orders the brokerage accepted.
type Event struct {
	Type      string                 `json:"type"`
	CycleID   string                 `json:"cycle_id"`
	Decision  *model.TradeDecision   `json:"decision,omitempty"`
	Execution *model.ExecutionRecord `json:"execution,omitempty"`
	Note      string                 `json:"note,omitempty"`
}

// Publisher sends the outcome of one cycle downstream.
type Publisher interface {
	PublishCycle(ctx context.Context, rep *engine.CycleReport) error
	Close() error
}

// Noop discards everything.
type Noop struct{}

func (Noop) PublishCycle(context.Context, *engine.CycleReport) error { return nil }
func (Noop) Close() error                                            { return nil }

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Kafka writes one JSON message per decision and per execution, keyed by ticker.
type Kafka struct {
	Topic  string
	writer messageWriter
	now    func() time.Time
}

// NewKafka creates a synchronous producer for brokers.
func NewKafka(brokers []string, topic string) (*Kafka, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("topic is required")
	}
	w := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireAll,
		MaxAttempts:  3,
		WriteTimeout: 10 * time.Second,
		BatchTimeout: 100 * time.Millisecond,
	}
	return &Kafka{Topic: topic, writer: w, now: time.Now}, nil
}

func (k *Kafka) PublishCycle(ctx context.Context, rep *engine.CycleReport) error {
	if rep == nil || len(rep.Outcomes) == 0 {
		return nil
	}
	now := k.now()
	msgs := make([]kafka.Message, 0, len(rep.Outcomes))
	for i := range rep.Outcomes {
		o := &rep.Outcomes[i]
		evs := []Event{{Type: model.KindDecision, CycleID: rep.CycleID, Decision: &o.Decision, Note: o.Note}}
		if o.Execution != nil {
			evs = append(evs, Event{Type: model.KindExecution, CycleID: rep.CycleID, Execution: o.Execution})
		}
		for _, ev := range evs {
			v, err := json.Marshal(ev)
			if err != nil {
				return fmt.Errorf("marshal %s event: %w", ev.Type, err)
			}
			msgs = append(msgs, kafka.Message{
				Topic: k.Topic,
				Key:   []byte(o.Decision.Ticker),
				Value: v,
				Time:  now,
			})
		}
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write %d messages: %w", len(msgs), err)
	}
	return nil
}

func (k *Kafka) Close() error { return k.writer.Close() }
