// Package events publishes import lifecycle events to Kafka so downstream
// consumers (dashboards, audit sinks) learn about new partition generations.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"idgov/pkg/platform/circuit"
	"idgov/pkg/platform/sentinel"
)

// TypeImportCompleted is emitted after a partition import finishes, whether
// the partition was replaced or the file was rejected.
const TypeImportCompleted = "identity.import.completed"

const headerEventType = "event-type"

// ImportCompleted is the payload of TypeImportCompleted.
type ImportCompleted struct {
	Type         string    `json:"type"`
	RunID        string    `json:"runId"`
	System       string    `json:"system"`
	Status       string    `json:"status"`
	RowsImported int       `json:"rowsImported"`
	Warnings     int       `json:"warnings"`
	Generation   int64     `json:"generation"`
	RequestID    string    `json:"requestId,omitempty"`
	OccurredAt   time.Time `json:"occurredAt"`
}

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// KafkaPublisher writes events to one topic, keyed by system so every event of
// a partition lands on the same Kafka partition in order. A circuit breaker
// stops producing while the brokers keep failing.
type KafkaPublisher struct {
	producer Producer
	topic    string
	breaker  *circuit.Breaker
	logger   *slog.Logger
}

type Option func(*KafkaPublisher)

func WithLogger(logger *slog.Logger) Option {
	return func(p *KafkaPublisher) {
		p.logger = logger
	}
}

func WithBreaker(b *circuit.Breaker) Option {
	return func(p *KafkaPublisher) {
		p.breaker = b
	}
}

func NewKafkaPublisher(producer Producer, topic string, opts ...Option) (*KafkaPublisher, error) {
	if producer == nil {
		return nil, errors.New("kafka producer is required")
	}
	if topic == "" {
		return nil, errors.New("kafka topic is required")
	}
	p := &KafkaPublisher{
		producer: producer,
		topic:    topic,
		breaker:  circuit.New("import-events", circuit.WithFailureThreshold(3), circuit.WithCooldown(30*time.Second)),
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// PublishImportCompleted produces evt synchronously. While the breaker is
// open it fails fast with sentinel.ErrUnavailable.
func (p *KafkaPublisher) PublishImportCompleted(ctx context.Context, evt ImportCompleted) error {
	if !p.breaker.Allow() {
		return fmt.Errorf("publish %s: %w", TypeImportCompleted, sentinel.ErrUnavailable)
	}

	evt.Type = TypeImportCompleted
	value, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode %s: %w", TypeImportCompleted, err)
	}
	record := &kgo.Record{
		Topic:     p.topic,
		Key:       []byte(evt.System),
		Value:     value,
		Timestamp: evt.OccurredAt,
		Headers:   []kgo.RecordHeader{{Key: headerEventType, Value: []byte(TypeImportCompleted)}},
	}

	if err := p.producer.ProduceSync(ctx, record).FirstErr(); err != nil {
		if _, change := p.breaker.RecordFailure(); change.Opened {
			p.logger.WarnContext(ctx, "import event publishing suspended",
				"topic", p.topic,
				"breaker", p.breaker.Name(),
				"error", err,
			)
		}
		return fmt.Errorf("produce %s: %w", TypeImportCompleted, err)
	}
	if _, change := p.breaker.RecordSuccess(); change.Closed {
		p.logger.InfoContext(ctx, "import event publishing resumed", "topic", p.topic)
	}
	return nil
}

// NoopPublisher discards events; used when no brokers are configured.
type NoopPublisher struct{}

func (NoopPublisher) PublishImportCompleted(context.Context, ImportCompleted) error {
	return nil
}
