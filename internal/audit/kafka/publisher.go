// Package kafka ships audit events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"waypoint/internal/audit"
)

// Producer is the subset of *kgo.Client the publisher needs.
type Producer interface {
	ProduceSync(ctx context.Context, rs ...*kgo.Record) kgo.ProduceResults
}

// Publisher buffers audit events and produces them to Kafka from a
// background loop. Emit never blocks on the broker.
type Publisher struct {
	producer      Producer
	topic         string
	buffer        *audit.RingBuffer
	batchSize     int
	flushInterval time.Duration
	wake          chan struct{}
	logger        *slog.Logger
	metrics       *Metrics
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithLogger sets a logger for delivery failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

// WithBufferCapacity bounds the number of undelivered events kept in memory.
func WithBufferCapacity(n int) Option {
	return func(p *Publisher) {
		p.buffer = audit.NewRingBuffer(n)
	}
}

// WithBatchSize sets the maximum number of records per produce call.
func WithBatchSize(n int) Option {
	return func(p *Publisher) {
		if n > 0 {
			p.batchSize = n
		}
	}
}

// WithFlushInterval sets how often the buffer is drained when idle.
func WithFlushInterval(d time.Duration) Option {
	return func(p *Publisher) {
		if d > 0 {
			p.flushInterval = d
		}
	}
}

// NewPublisher creates a publisher producing to topic.
func NewPublisher(producer Producer, topic string, opts ...Option) *Publisher {
	p := &Publisher{
		producer:      producer,
		topic:         topic,
		buffer:        audit.NewRingBuffer(10000),
		batchSize:     100,
		flushInterval: time.Second,
		wake:          make(chan struct{}, 1),
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Emit queues the event for delivery.
func (p *Publisher) Emit(_ context.Context, event audit.Event) error {
	p.buffer.Enqueue(event.Normalize(time.Now()))
	if p.metrics != nil {
		p.metrics.SetBuffered(p.buffer.Len())
	}
	if p.buffer.Len() >= p.batchSize {
		select {
		case p.wake <- struct{}{}:
		default:
		}
	}
	return nil
}

// Run drains the buffer until ctx is cancelled, then makes a final
// best-effort flush.
func (p *Publisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.flushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			for p.buffer.Len() > 0 {
				if err := p.Flush(flushCtx); err != nil {
					p.logger.Warn("audit events left undelivered at shutdown",
						"pending", p.buffer.Len(),
						"error", err,
					)
					return nil
				}
			}
			return nil
		case <-ticker.C:
		case <-p.wake:
		}
		for p.buffer.Len() > 0 {
			if err := p.Flush(ctx); err != nil {
				break
			}
		}
	}
}

// Flush produces one batch. On failure the encodable part of the batch is
// requeued; unencodable events are dropped once.
func (p *Publisher) Flush(ctx context.Context) error {
	batch := p.buffer.DequeueBatch(p.batchSize)
	if len(batch) == 0 {
		return nil
	}

	records := make([]*kgo.Record, 0, len(batch))
	encoded := make([]audit.Event, 0, len(batch))
	for _, event := range batch {
		value, err := json.Marshal(event)
		if err != nil {
			p.logger.ErrorContext(ctx, "dropping unencodable audit event",
				"action", string(event.Action),
				"error", err,
			)
			continue
		}
		records = append(records, &kgo.Record{
			Topic: p.topic,
			Key:   []byte(event.UserID.String()),
			Value: value,
			Headers: []kgo.RecordHeader{
				{Key: "action", Value: []byte(event.Action)},
				{Key: "category", Value: []byte(event.Category)},
			},
			Timestamp: event.Timestamp,
		})
		encoded = append(encoded, event)
	}
	if len(records) == 0 {
		return nil
	}

	start := time.Now()
	if err := p.producer.ProduceSync(ctx, records...).FirstErr(); err != nil {
		p.buffer.Requeue(encoded)
		if p.metrics != nil {
			p.metrics.IncProduceFailures()
			p.metrics.SetBuffered(p.buffer.Len())
		}
		p.logger.ErrorContext(ctx, "failed to produce audit events",
			"topic", p.topic,
			"count", len(records),
			"error", err,
		)
		return fmt.Errorf("produce audit events: %w", err)
	}

	if p.metrics != nil {
		p.metrics.ObserveProduceDuration(time.Since(start).Seconds())
		p.metrics.AddProduced(len(records))
		p.metrics.SetBuffered(p.buffer.Len())
	}
	return nil
}

// Pending returns the number of events awaiting delivery.
func (p *Publisher) Pending() int {
	return p.buffer.Len()
}

// Dropped returns the number of events evicted from a full buffer.
func (p *Publisher) Dropped() int64 {
	return p.buffer.Dropped()
}
