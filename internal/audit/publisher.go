package audit

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Publisher delivers audit events to a sink.
type Publisher interface {
	Emit(ctx context.Context, event Event) error
}

// LogPublisher writes audit events as structured log lines.
type LogPublisher struct {
	logger *slog.Logger
}

// NewLogPublisher creates a publisher that logs every event.
func NewLogPublisher(logger *slog.Logger) *LogPublisher {
	return &LogPublisher{logger: logger}
}

// Emit logs the event at info level.
func (p *LogPublisher) Emit(ctx context.Context, event Event) error {
	event = event.Normalize(time.Now())
	args := []any{
		"log_type", "audit",
		"action", string(event.Action),
		"category", string(event.Category),
		"user_id", event.UserID.String(),
		"timestamp", event.Timestamp,
	}
	if event.Subject != "" {
		args = append(args, "subject", event.Subject)
	}
	if event.RequestID != "" {
		args = append(args, "request_id", event.RequestID)
	}
	if event.ClientIP != "" {
		args = append(args, "client_ip", event.ClientIP)
	}
	for k, v := range event.Attributes {
		args = append(args, k, v)
	}
	p.logger.InfoContext(ctx, string(event.Action), args...)
	return nil
}

// Fanout emits each event to every publisher and joins their errors.
type Fanout []Publisher

// Emit forwards the event to all publishers.
func (f Fanout) Emit(ctx context.Context, event Event) error {
	var errs []error
	for _, p := range f {
		if p == nil {
			continue
		}
		if err := p.Emit(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
