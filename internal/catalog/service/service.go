package service

import (
	"context"
	"log/slog"

	"waypoint/internal/audit"
	"waypoint/internal/catalog/metrics"
	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	"waypoint/pkg/platform/middleware/metadata"
	"waypoint/pkg/platform/tx"
	"waypoint/pkg/requestcontext"
)

// PlaceStore is the place registry. GetOrCreate reports whether it inserted.
type PlaceStore interface {
	GetOrCreate(ctx context.Context, p *models.Place) (*models.Place, bool, error)
	FindByExternalID(ctx context.Context, externalID string) (*models.Place, error)
	FindByIDs(ctx context.Context, ids []id.PlaceID) ([]*models.Place, error)
}

type ListStore interface {
	Create(ctx context.Context, l *models.List) error
	CreateMany(ctx context.Context, lists []*models.List) error
	ListByUser(ctx context.Context, userID id.UserID) ([]*models.List, error)
	FindByUserAndID(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error)
	// FindByUserAndIDForUpdate also locks the row until the surrounding
	// transaction ends.
	FindByUserAndIDForUpdate(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error)
	Delete(ctx context.Context, listID id.ListID) error
	CountDefaultByUser(ctx context.Context, userID id.UserID) (int, error)
}

// MembershipStore is the membership ledger.
type MembershipStore interface {
	Add(ctx context.Context, m *models.Membership) error
	Remove(ctx context.Context, listID id.ListID, placeID id.PlaceID) error
	DeleteByList(ctx context.Context, listID id.ListID) (int, error)
	PlaceIDsByList(ctx context.Context, listID id.ListID) ([]id.PlaceID, error)
	ListIDsContaining(ctx context.Context, placeID id.PlaceID) ([]id.ListID, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns places, lists and memberships for authenticated users.
type Service struct {
	places         PlaceStore
	lists          ListStore
	memberships    MembershipStore
	tx             tx.Runner
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTxRunner sets the unit-of-work runner. Defaults to an in-memory runner.
func WithTxRunner(r tx.Runner) Option {
	return func(s *Service) {
		s.tx = r
	}
}

// New constructs a Service.
func New(places PlaceStore, lists ListStore, memberships MembershipStore, opts ...Option) *Service {
	s := &Service{
		places:      places,
		lists:       lists,
		memberships: memberships,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.tx == nil {
		s.tx = tx.NewMemoryRunner()
	}
	return s
}

// logAudit emits the event, or logs it when no publisher is configured.
func (s *Service) logAudit(ctx context.Context, action audit.Action, userID id.UserID, subject string, attributes ...string) {
	requestID := requestcontext.RequestID(ctx)
	args := []any{"log_type", "audit", "user_id", userID.String(), "subject", subject}
	if requestID != "" {
		args = append(args, "request_id", requestID)
	}
	attrs := make(map[string]string, len(attributes)/2)
	for i := 0; i+1 < len(attributes); i += 2 {
		attrs[attributes[i]] = attributes[i+1]
		args = append(args, attributes[i], attributes[i+1])
	}
	if s.auditPublisher == nil {
		s.logger.InfoContext(ctx, string(action), args...)
		return
	}
	err := s.auditPublisher.Emit(ctx, audit.Event{
		Action:     action,
		UserID:     userID,
		Subject:    subject,
		RequestID:  requestID,
		ClientIP:   metadata.GetClientIP(ctx),
		Attributes: attrs,
		Timestamp:  requestcontext.Now(ctx),
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event",
			"action", string(action),
			"error", err,
			"request_id", requestID,
		)
	}
}
