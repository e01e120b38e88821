package service

import (
	"context"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"waypoint/internal/search/geocoder"
	"waypoint/internal/search/metrics"
	"waypoint/internal/search/ranking"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/requestcontext"
)

// Geocoder fetches raw provider results for a biased text query.
type Geocoder interface {
	Search(ctx context.Context, text string, lat, lon float64) (ranking.RawBatch, error)
}

// Service runs searches and ranks what the geocoder returns. Nothing is
// persisted.
type Service struct {
	geocoder Geocoder
	logger   *slog.Logger
	metrics  *metrics.Metrics
	tracer   trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func New(geocoder Geocoder, opts ...Option) *Service {
	s := &Service{
		geocoder: geocoder,
		logger:   slog.Default(),
		tracer:   otel.Tracer("waypoint/search/service"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search returns ranked results for query near (lat, lon), best first.
// Provider failures surface as upstream_failure; an empty or in-band failed
// response yields an empty result set.
func (s *Service) Search(ctx context.Context, query string, lat, lon float64) ([]ranking.RankedResult, error) {
	ctx, span := s.tracer.Start(ctx, "search.Search")
	defer span.End()

	query = strings.TrimSpace(query)
	if query == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "query is required")
	}

	batch, err := s.geocoder.Search(ctx, query, lat, lon)
	if err != nil {
		s.logger.ErrorContext(ctx, "geocoder request failed",
			"category", string(geocoder.GetCategory(err)),
			"error", err,
			"request_id", requestcontext.RequestID(ctx),
		)
		s.incrementSearches("upstream_failure")
		return nil, dErrors.Wrap(err, dErrors.CodeUpstreamFailure, "Failed to fetch data")
	}
	if !batch.Succeeded() {
		s.logger.WarnContext(ctx, "geocoder reported failure status",
			"status", *batch.Status,
			"request_id", requestcontext.RequestID(ctx),
		)
	}

	ranked := ranking.Rank(batch)
	span.SetAttributes(attribute.Int("search.results", len(ranked)))
	s.incrementSearches("ok")
	if s.metrics != nil {
		s.metrics.ObserveResults(len(ranked))
	}
	return ranked, nil
}

func (s *Service) incrementSearches(outcome string) {
	if s.metrics != nil {
		s.metrics.IncrementSearches(outcome)
	}
}
