package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/asaskevich/govalidator"
	"github.com/go-chi/chi/v5"

	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	"waypoint/internal/search/ranking"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/requestcontext"
)

// Service defines the search operation exposed over HTTP.
type Service interface {
	Search(ctx context.Context, query string, lat, lon float64) ([]ranking.RankedResult, error)
}

// Handler serves the search endpoint.
type Handler struct {
	logger  *slog.Logger
	search  Service
	metrics *metrics.Metrics
}

func New(search Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{
		logger:  logger,
		search:  search,
		metrics: metrics,
	}
}

// Register registers the search routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Get("/searchQuery", h.handleSearch)
	})
}

type searchResponse struct {
	Results []ranking.RankedResult `json:"results"`
}

type searchParams struct {
	Query string
	Lat   float64
	Lon   float64
}

func parseSearchParams(r *http.Request) (searchParams, error) {
	q := r.URL.Query()
	params := searchParams{Query: strings.TrimSpace(q.Get("query"))}
	if !govalidator.StringLength(params.Query, "1", "500") {
		return params, dErrors.New(dErrors.CodeValidation, "query must be 1 to 500 characters")
	}

	lat, err := strconv.ParseFloat(q.Get("lat"), 64)
	if err != nil || !govalidator.InRangeFloat64(lat, -90, 90) {
		return params, dErrors.New(dErrors.CodeValidation, "lat must be a number between -90 and 90")
	}
	lon, err := strconv.ParseFloat(q.Get("long"), 64)
	if err != nil || !govalidator.InRangeFloat64(lon, -180, 180) {
		return params, dErrors.New(dErrors.CodeValidation, "long must be a number between -180 and 180")
	}
	params.Lat, params.Lon = lat, lon
	return params, nil
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	params, err := parseSearchParams(r)
	if err != nil {
		h.logger.WarnContext(ctx, "invalid search request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}

	results, err := h.search.Search(ctx, params.Query, params.Lat, params.Lon)
	if err != nil {
		h.logger.ErrorContext(ctx, "search failed",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if results == nil {
		results = []ranking.RankedResult{}
	}
	httputil.WriteJSON(w, http.StatusOK, searchResponse{Results: results})
}
