package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"waypoint/internal/catalog/models"
	"waypoint/internal/platform/metrics"
	"waypoint/internal/platform/middleware"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/httputil"
	"waypoint/pkg/requestcontext"
)

// Service defines the catalog operations exposed over HTTP.
type Service interface {
	Lists(ctx context.Context, userID id.UserID) ([]*models.List, error)
	CreateList(ctx context.Context, userID id.UserID, name string) (*models.List, error)
	ListDetails(ctx context.Context, userID id.UserID, listID id.ListID) (*models.ListDetails, error)
	DeleteList(ctx context.Context, userID id.UserID, listID id.ListID) (*models.List, error)
	AddLocationToList(ctx context.Context, userID id.UserID, listID id.ListID, attrs models.PlaceAttributes) (*models.Place, error)
	RemoveLocationFromList(ctx context.Context, userID id.UserID, listID id.ListID, externalID string) error
	MembershipMatrix(ctx context.Context, userID id.UserID, externalID string) ([]models.MembershipStatus, error)
}

// Handler serves the list and location endpoints.
type Handler struct {
	logger      *slog.Logger
	catalog     Service
	metrics     *metrics.Metrics
	requireAuth func(http.Handler) http.Handler
}

// New creates a catalog Handler. requireAuth guards every route.
func New(
	catalog Service,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	requireAuth func(http.Handler) http.Handler) *Handler {
	return &Handler{
		logger:      logger,
		catalog:     catalog,
		metrics:     metrics,
		requireAuth: requireAuth,
	}
}

// Register registers the catalog routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))
		r.Use(middleware.ContentTypeJSON)
		r.Use(middleware.LatencyMiddleware(h.metrics))
		r.Use(h.requireAuth)

		r.Get("/lists", h.handleGetLists)
		r.Post("/lists", h.handleCreateList)
		r.Get("/lists/check-location/{placeID}", h.handleCheckLocation)
		r.Get("/lists/{listID}", h.handleGetList)
		r.Delete("/lists/{listID}", h.handleDeleteList)
		r.Post("/lists/{listID}/locations", h.handleAddLocation)
		r.Delete("/lists/{listID}/locations/{placeID}", h.handleRemoveLocation)
	})
}

func (h *Handler) handleGetLists(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	lists, err := h.catalog.Lists(ctx, userID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load lists", err)
		return
	}

	resp := make([]listSummary, 0, len(lists))
	for _, l := range lists {
		resp = append(resp, toListSummary(l))
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

func (h *Handler) handleCreateList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req CreateListRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid create list request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	l, err := h.catalog.CreateList(ctx, userID, req.Name)
	if err != nil {
		h.writeServiceError(w, r, "failed to create list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, createListResponse{
		ID:      l.ID,
		Name:    l.Name,
		Message: "List created successfully",
	})
}

func (h *Handler) handleGetList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}

	details, err := h.catalog.ListDetails(ctx, userID, listID)
	if err != nil {
		h.writeServiceError(w, r, "failed to load list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toListDetail(details))
}

func (h *Handler) handleDeleteList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}

	deleted, err := h.catalog.DeleteList(ctx, userID, listID)
	if err != nil {
		h.writeServiceError(w, r, "failed to delete list", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{
		Message: "List '" + deleted.Name + "' deleted successfully",
	})
}

func (h *Handler) handleAddLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}

	var req AddLocationRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		h.logger.WarnContext(ctx, "invalid add location request",
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if err := req.Validate(); err != nil {
		httputil.WriteError(w, err)
		return
	}

	place, err := h.catalog.AddLocationToList(ctx, userID, listID, req.Attributes())
	if err != nil {
		h.writeServiceError(w, r, "failed to add location", err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, addLocationResponse{
		Message:  "Location added to list",
		Location: place,
	})
}

func (h *Handler) handleRemoveLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	listID, ok := h.listID(w, r)
	if !ok {
		return
	}

	err := h.catalog.RemoveLocationFromList(ctx, userID, listID, chi.URLParam(r, "placeID"))
	if err != nil {
		h.writeServiceError(w, r, "failed to remove location", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, messageResponse{Message: "Location removed"})
}

func (h *Handler) handleCheckLocation(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	matrix, err := h.catalog.MembershipMatrix(ctx, userID, chi.URLParam(r, "placeID"))
	if err != nil {
		h.writeServiceError(w, r, "failed to check location", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, matrix)
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (id.UserID, bool) {
	ctx := r.Context()
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		// RequireAuth guarantees this; reaching here means the route is misconfigured.
		h.logger.ErrorContext(ctx, "userID missing from context despite auth middleware",
			"request_id", requestcontext.RequestID(ctx),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "authentication context error"))
		return id.UserID{}, false
	}
	return userID, true
}

func (h *Handler) listID(w http.ResponseWriter, r *http.Request) (id.ListID, bool) {
	listID, err := id.ParseListID(chi.URLParam(r, "listID"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return listID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	ctx := r.Context()
	if dErrors.CodeOf(err) == dErrors.CodeInternal {
		h.logger.ErrorContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	} else {
		h.logger.WarnContext(ctx, msg,
			"request_id", requestcontext.RequestID(ctx),
			"error", err.Error(),
		)
	}
	httputil.WriteError(w, err)
}
