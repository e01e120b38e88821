package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"waypoint/internal/catalog/handler/mocks"
	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
	"waypoint/pkg/platform/middleware/auth"
)

//go:generate mockgen -source=handler.go -destination=mocks/catalog-mocks.go -package=mocks Service

type stubValidator struct {
	userID id.UserID
}

func (v stubValidator) ValidateAccessToken(token string) (*auth.JWTClaims, error) {
	if token != "good-token" {
		return nil, errors.New("invalid token")
	}
	return &auth.JWTClaims{UserID: v.userID.String(), JTI: "jti-1"}, nil
}

type CatalogHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	userID  id.UserID
}

func TestCatalogHandlerSuite(t *testing.T) {
	suite.Run(t, new(CatalogHandlerSuite))
}

func (s *CatalogHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.userID = id.NewUserID()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	requireAuth := auth.RequireAuth(stubValidator{userID: s.userID}, nil, logger)
	s.router = chi.NewRouter()
	New(s.service, logger, nil, requireAuth).Register(s.router)
}

func (s *CatalogHandlerSuite) do(method, path string, body any) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func decode[T any](s *CatalogHandlerSuite, w *httptest.ResponseRecorder) T {
	var v T
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &v))
	return v
}

func (s *CatalogHandlerSuite) TestRequiresAuthentication() {
	req := httptest.NewRequest(http.MethodGet, "/lists", nil)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	s.Equal(http.StatusUnauthorized, w.Code)
}

func (s *CatalogHandlerSuite) TestGetLists() {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.service.EXPECT().Lists(gomock.Any(), s.userID).Return([]*models.List{
		{ID: 1, UserID: s.userID, Name: "Favorites", IsDefault: true, CreatedAt: now},
		{ID: 3, UserID: s.userID, Name: "Trip", CreatedAt: now},
	}, nil)

	w := s.do(http.MethodGet, "/lists", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	resp := decode[[]map[string]any](s, w)
	s.Require().Len(resp, 2)
	s.Equal(float64(1), resp[0]["id"])
	s.Equal("Favorites", resp[0]["name"])
	s.Equal(true, resp[0]["is_default"])
	s.Equal(false, resp[1]["is_default"])
}

func (s *CatalogHandlerSuite) TestCreateList() {
	s.Run("created", func() {
		s.service.EXPECT().CreateList(gomock.Any(), s.userID, "Trip").
			Return(&models.List{ID: 7, UserID: s.userID, Name: "Trip"}, nil)

		w := s.do(http.MethodPost, "/lists", map[string]string{"name": "  Trip "})
		s.Require().Equal(http.StatusCreated, w.Code)
		resp := decode[map[string]any](s, w)
		s.Equal(float64(7), resp["id"])
		s.Equal("List created successfully", resp["message"])
	})

	s.Run("blank name", func() {
		w := s.do(http.MethodPost, "/lists", map[string]string{"name": " "})
		s.Equal(http.StatusBadRequest, w.Code)
		resp := decode[map[string]string](s, w)
		s.Equal(string(dErrors.CodeValidation), resp["error"])
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/lists", bytes.NewBufferString("{"))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer good-token")
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *CatalogHandlerSuite) TestGetList() {
	s.Run("with locations", func() {
		s.service.EXPECT().ListDetails(gomock.Any(), s.userID, id.ListID(4)).Return(&models.ListDetails{
			List:   &models.List{ID: 4, Name: "Favorites", IsDefault: true},
			Places: []*models.Place{{ID: 9, ExternalID: "ext-1", Name: "Cafe"}},
		}, nil)

		w := s.do(http.MethodGet, "/lists/4", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		resp := decode[map[string]any](s, w)
		locations := resp["locations"].([]any)
		s.Require().Len(locations, 1)
		s.Equal("ext-1", locations[0].(map[string]any)["place_id"])
	})

	s.Run("empty list renders empty locations", func() {
		s.service.EXPECT().ListDetails(gomock.Any(), s.userID, id.ListID(5)).Return(&models.ListDetails{
			List: &models.List{ID: 5, Name: "Planned", IsDefault: true},
		}, nil)

		w := s.do(http.MethodGet, "/lists/5", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Contains(w.Body.String(), `"locations":[]`)
	})

	s.Run("not found", func() {
		s.service.EXPECT().ListDetails(gomock.Any(), s.userID, id.ListID(99)).Return(nil, models.ErrListNotFound)
		w := s.do(http.MethodGet, "/lists/99", nil)
		s.Equal(http.StatusNotFound, w.Code)
		resp := decode[map[string]string](s, w)
		s.Equal("List not found", resp["error_description"])
	})

	s.Run("invalid id", func() {
		w := s.do(http.MethodGet, "/lists/abc", nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *CatalogHandlerSuite) TestDeleteList() {
	s.Run("deleted", func() {
		s.service.EXPECT().DeleteList(gomock.Any(), s.userID, id.ListID(7)).
			Return(&models.List{ID: 7, Name: "Trip"}, nil)
		w := s.do(http.MethodDelete, "/lists/7", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("List 'Trip' deleted successfully", decode[map[string]string](s, w)["message"])
	})

	s.Run("default list is forbidden", func() {
		s.service.EXPECT().DeleteList(gomock.Any(), s.userID, id.ListID(1)).
			Return(nil, models.ErrDefaultListProtected)
		w := s.do(http.MethodDelete, "/lists/1", nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("internal errors hide details", func() {
		s.service.EXPECT().DeleteList(gomock.Any(), s.userID, id.ListID(2)).
			Return(nil, dErrors.Wrap(errors.New("pq: connection refused"), dErrors.CodeInternal, "failed to delete list"))
		w := s.do(http.MethodDelete, "/lists/2", nil)
		s.Equal(http.StatusInternalServerError, w.Code)
		s.NotContains(w.Body.String(), "connection refused")
	})
}

func (s *CatalogHandlerSuite) TestAddLocation() {
	body := map[string]any{
		"name":      "Cafe",
		"address":   "Main St 1",
		"latitude":  52.52,
		"longitude": 13.40,
		"place_id":  "ext-1",
		"category":  "catering.cafe",
	}

	s.Run("added", func() {
		s.service.EXPECT().AddLocationToList(gomock.Any(), s.userID, id.ListID(4), models.PlaceAttributes{
			Name: "Cafe", Address: "Main St 1", Latitude: 52.52, Longitude: 13.40, ExternalID: "ext-1", Category: "catering.cafe",
		}).Return(&models.Place{ID: 9, ExternalID: "ext-1", Name: "Cafe"}, nil)

		w := s.do(http.MethodPost, "/lists/4/locations", body)
		s.Require().Equal(http.StatusCreated, w.Code)
		resp := decode[map[string]any](s, w)
		s.Equal("Location added to list", resp["message"])
	})

	s.Run("already member", func() {
		s.service.EXPECT().AddLocationToList(gomock.Any(), s.userID, id.ListID(4), gomock.Any()).
			Return(nil, models.ErrAlreadyMember)
		w := s.do(http.MethodPost, "/lists/4/locations", body)
		s.Equal(http.StatusConflict, w.Code)
		s.Equal("Location already in list", decode[map[string]string](s, w)["error_description"])
	})

	s.Run("missing coordinates", func() {
		w := s.do(http.MethodPost, "/lists/4/locations", map[string]any{"place_id": "ext-1", "name": "Cafe"})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("latitude out of range", func() {
		bad := map[string]any{"place_id": "ext-1", "latitude": 91.0, "longitude": 0.0}
		w := s.do(http.MethodPost, "/lists/4/locations", bad)
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("missing place id", func() {
		bad := map[string]any{"latitude": 1.0, "longitude": 1.0}
		w := s.do(http.MethodPost, "/lists/4/locations", bad)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *CatalogHandlerSuite) TestRemoveLocation() {
	s.Run("removed", func() {
		s.service.EXPECT().RemoveLocationFromList(gomock.Any(), s.userID, id.ListID(4), "ext-1").Return(nil)
		w := s.do(http.MethodDelete, "/lists/4/locations/ext-1", nil)
		s.Require().Equal(http.StatusOK, w.Code)
		s.Equal("Location removed", decode[map[string]string](s, w)["message"])
	})

	s.Run("not a member", func() {
		s.service.EXPECT().RemoveLocationFromList(gomock.Any(), s.userID, id.ListID(4), "ext-1").Return(models.ErrNotMember)
		w := s.do(http.MethodDelete, "/lists/4/locations/ext-1", nil)
		s.Equal(http.StatusNotFound, w.Code)
		s.Equal("Location not in list", decode[map[string]string](s, w)["error_description"])
	})
}

func (s *CatalogHandlerSuite) TestCheckLocation() {
	s.service.EXPECT().MembershipMatrix(gomock.Any(), s.userID, "ext-1").Return([]models.MembershipStatus{
		{ListID: 1, ListName: "Favorites", IsMember: true},
		{ListID: 2, ListName: "Planned", IsMember: false},
	}, nil)

	w := s.do(http.MethodGet, "/lists/check-location/ext-1", nil)
	s.Require().Equal(http.StatusOK, w.Code)
	resp := decode[[]map[string]any](s, w)
	s.Require().Len(resp, 2)
	s.Equal("Favorites", resp[0]["name"])
	s.Equal(true, resp[0]["added"])
	s.Equal(false, resp[1]["added"])
}
