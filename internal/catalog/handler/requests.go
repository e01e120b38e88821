package handler

import (
	"strings"

	"github.com/asaskevich/govalidator"

	"waypoint/internal/catalog/models"
	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
)

type CreateListRequest struct {
	Name string `json:"name"`
}

// Validate trims the name and checks its length.
func (r *CreateListRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if !govalidator.RuneLength(r.Name, "1", "100") {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 100 characters")
	}
	return nil
}

// AddLocationRequest carries a place as returned by search. Coordinates are
// pointers so a missing value is distinguishable from zero.
type AddLocationRequest struct {
	Name      string   `json:"name"`
	Address   string   `json:"address"`
	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`
	PlaceID   string   `json:"place_id"`
	Category  string   `json:"category"`
}

func (r *AddLocationRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Address = strings.TrimSpace(r.Address)
	r.PlaceID = strings.TrimSpace(r.PlaceID)
	r.Category = strings.TrimSpace(r.Category)

	if r.PlaceID == "" {
		return dErrors.New(dErrors.CodeValidation, "place_id is required")
	}
	if !govalidator.StringLength(r.PlaceID, "1", "512") {
		return dErrors.New(dErrors.CodeValidation, "place_id is too long")
	}
	if r.Latitude == nil || r.Longitude == nil {
		return dErrors.New(dErrors.CodeValidation, "latitude and longitude are required")
	}
	if !govalidator.InRangeFloat64(*r.Latitude, -90, 90) {
		return dErrors.New(dErrors.CodeValidation, "latitude must be between -90 and 90")
	}
	if !govalidator.InRangeFloat64(*r.Longitude, -180, 180) {
		return dErrors.New(dErrors.CodeValidation, "longitude must be between -180 and 180")
	}
	return nil
}

// Attributes converts a validated request to place attributes.
func (r *AddLocationRequest) Attributes() models.PlaceAttributes {
	return models.PlaceAttributes{
		Name:       r.Name,
		Address:    r.Address,
		Latitude:   *r.Latitude,
		Longitude:  *r.Longitude,
		ExternalID: r.PlaceID,
		Category:   r.Category,
	}
}

type listSummary struct {
	ID        id.ListID `json:"id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
}

func toListSummary(l *models.List) listSummary {
	return listSummary{ID: l.ID, Name: l.Name, IsDefault: l.IsDefault}
}

type listDetail struct {
	ID        id.ListID       `json:"id"`
	Name      string          `json:"name"`
	IsDefault bool            `json:"is_default"`
	Locations []*models.Place `json:"locations"`
}

func toListDetail(d *models.ListDetails) listDetail {
	locations := d.Places
	if locations == nil {
		locations = []*models.Place{}
	}
	return listDetail{ID: d.List.ID, Name: d.List.Name, IsDefault: d.List.IsDefault, Locations: locations}
}

type createListResponse struct {
	ID      id.ListID `json:"id"`
	Name    string    `json:"name"`
	Message string    `json:"message"`
}

type addLocationResponse struct {
	Message  string        `json:"message"`
	Location *models.Place `json:"location"`
}

type messageResponse struct {
	Message string `json:"message"`
}
