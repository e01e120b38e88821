package models

import (
	"strings"
	"time"

	id "waypoint/pkg/domain"
	dErrors "waypoint/pkg/domain-errors"
)

// Default list names, in creation order.
const (
	DefaultListFavorites = "Favorites"
	DefaultListPlanned   = "Planned"
)

// DefaultListNames are provisioned for every new account.
var DefaultListNames = []string{DefaultListFavorites, DefaultListPlanned}

// MaxListNameLength bounds user-chosen list names.
const MaxListNameLength = 100

// PlaceAttributes describe a place as reported by the geocoder.
type PlaceAttributes struct {
	Name       string
	Address    string
	Latitude   float64
	Longitude  float64
	ExternalID string
	Category   string
}

// Normalize trims surrounding whitespace from the textual attributes.
func (a *PlaceAttributes) Normalize() {
	a.Name = strings.TrimSpace(a.Name)
	a.Address = strings.TrimSpace(a.Address)
	a.ExternalID = strings.TrimSpace(a.ExternalID)
	a.Category = strings.TrimSpace(a.Category)
}

// Place is the canonical record of an external place. At most one Place
// exists per ExternalID. Places are never mutated after creation and never
// deleted, even when no list references them.
type Place struct {
	ID         id.PlaceID `json:"id"`
	ExternalID string     `json:"place_id"`
	Name       string     `json:"name"`
	Address    string     `json:"address"`
	Latitude   float64    `json:"latitude"`
	Longitude  float64    `json:"longitude"`
	Category   string     `json:"category"`
	CreatedAt  time.Time  `json:"created_at"`
}

// NewPlace builds an unsaved Place. The external id is the dedup key and
// must be present.
func NewPlace(attrs PlaceAttributes, now time.Time) (*Place, error) {
	attrs.Normalize()
	if attrs.ExternalID == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "place external id is required")
	}
	return &Place{
		ExternalID: attrs.ExternalID,
		Name:       attrs.Name,
		Address:    attrs.Address,
		Latitude:   attrs.Latitude,
		Longitude:  attrs.Longitude,
		Category:   attrs.Category,
		CreatedAt:  now,
	}, nil
}

// List is a user-owned named collection of places.
//
// Invariants:
//   - every user owns exactly two default lists, created with the account
//   - default lists cannot be deleted
//   - list names need not be unique
type List struct {
	ID        id.ListID `json:"id"`
	UserID    id.UserID `json:"user_id"`
	Name      string    `json:"name"`
	IsDefault bool      `json:"is_default"`
	CreatedAt time.Time `json:"created_at"`
}

// NewList builds an unsaved user list.
func NewList(userID id.UserID, name string, now time.Time) (*List, error) {
	name = strings.TrimSpace(name)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "list owner is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "list name is required")
	}
	if len([]rune(name)) > MaxListNameLength {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "list name must be at most 100 characters")
	}
	return &List{UserID: userID, Name: name, CreatedAt: now}, nil
}

// NewDefaultLists builds the Favorites and Planned lists for a new account.
func NewDefaultLists(userID id.UserID, now time.Time) []*List {
	lists := make([]*List, 0, len(DefaultListNames))
	for _, name := range DefaultListNames {
		lists = append(lists, &List{UserID: userID, Name: name, IsDefault: true, CreatedAt: now})
	}
	return lists
}

// CanDelete reports whether the list may be removed.
func (l *List) CanDelete() error {
	if l.IsDefault {
		return ErrDefaultListProtected
	}
	return nil
}

// Membership links a place into a list. (ListID, PlaceID) is unique.
type Membership struct {
	ID        id.MembershipID
	ListID    id.ListID
	PlaceID   id.PlaceID
	CreatedAt time.Time
}

// MembershipStatus is one row of the membership matrix for a place.
type MembershipStatus struct {
	ListID   id.ListID `json:"id"`
	ListName string    `json:"name"`
	IsMember bool      `json:"added"`
}

// ListDetails is a list together with its places in insertion order.
type ListDetails struct {
	List   *List
	Places []*Place
}
