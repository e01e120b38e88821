package audit

import (
	"time"

	id "waypoint/pkg/domain"
)

// EventCategory classifies audit events for downstream routing.
type EventCategory string

const (
	// CategorySecurity covers account lifecycle and authentication.
	CategorySecurity EventCategory = "security"
	// CategoryCatalog covers changes to a user's lists and their contents.
	CategoryCatalog EventCategory = "catalog"
)

// Action names an audited operation.
type Action string

const (
	EventUserRegistered  Action = "user_registered"
	EventUserLoggedIn    Action = "user_logged_in"
	EventLoginFailed     Action = "login_failed"
	EventUserLoggedOut   Action = "user_logged_out"
	EventListCreated     Action = "list_created"
	EventListDeleted     Action = "list_deleted"
	EventLocationAdded   Action = "location_added"
	EventLocationRemoved Action = "location_removed"
)

// Category returns the category an action belongs to.
func (a Action) Category() EventCategory {
	switch a {
	case EventListCreated, EventListDeleted, EventLocationAdded, EventLocationRemoved:
		return CategoryCatalog
	default:
		return CategorySecurity
	}
}

// Event is emitted from domain logic to capture key actions. Sinks decide
// how it is stored or shipped.
type Event struct {
	Action     Action            `json:"action"`
	Category   EventCategory     `json:"category"`
	UserID     id.UserID         `json:"user_id"`
	Subject    string            `json:"subject,omitempty"`
	RequestID  string            `json:"request_id,omitempty"`
	ClientIP   string            `json:"client_ip,omitempty"`
	Attributes map[string]string `json:"attributes,omitempty"`
	Timestamp  time.Time         `json:"timestamp"`
}

// Normalize fills the derived fields an emitter may leave empty.
func (e Event) Normalize(now time.Time) Event {
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if e.Category == "" {
		e.Category = e.Action.Category()
	}
	return e
}
