package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"

	dErrors "waypoint/pkg/domain-errors"
)

// UserID identifies an account. Users are keyed by UUID so identifiers never
// reveal registration order.
type UserID uuid.UUID

// ListID identifies a saved list. Lists use storage-assigned sequence numbers;
// ordering by ListID is creation order.
type ListID int64

// PlaceID is the internal identifier of a canonical place record.
type PlaceID int64

// MembershipID identifies a list/place link.
type MembershipID int64

func (u UserID) String() string { return uuid.UUID(u).String() }

// IsNil reports whether the id is the zero UUID.
func (u UserID) IsNil() bool { return uuid.UUID(u) == uuid.Nil }

// MarshalText encodes the id in canonical UUID form.
func (u UserID) MarshalText() ([]byte, error) {
	return uuid.UUID(u).MarshalText()
}

// UnmarshalText decodes a canonical UUID.
func (u *UserID) UnmarshalText(b []byte) error {
	var parsed uuid.UUID
	if err := parsed.UnmarshalText(b); err != nil {
		return err
	}
	*u = UserID(parsed)
	return nil
}

func (l ListID) String() string { return strconv.FormatInt(int64(l), 10) }

func (p PlaceID) String() string { return strconv.FormatInt(int64(p), 10) }

// NewUserID returns a fresh random user id.
func NewUserID() UserID { return UserID(uuid.New()) }

// ParseUserID validates a user id at a trust boundary. Empty, malformed and
// nil UUIDs are rejected.
func ParseUserID(s string) (UserID, error) {
	if s == "" {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "user id is required")
	}
	parsed, err := uuid.Parse(s)
	if err != nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	if parsed == uuid.Nil {
		return UserID{}, dErrors.New(dErrors.CodeInvalidInput, "invalid user id")
	}
	return UserID(parsed), nil
}

// ParseListID parses a positive decimal list id taken from a URL path.
func ParseListID(s string) (ListID, error) {
	n, err := parsePositive(s)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeInvalidInput, "invalid list id")
	}
	return ListID(n), nil
}

func parsePositive(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" || len(s) > 19 {
		return 0, strconv.ErrSyntax
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, strconv.ErrRange
	}
	return n, nil
}
