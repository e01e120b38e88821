package models

import dErrors "waypoint/pkg/domain-errors"

// Domain errors returned by the catalog service. Compare with errors.Is.
var (
	ErrListNotFound         = dErrors.New(dErrors.CodeNotFound, "List not found")
	ErrLocationNotFound     = dErrors.New(dErrors.CodeNotFound, "Location not found")
	ErrNotMember            = dErrors.New(dErrors.CodeNotFound, "Location not in list")
	ErrAlreadyMember        = dErrors.New(dErrors.CodeConflict, "Location already in list")
	ErrDefaultListProtected = dErrors.New(dErrors.CodeForbidden, "Default lists cannot be deleted")
	ErrDefaultListsExist    = dErrors.New(dErrors.CodeConflict, "Default lists already exist")
)
