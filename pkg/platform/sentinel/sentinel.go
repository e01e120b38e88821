package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors:
//   - ErrNotFound: the row does not exist or is not visible to the caller
//   - ErrAlreadyUsed: a uniqueness constraint rejected the write
//   - ErrUnavailable: the backing service could not be reached
//   - ErrInvalidState: the write was rejected before reaching storage
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrUnavailable  = errors.New("unavailable")
	ErrInvalidState = errors.New("invalid state")
)
