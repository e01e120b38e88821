package geocoder

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes geocoder failures.
type ErrorCategory string

const (
	// ErrorTimeout indicates the provider took too long to respond
	ErrorTimeout ErrorCategory = "timeout"

	// ErrorBadData indicates the provider returned a malformed body
	ErrorBadData ErrorCategory = "bad_data"

	// ErrorAuthentication indicates a rejected or missing API key
	ErrorAuthentication ErrorCategory = "authentication"

	// ErrorProviderOutage indicates the provider is unreachable or failing
	ErrorProviderOutage ErrorCategory = "provider_outage"

	// ErrorRateLimited indicates the API key quota is exhausted
	ErrorRateLimited ErrorCategory = "rate_limited"

	// ErrorCircuitOpen indicates the call was not attempted
	ErrorCircuitOpen ErrorCategory = "circuit_open"

	// ErrorInternal indicates an unexpected client-side error
	ErrorInternal ErrorCategory = "internal"
)

// ProviderError wraps a failed geocoder call.
type ProviderError struct {
	Category   ErrorCategory
	StatusCode int
	Message    string
	Underlying error
}

func (e *ProviderError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("geoapify [%s]: %s: %v", e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("geoapify [%s]: %s", e.Category, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Underlying
}

func newProviderError(category ErrorCategory, statusCode int, message string, underlying error) *ProviderError {
	return &ProviderError{
		Category:   category,
		StatusCode: statusCode,
		Message:    message,
		Underlying: underlying,
	}
}

// GetCategory extracts the error category from an error.
func GetCategory(err error) ErrorCategory {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Category
	}
	return ErrorInternal
}

// categoryForStatus maps a non-2xx HTTP status to a category.
func categoryForStatus(status int) ErrorCategory {
	switch {
	case status == 401 || status == 403:
		return ErrorAuthentication
	case status == 429:
		return ErrorRateLimited
	case status >= 500:
		return ErrorProviderOutage
	default:
		return ErrorBadData
	}
}

// countsAsFailure reports whether a failure should trip the breaker. Caller
// mistakes and bad keys do not indicate provider health.
func countsAsFailure(category ErrorCategory) bool {
	return category == ErrorTimeout || category == ErrorProviderOutage || category == ErrorRateLimited
}
