package eutils

import (
	"errors"
	"fmt"
)

// Common errors returned by the E-utilities client. A PMID with no PMC
// record is not an error; PMCID returns an empty string for it.
var (
	// ErrLookup is wrapped by every transport or protocol failure.
	ErrLookup = errors.New("PMID lookup failed")

	// ErrNetworkError indicates a network connectivity issue.
	ErrNetworkError = fmt.Errorf("%w: network error communicating with NCBI", ErrLookup)

	// ErrInvalidResponse indicates an unexpected API response body.
	ErrInvalidResponse = fmt.Errorf("%w: invalid response from NCBI", ErrLookup)

	// ErrRateLimited indicates NCBI rejected the request for exceeding its rate limit.
	ErrRateLimited = fmt.Errorf("%w: NCBI rate limit exceeded", ErrLookup)
)

// APIError represents an HTTP-level error from E-utilities.
type APIError struct {
	StatusCode int
	PMID       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("NCBI API error (status %d) for PMID %s", e.StatusCode, e.PMID)
}

// Is lets errors.Is(err, ErrLookup) match API errors.
func (e *APIError) Is(target error) bool {
	return target == ErrLookup
}

// IsLookupError reports whether err is a PMID lookup failure.
func IsLookupError(err error) bool {
	return errors.Is(err, ErrLookup)
}
