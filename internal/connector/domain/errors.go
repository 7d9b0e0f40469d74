package domain

import "errors"

// Error kinds surfaced by the connector. Callers match with errors.Is; the
// wrapped message carries the company id and HTTP status where applicable.
var (
	// ErrAuthentication covers missing/expired/invalid tokens, failed
	// exchange/refresh/revoke and 401/403 responses from the provider.
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimited is returned when the provider responds 429 after the
	// retry budget is exhausted.
	ErrRateLimited = errors.New("rate limit exceeded")

	// ErrAPI covers any other non-2xx or transport failure from business
	// API calls.
	ErrAPI = errors.New("api request failed")

	// ErrCompanyNotFound is returned for unknown company ids and for
	// cross-tenant access attempts.
	ErrCompanyNotFound = errors.New("company not found")

	// OAuth state failures. Decoding fails closed.
	ErrInvalidState          = errors.New("invalid oauth state")
	ErrInvalidStateSignature = errors.New("invalid oauth state signature")
	ErrMissingCompanyID      = errors.New("missing company id in oauth state")
)
