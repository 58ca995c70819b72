package shared

import "fmt"

var (
	// Session errors
	ErrUnauthorized   = fmt.Errorf("unauthorized")
	ErrSessionExpired = fmt.Errorf("session expired")

	// Remote API errors
	ErrRemoteRejected    = fmt.Errorf("remote rejected request")
	ErrRemoteUnavailable = fmt.Errorf("remote unavailable")
	ErrRetriesExhausted  = fmt.Errorf("retry budget exhausted")

	// Matching errors
	ErrAmbiguousMatch = fmt.Errorf("ambiguous match")
	ErrNotCommittable = fmt.Errorf("nothing to commit")

	// Configuration errors
	ErrMissingConfig = fmt.Errorf("configuration not found")
	ErrInvalidConfig = fmt.Errorf("invalid configuration")

	// Input validation errors
	ErrMalformedInput = fmt.Errorf("malformed input")
	ErrInvalidInput   = fmt.Errorf("invalid input")
	ErrNotFound       = fmt.Errorf("not found")
)
