package contract

import "errors"

var (
	// Gate and resolution failures, detected before any handler runs.
	ErrConsentDenied      = errors.New("consent denied")
	ErrNoCapableAgent     = errors.New("no capable agent")
	ErrInvalidPayload     = errors.New("invalid task payload")
	ErrCapabilityDisabled = errors.New("capability disabled by administrators")

	// Routing failures. ErrRoutingUnavailable is the explicit "routing
	// offline" result when no generation backend is configured.
	ErrRouting            = errors.New("free-text routing failed")
	ErrRoutingUnavailable = errors.New("routing unavailable")

	// Backend failures.
	ErrModelUnavailable     = errors.New("generation backend unavailable")
	ErrModelTimeout         = errors.New("generation backend timed out")
	ErrMalformedOutput      = errors.New("backend output violates schema")
	ErrEmbeddingUnavailable = errors.New("embedding provider unavailable")

	// Storage failures.
	ErrPersistenceWrite = errors.New("index persistence failed")

	ErrValidation = errors.New("validation failed")
)
