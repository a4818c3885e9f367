package protection

import "errors"

// Sentinel errors for adapter selection and log access.
// Callers should use errors.Is() to check for these.
var (
	// ErrUnknownAdapter indicates the configured adapter type has no
	// registered implementation.
	ErrUnknownAdapter = errors.New("protection: unknown adapter type")

	// ErrLogUnavailable indicates the protection log exists but could
	// not be read.
	ErrLogUnavailable = errors.New("protection: log unavailable")
)
