package payloads

import "errors"

// Sentinel errors for payload catalog failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrInvalidVector indicates a vector failed validation (missing id or
	// payload, unknown location).
	ErrInvalidVector = errors.New("payloads: invalid attack vector")

	// ErrUnsupportedFormat indicates a file extension the catalog cannot parse.
	ErrUnsupportedFormat = errors.New("payloads: unsupported file format")
)
