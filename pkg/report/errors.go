package report

import "errors"

// Sentinel errors for report access.
var (
	// ErrNotFound indicates the requested report file does not exist.
	ErrNotFound = errors.New("report: not found")

	// ErrInvalidName indicates a report name that is not a plain file
	// name inside the report directory.
	ErrInvalidName = errors.New("report: invalid name")
)
