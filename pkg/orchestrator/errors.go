package orchestrator

import "errors"

// Sentinel errors for run orchestration.
var (
	// ErrAlreadyRunning is returned when a run is requested while another
	// is in progress.
	ErrAlreadyRunning = errors.New("orchestrator: benchmark already running")

	// ErrInvalidMode indicates an unknown execution mode.
	ErrInvalidMode = errors.New("orchestrator: invalid mode")

	// ErrRunFault wraps a panic or internal failure during a run.
	ErrRunFault = errors.New("orchestrator: run failed")
)
