package orchestrator

import (
	"fmt"
	"strings"
	"time"
)

// State is the run lifecycle state.
type State string

const (
	StateIdle    State = "IDLE"
	StateRunning State = "RUNNING"
)

// Transition is one recorded state change.
type Transition struct {
	From   State     `json:"from"`
	To     State     `json:"to"`
	At     time.Time `json:"at"`
	Reason string    `json:"reason,omitempty"`
}

// Mode selects how legitimate and attack traffic are scheduled.
type Mode string

const (
	// ModeSequential finishes all legitimate traffic before any attack starts.
	ModeSequential Mode = "sequential"
	// ModeConcurrent runs both streams at once and waits for both.
	ModeConcurrent Mode = "concurrent"
)

// ParseMode validates a mode name. An empty name means sequential.
func ParseMode(s string) (Mode, error) {
	switch m := Mode(strings.ToLower(strings.TrimSpace(s))); m {
	case "":
		return ModeSequential, nil
	case ModeSequential, ModeConcurrent:
		return m, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMode, s)
	}
}

// Status is the outcome of a Start call.
type Status string

const (
	StatusSuccess  Status = "success"
	StatusConflict Status = "conflict"
	StatusError    Status = "error"
)
