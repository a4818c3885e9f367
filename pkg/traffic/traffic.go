// Package traffic defines the record produced by every benchmark request,
// attack or legitimate, and the status-code rule that decides whether the
// protection system blocked it.
package traffic

import (
	"sort"
	"time"
)

// blockedStatus is the fixed set of status codes treated as evidence that
// the protection system blocked a request.
var blockedStatus = map[int]struct{}{
	400: {}, 403: {}, 404: {}, 406: {}, 500: {}, 502: {}, 503: {},
}

// BlockedStatusCodes returns the blocked-status set, sorted.
func BlockedStatusCodes() []int {
	codes := make([]int, 0, len(blockedStatus))
	for c := range blockedStatus {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// IsBlocked reports whether status is in the blocked-status set.
func IsBlocked(status int) bool {
	_, ok := blockedStatus[status]
	return ok
}

// Verdict renders the per-request classification used in logs.
func Verdict(status int) string {
	if IsBlocked(status) {
		return "BLOCKED"
	}
	return "PASSED"
}

// Kind tells attack traffic from legitimate traffic.
type Kind string

const (
	KindAttack Kind = "attack"
	KindLegit  Kind = "legit"
)

// Outcome is the result of one network exchange. Exactly one of three
// shapes is populated: attack (VectorID set), legitimate (ScenarioName
// set) or error (Error set, with SourceID naming the vector or scenario).
type Outcome struct {
	Kind Kind `json:"type"`

	// Attack traffic
	VectorID      string `json:"vector_id,omitempty"`
	Category      string `json:"category,omitempty"`
	Payload       string `json:"payload,omitempty"`
	MutationIndex int    `json:"mutation_index"`
	ResponseSize  int64  `json:"response_size,omitzero"`
	ResponseHash  uint32 `json:"response_hash,omitzero"`

	// Legitimate traffic
	ScenarioName string `json:"scenario,omitempty"`
	UserIndex    int    `json:"user_index"`

	StatusCode int     `json:"status_code,omitzero"`
	LatencyMs  float64 `json:"latency_ms,omitzero"`
	RequestID  string  `json:"request_id,omitempty"`

	// Transport failure
	SourceID string `json:"source_id,omitempty"`
	Error    string `json:"error,omitempty"`

	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
}

// IsError reports whether the outcome records a transport failure.
func (o Outcome) IsError() bool {
	return o.Error != ""
}

// IsAttack reports whether the outcome came from attack traffic. Error
// records carry no vector id and fall back to their Kind.
func (o Outcome) IsAttack() bool {
	if o.VectorID != "" {
		return true
	}
	return o.IsError() && o.Kind == KindAttack
}

// Blocked applies the blocked-status rule to the recorded status.
func (o Outcome) Blocked() bool {
	return IsBlocked(o.StatusCode)
}

// Failed builds an error record for a transport failure.
func Failed(kind Kind, sourceID string, err error, started time.Time) Outcome {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return Outcome{
		Kind:       kind,
		SourceID:   sourceID,
		Error:      msg,
		StartedAt:  started,
		FinishedAt: time.Now(),
	}
}

// Span returns the earliest start and latest finish across outcomes.
// Zero times are ignored; both results are zero for an empty input.
func Span(outcomes []Outcome) (start, end time.Time) {
	for _, o := range outcomes {
		if !o.StartedAt.IsZero() && (start.IsZero() || o.StartedAt.Before(start)) {
			start = o.StartedAt
		}
		if o.FinishedAt.After(end) {
			end = o.FinishedAt
		}
	}
	return start, end
}
