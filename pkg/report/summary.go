package report

import (
	"time"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/metrics"
	"github.com/wafbench/wbt/pkg/scoring"
)

// Summary is the complete result of one run.
type Summary struct {
	analyzer.Stats `json:",inline"`
	scoring.Report `json:",inline"`

	Accuracy *metrics.Accuracy `json:"accuracy,omitempty"`

	RunID      string    `json:"run_id,omitempty"`
	Mode       string    `json:"mode,omitempty"`
	Target     string    `json:"target,omitempty"`
	Protection string    `json:"protection,omitempty"`
	StartedAt  time.Time `json:"started_at,omitzero"`
	FinishedAt time.Time `json:"finished_at,omitzero"`
	DurationMs float64   `json:"duration_ms,omitzero"`
}

// Paths lists the files written for one run.
type Paths struct {
	JSON     string `json:"json"`
	PDF      string `json:"pdf"`
	Markdown string `json:"markdown,omitempty"`
}

// LatestStats is the cut-down view served to dashboards.
type LatestStats struct {
	TotalRequests   int `json:"total_requests"`
	BlockedRequests int `json:"blocked_requests"`
	PassedRequests  int `json:"passed_requests"`
	FalsePositives  int `json:"false_positives"`
}

// Latest extracts the dashboard counters. A nil summary yields zeros.
func (s *Summary) Latest() LatestStats {
	if s == nil {
		return LatestStats{}
	}
	return LatestStats{
		TotalRequests:   s.TotalRequests,
		BlockedRequests: s.BlockedRequests,
		PassedRequests:  s.PassedRequests,
		FalsePositives:  s.FalsePositives,
	}
}
