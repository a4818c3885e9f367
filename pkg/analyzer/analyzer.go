// Package analyzer classifies benchmark outcomes into blocked and passed
// traffic and counts false positives and false negatives.
//
//	             blocked          passed
//	attack       true positive    false negative (bypass)
//	legitimate   false positive   true negative
package analyzer

import (
	"log/slog"
	"sort"

	"github.com/wafbench/wbt/pkg/protection"
	"github.com/wafbench/wbt/pkg/traffic"
)

// ErrorPolicy decides how transport failures are counted.
type ErrorPolicy int

const (
	// ErrorPolicyExclude leaves failed exchanges out of every count.
	ErrorPolicyExclude ErrorPolicy = iota
	// ErrorPolicyBlocked counts a failed exchange as blocked, for
	// protection systems that answer attacks by dropping the connection.
	ErrorPolicyBlocked
)

func (p ErrorPolicy) String() string {
	if p == ErrorPolicyBlocked {
		return "blocked"
	}
	return "exclude"
}

// ParseErrorPolicy maps "blocked" to ErrorPolicyBlocked and anything else
// to ErrorPolicyExclude.
func ParseErrorPolicy(s string) ErrorPolicy {
	if s == "blocked" {
		return ErrorPolicyBlocked
	}
	return ErrorPolicyExclude
}

// Bypass is an attack the protection system let through.
type Bypass struct {
	VectorID      string `json:"vector_id"`
	Category      string `json:"category"`
	Payload       string `json:"payload"`
	StatusCode    int    `json:"status"`
	MutationIndex int    `json:"mutation_id"`
}

// Failure is a legitimate request the protection system blocked.
type Failure struct {
	Scenario   string `json:"scenario"`
	StatusCode int    `json:"status"`
}

// Stats is the classification summary of one run.
type Stats struct {
	TotalRequests   int       `json:"total_requests"`
	BlockedRequests int       `json:"blocked_requests"`
	PassedRequests  int       `json:"passed_requests"`
	FalsePositives  int       `json:"false_positives"`
	FalseNegatives  int       `json:"false_negatives"`
	Bypasses        []Bypass  `json:"bypasses"`
	Failures        []Failure `json:"failures"`

	// Informational; never part of the totals above.
	TransportErrors int            `json:"transport_errors"`
	LogEntries      int            `json:"protection_log_entries"`
	Correlated      int            `json:"correlated_requests"`
	RuleHits        map[string]int `json:"rule_hits,omitempty"`
}

// Analyzer turns outcomes into Stats.
type Analyzer struct {
	policy ErrorPolicy
	logger *slog.Logger
}

// Option configures an Analyzer.
type Option func(*Analyzer)

// WithLogger sets a custom structured logger for the analyzer.
func WithLogger(l *slog.Logger) Option {
	return func(a *Analyzer) { a.logger = l }
}

// WithErrorPolicy selects how transport failures are counted.
func WithErrorPolicy(p ErrorPolicy) Option {
	return func(a *Analyzer) { a.policy = p }
}

// New creates an analyzer with ErrorPolicyExclude.
func New(opts ...Option) *Analyzer {
	a := &Analyzer{logger: slog.Default()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze applies the default analyzer.
func Analyze(outcomes []traffic.Outcome, logs []protection.LogEntry) Stats {
	return New().Analyze(outcomes, logs)
}

// Analyze classifies outcomes. Protection logs never change the counts;
// they only feed the informational rule and correlation figures.
func (a *Analyzer) Analyze(outcomes []traffic.Outcome, logs []protection.LogEntry) Stats {
	stats := Stats{
		Bypasses: []Bypass{},
		Failures: []Failure{},
	}

	for _, o := range outcomes {
		if o.IsError() {
			stats.TransportErrors++
			if a.policy != ErrorPolicyBlocked {
				continue
			}
			stats.TotalRequests++
			stats.BlockedRequests++
			if !o.IsAttack() {
				stats.FalsePositives++
				stats.Failures = append(stats.Failures, Failure{Scenario: o.SourceID})
			}
			continue
		}

		stats.TotalRequests++
		blocked := o.Blocked()
		switch {
		case o.IsAttack() && blocked:
			stats.BlockedRequests++
		case o.IsAttack():
			stats.PassedRequests++
			stats.FalseNegatives++
			stats.Bypasses = append(stats.Bypasses, Bypass{
				VectorID:      o.VectorID,
				Category:      o.Category,
				Payload:       o.Payload,
				StatusCode:    o.StatusCode,
				MutationIndex: o.MutationIndex,
			})
		case blocked:
			stats.BlockedRequests++
			stats.FalsePositives++
			stats.Failures = append(stats.Failures, Failure{
				Scenario:   o.ScenarioName,
				StatusCode: o.StatusCode,
			})
		default:
			stats.PassedRequests++
		}
	}

	a.correlate(&stats, outcomes, logs)

	a.logger.Info("analysis complete",
		slog.Int("total", stats.TotalRequests),
		slog.Int("blocked", stats.BlockedRequests),
		slog.Int("passed", stats.PassedRequests),
		slog.Int("false_positives", stats.FalsePositives),
		slog.Int("false_negatives", stats.FalseNegatives),
		slog.Int("transport_errors", stats.TransportErrors),
		slog.String("error_policy", a.policy.String()))
	return stats
}

func (a *Analyzer) correlate(stats *Stats, outcomes []traffic.Outcome, logs []protection.LogEntry) {
	stats.LogEntries = len(logs)
	if len(logs) == 0 {
		return
	}

	sent := make(map[string]struct{}, len(outcomes))
	for _, o := range outcomes {
		if o.RequestID != "" {
			sent[o.RequestID] = struct{}{}
		}
	}

	stats.RuleHits = make(map[string]int)
	for _, e := range logs {
		for _, rule := range e.RulesTriggered {
			stats.RuleHits[rule]++
		}
		if _, ok := sent[e.RequestID]; ok && e.RequestID != "" {
			stats.Correlated++
		}
	}
}

// TopRules returns up to n rule ids ordered by hit count, then id.
func (s Stats) TopRules(n int) []string {
	rules := make([]string, 0, len(s.RuleHits))
	for r := range s.RuleHits {
		rules = append(rules, r)
	}
	sort.Slice(rules, func(i, j int) bool {
		if s.RuleHits[rules[i]] != s.RuleHits[rules[j]] {
			return s.RuleHits[rules[i]] > s.RuleHits[rules[j]]
		}
		return rules[i] < rules[j]
	})
	if n >= 0 && len(rules) > n {
		rules = rules[:n]
	}
	return rules
}
