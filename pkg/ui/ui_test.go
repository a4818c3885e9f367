package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/report"
	"github.com/wafbench/wbt/pkg/scoring"
)

func summary(fn, fp int) *report.Summary {
	stats := analyzer.Stats{TotalRequests: 12, BlockedRequests: 8, PassedRequests: 4, FalseNegatives: fn, FalsePositives: fp}
	return &report.Summary{Stats: stats, Report: scoring.CalculateScore(stats), Target: "http://waf.local", Mode: "sequential"}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "ok  café", Sanitize("ok ✓ café", false))
	assert.Equal(t, "ok ✓", Sanitize("ok ✓", true))
	assert.Equal(t, "x", Sanitize("x️", false))
}

func TestIsTerminal_Buffer(t *testing.T) {
	var buf bytes.Buffer
	assert.False(t, IsTerminal(&buf))
	assert.False(t, SupportsUnicode(&buf))
}

func TestConsole_Summary(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithNoColor(true))
	c.Summary(summary(2, 1), &report.Paths{JSON: "reports/r.json", PDF: "reports/r.pdf"})

	out := buf.String()
	assert.NotContains(t, out, "\x1b[", "no ANSI codes when writing to a buffer")
	assert.Contains(t, out, "http://waf.local")
	assert.Contains(t, out, "75/100  Grade B")
	assert.Contains(t, out, "[!!] 2 payloads bypassed the protection")
	assert.Contains(t, out, "reports/r.json")
	assert.Contains(t, out, "reports/r.pdf")
}

func TestConsole_AllBlocked(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Summary(summary(0, 0), nil)
	assert.Contains(t, buf.String(), "[OK] all attack payloads were blocked")
	assert.NotContains(t, buf.String(), "Reports")
}

func TestConsole_Silent(t *testing.T) {
	var buf bytes.Buffer
	c := NewConsole(&buf, WithSilent(true))
	c.Banner()
	c.Summary(summary(1, 0), nil)
	assert.Empty(t, buf.String())
}

func TestConsole_Banner(t *testing.T) {
	var buf bytes.Buffer
	NewConsole(&buf).Banner()
	assert.Contains(t, buf.String(), "WAF Benchmark Toolkit")
}

func TestGradeStyle(t *testing.T) {
	for _, g := range []string{"A", "B", "C", "D", "F"} {
		assert.NotPanics(t, func() { GradeStyle(g).Render(g) })
	}
}
