package report

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	pdfapi "github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/metrics"
	"github.com/wafbench/wbt/pkg/scoring"
)

var fixedNow = time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

func sampleSummary(bypasses int) *Summary {
	stats := analyzer.Stats{
		TotalRequests:   20,
		BlockedRequests: 14,
		PassedRequests:  6,
		FalsePositives:  1,
		FalseNegatives:  bypasses,
		Failures:        []analyzer.Failure{{Scenario: "Login Page", StatusCode: 403}},
		RuleHits:        map[string]int{"942100": 3, "941100": 1},
	}
	for i := 0; i < bypasses; i++ {
		stats.Bypasses = append(stats.Bypasses, analyzer.Bypass{
			VectorID:   fmt.Sprintf("sqli-%03d", i),
			Category:   "sql injection",
			Payload:    "' UNION SELECT username, password FROM users WHERE 'a'='a' -- é" + strings.Repeat("x", 40),
			StatusCode: 200,
		})
	}
	acc := metrics.Accuracy{Categories: []metrics.CategoryMetric{
		{Category: "sql injection", Total: 10, Blocked: 7, Bypassed: 3, DetectionRate: 0.7},
	}}
	return &Summary{
		Stats:      stats,
		Report:     scoring.CalculateScore(stats),
		Accuracy:   &acc,
		RunID:      "run-1",
		Mode:       "sequential",
		Target:     "http://localhost:8080",
		Protection: "modsecurity",
	}
}

func newTestGenerator(t *testing.T) *Generator {
	t.Helper()
	return NewGenerator(t.TempDir(),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
		WithClock(func() time.Time { return fixedNow }))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 60))
	long := strings.Repeat("a", 100)
	got := Truncate(long, 60)
	assert.Len(t, got, 60)
	assert.True(t, strings.HasSuffix(got, "..."))
	assert.Equal(t, "ab", Truncate("abcdef", 2))
}

func TestGenerate_WritesAllFormats(t *testing.T) {
	g := newTestGenerator(t)
	paths, err := g.Generate(sampleSummary(3))
	require.NoError(t, err)

	assert.Equal(t, filepath.Join(g.Dir(), "report_20260314_092653.json"), paths.JSON)
	assert.Equal(t, filepath.Join(g.Dir(), "report_20260314_092653.pdf"), paths.PDF)
	assert.Equal(t, filepath.Join(g.Dir(), "report_20260314_092653.md"), paths.Markdown)

	for _, p := range []string{paths.JSON, paths.PDF, paths.Markdown} {
		info, err := os.Stat(p)
		require.NoError(t, err)
		assert.Positive(t, info.Size())
	}
}

func TestGenerate_JSONIsFlat(t *testing.T) {
	g := newTestGenerator(t)
	paths, err := g.Generate(sampleSummary(2))
	require.NoError(t, err)

	data, err := os.ReadFile(paths.JSON)
	require.NoError(t, err)

	var doc map[string]any
	require.NoError(t, jsonutil.Unmarshal(data, &doc))
	for _, key := range []string{"total_requests", "blocked_requests", "passed_requests",
		"false_positives", "false_negatives", "bypasses", "failures", "total_score", "grade", "details"} {
		assert.Contains(t, doc, key)
	}
	assert.EqualValues(t, 75, doc["total_score"])
	assert.Equal(t, "B", doc["grade"])
	assert.Len(t, doc["bypasses"], 2)
}

func TestRenderPDF_Valid(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderPDF(&buf, sampleSummary(5), fixedNow))
	require.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.NoError(t, pdfapi.Validate(bytes.NewReader(buf.Bytes()), nil))
}

func TestRenderPDF_CapsBypassRows(t *testing.T) {
	var small, large bytes.Buffer
	require.NoError(t, RenderPDF(&small, sampleSummary(0), fixedNow))
	require.NoError(t, RenderPDF(&large, sampleSummary(120), fixedNow))
	assert.NoError(t, pdfapi.Validate(bytes.NewReader(large.Bytes()), nil))

	smallPages, err := pdfapi.PageCount(bytes.NewReader(small.Bytes()), nil)
	require.NoError(t, err)
	largePages, err := pdfapi.PageCount(bytes.NewReader(large.Bytes()), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, smallPages, 1)
	assert.LessOrEqual(t, largePages, 4, "only the first rows are rendered")
}

func TestRenderMarkdown(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, sampleSummary(2), fixedNow))
	md := buf.String()

	assert.Contains(t, md, "# WAF Benchmark Toolkit Report")
	assert.Contains(t, md, "Generated: 2026-03-14 09:26:53")
	assert.Contains(t, md, "**75/100** (Grade B)")
	assert.Contains(t, md, "**2 bypasses detected.**")
	assert.Contains(t, md, "| sqli-001 | sql injection | 200 |")
	assert.Contains(t, md, "| Login Page | 1 |")
	assert.Contains(t, md, "| Sql Injection | 10 | 7 | 70.0% |")
	assert.Contains(t, md, "- 942100")
	assert.NotContains(t, md, strings.Repeat("x", 40), "payloads are truncated")
}

func TestRenderMarkdown_NoBypasses(t *testing.T) {
	var buf bytes.Buffer
	s := sampleSummary(0)
	s.Failures = nil
	require.NoError(t, RenderMarkdown(&buf, s, fixedNow))
	assert.Contains(t, buf.String(), "No bypasses detected.")
	assert.Contains(t, buf.String(), "No legitimate traffic was blocked.")
}

func TestRenderMarkdown_CapsBypassRows(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, RenderMarkdown(&buf, sampleSummary(55), fixedNow))
	assert.Contains(t, buf.String(), "sqli-049")
	assert.NotContains(t, buf.String(), "sqli-050")
	assert.Contains(t, buf.String(), "_5 more bypasses in the JSON report._")
}

func TestList_NewestFirst(t *testing.T) {
	g := newTestGenerator(t)
	old := filepath.Join(g.Dir(), "report_20250101_000000.json")
	recent := filepath.Join(g.Dir(), "report_20260101_000000.json")
	require.NoError(t, os.WriteFile(old, []byte("{}"), 0o644))
	require.NoError(t, os.WriteFile(recent, []byte(`{"a":1}`), 0o644))
	require.NoError(t, os.Chtimes(old, fixedNow.Add(-time.Hour), fixedNow.Add(-time.Hour)))
	require.NoError(t, os.Chtimes(recent, fixedNow, fixedNow))
	require.NoError(t, os.Mkdir(filepath.Join(g.Dir(), "sub.d"), 0o755))

	files, err := g.List()
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "report_20260101_000000.json", files[0].Name)
	assert.EqualValues(t, 7, files[0].Size)
	assert.Equal(t, "report_20250101_000000.json", files[1].Name)
}

func TestList_MissingDir(t *testing.T) {
	g := NewGenerator(filepath.Join(t.TempDir(), "none"))
	files, err := g.List()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.NotNil(t, files)
}

func TestPath(t *testing.T) {
	g := newTestGenerator(t)
	require.NoError(t, os.WriteFile(filepath.Join(g.Dir(), "report_x.pdf"), []byte("%PDF"), 0o644))

	p, err := g.Path("report_x.pdf")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(g.Dir(), "report_x.pdf"), p)

	_, err = g.Path("missing.pdf")
	assert.True(t, errors.Is(err, ErrNotFound))

	for _, bad := range []string{"", "..", "../etc/passwd", "a/b.pdf", `a\b.pdf`} {
		_, err := g.Path(bad)
		assert.True(t, errors.Is(err, ErrInvalidName), bad)
	}
}

func TestLatest(t *testing.T) {
	var s *Summary
	assert.Equal(t, LatestStats{}, s.Latest())
	assert.Equal(t, LatestStats{TotalRequests: 20, BlockedRequests: 14, PassedRequests: 6, FalsePositives: 1},
		sampleSummary(0).Latest())
}
