package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	gofpdf "github.com/go-pdf/fpdf"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wafbench/wbt/pkg/defaults"
)

// Truncate shortens s to max runes, ending with "..." when cut.
func Truncate(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	if max <= 3 {
		return string(r[:max])
	}
	return string(r[:max-3]) + "..."
}

// RenderPDF writes the PDF report for s to w.
func RenderPDF(w io.Writer, s *Summary, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("WAF Benchmark Toolkit Report", true)
	pdf.SetAuthor(defaults.ToolName+" "+defaults.Version, true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.AliasNbPages("")
	pdf.SetFooterFunc(func() {
		pdf.SetY(-12)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.SetTextColor(120, 120, 120)
		pdf.CellFormat(0, 8, fmt.Sprintf("Page %d/{nb}", pdf.PageNo()), "", 0, "C", false, 0, "")
	})
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, "WAF Benchmark Toolkit Report", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 8, "Generated: "+generated.Format("2006-01-02 15:04:05"), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	addExecutiveSummary(pdf, tr, s)
	addBypassTable(pdf, tr, s)
	addFailureTable(pdf, tr, s)
	addCategoryTable(pdf, tr, s)
	addTechnicalMetrics(pdf, tr, s)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf report: %w", err)
	}
	return nil
}

func heading(pdf *gofpdf.Fpdf, text string) {
	pdf.SetFont("Helvetica", "B", 14)
	pdf.SetTextColor(0, 0, 0)
	pdf.CellFormat(0, 10, text, "", 1, "L", false, 0, "")
}

func addExecutiveSummary(pdf *gofpdf.Fpdf, tr func(string) string, s *Summary) {
	heading(pdf, "1. Executive Summary")
	pdf.SetFont("Helvetica", "", 11)

	lines := []string{
		fmt.Sprintf("Total Score: %d/100 (Grade %s)", s.TotalScore, s.Grade),
		fmt.Sprintf("Total Traffic: %d Requests", s.TotalRequests),
		fmt.Sprintf("Blocked Requests: %d", s.BlockedRequests),
		fmt.Sprintf("Successful Bypasses: %d", s.FalseNegatives),
		fmt.Sprintf("False Positives: %d", s.FalsePositives),
	}
	if s.Target != "" {
		lines = append([]string{"Target: " + s.Target}, lines...)
	}
	for _, l := range lines {
		pdf.CellFormat(0, 8, tr(l), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addBypassTable(pdf *gofpdf.Fpdf, tr func(string) string, s *Summary) {
	heading(pdf, "2. Attack Vector Analysis")
	pdf.SetFont("Helvetica", "", 10)

	if len(s.Bypasses) == 0 {
		pdf.SetTextColor(0, 150, 0)
		pdf.CellFormat(0, 10, "No bypasses detected. All attack vectors were blocked.", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		return
	}

	pdf.SetTextColor(200, 0, 0)
	pdf.CellFormat(0, 8, fmt.Sprintf("CRITICAL: %d Bypasses Detected", len(s.Bypasses)), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(30, 8, "Vector ID", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Category", "1", 0, "C", true, 0, "")
	pdf.CellFormat(15, 8, "Status", "1", 0, "C", true, 0, "")
	pdf.CellFormat(115, 8, "Payload (Truncated)", "1", 1, "C", true, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	rows := s.Bypasses
	if len(rows) > defaults.MaxReportBypasses {
		rows = rows[:defaults.MaxReportBypasses]
	}
	for _, b := range rows {
		pdf.CellFormat(30, 6, tr(Truncate(b.VectorID, 18)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, tr(Truncate(b.Category, 18)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprint(b.StatusCode), "1", 0, "C", false, 0, "")
		pdf.CellFormat(115, 6, tr(Truncate(b.Payload, defaults.MaxReportPayloadLen)), "1", 1, "L", false, 0, "")
	}
	if len(s.Bypasses) > len(rows) {
		pdf.SetFont("Helvetica", "I", 8)
		pdf.CellFormat(0, 6, fmt.Sprintf("... %d more bypasses in the JSON report", len(s.Bypasses)-len(rows)), "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)
}

func addFailureTable(pdf *gofpdf.Fpdf, tr func(string) string, s *Summary) {
	heading(pdf, "3. False Positives")
	pdf.SetFont("Helvetica", "", 10)

	if len(s.Failures) == 0 {
		pdf.SetTextColor(0, 150, 0)
		pdf.CellFormat(0, 10, "No legitimate traffic was blocked.", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
		return
	}

	counts := map[string]int{}
	for _, f := range s.Failures {
		counts[f.Scenario]++
	}
	names := make([]string, 0, len(counts))
	for n := range counts {
		names = append(names, n)
	}
	sort.Strings(names)

	pdf.SetFillColor(240, 240, 240)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(120, 8, "Scenario", "1", 0, "C", true, 0, "")
	pdf.CellFormat(40, 8, "Blocked Requests", "1", 1, "C", true, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	for _, n := range names {
		pdf.CellFormat(120, 6, tr(n), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 6, fmt.Sprint(counts[n]), "1", 1, "C", false, 0, "")
	}
	pdf.Ln(4)
}

func addCategoryTable(pdf *gofpdf.Fpdf, tr func(string) string, s *Summary) {
	if s.Accuracy == nil || len(s.Accuracy.Categories) == 0 {
		return
	}
	heading(pdf, "4. Category Breakdown")
	titleCase := cases.Title(language.English)

	pdf.SetFillColor(30, 41, 59)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(70, 8, "Category", "1", 0, "L", true, 0, "")
	pdf.CellFormat(30, 8, "Requests", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Blocked", "1", 0, "C", true, 0, "")
	pdf.CellFormat(30, 8, "Detection", "1", 1, "C", true, 0, "")

	pdf.SetTextColor(60, 60, 60)
	pdf.SetFont("Helvetica", "", 9)
	for _, c := range s.Accuracy.Categories {
		pdf.CellFormat(70, 6, tr(titleCase.String(c.Category)), "1", 0, "L", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprint(c.Total), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprint(c.Blocked), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%.1f%%", c.DetectionRate*100), "1", 1, "C", false, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)
}

func addTechnicalMetrics(pdf *gofpdf.Fpdf, tr func(string) string, s *Summary) {
	heading(pdf, "Technical Metrics")
	pdf.SetFont("Courier", "", 8)

	kv := [][2]string{
		{"run_id", s.RunID},
		{"mode", s.Mode},
		{"protection", s.Protection},
		{"duration_ms", fmt.Sprintf("%.0f", s.DurationMs)},
		{"total_requests", fmt.Sprint(s.TotalRequests)},
		{"blocked_requests", fmt.Sprint(s.BlockedRequests)},
		{"passed_requests", fmt.Sprint(s.PassedRequests)},
		{"false_negatives", fmt.Sprint(s.FalseNegatives)},
		{"false_positives", fmt.Sprint(s.FalsePositives)},
		{"transport_errors", fmt.Sprint(s.TransportErrors)},
		{"bypass_penalty", fmt.Sprint(s.Details.BypassPenalty)},
		{"fp_penalty", fmt.Sprint(s.Details.FPPenalty)},
		{"protection_log_entries", fmt.Sprint(s.LogEntries)},
		{"correlated_requests", fmt.Sprint(s.Correlated)},
	}
	if a := s.Accuracy; a != nil {
		kv = append(kv,
			[2]string{"detection_rate", fmt.Sprintf("%.3f", a.DetectionRate)},
			[2]string{"false_positive_rate", fmt.Sprintf("%.3f", a.FalsePositiveRate)},
			[2]string{"f1_score", fmt.Sprintf("%.3f", a.F1Score)},
			[2]string{"mcc", fmt.Sprintf("%.3f", a.MCC)},
			[2]string{"p95_latency_ms", fmt.Sprintf("%.1f", a.P95LatencyMs)},
		)
	}
	if rules := s.TopRules(10); len(rules) > 0 {
		kv = append(kv, [2]string{"top_rules", fmt.Sprint(rules)})
	}
	for _, p := range kv {
		if p[1] == "" {
			continue
		}
		pdf.CellFormat(0, 5, tr(Truncate(p[0]+": "+p[1], 90)), "", 1, "L", false, 0, "")
	}
}
