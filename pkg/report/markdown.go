package report

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/Masterminds/sprig/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/defaults"
)

const markdownTemplate = `# WAF Benchmark Toolkit Report

Generated: {{ .Generated.Format "2006-01-02 15:04:05" }}
{{- with .S.Target }}
Target: ` + "`{{ . }}`" + `
{{- end }}
{{- with .S.Protection }}
Protection: {{ . }}
{{- end }}

## Executive Summary

| Metric | Value |
|---|---|
| Total Score | **{{ .S.TotalScore }}/100** (Grade {{ .S.Grade }}) |
| Total Traffic | {{ .S.TotalRequests }} |
| Blocked | {{ .S.BlockedRequests }} |
| Passed | {{ .S.PassedRequests }} |
| Bypasses | {{ .S.FalseNegatives }} |
| False Positives | {{ .S.FalsePositives }} |
| Transport Errors | {{ .S.TransportErrors }} |

## Attack Vector Analysis
{{ if not .S.Bypasses }}
No bypasses detected. All attack vectors were blocked.
{{ else }}
**{{ len .S.Bypasses }} bypasses detected.**

| Vector | Category | Status | Payload |
|---|---|---|---|
{{- range .Bypasses }}
| {{ .VectorID | cell }} | {{ .Category | cell }} | {{ .StatusCode }} | ` + "`{{ .Payload | short | cell }}`" + ` |
{{- end }}
{{- if gt (len .S.Bypasses) (len .Bypasses) }}

_{{ sub (len .S.Bypasses) (len .Bypasses) }} more bypasses in the JSON report._
{{- end }}
{{ end }}
## False Positives
{{ if not .S.Failures }}
No legitimate traffic was blocked.
{{ else }}
| Scenario | Blocked |
|---|---|
{{- range .Failures }}
| {{ .Name | cell }} | {{ .Count }} |
{{- end }}
{{ end }}
{{- with .S.Accuracy }}{{ if .Categories }}
## Category Breakdown

| Category | Requests | Blocked | Detection |
|---|---|---|---|
{{- range .Categories }}
| {{ .Category | title | cell }} | {{ .Total }} | {{ .Blocked }} | {{ mulf .DetectionRate 100 | printf "%.1f" }}% |
{{- end }}
{{ end }}{{ end }}
{{- if .Rules }}
## Top Triggered Rules

{{ range .Rules }}- {{ . }}
{{ end }}
{{- end }}`

var markdownTmpl = sync.OnceValue(func() *template.Template {
	titleCase := cases.Title(language.English)
	funcMap := sprig.TxtFuncMap()
	funcMap["title"] = titleCase.String
	funcMap["cell"] = func(s string) string {
		return strings.NewReplacer("|", `\|`, "\n", " ", "\r", "").Replace(s)
	}
	funcMap["short"] = func(s string) string { return Truncate(s, defaults.MaxReportPayloadLen) }
	return template.Must(template.New("report").Funcs(funcMap).Parse(markdownTemplate))
})

type scenarioCount struct {
	Name  string
	Count int
}

type markdownData struct {
	S         *Summary
	Generated time.Time
	Bypasses  []analyzer.Bypass
	Failures  []scenarioCount
	Rules     []string
}

// RenderMarkdown writes the Markdown report for s to w.
func RenderMarkdown(w io.Writer, s *Summary, generated time.Time) error {
	bypasses := s.Bypasses
	if len(bypasses) > defaults.MaxReportBypasses {
		bypasses = bypasses[:defaults.MaxReportBypasses]
	}

	counts := map[string]int{}
	for _, f := range s.Failures {
		counts[f.Scenario]++
	}
	failures := make([]scenarioCount, 0, len(counts))
	for n, c := range counts {
		failures = append(failures, scenarioCount{Name: n, Count: c})
	}
	sort.Slice(failures, func(i, j int) bool { return failures[i].Name < failures[j].Name })

	data := markdownData{
		S:         s,
		Generated: generated,
		Bypasses:  bypasses,
		Failures:  failures,
		Rules:     s.TopRules(10),
	}
	if err := markdownTmpl().Execute(w, data); err != nil {
		return fmt.Errorf("render markdown report: %w", err)
	}
	return nil
}
