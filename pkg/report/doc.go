// Package report writes the artefacts of a finished benchmark run.
//
// The package is organized by concern across multiple files:
//
// # Summary (summary.go)
//
// Summary, the flat result set of one run: classification stats, score,
// accuracy figures and run metadata. Its JSON form is the "results" object
// returned by the orchestrator and the API.
//
// # Generation (generator.go)
//
// Generator writes report_YYYYMMDD_HHMMSS.json, .pdf and .md into the
// report directory and lists or opens what is already there.
//
// # PDF (pdf.go)
//
// Executive summary, bypass table (first 50 rows, payloads cut to 60
// characters), false-positive table, per-category figures and a dump of
// the remaining metrics.
//
// # Markdown (markdown.go)
//
// A text/template rendering with sprig helpers, suitable for pasting into
// tickets and pull requests.
package report
