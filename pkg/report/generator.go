package report

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/jsonutil"
)

// StampLayout formats the timestamp embedded in report file names.
const StampLayout = "20060102_150405"

// Generator writes and serves reports from one directory.
type Generator struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// Option configures a Generator.
type Option func(*Generator)

// WithLogger sets a custom structured logger for the generator.
func WithLogger(l *slog.Logger) Option {
	return func(g *Generator) { g.logger = l }
}

// WithClock overrides the time source used for file names.
func WithClock(now func() time.Time) Option {
	return func(g *Generator) { g.now = now }
}

// NewGenerator creates a generator for dir, defaulting to "reports".
func NewGenerator(dir string, opts ...Option) *Generator {
	if dir == "" {
		dir = defaults.ReportDir
	}
	g := &Generator{dir: dir, now: time.Now, logger: slog.Default()}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Dir returns the report directory.
func (g *Generator) Dir() string { return g.dir }

// Generate writes the JSON, PDF and Markdown reports for s.
func (g *Generator) Generate(s *Summary) (Paths, error) {
	if err := os.MkdirAll(g.dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create report dir: %w", err)
	}
	base := filepath.Join(g.dir, "report_"+g.now().Format(StampLayout))

	var paths Paths
	var err error
	if paths.JSON, err = g.writeJSON(base+".json", s); err != nil {
		return paths, err
	}
	if paths.PDF, err = g.writePDF(base+".pdf", s); err != nil {
		return paths, err
	}
	if paths.Markdown, err = g.writeMarkdown(base+".md", s); err != nil {
		return paths, err
	}
	return paths, nil
}

func (g *Generator) writeJSON(path string, s *Summary) (string, error) {
	data, err := jsonutil.MarshalIndent(s, "    ")
	if err != nil {
		return "", fmt.Errorf("encode json report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write json report: %w", err)
	}
	g.logger.Info("json report generated", slog.String("path", path))
	return path, nil
}

func (g *Generator) writePDF(path string, s *Summary) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create pdf report: %w", err)
	}
	if err := RenderPDF(f, s, g.now()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write pdf report: %w", err)
	}
	g.logger.Info("pdf report generated", slog.String("path", path))
	return path, nil
}

func (g *Generator) writeMarkdown(path string, s *Summary) (string, error) {
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create markdown report: %w", err)
	}
	if err := RenderMarkdown(f, s, g.now()); err != nil {
		f.Close()
		return "", err
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("write markdown report: %w", err)
	}
	g.logger.Info("markdown report generated", slog.String("path", path))
	return path, nil
}

// FileInfo describes one report on disk.
type FileInfo struct {
	Name     string    `json:"name"`
	Size     int64     `json:"size"`
	Modified time.Time `json:"modified"`
}

// List returns the reports in the directory, newest first. A missing
// directory yields an empty list.
func (g *Generator) List() ([]FileInfo, error) {
	entries, err := os.ReadDir(g.dir)
	if errors.Is(err, os.ErrNotExist) {
		return []FileInfo{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read report dir: %w", err)
	}

	files := make([]FileInfo, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.Contains(e.Name(), ".") {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		files = append(files, FileInfo{Name: e.Name(), Size: info.Size(), Modified: info.ModTime()})
	}
	sort.SliceStable(files, func(i, j int) bool {
		if files[i].Modified.Equal(files[j].Modified) {
			return files[i].Name > files[j].Name
		}
		return files[i].Modified.After(files[j].Modified)
	})
	return files, nil
}

// Path resolves a report name to its file path. Names must be plain file
// names; anything that would leave the directory is rejected.
func (g *Generator) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || name == "." || name == ".." || strings.ContainsAny(name, `/\`) {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	path := filepath.Join(g.dir, name)
	info, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) || (err == nil && info.IsDir()) {
		return "", fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return "", fmt.Errorf("stat report: %w", err)
	}
	return path, nil
}
