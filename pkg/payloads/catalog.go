// Package payloads loads declarative attack-vector category files into an
// ordered, read-only catalog.
package payloads

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wafbench/wbt/pkg/jsonutil"
)

// Catalog holds attack vectors in load order. A file that fails to parse
// is logged and skipped; it never aborts loading of the remaining files.
type Catalog struct {
	vectors []AttackVector
	skipped []SkippedFile
	logger  *slog.Logger
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger sets a custom structured logger for the catalog.
func WithLogger(l *slog.Logger) Option {
	return func(c *Catalog) { c.logger = l }
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...Option) *Catalog {
	c := &Catalog{logger: slog.Default()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadDir loads every .yaml, .yml and .json file directly inside dir, in
// file-name order. Only an unreadable directory is reported as an error.
func (c *Catalog) LoadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("reading payload directory %s: %w", dir, err)
	}

	paths := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() || !isCatalogFile(entry.Name()) {
			continue
		}
		paths = append(paths, filepath.Join(dir, entry.Name()))
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		c.logger.Warn("no payload files found", slog.String("dir", dir))
	}
	c.LoadFiles(paths...)
	return nil
}

// LoadFiles loads the given category files in order and returns how many
// loaded successfully.
func (c *Catalog) LoadFiles(paths ...string) int {
	loaded := 0
	for _, path := range paths {
		vectors, err := loadFile(path)
		if err != nil {
			c.logger.Warn("skipping payload file",
				slog.String("path", path),
				slog.String("error", err.Error()))
			c.skipped = append(c.skipped, SkippedFile{Path: path, Reason: err.Error()})
			continue
		}
		c.vectors = append(c.vectors, vectors...)
		loaded++
		c.logger.Debug("loaded payload file",
			slog.String("path", path),
			slog.Int("vectors", len(vectors)))
	}
	return loaded
}

// AllVectors returns a copy of every vector in insertion order.
func (c *Catalog) AllVectors() []AttackVector {
	out := make([]AttackVector, len(c.vectors))
	copy(out, c.vectors)
	return out
}

// Count returns the number of loaded vectors.
func (c *Catalog) Count() int {
	return len(c.vectors)
}

// Skipped returns the files that failed to load.
func (c *Catalog) Skipped() []SkippedFile {
	out := make([]SkippedFile, len(c.skipped))
	copy(out, c.skipped)
	return out
}

// Categories returns the distinct categories, sorted.
func (c *Catalog) Categories() []string {
	seen := make(map[string]struct{})
	for _, v := range c.vectors {
		seen[v.Category] = struct{}{}
	}
	cats := make([]string, 0, len(seen))
	for cat := range seen {
		cats = append(cats, cat)
	}
	sort.Strings(cats)
	return cats
}

// Stats summarises the catalog.
func (c *Catalog) Stats() LoadStats {
	stats := LoadStats{
		TotalVectors: len(c.vectors),
		ByCategory:   make(map[string]int),
		SkippedFiles: len(c.skipped),
	}
	for _, v := range c.vectors {
		stats.ByCategory[v.Category]++
	}
	stats.CategoriesUsed = len(stats.ByCategory)
	return stats
}

func isCatalogFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

// loadFile parses and validates one category file. Any invalid vector
// rejects the whole file so a half-loaded category never skews scores.
func loadFile(path string) ([]AttackVector, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var file File
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &file)
	case ".json":
		err = jsonutil.Unmarshal(data, &file)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	category := strings.TrimSpace(file.Category)
	if category == "" {
		category = "Unknown"
	}

	vectors := make([]AttackVector, 0, len(file.Vectors))
	for i, fv := range file.Vectors {
		v, err := fv.toVector(category)
		if err != nil {
			return nil, fmt.Errorf("vector %d: %w", i, err)
		}
		vectors = append(vectors, v)
	}
	return vectors, nil
}

func (fv fileVector) toVector(category string) (AttackVector, error) {
	if strings.TrimSpace(fv.ID) == "" {
		return AttackVector{}, fmt.Errorf("%w: missing id", ErrInvalidVector)
	}
	if fv.Payload == "" {
		return AttackVector{}, fmt.Errorf("%w: %s has no payload", ErrInvalidVector, fv.ID)
	}
	loc, err := ParseLocation(fv.Location)
	if err != nil {
		return AttackVector{}, err
	}
	method := strings.ToUpper(strings.TrimSpace(fv.Method))
	if method == "" {
		method = "GET"
	}
	return AttackVector{
		ID:       fv.ID,
		Category: category,
		Payload:  fv.Payload,
		Method:   method,
		Location: loc,
	}, nil
}
