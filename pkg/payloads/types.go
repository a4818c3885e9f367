package payloads

import (
	"fmt"
	"strings"
)

// Location is where a payload is injected into the request.
type Location string

const (
	LocationQuery  Location = "query"
	LocationHeader Location = "header"
	LocationBody   Location = "body"
	LocationPath   Location = "path"
)

// Locations lists every supported injection point.
func Locations() []Location {
	return []Location{LocationQuery, LocationHeader, LocationBody, LocationPath}
}

// ParseLocation validates a location name. An empty name means query.
func ParseLocation(s string) (Location, error) {
	switch loc := Location(strings.ToLower(strings.TrimSpace(s))); loc {
	case "":
		return LocationQuery, nil
	case LocationQuery, LocationHeader, LocationBody, LocationPath:
		return loc, nil
	default:
		return "", fmt.Errorf("%w: unknown location %q", ErrInvalidVector, s)
	}
}

// AttackVector is a named, categorised payload template plus its injection
// point. Vectors are immutable once the catalog has loaded them.
type AttackVector struct {
	ID       string   `json:"id" yaml:"id"`
	Category string   `json:"category" yaml:"category"`
	Payload  string   `json:"payload" yaml:"payload"`
	Method   string   `json:"method" yaml:"method"`
	Location Location `json:"location" yaml:"location"`
}

// File is the on-disk shape of one category file (YAML or JSON).
type File struct {
	Category string       `json:"category" yaml:"category"`
	Vectors  []fileVector `json:"vectors" yaml:"vectors"`
}

type fileVector struct {
	ID       string `json:"id" yaml:"id"`
	Payload  string `json:"payload" yaml:"payload"`
	Method   string `json:"method" yaml:"method"`
	Location string `json:"location" yaml:"location"`
}

// SkippedFile records a category file that could not be loaded.
type SkippedFile struct {
	Path   string `json:"path"`
	Reason string `json:"reason"`
}

// LoadStats summarises a catalog.
type LoadStats struct {
	TotalVectors   int
	CategoriesUsed int
	ByCategory     map[string]int
	SkippedFiles   int
}
