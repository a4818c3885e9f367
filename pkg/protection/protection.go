// Package protection reads back what the protection system under test
// recorded during a run. Adapters are looked up by a validated Type, so an
// unsupported configuration fails when the adapter is selected rather than
// halfway through a benchmark.
package protection

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/wafbench/wbt/pkg/config"
)

// Action is the protection system's decision for one request.
type Action string

const (
	ActionAllowed Action = "ALLOWED"
	ActionBlocked Action = "BLOCKED"
)

// LogEntry is one protection-log record in normalised form.
type LogEntry struct {
	Timestamp      time.Time `json:"timestamp,omitzero"`
	RequestID      string    `json:"request_id,omitempty"`
	RulesTriggered []string  `json:"rules_triggered"`
	Action         Action    `json:"action"`
	ClientIP       string    `json:"client_ip,omitempty"`
	URI            string    `json:"uri,omitempty"`
}

// Adapter retrieves protection-log entries for a time window.
type Adapter interface {
	// Name identifies the adapter in logs and reports.
	Name() string
	// GetLogs returns entries recorded between start and end. Entries
	// without a parseable timestamp are always included.
	GetLogs(ctx context.Context, start, end time.Time) ([]LogEntry, error)
	// CheckHealth reports whether the log source is reachable.
	CheckHealth(ctx context.Context) bool
}

// Type names an adapter implementation.
type Type string

const (
	TypeNone        Type = "none"
	TypeModSecurity Type = "modsecurity"
)

// Factory builds an adapter from configuration.
type Factory func(cfg config.ProtectionConfig, logger *slog.Logger) Adapter

// Registry maps adapter types to factories.
type Registry struct {
	mu        sync.RWMutex
	factories map[Type]Factory
}

// NewRegistry returns a registry holding the built-in adapters.
func NewRegistry() *Registry {
	r := &Registry{factories: make(map[Type]Factory)}
	r.Register(TypeNone, func(config.ProtectionConfig, *slog.Logger) Adapter {
		return None{}
	})
	r.Register(TypeModSecurity, func(cfg config.ProtectionConfig, logger *slog.Logger) Adapter {
		return NewModSecurity(cfg.LogPath, WithLogger(logger))
	})
	return r
}

// Register adds or replaces the factory for t.
func (r *Registry) Register(t Type, f Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[t] = f
}

// Types lists the registered adapter types, sorted.
func (r *Registry) Types() []Type {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]Type, 0, len(r.factories))
	for t := range r.factories {
		types = append(types, t)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

// ParseType normalizes an adapter name and checks it against the
// registered types.
func (r *Registry) ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	r.mu.RLock()
	_, ok := r.factories[t]
	r.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownAdapter, s)
	}
	return t, nil
}

// New builds the adapter named by cfg.Type.
func (r *Registry) New(cfg config.ProtectionConfig, logger *slog.Logger) (Adapter, error) {
	if logger == nil {
		logger = slog.Default()
	}
	t, err := r.ParseType(cfg.Type)
	if err != nil {
		return nil, err
	}

	r.mu.RLock()
	f := r.factories[t]
	r.mu.RUnlock()
	return f(cfg, logger), nil
}

var defaultRegistry = NewRegistry()

// New builds an adapter from the built-in registry.
func New(cfg config.ProtectionConfig, logger *slog.Logger) (Adapter, error) {
	return defaultRegistry.New(cfg, logger)
}

// None is the adapter for targets without a readable protection log.
type None struct{}

func (None) Name() string { return string(TypeNone) }

func (None) GetLogs(context.Context, time.Time, time.Time) ([]LogEntry, error) {
	return []LogEntry{}, nil
}

func (None) CheckHealth(context.Context) bool { return true }

// InWindow reports whether ts falls within [start, end]. A zero timestamp
// or a zero bound never excludes an entry.
func InWindow(ts, start, end time.Time) bool {
	if ts.IsZero() {
		return true
	}
	if !start.IsZero() && ts.Before(start) {
		return false
	}
	if !end.IsZero() && ts.After(end) {
		return false
	}
	return true
}
