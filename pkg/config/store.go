package config

import (
	"fmt"
	"maps"
	"path/filepath"
	"sync"
)

// Store holds the live target and protection settings. Each benchmark run
// reads a snapshot; updates are validated and persisted before they apply.
type Store struct {
	mu   sync.RWMutex
	dir  string
	tgt  TargetConfig
	prot ProtectionConfig
}

// NewStore seeds a store from loaded settings. Updates are written to the
// settings' config directory; an empty directory keeps them in memory.
func NewStore(s *Settings) *Store {
	return &Store{
		dir:  s.ConfigDir,
		tgt:  cloneTarget(s.Target),
		prot: s.Protection,
	}
}

// Target returns a copy of the current target settings.
func (s *Store) Target() TargetConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneTarget(s.tgt)
}

// Protection returns the current protection settings.
func (s *Store) Protection() ProtectionConfig {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.prot
}

// SetTarget validates, persists and applies new target settings.
func (s *Store) SetTarget(cfg TargetConfig) error {
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := SaveTarget(filepath.Join(s.dir, TargetFile), cfg); err != nil {
			return fmt.Errorf("save target config: %w", err)
		}
	}
	s.tgt = cloneTarget(cfg)
	return nil
}

// SetProtection validates, persists and applies new protection settings.
func (s *Store) SetProtection(cfg ProtectionConfig) error {
	if err := cfg.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dir != "" {
		if err := SaveProtection(filepath.Join(s.dir, ProtectionFile), cfg); err != nil {
			return fmt.Errorf("save protection config: %w", err)
		}
	}
	s.prot = cfg
	return nil
}

func cloneTarget(t TargetConfig) TargetConfig {
	t.Headers = maps.Clone(t.Headers)
	if t.Headers == nil {
		t.Headers = map[string]string{}
	}
	return t
}
