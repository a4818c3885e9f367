// Package config loads the benchmark settings: the target under test, the
// protection system whose logs are read back, and the process-level paths.
// Values come from YAML files, then environment overrides (optionally seeded
// from .env files), and are validated before use.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/wafbench/wbt/pkg/defaults"
)

// Environment variables are read with this prefix, e.g. WBT_TARGET_URL.
const EnvPrefix = "WBT_"

// File names inside the config directory.
const (
	TargetFile     = "target.yaml"
	ProtectionFile = "waf.yaml"
)

// TargetConfig describes the system under test.
type TargetConfig struct {
	URL          string            `yaml:"url" json:"url" env:"URL" validate:"required,url"`
	Timeout      int               `yaml:"timeout" json:"timeout" env:"TIMEOUT" validate:"min=1,max=300"`
	Concurrency  int               `yaml:"concurrency" json:"concurrency" env:"CONCURRENCY" validate:"min=1,max=1000"`
	EvasionLevel int               `yaml:"evasion_level" json:"evasion_level" env:"EVASION_LEVEL" validate:"min=0,max=2"`
	Headers      map[string]string `yaml:"headers" json:"headers" env:"HEADERS"`
	RateLimit    float64           `yaml:"rate_limit" json:"rate_limit" env:"RATE_LIMIT" validate:"min=0"`
}

// ProtectionConfig selects the protection-log adapter.
type ProtectionConfig struct {
	Type    string `yaml:"type" json:"type" env:"TYPE" validate:"oneof=none modsecurity"`
	LogPath string `yaml:"log_path" json:"log_path" env:"LOG_PATH" validate:"required_if=Type modsecurity"`
}

// Settings is the full process configuration.
type Settings struct {
	Target     TargetConfig     `envPrefix:"TARGET_"`
	Protection ProtectionConfig `envPrefix:"WAF_"`

	ConfigDir    string `env:"CONFIG_DIR"`
	PayloadDir   string `env:"PAYLOAD_DIR" validate:"required"`
	ReportDir    string `env:"REPORT_DIR" validate:"required"`
	ListenAddr   string `env:"LISTEN_ADDR"`
	LogLevel     string `env:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn error"`
	LogFile      string `env:"LOG_FILE"`
	OTLPEndpoint string `env:"OTLP_ENDPOINT"`
}

// DefaultTarget returns the target defaults applied before any file is read.
func DefaultTarget() TargetConfig {
	return TargetConfig{
		URL:          "http://localhost:8080",
		Timeout:      defaults.TimeoutSeconds,
		Concurrency:  defaults.Concurrency,
		EvasionLevel: defaults.EvasionLevel,
		Headers:      map[string]string{},
		RateLimit:    defaults.RateLimit,
	}
}

// DefaultProtection returns the protection defaults.
func DefaultProtection() ProtectionConfig {
	return ProtectionConfig{
		Type:    defaults.ProtectionType,
		LogPath: defaults.ModSecurityLogPath,
	}
}

// Defaults returns settings with every field at its default.
func Defaults() Settings {
	return Settings{
		Target:     DefaultTarget(),
		Protection: DefaultProtection(),
		ConfigDir:  defaults.ConfigDir,
		PayloadDir: defaults.PayloadDir,
		ReportDir:  defaults.ReportDir,
		ListenAddr: defaults.ListenAddr,
		LogLevel:   "info",
	}
}

var validate = sync.OnceValue(func() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
})

// Validate checks field ranges and formats.
func (t TargetConfig) Validate() error {
	return check(t)
}

// Validate checks the adapter type and log path.
func (p ProtectionConfig) Validate() error {
	return check(p)
}

// Validate checks every section.
func (s *Settings) Validate() error {
	return check(s)
}

func check(v any) error {
	err := validate().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s (%s)", fe.Namespace(), fe.Tag()))
	}
	if verrs[0].Tag() == "required" || verrs[0].Tag() == "required_if" {
		return fmt.Errorf("%w: %w: %s", ErrInvalidConfig, ErrMissingRequired, strings.Join(fields, ", "))
	}
	return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(fields, ", "))
}

// LoadEnv loads the .env files that exist and reports how many were found.
// Missing files are not an error.
func LoadEnv(files ...string) (int, error) {
	existing := make([]string, 0, len(files))
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

// Load builds settings from defaults, the YAML files in configDir, .env
// files and WBT_* environment variables, in that order of precedence.
func Load(configDir string, envFiles ...string) (*Settings, error) {
	if _, err := LoadEnv(envFiles...); err != nil {
		return nil, fmt.Errorf("load env files: %w", err)
	}

	s := Defaults()
	// The config directory itself may be overridden from the environment.
	if dir := os.Getenv(EnvPrefix + "CONFIG_DIR"); dir != "" {
		configDir = dir
	}
	if configDir != "" {
		s.ConfigDir = configDir
	}

	target, err := LoadTarget(filepath.Join(s.ConfigDir, TargetFile))
	if err != nil {
		return nil, err
	}
	prot, err := LoadProtection(filepath.Join(s.ConfigDir, ProtectionFile))
	if err != nil {
		return nil, err
	}
	s.Target, s.Protection = target, prot

	if err := env.ParseWithOptions(&s, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("%w: environment: %w", ErrInvalidConfig, err)
	}
	if err := s.Validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

// LoadTarget reads a target file. A missing file yields the defaults. The
// values may sit at the root or under a "target" key.
func LoadTarget(path string) (TargetConfig, error) {
	cfg := DefaultTarget()
	if err := loadSection(path, "target", &cfg); err != nil {
		return TargetConfig{}, err
	}
	if cfg.Headers == nil {
		cfg.Headers = map[string]string{}
	}
	return cfg, nil
}

// LoadProtection reads a protection file. A missing file yields the
// defaults. The values may sit at the root or under a "waf" key.
func LoadProtection(path string) (ProtectionConfig, error) {
	cfg := DefaultProtection()
	if err := loadSection(path, "waf", &cfg); err != nil {
		return ProtectionConfig{}, err
	}
	return cfg, nil
}

func loadSection(path, key string, out any) error {
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	var root map[string]yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	if node, ok := root[key]; ok {
		err = node.Decode(out)
	} else {
		err = yaml.Unmarshal(data, out)
	}
	if err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// SaveTarget writes cfg under a "target" key.
func SaveTarget(path string, cfg TargetConfig) error {
	return saveSection(path, "target", cfg)
}

// SaveProtection writes cfg under a "waf" key.
func SaveProtection(path string, cfg ProtectionConfig) error {
	return saveSection(path, "waf", cfg)
}

func saveSection(path, key string, v any) error {
	data, err := yaml.Marshal(map[string]any{key: v})
	if err != nil {
		return fmt.Errorf("marshal %s: %w", key, err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
