package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	slogmulti "github.com/samber/slog-multi"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/payloads"
	"github.com/wafbench/wbt/pkg/telemetry"
	"github.com/wafbench/wbt/pkg/ui"
)

// app bundles what every command needs after flags are parsed.
type app struct {
	settings *config.Settings
	logger   *slog.Logger
	console  *ui.Console
	closers  []func() error
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		_ = a.closers[i]()
	}
}

// bootstrap loads configuration and builds the logger. Flags win over
// environment, which wins over files.
func bootstrap(g *globalOptions, stdout, stderr io.Writer) (*app, error) {
	settings, err := config.Load(g.ConfigDir, g.EnvFiles...)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		settings.LogLevel = g.LogLevel
	}
	if g.LogFile != "" {
		settings.LogFile = g.LogFile
	}
	if g.OTLPEndpoint != "" {
		settings.OTLPEndpoint = g.OTLPEndpoint
	}

	a := &app{
		settings: settings,
		console:  ui.NewConsole(stdout, ui.WithNoColor(g.NoColor), ui.WithSilent(g.Silent)),
	}

	logger, closeLog, err := newLogger(stderr, settings.LogLevel, g.LogJSON, settings.LogFile)
	if err != nil {
		return nil, err
	}
	a.logger = logger
	if closeLog != nil {
		a.closers = append(a.closers, closeLog)
	}
	slog.SetDefault(logger)
	return a, nil
}

func parseLevel(s string) slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// newLogger builds a text (or JSON) handler on w and, when logFile is set,
// a JSON handler appending to that file.
func newLogger(w io.Writer, level string, jsonOut bool, logFile string) (*slog.Logger, func() error, error) {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var console slog.Handler = slog.NewTextHandler(w, opts)
	if jsonOut {
		console = slog.NewJSONHandler(w, opts)
	}
	if logFile == "" {
		return slog.New(console), nil, nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slogmulti.Fanout(console, slog.NewJSONHandler(f, opts))), f.Close, nil
}

// loadCatalog reads every payload file under dir.
func (a *app) loadCatalog(dir string) (*payloads.Catalog, error) {
	if dir == "" {
		dir = a.settings.PayloadDir
	}
	if dir == "" {
		dir = defaults.PayloadDir
	}
	c := payloads.NewCatalog(payloads.WithLogger(a.logger))
	if err := c.LoadDir(dir); err != nil {
		return nil, err
	}
	a.logger.Info("payload catalog loaded",
		slog.String("dir", dir),
		slog.Int("vectors", c.Count()),
		slog.Int("skipped_files", len(c.Skipped())))
	return c, nil
}

// tracing starts the tracer provider. Without an endpoint spans are
// discarded.
func (a *app) tracing(ctx context.Context) (*telemetry.Provider, error) {
	tp, err := telemetry.New(ctx, telemetry.Options{
		Endpoint: a.settings.OTLPEndpoint,
		Insecure: true,
		Global:   true,
	})
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, func() error { return tp.Shutdown(context.Background()) })
	return tp, nil
}
