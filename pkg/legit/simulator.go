// Package legit replays ordinary user traffic against the target so that
// false positives can be measured next to attack detection.
package legit

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/httpclient"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/traffic"
	"github.com/wafbench/wbt/pkg/workerpool"
)

// Config holds simulation settings.
type Config struct {
	TargetURL   string
	Timeout     time.Duration
	Concurrency int
	Headers     map[string]string
	HTTPClient  *http.Client // Optional custom client
}

// ConfigFromTarget maps target settings onto a simulation config.
func ConfigFromTarget(t config.TargetConfig) Config {
	return Config{
		TargetURL:   t.URL,
		Timeout:     time.Duration(t.Timeout) * time.Second,
		Concurrency: t.Concurrency,
		Headers:     t.Headers,
	}
}

// Observer receives every outcome as soon as it is recorded. It is called
// from worker goroutines and must be safe for concurrent use.
type Observer func(traffic.Outcome)

// Visit is one simulated user running one scenario.
type Visit struct {
	Scenario Scenario
	User     int
}

// Simulator drives the legitimate scenarios.
type Simulator struct {
	config    Config
	scenarios []Scenario
	client    *http.Client
	observer  Observer
	logger    *slog.Logger
}

// Option configures a Simulator.
type Option func(*Simulator)

// WithLogger sets a custom structured logger for the simulator.
func WithLogger(l *slog.Logger) Option {
	return func(s *Simulator) { s.logger = l }
}

// WithScenarios replaces the built-in scenarios.
func WithScenarios(sc []Scenario) Option {
	return func(s *Simulator) { s.scenarios = sc }
}

// WithObserver registers a callback invoked for each outcome.
func WithObserver(fn Observer) Option {
	return func(s *Simulator) { s.observer = fn }
}

// NewSimulator creates a simulator using the built-in scenarios.
func NewSimulator(cfg Config, opts ...Option) *Simulator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.TimeoutSeconds * time.Second
	}

	s := &Simulator{
		config:    cfg,
		scenarios: DefaultScenarios(),
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.client = cfg.HTTPClient
	if s.client == nil {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.Timeout
		if cfg.Concurrency > 0 {
			httpCfg.MaxConnsPerHost = cfg.Concurrency
			httpCfg.MaxIdleConns = cfg.Concurrency * 2
		}
		s.client = httpclient.New(httpCfg)
	}
	return s
}

// Plan lists every visit: each scenario once per simulated user.
func (s *Simulator) Plan() []Visit {
	users := UsersPerScenario(s.config.Concurrency)
	visits := make([]Visit, 0, len(s.scenarios)*users)
	for _, sc := range s.scenarios {
		for u := 0; u < users; u++ {
			visits = append(visits, Visit{Scenario: sc, User: u})
		}
	}
	return visits
}

// Run performs every visit and returns one outcome per visit, in plan
// order. With fewer than two configured workers no visits are made.
func (s *Simulator) Run(ctx context.Context) []traffic.Outcome {
	visits := s.Plan()
	s.logger.Info("legitimate traffic starting",
		slog.Int("scenarios", len(s.scenarios)),
		slog.Int("requests", len(visits)))
	if len(visits) == 0 {
		return []traffic.Outcome{}
	}

	pool := workerpool.New(max(1, s.config.Concurrency))
	defer pool.Close()

	outcomes := workerpool.Map(pool, visits, func(_ int, v Visit) traffic.Outcome {
		o := s.visit(ctx, v)
		if s.observer != nil {
			s.observer(o)
		}
		return o
	})
	pool.Close()
	if n := pool.Panics(); n > 0 {
		s.logger.Error("legitimate visits panicked", slog.Int64("panics", n))
	}
	for i := range outcomes {
		if outcomes[i].Kind == "" {
			outcomes[i] = traffic.Failed(traffic.KindLegit, visits[i].Scenario.Name, ErrPanicked, time.Now())
		}
	}

	s.logger.Info("legitimate traffic finished", slog.Int("requests", len(outcomes)))
	return outcomes
}

func (s *Simulator) visit(ctx context.Context, v Visit) traffic.Outcome {
	started := time.Now()
	if err := ctx.Err(); err != nil {
		return traffic.Failed(traffic.KindLegit, v.Scenario.Name, err, started)
	}

	req, err := s.buildRequest(ctx, v)
	if err != nil {
		return traffic.Failed(traffic.KindLegit, v.Scenario.Name, err, started)
	}
	requestID := uuid.New().String()
	req.Header.Set(defaults.RequestIDHeader, requestID)

	ex, err := traffic.Send(s.client, req)
	if err != nil {
		s.logger.Error("legitimate request failed",
			slog.String("scenario", v.Scenario.Name),
			slog.Int("user", v.User),
			slog.String("error", err.Error()))
		return traffic.Failed(traffic.KindLegit, v.Scenario.Name, err, ex.StartedAt)
	}

	s.logger.Debug("legitimate request answered",
		slog.String("scenario", v.Scenario.Name),
		slog.Int("user", v.User),
		slog.Int("status", ex.StatusCode))

	return traffic.Outcome{
		Kind:         traffic.KindLegit,
		ScenarioName: v.Scenario.Name,
		UserIndex:    v.User,
		StatusCode:   ex.StatusCode,
		LatencyMs:    ex.LatencyMs(),
		RequestID:    requestID,
		StartedAt:    ex.StartedAt,
		FinishedAt:   ex.FinishedAt,
	}
}

func (s *Simulator) buildRequest(ctx context.Context, v Visit) (*http.Request, error) {
	url := strings.TrimRight(s.config.TargetURL, "/") + v.Scenario.Path

	var body io.Reader
	if v.Scenario.Method == http.MethodPost && v.Scenario.Body != nil {
		data, err := jsonutil.Marshal(v.Scenario.Body)
		if err != nil {
			return nil, err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, v.Scenario.Method, url, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", defaults.UserAgent)
	for k, val := range s.config.Headers {
		req.Header.Set(k, val)
	}
	if body != nil {
		req.Header.Set("Content-Type", defaults.ContentTypeJSON)
	}
	req.Header.Set(defaults.LegitHeader, "true")
	req.Header.Set(defaults.LegitUserHeader, strconv.Itoa(v.User))
	return req, nil
}
