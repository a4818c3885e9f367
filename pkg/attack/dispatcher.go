// Package attack turns catalog vectors into mutated requests against the
// target and records how each one was answered.
package attack

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/murmur3"
	"golang.org/x/time/rate"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/httpclient"
	"github.com/wafbench/wbt/pkg/mutation"
	"github.com/wafbench/wbt/pkg/payloads"
	"github.com/wafbench/wbt/pkg/traffic"
	"github.com/wafbench/wbt/pkg/workerpool"
)

// Config holds dispatch settings.
type Config struct {
	TargetURL    string
	Timeout      time.Duration
	Concurrency  int
	EvasionLevel mutation.Level
	Headers      map[string]string
	RateLimit    float64      // requests per second, 0 = unlimited
	HTTPClient   *http.Client // Optional custom client
}

// ConfigFromTarget maps target settings onto a dispatch config.
func ConfigFromTarget(t config.TargetConfig) Config {
	return Config{
		TargetURL:    t.URL,
		Timeout:      time.Duration(t.Timeout) * time.Second,
		Concurrency:  t.Concurrency,
		EvasionLevel: mutation.ParseLevel(t.EvasionLevel),
		Headers:      t.Headers,
		RateLimit:    t.RateLimit,
	}
}

// Observer receives every outcome as soon as it is recorded. It is called
// from worker goroutines and must be safe for concurrent use.
type Observer func(traffic.Outcome)

// Job is one mutated payload waiting to be sent.
type Job struct {
	Vector   payloads.AttackVector
	Mutation mutation.Mutation
}

// Dispatcher sends every mutation of every vector to the target.
type Dispatcher struct {
	config    Config
	vectors   []payloads.AttackVector
	client    *http.Client
	limiter   *rate.Limiter
	generator *mutation.Generator
	observer  Observer
	logger    *slog.Logger
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets a custom structured logger for the dispatcher.
func WithLogger(l *slog.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithGenerator sets the mutation generator, e.g. a seeded one.
func WithGenerator(g *mutation.Generator) Option {
	return func(d *Dispatcher) { d.generator = g }
}

// WithObserver registers a callback invoked for each outcome.
func WithObserver(fn Observer) Option {
	return func(d *Dispatcher) { d.observer = fn }
}

// NewDispatcher creates a dispatcher for vectors.
func NewDispatcher(cfg Config, vectors []payloads.AttackVector, opts ...Option) *Dispatcher {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.TimeoutSeconds * time.Second
	}

	client := cfg.HTTPClient
	if client == nil {
		httpCfg := httpclient.DefaultConfig()
		httpCfg.Timeout = cfg.Timeout
		httpCfg.MaxConnsPerHost = cfg.Concurrency
		httpCfg.MaxIdleConns = cfg.Concurrency * 2
		client = httpclient.New(httpCfg)
	}

	var limiter *rate.Limiter
	if cfg.RateLimit > 0 {
		burst := int(cfg.RateLimit)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)
	}

	d := &Dispatcher{
		config:  cfg,
		vectors: vectors,
		client:  client,
		limiter: limiter,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	if d.generator == nil {
		d.generator = mutation.NewGenerator()
	}
	return d
}

// Plan expands every vector into its mutations at the configured level.
func (d *Dispatcher) Plan() []Job {
	var jobs []Job
	for _, v := range d.vectors {
		muts := d.generator.ForVector(v.ID, v.Payload, d.config.EvasionLevel)
		d.logger.Debug("vector mutated",
			slog.String("vector", v.ID),
			slog.Int("mutations", len(muts)))
		for _, m := range muts {
			jobs = append(jobs, Job{Vector: v, Mutation: m})
		}
	}
	return jobs
}

// Run dispatches every planned job on a bounded pool and returns one
// outcome per job, in plan order. A failed request becomes an error
// outcome; it never stops the others.
func (d *Dispatcher) Run(ctx context.Context) []traffic.Outcome {
	jobs := d.Plan()
	d.logger.Info("attack dispatch starting",
		slog.Int("vectors", len(d.vectors)),
		slog.Int("requests", len(jobs)),
		slog.String("evasion_level", d.config.EvasionLevel.String()),
		slog.Int("concurrency", d.config.Concurrency))

	pool := workerpool.New(d.config.Concurrency)
	defer pool.Close()

	outcomes := workerpool.Map(pool, jobs, func(_ int, job Job) traffic.Outcome {
		o := d.send(ctx, job)
		if d.observer != nil {
			d.observer(o)
		}
		return o
	})

	pool.Close()
	if n := pool.Panics(); n > 0 {
		d.logger.Error("attack tasks panicked", slog.Int64("panics", n))
	}

	// A panicking task leaves a zero outcome behind; report it as an error.
	for i := range outcomes {
		if outcomes[i].Kind == "" {
			outcomes[i] = traffic.Failed(traffic.KindAttack, jobs[i].Vector.ID, ErrPanicked, time.Now())
		}
	}

	d.logger.Info("attack dispatch finished", slog.Int("requests", len(outcomes)))
	return outcomes
}

func (d *Dispatcher) send(ctx context.Context, job Job) traffic.Outcome {
	v := job.Vector
	started := time.Now()

	if err := ctx.Err(); err != nil {
		return traffic.Failed(traffic.KindAttack, v.ID, err, started)
	}
	if d.limiter != nil {
		if err := d.limiter.Wait(ctx); err != nil {
			return traffic.Failed(traffic.KindAttack, v.ID, err, started)
		}
	}

	req, err := BuildRequest(ctx, d.config.TargetURL, v, job.Mutation.Payload, d.config.Headers)
	if err != nil {
		return traffic.Failed(traffic.KindAttack, v.ID, err, started)
	}
	requestID := uuid.New().String()
	req.Header.Set(defaults.RequestIDHeader, requestID)

	ex, err := traffic.Send(d.client, req)
	if err != nil {
		d.logger.Error("attack request failed",
			slog.String("vector", v.ID),
			slog.Int("mutation", job.Mutation.Index),
			slog.String("error", err.Error()))
		return traffic.Failed(traffic.KindAttack, v.ID, err, ex.StartedAt)
	}

	verdict := traffic.Verdict(ex.StatusCode)
	level := slog.LevelInfo
	if verdict == "PASSED" {
		level = slog.LevelWarn
	}
	d.logger.Log(ctx, level, "attack answered",
		slog.String("vector", v.ID),
		slog.Int("mutation", job.Mutation.Index),
		slog.Int("status", ex.StatusCode),
		slog.String("result", verdict))

	return traffic.Outcome{
		Kind:          traffic.KindAttack,
		VectorID:      v.ID,
		Category:      v.Category,
		Payload:       job.Mutation.Payload,
		MutationIndex: job.Mutation.Index,
		StatusCode:    ex.StatusCode,
		ResponseSize:  ex.Size,
		ResponseHash:  murmur3.Sum32(ex.Body),
		LatencyMs:     ex.LatencyMs(),
		RequestID:     requestID,
		StartedAt:     ex.StartedAt,
		FinishedAt:    ex.FinishedAt,
	}
}
