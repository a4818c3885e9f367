// Package orchestrator runs one benchmark at a time: legitimate and attack
// traffic, protection-log correlation, classification, scoring and reports.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/wafbench/wbt/pkg/analyzer"
	"github.com/wafbench/wbt/pkg/attack"
	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/httpclient"
	"github.com/wafbench/wbt/pkg/legit"
	"github.com/wafbench/wbt/pkg/metrics"
	"github.com/wafbench/wbt/pkg/mutation"
	"github.com/wafbench/wbt/pkg/payloads"
	"github.com/wafbench/wbt/pkg/protection"
	"github.com/wafbench/wbt/pkg/report"
	"github.com/wafbench/wbt/pkg/scoring"
	"github.com/wafbench/wbt/pkg/traffic"
)

// VectorSource supplies the attack vectors for a run.
type VectorSource interface {
	AllVectors() []payloads.AttackVector
}

// Result is the response to a Start call.
type Result struct {
	Status  Status          `json:"status"`
	Message string          `json:"message"`
	Results *report.Summary `json:"results,omitempty"`
	Reports *report.Paths   `json:"reports,omitempty"`

	// Err carries the sentinel for conflict and error results.
	Err error `json:"-"`
}

// Orchestrator owns the IDLE/RUNNING state machine.
type Orchestrator struct {
	mu          sync.Mutex
	state       State
	transitions []Transition
	last        *Result

	store     *config.Store
	vectors   VectorSource
	registry  *protection.Registry
	reports   *report.Generator
	collector *metrics.Collector
	tracer    trace.Tracer
	client    *http.Client
	generator *mutation.Generator
	scenarios []legit.Scenario
	policy    analyzer.ErrorPolicy
	now       func() time.Time
	logger    *slog.Logger
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets a custom structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

// WithReports enables report generation after each successful run.
func WithReports(g *report.Generator) Option {
	return func(o *Orchestrator) { o.reports = g }
}

// WithCollector records outcomes and run lifecycle in Prometheus metrics.
func WithCollector(c *metrics.Collector) Option {
	return func(o *Orchestrator) { o.collector = c }
}

// WithTracer wraps run phases in spans.
func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// WithRegistry overrides the protection adapter registry.
func WithRegistry(r *protection.Registry) Option {
	return func(o *Orchestrator) { o.registry = r }
}

// WithHTTPClient shares one client across both traffic streams instead of
// building one from the target config.
func WithHTTPClient(c *http.Client) Option {
	return func(o *Orchestrator) { o.client = c }
}

// WithGenerator sets the mutation generator, for reproducible runs.
func WithGenerator(g *mutation.Generator) Option {
	return func(o *Orchestrator) { o.generator = g }
}

// WithScenarios replaces the default legitimate scenarios.
func WithScenarios(sc []legit.Scenario) Option {
	return func(o *Orchestrator) { o.scenarios = sc }
}

// WithErrorPolicy controls how transport errors are classified.
func WithErrorPolicy(p analyzer.ErrorPolicy) Option {
	return func(o *Orchestrator) { o.policy = p }
}

// New creates an idle orchestrator reading its settings from store.
func New(store *config.Store, vectors VectorSource, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		state:    StateIdle,
		store:    store,
		vectors:  vectors,
		registry: protection.NewRegistry(),
		tracer:   noop.NewTracerProvider().Tracer(""),
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// State returns the current lifecycle state.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

// Transitions returns a copy of the transition log.
func (o *Orchestrator) Transitions() []Transition {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]Transition, len(o.transitions))
	copy(out, o.transitions)
	return out
}

// Last returns the most recent successful result, or nil.
func (o *Orchestrator) Last() *Result {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.last
}

func (o *Orchestrator) acquire(mode Mode) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.state == StateRunning {
		return false
	}
	o.setState(StateRunning, "start "+string(mode))
	return true
}

func (o *Orchestrator) release(reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.setState(StateIdle, reason)
}

// setState must be called with mu held.
func (o *Orchestrator) setState(to State, reason string) {
	o.transitions = append(o.transitions, Transition{From: o.state, To: to, At: o.now(), Reason: reason})
	o.state = to
}

// Start executes one run and blocks until it finishes. A second call while
// a run is active returns a conflict result without touching any state.
func (o *Orchestrator) Start(ctx context.Context, mode Mode) (res Result) {
	if mode == "" {
		mode = ModeSequential
	}
	if !o.acquire(mode) {
		o.logger.Warn("benchmark start rejected", slog.String("reason", "already running"))
		return Result{Status: StatusConflict, Message: "Benchmark already running", Err: ErrAlreadyRunning}
	}

	started := o.now()
	if o.collector != nil {
		o.collector.RunStarted()
	}
	defer func() {
		if r := recover(); r != nil {
			o.logger.Error("benchmark panicked",
				slog.Any("panic", r),
				slog.String("stack", string(debug.Stack())))
			res = errorResult(fmt.Errorf("%w: panic: %v", ErrRunFault, r))
		}
		if o.collector != nil {
			score := 0
			if res.Results != nil {
				score = res.Results.TotalScore
			}
			o.collector.RunFinished(string(res.Status), o.now().Sub(started), score)
		}
		if res.Status == StatusSuccess {
			o.mu.Lock()
			last := res
			o.last = &last
			o.mu.Unlock()
		}
		o.release(string(res.Status))
	}()

	summary, err := o.run(ctx, mode, started)
	if err != nil {
		o.logger.Error("benchmark failed", slog.String("error", err.Error()))
		res = errorResult(err)
		res.Results = summary
		return res
	}

	res = Result{Status: StatusSuccess, Message: "Benchmark completed", Results: summary}
	if o.reports != nil {
		paths, err := o.reports.Generate(summary)
		if err != nil {
			o.logger.Error("report generation failed", slog.String("error", err.Error()))
			res = errorResult(fmt.Errorf("%w: %w", ErrRunFault, err))
			res.Results = summary
			return res
		}
		res.Reports = &paths
	}
	return res
}

func errorResult(err error) Result {
	return Result{Status: StatusError, Message: err.Error(), Err: err}
}

func (o *Orchestrator) run(ctx context.Context, mode Mode, started time.Time) (*report.Summary, error) {
	target := o.store.Target()
	prot := o.store.Protection()

	adapter, err := o.registry.New(prot, o.logger)
	if err != nil {
		return nil, err
	}

	ctx, span := o.tracer.Start(ctx, "benchmark.run", trace.WithAttributes(
		attribute.String("wbt.mode", string(mode)),
		attribute.String("wbt.target", target.URL),
		attribute.String("wbt.protection", adapter.Name()),
	))
	defer span.End()

	o.logger.Info("benchmark started",
		slog.String("mode", string(mode)),
		slog.String("target", target.URL),
		slog.String("protection", adapter.Name()))

	client := o.client
	if client == nil {
		client = httpclient.ForTarget(target.Timeout, target.Concurrency)
	}

	var observer func(traffic.Outcome)
	if o.collector != nil {
		observer = o.collector.ObserveOutcome
	}

	legitCfg := legit.ConfigFromTarget(target)
	legitCfg.HTTPClient = client
	simOpts := []legit.Option{legit.WithLogger(o.logger), legit.WithObserver(observer)}
	if o.scenarios != nil {
		simOpts = append(simOpts, legit.WithScenarios(o.scenarios))
	}
	sim := legit.NewSimulator(legitCfg, simOpts...)

	var vectors []payloads.AttackVector
	if o.vectors != nil {
		vectors = o.vectors.AllVectors()
	}
	attackCfg := attack.ConfigFromTarget(target)
	attackCfg.HTTPClient = client
	dispOpts := []attack.Option{attack.WithLogger(o.logger), attack.WithObserver(observer)}
	if o.generator != nil {
		dispOpts = append(dispOpts, attack.WithGenerator(o.generator))
	}
	disp := attack.NewDispatcher(attackCfg, vectors, dispOpts...)

	runLegit := func(ctx context.Context) []traffic.Outcome {
		ctx, span := o.tracer.Start(ctx, "benchmark.legit")
		defer span.End()
		out := sim.Run(ctx)
		span.SetAttributes(attribute.Int("wbt.outcomes", len(out)))
		return out
	}
	runAttack := func(ctx context.Context) []traffic.Outcome {
		ctx, span := o.tracer.Start(ctx, "benchmark.attack")
		defer span.End()
		out := disp.Run(ctx)
		span.SetAttributes(attribute.Int("wbt.outcomes", len(out)))
		return out
	}

	var legitOut, attackOut []traffic.Outcome
	switch mode {
	case ModeConcurrent:
		var wg sync.WaitGroup
		var panicked any
		var pmu sync.Mutex
		wg.Add(2)
		guard := func(fn func()) {
			defer wg.Done()
			defer func() {
				if r := recover(); r != nil {
					pmu.Lock()
					panicked = r
					pmu.Unlock()
				}
			}()
			fn()
		}
		go guard(func() { legitOut = runLegit(ctx) })
		go guard(func() { attackOut = runAttack(ctx) })
		wg.Wait()
		if panicked != nil {
			panic(panicked)
		}
	case ModeSequential:
		legitOut = runLegit(ctx)
		attackOut = runAttack(ctx)
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidMode, mode)
	}

	outcomes := make([]traffic.Outcome, 0, len(legitOut)+len(attackOut))
	outcomes = append(outcomes, legitOut...)
	outcomes = append(outcomes, attackOut...)
	finished := o.now()

	logs := o.fetchLogs(ctx, adapter, outcomes, started, finished)

	_, aspan := o.tracer.Start(ctx, "benchmark.analyze")
	stats := analyzer.New(analyzer.WithLogger(o.logger), analyzer.WithErrorPolicy(o.policy)).Analyze(outcomes, logs)
	score := scoring.CalculateScore(stats)
	acc := metrics.Compute(outcomes, o.policy)
	aspan.SetAttributes(
		attribute.Int("wbt.total_requests", stats.TotalRequests),
		attribute.Int("wbt.false_negatives", stats.FalseNegatives),
		attribute.Int("wbt.false_positives", stats.FalsePositives),
		attribute.Int("wbt.score", score.TotalScore),
	)
	aspan.End()

	summary := &report.Summary{
		Stats:      stats,
		Report:     score,
		Accuracy:   &acc,
		RunID:      uuid.NewString(),
		Mode:       string(mode),
		Target:     target.URL,
		Protection: adapter.Name(),
		StartedAt:  started,
		FinishedAt: finished,
		DurationMs: float64(finished.Sub(started)) / float64(time.Millisecond),
	}
	span.SetStatus(codes.Ok, "")
	o.logger.Info("benchmark finished",
		slog.Int("total_requests", stats.TotalRequests),
		slog.Int("bypasses", stats.FalseNegatives),
		slog.Int("false_positives", stats.FalsePositives),
		slog.Int("score", score.TotalScore),
		slog.String("grade", string(score.Grade)))
	return summary, nil
}

// fetchLogs pulls protection logs for the traffic window. Failures are
// logged and yield no entries.
func (o *Orchestrator) fetchLogs(ctx context.Context, adapter protection.Adapter, outcomes []traffic.Outcome, started, finished time.Time) []protection.LogEntry {
	ctx, span := o.tracer.Start(ctx, "benchmark.protection_logs")
	defer span.End()

	start, end := traffic.Span(outcomes)
	if start.IsZero() {
		start, end = started, finished
	}
	logs, err := adapter.GetLogs(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		o.logger.Warn("protection logs unavailable",
			slog.String("adapter", adapter.Name()),
			slog.String("error", err.Error()))
		return nil
	}
	span.SetAttributes(attribute.Int("wbt.log_entries", len(logs)))
	return logs
}
