package attack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/murmur3"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/mutation"
	"github.com/wafbench/wbt/pkg/payloads"
	"github.com/wafbench/wbt/pkg/traffic"
)

type captured struct {
	Method  string
	Path    string
	Query   string
	Headers http.Header
	Body    string
}

type recorder struct {
	mu   sync.Mutex
	reqs []captured
}

func (r *recorder) add(req *http.Request) {
	body, _ := io.ReadAll(req.Body)
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reqs = append(r.reqs, captured{
		Method:  req.Method,
		Path:    req.URL.Path,
		Query:   req.URL.Query().Get(defaults.AttackQueryParam),
		Headers: req.Header.Clone(),
		Body:    string(body),
	})
}

func (r *recorder) all() []captured {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]captured(nil), r.reqs...)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func captureServer(t *testing.T, status int) (*httptest.Server, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec.add(r)
		w.WriteHeader(status)
		_, _ = w.Write([]byte("ok"))
	}))
	t.Cleanup(srv.Close)
	return srv, rec
}

func runOne(t *testing.T, target string, v payloads.AttackVector, headers map[string]string) []traffic.Outcome {
	t.Helper()
	d := NewDispatcher(Config{TargetURL: target, Concurrency: 1, Headers: headers},
		[]payloads.AttackVector{v}, WithLogger(quietLogger()))
	return d.Run(context.Background())
}

func TestInjection_Query(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "q1", Category: "SQLi", Payload: "' OR 1=1--", Method: "GET", Location: payloads.LocationQuery}

	out := runOne(t, srv.URL, v, nil)
	require.Len(t, out, 1)
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "' OR 1=1--", reqs[0].Query)
	assert.Equal(t, http.MethodGet, reqs[0].Method)
}

func TestInjection_Header(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "h1", Payload: "<script>alert(1)</script>", Method: "GET", Location: payloads.LocationHeader}

	runOne(t, srv.URL, v, nil)
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "<script>alert(1)</script>", reqs[0].Headers.Get(defaults.AttackHeader))
	assert.Empty(t, reqs[0].Query)
}

func TestInjection_Body(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "b1", Payload: "; cat /etc/passwd", Method: "POST", Location: payloads.LocationBody}

	runOne(t, srv.URL, v, nil)
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, defaults.ContentTypeJSON, reqs[0].Headers.Get("Content-Type"))

	var body map[string]string
	require.NoError(t, jsonutil.Unmarshal([]byte(reqs[0].Body), &body))
	assert.Equal(t, map[string]string{"input": "; cat /etc/passwd"}, body)
}

func TestInjection_PathSingleSeparator(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "p1", Payload: "etc/passwd", Method: "GET", Location: payloads.LocationPath}

	runOne(t, srv.URL+"/app", v, nil)
	runOne(t, srv.URL+"/app/", v, nil)

	reqs := rec.all()
	require.Len(t, reqs, 2)
	assert.Equal(t, "/app/etc/passwd", reqs[0].Path)
	assert.Equal(t, "/app/etc/passwd", reqs[1].Path)
}

func TestInjection_PathWithUnsafeCharacters(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "p2", Payload: "<img src=x>", Method: "GET", Location: payloads.LocationPath}

	out := runOne(t, srv.URL, v, nil)
	require.Len(t, out, 1)
	require.False(t, out[0].IsError(), out[0].Error)
	assert.Equal(t, "/<img src=x>", rec.all()[0].Path)
}

func TestHeaders_ConfiguredAndCorrelation(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "q1", Payload: "x", Method: "GET", Location: payloads.LocationQuery}

	out := runOne(t, srv.URL, v, map[string]string{"Authorization": "Bearer t", "X-Env": "lab"})
	reqs := rec.all()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer t", reqs[0].Headers.Get("Authorization"))
	assert.Equal(t, "lab", reqs[0].Headers.Get("X-Env"))
	assert.Equal(t, defaults.UserAgent, reqs[0].Headers.Get("User-Agent"))

	id := reqs[0].Headers.Get(defaults.RequestIDHeader)
	assert.Len(t, id, 36)
	assert.Equal(t, id, out[0].RequestID)
}

func TestRun_TenVectorsThreeBlocked(t *testing.T) {
	blocked := map[string]bool{"v-2": true, "v-5": true, "v-8": true}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if blocked[r.URL.Query().Get("q")] {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte("welcome"))
	}))
	defer srv.Close()

	var vectors []payloads.AttackVector
	for i := 0; i < 10; i++ {
		id := fmt.Sprintf("v-%d", i)
		vectors = append(vectors, payloads.AttackVector{ID: id, Category: "Test", Payload: id, Method: "GET", Location: payloads.LocationQuery})
	}

	var observed atomic.Int32
	d := NewDispatcher(Config{TargetURL: srv.URL, Concurrency: 4}, vectors,
		WithLogger(quietLogger()),
		WithObserver(func(traffic.Outcome) { observed.Add(1) }))
	out := d.Run(context.Background())

	require.Len(t, out, 10)
	assert.EqualValues(t, 10, observed.Load())

	nBlocked := 0
	for i, o := range out {
		assert.Equal(t, vectors[i].ID, o.VectorID, "outcomes keep plan order")
		assert.Equal(t, "Test", o.Category)
		assert.Equal(t, 0, o.MutationIndex)
		assert.False(t, o.IsError())
		if o.Blocked() {
			nBlocked++
			continue
		}
		assert.EqualValues(t, len("welcome"), o.ResponseSize)
		assert.Equal(t, murmur3.Sum32([]byte("welcome")), o.ResponseHash)
	}
	assert.Equal(t, 3, nBlocked)
}

func TestRun_OneRequestPerMutation(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "m1", Payload: "union select", Method: "GET", Location: payloads.LocationQuery}

	gen := mutation.NewGenerator(mutation.WithSeed(7))
	d := NewDispatcher(Config{TargetURL: srv.URL, Concurrency: 3, EvasionLevel: mutation.LevelAggressive},
		[]payloads.AttackVector{v}, WithLogger(quietLogger()), WithGenerator(gen))

	out := d.Run(context.Background())
	assert.Greater(t, len(out), 10)
	assert.Len(t, rec.all(), len(out))

	seen := map[int]bool{}
	for _, o := range out {
		seen[o.MutationIndex] = true
		assert.Equal(t, "m1", o.VectorID)
	}
	assert.Len(t, seen, len(out), "mutation indices are unique")
}

func TestRun_TransportErrorsBecomeOutcomes(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	target := srv.URL
	srv.Close()

	vectors := []payloads.AttackVector{
		{ID: "e1", Payload: "a", Method: "GET", Location: payloads.LocationQuery},
		{ID: "e2", Payload: "b", Method: "GET", Location: payloads.LocationHeader},
	}
	d := NewDispatcher(Config{TargetURL: target, Concurrency: 2, Timeout: 2 * time.Second}, vectors, WithLogger(quietLogger()))
	out := d.Run(context.Background())

	require.Len(t, out, 2)
	for i, o := range out {
		assert.True(t, o.IsError())
		assert.True(t, o.IsAttack())
		assert.Equal(t, vectors[i].ID, o.SourceID)
		assert.Empty(t, o.VectorID)
	}
}

func TestRun_CancelledContext(t *testing.T) {
	srv, rec := captureServer(t, http.StatusOK)
	v := payloads.AttackVector{ID: "c1", Payload: "x", Method: "GET", Location: payloads.LocationQuery}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d := NewDispatcher(Config{TargetURL: srv.URL}, []payloads.AttackVector{v}, WithLogger(quietLogger()))
	out := d.Run(ctx)
	require.Len(t, out, 1)
	assert.True(t, out[0].IsError())
	assert.Empty(t, rec.all())
}

func TestRun_BoundedConcurrency(t *testing.T) {
	var inFlight, peak atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
	}))
	defer srv.Close()

	var vectors []payloads.AttackVector
	for i := 0; i < 12; i++ {
		vectors = append(vectors, payloads.AttackVector{ID: fmt.Sprint(i), Payload: "x", Method: "GET", Location: payloads.LocationQuery})
	}
	d := NewDispatcher(Config{TargetURL: srv.URL, Concurrency: 3}, vectors, WithLogger(quietLogger()))
	out := d.Run(context.Background())

	require.Len(t, out, 12)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestRun_LogsVerdicts(t *testing.T) {
	srv, _ := captureServer(t, http.StatusForbidden)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	v := payloads.AttackVector{ID: "l1", Payload: "x", Method: "GET", Location: payloads.LocationQuery}
	NewDispatcher(Config{TargetURL: srv.URL}, []payloads.AttackVector{v}, WithLogger(logger)).Run(context.Background())

	assert.True(t, strings.Contains(buf.String(), "result=BLOCKED"), buf.String())
}

func TestRun_PanickingObserverBecomesError(t *testing.T) {
	srv, _ := captureServer(t, http.StatusOK)
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	vectors := []payloads.AttackVector{
		{ID: "p1", Payload: "a", Method: "GET", Location: payloads.LocationQuery},
		{ID: "p2", Payload: "b", Method: "GET", Location: payloads.LocationQuery},
	}
	d := NewDispatcher(Config{TargetURL: srv.URL, Concurrency: 2}, vectors,
		WithLogger(logger),
		WithObserver(func(o traffic.Outcome) {
			if o.VectorID == "p1" {
				panic("observer failed")
			}
		}))
	out := d.Run(context.Background())

	require.Len(t, out, 2)
	assert.True(t, out[0].IsError())
	assert.Equal(t, ErrPanicked.Error(), out[0].Error)
	assert.False(t, out[1].IsError())
	assert.Contains(t, buf.String(), "attack tasks panicked")
	assert.Contains(t, buf.String(), "panics=1")
}

// Run under -race: bodies of every tail length are hashed from many
// workers at once.
func TestRun_ConcurrentResponseHashing(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(r.URL.Query().Get(defaults.AttackQueryParam)))
	}))
	defer srv.Close()

	var vectors []payloads.AttackVector
	for n := 1; n <= 40; n++ {
		vectors = append(vectors, payloads.AttackVector{
			ID:       fmt.Sprintf("h-%d", n),
			Payload:  strings.Repeat("z", n),
			Method:   "GET",
			Location: payloads.LocationQuery,
		})
	}

	d := NewDispatcher(Config{TargetURL: srv.URL, Concurrency: 8}, vectors, WithLogger(quietLogger()))
	out := d.Run(context.Background())

	require.Len(t, out, len(vectors))
	for i, o := range out {
		body := []byte(vectors[i].Payload)
		assert.False(t, o.IsError(), o.Error)
		assert.EqualValues(t, len(body), o.ResponseSize)
		assert.Equal(t, murmur3.Sum32(body), o.ResponseHash, vectors[i].ID)
	}
}

func TestNewDispatcher_Defaults(t *testing.T) {
	d := NewDispatcher(Config{TargetURL: "http://x.local"}, nil)
	assert.Equal(t, 1, d.config.Concurrency)
	assert.Equal(t, defaults.TimeoutSeconds*time.Second, d.config.Timeout)
	assert.Nil(t, d.limiter)

	d = NewDispatcher(Config{TargetURL: "http://x.local", RateLimit: 0.5}, nil)
	require.NotNil(t, d.limiter)
	assert.Equal(t, 1, d.limiter.Burst())
}

func TestConfigFromTarget(t *testing.T) {
	tc := config.DefaultTarget()
	tc.URL = "http://t.local"
	tc.Timeout = 3
	tc.EvasionLevel = 9
	tc.RateLimit = 20

	cfg := ConfigFromTarget(tc)
	assert.Equal(t, "http://t.local", cfg.TargetURL)
	assert.Equal(t, 3*time.Second, cfg.Timeout)
	assert.Equal(t, mutation.LevelAggressive, cfg.EvasionLevel)
	assert.Equal(t, 20.0, cfg.RateLimit)
}

func TestBuildRequest_UnknownLocation(t *testing.T) {
	_, err := BuildRequest(context.Background(), "http://x.local",
		payloads.AttackVector{ID: "u", Location: "cookie"}, "x", nil)
	assert.ErrorIs(t, err, payloads.ErrInvalidVector)
}
