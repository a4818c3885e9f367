package main

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/mutation"
)

const payloadYAML = `category: sql injection
vectors:
  - id: sqli-001
    payload: "' OR '1'='1"
  - id: sqli-002
    payload: "1 UNION SELECT 1"
`

const xssYAML = `category: xss
vectors:
  - id: xss-001
    payload: "<script>alert(1)</script>"
    location: query
`

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := newRootCmd()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func payloadDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sqli.yaml"), []byte(payloadYAML), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "xss.yaml"), []byte(xssYAML), 0o644))
	return dir
}

func TestMutateCommand(t *testing.T) {
	out, _, err := execute(t, "mutate", "--level", "2", "--seed", "3", "a b")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	want := mutation.NewGenerator(mutation.WithSeed(3)).Mutate("a b", mutation.LevelAggressive)
	assert.Len(t, lines, len(want))
	assert.Contains(t, out, `"a/**/b"`)
	assert.Contains(t, out, `"a%09b"`)
	assert.Contains(t, out, `"a b%00"`)
}

func TestMutateCommand_JSON(t *testing.T) {
	out, _, err := execute(t, "mutate", "--level", "0", "--json", "--id", "v1", "<x>")
	require.NoError(t, err)

	var muts []mutation.Mutation
	require.NoError(t, jsonutil.Unmarshal([]byte(out), &muts))
	require.Len(t, muts, 1)
	assert.Equal(t, "v1", muts[0].VectorID)
	assert.Equal(t, "<x>", muts[0].Payload)
}

func TestMutateCommand_RequiresPayload(t *testing.T) {
	_, _, err := execute(t, "mutate")
	assert.Error(t, err)
}

func TestVectorsCommand(t *testing.T) {
	dir := payloadDir(t)
	out, _, err := execute(t, "--config-dir", t.TempDir(), "--no-color", "vectors", "-p", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "sqli-001")
	assert.Contains(t, out, "xss-001")
	assert.Contains(t, out, "3 vectors in 2 categories")

	out, _, err = execute(t, "--config-dir", t.TempDir(), "vectors", "-p", dir, "--category", "XSS", "--json")
	require.NoError(t, err)
	var vs []map[string]any
	require.NoError(t, jsonutil.Unmarshal([]byte(out), &vs))
	require.Len(t, vs, 1)
	assert.Equal(t, "xss-001", vs[0]["id"])
}

func TestRunCommand_JSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if strings.Contains(r.URL.Query().Get(defaults.AttackQueryParam), "<script>") {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	cfgDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(cfgDir, "waf.yaml"), []byte("waf:\n  type: none\n"), 0o644))

	out, _, err := execute(t,
		"--config-dir", cfgDir, "--log-level", "error",
		"run", "-p", payloadDir(t), "-u", srv.URL, "-c", "2", "-m", "sequential", "--no-reports", "--json")
	require.NoError(t, err)

	var res map[string]any
	require.NoError(t, jsonutil.Unmarshal([]byte(out), &res), out)
	assert.Equal(t, "success", res["status"])
	results := res["results"].(map[string]any)
	assert.EqualValues(t, 8, results["total_requests"], "5 legit + 3 attacks")
	assert.EqualValues(t, 2, results["false_negatives"])
	assert.EqualValues(t, 80, results["total_score"])
	assert.NotContains(t, res, "reports")
}

func TestRunCommand_InvalidTargetFlag(t *testing.T) {
	_, _, err := execute(t, "--config-dir", t.TempDir(), "run", "-e", "9", "--no-reports")
	assert.Error(t, err)
}

func TestRunCommand_InvalidMode(t *testing.T) {
	_, _, err := execute(t, "--config-dir", t.TempDir(), "run", "-m", "sideways")
	assert.Error(t, err)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, parseLevel("debug"))
	assert.Equal(t, slog.LevelWarn, parseLevel("WARN"))
	assert.Equal(t, slog.LevelInfo, parseLevel("loud"))
	assert.Equal(t, slog.LevelInfo, parseLevel(""))
}

func TestNewLogger_TeesToFile(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "logs", "wbt.json")
	var console bytes.Buffer
	logger, closeFn, err := newLogger(&console, "info", false, logFile)
	require.NoError(t, err)
	require.NotNil(t, closeFn)

	logger.With(slog.String("run", "r1")).Info("benchmark finished", slog.Int("score", 75))
	logger.Debug("hidden")
	require.NoError(t, closeFn())

	assert.Contains(t, console.String(), "benchmark finished")
	assert.NotContains(t, console.String(), "hidden")

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	var entry map[string]any
	require.NoError(t, jsonutil.Unmarshal(bytes.TrimSpace(data), &entry))
	assert.Equal(t, "benchmark finished", entry["msg"])
	assert.Equal(t, "r1", entry["run"])
	assert.EqualValues(t, 75, entry["score"])
}
