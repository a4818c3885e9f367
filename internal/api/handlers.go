package api

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wafbench/wbt/pkg/config"
	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/duration"
	"github.com/wafbench/wbt/pkg/iohelper"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/orchestrator"
	"github.com/wafbench/wbt/pkg/protection"
	"github.com/wafbench/wbt/pkg/report"
)

type errorBody struct {
	Error string `json:"error"`
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", defaults.ContentTypeJSON)
	w.WriteHeader(status)
	if err := jsonutil.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("write response", slog.String("error", err.Error()))
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, msg string) {
	s.writeJSON(w, status, errorBody{Error: msg})
}

func (s *Server) root(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"message": "WAF Benchmark Toolkit is running.",
		"version": defaults.Version,
	})
}

func (s *Server) startBenchmark(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("mode")
	if raw == "" {
		raw = string(orchestrator.ModeConcurrent)
	}
	mode, err := orchestrator.ParseMode(raw)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	// The run outlives a dropped client connection.
	res := s.orch.Start(context.WithoutCancel(r.Context()), mode)
	switch res.Status {
	case orchestrator.StatusConflict:
		s.writeError(w, http.StatusConflict, "Benchmark is already running")
	default:
		s.writeJSON(w, http.StatusOK, res)
	}
}

type statusBody struct {
	Running     bool                      `json:"running"`
	State       orchestrator.State        `json:"state"`
	Transitions []orchestrator.Transition `json:"transitions"`
}

func (s *Server) status(w http.ResponseWriter, _ *http.Request) {
	st := s.orch.State()
	s.writeJSON(w, http.StatusOK, statusBody{
		Running:     st == orchestrator.StateRunning,
		State:       st,
		Transitions: s.orch.Transitions(),
	})
}

func (s *Server) latestStats(w http.ResponseWriter, _ *http.Request) {
	var summary *report.Summary
	if last := s.orch.Last(); last != nil {
		summary = last.Results
	}
	s.writeJSON(w, http.StatusOK, summary.Latest())
}

func (s *Server) getTarget(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Target())
}

func (s *Server) updateTarget(w http.ResponseWriter, r *http.Request) {
	cfg := config.DefaultTarget()
	if !s.decode(w, r, &cfg) {
		return
	}
	if err := s.store.SetTarget(cfg); err != nil {
		s.configError(w, "target", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.Target())
}

func (s *Server) getProtection(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.store.Protection())
}

func (s *Server) updateProtection(w http.ResponseWriter, r *http.Request) {
	cfg := config.DefaultProtection()
	if !s.decode(w, r, &cfg) {
		return
	}
	if err := s.store.SetProtection(cfg); err != nil {
		s.configError(w, "waf", err)
		return
	}
	s.writeJSON(w, http.StatusOK, s.store.Protection())
}

func (s *Server) protectionHealth(w http.ResponseWriter, r *http.Request) {
	cfg := s.store.Protection()
	adapter, err := protection.New(cfg, s.logger)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), duration.HealthCheck)
	defer cancel()
	s.writeJSON(w, http.StatusOK, map[string]any{
		"type":    adapter.Name(),
		"healthy": adapter.CheckHealth(ctx),
	})
}

func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	body, err := iohelper.ReadBodyDefault(r.Body)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, "read body: "+err.Error())
		return false
	}
	if err := jsonutil.Unmarshal(body, v); err != nil {
		s.writeError(w, http.StatusUnprocessableEntity, "invalid json: "+err.Error())
		return false
	}
	return true
}

func (s *Server) configError(w http.ResponseWriter, section string, err error) {
	if errors.Is(err, config.ErrInvalidConfig) {
		s.writeError(w, http.StatusUnprocessableEntity, err.Error())
		return
	}
	s.logger.Error("failed to save config", slog.String("section", section), slog.String("error", err.Error()))
	s.writeError(w, http.StatusInternalServerError, "Failed to save configuration")
}

func (s *Server) listReports(w http.ResponseWriter, _ *http.Request) {
	files, err := s.reports.List()
	if err != nil {
		s.logger.Error("list reports", slog.String("error", err.Error()))
		s.writeError(w, http.StatusInternalServerError, "Failed to list reports")
		return
	}
	s.writeJSON(w, http.StatusOK, files)
}

func (s *Server) downloadReport(w http.ResponseWriter, r *http.Request) {
	path, err := s.reports.Path(mux.Vars(r)["name"])
	switch {
	case errors.Is(err, report.ErrInvalidName):
		s.writeError(w, http.StatusBadRequest, "Invalid report name")
		return
	case errors.Is(err, report.ErrNotFound):
		s.writeError(w, http.StatusNotFound, "Report not found")
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="`+filepath.Base(path)+`"`)
	http.ServeFile(w, r, path)
}

// tailLogs returns the last limit JSON lines of the log file, with limit
// capped at defaults.MaxLogTailLimit. Lines that are not JSON objects are
// skipped.
func (s *Server) tailLogs(w http.ResponseWriter, r *http.Request) {
	limit := defaults.LogTailLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = min(n, defaults.MaxLogTailLimit)
	}

	entries := []map[string]any{}
	if s.logFile == "" || limit == 0 {
		s.writeJSON(w, http.StatusOK, entries)
		return
	}

	f, err := os.Open(s.logFile)
	if errors.Is(err, os.ErrNotExist) {
		s.writeJSON(w, http.StatusOK, entries)
		return
	}
	if err != nil {
		s.logger.Error("failed to read logs", slog.String("error", err.Error()))
		s.writeJSON(w, http.StatusOK, entries)
		return
	}
	defer f.Close()

	var ring [][]byte
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := append([]byte(nil), scanner.Bytes()...)
		if len(ring) == limit {
			ring = append(ring[1:], line)
		} else {
			ring = append(ring, line)
		}
	}
	for _, line := range ring {
		var entry map[string]any
		if jsonutil.Unmarshal(line, &entry) == nil {
			entries = append(entries, entry)
		}
	}
	s.writeJSON(w, http.StatusOK, entries)
}
