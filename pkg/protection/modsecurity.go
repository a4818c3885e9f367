package protection

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/jsonutil"
)

// timestampLayouts are tried in order when parsing time_stamp.
var timestampLayouts = []string{
	time.ANSIC,
	time.RFC3339Nano,
	"02/Jan/2006:15:04:05 -0700",
}

// ModSecurity reads a ModSecurity v3 JSON audit log: one JSON object per
// line, each holding a "transaction".
type ModSecurity struct {
	path   string
	logger *slog.Logger
}

// Option configures a ModSecurity adapter.
type Option func(*ModSecurity)

// WithLogger sets a custom structured logger for the adapter.
func WithLogger(l *slog.Logger) Option {
	return func(m *ModSecurity) {
		if l != nil {
			m.logger = l
		}
	}
}

// NewModSecurity creates an adapter for the audit log at path.
func NewModSecurity(path string, opts ...Option) *ModSecurity {
	if path == "" {
		path = defaults.ModSecurityLogPath
	}
	m := &ModSecurity{path: path, logger: slog.Default()}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *ModSecurity) Name() string { return string(TypeModSecurity) }

// Path returns the audit log location.
func (m *ModSecurity) Path() string { return m.path }

// CheckHealth reports whether the audit log can be opened.
func (m *ModSecurity) CheckHealth(ctx context.Context) bool {
	if ctx.Err() != nil {
		return false
	}
	f, err := os.Open(m.path)
	if err != nil {
		return false
	}
	f.Close()
	return true
}

// GetLogs parses the audit log. A missing file yields no entries and a
// warning; malformed lines are skipped.
func (m *ModSecurity) GetLogs(ctx context.Context, start, end time.Time) ([]LogEntry, error) {
	f, err := os.Open(m.path)
	if errors.Is(err, os.ErrNotExist) {
		m.logger.Warn("modsecurity audit log not found", slog.String("path", m.path))
		return []LogEntry{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLogUnavailable, err)
	}
	defer f.Close()

	entries := []LogEntry{}
	skipped := 0

	scanner := bufio.NewScanner(f)
	// Audit records carry full request and response bodies.
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 4*1024*1024)

	for lineNo := 0; scanner.Scan(); lineNo++ {
		if lineNo%256 == 0 {
			if err := ctx.Err(); err != nil {
				return entries, err
			}
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		entry, err := ParseModSecurityLine([]byte(line))
		if err != nil {
			skipped++
			continue
		}
		if InWindow(entry.Timestamp, start, end) {
			entries = append(entries, entry)
		}
	}
	if err := scanner.Err(); err != nil {
		return entries, fmt.Errorf("%w: %w", ErrLogUnavailable, err)
	}

	m.logger.Debug("modsecurity audit log read",
		slog.String("path", m.path),
		slog.Int("entries", len(entries)),
		slog.Int("skipped", skipped))
	return entries, nil
}

type modsecRecord struct {
	Transaction *struct {
		ClientIP  string `json:"client_ip"`
		TimeStamp string `json:"time_stamp"`
		ID        string `json:"id"`
		UniqueID  string `json:"unique_id"`
		Request   struct {
			URI     string            `json:"uri"`
			Headers map[string]string `json:"headers"`
		} `json:"request"`
		Response struct {
			HTTPCode int `json:"http_code"`
		} `json:"response"`
		Messages []struct {
			Details *struct {
				RuleID any `json:"ruleId"`
			} `json:"details"`
		} `json:"messages"`
	} `json:"transaction"`
}

// ParseModSecurityLine normalises one audit record. The request id comes
// from the X-WBT-Request-Id request header when the benchmark sent one,
// otherwise from the transaction id.
func ParseModSecurityLine(line []byte) (LogEntry, error) {
	var rec modsecRecord
	if err := jsonutil.Unmarshal(line, &rec); err != nil {
		return LogEntry{}, err
	}
	if rec.Transaction == nil {
		return LogEntry{}, errors.New("protection: record has no transaction")
	}
	tx := rec.Transaction

	entry := LogEntry{
		Timestamp:      parseTimestamp(tx.TimeStamp),
		RequestID:      tx.ID,
		RulesTriggered: []string{},
		Action:         ActionAllowed,
		ClientIP:       tx.ClientIP,
		URI:            tx.Request.URI,
	}
	if entry.RequestID == "" {
		entry.RequestID = tx.UniqueID
	}
	for name, value := range tx.Request.Headers {
		if strings.EqualFold(name, defaults.RequestIDHeader) && value != "" {
			entry.RequestID = value
			break
		}
	}
	for _, msg := range tx.Messages {
		if msg.Details == nil {
			continue
		}
		if id := ruleIDString(msg.Details.RuleID); id != "" {
			entry.RulesTriggered = append(entry.RulesTriggered, id)
		}
	}
	if tx.Response.HTTPCode == 403 {
		entry.Action = ActionBlocked
	}
	return entry, nil
}

func ruleIDString(v any) string {
	switch id := v.(type) {
	case string:
		return id
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64)
	default:
		return ""
	}
}

func parseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return ts
		}
	}
	return time.Time{}
}
