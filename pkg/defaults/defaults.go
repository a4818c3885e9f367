// Package defaults provides canonical default values for wbt.
// This is the single source of truth for runtime configuration defaults.
//
// Usage:
//
//	cfg.Concurrency = defaults.Concurrency
//	req.Header.Set("Content-Type", defaults.ContentTypeJSON)
package defaults

// Version is the current wbt version.
const Version = "1.0.0"

// ToolName is used for service names, user agents and report titles.
const ToolName = "wbt"

// ============================================================================
// TARGET SETTINGS
// ============================================================================

const (
	// TimeoutSeconds is the per-request timeout when none is configured (10)
	TimeoutSeconds = 10

	// Concurrency is the worker count when none is configured (5)
	Concurrency = 5

	// EvasionLevel is the default mutation aggressiveness (0)
	EvasionLevel = 0

	// MaxEvasionLevel is the highest supported evasion level (2)
	MaxEvasionLevel = 2

	// RateLimit of 0 disables request rate limiting
	RateLimit = 0
)

// ============================================================================
// PROTECTION SYSTEM SETTINGS
// ============================================================================

const (
	// ProtectionType is the adapter used when none is configured
	ProtectionType = "modsecurity"

	// ModSecurityLogPath is the default ModSecurity JSON audit log
	ModSecurityLogPath = "/var/log/modsec_audit.log"
)

// ============================================================================
// FILESYSTEM LAYOUT
// ============================================================================

const (
	// PayloadDir holds attack-vector category files
	PayloadDir = "payloads"

	// ConfigDir holds target.yaml and waf.yaml
	ConfigDir = "configs"

	// ReportDir receives generated reports
	ReportDir = "reports"
)

// ============================================================================
// HTTP
// ============================================================================

const (
	ContentTypeJSON = "application/json"

	// UserAgent identifies benchmark traffic
	UserAgent = "Mozilla/5.0 (compatible; " + ToolName + "/" + Version + ")"

	// AttackHeader carries payloads injected at the header location
	AttackHeader = "X-Attack-Payload"

	// AttackQueryParam carries payloads injected at the query location
	AttackQueryParam = "q"

	// AttackBodyField carries payloads injected at the body location
	AttackBodyField = "input"

	// RequestIDHeader carries a per-request correlation id
	RequestIDHeader = "X-WBT-Request-Id"

	// LegitHeader marks simulated legitimate traffic
	LegitHeader = "X-WBT-Legit"

	// LegitUserHeader carries the simulated user index
	LegitUserHeader = "X-WBT-User"
)

// ============================================================================
// REPORTING
// ============================================================================

const (
	// MaxReportBypasses caps bypass rows in the PDF report
	MaxReportBypasses = 50

	// MaxReportPayloadLen truncates payloads in PDF tables
	MaxReportPayloadLen = 60
)

// ============================================================================
// API SERVER
// ============================================================================

const (
	// ListenAddr is the control surface address
	ListenAddr = ":8000"

	// LogTailLimit is the default number of log lines served by the API
	LogTailLimit = 50

	// MaxLogTailLimit caps the limit a client may ask the log tail for
	MaxLogTailLimit = 1000
)
