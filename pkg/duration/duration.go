// Package duration provides canonical time constants for wbt.
//
// Usage:
//
//	ctx, cancel := context.WithTimeout(ctx, duration.HealthCheck)
//	srv.ReadTimeout = duration.ServerRead
package duration

import "time"

// ============================================================================
// HTTP CLIENT
// ============================================================================

const (
	// DialTimeout bounds TCP connection establishment (10s)
	DialTimeout = 10 * time.Second

	// KeepAlive is the TCP keep-alive period (30s)
	KeepAlive = 30 * time.Second

	// IdleConnTimeout is how long idle connections stay pooled (90s)
	IdleConnTimeout = 90 * time.Second

	// TLSHandshake bounds the TLS handshake (10s)
	TLSHandshake = 10 * time.Second
)

// ============================================================================
// SERVERS AND EXPORTERS
// ============================================================================

const (
	// ServerRead is the control surface read timeout (5s)
	ServerRead = 5 * time.Second

	// ServerWrite is the control surface write timeout. Benchmark runs are
	// synchronous, so this is generous (15min).
	ServerWrite = 15 * time.Minute

	// Shutdown bounds graceful shutdown of servers and exporters (5s)
	Shutdown = 5 * time.Second

	// ExporterConnect bounds OTLP exporter connection (10s)
	ExporterConnect = 10 * time.Second
)

// ============================================================================
// HEALTH
// ============================================================================

const (
	// HealthCheck bounds protection-system health probes (2s)
	HealthCheck = 2 * time.Second
)
