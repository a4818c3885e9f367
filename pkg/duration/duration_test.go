package duration

import (
	"testing"
	"time"
)

func TestDurationsPositive(t *testing.T) {
	all := map[string]time.Duration{
		"DialTimeout":     DialTimeout,
		"KeepAlive":       KeepAlive,
		"IdleConnTimeout": IdleConnTimeout,
		"TLSHandshake":    TLSHandshake,
		"ServerRead":      ServerRead,
		"ServerWrite":     ServerWrite,
		"Shutdown":        Shutdown,
		"ExporterConnect": ExporterConnect,
		"HealthCheck":     HealthCheck,
	}
	for name, d := range all {
		if d <= 0 {
			t.Errorf("%s must be positive, got %v", name, d)
		}
	}
}

func TestServerWriteOutlivesRead(t *testing.T) {
	if ServerWrite <= ServerRead {
		t.Errorf("ServerWrite (%v) should exceed ServerRead (%v)", ServerWrite, ServerRead)
	}
}
