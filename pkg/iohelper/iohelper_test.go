package iohelper

import (
	"io"
	"strings"
	"testing"
)

func TestReadBody_NilReader(t *testing.T) {
	body, err := ReadBody(nil, DefaultMaxBodySize)
	if err != nil {
		t.Errorf("Expected no error for nil reader, got %v", err)
	}
	if len(body) != 0 {
		t.Errorf("Expected empty body for nil reader, got %d bytes", len(body))
	}
}

func TestReadBody_RespectsLimit(t *testing.T) {
	body, err := ReadBody(strings.NewReader(strings.Repeat("x", 1000)), 100)
	if err != nil {
		t.Errorf("Unexpected error: %v", err)
	}
	if len(body) != 100 {
		t.Errorf("Expected 100 bytes (limit), got %d", len(body))
	}
}

type closeTracker struct {
	io.Reader
	closed bool
}

func (c *closeTracker) Close() error {
	c.closed = true
	return nil
}

func TestDrainAndClose(t *testing.T) {
	rc := &closeTracker{Reader: strings.NewReader("leftover")}
	if err := DrainAndClose(rc); err != nil {
		t.Fatalf("DrainAndClose returned %v", err)
	}
	if !rc.closed {
		t.Error("Expected reader to be closed")
	}
	if err := DrainAndClose(nil); err != nil {
		t.Errorf("DrainAndClose(nil) returned %v", err)
	}
}
