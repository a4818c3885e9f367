// Package iohelper reads HTTP response bodies with size limits so a hostile
// target cannot exhaust memory during a benchmark.
package iohelper

import "io"

// DefaultMaxBodySize is for general responses (1MB)
const DefaultMaxBodySize int64 = 1024 * 1024

// ReadBody reads from r with a size limit. A nil reader yields an empty body.
func ReadBody(r io.Reader, maxSize int64) ([]byte, error) {
	if r == nil {
		return []byte{}, nil
	}
	return io.ReadAll(io.LimitReader(r, maxSize))
}

// ReadBodyDefault reads from r with the 1MB limit.
func ReadBodyDefault(r io.Reader) ([]byte, error) {
	return ReadBody(r, DefaultMaxBodySize)
}

// DrainAndClose discards up to 64KB of what is left in r and closes it, so
// the connection can go back to the keep-alive pool. Always returns nil.
func DrainAndClose(r io.Reader) error {
	if r == nil {
		return nil
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(r, 64*1024))
	if rc, ok := r.(io.ReadCloser); ok {
		rc.Close()
	}
	return nil
}
