package httpclient

import (
	"context"
	"errors"
	"net"
)

// Sentinel errors for HTTP client failure modes.
// Callers should use errors.Is() to check for these.
var (
	// ErrTimeout indicates the request exceeded its deadline.
	ErrTimeout = errors.New("httpclient: request timed out")

	// ErrConnection indicates the connection was refused, reset or
	// otherwise failed before a response arrived.
	ErrConnection = errors.New("httpclient: connection failed")
)

// Classify maps a transport error onto ErrTimeout or ErrConnection,
// wrapping the original so its text is preserved.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return errors.Join(ErrTimeout, err)
	}
	return errors.Join(ErrConnection, err)
}
