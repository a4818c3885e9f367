package traffic

import (
	"io"
	"net/http"
	"time"

	"github.com/wafbench/wbt/pkg/httpclient"
	"github.com/wafbench/wbt/pkg/iohelper"
)

// Exchange is the raw result of one request/response round trip. Body
// holds at most iohelper.DefaultMaxBodySize bytes; Size is the full length.
type Exchange struct {
	StatusCode int
	Body       []byte
	Size       int64
	StartedAt  time.Time
	FinishedAt time.Time
}

// LatencyMs is the round-trip time in milliseconds.
func (e Exchange) LatencyMs() float64 {
	return float64(e.FinishedAt.Sub(e.StartedAt).Microseconds()) / 1000
}

// Send performs req, keeps a bounded copy of the body and counts the rest
// without buffering it. Transport errors
// are classified with httpclient.Classify; StartedAt is set either way.
func Send(client *http.Client, req *http.Request) (Exchange, error) {
	ex := Exchange{StartedAt: time.Now()}
	resp, err := client.Do(req)
	if err != nil {
		ex.FinishedAt = time.Now()
		return ex, httpclient.Classify(err)
	}
	defer iohelper.DrainAndClose(resp.Body)

	body, err := iohelper.ReadBodyDefault(resp.Body)
	var rest int64
	if err == nil {
		rest, err = io.Copy(io.Discard, resp.Body)
	}
	ex.FinishedAt = time.Now()
	ex.StatusCode = resp.StatusCode
	if err != nil {
		return ex, httpclient.Classify(err)
	}
	ex.Body = body
	ex.Size = int64(len(body)) + rest
	return ex, nil
}
