package httpclient

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RespectsTimeout(t *testing.T) {
	client := New(Config{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, client.Timeout)
}

func TestNewClient_ZeroValuesGetDefaults(t *testing.T) {
	client := New(Config{})
	assert.Equal(t, 10*time.Second, client.Timeout)

	transport, ok := client.Transport.(*http.Transport)
	require.True(t, ok)
	assert.Equal(t, 100, transport.MaxIdleConns)
	assert.Equal(t, 25, transport.MaxConnsPerHost)
}

func TestNewClient_InvalidProxyIgnored(t *testing.T) {
	client := New(Config{Proxy: "://bad"})
	transport := client.Transport.(*http.Transport)
	assert.Nil(t, transport.Proxy)
}

func TestForTarget(t *testing.T) {
	client := ForTarget(3, 8)
	assert.Equal(t, 3*time.Second, client.Timeout)
	transport := client.Transport.(*http.Transport)
	assert.Equal(t, 8, transport.MaxConnsPerHost)
	assert.Equal(t, 16, transport.MaxIdleConns)
}

func TestNewClient_DoesNotFollowRedirects(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, "/elsewhere", http.StatusFound)
	}))
	defer srv.Close()

	resp, err := New(DefaultConfig()).Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusFound, resp.StatusCode)
}

func TestClassify(t *testing.T) {
	assert.Nil(t, Classify(nil))

	timeout := Classify(context.DeadlineExceeded)
	assert.True(t, errors.Is(timeout, ErrTimeout))
	assert.True(t, errors.Is(timeout, context.DeadlineExceeded))

	conn := Classify(errors.New("connection reset by peer"))
	assert.True(t, errors.Is(conn, ErrConnection))
	assert.Contains(t, conn.Error(), "connection reset by peer")
}
