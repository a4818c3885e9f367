// Package httpclient builds the pooled HTTP clients used to drive benchmark
// traffic. Attack and legitimate traffic share one factory so both see the
// target through identical transport settings.
package httpclient

import (
	"crypto/tls"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/wafbench/wbt/pkg/duration"
)

// Config holds HTTP client configuration options.
type Config struct {
	// Timeout is the total per-request timeout (default: 10s)
	Timeout time.Duration

	// InsecureSkipVerify skips TLS certificate verification (default: true)
	InsecureSkipVerify bool

	// Proxy is the HTTP/HTTPS proxy URL (optional)
	Proxy string

	// MaxIdleConns is the maximum number of idle connections (default: 100)
	MaxIdleConns int

	// MaxConnsPerHost is the maximum connections per host (default: 25)
	MaxConnsPerHost int

	// DisableKeepAlives disables HTTP keep-alives if true
	DisableKeepAlives bool
}

// DefaultConfig returns defaults suited to benchmark traffic: pooled
// connections, no certificate checks against test targets.
func DefaultConfig() Config {
	return Config{
		Timeout:            10 * time.Second,
		InsecureSkipVerify: true,
		MaxIdleConns:       100,
		MaxConnsPerHost:    25,
	}
}

// New creates a new HTTP client with the given configuration.
//
// The client does not follow redirects: a protection system that answers
// with a redirect must be observed as such, not as the redirect target.
func New(cfg Config) *http.Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.MaxConnsPerHost <= 0 {
		cfg.MaxConnsPerHost = 25
	}

	dialer := &net.Dialer{
		Timeout:   duration.DialTimeout,
		KeepAlive: duration.KeepAlive,
	}

	transport := &http.Transport{
		MaxIdleConns:          cfg.MaxIdleConns,
		MaxIdleConnsPerHost:   cfg.MaxConnsPerHost,
		MaxConnsPerHost:       cfg.MaxConnsPerHost,
		IdleConnTimeout:       duration.IdleConnTimeout,
		DisableKeepAlives:     cfg.DisableKeepAlives,
		ForceAttemptHTTP2:     true,
		ExpectContinueTimeout: 1 * time.Second,
		TLSHandshakeTimeout:   duration.TLSHandshake,
		DialContext:           dialer.DialContext,
		TLSClientConfig: &tls.Config{
			InsecureSkipVerify: cfg.InsecureSkipVerify,
		},
	}

	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err == nil && proxyURL != nil {
			transport.Proxy = http.ProxyURL(proxyURL)
		}
		// Malformed proxy URLs are ignored; traffic goes direct.
	}

	return &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// ForTarget returns a client tuned for a benchmark target: timeout in
// seconds and a connection pool scaled to the worker count.
func ForTarget(timeoutSeconds, concurrency int) *http.Client {
	cfg := DefaultConfig()
	if timeoutSeconds > 0 {
		cfg.Timeout = time.Duration(timeoutSeconds) * time.Second
	}
	if concurrency > 0 {
		cfg.MaxConnsPerHost = concurrency
		cfg.MaxIdleConns = concurrency * 2
	}
	return New(cfg)
}
