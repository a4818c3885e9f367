package attack

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/wafbench/wbt/pkg/defaults"
	"github.com/wafbench/wbt/pkg/jsonutil"
	"github.com/wafbench/wbt/pkg/payloads"
)

// BuildRequest places payload at the vector's injection point on target:
//
//	query  -> ?q=<payload>
//	header -> X-Attack-Payload: <payload>
//	body   -> {"input": "<payload>"}
//	path   -> target + "/" + payload (exactly one separator)
//
// Configured headers are applied first, so the injection header wins.
func BuildRequest(ctx context.Context, target string, v payloads.AttackVector, payload string, headers map[string]string) (*http.Request, error) {
	u, err := url.Parse(target)
	if err != nil {
		return nil, fmt.Errorf("parse target %q: %w", target, err)
	}

	var body io.Reader
	switch v.Location {
	case payloads.LocationQuery, "":
		q := u.Query()
		q.Set(defaults.AttackQueryParam, payload)
		u.RawQuery = q.Encode()
	case payloads.LocationBody:
		data, err := jsonutil.Marshal(map[string]string{defaults.AttackBodyField: payload})
		if err != nil {
			return nil, fmt.Errorf("encode body: %w", err)
		}
		body = bytes.NewReader(data)
	case payloads.LocationPath:
		appendPath(u, payload)
	case payloads.LocationHeader:
	default:
		return nil, fmt.Errorf("%w: unknown location %q", payloads.ErrInvalidVector, v.Location)
	}

	method := v.Method
	if method == "" {
		method = http.MethodGet
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}

	req.Header.Set("User-Agent", defaults.UserAgent)
	for k, val := range headers {
		req.Header.Set(k, val)
	}
	if body != nil {
		req.Header.Set("Content-Type", defaults.ContentTypeJSON)
	}
	if v.Location == payloads.LocationHeader {
		req.Header.Set(defaults.AttackHeader, payload)
	}
	return req, nil
}

// appendPath joins payload onto the URL path with a single "/". Payloads
// that are already valid escaped paths are sent byte for byte.
func appendPath(u *url.URL, payload string) {
	escapedBase := u.EscapedPath()
	base := u.Path
	if !strings.HasSuffix(base, "/") {
		base += "/"
		escapedBase += "/"
	}

	if unescaped, err := url.PathUnescape(payload); err == nil {
		u.Path = base + unescaped
		u.RawPath = escapedBase + payload
		return
	}
	u.Path = base + payload
	u.RawPath = ""
}
