package transport

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/CaptianFluffy100/net-sentinel/internal/evalcode"
	"github.com/CaptianFluffy100/net-sentinel/internal/probeerr"
	"github.com/CaptianFluffy100/net-sentinel/internal/script"
	"github.com/CaptianFluffy100/net-sentinel/internal/value"
)

// HTTPDriver drives one HTTP/HTTPS round trip per HttpRequest block, per
// spec.md §4.4. TLS certificate validation is left at the standard
// library's default (enabled), matching the spec's "TLS validation is
// enabled by default for HTTPS".
type HTTPDriver struct {
	client *http.Client
	target Target
}

// NewHTTPDriver returns a driver for target, which must have Protocol
// HTTP or HTTPS.
func NewHTTPDriver(target Target) *HTTPDriver {
	return &HTTPDriver{
		client: &http.Client{Timeout: target.Timeout},
		target: target,
	}
}

// Do builds and sends the HTTP request described by blk, resolving
// PARAM/HEADER/DATA values against env (so a value like "PORT" or a
// bound variable interpolates), and returns the structured result the
// Response Reader consumes.
func (d *HTTPDriver) Do(ctx context.Context, blk *script.HTTPBlock, env *value.Environment) (*evalcode.HTTPResult, error) {
	scheme := "http"
	if d.target.Protocol == HTTPS {
		scheme = "https"
	}
	u := &url.URL{Scheme: scheme, Host: d.target.Address(), Path: blk.Path}

	if len(blk.Params) > 0 {
		q := url.Values{}
		for _, kv := range blk.Params {
			q.Set(kv.Key, resolveTemplate(kv.Value, env))
		}
		u.RawQuery = q.Encode()
	}

	body, contentType := d.buildBody(blk, env)

	req, err := http.NewRequestWithContext(ctx, strings.ToUpper(blk.Method), u.String(), body)
	if err != nil {
		return nil, probeerr.NewNetworkError("build request", false, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	for _, kv := range blk.Headers {
		req.Header.Set(kv.Key, resolveTemplate(kv.Value, env))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, probeerr.NewNetworkError("round trip", isTimeout(err), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, probeerr.NewNetworkError("read response body", isTimeout(err), err)
	}

	return &evalcode.HTTPResult{Status: resp.StatusCode, Headers: resp.Header, Body: respBody}, nil
}

// buildBody assembles the request body from BODY_START's DATA lines.
// FORM emits application/x-www-form-urlencoded; RAW emits the payload
// verbatim with a best-effort application/json content type if it
// looks like a JSON document. A HEADER-set Content-Type always wins,
// enforced by Do setting it before the HEADER loop overwrites it.
func (d *HTTPDriver) buildBody(blk *script.HTTPBlock, env *value.Environment) (io.Reader, string) {
	if len(blk.BodyData) == 0 {
		return nil, ""
	}
	resolved := make([]string, len(blk.BodyData))
	for i, line := range blk.BodyData {
		resolved[i] = resolveTemplate(line, env)
	}

	switch blk.BodyType {
	case "FORM":
		return strings.NewReader(strings.Join(resolved, "&")), "application/x-www-form-urlencoded"
	case "RAW":
		payload := strings.Join(resolved, "")
		ct := ""
		trimmed := strings.TrimSpace(payload)
		if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
			ct = "application/json"
		}
		return bytes.NewReader([]byte(payload)), ct
	default:
		return strings.NewReader(strings.Join(resolved, "")), ""
	}
}

func resolveTemplate(s string, env *value.Environment) string {
	return value.Interpolate(s, func(path string) (string, bool) {
		v, ok := value.ResolvePath(env, path)
		if !ok {
			return "", false
		}
		return v.AsString(), true
	})
}
