package quark

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog"

	"github.com/kinokosu3/quarkdav/backend"
)

// baseURL is the control-plane root every request is issued against.
const baseURL = "https://drive-pc.quark.cn/1/clouddrive"

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Client issues authenticated JSON requests against the Quark control
// plane and interprets its envelope error codes (spec.md §4.1).
type Client struct {
	HTTP    *http.Client
	Cookie  string
	Log     zerolog.Logger
	BaseURL string // defaults to baseURL; overridable in tests
}

// NewClient builds a Client with the authenticated default headers shared
// by every control-plane and range-GET request.
func NewClient(cookie string, log zerolog.Logger) *Client {
	return &Client{HTTP: &http.Client{}, Cookie: cookie, Log: log, BaseURL: baseURL}
}

// shapeFunc customizes a request before it is sent: attaching query
// parameters, a JSON body, or both. It mirrors the Rust original's
// FnOnce(RequestBuilder) -> RequestBuilder callback.
type shapeFunc func(req *http.Request, q url.Values)

func withQuery(extra url.Values) shapeFunc {
	return func(_ *http.Request, q url.Values) {
		for k, vs := range extra {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
	}
}

func withJSONBody(v any) shapeFunc {
	return func(req *http.Request, _ url.Values) {
		b, err := json.Marshal(v)
		if err != nil {
			return
		}
		req.Body = io.NopCloser(bytes.NewReader(b))
		req.ContentLength = int64(len(b))
		req.Header.Set("Content-Type", "application/json")
	}
}

// request issues an authenticated request against pathSuffix and decodes
// the response into T, per spec.md §4.1.
func request[T any](ctx context.Context, c *Client, pathSuffix, method string, shape shapeFunc) (T, error) {
	var zero T

	if c.Cookie == "" {
		return zero, backend.InvalidInput("cookie empty")
	}

	u := c.BaseURL + pathSuffix
	req, err := http.NewRequestWithContext(ctx, method, u, nil)
	if err != nil {
		return zero, backend.Internalf("build request: %v", err)
	}

	q := url.Values{"pr": {"ucpro"}, "fr": {"pc"}}
	if shape != nil {
		shape(req, q)
	}
	req.URL.RawQuery = q.Encode()

	req.Header.Set("Cookie", c.Cookie)
	req.Header.Set("Accept", "application/json, text/plain, */*")
	req.Header.Set("Referer", "https://pan.quark.cn/")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return zero, backend.Internalf("request failed: %v", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return zero, backend.Internalf("read response body: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		switch resp.StatusCode {
		case http.StatusNotFound:
			return zero, backend.NotFound(pathSuffix)
		case http.StatusForbidden:
			return zero, backend.PermissionDenied(pathSuffix)
		case http.StatusUnauthorized:
			return zero, backend.InvalidInput("auth failed")
		default:
			return zero, backend.Internalf("request failed: %d - %s", resp.StatusCode, string(body))
		}
	}

	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return zero, backend.Internalf("parse response: %v", err)
	}
	if env.Code != 0 {
		msg := env.Msg
		if msg == "" {
			msg = "unknown error"
		}
		c.Log.Error().Int("code", env.Code).Str("msg", msg).Str("path", pathSuffix).Msg("quark API error")
		return zero, backend.Internalf("API error: %s", msg)
	}

	var out T
	if err := json.Unmarshal(body, &out); err != nil {
		return zero, backend.Internalf("parse response data: %v", err)
	}
	return out, nil
}
