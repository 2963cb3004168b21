package upstream

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/llm"
)

const (
	// DefaultTimeout bounds the wait for an upstream's response headers.
	// Non-streaming completions only answer once generation is done.
	DefaultTimeout = 5 * time.Minute

	dialTimeout = 30 * time.Second

	maxErrorBody = 1 << 20
)

// NewHTTPClient returns the client shared by all provider instances.
// timeout bounds connecting and waiting for response headers only. Reading
// the body is bounded by the request context, so a stream may run longer.
func NewHTTPClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.DialContext = (&net.Dialer{
		Timeout:   dialTimeout,
		KeepAlive: 30 * time.Second,
	}).DialContext
	transport.ResponseHeaderTimeout = timeout

	return &http.Client{Transport: transport}
}

// PostJSON sends body as JSON to url. Transport failures become an
// upstream error tagged with provider.
func PostJSON(ctx context.Context, client *http.Client, provider, url string, headers map[string]string, body any) (*http.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, llm.InternalError(fmt.Errorf("encoding %s request: %w", provider, err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, llm.InternalError(fmt.Errorf("creating %s request: %w", provider, err))
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		e := llm.UpstreamError(provider, http.StatusBadGateway, "upstream request failed", nil)
		e.Err = err
		return nil, e
	}
	return resp, nil
}

// DecodeError turns a non-2xx provider response into an upstream error,
// keeping the provider's status and the best message it offers. The
// response body is consumed and closed.
func DecodeError(provider string, resp *http.Response) *llm.Error {
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	var details any
	message := ""
	if json.Unmarshal(raw, &details) == nil {
		message = errorMessage(details)
	} else if s := strings.TrimSpace(string(raw)); s != "" {
		details = s
	}
	if message == "" {
		message = fmt.Sprintf("%s API error: %s", provider, http.StatusText(resp.StatusCode))
	}

	return llm.UpstreamError(provider, resp.StatusCode, message, details)
}

// errorMessage digs the message out of the common provider error shapes:
// {"error":{"message":...}}, {"error":"..."} and {"message":...}.
func errorMessage(body any) string {
	m, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	switch e := m["error"].(type) {
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg
		}
	case string:
		return e
	}
	if msg, ok := m["message"].(string); ok {
		return msg
	}
	return ""
}

// IsSuccess reports whether resp carries a 2xx status.
func IsSuccess(resp *http.Response) bool {
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// StreamHeaders are the response headers for canonical SSE output.
func StreamHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	return h
}

// JSONHeaders are the response headers for canonical JSON output.
func JSONHeaders() http.Header {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return h
}

// JoinURL joins a base URL and a path with exactly one slash.
func JoinURL(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}

// BaseURL returns the override from cfg when set, otherwise def.
func BaseURL(cfg Config, def string) string {
	if cfg.BaseURL != "" {
		return cfg.BaseURL
	}
	return def
}
