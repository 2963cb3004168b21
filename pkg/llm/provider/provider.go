// Package provider selects the upstream implementation for a request and
// binds it to that request's credentials.
package provider

import (
	"context"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// Provider is one upstream LLM API. Implementations hold no per-request
// state and are shared by every request for that provider.
type Provider interface {
	// Name returns the canonical provider id (e.g., "openai", "anthropic").
	Name() string

	// ValidateConfig rejects missing credentials before any network I/O.
	ValidateConfig(cfg upstream.Config) error

	// TransformRequest maps the canonical request into the provider's wire
	// body. It has no side effects.
	TransformRequest(req *llm.ChatRequest) (any, error)

	// ChatCompletion runs the whole exchange: validate, transform, call the
	// upstream, and hand back a canonical JSON body or SSE stream. Failures
	// are *llm.Error values.
	ChatCompletion(ctx context.Context, call *upstream.Call) (*upstream.Response, error)

	// ExtractMetrics reads usage and metadata from a single stream frame or
	// a whole response body. It returns nil when the input carries nothing.
	ExtractMetrics(frame []byte) *upstream.Extracted
}
