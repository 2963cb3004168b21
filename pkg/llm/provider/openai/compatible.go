package openai

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// Options describes an API that speaks the OpenAI chat-completions
// protocol. Groq, Fireworks and Together reuse Compatible with their own
// Options.
type Options struct {
	// Name is the provider id used in errors, logs and metrics.
	Name string

	// DisplayName appears in credential errors ("OpenAI API key is required").
	DisplayName string

	// BaseURL is the API root; "/chat/completions" is appended.
	BaseURL string

	// Transform maps the canonical request into the wire body.
	Transform func(req *llm.ChatRequest) any

	// Extract reads usage from a frame or body. Defaults to ExtractUsage.
	Extract func(frame []byte) *upstream.Extracted

	// Headers adds provider-specific request headers.
	Headers func(cfg upstream.Config, req *llm.ChatRequest) map[string]string
}

// Compatible is a Provider for any OpenAI-protocol API. Responses are
// already canonical, so bodies and streams are forwarded verbatim while
// usage is read on the side.
type Compatible struct {
	opts   Options
	client *http.Client
}

// NewCompatible returns a Compatible provider for opts.
func NewCompatible(opts Options, client *http.Client) *Compatible {
	if client == nil {
		client = upstream.NewHTTPClient(0)
	}
	if opts.Extract == nil {
		opts.Extract = ExtractUsage
	}
	if opts.DisplayName == "" {
		opts.DisplayName = opts.Name
	}
	return &Compatible{opts: opts, client: client}
}

// Name returns the provider id.
func (p *Compatible) Name() string {
	return p.opts.Name
}

// ValidateConfig requires an API key.
func (p *Compatible) ValidateConfig(cfg upstream.Config) error {
	if cfg.APIKey == "" {
		return llm.ConfigError(http.StatusUnauthorized, p.opts.DisplayName+" API key is required")
	}
	return nil
}

// TransformRequest returns the wire body for req.
func (p *Compatible) TransformRequest(req *llm.ChatRequest) (any, error) {
	if req == nil {
		return nil, llm.ValidationError("request is required", nil)
	}
	return p.opts.Transform(req), nil
}

// ExtractMetrics reads usage from a response body or stream frame.
func (p *Compatible) ExtractMetrics(frame []byte) *upstream.Extracted {
	return p.opts.Extract(frame)
}

// ChatCompletion calls the upstream and forwards its answer.
func (p *Compatible) ChatCompletion(ctx context.Context, call *upstream.Call) (*upstream.Response, error) {
	logger := upstream.LoggerOrDiscard(call.Logger).With("provider", p.opts.Name)
	rec := upstream.RecorderOrDiscard(call.Recorder)
	req := call.Request

	if err := p.ValidateConfig(call.Config); err != nil {
		return nil, err
	}

	body, err := p.TransformRequest(req)
	if err != nil {
		return nil, err
	}

	if len(req.Functions) > 0 {
		logger.Warn("deprecated parameter forwarded", "parameter", "functions", "replacement", "tools")
	}
	if len(req.FunctionCall) > 0 {
		logger.Warn("deprecated parameter forwarded", "parameter", "function_call", "replacement", "tool_choice")
	}

	headers := map[string]string{
		"Authorization": "Bearer " + call.Config.APIKey,
	}
	if p.opts.Headers != nil {
		maps.Copy(headers, p.opts.Headers(call.Config, req))
	}

	url := upstream.JoinURL(upstream.BaseURL(call.Config, p.opts.BaseURL), "chat/completions")
	logger.Debug("upstream request",
		"url", url,
		"model", req.Model,
		"messages", len(req.Messages),
		"stream", req.IsStreaming(),
	)

	if req.IsStreaming() {
		return p.stream(ctx, url, headers, body, rec, logger)
	}

	resp, err := upstream.PostJSON(ctx, p.client, p.opts.Name, url, headers, body)
	if err != nil {
		return nil, err
	}
	if !upstream.IsSuccess(resp) {
		return nil, upstream.DecodeError(p.opts.Name, resp)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e := llm.UpstreamError(p.opts.Name, http.StatusBadGateway, "reading upstream response", nil)
		e.Err = err
		return nil, e
	}

	rec.MarkFirstByte()
	upstream.ApplyExtracted(rec, p.opts.Extract(raw))
	rec.Complete()

	return &upstream.Response{
		StatusCode: resp.StatusCode,
		Header:     upstream.JSONHeaders(),
		Body:       upstream.FillUsageTotal(raw),
	}, nil
}

// stream opens the upstream SSE response. The upstream request runs on
// its own context so it outlives the handler; the relay cancels it once
// the stream ends or the client disconnects.
func (p *Compatible) stream(ctx context.Context, url string, headers map[string]string, body any, rec upstream.Recorder, logger *slog.Logger) (*upstream.Response, error) {
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))

	resp, err := upstream.PostJSON(sctx, p.client, p.opts.Name, url, headers, body)
	if err != nil {
		cancel()
		return nil, err
	}
	if !upstream.IsSuccess(resp) {
		cancel()
		return nil, upstream.DecodeError(p.opts.Name, resp)
	}

	return &upstream.Response{
		StatusCode: resp.StatusCode,
		Header:     upstream.StreamHeaders(),
		Stream:     upstream.PassthroughSSE(resp.Body, cancel, rec, p.opts.Extract, logger),
	}, nil
}
