// Package anthropic implements the Anthropic Messages API provider. Requests
// are translated from the canonical chat format and responses, streamed or
// not, are translated back.
package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

const (
	// DefaultBaseURL is the Anthropic API root.
	DefaultBaseURL = "https://api.anthropic.com/v1"

	// APIVersion is sent in the anthropic-version header.
	APIVersion = "2023-06-01"
)

// Provider implements the Anthropic provider.
type Provider struct {
	client *http.Client
}

// New returns the Anthropic provider.
func New(client *http.Client) *Provider {
	if client == nil {
		client = upstream.NewHTTPClient(0)
	}
	return &Provider{client: client}
}

// Name returns "anthropic".
func (p *Provider) Name() string {
	return "anthropic"
}

// ValidateConfig requires an API key.
func (p *Provider) ValidateConfig(cfg upstream.Config) error {
	if cfg.APIKey == "" {
		return llm.ConfigError(http.StatusUnauthorized, "Anthropic API key is required")
	}
	return nil
}

// TransformRequest builds the Messages API body.
func (p *Provider) TransformRequest(req *llm.ChatRequest) (any, error) {
	if req == nil {
		return nil, llm.ValidationError("request is required", nil)
	}
	return BuildRequest(req), nil
}

// ExtractMetrics reads usage from a stream frame or a whole response body.
func (p *Provider) ExtractMetrics(frame []byte) *upstream.Extracted {
	var ev streamEvent
	if err := json.Unmarshal(frame, &ev); err != nil {
		return nil
	}
	return extractFromEvent(&ev)
}

// ChatCompletion calls the Messages API and converts the answer.
func (p *Provider) ChatCompletion(ctx context.Context, call *upstream.Call) (*upstream.Response, error) {
	logger := upstream.LoggerOrDiscard(call.Logger).With("provider", p.Name())
	rec := upstream.RecorderOrDiscard(call.Recorder)
	req := call.Request

	if err := p.ValidateConfig(call.Config); err != nil {
		return nil, err
	}
	body, err := p.TransformRequest(req)
	if err != nil {
		return nil, err
	}

	url := upstream.JoinURL(upstream.BaseURL(call.Config, DefaultBaseURL), "messages")
	headers := map[string]string{
		"x-api-key":         call.Config.APIKey,
		"anthropic-version": APIVersion,
	}
	logger.Debug("upstream request", "url", url, "model", req.Model, "stream", req.IsStreaming())

	if req.IsStreaming() {
		sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		resp, err := upstream.PostJSON(sctx, p.client, p.Name(), url, headers, body)
		if err != nil {
			cancel()
			return nil, err
		}
		if !upstream.IsSuccess(resp) {
			cancel()
			return nil, upstream.DecodeError(p.Name(), resp)
		}

		return &upstream.Response{
			StatusCode: http.StatusOK,
			Header:     upstream.StreamHeaders(),
			Stream:     NewTranscoder(req.Model, rec, logger).Pipe(resp.Body, cancel),
		}, nil
	}

	resp, err := upstream.PostJSON(ctx, p.client, p.Name(), url, headers, body)
	if err != nil {
		return nil, err
	}
	if !upstream.IsSuccess(resp) {
		return nil, upstream.DecodeError(p.Name(), resp)
	}
	return CompleteBody(p.Name(), resp, req.Model, rec)
}

// CompleteBody reads a non-streaming Messages API response and returns it
// as a canonical chat.completion.
func CompleteBody(provider string, resp *http.Response, model string, rec upstream.Recorder) (*upstream.Response, error) {
	defer resp.Body.Close()
	rec = upstream.RecorderOrDiscard(rec)

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		e := llm.UpstreamError(provider, http.StatusBadGateway, "reading upstream response", nil)
		e.Err = err
		return nil, e
	}
	rec.MarkFirstByte()

	var msg Response
	if err := json.Unmarshal(raw, &msg); err != nil {
		e := llm.UpstreamError(provider, http.StatusBadGateway, "invalid upstream response", nil)
		e.Err = err
		return nil, e
	}

	ev := streamEvent{Type: "message", ID: msg.ID, Model: msg.Model, Usage: msg.Usage}
	if e := extractFromEvent(&ev); e != nil {
		if msg.StopReason != "" {
			e.Metadata["stop_reason"] = msg.StopReason
		}
		upstream.ApplyExtracted(rec, e)
	}
	rec.Complete()

	out, err := json.Marshal(ToChatCompletion(&msg, model, time.Now()))
	if err != nil {
		return nil, llm.InternalError(err)
	}
	return &upstream.Response{
		StatusCode: http.StatusOK,
		Header:     upstream.JSONHeaders(),
		Body:       out,
	}, nil
}
