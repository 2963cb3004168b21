// Package bedrock implements the AWS Bedrock provider for Anthropic Claude
// models served through the InvokeModel API.
//
// InvokeModel takes the Anthropic Messages body with the model in the URL
// path instead of the body and an anthropic_version field; the response is
// the native Messages API shape.
package bedrock

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// AnthropicVersion is the Messages API version Bedrock expects in the body.
const AnthropicVersion = "bedrock-2023-05-31"

// Provider implements the Bedrock provider.
type Provider struct {
	client  *http.Client
	decoder *anthropic.Provider
	now     func() time.Time
}

// New returns the Bedrock provider.
func New(client *http.Client) *Provider {
	if client == nil {
		client = upstream.NewHTTPClient(0)
	}
	return &Provider{client: client, decoder: anthropic.New(client), now: time.Now}
}

// Name returns "bedrock".
func (p *Provider) Name() string {
	return "bedrock"
}

// ValidateConfig requires an AWS key pair and region.
func (p *Provider) ValidateConfig(cfg upstream.Config) error {
	if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" || cfg.AWSRegion == "" {
		return llm.ConfigError(http.StatusUnauthorized, "AWS credentials (access key, secret key, and region) are required")
	}
	return nil
}

// TransformRequest builds the InvokeModel body.
func (p *Provider) TransformRequest(req *llm.ChatRequest) (any, error) {
	if req == nil {
		return nil, llm.ValidationError("request is required", nil)
	}
	if req.IsStreaming() {
		return nil, llm.ValidationError("streaming is not supported for bedrock", map[string]any{
			"provider": p.Name(),
		})
	}

	body := anthropic.BuildRequest(req)
	body.Model = ""
	body.Stream = nil
	body.Version = AnthropicVersion
	return body, nil
}

// ExtractMetrics reads usage from an InvokeModel response body.
func (p *Provider) ExtractMetrics(frame []byte) *upstream.Extracted {
	return p.decoder.ExtractMetrics(frame)
}

// Endpoint returns the InvokeModel URL for model in region.
func Endpoint(region, model string) string {
	return fmt.Sprintf("https://bedrock-runtime.%s.amazonaws.com/model/%s/invoke", region, url.PathEscape(model))
}

// ChatCompletion invokes the model and converts the answer.
func (p *Provider) ChatCompletion(ctx context.Context, call *upstream.Call) (*upstream.Response, error) {
	logger := upstream.LoggerOrDiscard(call.Logger).With("provider", p.Name())
	req := call.Request

	if err := p.ValidateConfig(call.Config); err != nil {
		return nil, err
	}
	body, err := p.TransformRequest(req)
	if err != nil {
		return nil, err
	}

	endpoint := Endpoint(call.Config.AWSRegion, req.Model)
	if call.Config.BaseURL != "" {
		endpoint = upstream.JoinURL(call.Config.BaseURL, "model/"+url.PathEscape(req.Model)+"/invoke")
	}

	// TODO: sign with SigV4 using the configured key pair; until then the
	// request only succeeds against endpoints that accept unsigned payloads.
	headers := map[string]string{
		"X-Amz-Date":           p.now().UTC().Format("20060102T150405Z"),
		"X-Amz-Content-Sha256": "UNSIGNED-PAYLOAD",
	}
	logger.Debug("upstream request", "url", endpoint, "model", req.Model)

	resp, err := upstream.PostJSON(ctx, p.client, p.Name(), endpoint, headers, body)
	if err != nil {
		return nil, err
	}
	if !upstream.IsSuccess(resp) {
		return nil, upstream.DecodeError(p.Name(), resp)
	}
	return anthropic.CompleteBody(p.Name(), resp, req.Model, call.Recorder)
}
