package hooks

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

const (
	// DefaultSystemPrompt is injected when a request has no system message.
	DefaultSystemPrompt = "You are a helpful AI assistant."

	// DefaultGatewayVersion is reported in the x-gateway-version header.
	DefaultGatewayVersion = "1.0.0"

	// GatewayVersionHeader names the version response header.
	GatewayVersionHeader = "x-gateway-version"
)

// InjectSystemPrompt prepends a system message with prompt when the request
// carries none. An empty prompt disables injection. The caller's request
// is never modified.
func InjectSystemPrompt(prompt string) BeforeRequest {
	return func(_ context.Context, req *llm.ChatRequest) (*llm.ChatRequest, error) {
		if prompt == "" || llm.HasSystemMessage(req.Messages) {
			return req, nil
		}
		out := req.Clone()
		out.Messages = append([]llm.Message{{
			Role:    llm.RoleSystem,
			Content: llm.TextContent(prompt),
		}}, req.Messages...)
		return out, nil
	}
}

// SetGatewayVersion stamps responses with the gateway version header.
func SetGatewayVersion(version string) AfterResponse {
	return func(_ context.Context, resp *upstream.Response) (*upstream.Response, error) {
		if version == "" {
			return resp, nil
		}
		out := *resp
		out.Header = resp.Header.Clone()
		if out.Header == nil {
			out.Header = http.Header{}
		}
		out.Header.Set(GatewayVersionHeader, version)
		return &out, nil
	}
}

// Defaults returns the hooks every gateway installs: system prompt
// injection, the version header and the gateway_error fallback.
func Defaults(systemPrompt, version string, logger *slog.Logger) Hooks {
	return Hooks{
		Name:          "defaults",
		BeforeRequest: InjectSystemPrompt(systemPrompt),
		AfterResponse: SetGatewayVersion(version),
		OnError:       GatewayError(logger),
	}
}
