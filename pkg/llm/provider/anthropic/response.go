package anthropic

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

// NewCompletionID returns a fresh OpenAI-style completion id.
func NewCompletionID() string {
	return "chatcmpl-" + uuid.NewString()
}

// ToChatCompletion converts a Messages API response into the canonical
// chat.completion shape. The model is reported as the client asked for it.
func ToChatCompletion(resp *Response, model string, now time.Time) *llm.ChatCompletion {
	var text strings.Builder
	for _, b := range resp.Content {
		if b.Type == "text" || b.Type == "" {
			text.WriteString(b.Text)
		}
	}

	finish := resp.StopReason
	if finish == "" {
		finish = "stop"
	}

	in, out := 0, 0
	if resp.Usage != nil {
		in = metrics.IntOrZero(resp.Usage.InputTokens)
		out = metrics.IntOrZero(resp.Usage.OutputTokens)
	}

	return &llm.ChatCompletion{
		ID:      NewCompletionID(),
		Object:  llm.ObjectChatCompletion,
		Created: now.Unix(),
		Model:   model,
		Choices: []llm.Choice{{
			Index: 0,
			Message: llm.ResponseMessage{
				Role:    llm.RoleAssistant,
				Content: text.String(),
			},
			FinishReason: finish,
		}},
		Usage: llm.NewUsage(in, out),
	}
}

// extractFromEvent reads usage and metadata from a parsed stream event or
// whole response body.
func extractFromEvent(ev *streamEvent) *upstream.Extracted {
	switch ev.Type {
	case "message_start":
		if ev.Message == nil {
			return nil
		}
		e := &upstream.Extracted{
			Model: ev.Message.Model,
			Metadata: map[string]any{
				"message_id": ev.Message.ID,
			},
		}
		if ev.Message.Usage != nil {
			e.Tokens.InputTokens = ev.Message.Usage.InputTokens
			addCacheDetails(e.Metadata, ev.Message.Usage)
		}
		return e

	case "message_delta":
		if ev.Usage == nil {
			return nil
		}
		e := &upstream.Extracted{
			Tokens: metrics.TokenUsage{OutputTokens: ev.Usage.OutputTokens},
		}
		if ev.Delta != nil && ev.Delta.StopReason != "" {
			e.Metadata = map[string]any{"stop_reason": ev.Delta.StopReason}
		}
		return e

	case "message", "":
		if ev.Usage == nil {
			return nil
		}
		e := &upstream.Extracted{
			Tokens: metrics.TokenUsage{
				InputTokens:  ev.Usage.InputTokens,
				OutputTokens: ev.Usage.OutputTokens,
			},
			Model:    ev.Model,
			Metadata: map[string]any{},
		}
		if ev.ID != "" {
			e.Metadata["message_id"] = ev.ID
		}
		addCacheDetails(e.Metadata, ev.Usage)
		return e
	}
	return nil
}

func addCacheDetails(meta map[string]any, u *Usage) {
	if u.CacheCreationInputTokens != nil {
		meta["cache_creation_input_tokens"] = *u.CacheCreationInputTokens
	}
	if u.CacheReadInputTokens != nil {
		meta["cache_read_input_tokens"] = *u.CacheReadInputTokens
	}
}
