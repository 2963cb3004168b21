package anthropic

import (
	"strings"

	"github.com/papercomputeco/llmgateway/pkg/llm"
)

// DefaultMaxTokens is sent when the client sets no limit; the Messages API
// requires one.
const DefaultMaxTokens = 4096

// BuildRequest maps a canonical request onto the Messages API. System
// messages are joined into the top-level system prompt and every other
// role becomes user or assistant.
func BuildRequest(req *llm.ChatRequest) *MessagesRequest {
	out := &MessagesRequest{
		Model:         req.Model,
		MaxTokens:     DefaultMaxTokens,
		Temperature:   req.Temperature,
		TopP:          req.TopP,
		TopK:          req.TopK,
		StopSequences: req.Stop,
		Stream:        req.Stream,
	}

	switch {
	case req.MaxTokens != nil:
		out.MaxTokens = *req.MaxTokens
	case req.MaxCompletionTokens != nil:
		out.MaxTokens = *req.MaxCompletionTokens
	}

	if req.User != "" {
		out.Metadata = &requestMeta{UserID: req.User}
	}

	var system []string
	for _, m := range req.Messages {
		if m.Role == llm.RoleSystem {
			system = append(system, m.Content.String())
			continue
		}

		role := "user"
		if m.Role == llm.RoleAssistant {
			role = "assistant"
		}
		out.Messages = append(out.Messages, message{Role: role, Content: content(m.Content)})
	}
	out.System = strings.Join(system, "\n\n")

	return out
}

// content keeps plain strings as strings and converts OpenAI parts to
// Anthropic blocks. Image parts carrying base64 data URLs become inline
// image sources; other image URLs are passed by reference.
func content(c llm.Content) any {
	if c.Parts == nil {
		return c.Text
	}

	blocks := make([]contentBlock, 0, len(c.Parts))
	for _, p := range c.Parts {
		switch p.Type {
		case "text":
			blocks = append(blocks, contentBlock{Type: "text", Text: p.Text})
		case "image_url":
			if src := imageFromPart(p); src != nil {
				blocks = append(blocks, contentBlock{Type: "image", Source: src})
			}
		}
	}
	return blocks
}
