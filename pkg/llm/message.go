package llm

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Roles accepted on inbound chat messages.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is a single chat message in the canonical (OpenAI-shaped) format.
type Message struct {
	Role       string          `json:"role"`
	Content    Content         `json:"content"`
	Name       string          `json:"name,omitempty"`
	ToolCalls  json.RawMessage `json:"tool_calls,omitempty"`
	ToolCallID string          `json:"tool_call_id,omitempty"`
}

// Content holds message content, which on the wire is either a plain string
// or a list of typed parts (text, image_url, input_audio).
type Content struct {
	Text  string
	Parts []ContentPart
}

// ContentPart is one element of a multi-part message content list.
type ContentPart struct {
	Type       string          `json:"type"`
	Text       string          `json:"text,omitempty"`
	ImageURL   json.RawMessage `json:"image_url,omitempty"`
	InputAudio json.RawMessage `json:"input_audio,omitempty"`
}

var errContentType = errors.New("message content must be a string or an array of content parts")

// TextContent returns string content.
func TextContent(s string) Content {
	return Content{Text: s}
}

// IsEmpty reports whether the content carries nothing.
func (c Content) IsEmpty() bool {
	return c.Text == "" && len(c.Parts) == 0
}

// String flattens the content to plain text. Non-text parts are dropped.
func (c Content) String() string {
	if c.Parts == nil {
		return c.Text
	}

	var b strings.Builder
	for _, p := range c.Parts {
		if p.Type == "text" {
			b.WriteString(p.Text)
		}
	}
	return b.String()
}

func (c Content) MarshalJSON() ([]byte, error) {
	if c.Parts != nil {
		return json.Marshal(c.Parts)
	}
	return json.Marshal(c.Text)
}

func (c *Content) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*c = Content{}

	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		return nil
	case data[0] == '"':
		return json.Unmarshal(data, &c.Text)
	case data[0] == '[':
		parts := []ContentPart{}
		if err := json.Unmarshal(data, &parts); err != nil {
			return err
		}
		c.Parts = parts
		return nil
	default:
		return errContentType
	}
}

// HasSystemMessage reports whether any message carries the system role.
func HasSystemMessage(messages []Message) bool {
	for _, m := range messages {
		if m.Role == RoleSystem {
			return true
		}
	}
	return false
}
