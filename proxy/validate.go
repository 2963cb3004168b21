package proxy

import (
	"bytes"
	"encoding/json"
	"slices"

	"github.com/papercomputeco/llmgateway/pkg/llm"
)

const maxTools = 128

var (
	validRoles           = []string{llm.RoleUser, llm.RoleAssistant, llm.RoleSystem}
	validResponseFormats = []string{"text", "json_object", "json_schema"}
	validModalities      = []string{"text", "audio"}
	validReasoningEffort = []string{"low", "medium", "high"}
)

// numberRule bounds an optional numeric request field.
type numberRule struct {
	field   string
	message string
	ok      func(v float64) bool
}

var numberRules = []numberRule{
	{"temperature", "temperature must be between 0 and 2", between(0, 2)},
	{"top_p", "top_p must be between 0 and 1", between(0, 1)},
	{"frequency_penalty", "frequency_penalty must be between -2 and 2", between(-2, 2)},
	{"presence_penalty", "presence_penalty must be between -2 and 2", between(-2, 2)},
	{"max_tokens", "max_tokens must be a positive number", positive},
	{"max_completion_tokens", "max_completion_tokens must be a positive number", positive},
}

func between(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi }
}

func positive(v float64) bool { return v > 0 }

// parseRequest decodes and validates a chat completion body. Checks run in
// a fixed order and the first failure is reported.
func parseRequest(body []byte) (*llm.ChatRequest, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil || fields == nil {
		return nil, llm.ValidationError("Invalid JSON body", nil)
	}

	var model string
	if err := json.Unmarshal(fields["model"], &model); err != nil || model == "" {
		return nil, llm.ValidationError("Model is required", nil)
	}

	var messages []json.RawMessage
	if err := json.Unmarshal(fields["messages"], &messages); err != nil || len(messages) == 0 {
		return nil, llm.ValidationError("Messages array is required and cannot be empty", nil)
	}
	for _, raw := range messages {
		var msg llm.Message
		if err := json.Unmarshal(raw, &msg); err != nil ||
			!slices.Contains(validRoles, msg.Role) || msg.Content.IsEmpty() {
			return nil, llm.ValidationError("Invalid message format", nil)
		}
	}

	for _, rule := range numberRules {
		raw, ok := present(fields, rule.field)
		if !ok {
			continue
		}
		v, isNumber := number(raw)
		if !isNumber || !rule.ok(v) {
			return nil, llm.ValidationError(rule.message, nil)
		}
	}

	if raw, ok := present(fields, "tools"); ok {
		var tools []json.RawMessage
		if err := json.Unmarshal(raw, &tools); err != nil || len(tools) > maxTools {
			return nil, llm.ValidationError("tools must be an array with max 128 items", nil)
		}
	}

	if raw, ok := present(fields, "response_format"); ok {
		var rf llm.ResponseFormat
		if err := json.Unmarshal(raw, &rf); err != nil || !slices.Contains(validResponseFormats, rf.Type) {
			return nil, llm.ValidationError("Invalid response_format type", nil)
		}
	}

	if raw, ok := present(fields, "modalities"); ok {
		var modalities []string
		if err := json.Unmarshal(raw, &modalities); err != nil || !allIn(modalities, validModalities) {
			return nil, llm.ValidationError("Invalid modalities", nil)
		}
	}

	if raw, ok := present(fields, "reasoning_effort"); ok {
		var effort string
		if err := json.Unmarshal(raw, &effort); err != nil || (effort != "" && !slices.Contains(validReasoningEffort, effort)) {
			return nil, llm.ValidationError("Invalid reasoning_effort value", nil)
		}
	}

	var req llm.ChatRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return nil, llm.ValidationError("Invalid JSON body", map[string]any{"reason": err.Error()})
	}
	return &req, nil
}

// present returns a field's raw value unless it is absent or null.
func present(fields map[string]json.RawMessage, name string) (json.RawMessage, bool) {
	raw, ok := fields[name]
	if !ok || isNull(raw) {
		return nil, false
	}
	return raw, true
}

// number reports raw's value when it is a JSON number.
func number(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || (raw[0] != '-' && (raw[0] < '0' || raw[0] > '9')) {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0, false
	}
	return v, true
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

func allIn(values, allowed []string) bool {
	for _, v := range values {
		if !slices.Contains(allowed, v) {
			return false
		}
	}
	return true
}
