// Package llm holds the canonical chat-completion wire types the gateway
// accepts from clients and returns to them, regardless of which upstream
// provider served the request.
package llm

import (
	"bytes"
	"encoding/json"
)

// ChatRequest is the unified inbound request. Its shape follows the OpenAI
// chat-completions API; provider packages map it to their own formats.
//
// Optional scalars are pointers so "unset" is distinguishable from zero.
type ChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`

	Store               *bool             `json:"store,omitempty"`
	ReasoningEffort     string            `json:"reasoning_effort,omitempty"`
	Metadata            map[string]string `json:"metadata,omitempty"`
	FrequencyPenalty    *float64          `json:"frequency_penalty,omitempty"`
	LogitBias           map[string]int    `json:"logit_bias,omitempty"`
	Logprobs            *bool             `json:"logprobs,omitempty"`
	TopLogprobs         *int              `json:"top_logprobs,omitempty"`
	MaxTokens           *int              `json:"max_tokens,omitempty"`
	MaxCompletionTokens *int              `json:"max_completion_tokens,omitempty"`
	N                   *int              `json:"n,omitempty"`
	Modalities          []string          `json:"modalities,omitempty"`
	Prediction          json.RawMessage   `json:"prediction,omitempty"`
	Audio               json.RawMessage   `json:"audio,omitempty"`
	PresencePenalty     *float64          `json:"presence_penalty,omitempty"`
	ResponseFormat      *ResponseFormat   `json:"response_format,omitempty"`
	Seed                *int              `json:"seed,omitempty"`
	ServiceTier         string            `json:"service_tier,omitempty"`
	Stop                Stop              `json:"stop,omitempty"`
	Stream              *bool             `json:"stream,omitempty"`
	StreamOptions       *StreamOptions    `json:"stream_options,omitempty"`
	Temperature         *float64          `json:"temperature,omitempty"`
	TopP                *float64          `json:"top_p,omitempty"`
	TopK                *int              `json:"top_k,omitempty"`
	RepetitionPenalty   *float64          `json:"repetition_penalty,omitempty"`
	Tools               []json.RawMessage `json:"tools,omitempty"`
	ToolChoice          json.RawMessage   `json:"tool_choice,omitempty"`
	ParallelToolCalls   *bool             `json:"parallel_tool_calls,omitempty"`
	User                string            `json:"user,omitempty"`

	// Deprecated by OpenAI in favour of Tools/ToolChoice; still forwarded.
	Functions    []json.RawMessage `json:"functions,omitempty"`
	FunctionCall json.RawMessage   `json:"function_call,omitempty"`
}

// ResponseFormat selects structured output.
type ResponseFormat struct {
	Type       string          `json:"type"`
	JSONSchema json.RawMessage `json:"json_schema,omitempty"`
}

// StreamOptions controls stream-only behavior.
type StreamOptions struct {
	IncludeUsage bool `json:"include_usage,omitempty"`
}

// IsStreaming reports whether the client asked for an SSE response.
func (r *ChatRequest) IsStreaming() bool {
	return r.Stream != nil && *r.Stream
}

// Clone returns a shallow copy with an independent message slice so hooks
// can rewrite messages without touching the caller's request.
func (r *ChatRequest) Clone() *ChatRequest {
	c := *r
	c.Messages = append([]Message(nil), r.Messages...)
	return &c
}

// Stop is a list of stop sequences. On the wire it may be a single string or
// an array of strings.
type Stop []string

func (s *Stop) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = nil
		return nil
	}

	if data[0] == '"' {
		var one string
		if err := json.Unmarshal(data, &one); err != nil {
			return err
		}
		*s = Stop{one}
		return nil
	}

	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return err
	}
	*s = many
	return nil
}
