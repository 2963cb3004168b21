package openai

import (
	"encoding/json"

	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

// Usage is the OpenAI usage object. Fields are pointers because stream
// frames often carry a partial or null object.
type Usage struct {
	PromptTokens     *int `json:"prompt_tokens"`
	CompletionTokens *int `json:"completion_tokens"`
	TotalTokens      *int `json:"total_tokens"`
}

// Tokens converts u, deriving the total when the provider omitted it.
func (u *Usage) Tokens() metrics.TokenUsage {
	t := metrics.TokenUsage{
		InputTokens:  u.PromptTokens,
		OutputTokens: u.CompletionTokens,
		TotalTokens:  u.TotalTokens,
	}
	if t.TotalTokens == nil && t.InputTokens != nil && t.OutputTokens != nil {
		t.TotalTokens = upstream.IntPtr(*t.InputTokens + *t.OutputTokens)
	}
	return t
}

type usageEnvelope struct {
	ID                string `json:"id"`
	Model             string `json:"model"`
	SystemFingerprint string `json:"system_fingerprint"`
	Usage             *Usage `json:"usage"`
	Choices           []struct {
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
}

// ExtractUsage reads the top-level usage object of an OpenAI response body
// or stream frame. Frames without usage return nil.
func ExtractUsage(frame []byte) *upstream.Extracted {
	var env usageEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil
	}
	return fromEnvelope(&env, env.Usage)
}

// ExtractUsageWith is ExtractUsage with a fallback usage location, used by
// providers that nest usage elsewhere in stream frames.
func ExtractUsageWith(frame []byte, fallback func(raw []byte) *Usage) *upstream.Extracted {
	var env usageEnvelope
	if err := json.Unmarshal(frame, &env); err != nil {
		return nil
	}
	u := env.Usage
	if u == nil && fallback != nil {
		u = fallback(frame)
	}
	return fromEnvelope(&env, u)
}

func fromEnvelope(env *usageEnvelope, u *Usage) *upstream.Extracted {
	if u == nil {
		return nil
	}

	meta := map[string]any{}
	if env.ID != "" {
		meta["response_id"] = env.ID
	}
	if env.SystemFingerprint != "" {
		meta["system_fingerprint"] = env.SystemFingerprint
	}
	for _, c := range env.Choices {
		if c.FinishReason != nil {
			meta["finish_reason"] = *c.FinishReason
			break
		}
	}

	return &upstream.Extracted{
		Model:    env.Model,
		Tokens:   u.Tokens(),
		Metadata: meta,
	}
}
