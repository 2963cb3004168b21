// Package fireworks implements the Fireworks AI provider on the OpenAI
// Compatible engine, filling in Fireworks' sampling defaults.
package fireworks

import (
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// DefaultBaseURL is the Fireworks inference API root.
const DefaultBaseURL = "https://api.fireworks.ai/inference/v1"

// Sampling defaults applied when the client leaves a parameter unset.
const (
	DefaultTemperature = 0.7
	DefaultTopP        = 1.0
	DefaultTopK        = 40
)

// New returns the Fireworks provider.
func New(client *http.Client) *openai.Compatible {
	return openai.NewCompatible(openai.Options{
		Name:        "fireworks",
		DisplayName: "Fireworks",
		BaseURL:     DefaultBaseURL,
		Transform:   transform,
	}, client)
}

func transform(req *llm.ChatRequest) any {
	return upstream.CleanBody(map[string]any{
		"model":             req.Model,
		"messages":          req.Messages,
		"stream":            req.IsStreaming(),
		"max_tokens":        req.MaxTokens,
		"temperature":       orDefault(req.Temperature, DefaultTemperature),
		"top_p":             orDefault(req.TopP, DefaultTopP),
		"top_k":             DefaultTopK,
		"presence_penalty":  orDefault(req.PresencePenalty, 0),
		"frequency_penalty": orDefault(req.FrequencyPenalty, 0),
	})
}

func orDefault(v *float64, def float64) float64 {
	if v == nil {
		return def
	}
	return *v
}
