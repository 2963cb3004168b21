// Package together implements the Together AI provider on the OpenAI
// Compatible engine.
package together

import (
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// DefaultBaseURL is the Together API root.
const DefaultBaseURL = "https://api.together.xyz/v1"

const (
	defaultTopK              = 50
	defaultRepetitionPenalty = 1.0
)

// New returns the Together provider.
func New(client *http.Client) *openai.Compatible {
	return openai.NewCompatible(openai.Options{
		Name:        "together",
		DisplayName: "Together",
		BaseURL:     DefaultBaseURL,
		Transform:   transform,
	}, client)
}

func transform(req *llm.ChatRequest) any {
	topK := defaultTopK
	if req.TopK != nil {
		topK = *req.TopK
	}
	penalty := defaultRepetitionPenalty
	if req.RepetitionPenalty != nil {
		penalty = *req.RepetitionPenalty
	}

	return upstream.CleanBody(map[string]any{
		"model":              req.Model,
		"messages":           req.Messages,
		"stream":             req.IsStreaming(),
		"max_tokens":         req.MaxTokens,
		"temperature":        req.Temperature,
		"top_p":              req.TopP,
		"top_k":              topK,
		"repetition_penalty": penalty,
		"stop":               []string(req.Stop),
	})
}
