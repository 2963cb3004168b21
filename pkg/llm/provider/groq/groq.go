// Package groq implements the Groq provider. Groq speaks the OpenAI
// protocol but reports usage and timings under x_groq in stream frames.
package groq

import (
	"encoding/json"
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// DefaultBaseURL is Groq's OpenAI-compatible API root.
const DefaultBaseURL = "https://api.groq.com/openai/v1"

// New returns the Groq provider.
func New(client *http.Client) *openai.Compatible {
	return openai.NewCompatible(openai.Options{
		Name:        "groq",
		DisplayName: "Groq",
		BaseURL:     DefaultBaseURL,
		Transform:   transform,
		Extract:     extract,
	}, client)
}

type request struct {
	Model            string        `json:"model"`
	Messages         []llm.Message `json:"messages"`
	MaxTokens        *int          `json:"max_tokens,omitempty"`
	Temperature      *float64      `json:"temperature,omitempty"`
	TopP             *float64      `json:"top_p,omitempty"`
	Stream           *bool         `json:"stream,omitempty"`
	Stop             llm.Stop      `json:"stop,omitempty"`
	N                *int          `json:"n,omitempty"`
	PresencePenalty  *float64      `json:"presence_penalty,omitempty"`
	FrequencyPenalty *float64      `json:"frequency_penalty,omitempty"`
	User             string        `json:"user,omitempty"`
}

func transform(req *llm.ChatRequest) any {
	return &request{
		Model:            req.Model,
		Messages:         req.Messages,
		MaxTokens:        req.MaxTokens,
		Temperature:      req.Temperature,
		TopP:             req.TopP,
		Stream:           req.Stream,
		Stop:             req.Stop,
		N:                req.N,
		PresencePenalty:  req.PresencePenalty,
		FrequencyPenalty: req.FrequencyPenalty,
		User:             req.User,
	}
}

type usage struct {
	openai.Usage
	QueueTime      *float64 `json:"queue_time"`
	PromptTime     *float64 `json:"prompt_time"`
	CompletionTime *float64 `json:"completion_time"`
	TotalTime      *float64 `json:"total_time"`
}

type frame struct {
	Usage *usage `json:"usage"`
	XGroq *struct {
		ID    string `json:"id"`
		Usage *usage `json:"usage"`
	} `json:"x_groq"`
}

// extract prefers the top-level usage and falls back to x_groq.usage.
// Queue and generation timings become metadata.
func extract(raw []byte) *upstream.Extracted {
	var f frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}

	u := f.Usage
	if u == nil && f.XGroq != nil {
		u = f.XGroq.Usage
	}

	e := openai.ExtractUsageWith(raw, func([]byte) *openai.Usage {
		if u == nil {
			return nil
		}
		return &u.Usage
	})
	if e == nil {
		return nil
	}

	timings := map[string]*float64{
		"queue_time":      u.QueueTime,
		"prompt_time":     u.PromptTime,
		"completion_time": u.CompletionTime,
		"total_time":      u.TotalTime,
	}
	for k, v := range timings {
		if v != nil {
			e.Metadata[k] = *v
		}
	}
	if f.XGroq != nil && f.XGroq.ID != "" {
		e.Metadata["groq_request_id"] = f.XGroq.ID
	}
	return e
}
