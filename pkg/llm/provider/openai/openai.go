// Package openai implements the OpenAI chat-completions provider and the
// Compatible engine shared by every OpenAI-protocol upstream.
package openai

import (
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// DefaultBaseURL is the public OpenAI API root.
const DefaultBaseURL = "https://api.openai.com/v1"

// New returns the OpenAI provider.
func New(client *http.Client) *Compatible {
	return NewCompatible(Options{
		Name:        "openai",
		DisplayName: "OpenAI",
		BaseURL:     DefaultBaseURL,
		Transform:   transform,
		Headers:     headers,
	}, client)
}

// transform forwards the full OpenAI parameter set. Parameters other
// providers define (top_k, repetition_penalty) are dropped.
func transform(req *llm.ChatRequest) any {
	body := req.Clone()
	body.TopK = nil
	body.RepetitionPenalty = nil
	return body
}

func headers(cfg upstream.Config, req *llm.ChatRequest) map[string]string {
	h := map[string]string{}
	if cfg.Organization != "" {
		h["OpenAI-Organization"] = cfg.Organization
	}
	if req.ResponseFormat != nil && req.ResponseFormat.Type == "json_schema" {
		h["OpenAI-Beta"] = "assistants=v1"
	}
	return h
}
