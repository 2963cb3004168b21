package provider

import (
	"fmt"
	"net/http"
	"slices"

	"github.com/papercomputeco/llmgateway/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/bedrock"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/fireworks"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/groq"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/together"
)

// Supported provider ids
const (
	OpenAI    = "openai"
	Anthropic = "anthropic"
	Bedrock   = "bedrock"
	Groq      = "groq"
	Fireworks = "fireworks"
	Together  = "together"
)

// Default is used when a request names no provider.
const Default = OpenAI

// SupportedProviders returns the list of all supported provider ids.
func SupportedProviders() []string {
	return []string{OpenAI, Anthropic, Bedrock, Groq, Fireworks, Together}
}

// IsSupported reports whether id names a known provider.
func IsSupported(id string) bool {
	return slices.Contains(SupportedProviders(), id)
}

// New creates a Provider for id using client for upstream calls.
// Returns an error if the provider id is not recognized.
func New(id string, client *http.Client) (Provider, error) {
	switch id {
	case OpenAI:
		return openai.New(client), nil
	case Anthropic:
		return anthropic.New(client), nil
	case Bedrock:
		return bedrock.New(client), nil
	case Groq:
		return groq.New(client), nil
	case Fireworks:
		return fireworks.New(client), nil
	case Together:
		return together.New(client), nil
	default:
		return nil, fmt.Errorf("unknown provider: %q (supported: %v)", id, SupportedProviders())
	}
}
