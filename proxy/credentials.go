package proxy

import (
	"net/http"
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/proxy/header"
)

// resolveCredentials reads the target provider from x-provider and builds
// its per-request config. Request credentials win over configured ones.
func (p *Proxy) resolveCredentials(c *fiber.Ctx) (string, upstream.Config, error) {
	id := strings.ToLower(strings.TrimSpace(c.Get(header.Provider)))
	if id == "" {
		return "", upstream.Config{}, llm.ConfigError(http.StatusBadRequest, "Provider not specified")
	}

	creds := p.config.Credentials
	bearer := header.BearerToken(c.Get(header.Authorization))

	var cfg upstream.Config
	switch id {
	case provider.OpenAI:
		cfg.APIKey = firstNonEmpty(bearer, creds.OpenAIAPIKey)
		cfg.Organization = creds.OpenAIOrganization
		if cfg.APIKey == "" {
			return "", cfg, llm.ConfigError(http.StatusUnauthorized, "OpenAI API key not provided")
		}
	case provider.Anthropic:
		cfg.APIKey = firstNonEmpty(bearer, creds.AnthropicAPIKey)
		if cfg.APIKey == "" {
			return "", cfg, llm.ConfigError(http.StatusUnauthorized, "Anthropic API key not provided")
		}
	case provider.Bedrock:
		cfg.AWSAccessKeyID = firstNonEmpty(c.Get(header.AWSAccessKeyID), creds.AWSAccessKeyID)
		cfg.AWSSecretAccessKey = firstNonEmpty(c.Get(header.AWSSecretAccessKey), creds.AWSSecretAccessKey)
		cfg.AWSRegion = firstNonEmpty(c.Get(header.AWSRegion), creds.AWSRegion, defaultAWSRegion)
		if cfg.AWSAccessKeyID == "" || cfg.AWSSecretAccessKey == "" {
			return "", cfg, llm.ConfigError(http.StatusUnauthorized, "AWS credentials not provided")
		}
	case provider.Groq, provider.Fireworks, provider.Together:
		cfg.APIKey = firstNonEmpty(bearer, creds.apiKey(id))
		if cfg.APIKey == "" {
			return "", cfg, llm.ConfigError(http.StatusUnauthorized, id+" API key not provided")
		}
	default:
		err := llm.ConfigError(http.StatusBadRequest, "Invalid provider specified")
		err.Details = map[string]any{
			"provider":  id,
			"supported": provider.SupportedProviders(),
		}
		return "", cfg, err
	}

	return id, cfg, nil
}

func (c Credentials) apiKey(id string) string {
	switch id {
	case provider.Groq:
		return c.GroqAPIKey
	case provider.Fireworks:
		return c.FireworksAPIKey
	case provider.Together:
		return c.TogetherAPIKey
	default:
		return ""
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
