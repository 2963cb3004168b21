// Package pricing resolves per-token prices for provider models.
//
// Lookup is explicit and ordered: an exact model-name match, then the
// provider's normalized spellings, then (for providers that publish size
// tiers) a deterministic estimate from the model name.
package pricing

import (
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
)

// ErrNoPrice is returned when no price can be resolved for a model.
var ErrNoPrice = errors.New("no price for model")

// Price is a model's list price in USD per million tokens.
type Price struct {
	Input  float64 `json:"input"`
	Output float64 `json:"output"`
}

// Cost converts token counts into USD. The total is always input + output.
func (p Price) Cost(inputTokens, outputTokens int) (float64, float64, float64) {
	inputCost := float64(inputTokens) / 1_000_000.0 * p.Input
	outputCost := float64(outputTokens) / 1_000_000.0 * p.Output
	return inputCost, outputCost, inputCost + outputCost
}

// Models maps model names to prices.
type Models map[string]Price

// Lookuper resolves a price for a provider and model.
type Lookuper interface {
	Lookup(provider, model string) (Price, bool)
}

// Catalog is an immutable set of per-provider price tables.
type Catalog struct {
	models map[string]Models

	// index holds every normalized spelling of every table key.
	index map[string]Models
}

// DefaultCatalog returns the built-in price tables.
func DefaultCatalog() *Catalog {
	return NewCatalog(map[string]Models{
		"anthropic": anthropicModels(),
		"bedrock":   anthropicModels(),
		"openai":    openAIModels(),
		"groq":      groqModels(),
		"fireworks": fireworksModels(),
		"together":  togetherModels(),
	})
}

// NewCatalog indexes the given tables.
func NewCatalog(tables map[string]Models) *Catalog {
	c := &Catalog{
		models: make(map[string]Models, len(tables)),
		index:  make(map[string]Models, len(tables)),
	}

	for provider, models := range tables {
		c.models[provider] = maps.Clone(models)

		idx := Models{}
		variants := providerRules[provider].variants
		for name, price := range models {
			idx[name] = price
			if variants == nil {
				continue
			}
			for _, v := range variants(name) {
				if _, taken := idx[v]; !taken {
					idx[v] = price
				}
			}
		}
		c.index[provider] = idx
	}

	return c
}

// Lookup returns the price for model served by provider.
func (c *Catalog) Lookup(provider, model string) (Price, bool) {
	if c == nil || model == "" {
		return Price{}, false
	}

	if p, ok := c.models[provider][model]; ok {
		return p, true
	}

	r := providerRules[provider]
	if r.variants != nil {
		idx := c.index[provider]
		for _, v := range r.variants(model) {
			if p, ok := idx[v]; ok {
				return p, true
			}
		}
	}

	if r.estimate != nil {
		return r.estimate(model)
	}

	return Price{}, false
}

// Providers returns the provider tables held by the catalog.
func (c *Catalog) Providers() map[string]Models {
	out := make(map[string]Models, len(c.models))
	for k, v := range c.models {
		out[k] = maps.Clone(v)
	}
	return out
}

// LoadCatalog returns the default catalog with overrides from a JSON file
// layered on top. The file maps provider → model → price:
//
//	{"openai": {"gpt-4o": {"input": 2.5, "output": 10}}}
//
// An empty path returns the defaults.
func LoadCatalog(path string) (*Catalog, error) {
	defaults := DefaultCatalog()
	if path == "" {
		return defaults, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pricing file: %w", err)
	}

	var overrides map[string]Models
	if err := json.Unmarshal(data, &overrides); err != nil {
		return nil, fmt.Errorf("parse pricing file: %w", err)
	}

	tables := defaults.Providers()
	for provider, models := range overrides {
		if tables[provider] == nil {
			tables[provider] = Models{}
		}
		maps.Copy(tables[provider], models)
	}

	return NewCatalog(tables), nil
}
