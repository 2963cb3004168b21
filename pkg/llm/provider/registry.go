package provider

import (
	"context"
	"log/slog"
	"net/http"
	"sync"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// Registry hands out providers. Each id is instantiated once and shared;
// credentials never live on the shared instance.
type Registry struct {
	mu        sync.Mutex
	providers map[string]Provider
	client    *http.Client
}

// NewRegistry returns a Registry whose providers share client.
func NewRegistry(client *http.Client) *Registry {
	if client == nil {
		client = upstream.NewHTTPClient(0)
	}
	return &Registry{
		providers: make(map[string]Provider),
		client:    client,
	}
}

// Bound is a provider paired with the configuration of one request.
type Bound struct {
	Provider Provider
	Config   upstream.Config
}

// Name returns the bound provider's id.
func (b *Bound) Name() string {
	return b.Provider.Name()
}

// ChatCompletion runs req through the provider with the bound config.
func (b *Bound) ChatCompletion(ctx context.Context, req *llm.ChatRequest, rec upstream.Recorder, logger *slog.Logger) (*upstream.Response, error) {
	return b.Provider.ChatCompletion(ctx, &upstream.Call{
		Request:  req,
		Config:   b.Config,
		Recorder: rec,
		Logger:   logger,
	})
}

// Get returns the provider for id bound to cfg. Unknown ids are a
// validation error.
func (r *Registry) Get(id string, cfg upstream.Config) (*Bound, error) {
	p, err := r.provider(id)
	if err != nil {
		return nil, err
	}
	return &Bound{Provider: p, Config: cfg}, nil
}

func (r *Registry) provider(id string) (Provider, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p, ok := r.providers[id]; ok {
		return p, nil
	}

	p, err := New(id, r.client)
	if err != nil {
		return nil, llm.ValidationError("Invalid provider specified", map[string]any{
			"provider":  id,
			"supported": SupportedProviders(),
		})
	}
	r.providers[id] = p
	return p, nil
}
