// Package hooks runs ordered request, response and error transforms around
// every chat completion.
package hooks

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

// BeforeRequest rewrites a request before it is dispatched. Returning an
// error stops the pipeline and fails the request.
type BeforeRequest func(ctx context.Context, req *llm.ChatRequest) (*llm.ChatRequest, error)

// AfterResponse rewrites a provider response before it is written to the
// client. Returning an error stops the pipeline and fails the request.
type AfterResponse func(ctx context.Context, resp *upstream.Response) (*upstream.Response, error)

// OnError may turn a failure into a client reply. It reports false when it
// leaves the error to later hooks.
type OnError func(ctx context.Context, err error) (*Reply, bool)

// Reply is an error response chosen by an OnError hook.
type Reply struct {
	Status int
	Body   llm.ErrorResponse
}

// Hooks is one set of transforms. Any field may be nil.
type Hooks struct {
	Name          string
	BeforeRequest BeforeRequest
	AfterResponse AfterResponse
	OnError       OnError
}

// Pipeline applies registered Hooks in registration order.
type Pipeline struct {
	mu     sync.RWMutex
	hooks  []Hooks
	logger *slog.Logger
}

// NewPipeline returns an empty pipeline.
func NewPipeline(logger *slog.Logger) *Pipeline {
	return &Pipeline{logger: upstream.LoggerOrDiscard(logger)}
}

// Add appends h to the pipeline.
func (p *Pipeline) Add(h Hooks) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hooks = append(p.hooks, h)
}

// Len returns the number of registered hook sets.
func (p *Pipeline) Len() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.hooks)
}

func (p *Pipeline) snapshot() []Hooks {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Hooks(nil), p.hooks...)
}

// TransformRequest threads req through every BeforeRequest hook.
func (p *Pipeline) TransformRequest(ctx context.Context, req *llm.ChatRequest) (*llm.ChatRequest, error) {
	for _, h := range p.snapshot() {
		if h.BeforeRequest == nil {
			continue
		}
		next, err := h.BeforeRequest(ctx, req)
		if err != nil {
			return nil, err
		}
		if next != nil {
			req = next
		}
	}
	return req, nil
}

// TransformResponse threads resp through every AfterResponse hook.
func (p *Pipeline) TransformResponse(ctx context.Context, resp *upstream.Response) (*upstream.Response, error) {
	for _, h := range p.snapshot() {
		if h.AfterResponse == nil {
			continue
		}
		next, err := h.AfterResponse(ctx, resp)
		if err != nil {
			return nil, err
		}
		if next != nil {
			resp = next
		}
	}
	return resp, nil
}

// HandleError offers err to each OnError hook in turn and returns the first
// reply. A hook that panics is logged and skipped.
func (p *Pipeline) HandleError(ctx context.Context, err error) (*Reply, bool) {
	for _, h := range p.snapshot() {
		if h.OnError == nil {
			continue
		}
		if reply, ok := p.tryOnError(ctx, h, err); ok {
			return reply, true
		}
	}
	return nil, false
}

func (p *Pipeline) tryOnError(ctx context.Context, h Hooks, err error) (reply *Reply, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("error hook panicked", "hook", h.Name, "panic", r)
			reply, ok = nil, false
		}
	}()
	return h.OnError(ctx, err)
}

// GatewayError is the default OnError hook. Tagged gateway errors carry
// their own status and are left alone; anything else becomes a 500
// gateway_error carrying the error text.
func GatewayError(logger *slog.Logger) OnError {
	logger = upstream.LoggerOrDiscard(logger)
	return func(_ context.Context, err error) (*Reply, bool) {
		var gerr *llm.Error
		if errors.As(err, &gerr) && gerr.Kind != llm.KindInternal {
			return nil, false
		}

		logger.Error("request failed", "error", err)
		msg := "An unknown error occurred"
		if err != nil {
			msg = err.Error()
		}
		status := http.StatusInternalServerError
		return &Reply{
			Status: status,
			Body:   llm.NewErrorResponse(status, llm.TypeGateway, msg, nil),
		}, true
	}
}
