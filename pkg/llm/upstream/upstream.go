// Package upstream holds what every provider implementation shares: the
// request-scoped call description, the response handed back to the HTTP
// layer, and helpers for talking to provider HTTP APIs.
package upstream

import (
	"io"
	"log/slog"
	"net/http"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/pricing"
)

// Config carries the credentials and overrides for one request. It is
// built per request and never stored on a shared provider.
type Config struct {
	APIKey       string
	Organization string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string

	// BaseURL overrides the provider's default endpoint root.
	BaseURL string

	// Price overrides the catalog price for cost accounting.
	Price *pricing.Price
}

// Recorder receives measurements while a call is in flight.
// *metrics.Collector satisfies it.
type Recorder interface {
	MarkFirstByte()
	IncrementChunks()
	SetTokenUsage(u metrics.TokenUsage)
	SetModel(model string)
	SetMetadata(extra map[string]any)
	SetStreamComplete()
	Complete()
}

// Call is one chat completion to run against a provider.
type Call struct {
	Request  *llm.ChatRequest
	Config   Config
	Recorder Recorder
	Logger   *slog.Logger
}

// Response is a provider's answer in canonical form. Exactly one of Body
// or Stream is set. Stream yields canonical SSE bytes and must be closed.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Stream     io.ReadCloser
}

// IsStream reports whether the response is an SSE stream.
func (r *Response) IsStream() bool {
	return r.Stream != nil
}

// Extracted is what a provider can read from one response object or
// stream frame. Unknown values stay nil/empty.
type Extracted struct {
	Model    string
	Tokens   metrics.TokenUsage
	Metadata map[string]any
}

// ApplyExtracted forwards e to rec. A nil e is a no-op.
func ApplyExtracted(rec Recorder, e *Extracted) {
	if rec == nil || e == nil {
		return
	}
	if e.Tokens.InputTokens != nil || e.Tokens.OutputTokens != nil || e.Tokens.TotalTokens != nil {
		rec.SetTokenUsage(e.Tokens)
	}
	if len(e.Metadata) > 0 {
		rec.SetMetadata(e.Metadata)
	}
}

// Discard is a Recorder that drops everything.
type Discard struct{}

func (Discard) MarkFirstByte()                   {}
func (Discard) IncrementChunks()                 {}
func (Discard) SetTokenUsage(metrics.TokenUsage) {}
func (Discard) SetModel(string)                  {}
func (Discard) SetMetadata(map[string]any)       {}
func (Discard) SetStreamComplete()               {}
func (Discard) Complete()                        {}

// RecorderOrDiscard returns rec, or Discard when rec is nil.
func RecorderOrDiscard(rec Recorder) Recorder {
	if rec == nil {
		return Discard{}
	}
	return rec
}

// LoggerOrDiscard returns l, or a discarding logger when l is nil.
func LoggerOrDiscard(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
