package metrics

import (
	"context"
	"log/slog"
	"maps"
	"sync"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/pricing"
)

// State is a Collector's lifecycle position. It only moves forward.
type State int

const (
	StateCollecting State = iota
	StateCompleted
	StateFinished
	StateExported
)

func (s State) String() string {
	switch s {
	case StateCollecting:
		return "collecting"
	case StateCompleted:
		return "completed"
	case StateFinished:
		return "finished"
	case StateExported:
		return "exported"
	default:
		return "unknown"
	}
}

// Sink receives finalized records. Implementations must not fail the
// caller; delivery errors are theirs to log.
type Sink interface {
	ExportMetrics(ctx context.Context, m *RequestMetrics)
}

// CollectorConfig configures a Collector.
type CollectorConfig struct {
	RequestID string
	Method    string
	Path      string
	Provider  string

	// Price, when set, is used instead of looking the model up in Prices.
	Price  *pricing.Price
	Prices pricing.Lookuper

	Sink   Sink
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// Collector accumulates measurements for one request and finalizes them
// exactly once. It is safe for concurrent use: the stream goroutine and the
// finalizer may touch it at the same time when the collection wait expires.
type Collector struct {
	mu sync.Mutex

	record        RequestMetrics
	price         *pricing.Price
	explicitTotal bool
	firstByte     bool
	state         State

	completed    chan struct{}
	completeOnce sync.Once
	finishOnce   sync.Once
	final        *RequestMetrics

	prices pricing.Lookuper
	sink   Sink
	logger *slog.Logger
	now    func() time.Time
}

// NewCollector starts collecting for a request. The start time is taken now.
func NewCollector(cfg CollectorConfig) *Collector {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	start := now()
	return &Collector{
		record: RequestMetrics{
			RequestID:   cfg.RequestID,
			Timestamp:   start,
			Method:      cfg.Method,
			Path:        cfg.Path,
			Provider:    cfg.Provider,
			Performance: Performance{StartTime: start},
		},
		price:     cfg.Price,
		completed: make(chan struct{}),
		prices:    cfg.Prices,
		sink:      cfg.Sink,
		logger:    log,
		now:       now,
	}
}

// update runs fn under the lock unless the record is already final.
func (c *Collector) update(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state >= StateFinished {
		return
	}
	fn()
}

// RequestID returns the id the collector was created with.
func (c *Collector) RequestID() string {
	return c.record.RequestID
}

// State returns the current lifecycle state.
func (c *Collector) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MarkFirstByte records time-to-first-byte on its first call.
func (c *Collector) MarkFirstByte() {
	c.update(func() {
		if c.firstByte {
			return
		}
		c.firstByte = true
		c.record.Performance.TTFB = ms(c.now().Sub(c.record.Performance.StartTime))
	})
}

// SetTTFB records an explicit time-to-first-byte.
func (c *Collector) SetTTFB(d time.Duration) {
	c.update(func() {
		c.firstByte = true
		c.record.Performance.TTFB = ms(d)
	})
}

// IncrementChunks counts one emitted stream chunk.
func (c *Collector) IncrementChunks() {
	c.update(func() {
		c.record.Metadata.TotalChunks++
	})
}

// SetTokenUsage merges u into the recorded counts. Set fields replace prior
// values. The total is derived from input and output unless a total was
// ever supplied explicitly.
func (c *Collector) SetTokenUsage(u TokenUsage) {
	c.update(func() {
		t := &c.record.Tokens
		if u.InputTokens != nil {
			t.Input = intPtr(*u.InputTokens)
		}
		if u.OutputTokens != nil {
			t.Output = intPtr(*u.OutputTokens)
		}
		if u.TotalTokens != nil {
			t.Total = intPtr(*u.TotalTokens)
			c.explicitTotal = true
			return
		}
		if !c.explicitTotal && t.Input != nil && t.Output != nil {
			t.Total = intPtr(*t.Input + *t.Output)
		}
	})
}

// SetTokenDetails attaches provider-specific token breakdowns.
func (c *Collector) SetTokenDetails(details map[string]any) {
	c.update(func() {
		if c.record.Tokens.Details == nil {
			c.record.Tokens.Details = map[string]any{}
		}
		maps.Copy(c.record.Tokens.Details, details)
	})
}

// SetModel records the model and resolves its price when none was given.
func (c *Collector) SetModel(model string) {
	c.update(func() {
		c.record.Model = model
		if c.price != nil || c.prices == nil {
			return
		}
		if p, ok := c.prices.Lookup(c.record.Provider, model); ok {
			c.price = &p
		} else {
			c.logger.Debug("no price for model", "provider", c.record.Provider, "model", model)
		}
	})
}

// SetStatus records the HTTP status sent to the client.
func (c *Collector) SetStatus(code int) {
	c.update(func() {
		c.record.Status = code
		c.record.Success = IsSuccess(code)
	})
}

// SetMetadata merges provider-specific metadata.
func (c *Collector) SetMetadata(extra map[string]any) {
	c.update(func() {
		if c.record.Metadata.Extra == nil {
			c.record.Metadata.Extra = map[string]any{}
		}
		maps.Copy(c.record.Metadata.Extra, extra)
	})
}

// SetEstimated flags token counts as estimates rather than reported usage.
func (c *Collector) SetEstimated(estimated bool) {
	c.update(func() {
		c.record.Metadata.Estimated = estimated
	})
}

// SetCached marks the response as served from cache.
func (c *Collector) SetCached(cached bool) {
	c.update(func() {
		c.record.Cached = cached
	})
}

// SetLocation records the client location.
func (c *Collector) SetLocation(loc *Location) {
	c.update(func() {
		if loc == nil {
			c.record.Location = nil
			return
		}
		l := *loc
		c.record.Location = &l
	})
}

// SetStreamComplete marks the upstream stream as fully consumed and
// completes collection.
func (c *Collector) SetStreamComplete() {
	c.update(func() {
		c.record.Metadata.StreamComplete = true
	})
	c.Complete()
}

// Complete ends the collecting phase. It is idempotent.
func (c *Collector) Complete() {
	c.completeOnce.Do(func() {
		c.mu.Lock()
		if c.state < StateCompleted {
			c.state = StateCompleted
		}
		c.mu.Unlock()
		close(c.completed)
	})
}

// Done is closed once collection completes.
func (c *Collector) Done() <-chan struct{} {
	return c.completed
}

// AwaitCompletion waits until collection completes, timeout elapses, or
// ctx ends. It reports whether collection completed.
func (c *Collector) AwaitCompletion(ctx context.Context, timeout time.Duration) bool {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-c.completed:
		return true
	case <-timer.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// Finish finalizes the record and hands it to the sink. Only the first
// call has any effect; later calls return the same record. Unset token
// counts become zero and cost is recomputed from the final counts.
func (c *Collector) Finish(ctx context.Context) *RequestMetrics {
	c.finishOnce.Do(func() {
		c.mu.Lock()
		end := c.now()
		c.record.Performance.EndTime = end
		c.record.Performance.TotalLatency = ms(end.Sub(c.record.Performance.StartTime))

		t := &c.record.Tokens
		if t.Input == nil {
			t.Input = intPtr(0)
		}
		if t.Output == nil {
			t.Output = intPtr(0)
		}
		if t.Total == nil {
			t.Total = intPtr(*t.Input + *t.Output)
		}
		c.record.Cost = c.cost()
		c.state = StateFinished
		final := c.record.clone()
		c.final = final
		c.mu.Unlock()

		if c.sink != nil {
			c.sink.ExportMetrics(ctx, final.clone())
		}

		c.mu.Lock()
		c.state = StateExported
		c.mu.Unlock()

		c.logger.Debug("request metrics finalized",
			"request_id", final.RequestID,
			"provider", final.Provider,
			"model", final.Model,
			"status", final.Status,
			"latency_ms", final.Performance.TotalLatency,
		)
	})

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.final.clone()
}

// Snapshot returns a copy of the record as it stands, with cost computed
// from the current counts.
func (c *Collector) Snapshot() *RequestMetrics {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.final != nil {
		return c.final.clone()
	}
	snap := c.record.clone()
	snap.Cost = c.cost()
	return snap
}

// cost must be called with mu held.
func (c *Collector) cost() *Cost {
	if c.price == nil {
		return nil
	}
	in, out, total := c.price.Cost(IntOrZero(c.record.Tokens.Input), IntOrZero(c.record.Tokens.Output))
	return &Cost{InputCost: in, OutputCost: out, TotalCost: total}
}

func (m *RequestMetrics) clone() *RequestMetrics {
	if m == nil {
		return nil
	}
	out := *m
	out.Tokens.Input = clonePtr(m.Tokens.Input)
	out.Tokens.Output = clonePtr(m.Tokens.Output)
	out.Tokens.Total = clonePtr(m.Tokens.Total)
	out.Tokens.Details = maps.Clone(m.Tokens.Details)
	out.Metadata.Extra = maps.Clone(m.Metadata.Extra)
	if m.Cost != nil {
		c := *m.Cost
		out.Cost = &c
	}
	if m.Location != nil {
		l := *m.Location
		out.Location = &l
	}
	return &out
}

func intPtr(v int) *int { return &v }

func clonePtr(p *int) *int {
	if p == nil {
		return nil
	}
	return intPtr(*p)
}
