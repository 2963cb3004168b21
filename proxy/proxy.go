// Package proxy provides the LLM gateway HTTP server: it accepts
// OpenAI-shaped chat completion requests, routes them to the provider
// named in x-provider, and records per-request metrics for export.
package proxy

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/papercomputeco/llmgateway/pkg/cache"
	"github.com/papercomputeco/llmgateway/pkg/hooks"
	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/openai"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/pricing"
	"github.com/papercomputeco/llmgateway/proxy/header"
	"github.com/papercomputeco/llmgateway/proxy/worker"
)

const (
	completionsPath = "/v1/chat/completions"
	healthPath      = "/health"
)

// Deps are the shared components the gateway routes requests through.
type Deps struct {
	// Registry resolves provider ids. Defaults to a registry over a client
	// bounded by Config.UpstreamTimeout.
	Registry *provider.Registry

	// Hooks transform requests, responses and errors. Defaults to an
	// empty pipeline.
	Hooks *hooks.Pipeline

	// Sink receives finalized metrics, usually an *exporter.Manager.
	Sink metrics.Sink

	// Prices resolves per-model prices for cost accounting.
	Prices pricing.Lookuper

	// Cache, when set, answers identical non-streaming requests.
	Cache cache.Cache

	Tracer trace.Tracer
	Logger *slog.Logger
}

// Proxy is the LLM gateway server.
type Proxy struct {
	config        Config
	registry      *provider.Registry
	hooks         *hooks.Pipeline
	sink          metrics.Sink
	prices        pricing.Lookuper
	cache         cache.Cache
	tracer        trace.Tracer
	workerPool    *worker.Pool
	logger        *slog.Logger
	server        *fiber.App
	headerHandler *header.Handler

	// finalizers tracks goroutines waiting on a collector so Close can
	// let them enqueue before the pool shuts down.
	finalizers sync.WaitGroup
	closeOnce  sync.Once
	closeErr   error
}

// New creates a new Proxy.
func New(config Config, deps Deps) (*Proxy, error) {
	if config.CollectionTimeout <= 0 {
		config.CollectionTimeout = defaultCollectionTimeout
	}
	if config.CacheTTL <= 0 {
		config.CacheTTL = defaultCacheTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	registry := deps.Registry
	if registry == nil {
		registry = provider.NewRegistry(upstream.NewHTTPClient(config.UpstreamTimeout))
	}
	pipeline := deps.Hooks
	if pipeline == nil {
		pipeline = hooks.NewPipeline(logger)
	}
	tracer := deps.Tracer
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("")
	}

	wp, err := worker.NewPool(&worker.Config{
		NumWorkers: config.Workers,
		QueueSize:  config.QueueSize,
		Logger:     logger,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create worker pool: %w", err)
	}

	app := fiber.New(fiber.Config{
		// Disable startup message for cleaner logs
		DisableStartupMessage: true,
		ErrorHandler:          errorHandler(logger),
	})

	app.Use(recover.New())
	app.Use(cors.New())
	// Add compression middleware to handle responses
	app.Use(compress.New())
	app.Use(requestID)

	p := &Proxy{
		config:        config,
		registry:      registry,
		hooks:         pipeline,
		sink:          deps.Sink,
		prices:        deps.Prices,
		cache:         deps.Cache,
		tracer:        tracer,
		workerPool:    wp,
		logger:        logger,
		server:        app,
		headerHandler: header.NewHandler(),
	}

	app.Get(healthPath, adaptor.HTTPHandler(HealthHandler()))
	app.Post(completionsPath, p.handleChatCompletion)
	app.All(completionsPath, methodNotAllowed)

	return p, nil
}

// App exposes the underlying fiber app, mainly for app.Test in tests.
func (p *Proxy) App() *fiber.App {
	return p.server
}

// Run starts the proxy server on the given listening address
func (p *Proxy) Run() error {
	p.logger.Info("starting gateway server", "listen", p.config.ListenAddr)
	return p.server.Listen(p.config.ListenAddr)
}

// RunWithListener starts the proxy server using the provided listener.
func (p *Proxy) RunWithListener(listener net.Listener) error {
	p.logger.Info("starting gateway server", "listen", listener.Addr().String())
	return p.server.Listener(listener)
}

// Close stops accepting requests, waits for pending metrics to be handed
// to the worker pool, then drains the pool.
func (p *Proxy) Close() error {
	p.closeOnce.Do(func() {
		p.closeErr = p.server.Shutdown()
		p.finalizers.Wait()
		p.workerPool.Close()
	})
	return p.closeErr
}

// HealthHandler reports liveness as {"status":"ok"}.
func HealthHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, `{"status":"ok"}`)
	})
}

// requestID tags every response with an x-request-id, reusing the
// client's when it sent one.
func requestID(c *fiber.Ctx) error {
	id := c.Get(header.RequestID)
	if id == "" {
		id = uuid.NewString()
	}
	c.Locals(header.RequestID, id)
	c.Set(header.RequestID, id)
	return c.Next()
}

func methodNotAllowed(c *fiber.Ctx) error {
	return c.Status(fiber.StatusMethodNotAllowed).JSON(
		llm.NewErrorResponse(fiber.StatusMethodNotAllowed, llm.TypeValidation, "Method not allowed", nil))
}

// errorHandler renders errors that escape handlers: unmatched routes
// become not_found, anything unexpected a generic internal_error.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var fe *fiber.Error
		var gerr *llm.Error

		status := fiber.StatusInternalServerError
		body := llm.NewErrorResponse(status, llm.TypeInternal, "Internal Server Error", nil)

		switch {
		case errors.As(err, &fe) && fe.Code == fiber.StatusNotFound:
			status = fe.Code
			body = llm.NewErrorResponse(status, llm.TypeNotFound, "Not Found", nil)
		case errors.As(err, &fe) && fe.Code < fiber.StatusInternalServerError:
			status = fe.Code
			body = llm.NewErrorResponse(status, llm.TypeRequest, fe.Message, nil)
		case errors.As(err, &gerr) && gerr.Kind != llm.KindInternal:
			status, body = llm.ToErrorResponse(err, llm.TypeInternal)
		default:
			logger.Error("unhandled error", "path", c.Path(), "error", err)
		}

		return c.Status(status).JSON(body)
	}
}

// handleChatCompletion runs one completion: credentials, validation,
// request hooks, provider call (or cache), response hooks.
func (p *Proxy) handleChatCompletion(c *fiber.Ctx) error {
	providerID, cfg, err := p.resolveCredentials(c)
	if err != nil {
		return p.writeLLMError(c, err)
	}

	req, err := parseRequest(c.Body())
	if err != nil {
		return p.writeLLMError(c, err)
	}

	reqID, _ := c.Locals(header.RequestID).(string)
	logger := p.logger.With("request_id", reqID, "provider", providerID)

	ctx, span := p.tracer.Start(c.UserContext(), "chat.completion",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			semconv.HTTPRequestMethodPost,
			attribute.String("llm.provider", providerID),
			attribute.String("llm.model", req.Model),
			attribute.Bool("llm.stream", req.IsStreaming()),
			attribute.String("gateway.request_id", reqID),
		),
	)

	req, err = p.hooks.TransformRequest(ctx, req)
	if err != nil {
		return p.fail(ctx, c, span, nil, err)
	}

	bound, err := p.registry.Get(providerID, cfg)
	if err != nil {
		return p.fail(ctx, c, span, nil, err)
	}

	collector := metrics.NewCollector(metrics.CollectorConfig{
		RequestID: reqID,
		Method:    c.Method(),
		Path:      c.Path(),
		Provider:  providerID,
		Price:     cfg.Price,
		Prices:    p.prices,
		Sink:      p.sink,
		Logger:    logger,
	})
	collector.SetModel(req.Model)
	collector.SetLocation(clientLocation(c))
	defer p.finalize(collector, logger)

	cacheKey, resp := p.lookupCache(ctx, c, providerID, req, collector, logger)
	if resp == nil {
		logger.Debug("forwarding request to provider",
			"model", req.Model,
			"messages", len(req.Messages),
			"stream", req.IsStreaming(),
		)

		resp, err = bound.ChatCompletion(ctx, req, collector, logger)
		if err != nil {
			return p.fail(ctx, c, span, collector, err)
		}
		p.storeCache(ctx, cacheKey, resp, logger)
	}

	out, err := p.hooks.TransformResponse(ctx, resp)
	if err != nil {
		if resp.Stream != nil {
			resp.Stream.Close()
		}
		return p.fail(ctx, c, span, collector, err)
	}
	resp = out

	collector.SetStatus(resp.StatusCode)
	span.SetAttributes(semconv.HTTPResponseStatusCode(resp.StatusCode))
	p.headerHandler.SetClientResponseHeaders(c, resp.Header)
	c.Status(resp.StatusCode)

	if !resp.IsStream() {
		span.End()
		return c.Send(resp.Body)
	}

	// Use io.Pipe + SetBodyStream instead of SetBodyStreamWriter.
	// SetBodyStreamWriter uses an internal PipeConns with a buffered channel
	// (capacity 4) and two bufio.Writers, which means Flush() in the callback
	// only pushes data into the pipe, NOT to the TCP socket. This causes all
	// chunks to buffer in memory before being sent to the client.
	//
	// With io.Pipe, pw.Write blocks until the reader consumes the data, and
	// the reader is fasthttp's writeBodyChunked which flushes to TCP after
	// every chunk. This gives direct backpressure and true per-chunk
	// streaming of completion deltas.
	pr, pw := io.Pipe()
	go p.relayStream(resp.Stream, pw, span, logger)

	// Set the pipe reader as the body stream with unknown size (-1),
	// which triggers chunked transfer encoding in fasthttp. fasthttp closes
	// the body stream when the response ends or the client goes away.
	c.Context().Response.SetBodyStream(&clientStream{PipeReader: pr, upstream: resp.Stream}, -1)

	return nil
}

// clientStream is the body fasthttp reads. Closing it also closes the
// provider stream, which cancels the upstream request even when relayStream
// is blocked waiting on a stalled upstream.
type clientStream struct {
	*io.PipeReader
	upstream io.Closer
}

func (s *clientStream) Close() error {
	err := s.PipeReader.Close()
	_ = s.upstream.Close()
	return err
}

// relayStream copies canonical SSE bytes to the client pipe. It ends when
// the provider stream ends or is closed by clientStream.
func (p *Proxy) relayStream(stream io.ReadCloser, pw *io.PipeWriter, span trace.Span, logger *slog.Logger) {
	defer span.End()
	defer stream.Close()

	n, err := io.Copy(pw, stream)
	if err != nil {
		logger.Warn("stream relay interrupted", "bytes", n, "error", err)
		span.RecordError(err)
		span.SetStatus(codes.Error, "stream interrupted")
		pw.CloseWithError(err)
		return
	}
	span.SetAttributes(attribute.Int64("gateway.stream_bytes", n))
	pw.Close()
}

// lookupCache answers req from the cache when possible. It returns the
// key to store a fresh response under ("" when caching does not apply)
// and the cached response on a hit.
func (p *Proxy) lookupCache(ctx context.Context, c *fiber.Ctx, providerID string, req *llm.ChatRequest, collector *metrics.Collector, logger *slog.Logger) (string, *upstream.Response) {
	if p.cache == nil || !cache.Cacheable(req) {
		return "", nil
	}

	key, err := cache.Key(providerID, req)
	if err != nil {
		logger.Warn("cache key failed", "error", err)
		return "", nil
	}

	entry, err := p.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			logger.Warn("cache lookup failed", "error", err)
		}
		c.Set(header.Cache, header.CacheMiss)
		return key, nil
	}

	logger.Debug("serving completion from cache", "stored_at", entry.StoredAt)
	c.Set(header.Cache, header.CacheHit)

	collector.MarkFirstByte()
	upstream.ApplyExtracted(collector, openai.ExtractUsage(entry.Body))
	collector.SetCached(true)
	collector.Complete()

	hdr := upstream.JSONHeaders()
	if entry.ContentType != "" {
		hdr.Set("Content-Type", entry.ContentType)
	}
	return "", &upstream.Response{
		StatusCode: entry.StatusCode,
		Header:     hdr,
		Body:       entry.Body,
	}
}

func (p *Proxy) storeCache(ctx context.Context, key string, resp *upstream.Response, logger *slog.Logger) {
	if key == "" || resp.IsStream() || resp.StatusCode != http.StatusOK {
		return
	}

	entry := &cache.Entry{
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
		Body:        resp.Body,
		StoredAt:    time.Now().UTC(),
	}
	if err := p.cache.Set(ctx, key, entry, p.config.CacheTTL); err != nil {
		logger.Warn("cache store failed", "error", err)
	}
}

// fail ends the request with err. Error hooks get the first chance to
// answer; otherwise the tagged error is rendered, falling back to a 500
// request_error.
func (p *Proxy) fail(ctx context.Context, c *fiber.Ctx, span trace.Span, collector *metrics.Collector, err error) error {
	defer span.End()
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())

	status, body := llm.ToErrorResponse(err, llm.TypeRequest)
	if reply, ok := p.hooks.HandleError(ctx, err); ok {
		status, body = reply.Status, reply.Body
	}

	span.SetAttributes(semconv.HTTPResponseStatusCode(status))
	if collector != nil {
		collector.SetStatus(status)
		collector.Complete()
	}

	p.logger.Debug("request failed", "status", status, "type", body.Error.Type, "error", err)
	return c.Status(status).JSON(body)
}

// writeLLMError renders errors raised before a provider is involved.
func (p *Proxy) writeLLMError(c *fiber.Ctx, err error) error {
	status, body := llm.ToErrorResponse(err, llm.TypeRequest)
	return c.Status(status).JSON(body)
}

// finalize hands collector to the worker pool once collection completes
// or the collection timeout passes. A full queue finishes it inline so
// no record is dropped.
func (p *Proxy) finalize(collector *metrics.Collector, logger *slog.Logger) {
	p.finalizers.Add(1)
	go func() {
		defer p.finalizers.Done()

		if !collector.AwaitCompletion(context.Background(), p.config.CollectionTimeout) {
			logger.Warn("metrics collection timed out, exporting partial record",
				"timeout", p.config.CollectionTimeout)
		}

		if !p.workerPool.Enqueue(worker.Job{Collector: collector}) {
			collector.Finish(context.Background())
		}
	}()
}
