package exporter

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

// Manager owns the registered exporters.
type Manager struct {
	mu        sync.RWMutex
	exporters []Exporter

	logger *slog.Logger
	tracer trace.Tracer
}

// ManagerOption configures a Manager.
type ManagerOption func(*Manager)

// WithTracer records a span around every fan-out.
func WithTracer(t trace.Tracer) ManagerOption {
	return func(m *Manager) {
		m.tracer = t
	}
}

// NewManager returns an empty Manager.
func NewManager(logger *slog.Logger, opts ...ManagerOption) *Manager {
	m := &Manager{
		logger: logger,
		tracer: noop.NewTracerProvider().Tracer(""),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Add registers e. Adding a second exporter of the same type fails with
// ErrDuplicateExporter and leaves the first in place.
func (m *Manager) Add(e Exporter) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.exporters {
		if existing.Type() == e.Type() {
			return fmt.Errorf("%w: %s", ErrDuplicateExporter, e.Type())
		}
	}
	m.exporters = append(m.exporters, e)
	m.logger.Debug("metrics exporter registered", "type", e.Type())
	return nil
}

// Initialized reports whether any exporter is registered.
func (m *Manager) Initialized() bool {
	return m.Len() > 0
}

// Len returns the number of registered exporters.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.exporters)
}

// Types returns the registered exporter types in registration order.
func (m *Manager) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	types := make([]string, 0, len(m.exporters))
	for _, e := range m.exporters {
		types = append(types, e.Type())
	}
	return types
}

// ExportMetrics sends rec to every exporter concurrently and waits for all
// of them. Failures are logged per exporter and never returned.
func (m *Manager) ExportMetrics(ctx context.Context, rec *metrics.RequestMetrics) {
	if rec == nil {
		m.logger.Warn("skipping metrics export", "error", ErrNilMetrics)
		return
	}

	m.mu.RLock()
	exporters := slices.Clone(m.exporters)
	m.mu.RUnlock()

	if len(exporters) == 0 {
		return
	}

	ctx, span := m.tracer.Start(ctx, "metrics.export",
		trace.WithAttributes(
			attribute.String("request.id", rec.RequestID),
			attribute.Int("exporters", len(exporters)),
		),
	)
	defer span.End()

	var (
		wg     sync.WaitGroup
		failMu sync.Mutex
		failed int
	)
	for _, e := range exporters {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := m.exportOne(ctx, e, rec); err != nil {
				failMu.Lock()
				failed++
				failMu.Unlock()
				m.logger.Error("metrics export failed",
					"exporter", e.Type(),
					"request_id", rec.RequestID,
					"error", err,
				)
			}
		}()
	}
	wg.Wait()

	if failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d of %d exporters failed", failed, len(exporters)))
	}
}

// exportOne converts a panicking exporter into an error.
func (m *Manager) exportOne(ctx context.Context, e Exporter, rec *metrics.RequestMetrics) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("exporter panicked: %v", r)
		}
	}()
	return e.Export(ctx, rec)
}

// Cleanup closes every exporter and clears the registry. Close errors are
// joined; the registry is cleared regardless.
func (m *Manager) Cleanup(ctx context.Context) error {
	m.mu.Lock()
	exporters := m.exporters
	m.exporters = nil
	m.mu.Unlock()

	var errs []error
	for _, e := range exporters {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := e.Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing %s exporter: %w", e.Type(), err))
		}
	}
	return errors.Join(errs...)
}
