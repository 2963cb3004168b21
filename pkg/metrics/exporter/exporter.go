// Package exporter ships finalized request metrics to external sinks.
//
// A Manager is built once at startup and injected wherever records are
// finalized. It fans each record out to every registered Exporter in
// parallel; one exporter failing, hanging or panicking never affects the
// others or the request that produced the record.
package exporter

import (
	"context"
	"errors"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

var (
	// ErrNilMetrics is returned when a nil record is exported.
	ErrNilMetrics = errors.New("nil request metrics")

	// ErrDuplicateExporter is returned when an exporter of an already
	// registered type is added.
	ErrDuplicateExporter = errors.New("exporter type already registered")
)

// Exporter delivers records to one sink.
type Exporter interface {
	// Type identifies the sink kind. A Manager holds at most one exporter
	// per type.
	Type() string

	// Export delivers a record. Implementations apply their own retry
	// policy before returning.
	Export(ctx context.Context, m *metrics.RequestMetrics) error

	// Close releases sink resources.
	Close() error
}
