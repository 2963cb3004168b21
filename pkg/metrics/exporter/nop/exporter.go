// Package nop provides an exporter that accepts and discards records.
package nop

import (
	"context"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter"
)

// Exporter is a no-op exporter used for tests and disabled mode.
type Exporter struct{}

// New creates a no-op exporter.
func New() *Exporter {
	return &Exporter{}
}

func (e *Exporter) Type() string { return "nop" }

// Export validates input and otherwise does nothing.
func (e *Exporter) Export(_ context.Context, m *metrics.RequestMetrics) error {
	if m == nil {
		return exporter.ErrNilMetrics
	}
	return nil
}

// Close is a no-op.
func (e *Exporter) Close() error {
	return nil
}
