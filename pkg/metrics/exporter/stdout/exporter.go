// Package stdout writes each finalized record as one JSON line.
package stdout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter"
)

// Exporter writes JSON lines to an io.Writer.
type Exporter struct {
	mu sync.Mutex
	w  io.Writer
}

// New returns an exporter writing to w, or stdout when w is nil.
func New(w io.Writer) *Exporter {
	if w == nil {
		w = os.Stdout
	}
	return &Exporter{w: w}
}

func (e *Exporter) Type() string { return "stdout" }

func (e *Exporter) Export(_ context.Context, m *metrics.RequestMetrics) error {
	if m == nil {
		return exporter.ErrNilMetrics
	}

	line, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	_, err = fmt.Fprintf(e.w, "%s\n", line)
	return err
}

func (e *Exporter) Close() error {
	return nil
}
