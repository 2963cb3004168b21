package exporter

import (
	"time"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

// DocumentType is the "type" field of every exported document.
const DocumentType = "metrics"

// Document is the flat, search-friendly shape of a record shared by the
// Elasticsearch and Kafka exporters. Numeric fields are always present.
type Document struct {
	Timestamp   time.Time           `json:"@timestamp"`
	Type        string              `json:"type"`
	RequestID   string              `json:"request_id"`
	Method      string              `json:"method"`
	Path        string              `json:"path"`
	Provider    string              `json:"provider"`
	Model       string              `json:"model"`
	Status      int                 `json:"status"`
	Success     bool                `json:"success"`
	Cached      bool                `json:"cached"`
	Performance metrics.Performance `json:"performance"`
	Tokens      DocumentTokens      `json:"tokens"`
	Cost        metrics.Cost        `json:"cost"`
	Metadata    metrics.Metadata    `json:"metadata"`
	Location    *metrics.Location   `json:"location,omitempty"`
}

// DocumentTokens is the zero-coerced token block of a Document.
type DocumentTokens struct {
	Input  int `json:"input"`
	Output int `json:"output"`
	Total  int `json:"total"`
}

// NewDocument flattens m. Missing tokens and cost become zero.
func NewDocument(m *metrics.RequestMetrics) Document {
	doc := Document{
		Timestamp:   m.Timestamp,
		Type:        DocumentType,
		RequestID:   m.RequestID,
		Method:      m.Method,
		Path:        m.Path,
		Provider:    m.Provider,
		Model:       m.Model,
		Status:      m.Status,
		Success:     m.Success,
		Cached:      m.Cached,
		Performance: m.Performance,
		Tokens: DocumentTokens{
			Input:  metrics.IntOrZero(m.Tokens.Input),
			Output: metrics.IntOrZero(m.Tokens.Output),
			Total:  metrics.IntOrZero(m.Tokens.Total),
		},
		Metadata: m.Metadata,
		Location: m.Location,
	}
	if m.Cost != nil {
		doc.Cost = *m.Cost
	}
	return doc
}
