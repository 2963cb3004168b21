// Package elasticsearch indexes finalized records into an Elasticsearch
// (or API-compatible) cluster through the bulk API.
package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	es "github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter"
	"github.com/papercomputeco/llmgateway/pkg/utils"
)

const (
	defaultUsername = "elastic"
	defaultIndex    = "metrics"

	// maxErrorBody caps how much of a failed response is kept on the error.
	maxErrorBody = 512
)

// ErrNoHost is returned when no cluster host is configured.
var ErrNoHost = errors.New("elasticsearch exporter requires a host")

// Config configures the exporter. Host may omit the scheme, in which case
// https is assumed; Port, when set, is appended to the host.
type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Index    string

	// Transport overrides the HTTP transport (tests, custom TLS).
	Transport http.RoundTripper
}

// URL returns the cluster base URL derived from Host and Port.
func (c Config) URL() string {
	u := c.Host
	if !strings.HasPrefix(u, "http") {
		u = "https://" + u
	}
	if c.Port != "" {
		u = u + ":" + c.Port
	}
	return u
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithRetrier replaces the default retry policy.
func WithRetrier(r exporter.Retrier) Option {
	return func(e *Exporter) {
		e.retrier = r
	}
}

// Exporter indexes one document per record, using the request id as the
// document id so replays overwrite rather than duplicate.
type Exporter struct {
	client  *es.Client
	index   string
	retrier exporter.Retrier
	logger  *slog.Logger
}

// New builds an exporter. The client's own retries are disabled; the
// exporter applies its retry policy per record.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Exporter, error) {
	if cfg.Host == "" {
		return nil, ErrNoHost
	}
	username := cfg.Username
	if username == "" {
		username = defaultUsername
	}
	index := cfg.Index
	if index == "" {
		index = defaultIndex
	}

	client, err := es.NewClient(es.Config{
		Addresses:    []string{cfg.URL()},
		Username:     username,
		Password:     cfg.Password,
		Transport:    cfg.Transport,
		DisableRetry: true,
	})
	if err != nil {
		return nil, fmt.Errorf("creating elasticsearch client: %w", err)
	}

	e := &Exporter{
		client:  client,
		index:   index,
		retrier: exporter.DefaultRetrier(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}

	logger.Debug("elasticsearch exporter initialized", "url", cfg.URL(), "index", index, "username", username)
	return e, nil
}

func (e *Exporter) Type() string { return "elasticsearch" }

func (e *Exporter) Export(ctx context.Context, m *metrics.RequestMetrics) error {
	if m == nil {
		return exporter.ErrNilMetrics
	}

	body, err := bulkBody(e.index, m.RequestID, exporter.NewDocument(m))
	if err != nil {
		return err
	}

	start := time.Now()
	attempts, err := e.retrier.Do(ctx, func(ctx context.Context) error {
		return e.send(ctx, body)
	})
	if err != nil {
		return fmt.Errorf("indexing metrics after %d attempts: %w", attempts, err)
	}

	e.logger.Debug("metrics indexed",
		"request_id", m.RequestID,
		"attempts", attempts,
		"duration", time.Since(start),
	)
	return nil
}

func (e *Exporter) Close() error {
	return nil
}

// bulkBody renders a single-document bulk payload:
//
//	{"index":{"_index":"metrics","_id":"<request id>"}}
//	{<document>}
func bulkBody(index, id string, doc exporter.Document) ([]byte, error) {
	var buf bytes.Buffer
	action := map[string]map[string]string{"index": {"_index": index, "_id": id}}
	enc := json.NewEncoder(&buf)
	if err := enc.Encode(action); err != nil {
		return nil, fmt.Errorf("encoding bulk action: %w", err)
	}
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encoding metrics document: %w", err)
	}
	return buf.Bytes(), nil
}

type bulkResponse struct {
	Took   int  `json:"took"`
	Errors bool `json:"errors"`
	Items  []struct {
		Index struct {
			ID     string          `json:"_id"`
			Status int             `json:"status"`
			Error  json.RawMessage `json:"error,omitempty"`
		} `json:"index"`
	} `json:"items"`
}

func (e *Exporter) send(ctx context.Context, body []byte) error {
	res, err := esapi.BulkRequest{
		Body: bytes.NewReader(body),
	}.Do(ctx, e.client)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return fmt.Errorf("reading bulk response: %w", err)
	}

	if res.IsError() {
		return &exporter.StatusError{Code: res.StatusCode, Body: utils.Truncate(string(raw), maxErrorBody)}
	}

	var result bulkResponse
	if err := json.Unmarshal(raw, &result); err != nil {
		return fmt.Errorf("parsing bulk response: %w", err)
	}
	if result.Errors {
		for _, item := range result.Items {
			if len(item.Index.Error) > 0 {
				// Item status drives retries: 429 es_rejected_execution
				// and 5xx are transient, mapping errors are not.
				return fmt.Errorf("bulk indexing error for %s: %w", item.Index.ID, &exporter.StatusError{
					Code: item.Index.Status,
					Body: utils.Truncate(string(item.Index.Error), maxErrorBody),
				})
			}
		}
		return errors.New("bulk indexing reported errors")
	}
	return nil
}
