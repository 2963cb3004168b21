// Package kafka publishes finalized records to a Kafka topic, keyed by
// request id.
package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter"
)

// ErrNoBrokers is returned when no broker address is configured.
var ErrNoBrokers = errors.New("kafka exporter requires at least one broker")

// ErrNoTopic is returned when no topic is configured.
var ErrNoTopic = errors.New("kafka exporter requires a topic")

// MessageWriter is the subset of *kafka.Writer the exporter uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Config configures the exporter.
type Config struct {
	Brokers []string
	Topic   string
}

// Option configures an Exporter.
type Option func(*Exporter)

// WithMessageWriter replaces the Kafka writer.
func WithMessageWriter(w MessageWriter) Option {
	return func(e *Exporter) {
		e.writer = w
	}
}

// WithRetrier replaces the default retry policy.
func WithRetrier(r exporter.Retrier) Option {
	return func(e *Exporter) {
		e.retrier = r
	}
}

// Exporter writes JSON documents to Kafka.
type Exporter struct {
	writer  MessageWriter
	retrier exporter.Retrier
	logger  *slog.Logger
}

// New validates cfg and builds an exporter.
func New(cfg Config, logger *slog.Logger, opts ...Option) (*Exporter, error) {
	if len(cfg.Brokers) == 0 {
		return nil, ErrNoBrokers
	}
	if cfg.Topic == "" {
		return nil, ErrNoTopic
	}

	e := &Exporter{
		retrier: exporter.DefaultRetrier(),
		logger:  logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.retrier.Retryable == nil {
		e.retrier.Retryable = retryable
	}
	if e.writer == nil {
		e.writer = &kafka.Writer{
			Addr:                   kafka.TCP(cfg.Brokers...),
			Topic:                  cfg.Topic,
			Balancer:               &kafka.Hash{},
			RequiredAcks:           kafka.RequireOne,
			AllowAutoTopicCreation: true,
		}
	}

	logger.Debug("kafka exporter initialized", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return e, nil
}

func (e *Exporter) Type() string { return "kafka" }

func (e *Exporter) Export(ctx context.Context, m *metrics.RequestMetrics) error {
	if m == nil {
		return exporter.ErrNilMetrics
	}

	value, err := json.Marshal(exporter.NewDocument(m))
	if err != nil {
		return fmt.Errorf("encoding metrics document: %w", err)
	}
	msg := kafka.Message{
		Key:   []byte(m.RequestID),
		Value: value,
		Time:  time.Now(),
	}

	attempts, err := e.retrier.Do(ctx, func(ctx context.Context) error {
		return e.writer.WriteMessages(ctx, msg)
	})
	if err != nil {
		return fmt.Errorf("writing metrics after %d attempts: %w", attempts, err)
	}
	return nil
}

func (e *Exporter) Close() error {
	return e.writer.Close()
}

// retryable extends the shared classification with kafka-go's own
// temporary errors (leader elections, unavailable partitions). Per-message
// failures arrive as kafka.WriteErrors, which does not unwrap.
func retryable(err error) bool {
	var werrs kafka.WriteErrors
	if errors.As(err, &werrs) {
		for _, werr := range werrs {
			if werr != nil && retryable(werr) {
				return true
			}
		}
		return false
	}

	var kerr kafka.Error
	if errors.As(err, &kerr) {
		return kerr.Temporary()
	}
	return exporter.IsTransient(err)
}
