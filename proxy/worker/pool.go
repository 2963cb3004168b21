// Package worker provides an asynchronous worker pool that finalizes
// request metrics: each job's collector is finished and its record handed
// to the export sink.
//
// The pool decouples exporter I/O from the gateway's HTTP hot path so
// slow or retrying exporters never delay a client response.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sync"

	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

var (
	defaultNumWorkers   uint = 3
	defaultJobQueueSize uint = 256
)

// Job is a unit of work for the worker pool to execute against.
type Job struct {
	Collector *metrics.Collector
}

// Config is the configuration options for the worker pool.
type Config struct {
	// NumWorkers is the number of background workers in the pool.
	NumWorkers uint

	// QueueSize is the capacity of the buffered job channel (defaults to 256).
	QueueSize uint

	Logger *slog.Logger
}

// Pool finalizes metrics collectors asynchronously via a worker pool.
type Pool struct {
	queue  chan Job
	wg     sync.WaitGroup
	logger *slog.Logger
}

// NewPool creates a new Pool and starts its worker goroutines.
func NewPool(c *Config) (*Pool, error) {
	if c.NumWorkers == 0 {
		c.NumWorkers = defaultNumWorkers
	}

	if c.QueueSize == 0 {
		c.QueueSize = defaultJobQueueSize
	}

	if c.NumWorkers > uint(math.MaxInt) {
		return nil, fmt.Errorf("NumWorkers %d exceeds max int", c.NumWorkers)
	}

	logger := c.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	wp := &Pool{
		queue:  make(chan Job, c.QueueSize),
		logger: logger,
	}

	wp.wg.Add(int(c.NumWorkers))
	for i := range c.NumWorkers {
		go wp.worker(i)
	}

	return wp, nil
}

// Enqueue submits a job for processing by the worker pool.
// Returns true if enqueued, false if the queue is full. A rejected job
// is left to the caller to finish.
func (p *Pool) Enqueue(job Job) bool {
	select {
	case p.queue <- job:
		p.logger.Debug("metrics job queued", "request_id", job.Collector.RequestID())
		return true
	default:
		p.logger.Warn("metrics job not queued, queue full", "request_id", job.Collector.RequestID())
		return false
	}
}

// Close signals workers to stop and waits for in-flight jobs to drain.
// Call this during graceful shutdown after no more jobs can be enqueued.
func (p *Pool) Close() {
	close(p.queue)
	p.wg.Wait()
}

// worker is the inner worker thread that continuously pulls jobs off the jobs queue
func (p *Pool) worker(id uint) {
	defer p.wg.Done()
	p.logger.Debug("metrics worker started", "worker_id", id)

	for job := range p.queue {
		p.processJob(job)
	}

	p.logger.Debug("metrics worker stopped", "worker_id", id)
}

// processJob finishes the job's collector, which exports its record.
func (p *Pool) processJob(job Job) {
	if job.Collector == nil {
		return
	}

	rec := job.Collector.Finish(context.Background())

	p.logger.Debug("request metrics exported",
		"request_id", rec.RequestID,
		"provider", rec.Provider,
		"model", rec.Model,
		"status", rec.Status,
	)
}
