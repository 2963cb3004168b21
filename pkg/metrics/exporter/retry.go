package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"syscall"
	"time"
)

const (
	defaultMaxAttempts    = 3
	defaultBaseDelay      = 100 * time.Millisecond
	defaultMaxDelay       = 2 * time.Second
	defaultAttemptTimeout = 10 * time.Second
)

// StatusError is a non-2xx response from a sink.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("sink returned %d: %s", e.Code, e.Body)
}

// Retrier runs an operation with bounded exponential backoff. Only
// transient failures are retried.
type Retrier struct {
	MaxAttempts    int
	BaseDelay      time.Duration
	MaxDelay       time.Duration
	AttemptTimeout time.Duration

	// Sleep waits between attempts. Defaults to a context-aware timer.
	Sleep func(ctx context.Context, d time.Duration) error

	// Retryable classifies errors. Defaults to IsTransient.
	Retryable func(error) bool
}

// DefaultRetrier returns 3 attempts, 100ms doubling up to 2s, 10s per attempt.
func DefaultRetrier() Retrier {
	return Retrier{
		MaxAttempts:    defaultMaxAttempts,
		BaseDelay:      defaultBaseDelay,
		MaxDelay:       defaultMaxDelay,
		AttemptTimeout: defaultAttemptTimeout,
	}
}

// Do calls op until it succeeds, fails permanently, attempts run out, or
// ctx ends. It returns the number of attempts made and the last error.
func (r Retrier) Do(ctx context.Context, op func(ctx context.Context) error) (int, error) {
	attempts := max(r.MaxAttempts, 1)
	sleep := r.Sleep
	if sleep == nil {
		sleep = sleepContext
	}
	retryable := r.Retryable
	if retryable == nil {
		retryable = IsTransient
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = r.attempt(ctx, op)
		if err == nil {
			return attempt, nil
		}
		if attempt == attempts || !retryable(err) || ctx.Err() != nil {
			return attempt, err
		}
		if serr := sleep(ctx, r.Backoff(attempt)); serr != nil {
			return attempt, err
		}
	}
	return attempts, err
}

func (r Retrier) attempt(ctx context.Context, op func(ctx context.Context) error) error {
	if r.AttemptTimeout <= 0 {
		return op(ctx)
	}
	actx, cancel := context.WithTimeout(ctx, r.AttemptTimeout)
	defer cancel()
	return op(actx)
}

// Backoff returns the delay after the given 1-based attempt.
func (r Retrier) Backoff(attempt int) time.Duration {
	d := r.BaseDelay
	for i := 1; i < attempt; i++ {
		d *= 2
		if r.MaxDelay > 0 && d >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	if r.MaxDelay > 0 && d > r.MaxDelay {
		return r.MaxDelay
	}
	return d
}

// IsTransient reports whether err is worth retrying: connection failures,
// timeouts and 5xx/429 responses. Other 4xx responses are permanent.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	var status *StatusError
	if errors.As(err, &status) {
		return status.Code >= http.StatusInternalServerError || status.Code == http.StatusTooManyRequests
	}

	if errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNRESET) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	var opErr *net.OpError
	return errors.As(err, &opErr)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
