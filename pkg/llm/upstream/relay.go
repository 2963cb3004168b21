package upstream

import (
	"context"
	"io"
	"sync"
)

// Relay is the client side of a streaming response. A relay goroutine
// fills it through Writer while the HTTP layer reads it.
//
// Closing the Relay also cancels the upstream request. A client that goes
// away while the upstream is stalled therefore releases the upstream
// connection at once, instead of waiting for the next pipe write to fail.
type Relay struct {
	pr *io.PipeReader
	pw *io.PipeWriter

	cancel     context.CancelFunc
	cancelOnce sync.Once
}

// NewRelay returns a Relay that calls cancel, at most once, when either
// side is done with the stream. A nil cancel is allowed.
func NewRelay(cancel context.CancelFunc) *Relay {
	pr, pw := io.Pipe()
	return &Relay{pr: pr, pw: pw, cancel: cancel}
}

// Read implements io.Reader for the client side.
func (r *Relay) Read(p []byte) (int, error) {
	return r.pr.Read(p)
}

// Close stops the stream from the client side and cancels the upstream.
func (r *Relay) Close() error {
	err := r.pr.Close()
	r.Cancel()
	return err
}

// Writer is where the relay goroutine writes canonical bytes.
func (r *Relay) Writer() *io.PipeWriter {
	return r.pw
}

// Cancel cancels the upstream request. Only the first call has an effect.
func (r *Relay) Cancel() {
	r.cancelOnce.Do(func() {
		if r.cancel != nil {
			r.cancel()
		}
	})
}
