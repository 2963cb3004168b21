package upstream

import (
	"context"
	"io"
	"log/slog"

	"github.com/papercomputeco/llmgateway/pkg/sse"
)

// PassthroughSSE forwards an OpenAI-protocol SSE body to the returned
// reader byte for byte, while feeding every data frame through extract
// into rec.
//
// The relay runs in its own goroutine writing into a Relay. Pipe writes
// block until the HTTP layer reads, which gives per-chunk flushing and
// backpressure. Closing the returned stream cancels the upstream request,
// the upstream body is closed, and collection is completed with whatever
// was measured so far.
func PassthroughSSE(body io.ReadCloser, cancel context.CancelFunc, rec Recorder, extract func(frame []byte) *Extracted, logger *slog.Logger) io.ReadCloser {
	rec = RecorderOrDiscard(rec)
	logger = LoggerOrDiscard(logger)

	relay := NewRelay(cancel)
	pw := relay.Writer()
	go func() {
		defer relay.Cancel()
		defer body.Close()

		r := sse.NewTeeReader(body, pw)
		first := true
		for {
			ev, err := r.Next()
			if err != nil {
				logger.Warn("sse passthrough interrupted", "error", err)
				rec.Complete()
				pw.CloseWithError(err)
				return
			}
			if ev == nil {
				break
			}
			if ev.IsDone() || ev.Data == "" {
				continue
			}

			if first {
				rec.MarkFirstByte()
				first = false
			}
			rec.IncrementChunks()
			ApplyExtracted(rec, extract([]byte(ev.Data)))
		}

		rec.SetStreamComplete()
		pw.Close()
	}()

	return relay
}
