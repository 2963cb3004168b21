package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"time"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/sse"
)

// Transcoder rewrites a Messages API event stream as OpenAI
// chat.completion.chunk frames.
//
//	message_start        capture id and input tokens, emit nothing
//	content_block_delta  text_delta → content chunk (finish_reason null)
//	message_delta        output tokens; with stop_reason → terminal chunk
//	                     carrying usage, then [DONE]
//
// Every other event type is ignored. A Transcoder handles one stream and
// is not safe for concurrent use.
type Transcoder struct {
	model  string
	rec    upstream.Recorder
	logger *slog.Logger
	now    func() time.Time

	id           string
	inputTokens  int
	outputTokens int
	sawContent   bool
	terminated   bool
}

// NewTranscoder returns a Transcoder that labels chunks with model.
func NewTranscoder(model string, rec upstream.Recorder, logger *slog.Logger) *Transcoder {
	return &Transcoder{
		model:  model,
		rec:    upstream.RecorderOrDiscard(rec),
		logger: upstream.LoggerOrDiscard(logger),
		now:    time.Now,
	}
}

// Run reads src to the end, writing canonical frames to dst. The terminal
// chunk and [DONE] are always the last bytes written. An upstream that
// ends before a stop reason yields io.ErrUnexpectedEOF and no [DONE]. A
// read or write error stops the transcoder and is returned; frames already
// written stay written.
func (t *Transcoder) Run(src io.Reader, dst io.Writer) error {
	r := sse.NewReader(src)
	for {
		ev, err := r.Next()
		if err != nil {
			return err
		}
		if ev == nil {
			break
		}

		chunk := t.Handle(ev)
		if chunk == nil {
			continue
		}
		if err := sse.WriteJSON(dst, chunk); err != nil {
			return err
		}
		if t.terminated {
			return sse.WriteDone(dst)
		}
	}

	if !t.terminated {
		return io.ErrUnexpectedEOF
	}
	return nil
}

// Pipe runs the transcoder over body in a goroutine and returns the
// canonical stream. Closing the stream cancels the upstream request, and
// collection is completed with the partial data. A nil cancel is allowed.
func (t *Transcoder) Pipe(body io.ReadCloser, cancel context.CancelFunc) io.ReadCloser {
	relay := upstream.NewRelay(cancel)
	pw := relay.Writer()
	go func() {
		defer relay.Cancel()
		defer body.Close()

		if err := t.Run(body, pw); err != nil {
			t.logger.Warn("anthropic stream interrupted", "error", err)
			t.rec.Complete()
			pw.CloseWithError(err)
			return
		}

		t.rec.SetStreamComplete()
		pw.Close()
	}()

	return relay
}

// Handle applies one upstream event and returns the chunk to emit, if any.
// Events arriving after the terminal chunk are ignored.
func (t *Transcoder) Handle(ev *sse.Event) *llm.ChatCompletionChunk {
	if t.terminated || ev.Data == "" {
		return nil
	}

	var data streamEvent
	if err := json.Unmarshal([]byte(ev.Data), &data); err != nil {
		t.logger.Warn("skipping malformed anthropic stream frame", "event", ev.Type, "error", err)
		return nil
	}
	if data.Type == "" {
		data.Type = ev.Type
	}

	switch data.Type {
	case "message_start":
		if data.Message != nil {
			t.id = data.Message.ID
			if data.Message.Usage != nil {
				t.inputTokens = metrics.IntOrZero(data.Message.Usage.InputTokens)
			}
		}
		upstream.ApplyExtracted(t.rec, extractFromEvent(&data))
		return nil

	case "content_block_delta":
		if data.Delta == nil || data.Delta.Type != "text_delta" {
			return nil
		}
		if !t.sawContent {
			t.sawContent = true
			t.rec.MarkFirstByte()
		}
		t.rec.IncrementChunks()
		text := data.Delta.Text
		return t.chunk(llm.Delta{Content: &text}, nil, nil)

	case "message_delta":
		if data.Usage != nil && data.Usage.OutputTokens != nil {
			t.outputTokens = *data.Usage.OutputTokens
		}
		upstream.ApplyExtracted(t.rec, extractFromEvent(&data))

		if data.Delta == nil || data.Delta.StopReason == "" {
			return nil
		}
		t.terminated = true
		t.rec.IncrementChunks()
		t.rec.SetTokenUsage(metrics.Usage(t.inputTokens, t.outputTokens))
		reason := data.Delta.StopReason
		return t.chunk(llm.Delta{}, &reason, llm.NewUsage(t.inputTokens, t.outputTokens))
	}

	return nil
}

// Terminated reports whether the terminal chunk has been produced.
func (t *Transcoder) Terminated() bool {
	return t.terminated
}

func (t *Transcoder) chunk(delta llm.Delta, finish *string, usage *llm.Usage) *llm.ChatCompletionChunk {
	if t.id == "" {
		t.id = NewCompletionID()
	}
	return &llm.ChatCompletionChunk{
		ID:      t.id,
		Object:  llm.ObjectChatCompletionChunk,
		Created: t.now().Unix(),
		Model:   t.model,
		Choices: []llm.ChunkChoice{{
			Index:        0,
			Delta:        delta,
			FinishReason: finish,
		}},
		Usage: usage,
	}
}
