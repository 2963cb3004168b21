package anthropic_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/anthropic"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/pricing"
)

func ptr[T any](v T) *T { return &v }

func wireBody(v any) map[string]any {
	raw, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	var m map[string]any
	Expect(json.Unmarshal(raw, &m)).To(Succeed())
	return m
}

var _ = Describe("Anthropic Provider", func() {
	var p *anthropic.Provider

	BeforeEach(func() {
		p = anthropic.New(nil)
	})

	It("returns 'anthropic'", func() {
		Expect(p.Name()).To(Equal("anthropic"))
	})

	It("requires an API key", func() {
		err := p.ValidateConfig(upstream.Config{})
		var gerr *llm.Error
		Expect(errors.As(err, &gerr)).To(BeTrue())
		Expect(gerr.Status).To(Equal(http.StatusUnauthorized))
		Expect(gerr.Message).To(Equal("Anthropic API key is required"))
	})

	Describe("TransformRequest", func() {
		It("splits out the system prompt and maps roles", func() {
			body, err := p.TransformRequest(&llm.ChatRequest{
				Model: "claude-3-haiku-20240307",
				Messages: []llm.Message{
					{Role: llm.RoleSystem, Content: llm.TextContent("Be brief.")},
					{Role: llm.RoleUser, Content: llm.TextContent("Hi")},
					{Role: llm.RoleAssistant, Content: llm.TextContent("Hello")},
					{Role: "tool", Content: llm.TextContent("42")},
				},
				Stop: llm.Stop{"END"},
				User: "user-1",
				TopK: ptr(5),
			})
			Expect(err).NotTo(HaveOccurred())

			m := wireBody(body)
			Expect(m).To(HaveKeyWithValue("system", "Be brief."))
			Expect(m).To(HaveKeyWithValue("max_tokens", 4096.0))
			Expect(m).To(HaveKeyWithValue("stop_sequences", []any{"END"}))
			Expect(m).To(HaveKeyWithValue("top_k", 5.0))
			Expect(m).To(HaveKeyWithValue("metadata", map[string]any{"user_id": "user-1"}))
			Expect(m).NotTo(HaveKey("stop"))

			msgs := m["messages"].([]any)
			Expect(msgs).To(HaveLen(3))
			Expect(msgs[0]).To(HaveKeyWithValue("role", "user"))
			Expect(msgs[1]).To(HaveKeyWithValue("role", "assistant"))
			Expect(msgs[2]).To(HaveKeyWithValue("role", "user"))
		})

		It("keeps an explicit max_tokens", func() {
			body, _ := p.TransformRequest(&llm.ChatRequest{Model: "claude-3-opus", MaxTokens: ptr(100)})
			Expect(wireBody(body)).To(HaveKeyWithValue("max_tokens", 100.0))
		})

		It("converts image parts to content blocks", func() {
			var c llm.Content
			Expect(json.Unmarshal([]byte(`[{"type":"text","text":"what is this"},`+
				`{"type":"image_url","image_url":{"url":"data:image/png;base64,iVBOR"}}]`), &c)).To(Succeed())

			body, _ := p.TransformRequest(&llm.ChatRequest{
				Model:    "claude-3-opus",
				Messages: []llm.Message{{Role: llm.RoleUser, Content: c}},
			})
			blocks := wireBody(body)["messages"].([]any)[0].(map[string]any)["content"].([]any)
			Expect(blocks).To(HaveLen(2))
			Expect(blocks[1]).To(HaveKeyWithValue("source", map[string]any{
				"type": "base64", "media_type": "image/png", "data": "iVBOR",
			}))
		})
	})

	Describe("ExtractMetrics", func() {
		It("reads input tokens from message_start", func() {
			e := p.ExtractMetrics([]byte(`{"type":"message_start","message":{"id":"msg_1","model":"claude-3-haiku-20240307","usage":{"input_tokens":25,"output_tokens":1}}}`))
			Expect(*e.Tokens.InputTokens).To(Equal(25))
			Expect(e.Tokens.OutputTokens).To(BeNil())
			Expect(e.Metadata).To(HaveKeyWithValue("message_id", "msg_1"))
		})

		It("reads output tokens from message_delta", func() {
			e := p.ExtractMetrics([]byte(`{"type":"message_delta","delta":{"stop_reason":"end_turn"},"usage":{"output_tokens":15}}`))
			Expect(*e.Tokens.OutputTokens).To(Equal(15))
			Expect(e.Metadata).To(HaveKeyWithValue("stop_reason", "end_turn"))
		})

		It("reads a whole response body", func() {
			e := p.ExtractMetrics([]byte(`{"id":"msg_2","type":"message","model":"claude-3-haiku","usage":{"input_tokens":10,"output_tokens":20,"cache_read_input_tokens":4}}`))
			Expect(*e.Tokens.InputTokens).To(Equal(10))
			Expect(*e.Tokens.OutputTokens).To(Equal(20))
			Expect(e.Metadata).To(HaveKeyWithValue("cache_read_input_tokens", 4))
		})

		It("ignores other frames", func() {
			Expect(p.ExtractMetrics([]byte(`{"type":"ping"}`))).To(BeNil())
			Expect(p.ExtractMetrics([]byte(`{`))).To(BeNil())
		})
	})

	Describe("ChatCompletion", func() {
		var (
			server  *httptest.Server
			handler http.HandlerFunc
			sink    *collectingSink
			col     *metrics.Collector
		)

		BeforeEach(func() {
			server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				defer GinkgoRecover()
				Expect(r.URL.Path).To(Equal("/v1/messages"))
				Expect(r.Header.Get("x-api-key")).To(Equal("sk-ant"))
				Expect(r.Header.Get("anthropic-version")).To(Equal("2023-06-01"))
				handler(w, r)
			}))
			sink = &collectingSink{}
			col = metrics.NewCollector(metrics.CollectorConfig{
				Provider: "anthropic",
				Prices:   pricing.DefaultCatalog(),
				Sink:     sink,
			})
			col.SetModel("claude-3-haiku-20240307")
		})

		AfterEach(func() {
			server.Close()
		})

		run := func(stream bool) (*upstream.Response, error) {
			return p.ChatCompletion(context.Background(), &upstream.Call{
				Request: &llm.ChatRequest{
					Model:    "claude-3-haiku-20240307",
					Messages: []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("Hi")}},
					Stream:   ptr(stream),
				},
				Config:   upstream.Config{APIKey: "sk-ant", BaseURL: server.URL + "/v1"},
				Recorder: col,
			})
		}

		It("converts a non-streaming response and prices it", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-haiku-20240307",`+
					`"content":[{"type":"text","text":"Hello there"}],"stop_reason":"end_turn",`+
					`"usage":{"input_tokens":10,"output_tokens":20}}`)
			}

			resp, err := run(false)
			Expect(err).NotTo(HaveOccurred())

			var out llm.ChatCompletion
			Expect(json.Unmarshal(resp.Body, &out)).To(Succeed())
			Expect(out.Object).To(Equal("chat.completion"))
			Expect(out.ID).To(HavePrefix("chatcmpl-"))
			Expect(out.Model).To(Equal("claude-3-haiku-20240307"))
			Expect(out.Choices[0].Message.Content).To(Equal("Hello there"))
			Expect(out.Choices[0].FinishReason).To(Equal("end_turn"))
			Expect(*out.Usage).To(Equal(llm.Usage{PromptTokens: 10, CompletionTokens: 20, TotalTokens: 30}))

			final := col.Finish(context.Background())
			Expect(*final.Tokens.Total).To(Equal(30))
			Expect(final.Cost.InputCost).To(BeNumerically("~", 0.000008, 1e-12))
			Expect(final.Cost.OutputCost).To(BeNumerically("~", 0.00008, 1e-12))
			Expect(sink.records).To(HaveLen(1))
		})

		It("transcodes a stream and records chunks", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				_, _ = io.WriteString(w, anthropicStream)
			}

			resp, err := run(true)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.Header.Get("Content-Type")).To(Equal("text/event-stream"))

			raw, err := io.ReadAll(resp.Stream)
			Expect(err).NotTo(HaveOccurred())
			frames := dataFrames(string(raw))
			Expect(frames).To(HaveLen(5))
			Expect(frames[4]).To(Equal("[DONE]"))

			Eventually(col.Done()).Should(BeClosed())
			snap := col.Snapshot()
			Expect(snap.Metadata.TotalChunks).To(Equal(4))
			Expect(snap.Metadata.StreamComplete).To(BeTrue())
			Expect(*snap.Tokens.Total).To(Equal(7))
		})

		It("maps upstream errors to anthropic_error", func() {
			handler = func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				_, _ = io.WriteString(w, `{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens: too large"}}`)
			}

			_, err := run(true)
			var gerr *llm.Error
			Expect(errors.As(err, &gerr)).To(BeTrue())
			Expect(gerr.Status).To(Equal(http.StatusBadRequest))
			Expect(gerr.Type).To(Equal("anthropic_error"))
			Expect(gerr.Message).To(Equal("max_tokens: too large"))
		})
	})
})

type collectingSink struct {
	records []*metrics.RequestMetrics
}

func (s *collectingSink) ExportMetrics(_ context.Context, m *metrics.RequestMetrics) {
	s.records = append(s.records, m)
}
