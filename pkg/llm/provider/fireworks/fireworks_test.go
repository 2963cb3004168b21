package fireworks_test

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
	"github.com/papercomputeco/llmgateway/pkg/llm/provider/fireworks"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
)

func ptr[T any](v T) *T { return &v }

func bodyOf(v any) map[string]any {
	raw, err := json.Marshal(v)
	Expect(err).NotTo(HaveOccurred())
	var m map[string]any
	Expect(json.Unmarshal(raw, &m)).To(Succeed())
	return m
}

var _ = Describe("Fireworks Provider", func() {
	p := fireworks.New(nil)
	model := "accounts/fireworks/models/llama-v3p1-8b-instruct"

	It("returns 'fireworks'", func() {
		Expect(p.Name()).To(Equal("fireworks"))
	})

	Describe("TransformRequest", func() {
		It("fills in sampling defaults", func() {
			body, err := p.TransformRequest(&llm.ChatRequest{
				Model:    model,
				Messages: []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("hi")}},
			})
			Expect(err).NotTo(HaveOccurred())

			m := bodyOf(body)
			Expect(m).To(HaveKeyWithValue("stream", false))
			Expect(m).To(HaveKeyWithValue("temperature", 0.7))
			Expect(m).To(HaveKeyWithValue("top_p", 1.0))
			Expect(m).To(HaveKeyWithValue("top_k", 40.0))
			Expect(m).To(HaveKeyWithValue("presence_penalty", 0.0))
			Expect(m).To(HaveKeyWithValue("frequency_penalty", 0.0))
			Expect(m).NotTo(HaveKey("max_tokens"))
		})

		It("keeps explicit values, including zero", func() {
			body, _ := p.TransformRequest(&llm.ChatRequest{
				Model:       model,
				Messages:    []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("hi")}},
				Temperature: ptr(0.0),
				MaxTokens:   ptr(16),
			})
			m := bodyOf(body)
			Expect(m).To(HaveKeyWithValue("temperature", 0.0))
			Expect(m).To(HaveKeyWithValue("max_tokens", 16.0))
		})
	})

	Describe("ChatCompletion", func() {
		It("tags upstream failures as provider errors", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				w.WriteHeader(http.StatusNotFound)
				_, _ = io.WriteString(w, `{"error":{"message":"Model not found"}}`)
			}))
			defer server.Close()

			_, err := p.ChatCompletion(context.Background(), &upstream.Call{
				Request: &llm.ChatRequest{Model: model, Messages: []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("hi")}}},
				Config:  upstream.Config{APIKey: "fw-test", BaseURL: server.URL},
			})
			var gerr *llm.Error
			Expect(errors.As(err, &gerr)).To(BeTrue())
			Expect(gerr.Status).To(Equal(http.StatusNotFound))
			Expect(gerr.Type).To(Equal(llm.TypeProvider))
			Expect(gerr.Message).To(Equal("Model not found"))
		})

		It("records usage from a non-streaming body", func() {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
				_, _ = io.WriteString(w, `{"choices":[],"usage":{"prompt_tokens":5,"completion_tokens":6,"total_tokens":11}}`)
			}))
			defer server.Close()

			collector := metrics.NewCollector(metrics.CollectorConfig{Provider: "fireworks"})
			_, err := p.ChatCompletion(context.Background(), &upstream.Call{
				Request:  &llm.ChatRequest{Model: model, Messages: []llm.Message{{Role: llm.RoleUser, Content: llm.TextContent("hi")}}},
				Config:   upstream.Config{APIKey: "fw-test", BaseURL: server.URL},
				Recorder: collector,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(*collector.Snapshot().Tokens.Total).To(Equal(11))
		})
	})
})
