package proxy

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"

	"github.com/alicebob/miniredis/v2"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.opentelemetry.io/otel/trace"

	rediscache "github.com/papercomputeco/llmgateway/pkg/cache/redis"
	"github.com/papercomputeco/llmgateway/pkg/hooks"
	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider"
	"github.com/papercomputeco/llmgateway/pkg/logger"
	"github.com/papercomputeco/llmgateway/pkg/metrics"
	"github.com/papercomputeco/llmgateway/pkg/pricing"
)

const anthropicStream = `event: message_start
data: {"type":"message_start","message":{"id":"msg_01","type":"message","role":"assistant","model":"claude-3-haiku","usage":{"input_tokens":2,"output_tokens":1}}}

event: content_block_start
data: {"type":"content_block_start","index":0,"content_block":{"type":"text","text":""}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"Hel"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"lo"}}

event: content_block_delta
data: {"type":"content_block_delta","index":0,"delta":{"type":"text_delta","text":"!"}}

event: content_block_stop
data: {"type":"content_block_stop","index":0}

event: message_delta
data: {"type":"message_delta","delta":{"stop_reason":"end_turn","stop_sequence":null},"usage":{"output_tokens":5}}

event: message_stop
data: {"type":"message_stop"}

`

const openAICompletion = `{"id":"chatcmpl-1","object":"chat.completion","created":1,"model":"gpt-4o",` +
	`"choices":[{"index":0,"message":{"role":"assistant","content":"hi"},"finish_reason":"stop"}],` +
	`"usage":{"prompt_tokens":10,"completion_tokens":20}}`

// redirectTransport sends every provider request to the test upstream,
// keeping the provider's path.
type redirectTransport struct {
	target *url.URL
}

func (t redirectTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.URL.Scheme = t.target.Scheme
	r.URL.Host = t.target.Host
	r.Host = t.target.Host
	return http.DefaultTransport.RoundTrip(r)
}

type seenRequest struct {
	Path   string
	Header http.Header
	Body   map[string]any
}

// fakeUpstream records the requests it receives and answers with handler.
type fakeUpstream struct {
	*httptest.Server
	mu   sync.Mutex
	seen []seenRequest
}

func newFakeUpstream(handler http.HandlerFunc) *fakeUpstream {
	u := &fakeUpstream{}
	u.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		r.Body = io.NopCloser(bytes.NewReader(raw))
		var body map[string]any
		_ = json.Unmarshal(raw, &body)
		u.mu.Lock()
		u.seen = append(u.seen, seenRequest{Path: r.URL.Path, Header: r.Header.Clone(), Body: body})
		u.mu.Unlock()
		handler(w, r)
	}))
	return u
}

func (u *fakeUpstream) requests() []seenRequest {
	u.mu.Lock()
	defer u.mu.Unlock()
	return append([]seenRequest(nil), u.seen...)
}

type recordingSink struct {
	mu      sync.Mutex
	records []*metrics.RequestMetrics
}

func (s *recordingSink) ExportMetrics(_ context.Context, m *metrics.RequestMetrics) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, m)
}

func (s *recordingSink) all() []*metrics.RequestMetrics {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*metrics.RequestMetrics(nil), s.records...)
}

func newTestProxy(upstreamURL string, cfg Config, deps Deps) *Proxy {
	target, err := url.Parse(upstreamURL)
	Expect(err).NotTo(HaveOccurred())

	if deps.Registry == nil {
		deps.Registry = provider.NewRegistry(&http.Client{Transport: redirectTransport{target: target}})
	}
	if deps.Logger == nil {
		deps.Logger = logger.Nop()
	}
	if deps.Prices == nil {
		deps.Prices = pricing.DefaultCatalog()
	}

	p, err := New(cfg, deps)
	Expect(err).NotTo(HaveOccurred())
	DeferCleanup(p.Close)
	return p
}

func completionRequest(providerID, body string, headers ...string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, completionsPath, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if providerID != "" {
		req.Header.Set("x-provider", providerID)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	return req
}

func decodeEnvelope(resp *http.Response) llm.ErrorBody {
	var env llm.ErrorResponse
	Expect(json.NewDecoder(resp.Body).Decode(&env)).To(Succeed())
	return env.Error
}

const userBody = `{"model":"gpt-4o","messages":[{"role":"user","content":"hi"}]}`

var _ = Describe("Proxy", func() {
	var (
		upstream *fakeUpstream
		sink     *recordingSink
		pipeline *hooks.Pipeline
	)

	BeforeEach(func() {
		sink = &recordingSink{}
		pipeline = hooks.NewPipeline(logger.Nop())
		pipeline.Add(hooks.Defaults(hooks.DefaultSystemPrompt, "1.0.0", logger.Nop()))
	})

	AfterEach(func() {
		if upstream != nil {
			upstream.Close()
		}
	})

	Describe("routes", func() {
		var p *Proxy

		BeforeEach(func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {})
			p = newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})
		})

		It("serves /health", func() {
			resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			body, _ := io.ReadAll(resp.Body)
			Expect(string(body)).To(MatchJSON(`{"status":"ok"}`))
		})

		It("answers unknown routes with a not_found envelope", func() {
			resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, "/v2/nothing", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
			Expect(decodeEnvelope(resp)).To(Equal(llm.ErrorBody{Message: "Not Found", Type: "not_found", Code: 404}))
		})

		It("rejects non-POST completion requests with 405", func() {
			resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, completionsPath, nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusMethodNotAllowed))
			Expect(decodeEnvelope(resp)).To(Equal(llm.ErrorBody{Message: "Method not allowed", Type: "validation_error", Code: 405}))
		})

		It("tags responses with a request id", func() {
			resp, err := p.App().Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("x-request-id")).NotTo(BeEmpty())
		})

		It("reuses the client's request id", func() {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			req.Header.Set("x-request-id", "client-id")
			resp, err := p.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()
			Expect(resp.Header.Get("x-request-id")).To(Equal("client-id"))
		})
	})

	Describe("credentials", func() {
		var p *Proxy

		BeforeEach(func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, openAICompletion)
			})
			p = newTestProxy(upstream.URL, Config{
				Credentials: Credentials{GroqAPIKey: "gsk-configured"},
			}, Deps{Hooks: pipeline, Sink: sink})
		})

		DescribeTable("rejects requests before calling a provider",
			func(providerID string, status int, typ, message string) {
				resp, err := p.App().Test(completionRequest(providerID, userBody), -1)
				Expect(err).NotTo(HaveOccurred())
				defer resp.Body.Close()

				Expect(resp.StatusCode).To(Equal(status))
				env := decodeEnvelope(resp)
				Expect(env.Type).To(Equal(typ))
				Expect(env.Message).To(Equal(message))
				Expect(env.Code).To(Equal(status))
				Expect(upstream.requests()).To(BeEmpty())
			},
			Entry("missing provider", "", 400, "auth_error", "Provider not specified"),
			Entry("unknown provider", "mistral", 400, "auth_error", "Invalid provider specified"),
			Entry("openai without key", "openai", 401, "auth_error", "OpenAI API key not provided"),
			Entry("anthropic without key", "anthropic", 401, "auth_error", "Anthropic API key not provided"),
			Entry("bedrock without credentials", "bedrock", 401, "auth_error", "AWS credentials not provided"),
			Entry("fireworks without key", "fireworks", 401, "auth_error", "fireworks API key not provided"),
			Entry("together without key", "together", 401, "auth_error", "together API key not provided"),
		)

		It("forwards the bearer token to the provider", func() {
			resp, err := p.App().Test(completionRequest("OpenAI", userBody, "Authorization", "Bearer sk-client"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(upstream.requests()).To(HaveLen(1))
			Expect(upstream.requests()[0].Header.Get("Authorization")).To(Equal("Bearer sk-client"))
		})

		It("falls back to the configured key", func() {
			body := `{"model":"llama-3.1-8b-instant","messages":[{"role":"user","content":"hi"}]}`
			resp, err := p.App().Test(completionRequest("groq", body), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(upstream.requests()[0].Header.Get("Authorization")).To(Equal("Bearer gsk-configured"))
		})

		It("validates after credentials", func() {
			resp, err := p.App().Test(completionRequest("groq", `{"messages":[]}`), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			env := decodeEnvelope(resp)
			Expect(env.Type).To(Equal("validation_error"))
			Expect(env.Message).To(Equal("Model is required"))
		})
	})

	Describe("non-streaming completions", func() {
		var p *Proxy

		BeforeEach(func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, openAICompletion)
			})
			p = newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})
		})

		It("returns the completion with a derived usage total", func() {
			resp, err := p.App().Test(completionRequest("openai", userBody, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("x-gateway-version")).To(Equal("1.0.0"))

			var out llm.ChatCompletion
			Expect(json.NewDecoder(resp.Body).Decode(&out)).To(Succeed())
			Expect(out.Usage).NotTo(BeNil())
			Expect(out.Usage.TotalTokens).To(Equal(30))
		})

		It("injects the default system prompt", func() {
			resp, err := p.App().Test(completionRequest("openai", userBody, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			resp.Body.Close()

			msgs := upstream.requests()[0].Body["messages"].([]any)
			Expect(msgs).To(HaveLen(2))
			first := msgs[0].(map[string]any)
			Expect(first["role"]).To(Equal("system"))
			Expect(first["content"]).To(Equal(hooks.DefaultSystemPrompt))
		})

		It("exports one metrics record per request", func() {
			req := completionRequest("openai", userBody, "Authorization", "Bearer sk", "cf-ipcountry", "NL")
			resp, err := p.App().Test(req, -1)
			Expect(err).NotTo(HaveOccurred())
			reqID := resp.Header.Get("x-request-id")
			resp.Body.Close()

			Expect(p.Close()).To(Succeed())

			records := sink.all()
			Expect(records).To(HaveLen(1))
			rec := records[0]
			Expect(rec.RequestID).To(Equal(reqID))
			Expect(rec.Provider).To(Equal("openai"))
			Expect(rec.Model).To(Equal("gpt-4o"))
			Expect(rec.Status).To(Equal(200))
			Expect(rec.Success).To(BeTrue())
			Expect(rec.Cached).To(BeFalse())
			Expect(*rec.Tokens.Input).To(Equal(10))
			Expect(*rec.Tokens.Output).To(Equal(20))
			Expect(*rec.Tokens.Total).To(Equal(30))
			Expect(rec.Cost).NotTo(BeNil())
			Expect(rec.Location).NotTo(BeNil())
			Expect(rec.Location.Country).To(Equal("NL"))
		})
	})

	Describe("upstream errors", func() {
		It("preserves the upstream status under the provider's error type", func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				fmt.Fprint(w, `{"error":{"message":"Rate limit reached","type":"requests"}}`)
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})

			resp, err := p.App().Test(completionRequest("openai", userBody, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusTooManyRequests))
			env := decodeEnvelope(resp)
			Expect(env.Type).To(Equal("openai_error"))
			Expect(env.Code).To(Equal(429))

			Expect(p.Close()).To(Succeed())
			Expect(sink.all()).To(HaveLen(1))
			Expect(sink.all()[0].Status).To(Equal(429))
			Expect(sink.all()[0].Success).To(BeFalse())
		})

		It("lets error hooks answer untagged failures", func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {})
			pipeline.Add(hooks.Hooks{
				Name: "boom",
				BeforeRequest: func(context.Context, *llm.ChatRequest) (*llm.ChatRequest, error) {
					return nil, fmt.Errorf("hook exploded")
				},
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})

			resp, err := p.App().Test(completionRequest("openai", userBody, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			env := decodeEnvelope(resp)
			Expect(env.Type).To(Equal("gateway_error"))
			Expect(env.Message).To(Equal("hook exploded"))
			Expect(upstream.requests()).To(BeEmpty())
		})

		It("falls back to request_error without error hooks", func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {})
			bare := hooks.NewPipeline(logger.Nop())
			bare.Add(hooks.Hooks{
				Name: "boom",
				BeforeRequest: func(context.Context, *llm.ChatRequest) (*llm.ChatRequest, error) {
					return nil, fmt.Errorf("hook exploded")
				},
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: bare, Sink: sink})

			resp, err := p.App().Test(completionRequest("openai", userBody, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusInternalServerError))
			Expect(decodeEnvelope(resp).Type).To(Equal("request_error"))
		})
	})

	Describe("streaming completions", func() {
		It("transcodes Anthropic events into chat completion chunks", func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, anthropicStream)
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})

			body := `{"model":"claude-3-haiku","stream":true,"messages":[{"role":"user","content":"hi"}]}`
			resp, err := p.App().Test(completionRequest("anthropic", body, "Authorization", "Bearer sk-ant"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("text/event-stream"))

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			out := string(raw)

			Expect(out).To(HaveSuffix("data: [DONE]\n\n"))
			Expect(strings.Count(out, "data: ")).To(Equal(5))
			Expect(out).To(ContainSubstring(`"object":"chat.completion.chunk"`))
			Expect(out).To(ContainSubstring(`"finish_reason":"end_turn"`))
			Expect(upstream.requests()[0].Path).To(HaveSuffix("/messages"))

			Expect(p.Close()).To(Succeed())
			records := sink.all()
			Expect(records).To(HaveLen(1))
			rec := records[0]
			Expect(rec.Metadata.TotalChunks).To(Equal(4))
			Expect(rec.Metadata.StreamComplete).To(BeTrue())
			Expect(*rec.Tokens.Input).To(Equal(2))
			Expect(*rec.Tokens.Output).To(Equal(5))
			Expect(*rec.Tokens.Total).To(Equal(7))
			Expect(rec.Cost).NotTo(BeNil())
		})

		It("fails the client stream when Anthropic ends without a stop reason", func() {
			truncated := anthropicStream[:strings.Index(anthropicStream, "event: message_delta")]
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, truncated)
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})

			body := `{"model":"claude-3-haiku","stream":true,"messages":[{"role":"user","content":"hi"}]}`
			resp, err := p.App().Test(completionRequest("anthropic", body, "Authorization", "Bearer sk-ant"), -1)
			if err == nil {
				raw, _ := io.ReadAll(resp.Body)
				resp.Body.Close()
				Expect(string(raw)).NotTo(ContainSubstring("[DONE]"))
			}

			Expect(p.Close()).To(Succeed())
			records := sink.all()
			Expect(records).To(HaveLen(1))
			Expect(records[0].Metadata.TotalChunks).To(Equal(3))
			Expect(records[0].Metadata.StreamComplete).To(BeFalse())
		})

		It("releases a stalled provider stream when the client stream closes", func() {
			providerR, providerW := io.Pipe()
			pr, pw := io.Pipe()
			client := &clientStream{PipeReader: pr, upstream: providerR}

			relayed := make(chan struct{})
			go func() {
				defer GinkgoRecover()
				span := trace.SpanFromContext(context.Background())
				(&Proxy{}).relayStream(providerR, pw, span, logger.Nop())
				close(relayed)
			}()
			go func() {
				defer GinkgoRecover()
				_, _ = io.WriteString(providerW, "data: a\n\n")
			}()

			got := make([]byte, len("data: a\n\n"))
			_, err := io.ReadFull(client, got)
			Expect(err).NotTo(HaveOccurred())

			// The provider now sends nothing more.
			Expect(client.Close()).To(Succeed())
			Eventually(relayed).Should(BeClosed())

			_, err = providerW.Write([]byte("late"))
			Expect(err).To(MatchError(io.ErrClosedPipe))
		})

		It("relays OpenAI streams verbatim", func() {
			events := "data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hello\"}}]}\n\n" +
				"data: {\"id\":\"c1\",\"object\":\"chat.completion.chunk\",\"choices\":[],\"usage\":{\"prompt_tokens\":3,\"completion_tokens\":1,\"total_tokens\":4}}\n\n" +
				"data: [DONE]\n\n"
			upstream = newFakeUpstream(func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Content-Type", "text/event-stream")
				fmt.Fprint(w, events)
			})
			p := newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink})

			body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`
			resp, err := p.App().Test(completionRequest("openai", body, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			defer resp.Body.Close()

			raw, err := io.ReadAll(resp.Body)
			Expect(err).NotTo(HaveOccurred())
			Expect(string(raw)).To(Equal(events))

			Expect(p.Close()).To(Succeed())
			Expect(sink.all()).To(HaveLen(1))
			Expect(*sink.all()[0].Tokens.Total).To(Equal(4))
		})
	})

	Describe("response cache", func() {
		var (
			p  *Proxy
			mr *miniredis.Miniredis
		)

		BeforeEach(func() {
			upstream = newFakeUpstream(func(w http.ResponseWriter, r *http.Request) {
				raw, _ := io.ReadAll(r.Body)
				if bytes.Contains(raw, []byte(`"stream":true`)) {
					w.Header().Set("Content-Type", "text/event-stream")
					fmt.Fprint(w, "data: [DONE]\n\n")
					return
				}
				w.Header().Set("Content-Type", "application/json")
				fmt.Fprint(w, openAICompletion)
			})

			var err error
			mr, err = miniredis.Run()
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(mr.Close)

			c, err := rediscache.New(context.Background(), mr.Addr())
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(c.Close)

			p = newTestProxy(upstream.URL, Config{}, Deps{Hooks: pipeline, Sink: sink, Cache: c})
		})

		send := func(body string) *http.Response {
			resp, err := p.App().Test(completionRequest("openai", body, "Authorization", "Bearer sk"), -1)
			Expect(err).NotTo(HaveOccurred())
			DeferCleanup(resp.Body.Close)
			return resp
		}

		It("answers identical requests from the cache", func() {
			first := send(userBody)
			Expect(first.Header.Get("x-cache")).To(Equal("MISS"))

			second := send(userBody)
			Expect(second.StatusCode).To(Equal(http.StatusOK))
			Expect(second.Header.Get("x-cache")).To(Equal("HIT"))
			Expect(second.Header.Get("x-gateway-version")).To(Equal("1.0.0"))

			var out llm.ChatCompletion
			Expect(json.NewDecoder(second.Body).Decode(&out)).To(Succeed())
			Expect(out.Usage.TotalTokens).To(Equal(30))

			Expect(upstream.requests()).To(HaveLen(1))

			Expect(p.Close()).To(Succeed())
			records := sink.all()
			Expect(records).To(HaveLen(2))
			cached := 0
			for _, r := range records {
				if r.Cached {
					cached++
					Expect(*r.Tokens.Total).To(Equal(30))
				}
			}
			Expect(cached).To(Equal(1))
		})

		It("never caches streaming requests", func() {
			body := `{"model":"gpt-4o","stream":true,"messages":[{"role":"user","content":"hi"}]}`
			resp := send(body)
			_, _ = io.ReadAll(resp.Body)
			Expect(resp.Header.Get("x-cache")).To(BeEmpty())

			send(body)
			Expect(upstream.requests()).To(HaveLen(2))
			Expect(mr.Keys()).To(BeEmpty())
		})
	})
})
