package provider_test

import (
	"errors"
	"net/http"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmgateway/pkg/llm"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
)

var _ = Describe("Registry", func() {
	var r *provider.Registry

	BeforeEach(func() {
		r = provider.NewRegistry(nil)
	})

	DescribeTable("resolves every supported provider",
		func(id string) {
			b, err := r.Get(id, upstream.Config{})
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Name()).To(Equal(id))
		},
		Entry("openai", provider.OpenAI),
		Entry("anthropic", provider.Anthropic),
		Entry("bedrock", provider.Bedrock),
		Entry("groq", provider.Groq),
		Entry("fireworks", provider.Fireworks),
		Entry("together", provider.Together),
	)

	It("rejects unknown providers with a validation error", func() {
		_, err := r.Get("cohere", upstream.Config{})
		var gerr *llm.Error
		Expect(errors.As(err, &gerr)).To(BeTrue())
		Expect(gerr.Kind).To(Equal(llm.KindValidation))
		Expect(gerr.Status).To(Equal(http.StatusBadRequest))
		Expect(gerr.Message).To(Equal("Invalid provider specified"))
	})

	It("shares one provider instance per id", func() {
		a, err := r.Get(provider.OpenAI, upstream.Config{APIKey: "one"})
		Expect(err).NotTo(HaveOccurred())
		b, err := r.Get(provider.OpenAI, upstream.Config{APIKey: "two"})
		Expect(err).NotTo(HaveOccurred())

		Expect(a.Provider).To(BeIdenticalTo(b.Provider))
	})

	It("keeps configuration per binding", func() {
		a, _ := r.Get(provider.Anthropic, upstream.Config{APIKey: "one"})
		b, _ := r.Get(provider.Anthropic, upstream.Config{APIKey: "two"})

		Expect(a.Config.APIKey).To(Equal("one"))
		Expect(b.Config.APIKey).To(Equal("two"))
	})

	It("lists supported providers", func() {
		Expect(provider.SupportedProviders()).To(ConsistOf("openai", "anthropic", "bedrock", "groq", "fireworks", "together"))
		Expect(provider.IsSupported("groq")).To(BeTrue())
		Expect(provider.IsSupported("ollama")).To(BeFalse())
	})
})
