package telemetry_test

import (
	"bytes"
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmgateway/pkg/telemetry"
)

var _ = Describe("Init", func() {
	ctx := context.Background()

	It("returns a no-op provider when no exporter is configured", func() {
		p, err := telemetry.Init(ctx, telemetry.Config{})
		Expect(err).NotTo(HaveOccurred())

		_, span := p.Tracer("test").Start(ctx, "op")
		Expect(span.SpanContext().IsValid()).To(BeFalse())
		span.End()
		Expect(p.Shutdown(ctx)).To(Succeed())
	})

	It("writes spans to the stdout exporter's writer", func() {
		var buf bytes.Buffer
		p, err := telemetry.Init(ctx, telemetry.Config{
			Exporter:       telemetry.ExporterStdout,
			ServiceName:    "llmgateway-test",
			ServiceVersion: "test",
			Writer:         &buf,
		})
		Expect(err).NotTo(HaveOccurred())

		_, span := p.Tracer("test").Start(ctx, "proxy.chat_completion")
		Expect(span.SpanContext().IsValid()).To(BeTrue())
		span.End()

		Expect(p.Shutdown(ctx)).To(Succeed())
		Expect(buf.String()).To(ContainSubstring("proxy.chat_completion"))
		Expect(buf.String()).To(ContainSubstring("llmgateway-test"))
	})

	It("rejects unknown exporters", func() {
		_, err := telemetry.Init(ctx, telemetry.Config{Exporter: "zipkin"})
		Expect(err).To(MatchError(ContainSubstring("unknown trace exporter")))
	})
})
