package cliui_test

import (
	"bytes"
	"errors"
	"time"

	"github.com/charmbracelet/x/ansi"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/llmgateway/pkg/cliui"
)

var _ = Describe("cliui", func() {
	Describe("Step", func() {
		It("prints a success mark and returns nil", func() {
			var buf bytes.Buffer
			err := cliui.Step(&buf, "starting", func() error { return nil })
			Expect(err).NotTo(HaveOccurred())
			Expect(buf.String()).To(ContainSubstring("starting"))
			Expect(buf.String()).To(HaveSuffix("\n"))
		})

		It("returns the error from fn", func() {
			var buf bytes.Buffer
			boom := errors.New("boom")
			err := cliui.Step(&buf, "connecting", func() error { return boom })
			Expect(err).To(MatchError(boom))
			Expect(buf.String()).To(ContainSubstring("connecting"))
		})
	})

	It("formats durations", func() {
		Expect(cliui.FormatDuration(12 * time.Millisecond)).To(Equal("12ms"))
		Expect(cliui.FormatDuration(3200 * time.Millisecond)).To(Equal("3.2s"))
	})

	It("masks credentials", func() {
		Expect(cliui.Mask("")).To(BeEmpty())
		Expect(cliui.Mask("abc")).To(Equal("***"))
		Expect(cliui.Mask("sk-1234567890")).To(Equal("****7890"))
	})

	It("renders every banner field", func() {
		out := cliui.Banner("llmgateway", cliui.Field{Key: "listen", Value: ":8080"}, cliui.Field{Key: "cache", Value: ""})
		Expect(out).To(ContainSubstring("llmgateway"))
		Expect(out).To(ContainSubstring(":8080"))
		Expect(out).To(ContainSubstring("off"))
	})

	It("aligns banner keys", func() {
		out := ansi.Strip(cliui.Banner("llmgateway", cliui.Field{Key: "listen", Value: ":8080"}, cliui.Field{Key: "cache", Value: ""}))
		Expect(out).To(ContainSubstring("listen  :8080"))
		Expect(out).To(ContainSubstring("cache   off"))
	})
})
