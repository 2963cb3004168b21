package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/llmgateway/cmd/llmgateway/config"
	"github.com/papercomputeco/llmgateway/pkg/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "llmgateway-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .llmgateway dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".llmgateway"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	loadConfig := func() *config.Config {
		data, err := os.ReadFile(filepath.Join(tmpDir, ".llmgateway", "config.toml"))
		Expect(err).NotTo(HaveOccurred())
		cfg, err := config.ParseConfigTOML(data)
		Expect(err).NotTo(HaveOccurred())
		return cfg
	}

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "server.listen", ":9090")).To(Succeed())

			Expect(loadConfig().Server.Listen).To(Equal(":9090"))
		})

		It("parses typed values", func() {
			Expect(run("set", "server.collection_timeout", "12s")).To(Succeed())
			Expect(run("set", "stdout.enabled", "false")).To(Succeed())

			cfg := loadConfig()
			Expect(cfg.Server.CollectionTimeout.String()).To(Equal("12s"))
			Expect(cfg.Stdout.Enabled).To(BeFalse())
		})

		It("masks credentials in its output", func() {
			Expect(run("set", "providers.openai_api_key", "sk-test-123456")).To(Succeed())

			Expect(out.String()).To(ContainSubstring("****3456"))
			Expect(out.String()).NotTo(ContainSubstring("sk-test"))
			Expect(loadConfig().Providers.OpenAIAPIKey).To(Equal("sk-test-123456"))
		})

		It("rejects unknown keys", func() {
			Expect(run("set", "invalid_key", "value")).To(HaveOccurred())
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "server.listen")).To(HaveOccurred())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).To(HaveOccurred())
		})

		It("rejects invalid int values", func() {
			Expect(run("set", "server.workers", "not-a-number")).To(HaveOccurred())
		})

		It("rejects invalid durations", func() {
			Expect(run("set", "cache.ttl", "soon")).To(HaveOccurred())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "kafka.topic", "gateway-metrics")).To(Succeed())

			out.Reset()
			Expect(run("get", "kafka.topic")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("gateway-metrics"))
		})

		It("masks credentials", func() {
			Expect(run("set", "elasticsearch.password", "hunter22")).To(Succeed())

			out.Reset()
			Expect(run("get", "elasticsearch.password")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("****er22"))
			Expect(out.String()).NotTo(ContainSubstring("hunter22"))
		})

		It("runs without error for unset key", func() {
			Expect(run("get", "cache.redis_addr")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).To(HaveOccurred())
		})

		It("requires at least one key", func() {
			Expect(run("get")).To(HaveOccurred())
		})

		It("prints several keys at once", func() {
			Expect(run("set", "elasticsearch.host", "es.internal")).To(Succeed())

			out.Reset()
			Expect(run("get", "elasticsearch.host", "elasticsearch.index")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("es.internal"))
			Expect(out.String()).To(ContainSubstring("elasticsearch.index"))
		})

		It("prints bare values with --raw", func() {
			Expect(run("set", "kafka.brokers", "b1:9092,b2:9092")).To(Succeed())
			Expect(run("set", "providers.anthropic_api_key", "sk-ant-secret99")).To(Succeed())

			out.Reset()
			Expect(run("get", "--raw", "kafka.brokers", "cache.redis_addr", "providers.anthropic_api_key")).To(Succeed())
			Expect(out.String()).To(Equal("b1:9092,b2:9092\n\n****et99\n"))
		})

		It("validates every key before printing", func() {
			Expect(run("get", "server.listen", "invalid_key")).To(HaveOccurred())
			Expect(out.String()).NotTo(ContainSubstring("Config file"))
		})
	})

	Describe("list subcommand", func() {
		It("runs without error when no config exists", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("[server]"))
			Expect(out.String()).To(ContainSubstring(`listen = ":8080"`))
			Expect(out.String()).To(ContainSubstring("[log]"))
		})

		It("lists values and masks credentials", func() {
			Expect(run("set", "providers.groq_api_key", "gsk_abcdef")).To(Succeed())

			out.Reset()
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("Config file:"))
			Expect(out.String()).To(ContainSubstring(`groq_api_key = "****cdef"`))
			Expect(out.String()).NotTo(ContainSubstring("gsk_abcdef"))
		})

		It("limits output to one section", func() {
			Expect(run("set", "kafka.topic", "gateway-metrics")).To(Succeed())

			out.Reset()
			Expect(run("list", "kafka")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("[kafka]"))
			Expect(out.String()).To(ContainSubstring(`topic = "gateway-metrics"`))
			Expect(out.String()).NotTo(ContainSubstring("[server]"))
		})

		It("rejects unknown sections", func() {
			err := run("list", "proxy")
			Expect(err).To(MatchError(ContainSubstring(`unknown config section: "proxy"`)))
		})

		It("rejects more than one section", func() {
			Expect(run("list", "server", "kafka")).To(HaveOccurred())
		})
	})
})
