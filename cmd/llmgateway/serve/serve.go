// Package servecmder provides the serve command that runs the gateway.
package servecmder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/papercomputeco/llmgateway/pkg/cache"
	rediscache "github.com/papercomputeco/llmgateway/pkg/cache/redis"
	"github.com/papercomputeco/llmgateway/pkg/cliui"
	"github.com/papercomputeco/llmgateway/pkg/config"
	"github.com/papercomputeco/llmgateway/pkg/hooks"
	"github.com/papercomputeco/llmgateway/pkg/llm/provider"
	"github.com/papercomputeco/llmgateway/pkg/llm/upstream"
	"github.com/papercomputeco/llmgateway/pkg/logger"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter/elasticsearch"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter/kafka"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter/nop"
	"github.com/papercomputeco/llmgateway/pkg/metrics/exporter/stdout"
	"github.com/papercomputeco/llmgateway/pkg/pricing"
	"github.com/papercomputeco/llmgateway/pkg/telemetry"
	"github.com/papercomputeco/llmgateway/pkg/utils"
	"github.com/papercomputeco/llmgateway/proxy"
)

const (
	shutdownTimeout = 10 * time.Second
	checkTimeout    = 3 * time.Second
)

type ServeCommander struct {
	flags serveFlags
	check bool

	cfg    *config.Config
	debug  bool
	logger *slog.Logger
}

// serveFlags are the flag targets. Values reach the config through viper,
// never directly.
type serveFlags struct {
	listen            string
	collectionTimeout time.Duration
	upstreamTimeout   time.Duration
	systemPrompt      string
	workers           int
	queueSize         int
	pricingOverrides  string
	pricingWatch      bool
	redisAddr         string
	kafkaBrokers      string
	kafkaTopic        string
	elasticsearchHost string
	stdout            bool
	telemetry         string
	telemetryEndpoint string
	logJSON           bool
	logFile           string
}

const serveLongDesc string = `Run the llmgateway server.

The gateway accepts OpenAI shaped chat completion requests on
POST /v1/chat/completions and routes them to the provider named in the
x-provider header (openai, anthropic, bedrock, groq, fireworks, together).

Provider credentials come from the request (Authorization: Bearer, or the
x-aws-* headers for bedrock) and fall back to the configured keys.

Per-request metrics are exported to every enabled sink:
  --elasticsearch-host   Elasticsearch bulk indexing
  --kafka-brokers        Kafka topic producer
  --stdout               JSON lines on stdout

Configuration precedence: flags, LLMGATEWAY_* environment variables,
.llmgateway/config.toml, defaults.

Use --check to probe a running gateway's /health endpoint and exit.`

const serveShortDesc string = "Run the llmgateway server"

var serveFlagKeys = []string{
	config.FlagListen,
	config.FlagCollectionTimeout,
	config.FlagUpstreamTimeout,
	config.FlagSystemPrompt,
	config.FlagWorkers,
	config.FlagQueueSize,
	config.FlagPricingOverrides,
	config.FlagPricingWatch,
	config.FlagRedisAddr,
	config.FlagKafkaBrokers,
	config.FlagKafkaTopic,
	config.FlagElasticsearchHost,
	config.FlagStdout,
	config.FlagTelemetry,
	config.FlagTelemetryEndpoint,
	config.FlagLogJSON,
	config.FlagLogFile,
}

func NewServeCmd() *cobra.Command {
	cmder := &ServeCommander{}

	cmd := &cobra.Command{
		Use:   "serve",
		Short: serveShortDesc,
		Long:  serveLongDesc,
		Args:  cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			v, err := config.InitViper(configDir)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			config.BindRegisteredFlags(v, cmd, config.ServeFlags, serveFlagKeys)

			cmder.cfg, err = config.FromViper(v)
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}

			cmder.debug = debugEnabled(cmd, v)
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			if cmder.check {
				return cmder.runCheck(cmd.Context())
			}
			return cmder.run()
		},
	}

	f := &cmder.flags
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagListen, &f.listen)
	config.AddDurationFlag(cmd, config.ServeFlags, config.FlagCollectionTimeout, &f.collectionTimeout)
	config.AddDurationFlag(cmd, config.ServeFlags, config.FlagUpstreamTimeout, &f.upstreamTimeout)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagSystemPrompt, &f.systemPrompt)
	config.AddIntFlag(cmd, config.ServeFlags, config.FlagWorkers, &f.workers)
	config.AddIntFlag(cmd, config.ServeFlags, config.FlagQueueSize, &f.queueSize)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagPricingOverrides, &f.pricingOverrides)
	config.AddBoolFlag(cmd, config.ServeFlags, config.FlagPricingWatch, &f.pricingWatch)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagRedisAddr, &f.redisAddr)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaBrokers, &f.kafkaBrokers)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagKafkaTopic, &f.kafkaTopic)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagElasticsearchHost, &f.elasticsearchHost)
	config.AddBoolFlag(cmd, config.ServeFlags, config.FlagStdout, &f.stdout)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagTelemetry, &f.telemetry)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagTelemetryEndpoint, &f.telemetryEndpoint)
	config.AddBoolFlag(cmd, config.ServeFlags, config.FlagLogJSON, &f.logJSON)
	config.AddStringFlag(cmd, config.ServeFlags, config.FlagLogFile, &f.logFile)
	cmd.Flags().BoolVar(&cmder.check, "check", false, "Probe a running gateway's /health endpoint and exit")

	return cmd
}

// debugEnabled honours the global --debug flag over log.debug.
func debugEnabled(cmd *cobra.Command, v *viper.Viper) bool {
	if f := cmd.Flags().Lookup("debug"); f != nil && f.Changed {
		debug, _ := cmd.Flags().GetBool("debug")
		return debug
	}
	return v.GetBool("log.debug")
}

func (c *ServeCommander) run() error {
	cfg := c.cfg
	closeLog, err := c.setupLogger()
	if err != nil {
		return err
	}
	defer closeLog()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, err := telemetry.Init(ctx, telemetry.Config{
		Exporter:       cfg.Telemetry.Exporter,
		Endpoint:       cfg.Telemetry.Endpoint,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: utils.Version,
		Writer:         os.Stderr,
	})
	if err != nil {
		return fmt.Errorf("starting telemetry: %w", err)
	}
	defer c.shutdown("telemetry", tp.Shutdown)

	prices, err := pricing.NewStore(cfg.Pricing.OverridesPath, c.logger)
	if err != nil {
		return fmt.Errorf("loading pricing: %w", err)
	}
	if cfg.Pricing.Watch {
		go func() {
			if err := prices.Watch(ctx); err != nil {
				c.logger.Error("pricing watcher stopped", "error", err)
			}
		}()
	}

	manager := exporter.NewManager(c.logger, exporter.WithTracer(tp.Tracer("llmgateway/exporter")))
	defer c.shutdown("exporters", manager.Cleanup)
	if err := c.addExporters(manager); err != nil {
		return err
	}

	var responseCache cache.Cache
	if cfg.Cache.RedisAddr != "" {
		rc, err := rediscache.New(ctx, cfg.Cache.RedisAddr)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		responseCache = rc
		defer rc.Close()
	}

	pipeline := hooks.NewPipeline(c.logger)
	pipeline.Add(hooks.Defaults(cfg.Server.SystemPrompt, cfg.Server.GatewayVersion, c.logger))

	p, err := proxy.New(proxy.Config{
		ListenAddr:        cfg.Server.Listen,
		CollectionTimeout: cfg.Server.CollectionTimeout.Duration,
		UpstreamTimeout:   cfg.Server.UpstreamTimeout.Duration,
		CacheTTL:          cfg.Cache.TTL.Duration,
		Workers:           uint(max(cfg.Server.Workers, 0)),
		QueueSize:         uint(max(cfg.Server.QueueSize, 0)),
		Credentials:       credentialsFrom(cfg.Providers),
	}, proxy.Deps{
		Registry: provider.NewRegistry(upstream.NewHTTPClient(cfg.Server.UpstreamTimeout.Duration)),
		Hooks:    pipeline,
		Sink:     manager,
		Prices:   prices,
		Cache:    responseCache,
		Tracer:   tp.Tracer("llmgateway/proxy"),
		Logger:   c.logger,
	})
	if err != nil {
		return fmt.Errorf("creating gateway: %w", err)
	}

	fmt.Fprintln(os.Stderr, cliui.Banner("llmgateway "+utils.Version,
		cliui.Field{Key: "listen", Value: cfg.Server.Listen},
		cliui.Field{Key: "exporters", Value: strings.Join(manager.Types(), ", ")},
		cliui.Field{Key: "cache", Value: cfg.Cache.RedisAddr},
		cliui.Field{Key: "pricing", Value: cfg.Pricing.OverridesPath},
		cliui.Field{Key: "telemetry", Value: telemetryLabel(cfg.Telemetry)},
	))

	// Channel to capture errors from the server goroutine
	errChan := make(chan error, 1)

	go func() {
		if err := p.Run(); err != nil {
			errChan <- fmt.Errorf("gateway error: %w", err)
		}
	}()

	// Wait for interrupt signal or error
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	var runErr error
	select {
	case runErr = <-errChan:
	case sig := <-sigChan:
		c.logger.Info("received signal, shutting down", "signal", sig.String())
	}

	// Closing the gateway drains in-flight metrics into the manager, so it
	// must happen before the deferred exporter cleanup.
	if err := p.Close(); err != nil {
		c.logger.Error("closing gateway", "error", err)
	}

	return runErr
}

// setupLogger builds the console logger and, with log.file set, fans
// records out to a JSON log file as well.
func (c *ServeCommander) setupLogger() (func(), error) {
	console := logger.New(
		logger.WithWriter(os.Stderr),
		logger.WithTerminal(os.Stderr),
		logger.WithJSON(c.cfg.Log.JSON),
		logger.WithDebug(c.debug),
	)

	if c.cfg.Log.File == "" {
		c.logger = console
		return func() {}, nil
	}

	f, err := os.OpenFile(c.cfg.Log.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	file := logger.New(
		logger.WithWriter(f),
		logger.WithJSON(true),
		logger.WithDebug(c.debug),
	)
	c.logger = logger.Multi(console, file)
	return func() { _ = f.Close() }, nil
}

// addExporters registers every sink the configuration enables.
func (c *ServeCommander) addExporters(m *exporter.Manager) error {
	cfg := c.cfg

	if cfg.Elasticsearch.Host != "" {
		retrier := exporter.DefaultRetrier()
		retrier.AttemptTimeout = cfg.Elasticsearch.Timeout.Duration

		es, err := elasticsearch.New(elasticsearch.Config{
			Host:     cfg.Elasticsearch.Host,
			Port:     cfg.Elasticsearch.Port,
			Username: cfg.Elasticsearch.Username,
			Password: cfg.Elasticsearch.Password,
			Index:    cfg.Elasticsearch.Index,
		}, c.logger, elasticsearch.WithRetrier(retrier))
		if err != nil {
			return fmt.Errorf("creating elasticsearch exporter: %w", err)
		}
		if err := m.Add(es); err != nil {
			return err
		}
	}

	if brokers := cfg.Kafka.BrokerList(); len(brokers) > 0 {
		k, err := kafka.New(kafka.Config{
			Brokers: brokers,
			Topic:   cfg.Kafka.Topic,
		}, c.logger)
		if err != nil {
			return fmt.Errorf("creating kafka exporter: %w", err)
		}
		if err := m.Add(k); err != nil {
			return err
		}
	}

	if cfg.Stdout.Enabled {
		if err := m.Add(stdout.New(os.Stdout)); err != nil {
			return err
		}
	}

	if !m.Initialized() {
		c.logger.Warn("no metrics exporters enabled, records are discarded")
		return m.Add(nop.New())
	}
	return nil
}

// shutdown runs a cleanup step with a bounded context and logs failures.
func (c *ServeCommander) shutdown(name string, fn func(context.Context) error) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := fn(ctx); err != nil {
		c.logger.Error("shutdown failed", "component", name, "error", err)
	}
}

// runCheck probes the /health endpoint of a gateway listening on the
// configured address.
func (c *ServeCommander) runCheck(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, cancel := context.WithTimeout(ctx, checkTimeout)
	defer cancel()

	url := healthURL(c.cfg.Server.Listen)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		fmt.Printf("  %s %s\n", cliui.FailMark, url)
		return fmt.Errorf("health check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Printf("  %s %s\n", cliui.FailMark, url)
		return errors.New("health check: " + resp.Status)
	}

	fmt.Printf("  %s %s\n", cliui.SuccessMark, url)
	return nil
}

// healthURL maps a listen address like ":8080" to a loopback URL.
func healthURL(listen string) string {
	host := listen
	if strings.HasPrefix(host, ":") {
		host = "127.0.0.1" + host
	}
	host = strings.Replace(host, "0.0.0.0:", "127.0.0.1:", 1)
	return "http://" + host + "/health"
}

func credentialsFrom(p config.ProvidersConfig) proxy.Credentials {
	return proxy.Credentials{
		OpenAIAPIKey:       p.OpenAIAPIKey,
		OpenAIOrganization: p.OpenAIOrganization,
		AnthropicAPIKey:    p.AnthropicAPIKey,
		GroqAPIKey:         p.GroqAPIKey,
		FireworksAPIKey:    p.FireworksAPIKey,
		TogetherAPIKey:     p.TogetherAPIKey,
		AWSAccessKeyID:     p.AWSAccessKeyID,
		AWSSecretAccessKey: p.AWSSecretAccessKey,
		AWSRegion:          p.AWSRegion,
	}
}

func telemetryLabel(t config.TelemetryConfig) string {
	switch t.Exporter {
	case "", telemetry.ExporterNone:
		return ""
	case telemetry.ExporterOTLP:
		if t.Endpoint != "" {
			return t.Exporter + " " + t.Endpoint
		}
	}
	return t.Exporter
}
