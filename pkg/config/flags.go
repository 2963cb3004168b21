package config

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Flag is the single source of truth for a CLI flag.
// Commands reference flags by registry key rather than hard-coding names,
// shorthands, defaults, and descriptions inline.
type Flag struct {
	// Name is the long flag name (e.g. "listen").
	Name string

	// Shorthand is the one-letter short flag (e.g. "l"). Empty for no shorthand.
	Shorthand string

	// ViperKey is the dotted config key this flag maps to (e.g. "server.listen").
	ViperKey string

	// Description is the help text shown in --help output.
	Description string
}

// FlagSet is a mapping of flag names to Flag structs that hold their name,
// shorthand, viper key, etc.
type FlagSet map[string]Flag

// Flag registry keys.
// Use these constants when calling the Add*Flag helpers and
// BindRegisteredFlags to avoid typos or drift from one command to another.
const (
	FlagListen            = "listen"
	FlagCollectionTimeout = "collection-timeout"
	FlagUpstreamTimeout   = "upstream-timeout"
	FlagSystemPrompt      = "system-prompt"
	FlagWorkers           = "workers"
	FlagQueueSize         = "queue-size"
	FlagPricingOverrides  = "pricing-overrides"
	FlagPricingWatch      = "pricing-watch"
	FlagRedisAddr         = "redis-addr"
	FlagKafkaBrokers      = "kafka-brokers"
	FlagKafkaTopic        = "kafka-topic"
	FlagElasticsearchHost = "elasticsearch-host"
	FlagStdout            = "stdout"
	FlagTelemetry         = "telemetry"
	FlagTelemetryEndpoint = "telemetry-endpoint"
	FlagLogJSON           = "log-json"
	FlagLogFile           = "log-file"
)

// ServeFlags is the registry used by "llmgateway serve".
var ServeFlags = FlagSet{
	FlagListen:            {Name: "listen", Shorthand: "l", ViperKey: "server.listen", Description: "Address for the gateway to listen on"},
	FlagCollectionTimeout: {Name: "collection-timeout", ViperKey: "server.collection_timeout", Description: "Maximum wait for a request's metrics to complete before export"},
	FlagUpstreamTimeout:   {Name: "upstream-timeout", ViperKey: "server.upstream_timeout", Description: "Timeout waiting for upstream response headers"},
	FlagSystemPrompt:      {Name: "system-prompt", ViperKey: "server.system_prompt", Description: "System message injected when a request has none (empty disables)"},
	FlagWorkers:           {Name: "workers", Shorthand: "w", ViperKey: "server.workers", Description: "Number of metrics finalisation workers"},
	FlagQueueSize:         {Name: "queue-size", ViperKey: "server.queue_size", Description: "Metrics finalisation queue size"},
	FlagPricingOverrides:  {Name: "pricing-overrides", ViperKey: "pricing.overrides_path", Description: "Path to a JSON price overrides file"},
	FlagPricingWatch:      {Name: "pricing-watch", ViperKey: "pricing.watch", Description: "Reload the price overrides file when it changes"},
	FlagRedisAddr:         {Name: "redis-addr", ViperKey: "cache.redis_addr", Description: "Redis address for the response cache (empty disables)"},
	FlagKafkaBrokers:      {Name: "kafka-brokers", ViperKey: "kafka.brokers", Description: "Comma separated Kafka brokers for the metrics exporter"},
	FlagKafkaTopic:        {Name: "kafka-topic", ViperKey: "kafka.topic", Description: "Kafka topic for the metrics exporter"},
	FlagElasticsearchHost: {Name: "elasticsearch-host", ViperKey: "elasticsearch.host", Description: "Elasticsearch host for the metrics exporter"},
	FlagStdout:            {Name: "stdout", ViperKey: "stdout.enabled", Description: "Write a JSON line per request to stdout"},
	FlagTelemetry:         {Name: "telemetry", ViperKey: "telemetry.exporter", Description: "Trace exporter (none, stdout, otlp)"},
	FlagTelemetryEndpoint: {Name: "telemetry-endpoint", ViperKey: "telemetry.endpoint", Description: "OTLP gRPC collector endpoint"},
	FlagLogJSON:           {Name: "log-json", ViperKey: "log.json", Description: "Emit JSON logs"},
	FlagLogFile:           {Name: "log-file", ViperKey: "log.file", Description: "Also append JSON logs to this file"},
}

// AddStringFlag registers a string flag on cmd from the given FlagSet.
// The flag's name, shorthand, default, and description all come from the
// FlagSet entry so they cannot drift across commands.
func AddStringFlag(cmd *cobra.Command, fs FlagSet, key string, target *string) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetString(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().StringVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().StringVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddIntFlag registers an int flag on cmd from the given FlagSet.
func AddIntFlag(cmd *cobra.Command, fs FlagSet, key string, target *int) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetInt(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().IntVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().IntVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddBoolFlag registers a bool flag on cmd from the given FlagSet.
func AddBoolFlag(cmd *cobra.Command, fs FlagSet, key string, target *bool) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetBool(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().BoolVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().BoolVar(target, def.Name, defaultVal, def.Description)
	}
}

// AddDurationFlag registers a duration flag on cmd from the given FlagSet.
func AddDurationFlag(cmd *cobra.Command, fs FlagSet, key string, target *time.Duration) {
	def, ok := fs[key]
	if !ok {
		return
	}

	defaultVal := defaults().GetDuration(def.ViperKey)
	if def.Shorthand != "" {
		cmd.Flags().DurationVarP(target, def.Name, def.Shorthand, defaultVal, def.Description)
	} else {
		cmd.Flags().DurationVar(target, def.Name, defaultVal, def.Description)
	}
}

// BindRegisteredFlags binds already-registered flags to viper using definitions
// from the given FlagSet. Call this in PreRunE after InitViper to connect flags
// to the viper precedence chain (flag > env > config file > default).
func BindRegisteredFlags(v *viper.Viper, cmd *cobra.Command, fs FlagSet, registryKeys []string) {
	for _, registryKey := range registryKeys {
		def, ok := fs[registryKey]
		if !ok {
			continue
		}

		f := cmd.Flags().Lookup(def.Name)
		if f == nil {
			continue
		}

		_ = v.BindPFlag(def.ViperKey, f)
	}
}

// defaults returns a viper instance holding only NewDefaultConfig values.
func defaults() *viper.Viper {
	v := viper.New()
	setViperDefaults(v)
	return v
}
