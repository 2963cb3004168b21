package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config represents the persistent gateway configuration stored as
// config.toml in the .llmgateway/ directory. The TOML layout uses sections
// for logical grouping.
type Config struct {
	Version       int                 `toml:"version"`
	Server        ServerConfig        `toml:"server"`
	Providers     ProvidersConfig     `toml:"providers"`
	Elasticsearch ElasticsearchConfig `toml:"elasticsearch"`
	Kafka         KafkaConfig         `toml:"kafka"`
	Stdout        StdoutConfig        `toml:"stdout"`
	Cache         CacheConfig         `toml:"cache"`
	Pricing       PricingConfig       `toml:"pricing"`
	Telemetry     TelemetryConfig     `toml:"telemetry"`
	Log           LogConfig           `toml:"log"`
}

// ServerConfig holds the HTTP surface and request finalisation settings.
type ServerConfig struct {
	Listen            string   `toml:"listen,omitempty"`
	CollectionTimeout Duration `toml:"collection_timeout"`
	UpstreamTimeout   Duration `toml:"upstream_timeout"`
	GatewayVersion    string   `toml:"gateway_version,omitempty"`
	SystemPrompt      string   `toml:"system_prompt"`
	Workers           int      `toml:"workers,omitempty"`
	QueueSize         int      `toml:"queue_size,omitempty"`
}

// ProvidersConfig holds the fallback credentials used when a request does
// not carry its own.
type ProvidersConfig struct {
	OpenAIAPIKey       string `toml:"openai_api_key,omitempty"`
	OpenAIOrganization string `toml:"openai_organization,omitempty"`
	AnthropicAPIKey    string `toml:"anthropic_api_key,omitempty"`
	GroqAPIKey         string `toml:"groq_api_key,omitempty"`
	FireworksAPIKey    string `toml:"fireworks_api_key,omitempty"`
	TogetherAPIKey     string `toml:"together_api_key,omitempty"`
	AWSAccessKeyID     string `toml:"aws_access_key_id,omitempty"`
	AWSSecretAccessKey string `toml:"aws_secret_access_key,omitempty"`
	AWSRegion          string `toml:"aws_region,omitempty"`
}

// ElasticsearchConfig configures the Elasticsearch metrics exporter. The
// exporter is enabled when Host is set.
type ElasticsearchConfig struct {
	Host     string   `toml:"host,omitempty"`
	Port     string   `toml:"port,omitempty"`
	Username string   `toml:"username,omitempty"`
	Password string   `toml:"password,omitempty"`
	Index    string   `toml:"index,omitempty"`
	Timeout  Duration `toml:"timeout"`
}

// KafkaConfig configures the Kafka metrics exporter. Brokers is a comma
// separated list; the exporter is enabled when it is non-empty.
type KafkaConfig struct {
	Brokers string `toml:"brokers,omitempty"`
	Topic   string `toml:"topic,omitempty"`
}

// BrokerList splits Brokers into trimmed, non-empty addresses.
func (k KafkaConfig) BrokerList() []string {
	var out []string
	for _, b := range strings.Split(k.Brokers, ",") {
		if b = strings.TrimSpace(b); b != "" {
			out = append(out, b)
		}
	}
	return out
}

// StdoutConfig toggles the JSON-lines metrics exporter.
type StdoutConfig struct {
	Enabled bool `toml:"enabled"`
}

// CacheConfig configures the optional response cache.
type CacheConfig struct {
	RedisAddr string   `toml:"redis_addr,omitempty"`
	TTL       Duration `toml:"ttl"`
}

// PricingConfig points at an optional JSON price overrides file.
type PricingConfig struct {
	OverridesPath string `toml:"overrides_path,omitempty"`
	Watch         bool   `toml:"watch"`
}

// TelemetryConfig selects the trace exporter.
type TelemetryConfig struct {
	Exporter    string `toml:"exporter,omitempty"`
	Endpoint    string `toml:"endpoint,omitempty"`
	ServiceName string `toml:"service_name,omitempty"`
}

// LogConfig controls logger construction.
type LogConfig struct {
	Debug bool `toml:"debug"`
	JSON  bool `toml:"json"`

	// File, when set, also receives every record as JSON.
	File string `toml:"file,omitempty"`
}

// Duration is a time.Duration that reads and writes as a Go duration
// string ("5s", "1m30s") in TOML.
type Duration struct {
	time.Duration
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = parsed
	return nil
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
// Plain string keys accept the empty value; typed keys treat it as unset.
type configKeyInfo struct {
	get   func(c *Config) string
	set   func(c *Config, v string) error
	plain bool
}

func stringKey(field func(c *Config) *string) configKeyInfo {
	return configKeyInfo{
		get:   func(c *Config) string { return *field(c) },
		set:   func(c *Config, v string) error { *field(c) = v; return nil },
		plain: true,
	}
}

func intKey(name string, field func(c *Config) *int) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string {
			if *field(c) == 0 {
				return ""
			}
			return strconv.Itoa(*field(c))
		},
		set: func(c *Config, v string) error {
			n, err := strconv.Atoi(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if n < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = n
			return nil
		},
	}
}

func boolKey(name string, field func(c *Config) *bool) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return strconv.FormatBool(*field(c)) },
		set: func(c *Config, v string) error {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			*field(c) = b
			return nil
		},
	}
}

func durationKey(name string, field func(c *Config) *Duration) configKeyInfo {
	return configKeyInfo{
		get: func(c *Config) string { return field(c).String() },
		set: func(c *Config, v string) error {
			var d Duration
			if err := d.UnmarshalText([]byte(v)); err != nil {
				return fmt.Errorf("invalid value for %s: %w", name, err)
			}
			if d.Duration < 0 {
				return fmt.Errorf("invalid value for %s: must not be negative", name)
			}
			*field(c) = d
			return nil
		},
	}
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"server.listen":             stringKey(func(c *Config) *string { return &c.Server.Listen }),
	"server.collection_timeout": durationKey("server.collection_timeout", func(c *Config) *Duration { return &c.Server.CollectionTimeout }),
	"server.upstream_timeout":   durationKey("server.upstream_timeout", func(c *Config) *Duration { return &c.Server.UpstreamTimeout }),
	"server.gateway_version":    stringKey(func(c *Config) *string { return &c.Server.GatewayVersion }),
	"server.system_prompt":      stringKey(func(c *Config) *string { return &c.Server.SystemPrompt }),
	"server.workers":            intKey("server.workers", func(c *Config) *int { return &c.Server.Workers }),
	"server.queue_size":         intKey("server.queue_size", func(c *Config) *int { return &c.Server.QueueSize }),

	"providers.openai_api_key":        stringKey(func(c *Config) *string { return &c.Providers.OpenAIAPIKey }),
	"providers.openai_organization":   stringKey(func(c *Config) *string { return &c.Providers.OpenAIOrganization }),
	"providers.anthropic_api_key":     stringKey(func(c *Config) *string { return &c.Providers.AnthropicAPIKey }),
	"providers.groq_api_key":          stringKey(func(c *Config) *string { return &c.Providers.GroqAPIKey }),
	"providers.fireworks_api_key":     stringKey(func(c *Config) *string { return &c.Providers.FireworksAPIKey }),
	"providers.together_api_key":      stringKey(func(c *Config) *string { return &c.Providers.TogetherAPIKey }),
	"providers.aws_access_key_id":     stringKey(func(c *Config) *string { return &c.Providers.AWSAccessKeyID }),
	"providers.aws_secret_access_key": stringKey(func(c *Config) *string { return &c.Providers.AWSSecretAccessKey }),
	"providers.aws_region":            stringKey(func(c *Config) *string { return &c.Providers.AWSRegion }),

	"elasticsearch.host":     stringKey(func(c *Config) *string { return &c.Elasticsearch.Host }),
	"elasticsearch.port":     stringKey(func(c *Config) *string { return &c.Elasticsearch.Port }),
	"elasticsearch.username": stringKey(func(c *Config) *string { return &c.Elasticsearch.Username }),
	"elasticsearch.password": stringKey(func(c *Config) *string { return &c.Elasticsearch.Password }),
	"elasticsearch.index":    stringKey(func(c *Config) *string { return &c.Elasticsearch.Index }),
	"elasticsearch.timeout":  durationKey("elasticsearch.timeout", func(c *Config) *Duration { return &c.Elasticsearch.Timeout }),

	"kafka.brokers": stringKey(func(c *Config) *string { return &c.Kafka.Brokers }),
	"kafka.topic":   stringKey(func(c *Config) *string { return &c.Kafka.Topic }),

	"stdout.enabled": boolKey("stdout.enabled", func(c *Config) *bool { return &c.Stdout.Enabled }),

	"cache.redis_addr": stringKey(func(c *Config) *string { return &c.Cache.RedisAddr }),
	"cache.ttl":        durationKey("cache.ttl", func(c *Config) *Duration { return &c.Cache.TTL }),

	"pricing.overrides_path": stringKey(func(c *Config) *string { return &c.Pricing.OverridesPath }),
	"pricing.watch":          boolKey("pricing.watch", func(c *Config) *bool { return &c.Pricing.Watch }),

	"telemetry.exporter":     stringKey(func(c *Config) *string { return &c.Telemetry.Exporter }),
	"telemetry.endpoint":     stringKey(func(c *Config) *string { return &c.Telemetry.Endpoint }),
	"telemetry.service_name": stringKey(func(c *Config) *string { return &c.Telemetry.ServiceName }),

	"log.debug": boolKey("log.debug", func(c *Config) *bool { return &c.Log.Debug }),
	"log.json":  boolKey("log.json", func(c *Config) *bool { return &c.Log.JSON }),
	"log.file":  stringKey(func(c *Config) *string { return &c.Log.File }),
}

// orderedKeys lists configKeys in TOML section order.
var orderedKeys = []string{
	"server.listen",
	"server.collection_timeout",
	"server.upstream_timeout",
	"server.gateway_version",
	"server.system_prompt",
	"server.workers",
	"server.queue_size",
	"providers.openai_api_key",
	"providers.openai_organization",
	"providers.anthropic_api_key",
	"providers.groq_api_key",
	"providers.fireworks_api_key",
	"providers.together_api_key",
	"providers.aws_access_key_id",
	"providers.aws_secret_access_key",
	"providers.aws_region",
	"elasticsearch.host",
	"elasticsearch.port",
	"elasticsearch.username",
	"elasticsearch.password",
	"elasticsearch.index",
	"elasticsearch.timeout",
	"kafka.brokers",
	"kafka.topic",
	"stdout.enabled",
	"cache.redis_addr",
	"cache.ttl",
	"pricing.overrides_path",
	"pricing.watch",
	"telemetry.exporter",
	"telemetry.endpoint",
	"telemetry.service_name",
	"log.debug",
	"log.json",
	"log.file",
}

// secretKeys are masked by IsSecretKey consumers such as "config list".
var secretKeys = map[string]bool{
	"providers.openai_api_key":        true,
	"providers.anthropic_api_key":     true,
	"providers.groq_api_key":          true,
	"providers.fireworks_api_key":     true,
	"providers.together_api_key":      true,
	"providers.aws_secret_access_key": true,
	"elasticsearch.password":          true,
}

// IsSecretKey reports whether key holds a credential.
func IsSecretKey(key string) bool {
	return secretKeys[key]
}
