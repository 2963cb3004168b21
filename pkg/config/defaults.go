package config

import (
	"runtime"
	"time"
)

const (
	defaultListen            = ":8080"
	defaultCollectionTimeout = 5 * time.Second
	defaultUpstreamTimeout   = 5 * time.Minute
	defaultGatewayVersion    = "1.0.0"
	defaultSystemPrompt      = "You are a helpful AI assistant."
	defaultQueueSize         = 1024

	defaultAWSRegion = "us-east-1"

	defaultElasticsearchUsername = "elastic"
	defaultElasticsearchIndex    = "metrics"
	defaultElasticsearchTimeout  = 5 * time.Second

	defaultKafkaTopic = "llm-gateway-metrics"

	defaultCacheTTL = 10 * time.Minute

	defaultTelemetryExporter = "none"
	defaultServiceName       = "llmgateway"
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Server: ServerConfig{
			Listen:            defaultListen,
			CollectionTimeout: Duration{defaultCollectionTimeout},
			UpstreamTimeout:   Duration{defaultUpstreamTimeout},
			GatewayVersion:    defaultGatewayVersion,
			SystemPrompt:      defaultSystemPrompt,
			Workers:           runtime.NumCPU(),
			QueueSize:         defaultQueueSize,
		},
		Providers: ProvidersConfig{
			AWSRegion: defaultAWSRegion,
		},
		Elasticsearch: ElasticsearchConfig{
			Username: defaultElasticsearchUsername,
			Index:    defaultElasticsearchIndex,
			Timeout:  Duration{defaultElasticsearchTimeout},
		},
		Kafka: KafkaConfig{
			Topic: defaultKafkaTopic,
		},
		Stdout: StdoutConfig{
			Enabled: true,
		},
		Cache: CacheConfig{
			TTL: Duration{defaultCacheTTL},
		},
		Telemetry: TelemetryConfig{
			Exporter:    defaultTelemetryExporter,
			ServiceName: defaultServiceName,
		},
	}
}
