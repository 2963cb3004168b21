package proxy

import "time"

// Config is the gateway server configuration.
type Config struct {
	// ListenAddr is the address to listen on (e.g., ":8080")
	ListenAddr string

	// CollectionTimeout bounds how long a request's metrics may keep
	// collecting after the handler returns before they are exported anyway.
	CollectionTimeout time.Duration

	// UpstreamTimeout bounds connecting to a provider and waiting for its
	// response headers. Streamed bodies may run longer.
	// Only used when no Registry is supplied.
	UpstreamTimeout time.Duration

	// CacheTTL is how long cached completions live. Only used with a Cache.
	CacheTTL time.Duration

	// Workers and QueueSize size the metrics finalisation pool.
	Workers   uint
	QueueSize uint

	// Credentials are used when a request carries none of its own.
	Credentials Credentials
}

// Credentials are the configured fallback provider credentials.
type Credentials struct {
	OpenAIAPIKey       string
	OpenAIOrganization string
	AnthropicAPIKey    string
	GroqAPIKey         string
	FireworksAPIKey    string
	TogetherAPIKey     string

	AWSAccessKeyID     string
	AWSSecretAccessKey string
	AWSRegion          string
}

const (
	defaultCollectionTimeout = 5 * time.Second
	defaultCacheTTL          = 10 * time.Minute
	defaultAWSRegion         = "us-east-1"
)
