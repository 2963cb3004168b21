package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/papercomputeco/llmgateway/pkg/dotdir"
)

// EnvPrefix prefixes every environment variable derived from a config key.
const EnvPrefix = "LLMGATEWAY"

// envFiles are loaded, in order, from the working directory and then the
// config directory before the environment is bound.
var envFiles = []string{".dev.vars", ".env"}

// conventionalEnv maps config keys to the unprefixed variable names
// providers and deployments already use. The prefixed name still wins.
var conventionalEnv = map[string][]string{
	"providers.openai_api_key":        {"OPENAI_API_KEY"},
	"providers.openai_organization":   {"OPENAI_ORGANIZATION"},
	"providers.anthropic_api_key":     {"ANTHROPIC_API_KEY"},
	"providers.groq_api_key":          {"GROQ_API_KEY"},
	"providers.fireworks_api_key":     {"FIREWORKS_API_KEY"},
	"providers.together_api_key":      {"TOGETHER_API_KEY"},
	"providers.aws_access_key_id":     {"AWS_ACCESS_KEY_ID"},
	"providers.aws_secret_access_key": {"AWS_SECRET_ACCESS_KEY"},
	"providers.aws_region":            {"AWS_REGION", "AWS_DEFAULT_REGION"},
	"elasticsearch.host":              {"ELASTICSEARCH_HOST"},
	"elasticsearch.port":              {"ELASTICSEARCH_PORT"},
	"elasticsearch.username":          {"ELASTICSEARCH_USERNAME"},
	"elasticsearch.password":          {"ELASTICSEARCH_PASSWORD"},
	"elasticsearch.index":             {"ELASTICSEARCH_INDEX"},
	"kafka.brokers":                   {"KAFKA_BROKERS"},
	"cache.redis_addr":                {"REDIS_ADDR"},
	"telemetry.endpoint":              {"OTEL_EXPORTER_OTLP_ENDPOINT"},
}

// InitViper creates and returns a configured *viper.Viper.
// It loads .dev.vars/.env files, sets defaults from NewDefaultConfig(),
// reads the config.toml file (if found via dotdir resolution), and binds
// environment variables with the LLMGATEWAY_ prefix plus the conventional
// provider names.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (LLMGATEWAY_SERVER_LISTEN, OPENAI_API_KEY, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Local env files never override variables already exported.
	if err := LoadEnvFiles(envFileDirs(target)...); err != nil {
		return nil, err
	}

	// 4. Environment variables: LLMGATEWAY_SERVER_LISTEN, LLMGATEWAY_KAFKA_TOPIC, etc.
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, names := range conventionalEnv {
		args := append([]string{key, envName(key)}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("binding env for %s: %w", key, err)
		}
	}

	return v, nil
}

// LoadEnvFiles loads every .dev.vars and .env file found in dirs. Variables
// already present in the process environment are kept.
func LoadEnvFiles(dirs ...string) error {
	var found []string
	for _, dir := range dirs {
		for _, name := range envFiles {
			path := filepath.Join(dir, name)
			if info, err := os.Stat(path); err == nil && !info.IsDir() {
				found = append(found, path)
			}
		}
	}
	if len(found) == 0 {
		return nil
	}

	if err := godotenv.Load(found...); err != nil {
		return fmt.Errorf("loading env files: %w", err)
	}
	return nil
}

// FromViper materialises a Config from v, honouring the full precedence
// chain. Typed keys left empty keep their defaults.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := NewDefaultConfig()

	for _, key := range ValidConfigKeys() {
		info := configKeys[key]
		value := v.GetString(key)
		if value == "" && !info.plain {
			continue
		}
		if err := info.set(cfg, value); err != nil {
			return nil, err
		}
	}

	applyDefaults(cfg)
	return cfg, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)
	for key, info := range configKeys {
		v.SetDefault(key, info.get(d))
	}
}

func envName(key string) string {
	return EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
}

func envFileDirs(target string) []string {
	var dirs []string
	if cwd, err := os.Getwd(); err == nil {
		dirs = append(dirs, cwd)
	}
	if target != "" && !slices.Contains(dirs, target) {
		dirs = append(dirs, target)
	}
	return dirs
}
