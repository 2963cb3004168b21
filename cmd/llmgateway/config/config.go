// Package configcmder provides the config command for managing persistent
// gateway configuration stored in the .llmgateway/ directory.
package configcmder

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmgateway/pkg/cliui"
	"github.com/papercomputeco/llmgateway/pkg/config"
)

const configLongDesc string = `Manage persistent gateway configuration.

Configuration is stored as config.toml in the .llmgateway/ directory and
provides default values for "llmgateway serve". CLI flags and LLMGATEWAY_*
environment variables always take precedence over config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, server.collection_timeout, server.system_prompt,
  providers.openai_api_key, providers.anthropic_api_key, providers.aws_region,
  elasticsearch.host, kafka.brokers, stdout.enabled, cache.redis_addr,
  pricing.overrides_path, telemetry.exporter, log.json

Credential values are masked when displayed.

Use subcommands to get, set, or list configuration values:
  llmgateway config set <key> <value>    Set a configuration value
  llmgateway config get <key> [key...]   Get configuration values
  llmgateway config list [section]       List values grouped by section

Examples:
  llmgateway config set server.listen :9090
  llmgateway config set kafka.brokers broker-1:9092,broker-2:9092
  llmgateway config get --raw server.listen
  llmgateway config list providers`

const configShortDesc string = "Manage persistent gateway configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}

// displayValue masks credentials.
func displayValue(key, value string) string {
	if config.IsSecretKey(key) {
		return cliui.Mask(value)
	}
	return value
}

func printTarget(w io.Writer, target string) {
	if target != "" {
		fmt.Fprintf(w, "\n  %s %s\n\n",
			cliui.KeyStyle.Render("Config file:"),
			cliui.DimStyle.Render(target),
		)
	} else {
		fmt.Fprintf(w, "\n  %s\n\n", cliui.DimStyle.Render("No config file found. Using defaults."))
	}
}
