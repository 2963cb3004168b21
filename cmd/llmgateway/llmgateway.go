// Package llmgatewaycmder is the root llmgateway command.
package llmgatewaycmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/llmgateway/cmd/llmgateway/config"
	initcmder "github.com/papercomputeco/llmgateway/cmd/llmgateway/init"
	servecmder "github.com/papercomputeco/llmgateway/cmd/llmgateway/serve"
	versioncmder "github.com/papercomputeco/llmgateway/cmd/version"
)

const llmgatewayLongDesc string = `llmgateway is an OpenAI compatible gateway for chat completions.

Clients send OpenAI shaped requests and pick a provider with the x-provider
header. Every request is measured and exported to the configured sinks.

Run the gateway using:
  llmgateway serve

Manage configuration using:
  llmgateway init --preset openai
  llmgateway config list`

const llmgatewayShortDesc string = "llmgateway - LLM chat completion gateway"

func NewLLMGatewayCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "llmgateway",
		Short:        llmgatewayShortDesc,
		Long:         llmgatewayLongDesc,
		SilenceUsage: true,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .llmgateway/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(initcmder.NewInitCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
