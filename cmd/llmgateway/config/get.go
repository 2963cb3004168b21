package configcmder

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmgateway/pkg/cliui"
	"github.com/papercomputeco/llmgateway/pkg/config"
)

const getLongDesc string = `Get one or more gateway configuration values.

Prints the value "llmgateway serve" would take from config.toml for each
key, falling back to the built-in default. Keys use dotted notation
matching the TOML section structure. Credentials are masked.

--raw prints only the values, one per line, for use in scripts. Unset
values print as empty lines.

Examples:
  llmgateway config get server.listen
  llmgateway config get elasticsearch.host elasticsearch.index
  llmgateway config get --raw kafka.brokers`

const getShortDesc string = "Get configuration values"

type getCommander struct {
	raw bool
}

func newGetCmd() *cobra.Command {
	cmder := &getCommander{}

	cmd := &cobra.Command{
		Use:   "get <key> [key...]",
		Short: getShortDesc,
		Long:  getLongDesc,
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			return cmder.run(cmd.OutOrStdout(), args, configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
			return config.ValidConfigKeys(), cobra.ShellCompDirectiveNoFileComp
		},
	}

	cmd.Flags().BoolVar(&cmder.raw, "raw", false, "Print bare values, one per line")

	return cmd
}

func (c *getCommander) run(w io.Writer, keys []string, configDir string) error {
	for _, key := range keys {
		if !config.IsValidConfigKey(key) {
			return fmt.Errorf("unknown config key: %q\n\nValid keys: %s",
				key, strings.Join(config.ValidConfigKeys(), ", "))
		}
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	if !c.raw {
		printTarget(w, cfger.GetTarget())
	}

	for _, key := range keys {
		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		switch {
		case c.raw:
			fmt.Fprintln(w, displayValue(key, value))
		case value == "":
			fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(key), cliui.DimStyle.Render("<not set>"))
		default:
			fmt.Fprintf(w, "  %s  %s\n", cliui.KeyStyle.Render(key), cliui.ValueStyle.Render(displayValue(key, value)))
		}
	}

	if !c.raw {
		fmt.Fprintln(w)
	}
	return nil
}
