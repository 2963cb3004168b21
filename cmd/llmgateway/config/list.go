package configcmder

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmgateway/pkg/cliui"
	"github.com/papercomputeco/llmgateway/pkg/config"
)

const listLongDesc string = `List gateway configuration values.

Prints every key grouped by TOML section, in the layout of config.toml,
with the value the gateway would use: keys missing from the file show
their defaults. Credentials are masked. Pass a section name to list only
that section.

Sections: server, providers, elasticsearch, kafka, stdout, cache, pricing,
telemetry, log

Examples:
  llmgateway config list
  llmgateway config list providers
  llmgateway config list elasticsearch`

const listShortDesc string = "List configuration values by section"

func newListCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list [section]",
		Short: listShortDesc,
		Long:  listLongDesc,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configDir, _ := cmd.Flags().GetString("config-dir")
			section := ""
			if len(args) == 1 {
				section = args[0]
			}
			return runList(cmd.OutOrStdout(), section, configDir)
		},
		ValidArgsFunction: func(_ *cobra.Command, args []string, _ string) ([]string, cobra.ShellCompDirective) {
			if len(args) == 0 {
				return sections(), cobra.ShellCompDirectiveNoFileComp
			}
			return nil, cobra.ShellCompDirectiveNoFileComp
		},
	}

	return cmd
}

func runList(w io.Writer, section, configDir string) error {
	if section != "" && !slices.Contains(sections(), section) {
		return fmt.Errorf("unknown config section: %q\n\nValid sections: %s",
			section, strings.Join(sections(), ", "))
	}

	cfger, err := config.NewConfiger(configDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	printTarget(w, cfger.GetTarget())

	current := ""
	for _, key := range config.ValidConfigKeys() {
		sec, name, _ := strings.Cut(key, ".")
		if section != "" && sec != section {
			continue
		}

		value, err := cfger.GetConfigValue(key)
		if err != nil {
			return err
		}

		if sec != current {
			if current != "" {
				fmt.Fprintln(w)
			}
			fmt.Fprintf(w, "  %s\n", cliui.KeyStyle.Render("["+sec+"]"))
			current = sec
		}

		if value == "" {
			fmt.Fprintf(w, "  %s = %s\n", name, cliui.DimStyle.Render("<not set>"))
		} else {
			fmt.Fprintf(w, "  %s = %q\n", name, displayValue(key, value))
		}
	}
	fmt.Fprintln(w)

	return nil
}

// sections returns the TOML sections in config.toml order.
func sections() []string {
	var out []string
	for _, key := range config.ValidConfigKeys() {
		sec, _, _ := strings.Cut(key, ".")
		if !slices.Contains(out, sec) {
			out = append(out, sec)
		}
	}
	return out
}
