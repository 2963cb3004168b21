// Package initcmder provides the init command for initializing a local
// .llmgateway directory in the current working directory.
package initcmder

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/llmgateway/pkg/cliui"
	"github.com/papercomputeco/llmgateway/pkg/config"
	"github.com/papercomputeco/llmgateway/pkg/dotdir"
)

const (
	configFile = "config.toml"

	fetchTimeout = 10 * time.Second
	maxRemoteLen = 1 << 20
)

const initLongDesc string = `Initialize a new .llmgateway/ directory in the current working directory.

Creates a local .llmgateway/ directory that takes precedence over the
default ~/.llmgateway/ directory, and writes a config.toml holding the
default configuration when none exists yet.

--preset seeds the config from a provider preset or a remote config.toml:
  openai, anthropic, groq, fireworks, together
  https://example.com/llmgateway.toml

With a provider preset, --api-key stores that provider's fallback key.
A preset always overwrites an existing config.toml.

Examples:
  llmgateway init
  llmgateway init --preset anthropic --api-key sk-ant-...
  llmgateway init --preset https://example.com/llmgateway.toml`

const initShortDesc string = "Initialize a local .llmgateway/ directory"

type initCommander struct {
	preset string
	apiKey string
	out    io.Writer
}

func NewInitCmd() *cobra.Command {
	cmder := &initCommander{}

	cmd := &cobra.Command{
		Use:   "init",
		Short: initShortDesc,
		Long:  initLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cmder.out = cmd.OutOrStdout()
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&cmder.preset, "preset", "", "Provider preset name or URL of a config.toml")
	cmd.Flags().StringVar(&cmder.apiKey, "api-key", "", "Fallback API key stored with a provider preset")

	return cmd
}

func (c *initCommander) run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("getting current directory: %w", err)
	}

	dir := filepath.Join(cwd, dotdir.DirName)

	var cfg *config.Config
	if c.preset != "" {
		cfg, err = c.resolvePreset(ctx)
		if err != nil {
			return err
		}
	}

	info, err := os.Stat(dir)
	existed := err == nil && info.IsDir()

	cfger, err := config.NewWritableConfiger(dir)
	if err != nil {
		return fmt.Errorf("creating .llmgateway directory: %w", err)
	}

	if cfg == nil {
		if _, err := os.Stat(filepath.Join(dir, configFile)); err == nil {
			fmt.Fprintf(c.out, "Already initialized: %s\n", dir)
			return nil
		}
		cfg = config.NewDefaultConfig()
	}

	if err := cfger.SaveConfig(cfg); err != nil {
		return err
	}

	if existed {
		fmt.Fprintf(c.out, "  %s Updated %s\n", cliui.SuccessMark, cfger.GetTarget())
	} else {
		fmt.Fprintf(c.out, "  %s Initialized .llmgateway directory: %s\n", cliui.SuccessMark, dir)
	}
	return nil
}

func (c *initCommander) resolvePreset(ctx context.Context) (*config.Config, error) {
	if strings.HasPrefix(c.preset, "http://") || strings.HasPrefix(c.preset, "https://") {
		return fetchRemoteConfig(ctx, c.preset)
	}
	return config.PresetConfig(c.preset, c.apiKey)
}

// fetchRemoteConfig downloads and parses a config.toml.
func fetchRemoteConfig(ctx context.Context, url string) (*config.Config, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching remote config: HTTP %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteLen))
	if err != nil {
		return nil, fmt.Errorf("fetching remote config: %w", err)
	}
	if len(data) == 0 {
		return nil, errors.New("fetching remote config: empty body")
	}

	cfg, err := config.ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}
