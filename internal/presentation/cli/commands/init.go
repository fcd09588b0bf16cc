package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jbctechsolutions/spendgate/internal/infrastructure/config"
)

// NewInitCmd creates the init command that writes a starter config file.
func NewInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Create a default configuration file",
		Long: `Write a default configuration file to ~/.spendgate/config.yaml.

Edit the file afterwards to set your OpenAI API key and adjust the daily
spending cap, cache backend, and price table.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInit(force)
		},
	}

	cmd.Flags().BoolVarP(&force, "force", "f", false, "overwrite an existing config file")

	return cmd
}

func runInit(force bool) error {
	formatter := GetFormatter()

	loader, err := config.NewLoader("")
	if err != nil {
		return fmt.Errorf("failed to create config loader: %w", err)
	}

	path := loader.DefaultConfigPath()
	if _, err := os.Stat(path); err == nil && !force {
		return fmt.Errorf("config file already exists at %s (use --force to overwrite)", path)
	}

	cfg := config.NewDefaultConfig()
	if err := loader.Save(cfg, path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	formatter.Success("Created %s", path)
	formatter.Info("Set providers.openai.api_key and providers.openai.enabled to get started")
	return nil
}
