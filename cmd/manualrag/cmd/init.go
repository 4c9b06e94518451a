package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docstack/manualrag/configs"
	"github.com/docstack/manualrag/internal/config"
)

func newInitCmd() *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a starter configuration file",
		Long: `Write an annotated manualrag.yaml into the current directory.

The file documents every setting with its default; manualrag runs with
built-in defaults when no file exists, so init is optional.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := config.DefaultConfigFile
			if configPath != "" {
				path = configPath
			}

			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists (use --force to overwrite)", path)
			}

			if err := os.WriteFile(path, []byte(configs.ConfigTemplate), 0o644); err != nil {
				return fmt.Errorf("write %s: %w", path, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
			return nil
		},
	}

	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config file")

	return cmd
}
