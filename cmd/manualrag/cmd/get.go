package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <chunk-id>",
		Short: "Fetch a chunk by ID",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, cleanup, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			chunk, err := engine.GetChunkByID(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if chunk == nil {
				return fmt.Errorf("chunk %s not found", args[0])
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(chunk)
		},
	}
}
