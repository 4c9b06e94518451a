package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

func newDeleteCmd() *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "delete [chunk-id]",
		Short: "Delete chunks from the index",
		Long: `Delete a single chunk by ID, or every chunk of a source URL with --url.

Examples:
  manualrag delete 7f9c2a1e-4b3d-4c5e-9f1a-2b3c4d5e6f70
  manualrag delete --url https://manuali.example.it/fatturazione`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (sourceURL == "") {
				return fmt.Errorf("provide exactly one of a chunk ID or --url")
			}

			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, cleanup, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			if sourceURL != "" {
				dense, lexical, err := engine.DeleteChunksByURL(cmd.Context(), sourceURL)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d dense / %d lexical chunks for %s\n",
					dense, lexical, sourceURL)
				return nil
			}

			found, err := engine.DeleteChunk(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if !found {
				fmt.Fprintf(cmd.OutOrStdout(), "Chunk %s not found\n", args[0])
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted chunk %s\n", args[0])
			return nil
		},
	}

	cmd.Flags().StringVar(&sourceURL, "url", "", "Delete all chunks for this source URL")

	return cmd
}
