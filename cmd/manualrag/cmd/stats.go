package cmd

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func newStatsCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show index and query statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			engine, cleanup, err := openEngine(cfg)
			if err != nil {
				return err
			}
			defer cleanup()

			stats, err := engine.Stats(cmd.Context())
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(stats)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Dense channel:   %d chunks (%s, %d dims)\n",
				stats.Dense.ChunkCount, stats.Dense.Backend, stats.Dense.Dimensions)
			fmt.Fprintf(out, "Lexical channel: %d chunks (%s)\n",
				stats.Lexical.ChunkCount, stats.Lexical.Backend)
			fmt.Fprintf(out, "Queries served:  %d (%d zero-result, %d degraded)\n",
				stats.Queries.TotalQueries, stats.Queries.ZeroResults, stats.Queries.Degraded)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output statistics as JSON")

	return cmd
}
