package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docstack/manualrag/internal/search"
	"github.com/docstack/manualrag/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	queryType   string
	module      string
	version     string
	contentType string
	lang        string
	format      string // "text", "json"
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the indexed manuals",
		Long: `Search the indexed manual chunks with hybrid retrieval.

The query is classified (error, parameter, procedure, general) to adapt
channel fan-out and lexical field boosts; pass --query-type to override.

Examples:
  manualrag search "come fare una nota di credito"
  manualrag search "errore ERR-205" --limit 5
  manualrag search "aliquota iva" --module fatturazione --format json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (default: config k_final)")
	cmd.Flags().StringVarP(&opts.queryType, "query-type", "t", "", "Force query type: ERROR, PARAMETER, PROCEDURE, GENERAL")
	cmd.Flags().StringVar(&opts.module, "module", "", "Filter by manual module")
	cmd.Flags().StringVar(&opts.version, "manual-version", "", "Filter by manual version")
	cmd.Flags().StringVar(&opts.contentType, "content-type", "", "Filter by content type (procedure, parameter, concept, faq, error, table, figure)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Filter by language")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	engine, cleanup, err := openEngine(cfg)
	if err != nil {
		return err
	}
	defer cleanup()

	searchOpts := search.Options{
		TopK:    opts.limit,
		Filters: buildFilters(opts),
	}
	if opts.queryType != "" {
		qt, ok := search.ParseQueryType(opts.queryType)
		if !ok {
			return fmt.Errorf("unknown query type %q (valid: ERROR, PARAMETER, PROCEDURE, GENERAL)", opts.queryType)
		}
		searchOpts.QueryType = qt
	}

	results, err := engine.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}

	if opts.format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	}
	return printResults(cmd, query, results)
}

func buildFilters(opts searchOptions) store.Filters {
	filters := store.Filters{}
	if opts.module != "" {
		filters[store.FilterModule] = opts.module
	}
	if opts.version != "" {
		filters[store.FilterVersion] = opts.version
	}
	if opts.contentType != "" {
		filters[store.FilterContentType] = opts.contentType
	}
	if opts.lang != "" {
		filters[store.FilterLang] = opts.lang
	}
	if len(filters) == 0 {
		return nil
	}
	return filters
}

func printResults(cmd *cobra.Command, query string, results []search.Result) error {
	out := cmd.OutOrStdout()
	if len(results) == 0 {
		fmt.Fprintf(out, "No results for %q\n", query)
		return nil
	}

	for i, r := range results {
		c := r.Chunk
		fmt.Fprintf(out, "%d. %s  [%s]\n", i+1, c.Title, r.Explanation)
		if len(c.Breadcrumbs) > 0 {
			fmt.Fprintf(out, "   %s\n", strings.Join(c.Breadcrumbs, " > "))
		}
		fmt.Fprintf(out, "   %s\n", snippet(c.Content, 200))
		if c.SourceURL != "" {
			fmt.Fprintf(out, "   %s\n", c.SourceURL)
		}
		fmt.Fprintln(out)
	}
	return nil
}

// snippet returns the first maxRunes of text on a single line.
func snippet(text string, maxRunes int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes]) + "..."
}
