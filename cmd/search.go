package cmd

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kayz/perplex/internal/search"
)

var (
	searchLimit  int
	searchEngine string
	searchJSON   bool
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Run a web search and print the validated results",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		query := strings.Join(args, " ")
		limit := searchLimit
		if limit <= 0 {
			limit = cfg.Search.ResultCount
		}

		manager, err := search.NewManager(cfg.Search, search.NewRegistry())
		if err != nil {
			return err
		}

		var searcher search.Searcher = manager
		if searchEngine != "" {
			searcher = engineSearcher{manager: manager, engine: searchEngine}
		}

		printer := newPrinter()
		results := search.NewAdapter(searcher, printer.Notice).Search(ctx, query, limit)

		if searchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(results)
		}
		if len(results) == 0 {
			printer.Notice("🚫 No search results found.")
			return nil
		}
		printer.Results(results)
		for i, r := range results {
			printer.Print("[%d] %s\n    %s", i+1, r.URL, r.Description)
		}
		return nil
	},
}

// engineSearcher pins a search to one named engine.
type engineSearcher struct {
	manager *search.Manager
	engine  string
}

func (e engineSearcher) Search(ctx context.Context, query string, limit int) (*search.Response, error) {
	return e.manager.SearchWithEngine(ctx, e.engine, query, limit)
}

func init() {
	searchCmd.Flags().IntVarP(&searchLimit, "limit", "n", 0, "Maximum results (default: search.result_count)")
	searchCmd.Flags().StringVar(&searchEngine, "engine", "", "Use only this engine")
	searchCmd.Flags().BoolVar(&searchJSON, "json", false, "Print results as JSON")
	rootCmd.AddCommand(searchCmd)
}
