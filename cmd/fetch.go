package cmd

import (
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kayz/perplex/internal/fetch"
	"github.com/kayz/perplex/internal/promptbuild"
)

var (
	fetchMaxLength int
	fetchMode      string
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <url>...",
	Short: "Fetch pages concurrently and print the extracted text",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signalContext(cmd.Context())
		defer stop()

		fetchCfg := cfg.Fetch
		if fetchMode != "" {
			fetchCfg.Mode = fetchMode
		}
		fetcher, closer := fetch.New(fetchCfg)
		defer closer.Close()

		targets := make([]fetch.Target, len(args))
		for i, u := range args {
			targets[i] = fetch.Target{Index: i + 1, URL: u}
		}

		coordinator := &fetch.Coordinator{Fetcher: fetcher, Workers: fetchCfg.Workers}
		outcomes := coordinator.FetchAll(ctx, targets)
		sort.Slice(outcomes, func(i, j int) bool { return outcomes[i].Index < outcomes[j].Index })

		maxLen := fetchMaxLength
		if maxLen <= 0 {
			maxLen = cfg.Prompt.ContentMaxLength
		}

		printer := newPrinter()
		for _, o := range outcomes {
			if !o.OK() {
				printer.Notice("%s", o.Diagnostic())
				continue
			}
			printer.Panel(o.URL, promptbuild.Summarize(o.Text, maxLen), color.FgBlue)
		}
		return nil
	},
}

func init() {
	fetchCmd.Flags().IntVar(&fetchMaxLength, "max", 0, "Truncate each page to this many characters (default: prompt.content_max_length)")
	fetchCmd.Flags().StringVar(&fetchMode, "mode", "", "Override fetch.mode: http or browser")
	rootCmd.AddCommand(fetchCmd)
}
