package commands

import (
	"os"

	"votewatch/internal/browser"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/history"
	"votewatch/internal/report"
	"votewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	fetchFormat    string
	fetchNoHistory bool
)

func init() {
	fetchCmd.Flags().StringVarP(&fetchFormat, "format", "f", string(report.FormatTable), "Output format: table, markdown, json or yaml.")
	fetchCmd.Flags().BoolVar(&fetchNoHistory, "no-history", false, "Do not record this run in the history database.")
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [--format <table|markdown|json|yaml>] [--no-history]",
	Short: "Runs one acquisition and prints the result.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := mustLoadConfig()
		format, err := report.ParseFormat(fetchFormat)
		if err != nil {
			serviceutil.Fatal("invalid --format", err)
		}

		timeAPI, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}
		tel := telemetry.SlogAPI{}

		var store *history.Store
		if !fetchNoHistory {
			var closeStore func()
			store, closeStore, err = openHistory(ctx, cfg, timeAPI)
			if err != nil {
				serviceutil.Fatal("failed to open history", err)
			}
			defer closeStore()
		}

		scraper, err := newScraper(cfg, browser.ChromeLauncher(cfg.ChromeOptions(), tel), store, timeAPI, tel)
		if err != nil {
			serviceutil.Fatal("failed to create scraper", err)
		}
		result, err := scraper.Fetch(ctx)
		if err != nil {
			serviceutil.Fatal("acquisition failed", err)
		}

		err = report.Write(os.Stdout, format, result, timeAPI.Now())
		if err != nil {
			serviceutil.Fatal("failed to write result", err)
		}
	},
}
