package commands

import (
	"os"

	"votewatch/internal/components/chrono"
	"votewatch/internal/history"
	"votewatch/internal/report"
	"votewatch/internal/tally"
	"votewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	historyLimit     int
	historyCandidate string
	historyRun       string
	historyLocal     bool
)

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "How many runs to list.")
	historyCmd.Flags().StringVar(&historyCandidate, "candidate", "", "Show the vote series of one candidate instead of the runs.")
	historyCmd.Flags().StringVar(&historyRun, "run", "", "Show the candidates recorded by one run instead of the runs.")
	historyCmd.Flags().BoolVar(&historyLocal, "local", false, "Read the configured history database instead of asking the server.")
	rootCmd.AddCommand(historyCmd)
}

var historyCmd = &cobra.Command{
	Use:   "history [--limit <n>] [--candidate <name>] [--run <id>] [--local]",
	Short: "Lists recorded runs, one run's candidates or one candidate's votes over time.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := mustLoadConfig()

		var (
			runs       []history.Run
			points     []history.Point
			candidates []tally.Candidate
			err        error
		)
		if historyLocal {
			timeAPI, terr := chrono.NewStandardTime(cfg.Timezone)
			if terr != nil {
				serviceutil.Fatal("failed to load timezone", terr)
			}
			store, closeStore, serr := openHistory(ctx, cfg, timeAPI)
			if serr != nil {
				serviceutil.Fatal("failed to open history", serr)
			}
			if store == nil {
				serviceutil.Fatal("history is disabled", os.ErrNotExist)
			}
			defer closeStore()

			switch {
			case historyCandidate != "":
				points, err = store.Series(ctx, historyCandidate)
			case historyRun != "":
				candidates, err = store.Candidates(ctx, historyRun)
			default:
				runs, err = store.Runs(ctx, historyLimit)
			}
		} else {
			c := newClient(cfg)
			switch {
			case historyCandidate != "":
				points, err = c.Series(ctx, historyCandidate)
			case historyRun != "":
				candidates, err = c.Run(ctx, historyRun)
			default:
				runs, err = c.History(ctx, historyLimit)
			}
		}
		if err != nil {
			serviceutil.Fatal("failed to read history", err)
		}

		switch {
		case historyCandidate != "":
			report.WriteSeries(os.Stdout, historyCandidate, points)
		case historyRun != "":
			report.WriteRun(os.Stdout, historyRun, candidates)
		default:
			report.WriteRuns(os.Stdout, runs)
		}
	},
}
