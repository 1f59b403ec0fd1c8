package commands

import (
	"log/slog"
	"os"

	"votewatch/internal/browser"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/report"
	"votewatch/internal/scrapers/onewechat"
	"votewatch/internal/tally"
	"votewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

var (
	replayFormat string
	replayURL    string
)

func init() {
	replayCmd.Flags().StringVarP(&replayFormat, "format", "f", string(report.FormatTable), "Output format: table, markdown, json or yaml.")
	replayCmd.Flags().StringVar(&replayURL, "url", onewechat.DefaultTargetURL, "The url the snapshot was taken from, relative image links resolve against it.")
	rootCmd.AddCommand(replayCmd)
}

var replayCmd = &cobra.Command{
	Use:   "replay <snapshot.html>",
	Short: "Extracts candidates from a saved statistics page, such as a debug snapshot.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		format, err := report.ParseFormat(replayFormat)
		if err != nil {
			serviceutil.Fatal("invalid --format", err)
		}

		content, err := os.ReadFile(args[0])
		if err != nil {
			serviceutil.Fatal("failed to read snapshot", err)
		}
		driver, err := browser.NewStatic(map[string]string{replayURL: string(content)})
		if err != nil {
			serviceutil.Fatal("failed to parse snapshot", err)
		}
		defer driver.Close()
		err = driver.Navigate(ctx, replayURL)
		if err != nil {
			serviceutil.Fatal("failed to open snapshot", err)
		}

		timeAPI := chrono.StandardTime{}
		batch := onewechat.NewExtractor(driver, onewechat.Timing{}, telemetry.SlogAPI{}).Extract(ctx)
		result, ok := tally.Build(batch.Candidates, timeAPI.Now())
		if !ok {
			serviceutil.Fatal("failed to replay snapshot", onewechat.ErrNoCandidates)
		}
		if batch.Skipped > 0 {
			slog.Warn("some entries could not be parsed", "skipped", batch.Skipped)
		}

		err = report.Write(os.Stdout, format, result, timeAPI.Now())
		if err != nil {
			serviceutil.Fatal("failed to write result", err)
		}
	},
}
