package commands

import (
	"errors"
	"fmt"
	"os"
	"time"

	"votewatch/internal/client"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/config"
	"votewatch/internal/refresh"
	"votewatch/internal/report"
	"votewatch/internal/tally"
	"votewatch/lib/serviceutil"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	serverURL   string
	accessToken string
	statusTable bool
)

func init() {
	for _, cmd := range []*cobra.Command{statusCmd, lookupCmd, historyCmd} {
		cmd.Flags().StringVar(&serverURL, "server", "", "The votewatch server to query, defaults to localhost on the configured port.")
		cmd.Flags().StringVar(&accessToken, "token", "", "The server's access token, defaults to the configured one.")
	}
	statusCmd.Flags().BoolVar(&statusTable, "table", false, "Also print the current tally.")
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(lookupCmd)
}

func newClient(cfg config.Config) *client.Client {
	base := serverURL
	if base == "" {
		base = fmt.Sprintf("http://localhost:%d", cfg.Port)
	}
	token := accessToken
	if token == "" {
		token = cfg.AccessToken
	}
	return client.New(client.Options{BaseURL: base, AccessToken: token}, telemetry.SlogAPI{})
}

// freshness describes how old the cached tally is relative to staleness.
func freshness(status refresh.Status, now time.Time, staleness time.Duration) string {
	if !status.Populated {
		return color.RedString("empty")
	}
	age := now.Sub(status.UpdatedAt).Truncate(time.Second)
	if age > staleness {
		return color.YellowString("stale (%s old)", age)
	}
	return color.GreenString("fresh (%s old)", age)
}

func printStatus(status refresh.Status, result *tally.Result, staleness time.Duration) {
	fmt.Println("cache:     ", freshness(status, time.Now(), staleness))
	if !status.UpdatedAt.IsZero() {
		fmt.Println("updated at:", status.UpdatedAt.Local().Format(tally.TimestampLayout))
	}
	fmt.Println("refreshes: ", status.Refreshes)
	if status.Failures > 0 {
		fmt.Println("failures:  ", color.RedString("%d", status.Failures))
	} else {
		fmt.Println("failures:  ", 0)
	}
	if status.LastError != "" {
		fmt.Println("last error:", color.RedString("%s", status.LastError))
	}
	if result != nil {
		fmt.Printf("tally:      %d candidates, %d votes\n", result.Analysis.TotalCandidates, result.Analysis.TotalVotes)
	}
}

var statusCmd = &cobra.Command{
	Use:   "status [--server <url>] [--token <token>] [--table]",
	Short: "Shows the refresh status of a running votewatch server.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := mustLoadConfig()
		c := newClient(cfg)

		status, err := c.Status(ctx)
		if err != nil {
			serviceutil.Fatal("failed to query status", err)
		}

		var result *tally.Result
		if status.Populated {
			result, err = c.VoteData(ctx)
			if err != nil && !errors.Is(err, client.ErrUnavailable) {
				serviceutil.Fatal("failed to query vote data", err)
			}
		}
		printStatus(status, result, cfg.Staleness())

		if statusTable && result != nil {
			report.WriteTable(os.Stdout, result)
		}
	},
}

var lookupCmd = &cobra.Command{
	Use:   "lookup <name or number> [--server <url>]",
	Short: "Finds the candidate closest to a name or candidate number on a running server.",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		cfg := mustLoadConfig()
		match, err := newClient(cfg).Candidate(cmd.Context(), args[0])
		if err != nil {
			serviceutil.Fatal("lookup failed", err)
		}
		c := match.Candidate
		fmt.Printf("#%d  %d号 %s  %s votes  %s\n",
			c.Rank, c.Number, c.Name,
			color.CyanString("%d", c.Votes),
			c.VoteStatus,
		)
		if match.Similarity < 1 {
			fmt.Printf("(closest match, similarity %.2f)\n", match.Similarity)
		}
	},
}
