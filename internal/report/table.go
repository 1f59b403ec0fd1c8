package report

import (
	"fmt"
	"io"

	"votewatch/internal/history"
	"votewatch/internal/tally"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
)

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	return t
}

// WriteTable renders the ranked candidates of result.
func WriteTable(w io.Writer, result *tally.Result) {
	t := newTable(w)
	t.SetTitle(fmt.Sprintf("captured %s", result.Analysis.Timestamp))
	t.AppendHeader(table.Row{"Rank", "No.", "Name", "Votes", "Share", "Status"})
	for _, c := range result.Candidates {
		t.AppendRow(table.Row{
			c.Rank,
			c.Number,
			c.Name,
			c.Votes,
			fmt.Sprintf("%.1f%%", Share(c.Votes, result.Analysis.TotalVotes)),
			c.VoteStatus,
		})
	}
	t.AppendFooter(table.Row{"", "", "Total", result.Analysis.TotalVotes, "", ""})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.Render()
}

// WriteRuns renders recorded runs, newest first.
func WriteRuns(w io.Writer, runs []history.Run) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Run", "Time", "Candidates", "Total Votes", "Average", "Max", "Min"})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.ID,
			r.Time.Format(tally.TimestampLayout),
			r.TotalCandidates,
			r.TotalVotes,
			fmt.Sprintf("%.2f", r.AverageVotes),
			r.MaxVotes,
			r.MinVotes,
		})
	}
	t.Render()
}

// WriteSeries renders the recorded tallies of a single candidate.
func WriteSeries(w io.Writer, name string, points []history.Point) {
	t := newTable(w)
	t.SetTitle(name)
	t.AppendHeader(table.Row{"Time", "Votes", "Change", "Rank"})
	for i, p := range points {
		change := ""
		if i > 0 {
			change = fmt.Sprintf("%+d", p.Votes-points[i-1].Votes)
		}
		t.AppendRow(table.Row{p.Time.Format(tally.TimestampLayout), p.Votes, change, p.Rank})
	}
	t.Render()
}

// WriteRun renders the candidates recorded by one run.
func WriteRun(w io.Writer, runID string, candidates []tally.Candidate) {
	total := 0
	for _, c := range candidates {
		total += c.Votes
	}
	t := newTable(w)
	t.SetTitle(runID)
	t.AppendHeader(table.Row{"Rank", "No.", "Name", "Votes", "Share", "Status"})
	for _, c := range candidates {
		t.AppendRow(table.Row{
			c.Rank,
			c.Number,
			c.Name,
			c.Votes,
			fmt.Sprintf("%.1f%%", Share(c.Votes, total)),
			c.VoteStatus,
		})
	}
	t.Render()
}
