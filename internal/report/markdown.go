// Package report renders vote tallies for people: markdown documents and
// terminal tables.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"votewatch/internal/tally"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"
)

// Share returns votes as a percentage of total, 0 when total is 0.
func Share(votes, total int) float64 {
	if total == 0 {
		return 0
	}
	return float64(votes) * 100 / float64(total)
}

func label(c tally.Candidate) string {
	if c.Number == 0 {
		return c.Name
	}
	return fmt.Sprintf("%d号 %s", c.Number, c.Name)
}

// WriteMarkdown writes result as a markdown document, updatedAt is when
// the result was acquired.
func WriteMarkdown(w io.Writer, result *tally.Result, updatedAt time.Time) error {
	md := markdown.NewMarkdown(w)
	analysis := result.Analysis

	md.H1("Vote Tally")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Captured", analysis.Timestamp},
			{"Cached Since", updatedAt.Format(tally.TimestampLayout)},
			{"Candidates", strconv.Itoa(analysis.TotalCandidates)},
			{"Total Votes", strconv.Itoa(analysis.TotalVotes)},
			{"Average Votes", strconv.FormatFloat(analysis.AverageVotes, 'f', 2, 64)},
			{"Highest", strconv.Itoa(analysis.MaxVotes)},
			{"Lowest", strconv.Itoa(analysis.MinVotes)},
		},
	})
	md.PlainText("")

	writeTopChart(md, result)
	writeVotedNote(md, result)

	md.H2("Candidates")
	md.PlainText("")
	rows := make([][]string, len(result.Candidates))
	for i, c := range result.Candidates {
		rows[i] = []string{
			strconv.Itoa(c.Rank),
			label(c),
			strconv.Itoa(c.Votes),
			fmt.Sprintf("%.1f%%", Share(c.Votes, analysis.TotalVotes)),
			c.VoteStatus,
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Rank", "Candidate", "Votes", "Share", "Status"},
		Rows:   rows,
		Alignment: []markdown.TableAlignment{
			markdown.AlignRight,
			markdown.AlignLeft,
			markdown.AlignRight,
			markdown.AlignRight,
			markdown.AlignLeft,
		},
	})

	return md.Build()
}

func writeTopChart(md *markdown.Markdown, result *tally.Result) {
	if result.Analysis.TotalVotes == 0 {
		return
	}

	md.H2("Top Candidates")
	md.PlainText("")

	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Vote Share"),
		piechart.WithShowData(true),
	)
	rest := result.Analysis.TotalVotes
	for _, c := range result.Analysis.TopCandidates {
		chart.LabelAndIntValue(label(c), uint64(c.Votes))
		rest -= c.Votes
	}
	if rest > 0 {
		chart.LabelAndIntValue("Others", uint64(rest))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

func writeVotedNote(md *markdown.Markdown, result *tally.Result) {
	var voted []string
	for _, c := range result.Candidates {
		if c.Voted() {
			voted = append(voted, label(c))
		}
	}
	if len(voted) == 0 {
		md.Tip("The account has not voted for any candidate yet.")
		md.PlainText("")
		return
	}
	md.Notef("The account has voted for %d candidate(s):", len(voted))
	md.PlainText("")
	md.BulletList(voted...)
	md.PlainText("")
}
