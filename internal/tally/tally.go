// Package tally holds the vote data model and the ranking/aggregation pass
// run over freshly extracted candidates.
package tally

import (
	"math"
	"slices"
	"strings"
	"time"
)

const (
	// VotedMarker is the status text fragment shown once the viewer has voted.
	VotedMarker = "已投"
	// UnknownStatus is used when an entry has no vote control.
	UnknownStatus = "未知"

	TopCount        = 5
	TimestampLayout = "2006-01-02 15:04:05"
)

type Candidate struct {
	Number     int    `json:"number" yaml:"number"`
	Name       string `json:"name" yaml:"name"`
	Votes      int    `json:"votes" yaml:"votes"`
	VoteStatus string `json:"vote_status" yaml:"vote_status"`
	ImageURL   string `json:"image_url" yaml:"image_url"`
	Rank       int    `json:"rank" yaml:"rank"`
}

// Voted reports whether the status text carries the voted marker.
func (c Candidate) Voted() bool {
	return strings.Contains(c.VoteStatus, VotedMarker)
}

type Analysis struct {
	TotalCandidates int         `json:"total_candidates" yaml:"total_candidates"`
	TotalVotes      int         `json:"total_votes" yaml:"total_votes"`
	AverageVotes    float64     `json:"average_votes" yaml:"average_votes"`
	MaxVotes        int         `json:"max_votes" yaml:"max_votes"`
	MinVotes        int         `json:"min_votes" yaml:"min_votes"`
	TopCandidates   []Candidate `json:"top_candidates" yaml:"top_candidates"`
	Timestamp       string      `json:"timestamp" yaml:"timestamp"`
}

// Result is one complete acquisition. It is never modified after Build
// returns it, a refresh produces a new Result.
type Result struct {
	Candidates []Candidate `json:"candidates" yaml:"candidates"`
	Analysis   Analysis    `json:"analysis" yaml:"analysis"`
}

// SortByVotes stable sorts records by votes, highest first, in place.
func SortByVotes(records []Candidate) {
	slices.SortStableFunc(records, func(a, b Candidate) int {
		return b.Votes - a.Votes
	})
}

// Analyze aggregates records and returns the ranked copy it built the
// analysis from. ok is false only when records is empty.
func Analyze(records []Candidate, now time.Time) (analysis Analysis, ranked []Candidate, ok bool) {
	if len(records) == 0 {
		return Analysis{}, nil, false
	}

	total := 0
	maxVotes := records[0].Votes
	minVotes := records[0].Votes
	for _, r := range records {
		total += r.Votes
		maxVotes = max(maxVotes, r.Votes)
		minVotes = min(minVotes, r.Votes)
	}

	ranked = slices.Clone(records)
	SortByVotes(ranked)
	for i := range ranked {
		ranked[i].Rank = i + 1
	}

	top := slices.Clone(ranked[:min(TopCount, len(ranked))])

	analysis = Analysis{
		TotalCandidates: len(records),
		TotalVotes:      total,
		AverageVotes:    round2(float64(total) / float64(len(records))),
		MaxVotes:        maxVotes,
		MinVotes:        minVotes,
		TopCandidates:   top,
		Timestamp:       now.Format(TimestampLayout),
	}
	return analysis, ranked, true
}

// Build runs Analyze and wraps the ranked candidates into a Result.
func Build(records []Candidate, now time.Time) (*Result, bool) {
	analysis, ranked, ok := Analyze(records, now)
	if !ok {
		return nil, false
	}
	return &Result{
		Candidates: ranked,
		Analysis:   analysis,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
