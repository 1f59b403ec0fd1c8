package client

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"votewatch/internal/components/telemetry"
	"votewatch/internal/history"
	"votewatch/internal/httpapi"
	"votewatch/internal/refresh"
	"votewatch/internal/tally"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var captured = time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

type source struct {
	result *tally.Result
}

func (s source) Get(context.Context) (*tally.Result, bool) {
	return s.result, s.result != nil
}

func (s source) Status() refresh.Status {
	return refresh.Status{Populated: s.result != nil, UpdatedAt: captured, Refreshes: 2}
}

type store struct{}

func (store) Runs(_ context.Context, limit int) ([]history.Run, error) {
	runs := []history.Run{
		{ID: "b", Time: captured, TotalCandidates: 2, TotalVotes: 30},
		{ID: "a", Time: captured.Add(-5 * time.Minute), TotalCandidates: 2, TotalVotes: 20},
	}
	return runs[:min(limit, len(runs))], nil
}

func (store) Series(_ context.Context, name string) ([]history.Point, error) {
	if name != "李雷" {
		return nil, nil
	}
	return []history.Point{{Time: captured, Number: 2, Votes: 20, Rank: 1}}, nil
}

func (store) Candidates(_ context.Context, runID string) ([]tally.Candidate, error) {
	if runID != "b" {
		return nil, nil
	}
	return []tally.Candidate{{Number: 2, Name: "李雷", Votes: 20, VoteStatus: "投票", Rank: 1}}, nil
}

func serve(t *testing.T, result *tally.Result, token string) string {
	t.Helper()
	src := source{result: result}
	server, err := httpapi.NewServer(src, httpapi.Options{
		Status:      src,
		History:     store{},
		AccessToken: token,
	}, telemetry.NewRecorder())
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts.URL
}

func sample(t *testing.T) *tally.Result {
	t.Helper()
	result, ok := tally.Build([]tally.Candidate{
		{Number: 1, Name: "陈依皓", Votes: 10, VoteStatus: "已投票"},
		{Number: 2, Name: "李雷", Votes: 20, VoteStatus: "投票"},
	}, captured)
	require.True(t, ok)
	return result
}

func TestVoteData(t *testing.T) {
	result := sample(t)
	c := New(Options{BaseURL: serve(t, result, "")}, telemetry.NewRecorder())

	got, err := c.VoteData(context.Background())
	require.NoError(t, err)
	if diff := cmp.Diff(result, got); diff != "" {
		t.Fatalf("vote data mismatch (-want +got):\n%s", diff)
	}
}

func TestVoteDataUnavailable(t *testing.T) {
	c := New(Options{BaseURL: serve(t, nil, "")}, telemetry.NewRecorder())

	_, err := c.VoteData(context.Background())
	require.ErrorIs(t, err, ErrUnavailable)
	require.ErrorContains(t, err, httpapi.UnavailableMessage)
}

func TestAuthorizedRoutes(t *testing.T) {
	url := serve(t, sample(t), "s3cret")
	ctx := context.Background()

	anonymous := New(Options{BaseURL: url}, telemetry.NewRecorder())
	_, err := anonymous.Status(ctx)
	require.ErrorContains(t, err, "unauthorized")

	c := New(Options{BaseURL: url, AccessToken: "s3cret"}, telemetry.NewRecorder())

	status, err := c.Status(ctx)
	require.NoError(t, err)
	require.True(t, status.Populated)
	require.Equal(t, 2, status.Refreshes)

	runs, err := c.History(ctx, 1)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	require.Equal(t, "b", runs[0].ID)

	points, err := c.Series(ctx, "李雷")
	require.NoError(t, err)
	require.Len(t, points, 1)
	require.Equal(t, 20, points[0].Votes)

	candidates, err := c.Run(ctx, "b")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	require.Equal(t, "李雷", candidates[0].Name)

	_, err = c.Run(ctx, "missing")
	require.ErrorContains(t, err, "no such run")

	match, err := c.Candidate(ctx, "2号")
	require.NoError(t, err)
	require.Equal(t, "李雷", match.Candidate.Name)
	require.Equal(t, 1, match.Candidate.Rank)

	_, err = c.Candidate(ctx, "张伟")
	require.ErrorContains(t, err, "404")
}
