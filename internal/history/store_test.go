package history

import (
	"context"
	"testing"
	"time"

	"votewatch/internal/components/chrono"
	"votewatch/internal/tally"
	"votewatch/lib/testutil"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T, clock chrono.TimeAPI) Store {
	t.Helper()
	store := NewStore(testutil.OpenDB(t, ""), clock)
	require.NoError(t, store.Migrate(context.Background()))
	return store
}

func result(t *testing.T, votes map[string]int) *tally.Result {
	t.Helper()
	var records []tally.Candidate
	number := 1
	for _, name := range []string{"张伟", "李雷", "韩梅梅"} {
		v, ok := votes[name]
		if !ok {
			continue
		}
		records = append(records, tally.Candidate{Number: number, Name: name, Votes: v, VoteStatus: "投票"})
		number++
	}
	r, ok := tally.Build(records, time.Now())
	require.True(t, ok)
	return r
}

func TestStore(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	start := time.Date(2026, 5, 20, 9, 0, 0, 0, time.UTC)
	clock := chrono.NewManualTime(start)
	store := newTestStore(t, clock)

	runs, err := store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Empty(t, runs)

	require.NoError(t, store.Push(ctx, "run-a", result(t, map[string]int{"张伟": 10, "李雷": 20})))
	clock.Advance(5 * time.Minute)
	require.NoError(t, store.Push(ctx, "run-b", result(t, map[string]int{"张伟": 30, "李雷": 25, "韩梅梅": 1})))

	runs, err = store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 2)
	require.Equal(t, "run-b", runs[0].ID)
	require.Equal(t, 56, runs[0].TotalVotes)
	require.Equal(t, 3, runs[0].TotalCandidates)
	require.True(t, runs[0].Time.Equal(start.Add(5*time.Minute)))

	candidates, err := store.Candidates(ctx, "run-b")
	require.NoError(t, err)
	require.Equal(t, []string{"张伟", "李雷", "韩梅梅"}, []string{candidates[0].Name, candidates[1].Name, candidates[2].Name})
	require.Equal(t, 1, candidates[0].Rank)

	series, err := store.Series(ctx, "张伟")
	require.NoError(t, err)
	expected := []Point{
		{Time: time.Unix(start.Unix(), 0), Number: 1, Votes: 10, Rank: 2},
		{Time: time.Unix(start.Add(5*time.Minute).Unix(), 0), Number: 1, Votes: 30, Rank: 1},
	}
	if diff := cmp.Diff(expected, series); diff != "" {
		t.Fatalf("series mismatch (-want +got):\n%s", diff)
	}

	err = store.Push(ctx, "run-b", result(t, map[string]int{"张伟": 1}))
	require.Error(t, err, "run ids are unique")

	deleted, err := store.Prune(ctx, start.Add(time.Minute))
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	runs, err = store.Runs(ctx, 10)
	require.NoError(t, err)
	require.Len(t, runs, 1)

	series, err = store.Series(ctx, "张伟")
	require.NoError(t, err)
	require.Len(t, series, 1)
}
