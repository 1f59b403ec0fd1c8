package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"votewatch/internal/components/telemetry"
	"votewatch/internal/history"
	"votewatch/internal/refresh"
	"votewatch/internal/tally"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

var captured = time.Date(2026, 5, 20, 9, 30, 0, 0, time.UTC)

func sampleResult(t *testing.T) *tally.Result {
	t.Helper()
	result, ok := tally.Build([]tally.Candidate{
		{Number: 1, Name: "陈依皓", Votes: 667, VoteStatus: "已投票"},
		{Number: 2, Name: "李雷", Votes: 1204, VoteStatus: "投票"},
		{Number: 3, Name: "韩梅梅", Votes: 12, VoteStatus: "投票"},
	}, captured)
	require.True(t, ok)
	return result
}

type fixedSource struct {
	result *tally.Result
}

func (s fixedSource) Get(context.Context) (*tally.Result, bool) {
	return s.result, s.result != nil
}

type fixedStatus refresh.Status

func (s fixedStatus) Status() refresh.Status {
	return refresh.Status(s)
}

type fakeHistory struct {
	runs       []history.Run
	points     []history.Point
	candidates map[string][]tally.Candidate
	err        error
	limit      int
	name       string
}

func (h *fakeHistory) Runs(_ context.Context, limit int) ([]history.Run, error) {
	h.limit = limit
	return h.runs, h.err
}

func (h *fakeHistory) Series(_ context.Context, name string) ([]history.Point, error) {
	h.name = name
	return h.points, h.err
}

func (h *fakeHistory) Candidates(_ context.Context, runID string) ([]tally.Candidate, error) {
	return h.candidates[runID], h.err
}

func newTestServer(t *testing.T, source Source, opts Options) (*httptest.Server, *telemetry.Recorder) {
	t.Helper()
	rec := telemetry.NewRecorder()
	server, err := NewServer(source, opts, rec)
	require.NoError(t, err)
	ts := httptest.NewServer(server.Handler())
	t.Cleanup(ts.Close)
	return ts, rec
}

func get(t *testing.T, url string, header ...string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, url, nil)
	require.NoError(t, err)
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	res, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res, body
}

func TestVoteData(t *testing.T) {
	result := sampleResult(t)
	ts, _ := newTestServer(t, fixedSource{result: result}, Options{})

	res, body := get(t, ts.URL+"/api/vote-data")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "application/json")

	var decoded tally.Result
	require.NoError(t, json.Unmarshal(body, &decoded))
	if diff := cmp.Diff(*result, decoded); diff != "" {
		t.Fatalf("vote data mismatch (-want +got):\n%s", diff)
	}
}

func TestVoteDataUnavailable(t *testing.T) {
	ts, rec := newTestServer(t, fixedSource{}, Options{})

	res, body := get(t, ts.URL+"/api/vote-data")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)

	var decoded errorBody
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.Equal(t, UnavailableMessage, decoded.Error)
	require.Len(t, rec.Find("warning", "unavailable"), 1)
}

func TestIndexPage(t *testing.T) {
	ts, _ := newTestServer(t, fixedSource{}, Options{RefreshSeconds: 30, Title: "<Votes>"})

	res, body := get(t, ts.URL+"/")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/html")
	page := string(body)
	require.Contains(t, page, "<title>&lt;Votes&gt;</title>")
	require.Contains(t, page, "const refreshInterval =  30 ;")
	require.Contains(t, page, "fetch('/api/vote-data')")

	res, _ = get(t, ts.URL+"/missing")
	require.Equal(t, http.StatusNotFound, res.StatusCode)
}

func TestAccessToken(t *testing.T) {
	ts, _ := newTestServer(t, fixedSource{result: sampleResult(t)}, Options{
		AccessToken: "s3cret",
		Status:      fixedStatus{Populated: true},
	})

	res, _ := get(t, ts.URL+"/api/status")
	require.Equal(t, http.StatusUnauthorized, res.StatusCode)

	res, _ = get(t, ts.URL+"/api/status", "Authorization", "Bearer s3cret")
	require.Equal(t, http.StatusOK, res.StatusCode)

	// the page polls vote-data without credentials
	res, _ = get(t, ts.URL+"/api/vote-data")
	require.Equal(t, http.StatusOK, res.StatusCode)
}

func TestStatus(t *testing.T) {
	status := refresh.Status{
		Populated: true,
		UpdatedAt: captured,
		Refreshes: 3,
		Failures:  1,
		LastError: "authentication failed",
	}
	ts, _ := newTestServer(t, fixedSource{}, Options{Status: fixedStatus(status)})

	res, body := get(t, ts.URL+"/api/status")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var decoded refresh.Status
	require.NoError(t, json.Unmarshal(body, &decoded))
	require.True(t, decoded.UpdatedAt.Equal(captured))
	decoded.UpdatedAt = captured
	require.Equal(t, status, decoded)
}

func TestOptionalRoutes(t *testing.T) {
	ts, _ := newTestServer(t, fixedSource{}, Options{})

	for _, path := range []string{"/api/status", "/api/history", "/api/history/candidate?name=x", "/api/history/run?id=x"} {
		res, _ := get(t, ts.URL+path)
		require.Equal(t, http.StatusNotFound, res.StatusCode, path)
	}
}

func TestHistory(t *testing.T) {
	store := &fakeHistory{
		runs: []history.Run{
			{ID: "run-b", Time: captured, TotalCandidates: 3, TotalVotes: 1883},
		},
		points: []history.Point{
			{Time: captured, Number: 2, Votes: 1204, Rank: 1},
		},
	}
	ts, _ := newTestServer(t, fixedSource{}, Options{History: store})

	res, body := get(t, ts.URL+"/api/history")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, defaultHistoryLimit, store.limit)
	var runs []history.Run
	require.NoError(t, json.Unmarshal(body, &runs))
	require.Len(t, runs, 1)
	require.Equal(t, "run-b", runs[0].ID)

	res, _ = get(t, ts.URL+"/api/history?limit=5")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, 5, store.limit)

	res, _ = get(t, ts.URL+"/api/history?limit=zero")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)

	res, body = get(t, ts.URL+"/api/history/candidate?name=%E6%9D%8E%E9%9B%B7")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Equal(t, "李雷", store.name)
	var points []history.Point
	require.NoError(t, json.Unmarshal(body, &points))
	require.Len(t, points, 1)
	require.Equal(t, 1204, points[0].Votes)

	res, _ = get(t, ts.URL+"/api/history/candidate")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHistoryRun(t *testing.T) {
	store := &fakeHistory{
		candidates: map[string][]tally.Candidate{
			"run-b": sampleResult(t).Candidates,
		},
	}
	ts, _ := newTestServer(t, fixedSource{}, Options{History: store})

	res, body := get(t, ts.URL+"/api/history/run?id=run-b")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var candidates []tally.Candidate
	require.NoError(t, json.Unmarshal(body, &candidates))
	require.Len(t, candidates, 3)
	require.Equal(t, "李雷", candidates[0].Name)
	require.Equal(t, 1, candidates[0].Rank)

	res, _ = get(t, ts.URL+"/api/history/run?id=run-z")
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = get(t, ts.URL+"/api/history/run")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestHistoryFailure(t *testing.T) {
	ts, rec := newTestServer(t, fixedSource{}, Options{History: &fakeHistory{err: errors.New("database is locked")}})

	res, _ := get(t, ts.URL+"/api/history")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
	require.Len(t, rec.Find("broken", "history"), 1)
}

func TestCandidateRoute(t *testing.T) {
	ts, _ := newTestServer(t, fixedSource{result: sampleResult(t)}, Options{})

	res, body := get(t, ts.URL+"/api/candidate?q=%E9%9F%A9%E6%A2%85")
	require.Equal(t, http.StatusOK, res.StatusCode)
	var match candidateMatch
	require.NoError(t, json.Unmarshal(body, &match))
	require.Equal(t, "韩梅梅", match.Candidate.Name)
	require.Equal(t, 3, match.Candidate.Rank)

	res, _ = get(t, ts.URL+"/api/candidate?q=%E5%BC%A0%E4%BC%9F")
	require.Equal(t, http.StatusNotFound, res.StatusCode)

	res, _ = get(t, ts.URL+"/api/candidate")
	require.Equal(t, http.StatusBadRequest, res.StatusCode)
}

func TestReport(t *testing.T) {
	ts, _ := newTestServer(t, fixedSource{result: sampleResult(t)}, Options{
		Status: fixedStatus{Populated: true, UpdatedAt: captured},
	})

	res, body := get(t, ts.URL+"/report.md")
	require.Equal(t, http.StatusOK, res.StatusCode)
	require.Contains(t, res.Header.Get("Content-Type"), "text/markdown")
	require.Contains(t, string(body), "# Vote Tally")
	require.Contains(t, string(body), "| Cached Since | 2026-05-20 09:30:00 |")

	empty, _ := newTestServer(t, fixedSource{}, Options{})
	res, _ = get(t, empty.URL+"/report.md")
	require.Equal(t, http.StatusInternalServerError, res.StatusCode)
}
