// Package httpapi serves the cached vote tally: a presentation page at "/"
// and a JSON API under "/api".
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/history"
	"votewatch/internal/refresh"
	"votewatch/internal/report"
	"votewatch/internal/tally"
	"votewatch/lib/serviceutil"
)

const (
	report_http_encode  = "httpapi.encode"
	report_http_history = "httpapi.history"
	report_http_report  = "httpapi.report"
	report_http_missing = "httpapi.unavailable"
)

// UnavailableMessage is the error body of /api/vote-data when there is no
// result to serve.
const UnavailableMessage = "无法获取数据"

const defaultHistoryLimit = 20

// Source is where the server reads the current result from, it may block
// while a stale result is refreshed.
type Source interface {
	Get(ctx context.Context) (*tally.Result, bool)
}

type StatusSource interface {
	Status() refresh.Status
}

type HistorySource interface {
	Runs(ctx context.Context, limit int) ([]history.Run, error)
	Series(ctx context.Context, name string) ([]history.Point, error)
	Candidates(ctx context.Context, runID string) ([]tally.Candidate, error)
}

type Options struct {
	// Status and History are optional, their routes answer 404 when unset.
	Status  StatusSource
	History HistorySource
	// AccessToken guards the /api routes other than /api/vote-data, which
	// the page itself polls.
	AccessToken string
	// RefreshSeconds is how often the page polls /api/vote-data.
	RefreshSeconds int
	Title          string
	Subtitle       string
}

type Server struct {
	source Source
	opts   Options
	tel    telemetry.API
	now    func() time.Time
	page   []byte
}

type errorBody struct {
	Error string `json:"error"`
}

func NewServer(source Source, opts Options, tel telemetry.API) (*Server, error) {
	assert.NotNil(source)
	assert.NotNil(tel)

	page, err := renderPage(opts)
	if err != nil {
		return nil, err
	}
	return &Server{
		source: source,
		opts:   opts,
		tel:    telemetry.NewScopedAPI("httpapi", tel),
		now:    time.Now,
		page:   page,
	}, nil
}

// Handler registers every route on a fresh mux.
func (s *Server) Handler() http.Handler {
	api := http.NewServeMux()
	api.HandleFunc("GET /api/candidate", s.handleCandidate)
	api.HandleFunc("GET /api/status", s.handleStatus)
	api.HandleFunc("GET /api/history", s.handleHistory)
	api.HandleFunc("GET /api/history/candidate", s.handleSeries)
	api.HandleFunc("GET /api/history/run", s.handleRun)

	mux := http.NewServeMux()
	mux.Handle("/api/", serviceutil.RequireBearer(s.opts.AccessToken, api))
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /api/vote-data", s.handleVoteData)
	mux.HandleFunc("GET /report.md", s.handleReport)
	return mux
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	err := json.NewEncoder(w).Encode(value)
	if err != nil {
		s.tel.ReportWarning(report_http_encode, err)
	}
}

func (s *Server) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, errorBody{Error: message})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(s.page)
}

func (s *Server) handleVoteData(w http.ResponseWriter, r *http.Request) {
	result, ok := s.source.Get(r.Context())
	if !ok {
		s.tel.ReportWarning(report_http_missing, telemetry.KV{Key: "path", Value: r.URL.Path})
		s.writeError(w, http.StatusInternalServerError, UnavailableMessage)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

type candidateMatch struct {
	Candidate  tally.Candidate `json:"candidate"`
	Similarity float64         `json:"similarity"`
}

func (s *Server) handleCandidate(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter q")
		return
	}
	result, ok := s.source.Get(r.Context())
	if !ok {
		s.writeError(w, http.StatusInternalServerError, UnavailableMessage)
		return
	}
	candidate, similarity, found := Lookup(result.Candidates, query)
	if !found {
		s.writeError(w, http.StatusNotFound, "no candidate matches "+strconv.Quote(query))
		return
	}
	s.writeJSON(w, http.StatusOK, candidateMatch{
		Candidate:  candidate,
		Similarity: similarity,
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if s.opts.Status == nil {
		http.NotFound(w, r)
		return
	}
	s.writeJSON(w, http.StatusOK, s.opts.Status.Status())
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.NotFound(w, r)
		return
	}
	limit := defaultHistoryLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			s.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = parsed
	}
	runs, err := s.opts.History.Runs(r.Context(), limit)
	if err != nil {
		s.tel.ReportBroken(report_http_history, err)
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.writeJSON(w, http.StatusOK, runs)
}

func (s *Server) handleSeries(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.NotFound(w, r)
		return
	}
	name := r.URL.Query().Get("name")
	if name == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter name")
		return
	}
	points, err := s.opts.History.Series(r.Context(), name)
	if err != nil {
		s.tel.ReportBroken(report_http_history, err, telemetry.KV{Key: "name", Value: name})
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	s.writeJSON(w, http.StatusOK, points)
}

func (s *Server) handleRun(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		http.NotFound(w, r)
		return
	}
	id := r.URL.Query().Get("id")
	if id == "" {
		s.writeError(w, http.StatusBadRequest, "missing query parameter id")
		return
	}
	candidates, err := s.opts.History.Candidates(r.Context(), id)
	if err != nil {
		s.tel.ReportBroken(report_http_history, err, telemetry.KV{Key: "run", Value: id})
		s.writeError(w, http.StatusInternalServerError, "failed to read history")
		return
	}
	if len(candidates) == 0 {
		s.writeError(w, http.StatusNotFound, "no such run")
		return
	}
	s.writeJSON(w, http.StatusOK, candidates)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	result, ok := s.source.Get(r.Context())
	if !ok {
		http.Error(w, UnavailableMessage, http.StatusInternalServerError)
		return
	}
	updatedAt := s.now()
	if s.opts.Status != nil {
		updatedAt = s.opts.Status.Status().UpdatedAt
	}

	var buf bytes.Buffer
	err := report.WriteMarkdown(&buf, result, updatedAt)
	if err != nil {
		s.tel.ReportBroken(report_http_report, err)
		http.Error(w, "failed to render report", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
