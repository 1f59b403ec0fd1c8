// Package client talks to a running votewatch server.
package client

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/history"
	"votewatch/internal/refresh"
	"votewatch/internal/tally"

	"github.com/go-resty/resty/v2"
	"golang.org/x/time/rate"
)

const (
	report_client_request = "client.request"
)

// ErrUnavailable is returned when the server has no result to serve.
var ErrUnavailable = errors.New("server has no vote data")

type Options struct {
	BaseURL     string
	AccessToken string
	Timeout     time.Duration
}

type Client struct {
	http *resty.Client
	tel  telemetry.API
}

type errorBody struct {
	Error string `json:"error"`
}

type CandidateMatch struct {
	Candidate  tally.Candidate `json:"candidate"`
	Similarity float64         `json:"similarity"`
}

func New(opts Options, tel telemetry.API) *Client {
	assert.NotNil(tel)
	tel = telemetry.NewScopedAPI("client", tel)

	httpClient := resty.New()
	httpClient.SetBaseURL(opts.BaseURL)
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = time.Minute
	}
	httpClient.SetTimeout(timeout)
	if opts.AccessToken != "" {
		httpClient.SetAuthToken(opts.AccessToken)
	}

	// a cold server scrapes on the first request, keep retries from
	// piling up behind it
	rateLimiter := rate.NewLimiter(2, 2)
	httpClient.OnBeforeRequest(func(_ *resty.Client, req *resty.Request) error {
		return rateLimiter.Wait(req.Context())
	})
	telemetry.InstrumentResty(httpClient, tel)

	return &Client{http: httpClient, tel: tel}
}

func get[T any](ctx context.Context, c *Client, path string, query map[string]string) (T, error) {
	var out T
	var failure errorBody
	res, err := c.http.R().
		SetContext(ctx).
		SetQueryParams(query).
		SetResult(&out).
		SetError(&failure).
		Get(path)
	if err != nil {
		c.tel.ReportBroken(report_client_request, fmt.Errorf("fetch: %w", err), path)
		return out, err
	}
	if res.IsError() {
		message := failure.Error
		if message == "" {
			message = res.Status()
		}
		return out, fmt.Errorf("%s: %s (%d)", path, message, res.StatusCode())
	}
	return out, nil
}

// VoteData fetches the current result, returning ErrUnavailable when the
// server answers that it has none.
func (c *Client) VoteData(ctx context.Context) (*tally.Result, error) {
	var failure errorBody
	var result tally.Result
	res, err := c.http.R().
		SetContext(ctx).
		SetResult(&result).
		SetError(&failure).
		Get("/api/vote-data")
	if err != nil {
		c.tel.ReportBroken(report_client_request, fmt.Errorf("fetch: %w", err), "/api/vote-data")
		return nil, err
	}
	if res.StatusCode() == http.StatusInternalServerError && failure.Error != "" {
		return nil, fmt.Errorf("%w: %s", ErrUnavailable, failure.Error)
	}
	if res.IsError() {
		return nil, fmt.Errorf("/api/vote-data: %s", res.Status())
	}
	return &result, nil
}

func (c *Client) Status(ctx context.Context) (refresh.Status, error) {
	return get[refresh.Status](ctx, c, "/api/status", nil)
}

func (c *Client) History(ctx context.Context, limit int) ([]history.Run, error) {
	return get[[]history.Run](ctx, c, "/api/history", map[string]string{
		"limit": strconv.Itoa(limit),
	})
}

func (c *Client) Series(ctx context.Context, name string) ([]history.Point, error) {
	return get[[]history.Point](ctx, c, "/api/history/candidate", map[string]string{
		"name": name,
	})
}

// Run fetches the ranked candidates recorded by one scrape.
func (c *Client) Run(ctx context.Context, id string) ([]tally.Candidate, error) {
	return get[[]tally.Candidate](ctx, c, "/api/history/run", map[string]string{
		"id": id,
	})
}

// Candidate looks up the candidate closest to query.
func (c *Client) Candidate(ctx context.Context, query string) (CandidateMatch, error) {
	return get[CandidateMatch](ctx, c, "/api/candidate", map[string]string{
		"q": query,
	})
}
