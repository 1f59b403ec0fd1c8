package onewechat

import (
	"context"
	"fmt"
	"sync"
	"time"

	"votewatch/internal/browser"
	"votewatch/internal/components/assert"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/tally"

	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	report_scraper_launch  = "scraper.launch"
	report_scraper_close   = "scraper.close"
	report_scraper_history = "scraper.history"
	report_scraper_skipped = "scraper.skipped-entries"
)

var tracer = telemetry.Tracer("votewatch/internal/scrapers/onewechat")

// HistoryWriter records every successful acquisition.
type HistoryWriter interface {
	Push(ctx context.Context, runID string, result *tally.Result) error
}

type Options struct {
	Target      string
	Credentials Credentials
	Timing      Timing
	// Debug receives page snapshots when the statistics view cannot be
	// found, nil disables them.
	Debug *browser.DebugOutput
	// History is optional.
	History HistoryWriter
	// RunTimeout bounds one Fetch from launch to result, DefaultRunTimeout
	// when zero.
	RunTimeout time.Duration
}

// Scraper runs the whole acquisition pipeline, one browser session per
// run and one run at a time.
type Scraper struct {
	launch browser.Launcher
	opts   Options
	time   chrono.TimeAPI
	tel    telemetry.API

	session sync.Mutex
}

func NewScraper(launch browser.Launcher, opts Options, timeAPI chrono.TimeAPI, tel telemetry.API) *Scraper {
	assert.NotNil(launch)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	if opts.Target == "" {
		opts.Target = DefaultTargetURL
	}
	if opts.RunTimeout <= 0 {
		opts.RunTimeout = DefaultRunTimeout
	}
	return &Scraper{
		launch: launch,
		opts:   opts,
		time:   timeAPI,
		tel:    telemetry.NewScopedAPI("onewechat", tel),
	}
}

func spanError(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// Fetch logs in, opens the statistics view, extracts and analyzes the
// candidates. A second caller blocks until the running fetch completes.
func (s *Scraper) Fetch(ctx context.Context) (*tally.Result, error) {
	s.session.Lock()
	defer s.session.Unlock()

	runID, err := random.String(8)
	if err != nil {
		return nil, err
	}

	ctx, span := tracer.Start(ctx, "Fetch", trace.WithAttributes(attribute.String("run_id", runID)))
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.opts.RunTimeout)
	defer cancel()

	s.tel.ReportDebug("starting acquisition", telemetry.KV{Key: "run", Value: runID})

	driver, err := s.launch(ctx)
	if err != nil {
		s.tel.ReportBroken(report_scraper_launch, err)
		return nil, spanError(span, fmt.Errorf("%w: %w", ErrLaunch, err))
	}
	defer func() {
		err := driver.Close()
		if err != nil {
			s.tel.ReportWarning(report_scraper_close, err)
		}
	}()

	result, err := s.run(ctx, driver)
	if err != nil {
		return nil, spanError(span, err)
	}

	if s.opts.History != nil {
		err = s.opts.History.Push(ctx, runID, result)
		if err != nil {
			s.tel.ReportWarning(report_scraper_history, err)
		}
	}
	s.logSummary(result)
	return result, nil
}

func (s *Scraper) run(ctx context.Context, driver browser.Driver) (*tally.Result, error) {
	authCtx, authSpan := tracer.Start(ctx, "Authenticate")
	auth := NewAuthenticator(driver, s.opts.Target, s.opts.Timing, s.tel)
	ok := auth.Authenticate(authCtx, s.opts.Credentials)
	authSpan.End()
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrAuthentication, err)
		}
		return nil, ErrAuthentication
	}

	navCtx, navSpan := tracer.Start(ctx, "ReachStatistics")
	nav := NewNavigator(driver, s.opts.Timing, s.opts.Debug, s.time.Now, s.tel)
	reached := nav.ReachStatistics(navCtx)
	navSpan.SetAttributes(attribute.Bool("reached", reached))
	navSpan.End()
	if !reached {
		s.tel.ReportDebug("statistics view not reached, extracting from the current page")
	}

	extractCtx, extractSpan := tracer.Start(ctx, "Extract")
	batch := NewExtractor(driver, s.opts.Timing, s.tel).Extract(extractCtx)
	extractSpan.SetAttributes(
		attribute.Int("candidates", len(batch.Candidates)),
		attribute.Int("skipped", batch.Skipped),
	)
	extractSpan.End()

	s.tel.ReportCount(report_scraper_skipped, int64(batch.Skipped))

	result, ok := tally.Build(batch.Candidates, s.time.Now())
	if !ok {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrNoCandidates, err)
		}
		return nil, ErrNoCandidates
	}
	return result, nil
}

func (s *Scraper) logSummary(result *tally.Result) {
	s.tel.ReportDebug(
		"acquisition succeeded",
		telemetry.KV{Key: "total_votes", Value: result.Analysis.TotalVotes},
		telemetry.KV{Key: "candidates", Value: len(result.Candidates)},
	)
	for _, c := range result.Analysis.TopCandidates {
		s.tel.ReportDebug(
			fmt.Sprintf("top %d", c.Rank),
			telemetry.KV{Key: "number", Value: c.Number},
			telemetry.KV{Key: "name", Value: c.Name},
			telemetry.KV{Key: "votes", Value: c.Votes},
		)
	}
}
