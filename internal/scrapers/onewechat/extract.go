package onewechat

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"votewatch/internal/browser"
	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/tally"
	"votewatch/lib/htmlutil"
)

const (
	report_extractor_wait  = "extractor.wait"
	report_extractor_find  = "extractor.find"
	report_extractor_entry = "extractor.entry"
)

// Batch is the outcome of one extraction pass.
type Batch struct {
	// Candidates are sorted by votes, highest first, in a stable manner.
	Candidates []tally.Candidate
	Skipped    int
}

// Extractor reads candidate entries from the statistics view.
type Extractor struct {
	driver browser.Driver
	timing Timing
	tel    telemetry.API
}

func NewExtractor(driver browser.Driver, timing Timing, tel telemetry.API) *Extractor {
	assert.NotNil(driver)
	assert.NotNil(tel)
	return &Extractor{
		driver: driver,
		timing: timing,
		tel:    tel,
	}
}

// Extract parses every candidate entry on the current page. A malformed
// entry is logged and skipped, it never fails the batch.
func (e *Extractor) Extract(ctx context.Context) Batch {
	err := e.driver.WaitFor(ctx, browser.ByClass, CandidateClass, e.timing.waitTimeout())
	if err != nil {
		e.tel.ReportWarning(report_extractor_wait, err)
		return Batch{}
	}

	entries, err := e.driver.FindElements(ctx, browser.ByClass, CandidateClass)
	if err != nil {
		e.tel.ReportWarning(report_extractor_find, err)
		return Batch{}
	}
	e.tel.ReportDebug("found candidate entries", telemetry.KV{Key: "count", Value: len(entries)})
	base := e.pageURL(ctx)

	batch := Batch{Candidates: make([]tally.Candidate, 0, len(entries))}
	for i, entry := range entries {
		candidate, err := e.extractEntry(ctx, entry, base)
		if err != nil {
			batch.Skipped++
			e.tel.ReportWarning(report_extractor_entry, telemetry.KV{Key: "index", Value: i}, err)
			continue
		}
		e.tel.ReportDebug(
			"extracted candidate",
			telemetry.KV{Key: "number", Value: candidate.Number},
			telemetry.KV{Key: "name", Value: candidate.Name},
			telemetry.KV{Key: "votes", Value: candidate.Votes},
		)
		batch.Candidates = append(batch.Candidates, candidate)
	}

	tally.SortByVotes(batch.Candidates)
	return batch
}

var errNotFound = errors.New("element not found")

// firstText returns the text of the first selector (in order) that matches
// inside entry.
func (e *Extractor) firstText(ctx context.Context, entry browser.Element, selectors ...string) (string, error) {
	for _, selector := range selectors {
		el, ok, err := browser.First(e.driver.FindIn(ctx, entry, browser.ByCSS, selector))
		if err != nil {
			return "", fmt.Errorf("find %s: %w", selector, err)
		}
		if !ok {
			continue
		}
		return e.driver.Text(ctx, el)
	}
	return "", fmt.Errorf("%w: %s", errNotFound, strings.Join(selectors, ", "))
}

// pageURL is nil when the current address cannot be read, image links are
// then kept as written.
func (e *Extractor) pageURL(ctx context.Context) *url.URL {
	raw, err := e.driver.URL(ctx)
	if err != nil {
		e.tel.ReportDebug("read page url", telemetry.KV{Key: "err", Value: err})
		return nil
	}
	base, err := url.Parse(raw)
	if err != nil {
		e.tel.ReportDebug("parse page url", telemetry.KV{Key: "err", Value: err})
		return nil
	}
	return base
}

func (e *Extractor) extractEntry(ctx context.Context, entry browser.Element, base *url.URL) (tally.Candidate, error) {
	nameText, err := e.firstText(ctx, entry, ".detail p", ".detail")
	if err != nil {
		return tally.Candidate{}, fmt.Errorf("name: %w", err)
	}
	number, name, err := ParseNameLine(nameText)
	if err != nil {
		return tally.Candidate{}, err
	}

	voteText, err := e.firstText(ctx, entry, ".vote-box .num", ".vote-box")
	if err != nil {
		return tally.Candidate{}, fmt.Errorf("votes: %w", err)
	}
	votes, err := ParseVotes(voteText)
	if err != nil {
		return tally.Candidate{}, err
	}

	status, err := e.firstText(ctx, entry, ".btn-vote")
	status = htmlutil.CollapseSpace(status)
	if err != nil || status == "" {
		status = tally.UnknownStatus
	}

	return tally.Candidate{
		Number:     number,
		Name:       name,
		Votes:      votes,
		VoteStatus: status,
		ImageURL:   e.imageURL(ctx, entry, base),
	}, nil
}

// imageURL reads src, falling back to the lazy-load data-src, and resolves
// it against base.
func (e *Extractor) imageURL(ctx context.Context, entry browser.Element, base *url.URL) string {
	img, ok, err := browser.First(e.driver.FindIn(ctx, entry, browser.ByTag, "img"))
	if err != nil || !ok {
		return ""
	}
	for _, attr := range []string{"src", "data-src"} {
		value, err := e.driver.Attribute(ctx, img, attr)
		value = strings.TrimSpace(value)
		if err != nil || value == "" {
			continue
		}
		if base == nil {
			return value
		}
		ref, err := url.Parse(value)
		if err != nil {
			return value
		}
		return base.ResolveReference(ref).String()
	}
	return ""
}
