package onewechat

import (
	"context"
	"time"

	"votewatch/internal/browser"
	"votewatch/internal/components/assert"
	"votewatch/internal/components/telemetry"
)

const (
	report_navigator_lookup   = "navigator.lookup"
	report_navigator_click    = "navigator.click"
	report_navigator_snapshot = "navigator.snapshot"
	report_navigator_missing  = "navigator.missing-statistics"
)

const (
	CandidateClass = "info-item"
	VoteBoxClass   = "vote-box"

	debugSnapshotPrefix = "no_statistics_button"
)

var statisticsLabels = []string{"查看投票统计", "投票统计", "统计结果", "查看结果", "结果统计"}

var statisticsSelectors = []string{
	".btn-statistics",
	".vote-statistics",
	".statistics-btn",
	"button[class*='statistics']",
	"button[class*='result']",
}

type lookup struct {
	by       browser.By
	selector string
}

var loadChecks = []lookup{
	{by: browser.ByClass, selector: CandidateClass},
	{by: browser.ByClass, selector: VoteBoxClass},
	{by: browser.ByXPath, selector: browser.ContainsText("*", "候选人")},
	{by: browser.ByXPath, selector: browser.ContainsText("*", "票")},
}

// Navigator opens the statistics view once the session is logged in.
type Navigator struct {
	driver browser.Driver
	timing Timing
	debug  *browser.DebugOutput
	now    func() time.Time
	tel    telemetry.API
}

// NewNavigator creates a Navigator, debug may be nil to skip saving
// snapshots when the view cannot be found.
func NewNavigator(driver browser.Driver, timing Timing, debug *browser.DebugOutput, now func() time.Time, tel telemetry.API) *Navigator {
	assert.NotNil(driver)
	assert.NotNil(now)
	assert.NotNil(tel)
	return &Navigator{
		driver: driver,
		timing: timing,
		debug:  debug,
		now:    now,
		tel:    tel,
	}
}

type navigationAttempt struct {
	lookup lookup
	click  func(ctx context.Context, el browser.Element) error
}

func (n *Navigator) attempts() []navigationAttempt {
	var attempts []navigationAttempt
	for _, label := range statisticsLabels {
		attempts = append(attempts, navigationAttempt{
			lookup: lookup{by: browser.ByXPath, selector: browser.ContainsText("button", label)},
			click:  n.clickWithFallback,
		})
	}
	for _, selector := range statisticsSelectors {
		attempts = append(attempts, navigationAttempt{
			lookup: lookup{by: browser.ByCSS, selector: selector},
			click:  n.driver.ScriptClick,
		})
	}
	return attempts
}

// ReachStatistics clicks through to the statistics view and reports whether
// its content was confirmed. On failure the current page is left as is.
func (n *Navigator) ReachStatistics(ctx context.Context) bool {
	if settle(ctx, n.timing.Settle) != nil {
		return false
	}

	for _, attempt := range n.attempts() {
		button, ok, err := browser.First(n.driver.FindElements(ctx, attempt.lookup.by, attempt.lookup.selector))
		if err != nil {
			n.tel.ReportWarning(report_navigator_lookup, telemetry.KV{Key: "selector", Value: attempt.lookup.selector}, err)
			continue
		}
		if !ok {
			continue
		}

		n.tel.ReportDebug("found statistics control", telemetry.KV{Key: "selector", Value: attempt.lookup.selector})
		err = attempt.click(ctx, button)
		if err != nil {
			n.tel.ReportWarning(report_navigator_click, telemetry.KV{Key: "selector", Value: attempt.lookup.selector}, err)
			continue
		}
		if settle(ctx, n.timing.NavigationSettle) != nil {
			return false
		}
		if n.StatisticsLoaded(ctx) {
			return true
		}
		n.tel.ReportDebug("statistics view not confirmed", telemetry.KV{Key: "selector", Value: attempt.lookup.selector})
	}

	n.tel.ReportWarning(report_navigator_missing, "no statistics control led to a loaded view")
	n.saveDebugSnapshot(ctx)
	return false
}

func (n *Navigator) clickWithFallback(ctx context.Context, el browser.Element) error {
	err := n.driver.Click(ctx, el)
	if err == nil {
		return nil
	}
	n.tel.ReportDebug("native click failed, using script click", telemetry.KV{Key: "err", Value: err})
	return n.driver.ScriptClick(ctx, el)
}

// StatisticsLoaded reports whether the current page shows candidate data.
func (n *Navigator) StatisticsLoaded(ctx context.Context) bool {
	for _, check := range loadChecks {
		found, err := n.driver.FindElements(ctx, check.by, check.selector)
		if err != nil {
			n.tel.ReportDebug("load check failed", telemetry.KV{Key: "selector", Value: check.selector}, telemetry.KV{Key: "err", Value: err})
			continue
		}
		if len(found) > 0 {
			return true
		}
	}
	return false
}

func (n *Navigator) saveDebugSnapshot(ctx context.Context) {
	if n.debug == nil {
		return
	}
	paths, err := n.debug.Save(ctx, n.driver, debugSnapshotPrefix, n.now())
	if err != nil {
		n.tel.ReportWarning(report_navigator_snapshot, err)
		return
	}
	n.tel.ReportDebug("saved debug snapshot", telemetry.KV{Key: "paths", Value: paths})
}
