package onewechat

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"votewatch/internal/browser"
	"votewatch/internal/components/telemetry"

	"github.com/stretchr/testify/require"
)

var fixedNow = func() time.Time {
	return time.Date(2026, 5, 20, 9, 30, 15, 0, time.Local)
}

func TestReachStatisticsByLabel(t *testing.T) {
	driver := newScripted(t, map[string]string{
		homeURL:  homeMarkup,
		statsURL: statsMarkup,
	})
	require.NoError(t, driver.Navigate(context.Background(), homeURL))

	nav := NewNavigator(driver, Timing{}, nil, fixedNow, telemetry.NewRecorder())
	require.True(t, nav.ReachStatistics(context.Background()))

	url, err := driver.URL(context.Background())
	require.NoError(t, err)
	require.Equal(t, statsURL, url)
}

func TestReachStatisticsBySelector(t *testing.T) {
	const page = `<html><head><title>评选活动</title></head><body>
<a class="btn-statistics" href="/site/vote/statistics">统计</a>
</body></html>`
	driver := newScripted(t, map[string]string{
		homeURL:  page,
		statsURL: statsMarkup,
	})
	require.NoError(t, driver.Navigate(context.Background(), homeURL))

	nav := NewNavigator(driver, Timing{}, nil, fixedNow, telemetry.NewRecorder())
	require.True(t, nav.ReachStatistics(context.Background()))
}

func TestReachStatisticsSavesDebugSnapshot(t *testing.T) {
	const page = `<html><head><title>评选活动</title></head><body><p>活动尚未开始</p></body></html>`
	driver := newScripted(t, map[string]string{homeURL: page})
	require.NoError(t, driver.Navigate(context.Background(), homeURL))

	debug, err := browser.NewDebugOutput(t.TempDir())
	require.NoError(t, err)
	rec := telemetry.NewRecorder()

	nav := NewNavigator(driver, Timing{}, &debug, fixedNow, rec)
	require.False(t, nav.ReachStatistics(context.Background()))
	require.Len(t, rec.Find("warning", report_navigator_missing), 1)

	_, err = os.Stat(filepath.Join(debug.Directory(), "no_statistics_button_093015.html"))
	require.NoError(t, err)
}

func TestStatisticsLoaded(t *testing.T) {
	cases := []struct {
		name string
		body string
		want bool
	}{
		{name: "candidate entries", body: `<div class="info-item"></div>`, want: true},
		{name: "vote boxes", body: `<div class="vote-box"></div>`, want: true},
		{name: "candidate keyword", body: `<h2>候选人名单</h2>`, want: true},
		{name: "vote keyword", body: `<span>共 20 票</span>`, want: true},
		{name: "unrelated", body: `<p>活动尚未开始</p>`, want: false},
	}
	for _, test := range cases {
		t.Run(test.name, func(t *testing.T) {
			driver := newScripted(t, map[string]string{
				homeURL: "<html><head><title>x</title></head><body>" + test.body + "</body></html>",
			})
			require.NoError(t, driver.Navigate(context.Background(), homeURL))

			nav := NewNavigator(driver, Timing{}, nil, fixedNow, telemetry.NewRecorder())
			require.Equal(t, test.want, nav.StatisticsLoaded(context.Background()))
		})
	}
}
