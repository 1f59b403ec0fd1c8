// Package refresh keeps the latest vote tally in memory and decides when it
// has to be acquired again.
package refresh

import (
	"context"
	"sync"
	"time"

	"votewatch/internal/components/assert"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/tally"

	"golang.org/x/sync/singleflight"
)

const (
	report_cache_refresh = "cache.refresh"
	report_cache_daemon  = "cache.daemon"
	report_cache_age     = "cache.age-seconds"
)

const DefaultStaleness = 300 * time.Second

// Fetcher runs one acquisition.
type Fetcher interface {
	Fetch(ctx context.Context) (*tally.Result, error)
}

type Status struct {
	Populated bool      `json:"populated"`
	UpdatedAt time.Time `json:"updated_at,omitzero"`
	Refreshes int       `json:"refreshes"`
	Failures  int       `json:"failures"`
	LastError string    `json:"last_error,omitempty"`
}

// Cache owns the current result and when it was stored. The pair is only
// ever read or replaced together.
type Cache struct {
	fetcher   Fetcher
	staleness time.Duration
	time      chrono.TimeAPI
	tel       telemetry.API

	group singleflight.Group

	mu        sync.Mutex
	value     *tally.Result
	updatedAt time.Time
	refreshes int
	failures  int
	lastError string
}

func NewCache(fetcher Fetcher, staleness time.Duration, timeAPI chrono.TimeAPI, tel telemetry.API) *Cache {
	assert.NotNil(fetcher)
	assert.NotNil(timeAPI)
	assert.NotNil(tel)
	if staleness <= 0 {
		staleness = DefaultStaleness
	}
	return &Cache{
		fetcher:   fetcher,
		staleness: staleness,
		time:      timeAPI,
		tel:       telemetry.NewScopedAPI("refresh", tel),
	}
}

// Snapshot returns the current result and the time it was stored, value is
// nil when nothing was ever fetched.
func (c *Cache) Snapshot() (*tally.Result, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.value, c.updatedAt
}

func (c *Cache) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Status{
		Populated: c.value != nil,
		UpdatedAt: c.updatedAt,
		Refreshes: c.refreshes,
		Failures:  c.failures,
		LastError: c.lastError,
	}
}

func (c *Cache) stale(value *tally.Result, updatedAt time.Time) bool {
	return value == nil || c.time.Now().Sub(updatedAt) > c.staleness
}

// Get returns the cached result, refreshing it first when the cache is
// empty or stale. A failed refresh still returns the previous result, ok
// is false only when there has never been one.
func (c *Cache) Get(ctx context.Context) (*tally.Result, bool) {
	value, updatedAt := c.Snapshot()
	if !c.stale(value, updatedAt) {
		return value, true
	}

	if value != nil {
		c.tel.ReportCount(report_cache_age, int64(c.time.Now().Sub(updatedAt).Seconds()))
	}
	_ = c.Refresh(ctx)

	value, _ = c.Snapshot()
	return value, value != nil
}

// Refresh runs the fetcher and stores its result. Concurrent callers share
// the run that is already in flight. The run is not cancelled with ctx.
func (c *Cache) Refresh(ctx context.Context) error {
	_, err, _ := c.group.Do("refresh", func() (any, error) {
		result, err := c.fetcher.Fetch(context.WithoutCancel(ctx))

		c.mu.Lock()
		defer c.mu.Unlock()
		if err != nil {
			c.failures++
			c.lastError = err.Error()
			c.tel.ReportWarning(report_cache_refresh, err)
			return nil, err
		}
		c.value = result
		c.updatedAt = c.time.Now()
		c.refreshes++
		c.lastError = ""
		return nil, nil
	})
	return err
}

// StartDaemon refreshes once right away and then on every interval
// regardless of readers, it never overlaps with itself.
func (c *Cache) StartDaemon(ctx context.Context, cron chrono.CronAPI, interval time.Duration) error {
	assert.NotNil(cron)

	run := func() {
		if ctx.Err() != nil {
			return
		}
		err := c.Refresh(ctx)
		if err == nil {
			c.tel.ReportDebug("scheduled refresh succeeded")
		}
	}

	err := cron.Every(interval, run)
	if err != nil {
		c.tel.ReportBroken(report_cache_daemon, err)
		return err
	}
	go run()
	return nil
}
