// Package onewechat acquires vote tallies from the OneWeChat voting site: it
// logs in, opens the statistics view and extracts every candidate entry.
package onewechat

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

const DefaultTargetURL = "https://onewechat.bnu.edu.cn/site/vote/index?id=1503"

// DefaultRunTimeout bounds a whole acquisition when Options leaves it unset.
const DefaultRunTimeout = 3 * time.Minute

const (
	LoginTitleMarker = "登录"
	LoginURLMarker   = "login"
	VoteURLMarker    = "vote"
	VoteTitleMarker  = "投票"
)

var (
	ErrLaunch         = errors.New("onewechat: failed to start browser session")
	ErrAuthentication = errors.New("onewechat: every login strategy failed")
	ErrNoCandidates   = errors.New("onewechat: no candidates could be extracted")
)

// Timing holds the settle periods inserted after page actions. The zero
// value waits for nothing.
type Timing struct {
	Settle           time.Duration
	LoginSettle      time.Duration
	NavigationSettle time.Duration
	HybridPause      time.Duration
	WaitTimeout      time.Duration
}

func DefaultTiming() Timing {
	return Timing{
		Settle:           5 * time.Second,
		LoginSettle:      8 * time.Second,
		NavigationSettle: 8 * time.Second,
		HybridPause:      2 * time.Second,
		WaitTimeout:      10 * time.Second,
	}
}

func (t Timing) waitTimeout() time.Duration {
	if t.WaitTimeout <= 0 {
		return time.Second
	}
	return t.WaitTimeout
}

// settle blocks for d or until ctx is done.
func settle(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Credentials identify the account used to log in.
type Credentials struct {
	Identifier string
	Secret     string
}

// LogValue keeps the secret out of logs.
func (c Credentials) LogValue() slog.Value {
	secret := ""
	if c.Secret != "" {
		secret = "***"
	}
	return slog.GroupValue(
		slog.String("identifier", c.Identifier),
		slog.String("secret", secret),
	)
}

func (c Credentials) Empty() bool {
	return c.Identifier == "" || c.Secret == ""
}
