// Package config loads votewatch's configuration from config.json5, its
// local override, .env files and the environment.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"votewatch/internal/browser"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/scrapers/onewechat"
	"votewatch/lib/configutil"
	configlibsql "votewatch/lib/configutil/libsql"

	"github.com/adrg/xdg"
)

const (
	EnvIdentifier = "VOTEWATCH_IDENTIFIER"
	EnvSecret     = "VOTEWATCH_SECRET"
	EnvTargetURL  = "VOTEWATCH_TARGET_URL"
	EnvToken      = "VOTEWATCH_ACCESS_TOKEN"

	DefaultFile = "config.json5"
	appName     = "votewatch"
)

type Credentials struct {
	Identifier string `json:"identifier"`
	Secret     string `json:"secret"`
}

type Refresh struct {
	StalenessSeconds int `json:"staleness_seconds"`
	IntervalSeconds  int `json:"interval_seconds"`
}

type Timing struct {
	SettleSeconds           int `json:"settle_seconds"`
	LoginSettleSeconds      int `json:"login_settle_seconds"`
	NavigationSettleSeconds int `json:"navigation_settle_seconds"`
	HybridPauseSeconds      int `json:"hybrid_pause_seconds"`
	WaitTimeoutSeconds      int `json:"wait_timeout_seconds"`
	// RunTimeoutSeconds bounds one whole acquisition.
	RunTimeoutSeconds int `json:"run_timeout_seconds"`
}

type Browser struct {
	// Headful shows the browser window, sessions are headless by default.
	Headful              bool   `json:"headful"`
	ExecPath             string `json:"exec_path"`
	UserAgent            string `json:"user_agent"`
	WindowWidth          int    `json:"window_width"`
	WindowHeight         int    `json:"window_height"`
	LaunchTimeoutSeconds int    `json:"launch_timeout_seconds"`
	ActionTimeoutSeconds int    `json:"action_timeout_seconds"`
}

type History struct {
	configlibsql.Struct
	Disabled      bool `json:"disabled"`
	RetentionDays int  `json:"retention_days"`
}

type Config struct {
	TargetURL   string      `json:"target_url"`
	Credentials Credentials `json:"credentials"`
	Port        int         `json:"port"`
	// AccessToken guards the /api routes when set.
	AccessToken string           `json:"access_token"`
	Timezone    string           `json:"timezone"`
	DebugDir    string           `json:"debug_dir"`
	Refresh     Refresh          `json:"refresh"`
	Timing      Timing           `json:"timing"`
	Browser     Browser          `json:"browser"`
	History     History          `json:"history"`
	Telemetry   telemetry.Config `json:"telemetry"`
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/123.0.0.0 Safari/537.36"

// DataDir is where the history database and debug snapshots go unless
// configured otherwise.
func DataDir() string {
	return filepath.Join(xdg.DataHome, appName)
}

func orDefault[T comparable](value *T, fallback T) {
	var zero T
	if *value == zero {
		*value = fallback
	}
}

func (c *Config) applyDefaults() {
	orDefault(&c.TargetURL, onewechat.DefaultTargetURL)
	orDefault(&c.Port, 5000)
	orDefault(&c.Timezone, "Asia/Shanghai")
	orDefault(&c.DebugDir, filepath.Join(DataDir(), "debug"))

	orDefault(&c.Refresh.StalenessSeconds, 300)
	orDefault(&c.Refresh.IntervalSeconds, 300)

	orDefault(&c.Timing.SettleSeconds, 5)
	orDefault(&c.Timing.LoginSettleSeconds, 8)
	orDefault(&c.Timing.NavigationSettleSeconds, 8)
	orDefault(&c.Timing.HybridPauseSeconds, 2)
	orDefault(&c.Timing.WaitTimeoutSeconds, 10)
	orDefault(&c.Timing.RunTimeoutSeconds, 180)

	orDefault(&c.Browser.UserAgent, defaultUserAgent)
	orDefault(&c.Browser.WindowWidth, 1400)
	orDefault(&c.Browser.WindowHeight, 900)
	orDefault(&c.Browser.LaunchTimeoutSeconds, 30)
	orDefault(&c.Browser.ActionTimeoutSeconds, 30)

	if c.History.Url == "" {
		orDefault(&c.History.File, filepath.Join(DataDir(), "history.db"))
	}
	orDefault(&c.History.RetentionDays, 30)
}

func (c Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if c.Refresh.StalenessSeconds < 0 || c.Refresh.IntervalSeconds < 0 {
		return fmt.Errorf("refresh durations must not be negative")
	}
	if c.Timing.RunTimeoutSeconds < 0 || c.Browser.ActionTimeoutSeconds < 0 {
		return fmt.Errorf("timeouts must not be negative")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("timezone: %w", err)
	}
	return nil
}

// Load reads path (a missing file is not an error), fills in defaults and
// applies environment overrides. .env in the working directory is loaded
// first.
func Load(path string) (Config, error) {
	err := configutil.LoadDotenv(".env")
	if err != nil {
		return Config{}, err
	}

	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	configutil.OverrideFromEnv(&cfg.Credentials.Identifier, EnvIdentifier)
	configutil.OverrideFromEnv(&cfg.Credentials.Secret, EnvSecret)
	configutil.OverrideFromEnv(&cfg.TargetURL, EnvTargetURL)
	configutil.OverrideFromEnv(&cfg.AccessToken, EnvToken)

	cfg.applyDefaults()
	err = cfg.validate()
	if err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func seconds(n int) time.Duration {
	return time.Duration(n) * time.Second
}

func (c Config) Staleness() time.Duration {
	return seconds(c.Refresh.StalenessSeconds)
}

func (c Config) RefreshInterval() time.Duration {
	return seconds(c.Refresh.IntervalSeconds)
}

func (c Config) Retention() time.Duration {
	return time.Duration(c.History.RetentionDays) * 24 * time.Hour
}

func (c Config) RunTimeout() time.Duration {
	return seconds(c.Timing.RunTimeoutSeconds)
}

func (c Config) ScraperTiming() onewechat.Timing {
	return onewechat.Timing{
		Settle:           seconds(c.Timing.SettleSeconds),
		LoginSettle:      seconds(c.Timing.LoginSettleSeconds),
		NavigationSettle: seconds(c.Timing.NavigationSettleSeconds),
		HybridPause:      seconds(c.Timing.HybridPauseSeconds),
		WaitTimeout:      seconds(c.Timing.WaitTimeoutSeconds),
	}
}

func (c Config) ScraperCredentials() onewechat.Credentials {
	return onewechat.Credentials{
		Identifier: c.Credentials.Identifier,
		Secret:     c.Credentials.Secret,
	}
}

func (c Config) ChromeOptions() browser.ChromeOptions {
	return browser.ChromeOptions{
		Headless:      !c.Browser.Headful,
		ExecPath:      c.Browser.ExecPath,
		UserAgent:     c.Browser.UserAgent,
		WindowWidth:   c.Browser.WindowWidth,
		WindowHeight:  c.Browser.WindowHeight,
		LaunchTimeout: seconds(c.Browser.LaunchTimeoutSeconds),
		ActionTimeout: seconds(c.Browser.ActionTimeoutSeconds),
	}
}
