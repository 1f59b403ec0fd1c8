package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"votewatch/internal/scrapers/onewechat"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvSecret, "")
	t.Setenv(EnvTargetURL, "")
	t.Setenv(EnvToken, "")

	cfg, err := Load(DefaultFile)
	require.NoError(t, err)

	require.Equal(t, onewechat.DefaultTargetURL, cfg.TargetURL)
	require.Equal(t, 5000, cfg.Port)
	require.Empty(t, cfg.AccessToken)
	require.Equal(t, 300*time.Second, cfg.Staleness())
	require.Equal(t, 300*time.Second, cfg.RefreshInterval())
	require.Equal(t, onewechat.DefaultTiming(), cfg.ScraperTiming())
	require.Equal(t, onewechat.DefaultRunTimeout, cfg.RunTimeout())
	require.Equal(t, filepath.Join(DataDir(), "history.db"), cfg.History.File)
	require.Equal(t, 30*24*time.Hour, cfg.Retention())

	chrome := cfg.ChromeOptions()
	require.True(t, chrome.Headless)
	require.Equal(t, 1400, chrome.WindowWidth)
	require.Equal(t, 900, chrome.WindowHeight)
	require.Equal(t, 30*time.Second, chrome.ActionTimeout)
}

func TestLoadFileAndEnv(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(`{
		port: 8080,
		credentials: {identifier: "202211061234", secret: "from-file"},
		refresh: {staleness_seconds: 60},
		timing: {run_timeout_seconds: 45},
		browser: {headful: true, action_timeout_seconds: 12},
		history: {url: "libsql://votes.example.turso.io", auth_token: "token"},
	}`), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte(EnvSecret+"=from-dotenv\n"), 0o600))
	t.Setenv(EnvIdentifier, "")
	t.Setenv(EnvSecret, "")
	require.NoError(t, os.Unsetenv(EnvSecret))

	cfg, err := Load(DefaultFile)
	require.NoError(t, err)

	require.Equal(t, 8080, cfg.Port)
	require.Equal(t, "202211061234", cfg.Credentials.Identifier)
	require.Equal(t, "from-dotenv", cfg.Credentials.Secret)
	require.Equal(t, time.Minute, cfg.Staleness())
	require.False(t, cfg.ChromeOptions().Headless)
	require.Equal(t, 12*time.Second, cfg.ChromeOptions().ActionTimeout)
	require.Equal(t, 45*time.Second, cfg.RunTimeout())
	require.True(t, cfg.History.Remote())
	require.Empty(t, cfg.History.File)
}

func TestLoadInvalid(t *testing.T) {
	testCases := []struct {
		name string
		file string
	}{
		{name: "unknown timezone", file: `{timezone: "Mars/Olympus"}`},
		{name: "negative run timeout", file: `{timing: {run_timeout_seconds: -1}}`},
	}

	for _, test := range testCases {
		t.Run(test.name, func(t *testing.T) {
			dir := t.TempDir()
			t.Chdir(dir)
			require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultFile), []byte(test.file), 0o600))

			_, err := Load(DefaultFile)
			require.Error(t, err)
		})
	}
}
