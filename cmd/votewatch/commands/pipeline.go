package commands

import (
	"context"
	"fmt"
	"log/slog"

	"votewatch/internal/browser"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/config"
	"votewatch/internal/history"
	"votewatch/internal/scrapers/onewechat"
)

// openHistory returns nil when history is disabled.
func openHistory(ctx context.Context, cfg config.Config, timeAPI chrono.TimeAPI) (*history.Store, func(), error) {
	if cfg.History.Disabled {
		return nil, func() {}, nil
	}
	database, err := cfg.History.OpenDB()
	if err != nil {
		return nil, nil, fmt.Errorf("open history: %w", err)
	}
	store := history.NewStore(database, timeAPI)
	err = store.Migrate(ctx)
	if err != nil {
		database.Close()
		return nil, nil, err
	}
	return &store, func() { database.Close() }, nil
}

func newScraper(
	cfg config.Config,
	launch browser.Launcher,
	store *history.Store,
	timeAPI chrono.TimeAPI,
	tel telemetry.API,
) (*onewechat.Scraper, error) {
	debug, err := browser.NewDebugOutput(cfg.DebugDir)
	if err != nil {
		return nil, err
	}

	creds := cfg.ScraperCredentials()
	if creds.Empty() {
		slog.Warn("no credentials configured, only pages without a login challenge can be read")
	}

	opts := onewechat.Options{
		Target:      cfg.TargetURL,
		Credentials: creds,
		Timing:      cfg.ScraperTiming(),
		Debug:       &debug,
		RunTimeout:  cfg.RunTimeout(),
	}
	if store != nil {
		opts.History = store
	}
	return onewechat.NewScraper(launch, opts, timeAPI, tel), nil
}
