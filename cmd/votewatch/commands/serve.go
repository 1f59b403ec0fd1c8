package commands

import (
	"context"
	"log/slog"
	"time"

	"votewatch/internal/browser"
	"votewatch/internal/components/chrono"
	"votewatch/internal/components/telemetry"
	"votewatch/internal/httpapi"
	"votewatch/internal/refresh"
	"votewatch/lib/serviceutil"

	"github.com/spf13/cobra"
)

const (
	report_serve_prune = "serve.prune"
	perfStatsInterval  = 15 * time.Second
)

func init() {
	rootCmd.AddCommand(serveCmd)
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Keeps the vote tally fresh in the background and serves it over http.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		cfg := mustLoadConfig()

		otel, err := telemetry.Setup(ctx, "votewatch", cfg.Telemetry)
		if err != nil {
			serviceutil.Fatal("failed to setup telemetry", err)
		}
		defer func() {
			err := otel.Shutdown(context.Background())
			if err != nil {
				slog.Warn("failed to shutdown telemetry", "err", err)
			}
		}()

		var tel telemetry.API = telemetry.NewMeteredAPI(telemetry.SlogAPI{})
		telemetry.InstrumentPerfStats(ctx, tel, perfStatsInterval)

		timeAPI, err := chrono.NewStandardTime(cfg.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}
		location, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			serviceutil.Fatal("failed to load timezone", err)
		}

		launch := browser.ChromeLauncher(cfg.ChromeOptions(), tel)
		session, err := launch(ctx)
		if err != nil {
			serviceutil.Fatal("failed to start browser", err)
		}
		err = session.Close()
		if err != nil {
			serviceutil.Fatal("failed to close browser", err)
		}

		store, closeStore, err := openHistory(ctx, cfg, timeAPI)
		if err != nil {
			serviceutil.Fatal("failed to open history", err)
		}
		defer closeStore()

		scraper, err := newScraper(cfg, launch, store, timeAPI, tel)
		if err != nil {
			serviceutil.Fatal("failed to create scraper", err)
		}
		cache := refresh.NewCache(scraper, cfg.Staleness(), timeAPI, tel)

		cron := chrono.NewStandardCron(tel, location)
		defer cron.Stop()
		err = cache.StartDaemon(ctx, cron, cfg.RefreshInterval())
		if err != nil {
			serviceutil.Fatal("failed to start refresh daemon", err)
		}

		opts := httpapi.Options{
			Status:      cache,
			AccessToken: cfg.AccessToken,
		}
		if store != nil {
			opts.History = store
			err = cron.Cron("@daily", func() {
				cutoff := timeAPI.Now().Add(-cfg.Retention())
				deleted, err := store.Prune(ctx, cutoff)
				if err != nil {
					tel.ReportWarning(report_serve_prune, err)
					return
				}
				tel.ReportCount(report_serve_prune, deleted)
			})
			if err != nil {
				serviceutil.Fatal("failed to schedule history pruning", err)
			}
		}

		server, err := httpapi.NewServer(cache, opts, tel)
		if err != nil {
			serviceutil.Fatal("failed to create http server", err)
		}
		err = serviceutil.StartHttpServer(ctx, cfg.Port, server.Handler())
		if err != nil {
			serviceutil.Fatal("http server stopped", err)
		}
	},
}
