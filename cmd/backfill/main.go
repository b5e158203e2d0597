// Command backfill downloads the full dig ticket dataset as CSV and rebuilds
// the local store from scratch. Run it once before the first scheduled run,
// or whenever the incremental store drifts from the portal.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/chicago-dig-bot/internal/adapter/portal"
	"github.com/couchcryptid/chicago-dig-bot/internal/config"
	"github.com/couchcryptid/chicago-dig-bot/internal/observability"
	"github.com/couchcryptid/chicago-dig-bot/internal/store"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	client := portal.NewClient(cfg.SODAURL, cfg.CSVURL, cfg.SODAAppToken, cfg.PortalTimeout, cfg.FetchRetries, logger)

	start := time.Now()
	logger.Info("downloading full dataset", "url", cfg.CSVURL)
	records, err := client.FetchFull(ctx)
	if err != nil {
		logger.Error("full download failed", "error", err)
		os.Exit(1)
	}
	logger.Info("download complete", "records", len(records), "elapsed", time.Since(start))

	stored, err := st.ReplaceAll(ctx, records)
	if err != nil {
		logger.Error("store rebuild failed", "error", err)
		os.Exit(1)
	}
	if err := st.SetLastFetch(ctx, time.Now().UTC()); err != nil {
		logger.Warn("failed to record fetch time", "error", err)
	}
	if err := st.Vacuum(); err != nil {
		logger.Warn("vacuum failed", "error", err)
	}

	logger.Info("backfill complete", "stored", stored, "path", cfg.DBPath, "elapsed", time.Since(start))
}
