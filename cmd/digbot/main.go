// Command digbot runs the Chicago dig ticket report bot: scheduled fetches
// from the city data portal, daily statistics threads, and the dig roulette
// street view post, with health and metrics endpoints.
package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/couchcryptid/chicago-dig-bot/internal/adapter/bluesky"
	httpadapter "github.com/couchcryptid/chicago-dig-bot/internal/adapter/http"
	kafkaadapter "github.com/couchcryptid/chicago-dig-bot/internal/adapter/kafka"
	"github.com/couchcryptid/chicago-dig-bot/internal/adapter/portal"
	"github.com/couchcryptid/chicago-dig-bot/internal/adapter/streetview"
	"github.com/couchcryptid/chicago-dig-bot/internal/analytics"
	"github.com/couchcryptid/chicago-dig-bot/internal/config"
	"github.com/couchcryptid/chicago-dig-bot/internal/observability"
	"github.com/couchcryptid/chicago-dig-bot/internal/pipeline"
	"github.com/couchcryptid/chicago-dig-bot/internal/scheduler"
	"github.com/couchcryptid/chicago-dig-bot/internal/store"
)

func main() {
	once := flag.Bool("once", false, "run the daily report once and exit")
	rouletteOnce := flag.Bool("roulette", false, "post one dig roulette and exit")
	flag.Parse()

	// Optional; production sets real environment variables.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.LogLevel, cfg.LogFormat)
	metrics := observability.NewMetrics()

	st, err := store.Open(cfg.DBPath)
	if err != nil {
		logger.Error("failed to open store", "path", cfg.DBPath, "error", err)
		os.Exit(1)
	}
	defer st.Close()

	job, closers, err := buildJob(cfg, st, logger, metrics)
	if err != nil {
		logger.Error("failed to assemble job", "error", err)
		os.Exit(1)
	}
	defer func() {
		for _, c := range closers {
			if err := c.Close(); err != nil {
				logger.Error("close error", "error", err)
			}
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := job.Run(ctx); err != nil {
			logger.Error("daily run failed", "error", err)
			os.Exit(1)
		}
		return
	}
	if *rouletteOnce {
		if err := job.Roulette(ctx); err != nil {
			logger.Error("roulette run failed", "error", err)
			os.Exit(1)
		}
		return
	}

	sched := scheduler.New(ctx, cfg.Location, logger)
	if err := sched.Add(cfg.DailySchedule, "daily", func(ctx context.Context) error {
		return job.RunWithRetry(ctx, 3)
	}); err != nil {
		logger.Error("failed to schedule daily job", "error", err)
		os.Exit(1)
	}
	if err := sched.Add(cfg.RouletteSchedule, "roulette", job.Roulette); err != nil {
		logger.Error("failed to schedule roulette job", "error", err)
		os.Exit(1)
	}

	srv := httpadapter.NewServer(cfg.HTTPAddr, job, job, logger)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", "error", err)
		}
	}()

	sched.Start()
	logger.Info("digbot running",
		"daily_schedule", cfg.DailySchedule,
		"roulette_schedule", cfg.RouletteSchedule,
		"timezone", cfg.Timezone,
		"posting", cfg.PostingEnabled())

	<-ctx.Done()
	logger.Info("shutting down")

	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown error", "error", err)
	}

	logger.Info("shutdown complete")
}

type closer interface {
	Close() error
}

// buildJob assembles the daily job from configuration. Returned closers
// must be closed on shutdown.
func buildJob(cfg *config.Config, st *store.Store, logger *slog.Logger, metrics *observability.Metrics) (*pipeline.Job, []closer, error) {
	aliases, err := config.LoadAliases(cfg.AliasFile)
	if err != nil {
		return nil, nil, err
	}
	holidays, err := config.LoadHolidays(cfg.HolidaysFile)
	if err != nil {
		return nil, nil, err
	}

	fetcher := portal.NewClient(cfg.SODAURL, cfg.CSVURL, cfg.SODAAppToken, cfg.PortalTimeout, cfg.FetchRetries, logger)

	var publisher pipeline.Publisher
	if cfg.PostingEnabled() {
		publisher = bluesky.NewClient(cfg.BlueskyHost, cfg.BlueskyHandle, cfg.BlueskyPassword, logger)
	} else {
		logger.Info("posting disabled, threads will be logged only")
		publisher = &bluesky.DryRun{Logger: logger}
	}

	var firehose pipeline.Firehose
	var closers []closer
	if cfg.FirehoseEnabled {
		f := kafkaadapter.NewFirehose(cfg.KafkaBrokers, cfg.KafkaTopic, logger)
		firehose = f
		closers = append(closers, f)
		logger.Info("firehose enabled", "topic", cfg.KafkaTopic, "brokers", cfg.KafkaBrokers)
	}

	var geocoder streetview.Geocoder
	var images pipeline.ImageFetcher
	if cfg.StreetViewKey != "" {
		nominatim := streetview.NewNominatimClient(cfg.NominatimURL, cfg.GeocodeTimeout, logger)
		geocoder = streetview.NewCachedGeocoder(nominatim, cfg.GeocodeCacheSize)
		images = streetview.NewClient(cfg.StreetViewKey, cfg.OutputDir, cfg.GeocodeTimeout, logger)
	} else {
		logger.Info("street view disabled, roulette posts will be text only")
	}

	jobCfg := pipeline.Config{
		Analytics: analytics.Config{
			WindowDays:      cfg.WindowDays,
			MinHistoryDays:  cfg.MinHistoryDays,
			ExcludeHolidays: cfg.ExcludeHolidays,
			Holidays:        holidays,
			Aliases:         aliases,
		},
		FetchDays:           cfg.FetchDays,
		MinRecordsThreshold: cfg.MinRecordsThreshold,
		LeaderboardSize:     cfg.LeaderboardSize,
		OutputDir:           cfg.OutputDir,
		Location:            cfg.Location,
	}

	return pipeline.NewJob(fetcher, st, publisher, firehose, geocoder, images, jobCfg, logger, metrics), closers, nil
}
