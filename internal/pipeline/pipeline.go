// Package pipeline orchestrates the bot's two jobs. The daily job fetches
// recent tickets from the portal, stores them, computes the day's statistics
// against the historical baseline, renders the images, and posts the thread.
// The roulette job draws one of yesterday's tickets and posts its street
// view photo.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/adapter/streetview"
	"github.com/couchcryptid/chicago-dig-bot/internal/analytics"
	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
	"github.com/couchcryptid/chicago-dig-bot/internal/observability"
	"github.com/couchcryptid/chicago-dig-bot/internal/report"
	"github.com/couchcryptid/chicago-dig-bot/internal/store"
)

// ErrInsufficientData marks a store too small to compute statistics from,
// usually a failed or partial backfill. The run aborts rather than posting
// numbers computed over a broken dataset.
var ErrInsufficientData = errors.New("insufficient records in store")

// Fetcher pulls recent tickets from the data portal.
type Fetcher interface {
	FetchRecent(ctx context.Context, since time.Time) ([]domain.PermitRecord, error)
}

// RecordStore is the slice of the SQLite store the jobs need.
type RecordStore interface {
	UpsertPermits(ctx context.Context, records []domain.PermitRecord) (store.UpsertResult, error)
	CountPermits(ctx context.Context) (int, error)
	PermitsInRange(ctx context.Context, from, to time.Time) ([]domain.PermitRecord, error)
	DailyCounts(ctx context.Context, from, to time.Time) ([]domain.DayCount, error)
	RandomPermitOn(ctx context.Context, day time.Time) (domain.PermitRecord, error)
	SetLastFetch(ctx context.Context, t time.Time) error
}

// Publisher posts a thread to the social network.
type Publisher interface {
	PostThread(ctx context.Context, posts []domain.Post) error
}

// Firehose publishes newly ingested tickets downstream.
type Firehose interface {
	PublishNew(ctx context.Context, records []domain.PermitRecord) error
}

// ImageFetcher downloads a street-level photo of a dig site.
type ImageFetcher interface {
	FetchImage(ctx context.Context, lat, lon float64, name string) (string, error)
}

// Config carries the job parameters derived from the service configuration.
type Config struct {
	Analytics           analytics.Config
	FetchDays           int
	MinRecordsThreshold int
	LeaderboardSize     int
	OutputDir           string
	Location            *time.Location
}

// Job wires the adapters together. The firehose, geocoder, and image fetcher
// are optional; the job degrades gracefully without them.
type Job struct {
	fetcher   Fetcher
	store     RecordStore
	publisher Publisher
	firehose  Firehose
	geocoder  streetview.Geocoder
	images    ImageFetcher

	cfg     Config
	logger  *slog.Logger
	metrics *observability.Metrics

	ready atomic.Bool

	mu      sync.Mutex
	lastRun RunSummary

	// Retry pacing for RunWithRetry. Tests shrink these.
	retryInitial time.Duration
	retryMax     time.Duration
}

// RunSummary captures the outcome of the last daily run for /statusz.
type RunSummary struct {
	CompletedAt  time.Time `json:"completed_at"`
	TargetDate   string    `json:"target_date"`
	Fetched      int       `json:"fetched"`
	Inserted     int       `json:"inserted"`
	Updated      int       `json:"updated"`
	TotalPermits int       `json:"total_permits"`
	Posted       int       `json:"posted"`
}

// NewJob creates the job. firehose, geocoder, and images may be nil.
func NewJob(fetcher Fetcher, recordStore RecordStore, publisher Publisher, firehose Firehose,
	geocoder streetview.Geocoder, images ImageFetcher,
	cfg Config, logger *slog.Logger, metrics *observability.Metrics) *Job {
	return &Job{
		fetcher:      fetcher,
		store:        recordStore,
		publisher:    publisher,
		firehose:     firehose,
		geocoder:     geocoder,
		images:       images,
		cfg:          cfg,
		logger:       logger,
		metrics:      metrics,
		retryInitial: time.Minute,
		retryMax:     15 * time.Minute,
	}
}

// CheckReadiness returns nil once a daily run has completed since startup.
func (j *Job) CheckReadiness(_ context.Context) error {
	if !j.ready.Load() {
		return errors.New("no successful daily run yet")
	}
	return nil
}

// Status returns the last run summary for the status endpoint.
func (j *Job) Status() any {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.lastRun
}

// Run executes one daily cycle. A day with no portal data is a skip, not an
// error; a store below the minimum record threshold aborts the run before
// anything is posted.
func (j *Job) Run(ctx context.Context) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		j.metrics.RunsTotal.WithLabelValues("daily", outcome).Inc()
		j.metrics.RunDuration.WithLabelValues("daily").Observe(time.Since(start).Seconds())
	}()

	now := domain.Now()
	since := now.AddDate(0, 0, -j.cfg.FetchDays)

	records, err := j.fetcher.FetchRecent(ctx, since)
	if err != nil {
		j.metrics.FetchErrors.Inc()
		return fmt.Errorf("fetch recent tickets: %w", err)
	}
	if len(records) == 0 {
		j.logger.Warn("portal returned no tickets, skipping run", "since", domain.FormatDate(since))
		outcome = "skipped"
		return nil
	}
	j.metrics.RecordsFetched.Add(float64(len(records)))

	upsert, err := j.store.UpsertPermits(ctx, records)
	if err != nil {
		return fmt.Errorf("store tickets: %w", err)
	}
	j.metrics.RecordsInserted.Add(float64(upsert.Inserted))
	j.metrics.RecordsUpdated.Add(float64(upsert.Updated))
	if err := j.store.SetLastFetch(ctx, now); err != nil {
		j.logger.Warn("failed to record fetch time", "error", err)
	}
	j.logger.Info("tickets stored",
		"fetched", len(records), "inserted", upsert.Inserted, "updated", upsert.Updated)

	total, err := j.store.CountPermits(ctx)
	if err != nil {
		return fmt.Errorf("count tickets: %w", err)
	}
	if total < j.cfg.MinRecordsThreshold {
		return fmt.Errorf("%w: %d stored, need %d", ErrInsufficientData, total, j.cfg.MinRecordsThreshold)
	}

	target := domain.Yesterday(j.cfg.Location)
	windowStart := target.AddDate(0, 0, -j.cfg.Analytics.WindowDays)
	windowRecords, err := j.store.PermitsInRange(ctx, windowStart, target.AddDate(0, 0, 1))
	if err != nil {
		return fmt.Errorf("load window: %w", err)
	}

	cmp, err := analytics.Compute(windowRecords, target, j.cfg.Analytics)
	if err != nil {
		return fmt.Errorf("compute comparison: %w", err)
	}
	stats := analytics.DailyStatsFor(windowRecords, target, j.cfg.Analytics.Aliases)

	heatmapPath, chartPath := j.renderImages(ctx, windowRecords, target)

	posts := report.BuildThread(cmp, stats, j.cfg.LeaderboardSize, heatmapPath, chartPath)
	if err := j.publisher.PostThread(ctx, posts); err != nil {
		j.metrics.PostErrors.Inc()
		return fmt.Errorf("post thread: %w", err)
	}
	j.metrics.PostsPublished.Add(float64(len(posts)))

	j.publishFirehose(ctx, upsert.NewRecords)

	j.ready.Store(true)
	j.metrics.LastRunTimestamp.SetToCurrentTime()
	j.mu.Lock()
	j.lastRun = RunSummary{
		CompletedAt:  time.Now().UTC(),
		TargetDate:   domain.FormatDate(target),
		Fetched:      len(records),
		Inserted:     upsert.Inserted,
		Updated:      upsert.Updated,
		TotalPermits: stats.TotalPermits,
		Posted:       len(posts),
	}
	j.mu.Unlock()

	outcome = "success"
	j.logger.Info("daily run complete", "target", domain.FormatDate(target), "posts", len(posts))
	return nil
}

// renderImages draws the heatmap and trend chart, returning empty paths on
// failure. A ruined image never blocks the thread.
func (j *Job) renderImages(ctx context.Context, windowRecords []domain.PermitRecord, target time.Time) (heatmapPath, chartPath string) {
	var targetDay []domain.PermitRecord
	for _, rec := range windowRecords {
		if rec.EventDate().Equal(target) {
			targetDay = append(targetDay, rec)
		}
	}

	heatmapPath = filepath.Join(j.cfg.OutputDir, "heatmap.png")
	if err := report.RenderHeatmap(targetDay, heatmapPath); err != nil {
		j.logger.Warn("heatmap render failed, posting without it", "error", err)
		heatmapPath = ""
	}

	chartPath = filepath.Join(j.cfg.OutputDir, "trend.png")
	counts, err := j.store.DailyCounts(ctx, target.AddDate(0, 0, -29), target.AddDate(0, 0, 1))
	if err == nil {
		err = report.RenderTrendChart(counts, chartPath)
	}
	if err != nil {
		j.logger.Warn("trend chart failed, posting without it", "error", err)
		chartPath = ""
	}
	return heatmapPath, chartPath
}

func (j *Job) publishFirehose(ctx context.Context, newRecords []domain.PermitRecord) {
	if j.firehose == nil || len(newRecords) == 0 {
		return
	}
	if err := j.firehose.PublishNew(ctx, newRecords); err != nil {
		// Downstream consumers are best-effort; the thread already went out.
		j.metrics.FirehoseErrors.Inc()
		j.logger.Warn("firehose publish failed", "error", err, "records", len(newRecords))
		return
	}
	j.metrics.FirehoseMessages.Add(float64(len(newRecords)))
}

// RunWithRetry runs the daily cycle, retrying transient failures with
// exponential backoff. Insufficient data is not retried: the store will not
// grow until the next scheduled fetch.
func (j *Job) RunWithRetry(ctx context.Context, attempts int) error {
	backoff := j.retryInitial
	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = j.Run(ctx)
		if err == nil || errors.Is(err, ErrInsufficientData) || ctx.Err() != nil {
			return err
		}
		j.logger.Error("daily run failed", "attempt", attempt, "of", attempts, "error", err)
		if attempt < attempts {
			if !sleepWithContext(ctx, backoff) {
				return err
			}
			backoff = nextBackoff(backoff, j.retryMax)
		}
	}
	return err
}

// Roulette posts a random ticket from yesterday with its street view photo.
// A day without tickets is a skip.
func (j *Job) Roulette(ctx context.Context) error {
	start := time.Now()
	outcome := "error"
	defer func() {
		j.metrics.RunsTotal.WithLabelValues("roulette", outcome).Inc()
		j.metrics.RunDuration.WithLabelValues("roulette").Observe(time.Since(start).Seconds())
	}()

	target := domain.Yesterday(j.cfg.Location)
	rec, err := j.store.RandomPermitOn(ctx, target)
	if errors.Is(err, store.ErrNotFound) {
		j.logger.Info("no tickets yesterday, skipping roulette", "target", domain.FormatDate(target))
		outcome = "skipped"
		return nil
	}
	if err != nil {
		return fmt.Errorf("draw random ticket: %w", err)
	}

	imagePath := j.fetchSiteImage(ctx, rec)

	post := report.RoulettePost(rec, imagePath)
	if err := j.publisher.PostThread(ctx, []domain.Post{post}); err != nil {
		j.metrics.PostErrors.Inc()
		return fmt.Errorf("post roulette: %w", err)
	}
	j.metrics.PostsPublished.Inc()

	outcome = "success"
	j.logger.Info("roulette posted", "ticket", rec.DigTicketNumber)
	return nil
}

// fetchSiteImage resolves the ticket's location and downloads a street view
// photo. Any failure falls back to a text-only post.
func (j *Job) fetchSiteImage(ctx context.Context, rec domain.PermitRecord) string {
	if j.images == nil {
		return ""
	}

	lat, lon := rec.Latitude, rec.Longitude
	if !rec.HasValidCoordinates() {
		address := rec.Address()
		if j.geocoder == nil || address == "" {
			return ""
		}
		result, err := j.geocoder.ForwardGeocode(ctx, address)
		switch {
		case err != nil:
			j.metrics.GeocodeRequests.WithLabelValues("error").Inc()
			j.logger.Warn("geocode failed", "address", address, "error", err)
			return ""
		case !result.Found():
			j.metrics.GeocodeRequests.WithLabelValues("empty").Inc()
			return ""
		}
		j.metrics.GeocodeRequests.WithLabelValues("success").Inc()
		lat, lon = result.Lat, result.Lon
	}

	path, err := j.images.FetchImage(ctx, lat, lon, rec.Address())
	if err != nil {
		j.logger.Warn("street view fetch failed", "ticket", rec.DigTicketNumber, "error", err)
		return ""
	}
	return path
}

func nextBackoff(current, maxBackoff time.Duration) time.Duration {
	next := current * 2
	if next > maxBackoff {
		return maxBackoff
	}
	return next
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return true
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
