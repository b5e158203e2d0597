package config

import (
	"errors"
	"fmt"
	"os"
	"time"
)

// Chicago's 811 dig ticket dataset on the city's Socrata portal. The SODA
// endpoint serves incremental JSON queries; the CSV export serves the full
// dataset for backfills.
const (
	defaultSODAURL = "https://data.cityofchicago.org/resource/66wz-dkef.json"
	defaultCSVURL  = "https://data.cityofchicago.org/api/views/66wz-dkef/rows.csv?accessType=DOWNLOAD"
)

// Config holds all service settings, populated from environment variables.
type Config struct {
	// Data portal.
	SODAURL       string
	CSVURL        string
	SODAAppToken  string
	FetchDays     int
	FetchRetries  int
	PortalTimeout time.Duration

	// Storage.
	DBPath    string
	OutputDir string

	// Aggregation.
	WindowDays          int
	MinHistoryDays      int
	ExcludeHolidays     bool
	HolidaysFile        string
	AliasFile           string
	LeaderboardSize     int
	MinRecordsThreshold int

	// Timezone is the civic timezone the report day is anchored to.
	Timezone string
	Location *time.Location

	// Bluesky.
	BlueskyHost     string
	BlueskyHandle   string
	BlueskyPassword string
	TestMode        bool

	// Dig roulette.
	StreetViewKey    string
	NominatimURL     string
	GeocodeTimeout   time.Duration
	GeocodeCacheSize int

	// Optional Kafka firehose of newly ingested tickets.
	FirehoseEnabled bool
	KafkaBrokers    []string
	KafkaTopic      string

	// Scheduling. Cron expressions evaluated in Location.
	DailySchedule    string
	RouletteSchedule string

	HTTPAddr        string
	LogLevel        string
	LogFormat       string
	ShutdownTimeout time.Duration
}

// Load reads configuration from environment variables, applying defaults where unset.
func Load() (*Config, error) {
	fetchDays, err := envPositiveInt("FETCH_DAYS", 14)
	if err != nil {
		return nil, err
	}
	fetchRetries, err := envInt("FETCH_RETRIES", 3)
	if err != nil {
		return nil, err
	}
	portalTimeout, err := envDuration("PORTAL_TIMEOUT", 30*time.Second)
	if err != nil {
		return nil, err
	}
	windowDays, err := envPositiveInt("WINDOW_DAYS", 730)
	if err != nil {
		return nil, err
	}
	minHistoryDays, err := envInt("MIN_HISTORY_DAYS", 14)
	if err != nil {
		return nil, err
	}
	leaderboardSize, err := envPositiveInt("LEADERBOARD_SIZE", 5)
	if err != nil {
		return nil, err
	}
	minRecords, err := envInt("MIN_RECORDS_THRESHOLD", 10)
	if err != nil {
		return nil, err
	}
	geocodeTimeout, err := envDuration("GEOCODE_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}
	geocodeCacheSize, err := envPositiveInt("GEOCODE_CACHE_SIZE", 1000)
	if err != nil {
		return nil, err
	}
	shutdownTimeout, err := envDuration("SHUTDOWN_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	timezone := envOrDefault("TIMEZONE", "America/Chicago")
	location, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", timezone, err)
	}

	brokers := parseBrokers(os.Getenv("KAFKA_BROKERS"))

	cfg := &Config{
		SODAURL:       envOrDefault("SODA_URL", defaultSODAURL),
		CSVURL:        envOrDefault("CSV_URL", defaultCSVURL),
		SODAAppToken:  os.Getenv("SODA_APP_TOKEN"),
		FetchDays:     fetchDays,
		FetchRetries:  fetchRetries,
		PortalTimeout: portalTimeout,

		DBPath:    envOrDefault("DB_PATH", "data/digbot.db"),
		OutputDir: envOrDefault("OUTPUT_DIR", "output"),

		WindowDays:          windowDays,
		MinHistoryDays:      minHistoryDays,
		ExcludeHolidays:     envBool("EXCLUDE_HOLIDAYS", true),
		HolidaysFile:        os.Getenv("HOLIDAYS_FILE"),
		AliasFile:           os.Getenv("ALIAS_FILE"),
		LeaderboardSize:     leaderboardSize,
		MinRecordsThreshold: minRecords,

		Timezone: timezone,
		Location: location,

		BlueskyHost:     envOrDefault("BLUESKY_HOST", "https://bsky.social"),
		BlueskyHandle:   os.Getenv("BLUESKY_HANDLE"),
		BlueskyPassword: os.Getenv("BLUESKY_PASSWORD"),
		TestMode:        envBool("TEST_MODE", false),

		StreetViewKey:    os.Getenv("STREETVIEW_API_KEY"),
		NominatimURL:     envOrDefault("NOMINATIM_URL", "https://nominatim.openstreetmap.org"),
		GeocodeTimeout:   geocodeTimeout,
		GeocodeCacheSize: geocodeCacheSize,

		FirehoseEnabled: len(brokers) > 0,
		KafkaBrokers:    brokers,
		KafkaTopic:      envOrDefault("KAFKA_TOPIC", "dig-tickets"),

		DailySchedule:    envOrDefault("DAILY_SCHEDULE", "0 10 * * *"),
		RouletteSchedule: envOrDefault("ROULETTE_SCHEDULE", "0 */3 * * *"),

		HTTPAddr:        envOrDefault("HTTP_ADDR", ":8080"),
		LogLevel:        envOrDefault("LOG_LEVEL", "info"),
		LogFormat:       envOrDefault("LOG_FORMAT", "json"),
		ShutdownTimeout: shutdownTimeout,
	}

	if cfg.SODAURL == "" {
		return nil, errors.New("SODA_URL is required")
	}
	if minHistoryDays < 0 {
		return nil, errors.New("MIN_HISTORY_DAYS must be non-negative")
	}
	if minRecords < 0 {
		return nil, errors.New("MIN_RECORDS_THRESHOLD must be non-negative")
	}
	if fetchRetries < 0 {
		return nil, errors.New("FETCH_RETRIES must be non-negative")
	}
	if !cfg.TestMode && (cfg.BlueskyHandle == "") != (cfg.BlueskyPassword == "") {
		return nil, errors.New("BLUESKY_HANDLE and BLUESKY_PASSWORD must be set together")
	}

	return cfg, nil
}

// PostingEnabled reports whether runs should publish to Bluesky instead of
// logging the rendered thread.
func (c *Config) PostingEnabled() bool {
	return !c.TestMode && c.BlueskyHandle != "" && c.BlueskyPassword != ""
}
