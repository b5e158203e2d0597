package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://data.cityofchicago.org/resource/66wz-dkef.json", cfg.SODAURL)
	assert.Equal(t, 14, cfg.FetchDays)
	assert.Equal(t, 3, cfg.FetchRetries)
	assert.Equal(t, 30*time.Second, cfg.PortalTimeout)
	assert.Equal(t, "data/digbot.db", cfg.DBPath)
	assert.Equal(t, "output", cfg.OutputDir)
	assert.Equal(t, 730, cfg.WindowDays)
	assert.Equal(t, 14, cfg.MinHistoryDays)
	assert.True(t, cfg.ExcludeHolidays)
	assert.Equal(t, 5, cfg.LeaderboardSize)
	assert.Equal(t, 10, cfg.MinRecordsThreshold)
	assert.Equal(t, "America/Chicago", cfg.Timezone)
	assert.Equal(t, "America/Chicago", cfg.Location.String())
	assert.Equal(t, "https://bsky.social", cfg.BlueskyHost)
	assert.False(t, cfg.TestMode)
	assert.False(t, cfg.PostingEnabled())
	assert.Equal(t, "https://nominatim.openstreetmap.org", cfg.NominatimURL)
	assert.Equal(t, 1000, cfg.GeocodeCacheSize)
	assert.False(t, cfg.FirehoseEnabled)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, "0 10 * * *", cfg.DailySchedule)
	assert.Equal(t, "0 */3 * * *", cfg.RouletteSchedule)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_CustomEnv(t *testing.T) {
	t.Setenv("SODA_URL", "https://example.test/resource/abcd-1234.json")
	t.Setenv("SODA_APP_TOKEN", "token123")
	t.Setenv("FETCH_DAYS", "7")
	t.Setenv("WINDOW_DAYS", "365")
	t.Setenv("MIN_HISTORY_DAYS", "5")
	t.Setenv("EXCLUDE_HOLIDAYS", "false")
	t.Setenv("LEADERBOARD_SIZE", "3")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("BLUESKY_HANDLE", "digbot.example.test")
	t.Setenv("BLUESKY_PASSWORD", "app-password")
	t.Setenv("KAFKA_BROKERS", "broker1:9092, broker2:9092")
	t.Setenv("KAFKA_TOPIC", "custom-tickets")
	t.Setenv("DAILY_SCHEDULE", "30 9 * * *")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FORMAT", "text")
	t.Setenv("SHUTDOWN_TIMEOUT", "30s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "https://example.test/resource/abcd-1234.json", cfg.SODAURL)
	assert.Equal(t, "token123", cfg.SODAAppToken)
	assert.Equal(t, 7, cfg.FetchDays)
	assert.Equal(t, 365, cfg.WindowDays)
	assert.Equal(t, 5, cfg.MinHistoryDays)
	assert.False(t, cfg.ExcludeHolidays)
	assert.Equal(t, 3, cfg.LeaderboardSize)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.True(t, cfg.PostingEnabled())
	assert.True(t, cfg.FirehoseEnabled)
	assert.Equal(t, []string{"broker1:9092", "broker2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "custom-tickets", cfg.KafkaTopic)
	assert.Equal(t, "30 9 * * *", cfg.DailySchedule)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, 30*time.Second, cfg.ShutdownTimeout)
}

func TestLoad_TestModeSkipsCredentialCheck(t *testing.T) {
	t.Setenv("TEST_MODE", "true")
	t.Setenv("BLUESKY_HANDLE", "digbot.example.test")
	// No password set: fine in test mode, nothing gets posted.

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.TestMode)
	assert.False(t, cfg.PostingEnabled())
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
	}{
		{"invalid fetch days", "FETCH_DAYS", "zero"},
		{"zero fetch days", "FETCH_DAYS", "0"},
		{"negative window", "WINDOW_DAYS", "-1"},
		{"negative min history", "MIN_HISTORY_DAYS", "-2"},
		{"invalid timezone", "TIMEZONE", "Mars/Olympus_Mons"},
		{"invalid shutdown timeout", "SHUTDOWN_TIMEOUT", "not-a-duration"},
		{"negative shutdown timeout", "SHUTDOWN_TIMEOUT", "-1s"},
		{"handle without password", "BLUESKY_HANDLE", "digbot.example.test"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv(tt.key, tt.value)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadAliases(t *testing.T) {
	path := filepath.Join(t.TempDir(), "aliases.yaml")
	content := "COMED: ComEd\n\"COMMONWEALTH EDISON\": ComEd\n\"PEOPLES GAS\": Peoples Gas\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	aliases, err := LoadAliases(path)
	require.NoError(t, err)
	assert.Equal(t, "ComEd", aliases["COMED"])
	assert.Equal(t, "ComEd", aliases["COMMONWEALTH EDISON"])
	assert.Equal(t, "Peoples Gas", aliases["PEOPLES GAS"])
}

func TestLoadAliases_MissingFileIsEmpty(t *testing.T) {
	aliases, err := LoadAliases(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)
	assert.Empty(t, aliases)
}

func TestLoadHolidays(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	content := "- \"2024-01-01\"\n- \"2024-07-04\"\n- \"2024-12-25\"\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	holidays, err := LoadHolidays(path)
	require.NoError(t, err)
	require.Len(t, holidays, 3)
	assert.True(t, holidays[time.Date(2024, 7, 4, 0, 0, 0, 0, time.UTC)])
}

func TestLoadHolidays_BadDate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "holidays.yaml")
	require.NoError(t, os.WriteFile(path, []byte("- \"not-a-date\"\n"), 0o600))

	_, err := LoadHolidays(path)
	assert.Error(t, err)
}
