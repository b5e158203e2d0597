package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// monday is the reference target day used throughout: 2024-01-08.
var monday = time.Date(2024, 1, 8, 0, 0, 0, 0, time.UTC)

func permit(day time.Time, emergency bool, contractor string) domain.PermitRecord {
	return domain.PermitRecord{
		DigTicketNumber: fmt.Sprintf("%s-%s-%v", contractor, day.Format("20060102"), emergency),
		DigDate:         day.Add(9 * time.Hour), // mid-morning, exercises day truncation
		IsEmergency:     emergency,
		ContactLastName: contractor,
	}
}

// mondayHistory builds n consecutive Mondays ending the week before the
// target, with the given emergency counts per Monday (regular count 1 each).
func mondayHistory(n int, emergencies func(i int) int) []domain.PermitRecord {
	var records []domain.PermitRecord
	for i := 0; i < n; i++ {
		day := monday.AddDate(0, 0, -7*(i+1))
		records = append(records, permit(day, false, "BASELINE DIGGERS"))
		for e := 0; e < emergencies(i); e++ {
			records = append(records, permit(day, true, "BASELINE DIGGERS"))
		}
	}
	return records
}

func TestCompute_EmptyRecords(t *testing.T) {
	result, err := Compute(nil, monday, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 0, result.ActualTotal)
	assert.Equal(t, 0, result.ActualEmergency)
	assert.Equal(t, 0, result.ActualRegular)
	assert.Zero(t, result.HistoricalAvgTotal)
	assert.Zero(t, result.DiffPercentTotal)
	assert.Empty(t, result.Leaderboard)
	assert.Empty(t, result.Newcomers)
	assert.Equal(t, 0, result.HistoricalDays)
	assert.True(t, result.LowConfidence)
	assert.Equal(t, "Monday", result.DayName)
}

func TestCompute_TotalsIdentity(t *testing.T) {
	records := append(mondayHistory(6, func(int) int { return 1 }),
		permit(monday, true, "A"),
		permit(monday, true, "B"),
		permit(monday, false, "C"),
		permit(monday, false, "C"),
	)

	result, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, result.ActualTotal, result.ActualEmergency+result.ActualRegular)
	assert.Equal(t, 4, result.ActualTotal)
	assert.Equal(t, 2, result.ActualEmergency)
}

func TestCompute_DiffZeroWhenNoHistory(t *testing.T) {
	// Records exist only on the target day, so every average is zero and the
	// percent differences must be defined as zero, not NaN or Inf.
	records := []domain.PermitRecord{
		permit(monday, true, "A"),
		permit(monday, false, "B"),
	}

	result, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)
	assert.Zero(t, result.HistoricalAvgTotal)
	assert.Zero(t, result.DiffPercentTotal)
	assert.Zero(t, result.DiffPercentEmergency)
	assert.Zero(t, result.DiffPercentRegular)
}

func TestCompute_DayOfWeekScenario(t *testing.T) {
	// 10 historical Mondays averaging 1.5 emergencies per day, then a target
	// Monday with 2 emergency + 1 regular.
	records := mondayHistory(10, func(i int) int {
		if i%2 == 0 {
			return 2
		}
		return 1
	})
	records = append(records,
		permit(monday, true, "A"),
		permit(monday, true, "B"),
		permit(monday, false, "C"),
	)

	result, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)

	assert.Equal(t, 3, result.ActualTotal)
	assert.Equal(t, 2, result.ActualEmergency)
	assert.Equal(t, 1, result.ActualRegular)
	assert.Equal(t, 10, result.HistoricalDays)
	assert.InDelta(t, 1.5, result.HistoricalAvgEmergency, 1e-9)
	assert.InDelta(t, 33.3333333, result.DiffPercentEmergency, 1e-6)
	// 1 regular per historical Monday.
	assert.InDelta(t, 1.0, result.HistoricalAvgRegular, 1e-9)
	assert.InDelta(t, 2.5, result.HistoricalAvgTotal, 1e-9)
	assert.InDelta(t, 20.0, result.DiffPercentTotal, 1e-6)
	assert.True(t, result.LowConfidence) // 10 < default minimum of 14
}

func TestCompute_QuietDaysCountAsZero(t *testing.T) {
	// Coverage starts three weeks back (a Tuesday record), but only one of
	// the three Mondays in that span has any tickets. The two quiet Mondays
	// drag the average down instead of being dropped.
	tuesday := monday.AddDate(0, 0, -21+1)
	records := []domain.PermitRecord{
		permit(tuesday, false, "COVERAGE MARKER"),
		permit(monday.AddDate(0, 0, -7), false, "A"),
		permit(monday.AddDate(0, 0, -7), false, "A"),
		permit(monday.AddDate(0, 0, -7), false, "A"),
		permit(monday, false, "A"),
	}

	cfg := DefaultConfig()
	cfg.MinHistoryDays = 2
	result, err := Compute(records, monday, cfg)
	require.NoError(t, err)

	assert.Equal(t, 2, result.HistoricalDays)
	assert.InDelta(t, 1.5, result.HistoricalAvgTotal, 1e-9) // 3 tickets over 2 Mondays
	assert.False(t, result.LowConfidence)
}

func TestCompute_HolidayExclusion(t *testing.T) {
	lastMonday := monday.AddDate(0, 0, -7)
	prevMonday := monday.AddDate(0, 0, -14)

	records := []domain.PermitRecord{
		permit(prevMonday, false, "A"),
		permit(prevMonday, false, "A"),
		// A burst on the holiday Monday that would skew the baseline.
		permit(lastMonday, false, "A"),
		permit(lastMonday, false, "A"),
		permit(lastMonday, false, "A"),
		permit(lastMonday, false, "A"),
		permit(monday, false, "A"),
	}

	cfg := DefaultConfig()
	cfg.MinHistoryDays = 0
	cfg.ExcludeHolidays = true
	cfg.Holidays = map[time.Time]bool{lastMonday: true}

	result, err := Compute(records, monday, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.HistoricalDays)
	assert.InDelta(t, 2.0, result.HistoricalAvgTotal, 1e-9)

	// Same data without the exclusion averages both Mondays.
	cfg.ExcludeHolidays = false
	result, err = Compute(records, monday, cfg)
	require.NoError(t, err)
	assert.Equal(t, 2, result.HistoricalDays)
	assert.InDelta(t, 3.0, result.HistoricalAvgTotal, 1e-9)
}

func TestCompute_WindowBounds(t *testing.T) {
	cfg := DefaultConfig()
	outside := monday.AddDate(0, 0, -(cfg.WindowDays + 7)) // same weekday, before the window
	records := []domain.PermitRecord{
		permit(outside, false, "ANCIENT DIGGERS"),
		permit(monday.AddDate(0, 0, -7), false, "A"),
		permit(monday, false, "A"),
	}

	result, err := Compute(records, monday, cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, result.HistoricalDays)
	assert.NotContains(t, result.Newcomers, "ANCIENT DIGGERS")
}

func TestCompute_LeaderboardOrdering(t *testing.T) {
	var records []domain.PermitRecord
	for i := 0; i < 5; i++ {
		records = append(records, permit(monday, false, "AAA EXCAVATING"))
	}
	for i := 0; i < 5; i++ {
		records = append(records, permit(monday, true, "BBB BORING"))
	}
	for i := 0; i < 3; i++ {
		records = append(records, permit(monday, false, "CCC CONCRETE"))
	}

	result, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)

	require.Len(t, result.Leaderboard, 3)
	assert.Equal(t, domain.LeaderboardEntry{Name: "AAA EXCAVATING", Count: 5}, result.Leaderboard[0])
	assert.Equal(t, domain.LeaderboardEntry{Name: "BBB BORING", Count: 5}, result.Leaderboard[1])
	assert.Equal(t, domain.LeaderboardEntry{Name: "CCC CONCRETE", Count: 3}, result.Leaderboard[2])
}

func TestCompute_LeaderboardNormalization(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Aliases = domain.NormalizeAliasTable(map[string]string{
		"ABC CONSTRUCTION, LLC": "ABC Construction LLC",
		"ABC CONSTRUCTION LLC":  "ABC Construction LLC",
	})

	records := []domain.PermitRecord{
		permit(monday, false, " ABC Construction, llc "),
		permit(monday, false, "ABC CONSTRUCTION LLC"),
	}

	result, err := Compute(records, monday, cfg)
	require.NoError(t, err)
	require.Len(t, result.Leaderboard, 1)
	assert.Equal(t, domain.LeaderboardEntry{Name: "ABC Construction LLC", Count: 2}, result.Leaderboard[0])
}

func TestCompute_Newcomers(t *testing.T) {
	records := append(mondayHistory(4, func(int) int { return 0 }),
		permit(monday, false, "BASELINE DIGGERS"), // seen in history
		permit(monday, true, "FRESH FACES INC"),   // never seen before
	)

	result, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, []string{"FRESH FACES INC"}, result.Newcomers)
}

func TestCompute_Idempotent(t *testing.T) {
	records := append(mondayHistory(8, func(i int) int { return i % 3 }),
		permit(monday, true, "A"),
		permit(monday, false, "B"),
	)

	first, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)
	second, err := Compute(records, monday, DefaultConfig())
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestCompute_ConfigErrors(t *testing.T) {
	t.Run("zero window", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.WindowDays = 0
		_, err := Compute(nil, monday, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("negative window", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.WindowDays = -5
		_, err := Compute(nil, monday, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("negative min history", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.MinHistoryDays = -1
		_, err := Compute(nil, monday, cfg)
		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("zero target date", func(t *testing.T) {
		_, err := Compute(nil, time.Time{}, DefaultConfig())
		assert.ErrorIs(t, err, domain.ErrInvalidDate)
	})
}

func TestDailyStatsFor(t *testing.T) {
	records := []domain.PermitRecord{
		{DigDate: monday, IsEmergency: true, ContactLastName: "COMED", StreetName: "STATE"},
		{DigDate: monday, IsEmergency: false, ContactLastName: "COM ED", StreetName: "STATE"},
		{DigDate: monday, IsEmergency: false, ContactLastName: "PEOPLES GAS", StreetName: "MADISON"},
		{DigDate: monday.AddDate(0, 0, -1), IsEmergency: true, ContactLastName: "ELSEWHERE"},
	}
	aliases := domain.NormalizeAliasTable(map[string]string{"COM ED": "ComEd", "COMED": "ComEd"})

	stats := DailyStatsFor(records, monday, aliases)

	assert.Equal(t, 3, stats.TotalPermits)
	assert.Equal(t, 1, stats.EmergencyPermits)
	assert.Equal(t, 2, stats.RegularPermits)
	assert.InDelta(t, 33.3333333, stats.EmergencyPercent, 1e-6)
	assert.Equal(t, 2, stats.UniqueContractors) // ComEd variants fold together
	assert.Equal(t, 2, stats.UniqueStreets)
}

func TestDailyStatsFor_Empty(t *testing.T) {
	stats := DailyStatsFor(nil, monday, nil)
	assert.Zero(t, stats.TotalPermits)
	assert.Zero(t, stats.EmergencyPercent)
}
