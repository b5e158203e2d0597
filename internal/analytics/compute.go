// Package analytics computes the daily comparison statistics over stored dig
// tickets: target-day counts, same-weekday historical baselines, contractor
// leaderboards, and newcomer detection. Everything here is a pure function of
// its inputs; the package never touches storage, the network, or the clock.
package analytics

import (
	"fmt"
	"sort"
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// Default aggregation parameters, matching the production configuration.
const (
	DefaultWindowDays     = 730
	DefaultMinHistoryDays = 14
)

// Config carries the aggregation parameters. Holidays and Aliases are
// operational data supplied by configuration files.
type Config struct {
	// WindowDays is the length of the trailing historical window. Must be
	// positive.
	WindowDays int

	// MinHistoryDays is the number of same-weekday historical days required
	// before a comparison is considered trustworthy. Below it the result is
	// flagged low-confidence, never rejected. Must be non-negative.
	MinHistoryDays int

	// ExcludeHolidays drops dates in Holidays from the historical window.
	ExcludeHolidays bool

	// Holidays is the set of excluded dates, keyed by day-truncated UTC time.
	Holidays map[time.Time]bool

	// Aliases maps folded contractor-name variants to canonical names.
	Aliases map[string]string
}

// DefaultConfig returns a Config with production defaults and no holiday or
// alias data.
func DefaultConfig() Config {
	return Config{
		WindowDays:     DefaultWindowDays,
		MinHistoryDays: DefaultMinHistoryDays,
	}
}

func (c Config) validate() error {
	if c.WindowDays <= 0 {
		return fmt.Errorf("window days must be positive, got %d: %w", c.WindowDays, domain.ErrInvalidConfig)
	}
	if c.MinHistoryDays < 0 {
		return fmt.Errorf("min history days must be non-negative, got %d: %w", c.MinHistoryDays, domain.ErrInvalidConfig)
	}
	return nil
}

func (c Config) isHoliday(day time.Time) bool {
	return c.ExcludeHolidays && c.Holidays[day]
}

// dayTally accumulates per-day counts.
type dayTally struct {
	total     int
	emergency int
}

// Compute produces the comparison result for targetDate from the given
// records. Records outside the historical window are ignored, so callers may
// pass the full store contents or a pre-windowed slice.
//
// The historical baseline is the mean of per-day counts across same-weekday
// dates in [targetDate-window, targetDate), excluding targetDate itself and,
// when configured, holidays. Days inside the record set's covered span that
// have no tickets count as zero rather than being dropped, so the average
// reflects genuinely quiet days; dates before the earliest record in the
// window are treated as uncovered and excluded from the denominator.
//
// Compute never mutates its inputs and has no side effects: identical inputs
// yield identical results.
func Compute(records []domain.PermitRecord, targetDate time.Time, cfg Config) (domain.ComparisonResult, error) {
	if err := cfg.validate(); err != nil {
		return domain.ComparisonResult{}, err
	}
	if targetDate.IsZero() {
		return domain.ComparisonResult{}, fmt.Errorf("zero target date: %w", domain.ErrInvalidDate)
	}

	target := domain.DateOf(targetDate)
	windowStart := target.AddDate(0, 0, -cfg.WindowDays)
	weekday := target.Weekday()

	var (
		targetTally   dayTally
		targetNames   = map[string]int{}
		historyByDay  = map[time.Time]dayTally{}
		historyNames  = map[string]bool{}
		earliestInWin time.Time
	)

	for _, rec := range records {
		day := rec.EventDate()

		switch {
		case day.Equal(target):
			targetTally.total++
			if rec.IsEmergency {
				targetTally.emergency++
			}
			if name := domain.NormalizeContractor(rec.ContractorName(), cfg.Aliases); name != "" {
				targetNames[name]++
			}

		case day.Before(target) && !day.Before(windowStart):
			// Coverage extends back to the earliest record of any weekday
			// inside the window.
			if earliestInWin.IsZero() || day.Before(earliestInWin) {
				earliestInWin = day
			}
			if day.Weekday() != weekday || cfg.isHoliday(day) {
				continue
			}
			tally := historyByDay[day]
			tally.total++
			if rec.IsEmergency {
				tally.emergency++
			}
			historyByDay[day] = tally
			if name := domain.NormalizeContractor(rec.ContractorName(), cfg.Aliases); name != "" {
				historyNames[name] = true
			}
		}
	}

	histDays, sumTotal, sumEmergency := tallyHistoricalDays(target, windowStart, earliestInWin, cfg, historyByDay)

	result := domain.ComparisonResult{
		TargetDate:      target,
		DayName:         weekday.String(),
		ActualTotal:     targetTally.total,
		ActualEmergency: targetTally.emergency,
		ActualRegular:   targetTally.total - targetTally.emergency,
		HistoricalDays:  histDays,
		LowConfidence:   histDays < cfg.MinHistoryDays,
		Leaderboard:     buildLeaderboard(targetNames),
		Newcomers:       findNewcomers(targetNames, historyNames),
	}

	if histDays > 0 {
		result.HistoricalAvgTotal = float64(sumTotal) / float64(histDays)
		result.HistoricalAvgEmergency = float64(sumEmergency) / float64(histDays)
		result.HistoricalAvgRegular = float64(sumTotal-sumEmergency) / float64(histDays)
	}

	result.DiffPercentTotal = diffPercent(result.ActualTotal, result.HistoricalAvgTotal)
	result.DiffPercentEmergency = diffPercent(result.ActualEmergency, result.HistoricalAvgEmergency)
	result.DiffPercentRegular = diffPercent(result.ActualRegular, result.HistoricalAvgRegular)

	return result, nil
}

// tallyHistoricalDays walks the eligible same-weekday dates of the window and
// sums their per-day counts. Eligible dates start at the first same-weekday
// date on or after the coverage boundary and step back a week at a time until
// the target; holidays are skipped entirely, days without records count as 0.
func tallyHistoricalDays(target, windowStart, earliest time.Time, cfg Config, byDay map[time.Time]dayTally) (days, sumTotal, sumEmergency int) {
	if earliest.IsZero() {
		return 0, 0, 0
	}

	start := windowStart
	if earliest.After(start) {
		start = earliest
	}
	// Advance to the first date on or after start that shares the target's
	// weekday.
	offset := (int(target.Weekday()) - int(start.Weekday()) + 7) % 7
	first := start.AddDate(0, 0, offset)

	for day := first; day.Before(target); day = day.AddDate(0, 0, 7) {
		if cfg.isHoliday(day) {
			continue
		}
		tally := byDay[day]
		days++
		sumTotal += tally.total
		sumEmergency += tally.emergency
	}
	return days, sumTotal, sumEmergency
}

// diffPercent is the signed percentage difference of actual against the
// historical average, defined as 0 when the average is 0.
func diffPercent(actual int, avg float64) float64 {
	if avg == 0 {
		return 0
	}
	return (float64(actual) - avg) / avg * 100
}

// buildLeaderboard sorts target-day contractor counts descending, breaking
// ties by name ascending.
func buildLeaderboard(counts map[string]int) []domain.LeaderboardEntry {
	entries := make([]domain.LeaderboardEntry, 0, len(counts))
	for name, count := range counts {
		entries = append(entries, domain.LeaderboardEntry{Name: name, Count: count})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Count != entries[j].Count {
			return entries[i].Count > entries[j].Count
		}
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// findNewcomers returns the sorted target-day names absent from the
// historical window.
func findNewcomers(targetNames map[string]int, historyNames map[string]bool) []string {
	newcomers := make([]string, 0)
	for name := range targetNames {
		if !historyNames[name] {
			newcomers = append(newcomers, name)
		}
	}
	sort.Strings(newcomers)
	return newcomers
}
