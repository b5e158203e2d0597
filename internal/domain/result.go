package domain

import "time"

// LeaderboardEntry is one contractor's ticket count for the target day.
type LeaderboardEntry struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ComparisonResult holds one day's counts against the same-weekday historical
// baseline. It is recomputed from the record store on every run and never
// persisted.
type ComparisonResult struct {
	TargetDate time.Time `json:"target_date"`
	DayName    string    `json:"day_name"`

	ActualTotal     int `json:"actual_total"`
	ActualEmergency int `json:"actual_emergency"`
	ActualRegular   int `json:"actual_regular"`

	HistoricalAvgTotal     float64 `json:"historical_avg_total"`
	HistoricalAvgEmergency float64 `json:"historical_avg_emergency"`
	HistoricalAvgRegular   float64 `json:"historical_avg_regular"`

	// Signed percent differences against the historical averages. Zero when
	// the corresponding average is zero. Full float precision; rounding
	// happens at the render boundary.
	DiffPercentTotal     float64 `json:"diff_percent_total"`
	DiffPercentEmergency float64 `json:"diff_percent_emergency"`
	DiffPercentRegular   float64 `json:"diff_percent_regular"`

	// HistoricalDays is the number of same-weekday days the baseline average
	// was computed over. LowConfidence is set when that falls below the
	// configured minimum; the result is still complete, the caller decides
	// whether to suppress the comparison.
	HistoricalDays int  `json:"historical_days"`
	LowConfidence  bool `json:"low_confidence"`

	Leaderboard []LeaderboardEntry `json:"leaderboard"`
	Newcomers   []string           `json:"newcomers"`
}

// DailyStats summarizes the target day on its own, without the historical
// comparison.
type DailyStats struct {
	TargetDate        time.Time `json:"target_date"`
	TotalPermits      int       `json:"total_permits"`
	EmergencyPermits  int       `json:"emergency_permits"`
	RegularPermits    int       `json:"regular_permits"`
	EmergencyPercent  float64   `json:"emergency_percent"`
	UniqueContractors int       `json:"unique_contractors"`
	UniqueStreets     int       `json:"unique_streets"`
}

// DayCount is one day's ticket counts, used to feed the trend chart.
type DayCount struct {
	Date      time.Time `json:"date"`
	Total     int       `json:"total"`
	Emergency int       `json:"emergency"`
	Regular   int       `json:"regular"`
}

// Post is one unit of a social thread: text plus an optional local image.
type Post struct {
	Text      string
	ImagePath string
	ImageAlt  string
}
