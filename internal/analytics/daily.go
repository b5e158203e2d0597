package analytics

import (
	"time"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// DailyStatsFor summarizes the target day: totals, emergency share, and the
// distinct normalized contractor and street counts. Pure, like Compute.
func DailyStatsFor(records []domain.PermitRecord, targetDate time.Time, aliases map[string]string) domain.DailyStats {
	target := domain.DateOf(targetDate)

	contractors := map[string]bool{}
	streets := map[string]bool{}
	stats := domain.DailyStats{TargetDate: target}

	for _, rec := range records {
		if !rec.EventDate().Equal(target) {
			continue
		}
		stats.TotalPermits++
		if rec.IsEmergency {
			stats.EmergencyPermits++
		}
		if name := domain.NormalizeContractor(rec.ContractorName(), aliases); name != "" {
			contractors[name] = true
		}
		if rec.StreetName != "" {
			streets[rec.StreetName] = true
		}
	}

	stats.RegularPermits = stats.TotalPermits - stats.EmergencyPermits
	stats.UniqueContractors = len(contractors)
	stats.UniqueStreets = len(streets)
	if stats.TotalPermits > 0 {
		stats.EmergencyPercent = float64(stats.EmergencyPermits) / float64(stats.TotalPermits) * 100
	}
	return stats
}
