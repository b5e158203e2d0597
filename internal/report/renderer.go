// Package report renders the daily results into Bluesky posts and images:
// the thread text, the two-week trend chart, and the dig-site heatmap.
package report

import (
	"fmt"
	"strings"

	"github.com/couchcryptid/chicago-dig-bot/internal/domain"
)

// BuildThread assembles the daily thread. The first post carries the summary
// and heatmap, the second the historical comparison and trend chart, the
// third the contractor leaderboard. A newcomers post is appended only when
// there are newcomers.
func BuildThread(cmp domain.ComparisonResult, stats domain.DailyStats, leaderboardSize int, heatmapPath, chartPath string) []domain.Post {
	posts := []domain.Post{
		{
			Text:      summaryText(cmp, stats),
			ImagePath: heatmapPath,
			ImageAlt:  "Map of Chicago dig sites, emergency digs in red and regular digs in blue",
		},
		{
			Text:      comparisonText(cmp),
			ImagePath: chartPath,
			ImageAlt:  "Chart of daily dig permit counts over the last two weeks",
		},
	}
	if text := leaderboardText(cmp, leaderboardSize); text != "" {
		posts = append(posts, domain.Post{Text: text})
	}
	if text := newcomersText(cmp); text != "" {
		posts = append(posts, domain.Post{Text: text})
	}
	return posts
}

func summaryText(cmp domain.ComparisonResult, stats domain.DailyStats) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Chicago Dig Report for %s, %s\n\n", cmp.DayName, cmp.TargetDate.Format("Jan 2"))
	fmt.Fprintf(&b, "Total Permits: %d\n", stats.TotalPermits)
	fmt.Fprintf(&b, "Emergency Permits: %d (%.1f%%)\n", stats.EmergencyPermits, stats.EmergencyPercent)
	fmt.Fprintf(&b, "Regular Permits: %d\n", stats.RegularPermits)
	fmt.Fprintf(&b, "Unique Contractors: %d\n", stats.UniqueContractors)
	b.WriteString("\n#ChicagoDigs #Infrastructure")
	return b.String()
}

func comparisonText(cmp domain.ComparisonResult) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Compared to a typical %s:\n\n", cmp.DayName)
	fmt.Fprintf(&b, "%s Total: %d vs %.1f avg (%+.1f%%)\n",
		arrow(cmp.DiffPercentTotal), cmp.ActualTotal, cmp.HistoricalAvgTotal, cmp.DiffPercentTotal)
	fmt.Fprintf(&b, "%s Emergency: %d vs %.1f avg (%+.1f%%)\n",
		arrow(cmp.DiffPercentEmergency), cmp.ActualEmergency, cmp.HistoricalAvgEmergency, cmp.DiffPercentEmergency)
	fmt.Fprintf(&b, "%s Regular: %d vs %.1f avg (%+.1f%%)",
		arrow(cmp.DiffPercentRegular), cmp.ActualRegular, cmp.HistoricalAvgRegular, cmp.DiffPercentRegular)
	if cmp.LowConfidence {
		fmt.Fprintf(&b, "\n\n⚠️ Limited history (%d %ss on record), take the averages with a grain of salt.",
			cmp.HistoricalDays, cmp.DayName)
	}
	return b.String()
}

var medals = []string{"🥇", "🥈", "🥉"}

func leaderboardText(cmp domain.ComparisonResult, size int) string {
	if len(cmp.Leaderboard) == 0 {
		return ""
	}
	entries := cmp.Leaderboard
	if len(entries) > size {
		entries = entries[:size]
	}

	var b strings.Builder
	b.WriteString("🏆 Top Diggers:\n")
	for i, e := range entries {
		rank := fmt.Sprintf("%d.", i+1)
		if i < len(medals) {
			rank = medals[i]
		}
		fmt.Fprintf(&b, "\n%s %s: %d permits", rank, e.Name, e.Count)
	}
	return b.String()
}

func newcomersText(cmp domain.ComparisonResult) string {
	if len(cmp.Newcomers) == 0 {
		return ""
	}
	// Cap the list so the post stays under the 300-character limit.
	names := cmp.Newcomers
	more := 0
	if len(names) > 5 {
		more = len(names) - 5
		names = names[:5]
	}

	var b strings.Builder
	b.WriteString("👋 First-time diggers:\n")
	for _, name := range names {
		fmt.Fprintf(&b, "\n• %s", name)
	}
	if more > 0 {
		fmt.Fprintf(&b, "\n…and %d more", more)
	}
	b.WriteString("\n\nWelcome to the underground!")
	return b.String()
}

func arrow(diff float64) string {
	switch {
	case diff > 0:
		return "📈"
	case diff < 0:
		return "📉"
	}
	return "➡️"
}

// RoulettePost formats the dig roulette post for a randomly drawn ticket.
func RoulettePost(rec domain.PermitRecord, imagePath string) domain.Post {
	var b strings.Builder
	b.WriteString("🎲 Hole Roulette!\n\n")
	b.WriteString("Here's a permit with a Dig Date yesterday\n\n")
	fmt.Fprintf(&b, "📍 %s\n", rec.Address())
	fmt.Fprintf(&b, "🔧 %s\n", rec.WorkType())
	fmt.Fprintf(&b, "📝 Permit #%s", rec.DigTicketNumber)
	if rec.IsEmergency {
		b.WriteString("\n🚨 Emergency Work")
	}
	return domain.Post{
		Text:      b.String(),
		ImagePath: imagePath,
		ImageAlt:  fmt.Sprintf("Street view of %s", rec.Address()),
	}
}
