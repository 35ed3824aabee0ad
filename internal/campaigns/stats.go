package campaigns

import (
	"time"

	"whatsapp-console/internal/models"
)

// Stats are the counters shown above the campaign list.
type Stats struct {
	Total     int `json:"total"`
	Active    int `json:"active"`
	Completed int `json:"completed"`
	ThisMonth int `json:"thisMonth"`
}

// Summarize counts campaigns by state. ThisMonth counts campaigns created on or
// after local midnight of the first day of now's month.
func Summarize(campaigns []models.Campaign, now time.Time) Stats {
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

	stats := Stats{Total: len(campaigns)}
	for _, c := range campaigns {
		if c.IsActive() {
			stats.Active++
		}
		if c.Status == models.CampaignCompleted {
			stats.Completed++
		}
		if !c.CreatedAt.Before(monthStart) {
			stats.ThisMonth++
		}
	}
	return stats
}
