package contextinfo

import (
	"fmt"
	"time"
)

// HoursSummary describes where the current moment sits in the support
// schedule. ClosingSoon is a hint the classifier may use to bump priority;
// it decides, not us.
type HoursSummary struct {
	Open           bool
	MinutesToClose int
	ClosingSoon    bool
}

func (h HoursSummary) String() string {
	if !h.Open {
		return "support desk is currently closed"
	}
	if h.ClosingSoon {
		return fmt.Sprintf("support desk closes in %d minutes", h.MinutesToClose)
	}
	return "support desk is open"
}

// BusinessHours computes the schedule position for now using the fixed
// weekly schedule from configuration.
func (b *Builders) BusinessHours(now time.Time) HoursSummary {
	if now.IsZero() {
		now = b.clock()
	}

	workDay := false
	weekday := int(now.Weekday())
	for _, day := range b.hours.WorkDays {
		if day == weekday {
			workDay = true
			break
		}
	}
	hour := now.Hour()
	if !workDay || hour < b.hours.OpenHour || hour >= b.hours.CloseHour {
		return HoursSummary{Open: false}
	}

	closeAt := time.Date(now.Year(), now.Month(), now.Day(), b.hours.CloseHour, 0, 0, 0, now.Location())
	minutes := int(closeAt.Sub(now).Minutes())
	closingSoon := b.hours.ClosingSoonMin > 0 && minutes < b.hours.ClosingSoonMin
	return HoursSummary{Open: true, MinutesToClose: minutes, ClosingSoon: closingSoon}
}
