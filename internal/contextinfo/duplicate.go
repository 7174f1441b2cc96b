package contextinfo

import (
	"context"
	"strings"
	"time"

	"github.com/deskwise/intake/internal/store"
	"github.com/deskwise/intake/internal/textutil"
)

// DetectDuplicate looks for a still-open ticket from the same location
// within the trailing window that matches the inferred category or shares a
// significant keyword with the message. A hit means the engine surfaces the
// existing ticket instead of creating another one.
func (b *Builders) DetectDuplicate(ctx context.Context, location, category, message string) (*store.Ticket, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}
	since := b.clock().Add(-time.Duration(b.windows.DuplicateWindowMin) * time.Minute)
	open, err := b.tickets.ListOpenByLocationSince(ctx, location, since)
	if err != nil {
		return nil, err
	}

	words := textutil.SignificantWords(message)
	category = strings.ToLower(strings.TrimSpace(category))
	for i := range open {
		ticket := open[i]
		if category != "" && strings.ToLower(ticket.Category) == category {
			return &ticket, nil
		}
		haystack := strings.ToLower(ticket.Title + " " + ticket.Description)
		for _, word := range words {
			if strings.Contains(haystack, word) {
				return &ticket, nil
			}
		}
	}
	return nil, nil
}
