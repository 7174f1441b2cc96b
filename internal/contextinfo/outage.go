package contextinfo

import (
	"context"
	"strings"
	"time"
)

// Outage reports a likely localized network outage: several open tickets
// from one location inside the trailing window, all touching network
// keywords.
type Outage struct {
	Location    string
	TicketCount int
	Since       time.Time
}

var networkKeywords = []string{
	"network", "internet", "wifi", "wi-fi", "vpn", "ethernet", "lan",
	"мереж", "інтернет", "сеть", "сети", "интернет",
}

// DetectOutage counts open network-related tickets from the location within
// the window. At or above the threshold the classifier gets an
// "outage in progress" fact so it avoids steering toward redundant tickets.
func (b *Builders) DetectOutage(ctx context.Context, location string) (*Outage, error) {
	location = strings.TrimSpace(location)
	if location == "" {
		return nil, nil
	}
	since := b.clock().Add(-time.Duration(b.windows.OutageWindowMin) * time.Minute)
	open, err := b.tickets.ListOpenByLocationSince(ctx, location, since)
	if err != nil {
		return nil, err
	}

	count := 0
	for _, ticket := range open {
		haystack := strings.ToLower(ticket.Title + " " + ticket.Description + " " + ticket.Category)
		for _, keyword := range networkKeywords {
			if strings.Contains(haystack, keyword) {
				count++
				break
			}
		}
	}
	if count < b.windows.OutageMinTickets {
		return nil, nil
	}
	return &Outage{Location: location, TicketCount: count, Since: since}, nil
}
