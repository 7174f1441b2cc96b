// Package contextinfo computes situational facts for the classifier:
// duplicate submissions, localized outages, anxious repeat messages,
// operational health, and business hours. Builders only add facts to the
// classifier's input; none of them decides user-facing behavior on its own.
package contextinfo

import (
	"context"
	"time"

	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/store"
)

// TicketSource is the read-only view of open tickets the detectors need.
type TicketSource interface {
	ListOpenByLocationSince(ctx context.Context, location string, since time.Time) ([]store.Ticket, error)
	ListOpenByRequester(ctx context.Context, requesterID string) ([]store.Ticket, error)
}

type Builders struct {
	tickets TicketSource
	windows config.Detectors
	hours   config.Hours
	clock   func() time.Time
}

func New(tickets TicketSource, windows config.Detectors, hours config.Hours, clock func() time.Time) *Builders {
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if windows.DuplicateWindowMin < 1 {
		windows.DuplicateWindowMin = 10
	}
	if windows.OutageWindowMin < 1 {
		windows.OutageWindowMin = 10
	}
	if windows.OutageMinTickets < 1 {
		windows.OutageMinTickets = 3
	}
	return &Builders{tickets: tickets, windows: windows, hours: hours, clock: clock}
}
