package contextinfo

import (
	"context"
	"testing"
	"time"

	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/health"
	"github.com/deskwise/intake/internal/store"
)

type fakeTickets struct {
	byLocation []store.Ticket
	byUser     []store.Ticket
	lastSince  time.Time
}

func (f *fakeTickets) ListOpenByLocationSince(_ context.Context, location string, since time.Time) ([]store.Ticket, error) {
	f.lastSince = since
	var out []store.Ticket
	for _, t := range f.byLocation {
		if t.Location == location && !t.CreatedAt.Before(since) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTickets) ListOpenByRequester(_ context.Context, requesterID string) ([]store.Ticket, error) {
	var out []store.Ticket
	for _, t := range f.byUser {
		if t.RequesterID == requesterID {
			out = append(out, t)
		}
	}
	return out, nil
}

var testNow = time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC) // Monday

func newBuilders(tickets *fakeTickets) *Builders {
	cfg := config.Default()
	return New(tickets, cfg.Detectors, cfg.Hours, func() time.Time { return testNow })
}

func TestDetectDuplicateByCategory(t *testing.T) {
	tickets := &fakeTickets{byLocation: []store.Ticket{{
		ID:        "tic-1",
		Location:  "office-3",
		Category:  "printing",
		Title:     "Printer jam",
		CreatedAt: testNow.Add(-5 * time.Minute),
	}}}
	b := newBuilders(tickets)

	dup, err := b.DetectDuplicate(context.Background(), "office-3", "printing", "something else entirely")
	if err != nil {
		t.Fatalf("detect duplicate: %v", err)
	}
	if dup == nil || dup.ID != "tic-1" {
		t.Fatalf("expected duplicate tic-1, got %+v", dup)
	}
}

func TestDetectDuplicateByKeyword(t *testing.T) {
	tickets := &fakeTickets{byLocation: []store.Ticket{{
		ID:        "tic-2",
		Location:  "office-3",
		Category:  "hardware",
		Title:     "Принтер не друкує на другому поверсі",
		CreatedAt: testNow.Add(-2 * time.Minute),
	}}}
	b := newBuilders(tickets)

	dup, err := b.DetectDuplicate(context.Background(), "office-3", "", "мій принтер зламався")
	if err != nil {
		t.Fatalf("detect duplicate: %v", err)
	}
	if dup == nil || dup.ID != "tic-2" {
		t.Fatalf("expected keyword duplicate, got %+v", dup)
	}
}

func TestDetectDuplicateWindowExcludesOldTickets(t *testing.T) {
	tickets := &fakeTickets{byLocation: []store.Ticket{{
		ID:        "tic-3",
		Location:  "office-3",
		Category:  "printing",
		CreatedAt: testNow.Add(-30 * time.Minute),
	}}}
	b := newBuilders(tickets)

	dup, err := b.DetectDuplicate(context.Background(), "office-3", "printing", "printer")
	if err != nil {
		t.Fatalf("detect duplicate: %v", err)
	}
	if dup != nil {
		t.Fatalf("expected no duplicate outside the window, got %+v", dup)
	}
	wantSince := testNow.Add(-10 * time.Minute)
	if !tickets.lastSince.Equal(wantSince) {
		t.Fatalf("unexpected window start: %v", tickets.lastSince)
	}
}

func TestDetectOutageAtThreshold(t *testing.T) {
	var open []store.Ticket
	for i := 0; i < 3; i++ {
		open = append(open, store.Ticket{
			ID:        "tic-" + string(rune('a'+i)),
			Location:  "warehouse-1",
			Title:     "no internet connection",
			CreatedAt: testNow.Add(-time.Duration(i+1) * time.Minute),
		})
	}
	b := newBuilders(&fakeTickets{byLocation: open})

	outage, err := b.DetectOutage(context.Background(), "warehouse-1")
	if err != nil {
		t.Fatalf("detect outage: %v", err)
	}
	if outage == nil || outage.TicketCount != 3 {
		t.Fatalf("expected outage with 3 tickets, got %+v", outage)
	}
}

func TestDetectOutageBelowThreshold(t *testing.T) {
	open := []store.Ticket{
		{Location: "warehouse-1", Title: "wifi down", CreatedAt: testNow.Add(-time.Minute)},
		{Location: "warehouse-1", Title: "printer broken", CreatedAt: testNow.Add(-time.Minute)},
		{Location: "warehouse-1", Title: "vpn fails", CreatedAt: testNow.Add(-time.Minute)},
	}
	b := newBuilders(&fakeTickets{byLocation: open})

	// Only two of three are network-related.
	outage, err := b.DetectOutage(context.Background(), "warehouse-1")
	if err != nil {
		t.Fatalf("detect outage: %v", err)
	}
	if outage != nil {
		t.Fatalf("expected no outage, got %+v", outage)
	}
}

func TestDetectActiveRepeat(t *testing.T) {
	tickets := &fakeTickets{byUser: []store.Ticket{{
		ID:          "tic-9",
		RequesterID: "user-5",
		Title:       "Laptop battery",
	}}}
	b := newBuilders(tickets)

	hit, err := b.DetectActiveRepeat(context.Background(), "user-5", "are you there??")
	if err != nil {
		t.Fatalf("detect repeat: %v", err)
	}
	if hit == nil || hit.ID != "tic-9" {
		t.Fatalf("expected open ticket hit, got %+v", hit)
	}

	miss, err := b.DetectActiveRepeat(context.Background(), "user-5", "my monitor shows vertical lines since this morning")
	if err != nil {
		t.Fatalf("detect repeat: %v", err)
	}
	if miss != nil {
		t.Fatalf("expected no hit for a real problem report, got %+v", miss)
	}
}

func TestSummarizeHealthEmptyWhenHealthy(t *testing.T) {
	report := health.Report{Results: []health.Result{
		{Component: "database", Status: health.StatusHealthy},
	}}
	if got := SummarizeHealth(report); got != "" {
		t.Fatalf("expected empty summary, got %q", got)
	}
}

func TestSummarizeHealthListsProblems(t *testing.T) {
	report := health.Report{Results: []health.Result{
		{Component: "database", Status: health.StatusHealthy},
		{Component: "model", Status: health.StatusDegraded, Detail: "timeouts"},
	}}
	got := SummarizeHealth(report)
	if got != "model: degraded (timeouts)" {
		t.Fatalf("unexpected summary: %q", got)
	}
}

func TestBusinessHours(t *testing.T) {
	b := newBuilders(&fakeTickets{})

	open := b.BusinessHours(time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC))
	if !open.Open || open.ClosingSoon {
		t.Fatalf("expected plainly open, got %+v", open)
	}

	closing := b.BusinessHours(time.Date(2025, 6, 2, 17, 0, 0, 0, time.UTC))
	if !closing.Open || !closing.ClosingSoon || closing.MinutesToClose != 60 {
		t.Fatalf("expected closing-soon flag, got %+v", closing)
	}

	weekend := b.BusinessHours(time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC))
	if weekend.Open {
		t.Fatalf("expected closed on Sunday, got %+v", weekend)
	}

	night := b.BusinessHours(time.Date(2025, 6, 2, 20, 0, 0, 0, time.UTC))
	if night.Open {
		t.Fatalf("expected closed at night, got %+v", night)
	}
}
