package contextinfo

import (
	"context"
	"strings"

	"github.com/deskwise/intake/internal/store"
)

// repeatPatterns are the short anxious follow-ups people send while waiting
// on an already-open ticket.
var repeatPatterns = []string{
	"are you there", "anyone there", "any update", "any news", "hello?",
	"still waiting", "status?",
	"ви тут", "є хтось", "є новини", "ау",
	"вы тут", "есть кто", "есть новости",
}

const repeatMaxRunes = 80

// DetectActiveRepeat reports the requester's newest open ticket when the
// message is a short waiting-style ping rather than a new problem report.
// The engine answers with the existing ticket number instead of starting a
// fresh intake.
func (b *Builders) DetectActiveRepeat(ctx context.Context, requesterID, message string) (*store.Ticket, error) {
	trimmed := strings.ToLower(strings.TrimSpace(message))
	if trimmed == "" || len([]rune(trimmed)) > repeatMaxRunes {
		return nil, nil
	}
	matched := false
	for _, pattern := range repeatPatterns {
		if strings.Contains(trimmed, pattern) {
			matched = true
			break
		}
	}
	if !matched {
		return nil, nil
	}

	open, err := b.tickets.ListOpenByRequester(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if len(open) == 0 {
		return nil, nil
	}
	// Newest first per store ordering.
	return &open[0], nil
}
