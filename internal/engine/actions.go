package engine

import (
	"github.com/deskwise/intake/internal/classify"
	"github.com/deskwise/intake/internal/session"
)

type ActionType string

const (
	// ActionAnswer delivers a tip, an article, or a direct reply.
	ActionAnswer ActionType = "answer"
	// ActionQuestion asks the requester for more detail.
	ActionQuestion ActionType = "question"
	// ActionTicketConfirmation presents a draft and waits for approval.
	ActionTicketConfirmation ActionType = "ticket_confirmation"
	// ActionTicketCreated reports the persisted ticket id.
	ActionTicketCreated ActionType = "ticket_created"
	// ActionFallbackOffer proposes the manual intake path after the
	// escalation guard fires.
	ActionFallbackOffer ActionType = "fallback_offer"
)

// Action is the engine's reply for one turn. Exactly one is produced per
// user message or feedback signal.
type Action struct {
	Type       ActionType
	Text       string
	Article    *classify.ArticleRef
	Candidates []classify.ArticleRef
	Draft      *session.TicketDraft
	TicketID   string
	// State is the conversation state after this turn.
	State session.State
}
