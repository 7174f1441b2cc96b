package classify

import (
	"fmt"
	"strings"

	"github.com/deskwise/intake/internal/session"
)

const lightSystemPrompt = `You are the intake classifier for an internal IT helpdesk.
You receive the first short message of a conversation and decide cheaply what it is.
Reply with a single JSON object:
{
  "requestType": "question" | "appeal",
  "confidence": 0.0-1.0,
  "category": "short category label",
  "quickSolution": "instructional text if a trivial known fix applies, else omit",
  "needsFullAnalysis": true when the message is ambiguous or serious
}
Set needsFullAnalysis=true whenever you are unsure. Never invent facts.`

const fullSystemPrompt = `You are the intake classifier for an internal IT helpdesk.
Decide what the requester needs using the dialogue and the context blocks provided.
Duplicate tickets and outages are detected upstream; when such a fact appears in the
context, trust it and fold it into your decision.
Reply with a single JSON object:
{
  "requestType": "question" | "appeal",
  "confidence": 0.0-1.0,
  "isTicketIntent": true when a ticket should be drafted,
  "needsMoreInfo": true when required details are missing,
  "missingInfo": ["named gaps"],
  "category": "short category label",
  "priority": "low" | "medium" | "high" | "urgent",
  "emotionalTone": "neutral" | "frustrated" | "urgent" | "calm",
  "quickSolution": "step-by-step fix the requester can try now, else omit",
  "offTopicResponse": "direct answer for non-IT smalltalk, else omit",
  "clarifyingQuestion": "the single next question to ask, when needsMoreInfo",
  "needMoreContext": true when more retrieval text would change your decision,
  "moreContextSource": "kb" | "tickets" | "none",
  "duplicateTicketId": "ticket id when the context shows an open duplicate, else omit"
}
Emit at most one of quickSolution / offTopicResponse / isTicketIntent=true.
Answer in the requester's language.`

func lightUserPrompt(message string, user session.UserContext) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Message: %s\n", message)
	writeUserContext(&b, user)
	return b.String()
}

func fullUserPrompt(in FullInput) string {
	var b strings.Builder
	b.WriteString("## Dialogue\n")
	b.WriteString(in.Dialog)
	writeUserContext(&b, in.User)
	section(&b, "Business hours", in.Hours)
	section(&b, "System health", in.Health)
	section(&b, "Known quick fixes", in.FastTrackCatalogue)
	section(&b, "Similar resolved tickets", in.SimilarTickets)
	section(&b, "Open duplicate", in.DuplicateFact)
	section(&b, "Outage in progress", in.OutageFact)
	section(&b, "Requester's open ticket", in.ActiveTicketFact)
	section(&b, "Additional context", in.ExtraContext)
	return b.String()
}

func writeUserContext(b *strings.Builder, user session.UserContext) {
	if user.Location == "" && user.Role == "" && user.Equipment == "" {
		return
	}
	b.WriteString("\n## Requester\n")
	if user.Location != "" {
		fmt.Fprintf(b, "location: %s\n", user.Location)
	}
	if user.Role != "" {
		fmt.Fprintf(b, "role: %s\n", user.Role)
	}
	if user.Equipment != "" {
		fmt.Fprintf(b, "equipment: %s\n", user.Equipment)
	}
}

func section(b *strings.Builder, title, body string) {
	body = strings.TrimSpace(body)
	if body == "" {
		return
	}
	fmt.Fprintf(b, "\n## %s\n%s\n", title, body)
}
