// Package session holds the ephemeral per-conversation state the intake
// engine mutates turn by turn. Nothing here is persisted; a session dies on
// ticket creation, cancellation, or idle timeout.
package session

import (
	"strings"
	"time"
)

type State string

const (
	StateGathering   State = "gathering_information"
	StateAwaitingTip State = "awaiting_tip_feedback"
	StateConfirm     State = "confirm_ticket"
	StateEditing     State = "editing_from_confirm"
	StateClosed      State = "closed"
)

type Turn struct {
	Role    string // user | assistant
	Content string
}

// UserContext is the requester snapshot captured once at session start.
type UserContext struct {
	RequesterID string
	Location    string
	Role        string
	Equipment   string
}

type TicketDraft struct {
	Title            string
	Description      string
	Category         string
	Priority         string
	EnvironmentClues []string
}

type Session struct {
	ID    string
	State State
	// Dialog is append-only; individual messages are capped at
	// maxMessageRunes by AppendTurn.
	Dialog []Turn
	User   UserContext

	// Cached classifier outputs carried across turns so later steps don't
	// re-derive them.
	CachedPriority    string
	CachedCategory    string
	CachedTone        string
	CachedRequestType string

	Draft *TicketDraft

	QuestionsAsked        int
	LowConfidenceAttempts int

	// SuppressedSolutions tracks quick solutions the requester already
	// rejected so they are not offered twice.
	SuppressedSolutions []string
	// LastSolution is the most recent tip offered; "not helped" feedback
	// suppresses it.
	LastSolution string

	CreatedAt  time.Time
	LastActive time.Time
}

func (s *Session) AppendTurn(role, content string, maxRunes int) {
	content = strings.TrimSpace(content)
	if maxRunes > 0 {
		runes := []rune(content)
		if len(runes) > maxRunes {
			content = string(runes[:maxRunes])
		}
	}
	s.Dialog = append(s.Dialog, Turn{Role: role, Content: content})
}

// DialogText renders the history the way classifier prompts consume it.
func (s *Session) DialogText() string {
	var b strings.Builder
	for _, turn := range s.Dialog {
		b.WriteString(turn.Role)
		b.WriteString(": ")
		b.WriteString(turn.Content)
		b.WriteString("\n")
	}
	return b.String()
}

func (s *Session) LastUserMessage() string {
	for i := len(s.Dialog) - 1; i >= 0; i-- {
		if s.Dialog[i].Role == "user" {
			return s.Dialog[i].Content
		}
	}
	return ""
}

func (s *Session) SuppressSolution(text string) {
	text = strings.TrimSpace(text)
	if text == "" || s.IsSuppressed(text) {
		return
	}
	s.SuppressedSolutions = append(s.SuppressedSolutions, text)
}

func (s *Session) IsSuppressed(text string) bool {
	text = strings.TrimSpace(text)
	for _, suppressed := range s.SuppressedSolutions {
		if suppressed == text {
			return true
		}
	}
	return false
}
