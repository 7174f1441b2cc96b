// Package engine is the conversation state machine. It owns every session
// mutation, routes each user turn through the fast-track table, the
// detectors, retrieval and the classifier, and emits exactly one Action per
// turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/deskwise/intake/internal/classify"
	"github.com/deskwise/intake/internal/config"
	"github.com/deskwise/intake/internal/contextinfo"
	"github.com/deskwise/intake/internal/drafter"
	"github.com/deskwise/intake/internal/fasttrack"
	"github.com/deskwise/intake/internal/retrieval"
	"github.com/deskwise/intake/internal/retry"
	"github.com/deskwise/intake/internal/session"
	"github.com/deskwise/intake/internal/store"
)

var (
	ErrEmptyMessage     = errors.New("empty message")
	ErrUnexpectedSignal = errors.New("signal does not match conversation state")
)

type IntentClassifier interface {
	LightApplies(dialogTurns int, message string) bool
	Light(ctx context.Context, message string, user session.UserContext) (classify.Result, error)
	Run(ctx context.Context, in classify.FullInput, fetch classify.ContextFetcher) (classify.Result, error)
}

type TicketDrafter interface {
	Draft(ctx context.Context, in drafter.Input) session.TicketDraft
}

type Searcher interface {
	SearchArticles(ctx context.Context, query string) (retrieval.KBResult, error)
	SimilarTickets(ctx context.Context, query string) ([]retrieval.Match, error)
}

type TicketWriter interface {
	CreateTicket(ctx context.Context, input store.CreateTicketInput) (string, error)
	AppendDialog(ctx context.Context, entry store.DialogEntry) error
}

type Detectors interface {
	DetectDuplicate(ctx context.Context, location, category, message string) (*store.Ticket, error)
	DetectOutage(ctx context.Context, location string) (*contextinfo.Outage, error)
	DetectActiveRepeat(ctx context.Context, requesterID, message string) (*store.Ticket, error)
	BusinessHours(now time.Time) contextinfo.HoursSummary
}

// Rules is the fast-track table surface the engine needs.
type Rules interface {
	Match(message string) (fasttrack.Rule, bool)
	Catalogue() string
}

type Deps struct {
	Sessions   *session.Manager
	Classifier IntentClassifier
	Drafter    TicketDrafter
	Search     Searcher
	Tickets    TicketWriter
	Detectors  Detectors
	FastTrack  Rules
	// HealthSummary renders current operational problems for the classifier
	// prompt; nil means no health context.
	HealthSummary func(ctx context.Context) string
	Clock         func() time.Time
	Logger        *slog.Logger
}

type Engine struct {
	cfg        config.Config
	sessions   *session.Manager
	classifier IntentClassifier
	drafter    TicketDrafter
	search     Searcher
	tickets    TicketWriter
	detectors  Detectors
	rules      Rules
	health     func(ctx context.Context) string
	storeRetry retry.Policy
	clock      func() time.Time
	logger     *slog.Logger
}

func New(cfg config.Config, deps Deps) *Engine {
	clock := deps.Clock
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		cfg:        cfg,
		sessions:   deps.Sessions,
		classifier: deps.Classifier,
		drafter:    deps.Drafter,
		search:     deps.Search,
		tickets:    deps.Tickets,
		detectors:  deps.Detectors,
		rules:      deps.FastTrack,
		health:     deps.HealthSummary,
		storeRetry: retry.StorageCalls(),
		clock:      clock,
		logger:     logger.With("component", "engine"),
	}
}

type MessageInput struct {
	Text string
	User session.UserContext
}

// HandleMessage runs one user turn through the state machine. Turns for the
// same session are serialized by the session manager.
func (e *Engine) HandleMessage(ctx context.Context, sessionID string, in MessageInput) (Action, error) {
	text := strings.TrimSpace(in.Text)
	if text == "" {
		return Action{}, ErrEmptyMessage
	}

	sess, release := e.sessions.Acquire(sessionID, in.User)
	defer release()

	e.logDialog(ctx, sessionID, "user", text)
	sess.AppendTurn("user", text, e.cfg.Session.MaxMessageRunes)

	var act Action
	var err error
	switch sess.State {
	case session.StateAwaitingTip:
		// Free text instead of a feedback button means the tip did not
		// settle it; fold the message back into gathering.
		sess.SuppressSolution(sess.LastSolution)
		sess.State = session.StateGathering
		act, err = e.gather(ctx, sess, text)
	case session.StateConfirm, session.StateEditing:
		act, err = e.edit(ctx, sess, text)
	default:
		act, err = e.gather(ctx, sess, text)
	}
	if err != nil {
		return act, err
	}
	return e.finishTurn(ctx, sess, act), nil
}

type Signal string

const (
	SignalHelped    Signal = "helped"
	SignalNotHelped Signal = "not_helped"
	SignalApprove   Signal = "approve"
	SignalEdit      Signal = "edit"
	SignalCancel    Signal = "cancel"
)

// HandleFeedback applies a structured signal: tip feedback, draft approval
// or edit, or cancellation.
func (e *Engine) HandleFeedback(ctx context.Context, sessionID string, signal Signal, text string) (Action, error) {
	sess, release := e.sessions.Acquire(sessionID, session.UserContext{})
	defer release()

	switch signal {
	case SignalCancel:
		sess.State = session.StateClosed
		e.sessions.Remove(sessionID)
		act := Action{Type: ActionAnswer, Text: "Request cancelled. Write again any time.", State: session.StateClosed}
		e.logDialog(ctx, sessionID, "assistant", act.Text)
		return act, nil

	case SignalHelped:
		if sess.State != session.StateAwaitingTip {
			return Action{}, ErrUnexpectedSignal
		}
		sess.State = session.StateClosed
		e.sessions.Remove(sessionID)
		act := Action{Type: ActionAnswer, Text: "Glad that helped. Write again if anything else comes up.", State: session.StateClosed}
		e.logDialog(ctx, sessionID, "assistant", act.Text)
		return act, nil

	case SignalNotHelped:
		if sess.State != session.StateAwaitingTip {
			return Action{}, ErrUnexpectedSignal
		}
		sess.SuppressSolution(sess.LastSolution)
		sess.State = session.StateGathering
		act := Action{Type: ActionQuestion, Text: "Sorry that did not help. Describe what you see now and I will keep digging."}
		return e.finishTurn(ctx, sess, act), nil

	case SignalApprove:
		if sess.State != session.StateConfirm || sess.Draft == nil {
			return Action{}, ErrUnexpectedSignal
		}
		return e.createTicket(ctx, sess)

	case SignalEdit:
		if sess.State != session.StateConfirm || sess.Draft == nil {
			return Action{}, ErrUnexpectedSignal
		}
		if strings.TrimSpace(text) == "" {
			sess.State = session.StateEditing
			act := Action{Type: ActionQuestion, Text: "What should be changed in the ticket?"}
			return e.finishTurn(ctx, sess, act), nil
		}
		e.logDialog(ctx, sessionID, "user", text)
		sess.AppendTurn("user", text, e.cfg.Session.MaxMessageRunes)
		act, err := e.edit(ctx, sess, text)
		if err != nil {
			return act, err
		}
		return e.finishTurn(ctx, sess, act), nil

	default:
		return Action{}, fmt.Errorf("unknown signal %q", signal)
	}
}

func (e *Engine) createTicket(ctx context.Context, sess *session.Session) (Action, error) {
	draft := *sess.Draft
	description := draft.Description
	if len(draft.EnvironmentClues) > 0 {
		description += "\n\nEnvironment:\n- " + strings.Join(draft.EnvironmentClues, "\n- ")
	}
	id, err := retry.Do(ctx, e.storeRetry, func(ctx context.Context) (string, error) {
		return e.tickets.CreateTicket(ctx, store.CreateTicketInput{
			RequesterID: sess.User.RequesterID,
			Location:    sess.User.Location,
			Category:    draft.Category,
			Title:       draft.Title,
			Description: description,
			Priority:    draft.Priority,
		})
	})
	if err != nil {
		return Action{}, fmt.Errorf("create ticket: %w", err)
	}

	sess.State = session.StateClosed
	e.sessions.Remove(sess.ID)
	act := Action{
		Type:     ActionTicketCreated,
		TicketID: id,
		Text:     fmt.Sprintf("Ticket %s has been created. The support team will pick it up shortly.", id),
		State:    session.StateClosed,
	}
	e.logDialog(ctx, sess.ID, "assistant", act.Text)
	e.logger.Info("ticket created", "session_id", sess.ID, "ticket_id", id, "priority", draft.Priority)
	return act, nil
}

// finishTurn stamps the post-turn state on the action and records the
// assistant reply in the session and the dialog log.
func (e *Engine) finishTurn(ctx context.Context, sess *session.Session, act Action) Action {
	if act.State == "" {
		act.State = sess.State
	}
	if act.Text != "" {
		sess.AppendTurn("assistant", act.Text, e.cfg.Session.MaxMessageRunes)
		e.logDialog(ctx, sess.ID, "assistant", act.Text)
	}
	return act
}

func (e *Engine) logDialog(ctx context.Context, sessionID, role, content string) {
	if e.tickets == nil {
		return
	}
	err := e.tickets.AppendDialog(ctx, store.DialogEntry{
		SessionID: sessionID,
		Role:      role,
		Content:   content,
		CreatedAt: e.clock(),
	})
	if err != nil {
		e.logger.Warn("dialog log append failed", "session_id", sessionID, "error", err)
	}
}
