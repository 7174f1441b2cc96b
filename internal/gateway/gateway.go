// Package gateway exposes the intake engine over a websocket endpoint plus
// a health probe. One websocket connection carries one or more
// conversations; frames reference sessions by id.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/deskwise/intake/internal/engine"
	"github.com/deskwise/intake/internal/health"
	"github.com/deskwise/intake/internal/session"
)

// Intake is the engine surface the gateway dispatches to.
type Intake interface {
	HandleMessage(ctx context.Context, sessionID string, in engine.MessageInput) (engine.Action, error)
	HandleFeedback(ctx context.Context, sessionID string, signal engine.Signal, text string) (engine.Action, error)
}

type Service struct {
	addr     string
	intake   Intake
	registry *health.Registry
	logger   *slog.Logger
	upgrader websocket.Upgrader
}

func New(addr string, intake Intake, registry *health.Registry, logger *slog.Logger) *Service {
	return &Service{
		addr:     addr,
		intake:   intake,
		registry: registry,
		logger:   logger.With("component", "gateway"),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Handler returns the HTTP routes; split out so tests can serve them
// without binding a port.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)
	return mux
}

func (s *Service) Start(ctx context.Context) error {
	server := &http.Server{Addr: s.addr, Handler: s.Handler()}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("gateway shutdown failed", "error", err)
		}
	}()

	s.logger.Info("gateway listening", "addr", s.addr)
	if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type userFrame struct {
	RequesterID string `json:"requester_id"`
	Location    string `json:"location"`
	Role        string `json:"role"`
	Equipment   string `json:"equipment"`
}

type inboundFrame struct {
	Type      string    `json:"type"`
	SessionID string    `json:"session_id"`
	Text      string    `json:"text,omitempty"`
	Signal    string    `json:"signal,omitempty"`
	User      userFrame `json:"user"`
}

type articleFrame struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

type outboundFrame struct {
	Type       string               `json:"type"`
	SessionID  string               `json:"session_id"`
	Text       string               `json:"text,omitempty"`
	State      string               `json:"state,omitempty"`
	TicketID   string               `json:"ticket_id,omitempty"`
	Draft      *session.TicketDraft `json:"draft,omitempty"`
	Article    *articleFrame        `json:"article,omitempty"`
	Candidates []articleFrame       `json:"candidates,omitempty"`
	Error      string               `json:"error,omitempty"`
}

func (s *Service) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	// Session id for frames that do not name one.
	connSession := uuid.NewString()
	for {
		var frame inboundFrame
		if err := conn.ReadJSON(&frame); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		sessionID := frame.SessionID
		if sessionID == "" {
			sessionID = connSession
		}
		out := s.dispatch(r.Context(), sessionID, frame)
		if err := conn.WriteJSON(out); err != nil {
			s.logger.Warn("websocket write failed", "error", err)
			return
		}
	}
}

func (s *Service) dispatch(ctx context.Context, sessionID string, frame inboundFrame) outboundFrame {
	var act engine.Action
	var err error
	switch frame.Type {
	case "message":
		act, err = s.intake.HandleMessage(ctx, sessionID, engine.MessageInput{
			Text: frame.Text,
			User: session.UserContext{
				RequesterID: frame.User.RequesterID,
				Location:    frame.User.Location,
				Role:        frame.User.Role,
				Equipment:   frame.User.Equipment,
			},
		})
	case "feedback":
		act, err = s.intake.HandleFeedback(ctx, sessionID, engine.Signal(frame.Signal), frame.Text)
	default:
		err = errors.New("unknown frame type")
	}
	if err != nil {
		s.logger.Warn("dispatch failed", "session_id", sessionID, "type", frame.Type, "error", err)
		return outboundFrame{Type: "error", SessionID: sessionID, Error: err.Error()}
	}
	return toOutbound(sessionID, act)
}

func toOutbound(sessionID string, act engine.Action) outboundFrame {
	out := outboundFrame{
		Type:      string(act.Type),
		SessionID: sessionID,
		Text:      act.Text,
		State:     string(act.State),
		TicketID:  act.TicketID,
		Draft:     act.Draft,
	}
	if act.Article != nil {
		out.Article = &articleFrame{ID: act.Article.ID, Title: act.Article.Title}
	}
	for _, c := range act.Candidates {
		out.Candidates = append(out.Candidates, articleFrame{ID: c.ID, Title: c.Title})
	}
	return out
}

func (s *Service) handleHealth(w http.ResponseWriter, r *http.Request) {
	report := s.registry.RunAll(r.Context())
	w.Header().Set("Content-Type", "application/json")
	if !report.Healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	payload := make(map[string]string, len(report.Results))
	for _, result := range report.Results {
		payload[result.Component] = string(result.Status)
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("health encode failed", "error", err)
	}
}
