package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TicketStatus string

const (
	TicketStatusOpen     TicketStatus = "open"
	TicketStatusResolved TicketStatus = "resolved"
	TicketStatusClosed   TicketStatus = "closed"
)

type Ticket struct {
	ID                string
	RequesterID       string
	Location          string
	Category          string
	Title             string
	Description       string
	Status            TicketStatus
	Priority          string
	ResolutionSummary string
	// QualityRating is the 1-5 score attached after resolution; 0 means unrated.
	QualityRating int
	CreatedAt     time.Time
	ResolvedAt    time.Time
}

type CreateTicketInput struct {
	RequesterID string
	Location    string
	Category    string
	Title       string
	Description string
	Priority    string
}

// CreateTicket persists a confirmed draft and returns the new ticket id.
func (s *Store) CreateTicket(ctx context.Context, input CreateTicketInput) (string, error) {
	if strings.TrimSpace(input.Title) == "" {
		return "", fmt.Errorf("ticket title is required")
	}
	priority := strings.TrimSpace(input.Priority)
	if priority == "" {
		priority = "medium"
	}
	id := "tic-" + uuid.NewString()
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO tickets (id, requester_id, location, category, title, description, status, priority, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		input.RequesterID,
		input.Location,
		input.Category,
		input.Title,
		input.Description,
		string(TicketStatusOpen),
		priority,
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return "", fmt.Errorf("insert ticket: %w", err)
	}
	return id, nil
}

type ResolveTicketInput struct {
	ID                string
	ResolutionSummary string
	QualityRating     int
}

// ResolveTicket closes out a ticket with its resolution summary and optional
// quality rating. Used by import tooling and tests to build the historical
// corpus.
func (s *Store) ResolveTicket(ctx context.Context, input ResolveTicketInput) error {
	result, err := s.db.ExecContext(
		ctx,
		`UPDATE tickets SET status = ?, resolution_summary = ?, quality_rating = ?, resolved_at_unix = ?
		 WHERE id = ?`,
		string(TicketStatusResolved),
		input.ResolutionSummary,
		input.QualityRating,
		time.Now().UTC().Unix(),
		input.ID,
	)
	if err != nil {
		return fmt.Errorf("resolve ticket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve ticket rows affected: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) GetTicket(ctx context.Context, id string) (Ticket, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+ticketColumns+` FROM tickets WHERE id = ?`, id)
	ticket, err := scanTicket(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Ticket{}, ErrNotFound
	}
	if err != nil {
		return Ticket{}, fmt.Errorf("get ticket: %w", err)
	}
	return ticket, nil
}

// ListResolvedTickets returns the historical corpus for retrieval indexing.
func (s *Store) ListResolvedTickets(ctx context.Context) ([]Ticket, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE status IN (?, ?) ORDER BY created_at_unix DESC`,
		string(TicketStatusResolved),
		string(TicketStatusClosed),
	)
	if err != nil {
		return nil, fmt.Errorf("list resolved tickets: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListOpenByLocationSince feeds the duplicate and localized-outage detectors.
func (s *Store) ListOpenByLocationSince(ctx context.Context, location string, since time.Time) ([]Ticket, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE location = ? AND status = ? AND created_at_unix >= ?
		 ORDER BY created_at_unix DESC`,
		location,
		string(TicketStatusOpen),
		since.UTC().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("list open tickets by location: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

// ListOpenByRequester feeds the active-ticket anti-spam detector.
func (s *Store) ListOpenByRequester(ctx context.Context, requesterID string) ([]Ticket, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+ticketColumns+` FROM tickets
		 WHERE requester_id = ? AND status = ?
		 ORDER BY created_at_unix DESC`,
		requesterID,
		string(TicketStatusOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("list open tickets by requester: %w", err)
	}
	defer rows.Close()
	return collectTickets(rows)
}

const ticketColumns = `id, requester_id, location, category, title, description,
	status, priority, resolution_summary, quality_rating, created_at_unix, resolved_at_unix`

func scanTicket(row rowScanner) (Ticket, error) {
	var ticket Ticket
	var status string
	var createdAt int64
	var resolvedAt sql.NullInt64
	if err := row.Scan(
		&ticket.ID,
		&ticket.RequesterID,
		&ticket.Location,
		&ticket.Category,
		&ticket.Title,
		&ticket.Description,
		&status,
		&ticket.Priority,
		&ticket.ResolutionSummary,
		&ticket.QualityRating,
		&createdAt,
		&resolvedAt,
	); err != nil {
		return Ticket{}, err
	}
	ticket.Status = TicketStatus(status)
	ticket.CreatedAt = time.Unix(createdAt, 0).UTC()
	if resolvedAt.Valid {
		ticket.ResolvedAt = time.Unix(resolvedAt.Int64, 0).UTC()
	}
	return ticket, nil
}

func collectTickets(rows *sql.Rows) ([]Ticket, error) {
	var tickets []Ticket
	for rows.Next() {
		ticket, err := scanTicket(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}
