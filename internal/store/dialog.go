package store

import (
	"context"
	"fmt"
	"time"
)

// DialogEntry is one audited line of a conversation: what the requester sent
// and what the engine answered.
type DialogEntry struct {
	SessionID string
	Role      string
	Content   string
	CreatedAt time.Time
}

func (s *Store) AppendDialog(ctx context.Context, entry DialogEntry) error {
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO dialog_log (session_id, role, content, created_at_unix) VALUES (?, ?, ?, ?)`,
		entry.SessionID,
		entry.Role,
		entry.Content,
		createdAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("append dialog: %w", err)
	}
	return nil
}

func (s *Store) ListDialog(ctx context.Context, sessionID string, limit int) ([]DialogEntry, error) {
	if limit < 1 {
		limit = 50
	}
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT session_id, role, content, created_at_unix FROM dialog_log
		 WHERE session_id = ? ORDER BY id DESC LIMIT ?`,
		sessionID,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list dialog: %w", err)
	}
	defer rows.Close()

	var entries []DialogEntry
	for rows.Next() {
		var entry DialogEntry
		var createdAt int64
		if err := rows.Scan(&entry.SessionID, &entry.Role, &entry.Content, &createdAt); err != nil {
			return nil, fmt.Errorf("scan dialog entry: %w", err)
		}
		entry.CreatedAt = time.Unix(createdAt, 0).UTC()
		entries = append(entries, entry)
	}
	// Oldest first.
	for left, right := 0, len(entries)-1; left < right; left, right = left+1, right-1 {
		entries[left], entries[right] = entries[right], entries[left]
	}
	return entries, rows.Err()
}
