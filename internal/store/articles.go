package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Article is one knowledge-base record. The engine treats the corpus as
// read-only; writes exist for import tooling and tests.
type Article struct {
	ID          string
	Title       string
	Body        string
	Category    string
	Tags        []string
	Attachments []string
	UpdatedAt   time.Time
}

type UpsertArticleInput struct {
	ID          string
	Title       string
	Body        string
	Category    string
	Tags        []string
	Attachments []string
}

func (s *Store) UpsertArticle(ctx context.Context, input UpsertArticleInput) error {
	if strings.TrimSpace(input.ID) == "" {
		return fmt.Errorf("article id is required")
	}
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO articles (id, title, body, category, tags, attachments, updated_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
			title=excluded.title, body=excluded.body, category=excluded.category,
			tags=excluded.tags, attachments=excluded.attachments,
			updated_at_unix=excluded.updated_at_unix`,
		input.ID,
		input.Title,
		input.Body,
		input.Category,
		strings.Join(input.Tags, ","),
		strings.Join(input.Attachments, ","),
		time.Now().UTC().Unix(),
	)
	if err != nil {
		return fmt.Errorf("upsert article: %w", err)
	}
	return nil
}

func (s *Store) GetArticle(ctx context.Context, id string) (Article, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT id, title, body, category, tags, attachments, updated_at_unix
		 FROM articles WHERE id = ?`,
		id,
	)
	article, err := scanArticle(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Article{}, ErrNotFound
	}
	if err != nil {
		return Article{}, fmt.Errorf("get article: %w", err)
	}
	return article, nil
}

func (s *Store) ListArticles(ctx context.Context) ([]Article, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT id, title, body, category, tags, attachments, updated_at_unix
		 FROM articles ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("list articles: %w", err)
	}
	defer rows.Close()

	var articles []Article
	for rows.Next() {
		article, err := scanArticle(rows)
		if err != nil {
			return nil, fmt.Errorf("scan article: %w", err)
		}
		articles = append(articles, article)
	}
	return articles, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanArticle(row rowScanner) (Article, error) {
	var article Article
	var tags, attachments string
	var updatedAt int64
	if err := row.Scan(&article.ID, &article.Title, &article.Body, &article.Category, &tags, &attachments, &updatedAt); err != nil {
		return Article{}, err
	}
	article.Tags = splitCSV(tags)
	article.Attachments = splitCSV(attachments)
	article.UpdatedAt = time.Unix(updatedAt, 0).UTC()
	return article, nil
}

func splitCSV(value string) []string {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if clean := strings.TrimSpace(part); clean != "" {
			out = append(out, clean)
		}
	}
	return out
}
