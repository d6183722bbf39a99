package store

import (
	"context"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"
)

var deadLetterColumns = []string{
	"id", "kind", "user_id", "event_type", "payload", "error", "created_at",
}

// CreateDeadLetter records an undeliverable notification.
func (s *SQLiteStore) CreateDeadLetter(ctx context.Context, dl DeadLetter) error {
	if dl.ID == "" {
		dl.ID = newID()
	}
	if dl.CreatedAt.IsZero() {
		dl.CreatedAt = time.Now()
	}
	if dl.Payload == "" {
		dl.Payload = "{}"
	}

	query, args, err := sq.Insert("dead_letters").
		Columns(deadLetterColumns...).
		Values(dl.ID, dl.Kind, dl.UserID, dl.EventType, dl.Payload, dl.Error, dl.CreatedAt.UTC()).
		ToSql()
	if err != nil {
		return fmt.Errorf("building dead letter insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("creating dead letter: %w", err)
	}
	return nil
}

// ListDeadLetters returns the newest dead letters first, up to limit
// (no limit when limit <= 0).
func (s *SQLiteStore) ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error) {
	b := sq.Select(deadLetterColumns...).From("dead_letters").
		OrderBy("created_at DESC", "id DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit))
	}

	letters := []DeadLetter{}
	if err := s.selectAll(ctx, &letters, b); err != nil {
		return nil, fmt.Errorf("querying dead letters: %w", err)
	}
	return letters, nil
}
