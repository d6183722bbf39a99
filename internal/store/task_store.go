package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nhle/career-planner/internal/model"
)

var taskColumns = []string{
	"id", "user_id", "milestone_id", "title", "notes", "due_date",
	"status", "completed_at", "created_at", "updated_at",
}

func taskWhere(filter TaskFilter) sq.And {
	where := sq.And{sq.Eq{"user_id": filter.UserID}}
	if filter.MilestoneID != nil {
		where = append(where, sq.Eq{"milestone_id": *filter.MilestoneID})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	return where
}

// CreateTask inserts a new task. The parent milestone is not checked.
func (s *SQLiteStore) CreateTask(ctx context.Context, t *model.Task) error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("task title must not be empty")
	}
	if t.UserID == "" || t.MilestoneID == "" {
		return fmt.Errorf("task owner and milestone must not be empty")
	}
	if t.ID == "" {
		t.ID = newID()
	}
	if t.Status == "" {
		t.Status = model.WorkStatusTodo
	}
	if t.CreatedAt.IsZero() {
		t.CreatedAt = time.Now()
	}
	if t.UpdatedAt.IsZero() {
		t.UpdatedAt = t.CreatedAt
	}
	t.CreatedAt = t.CreatedAt.UTC()
	t.UpdatedAt = t.UpdatedAt.UTC()
	t.DueDate = utcPtr(t.DueDate)
	t.CompletedAt = utcPtr(t.CompletedAt)

	query, args, err := sq.Insert("tasks").
		Columns(taskColumns...).
		Values(
			t.ID, t.UserID, t.MilestoneID, t.Title, t.Notes, t.DueDate,
			string(t.Status), t.CompletedAt, t.CreatedAt, t.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("building task insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}
	return nil
}

// UpdateTask applies the present fields of upd.Patch to an owned task.
func (s *SQLiteStore) UpdateTask(
	ctx context.Context,
	userID, id string,
	upd TaskUpdate,
) (*model.Task, error) {
	b := sq.Update("tasks").
		Set("updated_at", upd.UpdatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	p := upd.Patch
	if title, ok := p.Title.Value(); ok {
		if strings.TrimSpace(title) == "" {
			return nil, fmt.Errorf("task title must not be empty")
		}
		b = b.Set("title", title)
	} else if p.Title.IsNull() {
		return nil, fmt.Errorf("task title must not be null")
	}
	if p.Notes.Present() {
		b = b.Set("notes", p.Notes.Ptr())
	}
	if p.DueDate.Present() {
		b = b.Set("due_date", utcPtr(p.DueDate.Ptr()))
	}

	t, err := s.updateTask(ctx, userID, id, b)
	if err != nil {
		return nil, fmt.Errorf("updating task %s: %w", id, err)
	}
	return t, nil
}

// SetTaskStatus writes a status transition and its completion stamp.
func (s *SQLiteStore) SetTaskStatus(
	ctx context.Context,
	userID, id string,
	change StatusChange,
) (*model.Task, error) {
	b := sq.Update("tasks").
		Set("status", string(change.Status)).
		Set("completed_at", utcPtr(change.CompletedAt)).
		Set("updated_at", change.UpdatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	t, err := s.updateTask(ctx, userID, id, b)
	if err != nil {
		return nil, fmt.Errorf("setting task %s status: %w", id, err)
	}
	return t, nil
}

func (s *SQLiteStore) updateTask(
	ctx context.Context,
	userID, id string,
	upd sq.UpdateBuilder,
) (*model.Task, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := execOwned(ctx, tx, upd); err != nil {
		return nil, err
	}

	var t model.Task
	err = getOne(ctx, tx, &t, sq.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return &t, nil
}

// GetTask retrieves a single task owned by userID.
func (s *SQLiteStore) GetTask(ctx context.Context, userID, id string) (*model.Task, error) {
	var t model.Task
	err := getOne(ctx, s.db, &t, sq.Select(taskColumns...).From("tasks").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("getting task %s: %w", id, err)
	}
	return &t, nil
}

// ListTasks retrieves the tasks matching the filter, most recent first.
func (s *SQLiteStore) ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error) {
	tasks := []model.Task{}
	err := s.selectAll(ctx, &tasks, sq.Select(taskColumns...).From("tasks").
		Where(taskWhere(filter)).
		OrderBy(recentFirst...))
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	return tasks, nil
}

// CountTasks returns the number of tasks matching the filter.
func (s *SQLiteStore) CountTasks(ctx context.Context, filter TaskFilter) (int, error) {
	n, err := s.count(ctx, sq.Select("COUNT(*)").From("tasks").Where(taskWhere(filter)))
	if err != nil {
		return 0, fmt.Errorf("counting tasks: %w", err)
	}
	return n, nil
}

// DeleteTask removes an owned task.
func (s *SQLiteStore) DeleteTask(ctx context.Context, userID, id string) error {
	err := execOwned(ctx, s.db, sq.Delete("tasks").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", id, err)
	}
	return nil
}
