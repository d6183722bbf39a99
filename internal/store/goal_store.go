package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nhle/career-planner/internal/model"
)

var goalColumns = []string{
	"id", "user_id", "title", "target_role", "notes",
	"status", "created_at", "updated_at",
}

// goalWhere builds the ownership predicate for a GoalFilter.
func goalWhere(filter GoalFilter) sq.And {
	where := sq.And{sq.Eq{"user_id": filter.UserID}}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	return where
}

// CreateGoal inserts a new goal. Generates an ID if empty and fills
// missing timestamps with the current time.
func (s *SQLiteStore) CreateGoal(ctx context.Context, goal *model.Goal) error {
	if strings.TrimSpace(goal.Title) == "" {
		return fmt.Errorf("goal title must not be empty")
	}
	if goal.UserID == "" {
		return fmt.Errorf("goal owner must not be empty")
	}
	if goal.ID == "" {
		goal.ID = newID()
	}
	if goal.Status == "" {
		goal.Status = model.GoalStatusActive
	}
	now := time.Now().UTC()
	if goal.CreatedAt.IsZero() {
		goal.CreatedAt = now
	}
	if goal.UpdatedAt.IsZero() {
		goal.UpdatedAt = goal.CreatedAt
	}
	goal.CreatedAt = goal.CreatedAt.UTC()
	goal.UpdatedAt = goal.UpdatedAt.UTC()

	query, args, err := sq.Insert("goals").
		Columns(goalColumns...).
		Values(
			goal.ID, goal.UserID, goal.Title, goal.TargetRole, goal.Notes,
			string(goal.Status), goal.CreatedAt, goal.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("building goal insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("creating goal: %w", err)
	}
	return nil
}

// UpdateGoal replaces the mutable fields of an owned goal and returns
// the updated row.
func (s *SQLiteStore) UpdateGoal(
	ctx context.Context,
	userID, id string,
	in model.GoalInput,
	updatedAt time.Time,
) (*model.Goal, error) {
	if strings.TrimSpace(in.Title) == "" {
		return nil, fmt.Errorf("goal title must not be empty")
	}

	upd := sq.Update("goals").
		Set("title", in.Title).
		Set("target_role", in.TargetRole).
		Set("notes", in.Notes).
		Set("updated_at", updatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	goal, err := s.updateGoal(ctx, userID, id, upd)
	if err != nil {
		return nil, fmt.Errorf("updating goal %s: %w", id, err)
	}
	return goal, nil
}

// SetGoalStatus transitions an owned goal and returns the updated row.
func (s *SQLiteStore) SetGoalStatus(
	ctx context.Context,
	userID, id string,
	status model.GoalStatus,
	updatedAt time.Time,
) (*model.Goal, error) {
	upd := sq.Update("goals").
		Set("status", string(status)).
		Set("updated_at", updatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	goal, err := s.updateGoal(ctx, userID, id, upd)
	if err != nil {
		return nil, fmt.Errorf("setting goal %s status: %w", id, err)
	}
	return goal, nil
}

// updateGoal applies upd and reads the row back in the same transaction.
func (s *SQLiteStore) updateGoal(
	ctx context.Context,
	userID, id string,
	upd sq.UpdateBuilder,
) (*model.Goal, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := execOwned(ctx, tx, upd); err != nil {
		return nil, err
	}

	var goal model.Goal
	err = getOne(ctx, tx, &goal, sq.Select(goalColumns...).From("goals").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return &goal, nil
}

// GetGoal retrieves a single goal owned by userID.
func (s *SQLiteStore) GetGoal(ctx context.Context, userID, id string) (*model.Goal, error) {
	var goal model.Goal
	err := getOne(ctx, s.db, &goal, sq.Select(goalColumns...).From("goals").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("getting goal %s: %w", id, err)
	}
	return &goal, nil
}

// ListGoals retrieves the goals matching the filter, most recent first.
func (s *SQLiteStore) ListGoals(ctx context.Context, filter GoalFilter) ([]model.Goal, error) {
	goals := []model.Goal{}
	err := s.selectAll(ctx, &goals, sq.Select(goalColumns...).From("goals").
		Where(goalWhere(filter)).
		OrderBy(recentFirst...))
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	return goals, nil
}

// CountGoals returns the number of goals matching the filter.
func (s *SQLiteStore) CountGoals(ctx context.Context, filter GoalFilter) (int, error) {
	n, err := s.count(ctx, sq.Select("COUNT(*)").From("goals").Where(goalWhere(filter)))
	if err != nil {
		return 0, fmt.Errorf("counting goals: %w", err)
	}
	return n, nil
}

// DeleteGoal removes an owned goal together with its milestones and
// their tasks in a single transaction.
func (s *SQLiteStore) DeleteGoal(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	err = execOwned(ctx, tx, sq.Delete("goals").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("deleting goal %s: %w", id, err)
	}

	tasks := sq.Delete("tasks").Where(sq.And{
		sq.Eq{"user_id": userID},
		sq.Expr("milestone_id IN (SELECT id FROM milestones WHERE goal_id = ? AND user_id = ?)", id, userID),
	})
	if err := execAll(ctx, tx, tasks); err != nil {
		return fmt.Errorf("deleting tasks of goal %s: %w", id, err)
	}

	milestones := sq.Delete("milestones").Where(sq.Eq{"goal_id": id, "user_id": userID})
	if err := execAll(ctx, tx, milestones); err != nil {
		return fmt.Errorf("deleting milestones of goal %s: %w", id, err)
	}

	return tx.Commit()
}
