package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/nhle/career-planner/internal/model"
)

var milestoneColumns = []string{
	"id", "user_id", "goal_id", "title", "description", "target_date",
	"status", "completed_at", "created_at", "updated_at",
}

func milestoneWhere(filter MilestoneFilter) sq.And {
	where := sq.And{sq.Eq{"user_id": filter.UserID}}
	if filter.GoalID != nil {
		where = append(where, sq.Eq{"goal_id": *filter.GoalID})
	}
	if filter.Status != nil {
		where = append(where, sq.Eq{"status": string(*filter.Status)})
	}
	return where
}

// utcPtr normalizes an optional timestamp so stored values sort lexically.
func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

// CreateMilestone inserts a new milestone. The parent goal is not checked.
func (s *SQLiteStore) CreateMilestone(ctx context.Context, m *model.Milestone) error {
	if strings.TrimSpace(m.Title) == "" {
		return fmt.Errorf("milestone title must not be empty")
	}
	if m.UserID == "" || m.GoalID == "" {
		return fmt.Errorf("milestone owner and goal must not be empty")
	}
	if m.ID == "" {
		m.ID = newID()
	}
	if m.Status == "" {
		m.Status = model.WorkStatusTodo
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = time.Now()
	}
	if m.UpdatedAt.IsZero() {
		m.UpdatedAt = m.CreatedAt
	}
	m.CreatedAt = m.CreatedAt.UTC()
	m.UpdatedAt = m.UpdatedAt.UTC()
	m.TargetDate = utcPtr(m.TargetDate)
	m.CompletedAt = utcPtr(m.CompletedAt)

	query, args, err := sq.Insert("milestones").
		Columns(milestoneColumns...).
		Values(
			m.ID, m.UserID, m.GoalID, m.Title, m.Description, m.TargetDate,
			string(m.Status), m.CompletedAt, m.CreatedAt, m.UpdatedAt,
		).ToSql()
	if err != nil {
		return fmt.Errorf("building milestone insert: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("creating milestone: %w", err)
	}
	return nil
}

// UpdateMilestone applies the present fields of upd.Patch to an owned
// milestone and returns the updated row.
func (s *SQLiteStore) UpdateMilestone(
	ctx context.Context,
	userID, id string,
	upd MilestoneUpdate,
) (*model.Milestone, error) {
	b := sq.Update("milestones").
		Set("updated_at", upd.UpdatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	p := upd.Patch
	if title, ok := p.Title.Value(); ok {
		if strings.TrimSpace(title) == "" {
			return nil, fmt.Errorf("milestone title must not be empty")
		}
		b = b.Set("title", title)
	} else if p.Title.IsNull() {
		return nil, fmt.Errorf("milestone title must not be null")
	}
	if p.Description.Present() {
		b = b.Set("description", p.Description.Ptr())
	}
	if p.TargetDate.Present() {
		b = b.Set("target_date", utcPtr(p.TargetDate.Ptr()))
	}

	m, err := s.updateMilestone(ctx, userID, id, b)
	if err != nil {
		return nil, fmt.Errorf("updating milestone %s: %w", id, err)
	}
	return m, nil
}

// SetMilestoneStatus writes a status transition and its completion stamp.
func (s *SQLiteStore) SetMilestoneStatus(
	ctx context.Context,
	userID, id string,
	change StatusChange,
) (*model.Milestone, error) {
	b := sq.Update("milestones").
		Set("status", string(change.Status)).
		Set("completed_at", utcPtr(change.CompletedAt)).
		Set("updated_at", change.UpdatedAt.UTC()).
		Where(sq.Eq{"id": id, "user_id": userID})

	m, err := s.updateMilestone(ctx, userID, id, b)
	if err != nil {
		return nil, fmt.Errorf("setting milestone %s status: %w", id, err)
	}
	return m, nil
}

func (s *SQLiteStore) updateMilestone(
	ctx context.Context,
	userID, id string,
	upd sq.UpdateBuilder,
) (*model.Milestone, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if err := execOwned(ctx, tx, upd); err != nil {
		return nil, err
	}

	var m model.Milestone
	err = getOne(ctx, tx, &m, sq.Select(milestoneColumns...).From("milestones").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing: %w", err)
	}
	return &m, nil
}

// GetMilestone retrieves a single milestone owned by userID.
func (s *SQLiteStore) GetMilestone(ctx context.Context, userID, id string) (*model.Milestone, error) {
	var m model.Milestone
	err := getOne(ctx, s.db, &m, sq.Select(milestoneColumns...).From("milestones").
		Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return nil, fmt.Errorf("getting milestone %s: %w", id, err)
	}
	return &m, nil
}

// ListMilestones retrieves the milestones matching the filter, most recent first.
func (s *SQLiteStore) ListMilestones(ctx context.Context, filter MilestoneFilter) ([]model.Milestone, error) {
	milestones := []model.Milestone{}
	err := s.selectAll(ctx, &milestones, sq.Select(milestoneColumns...).From("milestones").
		Where(milestoneWhere(filter)).
		OrderBy(recentFirst...))
	if err != nil {
		return nil, fmt.Errorf("querying milestones: %w", err)
	}
	return milestones, nil
}

// CountMilestones returns the number of milestones matching the filter.
func (s *SQLiteStore) CountMilestones(ctx context.Context, filter MilestoneFilter) (int, error) {
	n, err := s.count(ctx, sq.Select("COUNT(*)").From("milestones").Where(milestoneWhere(filter)))
	if err != nil {
		return 0, fmt.Errorf("counting milestones: %w", err)
	}
	return n, nil
}

// DeleteMilestone removes an owned milestone and its tasks.
func (s *SQLiteStore) DeleteMilestone(ctx context.Context, userID, id string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	err = execOwned(ctx, tx, sq.Delete("milestones").Where(sq.Eq{"id": id, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("deleting milestone %s: %w", id, err)
	}

	err = execAll(ctx, tx, sq.Delete("tasks").Where(sq.Eq{"milestone_id": id, "user_id": userID}))
	if err != nil {
		return fmt.Errorf("deleting tasks of milestone %s: %w", id, err)
	}

	return tx.Commit()
}
