package planner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
)

func goalURL(goalID string) string { return "/goals/" + goalID }

func normalizeGoalInput(in model.GoalInput) (model.GoalInput, error) {
	in.Title = normalizeTitle(in.Title)
	if err := validateStruct(in); err != nil {
		return in, err
	}
	return in, nil
}

// CreateGoal validates in, checks the active-goal quota and inserts an
// active goal owned by the caller.
func (s *Service) CreateGoal(ctx context.Context, in model.GoalInput) (_ *model.Goal, err error) {
	ctx, span, p, err := s.begin(ctx, "CreateGoal")
	defer func() { s.end(span, "create_goal", err) }()
	if err != nil {
		return nil, err
	}

	in, err = normalizeGoalInput(in)
	if err != nil {
		return nil, err
	}
	if err := s.checkQuota(ctx, p, quota.ActiveGoals); err != nil {
		return nil, err
	}

	now := s.clock()
	goal := &model.Goal{
		UserID:     p.UserID,
		Title:      in.Title,
		TargetRole: in.TargetRole,
		Notes:      in.Notes,
		Status:     model.GoalStatusActive,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateGoal(ctx, goal); err != nil {
		return nil, fmt.Errorf("creating goal: %w", err)
	}
	span.SetAttributes(attribute.String("entity.id", goal.ID))

	s.changed(ctx, p.UserID, model.EventGoalCreated)
	return goal, nil
}

// UpdateGoal replaces the title, target role and notes of an owned goal.
func (s *Service) UpdateGoal(ctx context.Context, id string, in model.GoalInput) (_ *model.Goal, err error) {
	ctx, span, p, err := s.begin(ctx, "UpdateGoal")
	defer func() { s.end(span, "update_goal", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	in, err = normalizeGoalInput(in)
	if err != nil {
		return nil, err
	}

	goal, err := s.store.UpdateGoal(ctx, p.UserID, id, in, s.clock())
	if err != nil {
		return nil, notFoundOr(err, "updating goal %s", id)
	}

	s.changed(ctx, p.UserID, model.EventGoalUpdated)
	return goal, nil
}

// ArchiveGoal moves an owned goal to archived. Archiving is never
// quota-checked and frees a slot in the active-goal quota.
func (s *Service) ArchiveGoal(ctx context.Context, id string) (_ *model.ArchivedGoal, err error) {
	ctx, span, p, err := s.begin(ctx, "ArchiveGoal")
	defer func() { s.end(span, "archive_goal", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	goal, err := s.store.SetGoalStatus(ctx, p.UserID, id, model.GoalStatusArchived, s.clock())
	if err != nil {
		return nil, notFoundOr(err, "archiving goal %s", id)
	}

	notice := model.Notice{
		EventType: model.EventGoalArchived,
		Title:     "Goal archived: " + goal.Title,
		URL:       goalURL(goal.ID),
	}
	s.announce(p.UserID, notice, model.LevelInfo, map[string]string{"goal_id": goal.ID})
	s.changed(ctx, p.UserID, model.EventGoalArchived)

	return &model.ArchivedGoal{Goal: goal, Notice: notice}, nil
}

// GetGoal returns one owned goal.
func (s *Service) GetGoal(ctx context.Context, id string) (_ *model.Goal, err error) {
	ctx, span, p, err := s.begin(ctx, "GetGoal")
	defer func() { s.end(span, "get_goal", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	goal, err := s.store.GetGoal(ctx, p.UserID, id)
	if err != nil {
		return nil, notFoundOr(err, "getting goal %s", id)
	}
	return goal, nil
}

// ListGoals returns all of the caller's goals, most recently updated first.
func (s *Service) ListGoals(ctx context.Context) (_ []model.Goal, err error) {
	ctx, span, p, err := s.begin(ctx, "ListGoals")
	defer func() { s.end(span, "list_goals", err) }()
	if err != nil {
		return nil, err
	}

	goals, err := s.store.ListGoals(ctx, store.GoalFilter{UserID: p.UserID})
	if err != nil {
		return nil, fmt.Errorf("listing goals: %w", err)
	}
	return goals, nil
}

// DeleteGoal removes an owned goal with all of its milestones and tasks.
func (s *Service) DeleteGoal(ctx context.Context, id string) (err error) {
	ctx, span, p, err := s.begin(ctx, "DeleteGoal")
	defer func() { s.end(span, "delete_goal", err) }()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	if err := s.store.DeleteGoal(ctx, p.UserID, id); err != nil {
		return notFoundOr(err, "deleting goal %s", id)
	}

	s.changed(ctx, p.UserID, model.EventGoalDeleted)
	return nil
}
