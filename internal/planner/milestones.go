package planner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
)

// statusChange builds the store write for status, stamping CompletedAt
// exactly when the new status is done.
func (s *Service) statusChange(status model.WorkStatus) store.StatusChange {
	now := s.clock()
	change := store.StatusChange{Status: status, UpdatedAt: now}
	if status == model.WorkStatusDone {
		change.CompletedAt = &now
	}
	return change
}

// CreateMilestone adds a milestone under an owned goal.
func (s *Service) CreateMilestone(ctx context.Context, goalID string, in model.MilestoneInput) (_ *model.Milestone, err error) {
	ctx, span, p, err := s.begin(ctx, "CreateMilestone")
	defer func() { s.end(span, "create_milestone", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("parent.id", goalID))

	in.Title = normalizeTitle(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.store.GetGoal(ctx, p.UserID, goalID); err != nil {
		return nil, notFoundOr(err, "getting goal %s", goalID)
	}
	if err := s.checkQuota(ctx, p, quota.Milestones); err != nil {
		return nil, err
	}

	now := s.clock()
	m := &model.Milestone{
		UserID:      p.UserID,
		GoalID:      goalID,
		Title:       in.Title,
		Description: in.Description,
		TargetDate:  in.TargetDate,
		Status:      model.WorkStatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateMilestone(ctx, m); err != nil {
		return nil, fmt.Errorf("creating milestone: %w", err)
	}
	span.SetAttributes(attribute.String("entity.id", m.ID))

	s.changed(ctx, p.UserID, model.EventMilestoneCreated)
	return m, nil
}

// UpdateMilestone applies a partial update to an owned milestone. At
// least one field must be present.
func (s *Service) UpdateMilestone(ctx context.Context, id string, patch model.MilestonePatch) (_ *model.Milestone, err error) {
	ctx, span, p, err := s.begin(ctx, "UpdateMilestone")
	defer func() { s.end(span, "update_milestone", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	if patch.Empty() {
		return nil, &ValidationError{Message: "no fields to update"}
	}
	if patch.Title, err = validatePatchTitle(patch.Title); err != nil {
		return nil, err
	}
	if d, ok := patch.Description.Value(); ok && len([]rune(d)) > 5000 {
		return nil, &ValidationError{Field: "description", Message: "must be at most 5000 characters"}
	}

	m, err := s.store.UpdateMilestone(ctx, p.UserID, id, store.MilestoneUpdate{
		Patch:     patch,
		UpdatedAt: s.clock(),
	})
	if err != nil {
		return nil, notFoundOr(err, "updating milestone %s", id)
	}

	s.changed(ctx, p.UserID, model.EventMilestoneUpdated)
	return m, nil
}

// SetMilestoneStatus moves an owned milestone to status. Completing a
// milestone returns a notice linking to its goal.
func (s *Service) SetMilestoneStatus(ctx context.Context, id string, status model.WorkStatus) (_ *model.StatusResult[model.Milestone], err error) {
	ctx, span, p, err := s.begin(ctx, "SetMilestoneStatus")
	defer func() { s.end(span, "set_milestone_status", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id), attribute.String("status", string(status)))

	if err := validateStatus(status); err != nil {
		return nil, err
	}

	m, err := s.store.SetMilestoneStatus(ctx, p.UserID, id, s.statusChange(status))
	if err != nil {
		return nil, notFoundOr(err, "setting milestone %s status", id)
	}

	if !m.IsDone() {
		s.changed(ctx, p.UserID, model.EventMilestoneUpdated)
		return &model.StatusResult[model.Milestone]{Item: m}, nil
	}

	notice := model.Notice{
		EventType: model.EventMilestoneCompleted,
		Title:     "Milestone completed: " + m.Title,
		URL:       goalURL(m.GoalID),
	}
	s.announce(p.UserID, notice, model.LevelSuccess, map[string]string{
		"goal_id":      m.GoalID,
		"milestone_id": m.ID,
	})
	s.changed(ctx, p.UserID, model.EventMilestoneCompleted)

	return &model.StatusResult[model.Milestone]{Item: m, Notice: &notice}, nil
}

// ListMilestonesByGoal returns the milestones of an owned goal.
func (s *Service) ListMilestonesByGoal(ctx context.Context, goalID string) (_ []model.Milestone, err error) {
	ctx, span, p, err := s.begin(ctx, "ListMilestonesByGoal")
	defer func() { s.end(span, "list_milestones", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("parent.id", goalID))

	if _, err := s.store.GetGoal(ctx, p.UserID, goalID); err != nil {
		return nil, notFoundOr(err, "getting goal %s", goalID)
	}

	milestones, err := s.store.ListMilestones(ctx, store.MilestoneFilter{UserID: p.UserID, GoalID: &goalID})
	if err != nil {
		return nil, fmt.Errorf("listing milestones of goal %s: %w", goalID, err)
	}
	return milestones, nil
}

// DeleteMilestone removes an owned milestone and its tasks.
func (s *Service) DeleteMilestone(ctx context.Context, id string) (err error) {
	ctx, span, p, err := s.begin(ctx, "DeleteMilestone")
	defer func() { s.end(span, "delete_milestone", err) }()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	if err := s.store.DeleteMilestone(ctx, p.UserID, id); err != nil {
		return notFoundOr(err, "deleting milestone %s", id)
	}

	s.changed(ctx, p.UserID, model.EventMilestoneDeleted)
	return nil
}
