package planner

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
)

// CreateTask adds a task under an owned milestone.
func (s *Service) CreateTask(ctx context.Context, milestoneID string, in model.TaskInput) (_ *model.Task, err error) {
	ctx, span, p, err := s.begin(ctx, "CreateTask")
	defer func() { s.end(span, "create_task", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("parent.id", milestoneID))

	in.Title = normalizeTitle(in.Title)
	if err := validateStruct(in); err != nil {
		return nil, err
	}

	if _, err := s.store.GetMilestone(ctx, p.UserID, milestoneID); err != nil {
		return nil, notFoundOr(err, "getting milestone %s", milestoneID)
	}
	if err := s.checkQuota(ctx, p, quota.Tasks); err != nil {
		return nil, err
	}

	now := s.clock()
	t := &model.Task{
		UserID:      p.UserID,
		MilestoneID: milestoneID,
		Title:       in.Title,
		Notes:       in.Notes,
		DueDate:     in.DueDate,
		Status:      model.WorkStatusTodo,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, t); err != nil {
		return nil, fmt.Errorf("creating task: %w", err)
	}
	span.SetAttributes(attribute.String("entity.id", t.ID))

	s.changed(ctx, p.UserID, model.EventTaskCreated)
	return t, nil
}

// UpdateTask applies a partial update to an owned task.
func (s *Service) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (_ *model.Task, err error) {
	ctx, span, p, err := s.begin(ctx, "UpdateTask")
	defer func() { s.end(span, "update_task", err) }()
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
	if n, ok := patch.Notes.Value(); ok && len([]rune(n)) > 5000 {
		return nil, &ValidationError{Field: "notes", Message: "must be at most 5000 characters"}
	}

	t, err := s.store.UpdateTask(ctx, p.UserID, id, store.TaskUpdate{
		Patch:     patch,
		UpdatedAt: s.clock(),
	})
	if err != nil {
		return nil, notFoundOr(err, "updating task %s", id)
	}

	s.changed(ctx, p.UserID, model.EventTaskUpdated)
	return t, nil
}

// SetTaskStatus moves an owned task to status. Task completion updates
// the summary but produces no user-facing notice.
func (s *Service) SetTaskStatus(ctx context.Context, id string, status model.WorkStatus) (_ *model.StatusResult[model.Task], err error) {
	ctx, span, p, err := s.begin(ctx, "SetTaskStatus")
	defer func() { s.end(span, "set_task_status", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entity.id", id), attribute.String("status", string(status)))

	if err := validateStatus(status); err != nil {
		return nil, err
	}

	t, err := s.store.SetTaskStatus(ctx, p.UserID, id, s.statusChange(status))
	if err != nil {
		return nil, notFoundOr(err, "setting task %s status", id)
	}

	event := model.EventTaskUpdated
	if t.IsDone() {
		event = model.EventTaskCompleted
	}
	s.changed(ctx, p.UserID, event)

	return &model.StatusResult[model.Task]{Item: t}, nil
}

// ListTasksByMilestone returns the tasks of an owned milestone.
func (s *Service) ListTasksByMilestone(ctx context.Context, milestoneID string) (_ []model.Task, err error) {
	ctx, span, p, err := s.begin(ctx, "ListTasksByMilestone")
	defer func() { s.end(span, "list_tasks", err) }()
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("parent.id", milestoneID))

	if _, err := s.store.GetMilestone(ctx, p.UserID, milestoneID); err != nil {
		return nil, notFoundOr(err, "getting milestone %s", milestoneID)
	}

	tasks, err := s.store.ListTasks(ctx, store.TaskFilter{UserID: p.UserID, MilestoneID: &milestoneID})
	if err != nil {
		return nil, fmt.Errorf("listing tasks of milestone %s: %w", milestoneID, err)
	}
	return tasks, nil
}

// DeleteTask removes an owned task.
func (s *Service) DeleteTask(ctx context.Context, id string) (err error) {
	ctx, span, p, err := s.begin(ctx, "DeleteTask")
	defer func() { s.end(span, "delete_task", err) }()
	if err != nil {
		return err
	}
	span.SetAttributes(attribute.String("entity.id", id))

	if err := s.store.DeleteTask(ctx, p.UserID, id); err != nil {
		return notFoundOr(err, "deleting task %s", id)
	}

	s.changed(ctx, p.UserID, model.EventTaskDeleted)
	return nil
}
