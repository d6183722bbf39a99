package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/career-planner/internal/model"
)

// ErrNotFound is returned when no row owned by the given user matches.
var ErrNotFound = errors.New("not found")

// GoalFilter controls ownership-scoped goal queries. UserID is required.
type GoalFilter struct {
	UserID string
	Status *model.GoalStatus
}

// MilestoneFilter controls ownership-scoped milestone queries.
// A nil GoalID selects milestones across all of the user's goals.
type MilestoneFilter struct {
	UserID string
	GoalID *string
	Status *model.WorkStatus
}

// TaskFilter controls ownership-scoped task queries.
// A nil MilestoneID selects tasks across all of the user's milestones.
type TaskFilter struct {
	UserID      string
	MilestoneID *string
	Status      *model.WorkStatus
}

// MilestoneUpdate lists the columns a milestone update may touch.
// Absent fields are left unchanged; null fields are cleared.
type MilestoneUpdate struct {
	Patch     model.MilestonePatch
	UpdatedAt time.Time
}

// TaskUpdate lists the columns a task update may touch.
type TaskUpdate struct {
	Patch     model.TaskPatch
	UpdatedAt time.Time
}

// StatusChange is a status transition with its completion stamp.
// CompletedAt must be non-nil exactly when Status is done.
type StatusChange struct {
	Status      model.WorkStatus
	CompletedAt *time.Time
	UpdatedAt   time.Time
}

// DeadLetter records a notification the dispatcher could not deliver.
type DeadLetter struct {
	ID        string    `json:"id" db:"id"`
	Kind      string    `json:"kind" db:"kind"`
	UserID    string    `json:"userId" db:"user_id"`
	EventType string    `json:"eventType" db:"event_type"`
	Payload   string    `json:"payload" db:"payload"`
	Error     string    `json:"error" db:"error"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// Store defines the ownership-scoped persistence interface for goals,
// milestones and tasks. Every read and write is keyed by owner and ID;
// parent-reference integrity is the caller's responsibility.
// List methods order by updated_at, created_at, id, all descending.
type Store interface {
	// === Goals ===

	CreateGoal(ctx context.Context, goal *model.Goal) error
	UpdateGoal(ctx context.Context, userID, id string, in model.GoalInput, updatedAt time.Time) (*model.Goal, error)
	SetGoalStatus(ctx context.Context, userID, id string, status model.GoalStatus, updatedAt time.Time) (*model.Goal, error)
	GetGoal(ctx context.Context, userID, id string) (*model.Goal, error)
	ListGoals(ctx context.Context, filter GoalFilter) ([]model.Goal, error)
	CountGoals(ctx context.Context, filter GoalFilter) (int, error)
	DeleteGoal(ctx context.Context, userID, id string) error

	// === Milestones ===

	CreateMilestone(ctx context.Context, m *model.Milestone) error
	UpdateMilestone(ctx context.Context, userID, id string, upd MilestoneUpdate) (*model.Milestone, error)
	SetMilestoneStatus(ctx context.Context, userID, id string, change StatusChange) (*model.Milestone, error)
	GetMilestone(ctx context.Context, userID, id string) (*model.Milestone, error)
	ListMilestones(ctx context.Context, filter MilestoneFilter) ([]model.Milestone, error)
	CountMilestones(ctx context.Context, filter MilestoneFilter) (int, error)
	DeleteMilestone(ctx context.Context, userID, id string) error

	// === Tasks ===

	CreateTask(ctx context.Context, t *model.Task) error
	UpdateTask(ctx context.Context, userID, id string, upd TaskUpdate) (*model.Task, error)
	SetTaskStatus(ctx context.Context, userID, id string, change StatusChange) (*model.Task, error)
	GetTask(ctx context.Context, userID, id string) (*model.Task, error)
	ListTasks(ctx context.Context, filter TaskFilter) ([]model.Task, error)
	CountTasks(ctx context.Context, filter TaskFilter) (int, error)
	DeleteTask(ctx context.Context, userID, id string) error

	// === Dead letters ===

	CreateDeadLetter(ctx context.Context, dl DeadLetter) error
	ListDeadLetters(ctx context.Context, limit int) ([]DeadLetter, error)
}
