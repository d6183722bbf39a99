package model

import "time"

// WorkStatus is the status shared by milestones and tasks.
type WorkStatus string

// Work status constants. Items cycle freely between all three.
const (
	WorkStatusTodo  WorkStatus = "todo"
	WorkStatusDoing WorkStatus = "doing"
	WorkStatusDone  WorkStatus = "done"
)

// Valid reports whether s is one of the known work statuses.
func (s WorkStatus) Valid() bool {
	switch s {
	case WorkStatusTodo, WorkStatusDoing, WorkStatusDone:
		return true
	}
	return false
}

// Milestone is a sub-objective under a goal.
// CompletedAt is non-nil exactly when Status is done.
type Milestone struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	GoalID      string     `json:"goalId" db:"goal_id"`
	Title       string     `json:"title" db:"title"`
	Description *string    `json:"description,omitempty" db:"description"`
	TargetDate  *time.Time `json:"targetDate,omitempty" db:"target_date"`
	Status      WorkStatus `json:"status" db:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsDone reports whether the milestone is complete.
func (m Milestone) IsDone() bool { return m.Status == WorkStatusDone }

// MilestoneInput carries the fields accepted when creating a milestone.
type MilestoneInput struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description *string    `json:"description,omitempty" validate:"omitempty,max=5000"`
	TargetDate  *time.Time `json:"targetDate,omitempty"`
}

// MilestonePatch is a partial update; only present fields are applied.
type MilestonePatch struct {
	Title       Field[string]    `json:"title,omitzero"`
	Description Field[string]    `json:"description,omitzero"`
	TargetDate  Field[time.Time] `json:"targetDate,omitzero"`
}

// Empty reports whether no field is present.
func (p MilestonePatch) Empty() bool {
	return !p.Title.Present() && !p.Description.Present() && !p.TargetDate.Present()
}
