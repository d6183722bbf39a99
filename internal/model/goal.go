package model

import "time"

// GoalStatus is the lifecycle state of a goal.
type GoalStatus string

// Goal status constants. Archived is terminal.
const (
	GoalStatusActive   GoalStatus = "active"
	GoalStatusArchived GoalStatus = "archived"
)

// Goal is a top-level career objective owned by a single user.
type Goal struct {
	ID         string     `json:"id" db:"id"`
	UserID     string     `json:"userId" db:"user_id"`
	Title      string     `json:"title" db:"title"`
	TargetRole *string    `json:"targetRole,omitempty" db:"target_role"`
	Notes      *string    `json:"notes,omitempty" db:"notes"`
	Status     GoalStatus `json:"status" db:"status"`
	CreatedAt  time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt  time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsActive reports whether the goal counts toward the active-goal quota.
func (g Goal) IsActive() bool { return g.Status == GoalStatusActive }

// GoalInput carries the mutable fields of a goal for create and update.
// Update replaces all three fields; nil optional fields are cleared.
type GoalInput struct {
	Title      string  `json:"title" validate:"required,max=200"`
	TargetRole *string `json:"targetRole,omitempty" validate:"omitempty,max=200"`
	Notes      *string `json:"notes,omitempty" validate:"omitempty,max=5000"`
}
