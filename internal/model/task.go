package model

import "time"

// Task is an actionable item under a milestone.
// CompletedAt is non-nil exactly when Status is done.
type Task struct {
	ID          string     `json:"id" db:"id"`
	UserID      string     `json:"userId" db:"user_id"`
	MilestoneID string     `json:"milestoneId" db:"milestone_id"`
	Title       string     `json:"title" db:"title"`
	Notes       *string    `json:"notes,omitempty" db:"notes"`
	DueDate     *time.Time `json:"dueDate,omitempty" db:"due_date"`
	Status      WorkStatus `json:"status" db:"status"`
	CompletedAt *time.Time `json:"completedAt,omitempty" db:"completed_at"`
	CreatedAt   time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt   time.Time  `json:"updatedAt" db:"updated_at"`
}

// IsDone reports whether the task is complete.
func (t Task) IsDone() bool { return t.Status == WorkStatusDone }

// IsOverdue reports whether the task is unfinished and due strictly before now.
func (t Task) IsOverdue(now time.Time) bool {
	return t.DueDate != nil && t.DueDate.Before(now) && t.Status != WorkStatusDone
}

// TaskInput carries the fields accepted when creating a task.
type TaskInput struct {
	Title   string     `json:"title" validate:"required,max=200"`
	Notes   *string    `json:"notes,omitempty" validate:"omitempty,max=5000"`
	DueDate *time.Time `json:"dueDate,omitempty"`
}

// TaskPatch is a partial update; only present fields are applied.
type TaskPatch struct {
	Title   Field[string]    `json:"title,omitzero"`
	Notes   Field[string]    `json:"notes,omitzero"`
	DueDate Field[time.Time] `json:"dueDate,omitzero"`
}

// Empty reports whether no field is present.
func (p TaskPatch) Empty() bool {
	return !p.Title.Present() && !p.Notes.Present() && !p.DueDate.Present()
}
