package model

import "time"

// EventType tags summary-change and user-facing notices.
type EventType string

const (
	EventGoalCreated        EventType = "goal_created"
	EventGoalUpdated        EventType = "goal_updated"
	EventGoalArchived       EventType = "goal_archived"
	EventGoalDeleted        EventType = "goal_deleted"
	EventMilestoneCreated   EventType = "milestone_created"
	EventMilestoneUpdated   EventType = "milestone_updated"
	EventMilestoneCompleted EventType = "milestone_completed"
	EventMilestoneDeleted   EventType = "milestone_deleted"
	EventTaskCreated        EventType = "task_created"
	EventTaskUpdated        EventType = "task_updated"
	EventTaskCompleted      EventType = "task_completed"
	EventTaskDeleted        EventType = "task_deleted"
)

// Notice levels understood by the parent system.
const (
	LevelInfo    = "info"
	LevelSuccess = "success"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Notice is an ephemeral, user-facing description of a state transition
// with side effects (archival, completion). It is returned to the caller
// and mirrored to the parent system as an EventNotice.
type Notice struct {
	EventType EventType `json:"eventType"`
	Title     string    `json:"title"`
	URL       string    `json:"url"`
}

// SummaryNotice tells the parent system that a user's summary changed.
type SummaryNotice struct {
	UserID         string          `json:"userId"`
	EventType      EventType       `json:"eventType"`
	SummaryVersion int             `json:"summaryVersion"`
	Summary        ProgressSummary `json:"summary"`
}

// EventNotice is the user-facing notification forwarded to the parent system.
type EventNotice struct {
	UserID    string            `json:"userId"`
	EventType EventType         `json:"eventType"`
	Title     string            `json:"title"`
	Message   string            `json:"message"`
	Level     string            `json:"level"`
	Meta      map[string]string `json:"meta,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
}
