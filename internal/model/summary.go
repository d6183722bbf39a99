package model

import "time"

// Summary identification constants.
const (
	SummaryAppID   = "career-planner"
	SummaryVersion = 1
)

// SummaryTotals holds the count block of a progress summary.
type SummaryTotals struct {
	ActiveGoals     int `json:"activeGoals"`
	MilestonesTotal int `json:"milestonesTotal"`
	MilestonesDone  int `json:"milestonesDone"`
	TasksTotal      int `json:"tasksTotal"`
	TasksDone       int `json:"tasksDone"`
	OverdueTasks    int `json:"overdueTasks"`
}

// SummaryActivity holds the time markers of a progress summary.
// LastActivityAt is always set; it falls back to the generation instant.
type SummaryActivity struct {
	LastCompletedAt *time.Time `json:"lastCompletedAt"`
	LastActivityAt  time.Time  `json:"lastActivityAt"`
}

// ProgressSummary is a derived, point-in-time snapshot of a user's
// goals, milestones and tasks. It is never persisted.
type ProgressSummary struct {
	AppID       string          `json:"appId"`
	Version     int             `json:"version"`
	GeneratedAt time.Time       `json:"generatedAt"`
	Totals      SummaryTotals   `json:"totals"`
	Activity    SummaryActivity `json:"activity"`
}
