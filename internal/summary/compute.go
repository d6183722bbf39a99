// Package summary derives progress summaries from a user's goals,
// milestones and tasks.
package summary

import (
	"strings"
	"time"

	"github.com/nhle/career-planner/internal/model"
)

// stamp is the ordering key shared by all three entity types.
type stamp struct {
	updated time.Time
	created time.Time
	id      string
}

// newer reports whether a sorts before b under updated desc, created desc, id desc.
func (a stamp) newer(b stamp) bool {
	if !a.updated.Equal(b.updated) {
		return a.updated.After(b.updated)
	}
	if !a.created.Equal(b.created) {
		return a.created.After(b.created)
	}
	return strings.Compare(a.id, b.id) > 0
}

// mostRecent returns the index of the first element of items under the
// recency ordering, considering only those for which keep returns true.
// It returns -1 when nothing qualifies.
func mostRecent[T any](items []T, key func(T) stamp, keep func(T) bool) int {
	best := -1
	var bestKey stamp
	for i, it := range items {
		if keep != nil && !keep(it) {
			continue
		}
		k := key(it)
		if best < 0 || k.newer(bestKey) {
			best, bestKey = i, k
		}
	}
	return best
}

func goalStamp(g model.Goal) stamp { return stamp{g.UpdatedAt, g.CreatedAt, g.ID} }

func milestoneStamp(m model.Milestone) stamp { return stamp{m.UpdatedAt, m.CreatedAt, m.ID} }

func taskStamp(t model.Task) stamp { return stamp{t.UpdatedAt, t.CreatedAt, t.ID} }

func laterOf(a, b *time.Time) *time.Time {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	case b.After(*a):
		return b
	}
	return a
}

// Compute builds the summary for one user's entities as of now.
// The inputs need not be sorted.
func Compute(now time.Time, goals []model.Goal, milestones []model.Milestone, tasks []model.Task) model.ProgressSummary {
	var totals model.SummaryTotals

	for _, g := range goals {
		if g.IsActive() {
			totals.ActiveGoals++
		}
	}

	totals.MilestonesTotal = len(milestones)
	for _, m := range milestones {
		if m.IsDone() {
			totals.MilestonesDone++
		}
	}

	totals.TasksTotal = len(tasks)
	for _, t := range tasks {
		if t.IsDone() {
			totals.TasksDone++
		}
		if t.IsOverdue(now) {
			totals.OverdueTasks++
		}
	}

	var lastTaskDone, lastMilestoneDone *time.Time
	if i := mostRecent(tasks, taskStamp, model.Task.IsDone); i >= 0 {
		lastTaskDone = tasks[i].CompletedAt
	}
	if i := mostRecent(milestones, milestoneStamp, model.Milestone.IsDone); i >= 0 {
		lastMilestoneDone = milestones[i].CompletedAt
	}
	lastCompleted := laterOf(lastTaskDone, lastMilestoneDone)

	var lastActivity *time.Time
	if i := mostRecent(goals, goalStamp, nil); i >= 0 {
		lastActivity = laterOf(lastActivity, &goals[i].UpdatedAt)
	}
	if i := mostRecent(milestones, milestoneStamp, nil); i >= 0 {
		lastActivity = laterOf(lastActivity, &milestones[i].UpdatedAt)
	}
	if i := mostRecent(tasks, taskStamp, nil); i >= 0 {
		lastActivity = laterOf(lastActivity, &tasks[i].UpdatedAt)
	}
	lastActivity = laterOf(lastActivity, lastCompleted)
	if lastActivity == nil {
		lastActivity = &now
	}

	return model.ProgressSummary{
		AppID:       model.SummaryAppID,
		Version:     model.SummaryVersion,
		GeneratedAt: now,
		Totals:      totals,
		Activity: model.SummaryActivity{
			LastCompletedAt: copyTime(lastCompleted),
			LastActivityAt:  *lastActivity,
		},
	}
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
