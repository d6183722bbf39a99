package client

import (
	"sort"

	"github.com/nhle/career-planner/internal/model"
)

// DefaultNextDueLimit is used by NextDueTasks when limit <= 0.
const DefaultNextDueLimit = 3

// ActiveGoal returns the selected goal, if it is loaded.
func (s *Store) ActiveGoal() (model.Goal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := indexOf(s.state.Goals, s.state.ActiveGoalID); s.state.ActiveGoalID != "" && i >= 0 {
		return s.state.Goals[i], true
	}
	return model.Goal{}, false
}

// Milestones returns the loaded milestones of goalID.
func (s *Store) Milestones(goalID string) []model.Milestone {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Milestone(nil), s.state.MilestonesByGoal[goalID]...)
}

// Tasks returns the loaded tasks of milestoneID.
func (s *Store) Tasks(milestoneID string) []model.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Task(nil), s.state.TasksByMilestone[milestoneID]...)
}

// MilestoneProgress counts the done and total milestones of goalID.
func (s *Store) MilestoneProgress(goalID string) (done, total int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, m := range s.state.MilestonesByGoal[goalID] {
		if m.IsDone() {
			done++
		}
	}
	return done, len(s.state.MilestonesByGoal[goalID])
}

// NextDueTasks returns up to limit unfinished tasks of goalID, earliest
// due first. Undated tasks come last.
func (s *Store) NextDueTasks(goalID string, limit int) []model.Task {
	if limit <= 0 {
		limit = DefaultNextDueLimit
	}

	s.mu.RLock()
	var upcoming []model.Task
	for _, m := range s.state.MilestonesByGoal[goalID] {
		for _, t := range s.state.TasksByMilestone[m.ID] {
			if !t.IsDone() {
				upcoming = append(upcoming, t)
			}
		}
	}
	s.mu.RUnlock()

	sort.SliceStable(upcoming, func(i, j int) bool {
		a, b := upcoming[i].DueDate, upcoming[j].DueDate
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		}
		return a.Before(*b)
	})
	if len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}
