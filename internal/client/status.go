package client

import (
	"context"

	"github.com/nhle/career-planner/internal/model"
)

// swap replaces the element of list whose id matches with fn's result and
// returns the element it replaced.
func swap[T any](list []T, id string, idOf func(T) string, fn func(T) T) (prior T, ok bool) {
	for i, item := range list {
		if idOf(item) == id {
			list[i] = fn(item)
			return item, true
		}
	}
	return prior, false
}

func milestoneID(m model.Milestone) string { return m.ID }
func taskID(t model.Task) string           { return t.ID }

// SetMilestoneStatus shows status on m immediately, then confirms it with
// the backend. On success the server's milestone replaces the local one.
// On failure the prior status and completion stamp come back, but only if
// the local milestone still shows the optimistic status; a copy reloaded
// while the call was in flight is left alone. Only m is touched, so
// concurrent toggles of other milestones are unaffected.
func (s *Store) SetMilestoneStatus(ctx context.Context, m model.Milestone, status model.WorkStatus) error {
	s.mu.Lock()
	prior, applied := swap(s.state.MilestonesByGoal[m.GoalID], m.ID, milestoneID, func(cur model.Milestone) model.Milestone {
		cur.Status = status
		return cur
	})
	s.mu.Unlock()

	res, err := s.backend.SetMilestoneStatus(ctx, m.ID, status)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.state.MilestonesByGoal[m.GoalID]
	if err != nil {
		if applied {
			swap(list, m.ID, milestoneID, func(cur model.Milestone) model.Milestone {
				if cur.Status == status {
					cur.Status, cur.CompletedAt = prior.Status, prior.CompletedAt
				}
				return cur
			})
		}
		s.state.LastError = userMessage(err, "Unable to update milestone.")
		return err
	}

	swap(list, res.Item.ID, milestoneID, func(model.Milestone) model.Milestone { return *res.Item })
	if res.Notice != nil {
		notice := *res.Notice
		s.state.LastNotice = &notice
	}
	return nil
}

// SetTaskStatus is the task counterpart of SetMilestoneStatus.
func (s *Store) SetTaskStatus(ctx context.Context, t model.Task, status model.WorkStatus) error {
	s.mu.Lock()
	prior, applied := swap(s.state.TasksByMilestone[t.MilestoneID], t.ID, taskID, func(cur model.Task) model.Task {
		cur.Status = status
		return cur
	})
	s.mu.Unlock()

	res, err := s.backend.SetTaskStatus(ctx, t.ID, status)

	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.state.TasksByMilestone[t.MilestoneID]
	if err != nil {
		if applied {
			swap(list, t.ID, taskID, func(cur model.Task) model.Task {
				if cur.Status == status {
					cur.Status, cur.CompletedAt = prior.Status, prior.CompletedAt
				}
				return cur
			})
		}
		s.state.LastError = userMessage(err, "Unable to update task.")
		return err
	}

	swap(list, res.Item.ID, taskID, func(model.Task) model.Task { return *res.Item })
	if res.Notice != nil {
		notice := *res.Notice
		s.state.LastNotice = &notice
	}
	return nil
}
