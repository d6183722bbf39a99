// Package quota decides whether a user may create another resource under
// the free-tier ceilings.
package quota

import (
	"context"
	"fmt"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/store"
)

// Resource names a countable, ceiling-limited entity class.
type Resource string

const (
	ActiveGoals Resource = "active_goals"
	Milestones  Resource = "milestones"
	Tasks       Resource = "tasks"
)

// Decision is the outcome of a limit check.
type Decision struct {
	Allowed bool
	Count   int
	Limit   int
}

// Counter is the subset of store.Store the gate reads from.
type Counter interface {
	CountGoals(ctx context.Context, filter store.GoalFilter) (int, error)
	CountMilestones(ctx context.Context, filter store.MilestoneFilter) (int, error)
	CountTasks(ctx context.Context, filter store.TaskFilter) (int, error)
}

// Gate checks resource counts against configured ceilings.
//
// The check is a plain read: two concurrent creates can both pass and
// leave the user one over the ceiling.
type Gate struct {
	counter Counter
	limits  model.LimitsConfig
}

// NewGate returns a gate over counter with the given ceilings.
func NewGate(counter Counter, limits model.LimitsConfig) *Gate {
	return &Gate{counter: counter, limits: limits}
}

// Limit returns the ceiling for r. A value <= 0 means unlimited.
func (g *Gate) Limit(r Resource) int {
	switch r {
	case ActiveGoals:
		return g.limits.MaxActiveGoals
	case Milestones:
		return g.limits.MaxMilestones
	case Tasks:
		return g.limits.MaxTasks
	}
	return 0
}

// CheckLimit counts the user's existing r and allows creation while the
// count is below the ceiling.
func (g *Gate) CheckLimit(ctx context.Context, userID string, r Resource) (Decision, error) {
	var (
		n   int
		err error
	)
	switch r {
	case ActiveGoals:
		active := model.GoalStatusActive
		n, err = g.counter.CountGoals(ctx, store.GoalFilter{UserID: userID, Status: &active})
	case Milestones:
		n, err = g.counter.CountMilestones(ctx, store.MilestoneFilter{UserID: userID})
	case Tasks:
		n, err = g.counter.CountTasks(ctx, store.TaskFilter{UserID: userID})
	default:
		return Decision{}, fmt.Errorf("unknown quota resource %q", r)
	}
	if err != nil {
		return Decision{}, fmt.Errorf("checking %s quota: %w", r, err)
	}

	limit := g.Limit(r)
	return Decision{
		Allowed: limit <= 0 || n < limit,
		Count:   n,
		Limit:   limit,
	}, nil
}
