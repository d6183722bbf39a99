package summary

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/store"
)

// Loader is the subset of store.Store the engine reads from.
type Loader interface {
	ListGoals(ctx context.Context, filter store.GoalFilter) ([]model.Goal, error)
	ListMilestones(ctx context.Context, filter store.MilestoneFilter) ([]model.Milestone, error)
	ListTasks(ctx context.Context, filter store.TaskFilter) ([]model.Task, error)
}

// Summarizer produces the current summary for a user.
type Summarizer interface {
	Summary(ctx context.Context, userID string) (model.ProgressSummary, error)
}

// Engine loads a user's entities and computes their summary on demand.
type Engine struct {
	loader Loader
	now    func() time.Time
}

var _ Summarizer = (*Engine)(nil)

// NewEngine returns an Engine reading from loader. now defaults to the
// current UTC time when nil.
func NewEngine(loader Loader, now func() time.Time) *Engine {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Engine{loader: loader, now: now}
}

// Summary loads the three entity streams concurrently and computes the summary.
func (e *Engine) Summary(ctx context.Context, userID string) (model.ProgressSummary, error) {
	var (
		goals      []model.Goal
		milestones []model.Milestone
		tasks      []model.Task
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goals, err = e.loader.ListGoals(gctx, store.GoalFilter{UserID: userID})
		return err
	})
	g.Go(func() error {
		var err error
		milestones, err = e.loader.ListMilestones(gctx, store.MilestoneFilter{UserID: userID})
		return err
	})
	g.Go(func() error {
		var err error
		tasks, err = e.loader.ListTasks(gctx, store.TaskFilter{UserID: userID})
		return err
	})
	if err := g.Wait(); err != nil {
		return model.ProgressSummary{}, fmt.Errorf("loading summary inputs: %w", err)
	}

	return Compute(e.now(), goals, milestones, tasks), nil
}
