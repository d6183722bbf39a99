package quota_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
	"github.com/nhle/career-planner/internal/testutil"
)

func TestActiveGoalCeilingExcludesArchived(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	gate := quota.NewGate(s, model.LimitsConfig{MaxActiveGoals: 2})

	var ids []string
	for _, title := range []string{"a", "b"} {
		g := &model.Goal{UserID: "u1", Title: title}
		require.NoError(t, s.CreateGoal(ctx, g))
		ids = append(ids, g.ID)
	}

	d, err := gate.CheckLimit(ctx, "u1", quota.ActiveGoals)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 2, d.Count)
	assert.Equal(t, 2, d.Limit)

	_, err = s.SetGoalStatus(ctx, "u1", ids[0], model.GoalStatusArchived, time.Now())
	require.NoError(t, err)

	d, err = gate.CheckLimit(ctx, "u1", quota.ActiveGoals)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)

	// Other users are counted separately.
	d, err = gate.CheckLimit(ctx, "u2", quota.ActiveGoals)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Count)
}

func TestTaskCeilingCountsAllStatuses(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	gate := quota.NewGate(s, model.LimitsConfig{MaxTasks: 1})

	tk := &model.Task{UserID: "u1", MilestoneID: "m1", Title: "t"}
	require.NoError(t, s.CreateTask(ctx, tk))
	now := time.Now()
	_, err := s.SetTaskStatus(ctx, "u1", tk.ID, store.StatusChange{
		Status: model.WorkStatusDone, CompletedAt: &now, UpdatedAt: now,
	})
	require.NoError(t, err)

	d, err := gate.CheckLimit(ctx, "u1", quota.Tasks)
	require.NoError(t, err)
	assert.False(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestNonPositiveCeilingIsUnlimited(t *testing.T) {
	s := testutil.NewTestStore(t)
	ctx := context.Background()
	gate := quota.NewGate(s, model.LimitsConfig{MaxMilestones: 0})

	require.NoError(t, s.CreateMilestone(ctx, &model.Milestone{UserID: "u1", GoalID: "g1", Title: "m"}))

	d, err := gate.CheckLimit(ctx, "u1", quota.Milestones)
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Count)
}

func TestUnknownResource(t *testing.T) {
	s := testutil.NewTestStore(t)
	gate := quota.NewGate(s, model.DefaultAppConfig().Limits)

	_, err := gate.CheckLimit(context.Background(), "u1", quota.Resource("projects"))
	assert.Error(t, err)
}
