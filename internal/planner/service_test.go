package planner_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/planner"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/store"
	"github.com/nhle/career-planner/internal/testutil"
)

// stepClock advances by one second on every read so that consecutive
// writes get distinct timestamps.
type stepClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func (c *stepClock) Peek() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

type recordingNotifier struct {
	mu        sync.Mutex
	summaries []model.SummaryNotice
	events    []model.EventNotice
}

func (r *recordingNotifier) NotifySummary(n model.SummaryNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.summaries = append(r.summaries, n)
}

func (r *recordingNotifier) NotifyEvent(n model.EventNotice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, n)
}

func (r *recordingNotifier) lastSummary() model.SummaryNotice {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.summaries[len(r.summaries)-1]
}

type fixture struct {
	svc      *planner.Service
	store    *store.SQLiteStore
	clock    *stepClock
	notifier *recordingNotifier
}

func newFixture(t *testing.T, limits model.LimitsConfig) *fixture {
	t.Helper()
	st := testutil.NewTestStore(t)
	clock := &stepClock{t: time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)}
	notifier := &recordingNotifier{}
	metrics := planner.NewMetrics(prometheus.NewRegistry())
	svc := planner.NewService(st, quota.NewGate(st, limits),
		planner.WithClock(clock.Now),
		planner.WithNotifier(notifier),
		planner.WithLogger(testutil.QuietLogger()),
		planner.WithMetrics(metrics),
	)
	return &fixture{svc: svc, store: st, clock: clock, notifier: notifier}
}

func TestUnauthorizedBeforeAnyWork(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{MaxActiveGoals: 3})
	ctx := context.Background()

	_, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: ""})
	assert.ErrorIs(t, err, planner.ErrUnauthorized, "auth is checked before validation")

	_, err = f.svc.ListGoals(ctx)
	assert.ErrorIs(t, err, planner.ErrUnauthorized)

	_, err = f.svc.SetTaskStatus(ctx, "t1", model.WorkStatusDone)
	assert.ErrorIs(t, err, planner.ErrUnauthorized)

	_, err = f.svc.Summary(ctx)
	assert.ErrorIs(t, err, planner.ErrUnauthorized)
}

func TestActiveGoalQuota(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{MaxActiveGoals: 3})
	ctx := testutil.AsUser("alice")

	var first *model.Goal
	for i := 0; i < 3; i++ {
		g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "goal"})
		require.NoError(t, err)
		if first == nil {
			first = g
		}
	}

	_, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "one too many"})
	require.ErrorIs(t, err, planner.ErrQuotaExceeded)
	var qe *planner.QuotaError
	require.ErrorAs(t, err, &qe)
	assert.Equal(t, quota.ActiveGoals, qe.Resource)
	assert.Equal(t, 3, qe.Limit)

	// Archiving frees a slot.
	_, err = f.svc.ArchiveGoal(ctx, first.ID)
	require.NoError(t, err)
	_, err = f.svc.CreateGoal(ctx, model.GoalInput{Title: "fits again"})
	require.NoError(t, err)

	// Another user is unaffected.
	_, err = f.svc.CreateGoal(testutil.AsUser("bob"), model.GoalInput{Title: "bob's"})
	require.NoError(t, err)
}

func TestPaidPlanBypassesQuota(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{MaxActiveGoals: 1})
	ctx := testutil.AsProUser("alice")

	for i := 0; i < 3; i++ {
		_, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "goal"})
		require.NoError(t, err)
	}
}

func TestMilestoneAndTaskQuota(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{MaxMilestones: 1, MaxTasks: 1})
	ctx := testutil.AsUser("alice")

	g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "g"})
	require.NoError(t, err)
	m, err := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m"})
	require.NoError(t, err)
	_, err = f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m2"})
	assert.ErrorIs(t, err, planner.ErrQuotaExceeded)

	_, err = f.svc.CreateTask(ctx, m.ID, model.TaskInput{Title: "t"})
	require.NoError(t, err)
	_, err = f.svc.CreateTask(ctx, m.ID, model.TaskInput{Title: "t2"})
	assert.ErrorIs(t, err, planner.ErrQuotaExceeded)
}

func TestValidation(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	ctx := testutil.AsUser("alice")

	_, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "   "})
	var ve *planner.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "title", ve.Field)

	g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "  Trim me  "})
	require.NoError(t, err)
	assert.Equal(t, "Trim me", g.Title)

	m, err := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m"})
	require.NoError(t, err)

	_, err = f.svc.UpdateMilestone(ctx, m.ID, model.MilestonePatch{})
	assert.ErrorIs(t, err, planner.ErrValidation)

	_, err = f.svc.UpdateMilestone(ctx, m.ID, model.MilestonePatch{Title: model.Null[string]()})
	assert.ErrorIs(t, err, planner.ErrValidation)

	_, err = f.svc.UpdateMilestone(ctx, m.ID, model.MilestonePatch{Title: model.Set("")})
	assert.ErrorIs(t, err, planner.ErrValidation)

	_, err = f.svc.SetMilestoneStatus(ctx, m.ID, model.WorkStatus("blocked"))
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "status", ve.Field)

	// Validation runs before the store: unknown ids still fail validation.
	_, err = f.svc.UpdateTask(ctx, "missing", model.TaskPatch{})
	assert.ErrorIs(t, err, planner.ErrValidation)
}

func TestCompletionInstantFollowsStatus(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	ctx := testutil.AsUser("alice")

	g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "g"})
	require.NoError(t, err)
	m, err := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m"})
	require.NoError(t, err)
	assert.Nil(t, m.CompletedAt)
	assert.Equal(t, model.WorkStatusTodo, m.Status)

	res, err := f.svc.SetMilestoneStatus(ctx, m.ID, model.WorkStatusDone)
	require.NoError(t, err)
	require.NotNil(t, res.Item.CompletedAt)
	first := *res.Item.CompletedAt
	assert.True(t, first.Equal(res.Item.UpdatedAt), "stamped with the call instant")

	res, err = f.svc.SetMilestoneStatus(ctx, m.ID, model.WorkStatusDoing)
	require.NoError(t, err)
	assert.Nil(t, res.Item.CompletedAt)
	assert.Nil(t, res.Notice)

	res, err = f.svc.SetMilestoneStatus(ctx, m.ID, model.WorkStatusDone)
	require.NoError(t, err)
	require.NotNil(t, res.Item.CompletedAt)
	assert.True(t, res.Item.CompletedAt.After(first), "re-completion restamps")

	// Patch updates never touch completion.
	updated, err := f.svc.UpdateMilestone(ctx, m.ID, model.MilestonePatch{Title: model.Set("renamed")})
	require.NoError(t, err)
	assert.Equal(t, model.WorkStatusDone, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}

func TestNoticesAndEvents(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	ctx := testutil.AsUser("alice")

	g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "Lead"})
	require.NoError(t, err)
	assert.Equal(t, model.EventGoalCreated, f.notifier.lastSummary().EventType)

	m, err := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "Ship X"})
	require.NoError(t, err)

	res, err := f.svc.SetMilestoneStatus(ctx, m.ID, model.WorkStatusDone)
	require.NoError(t, err)
	require.NotNil(t, res.Notice)
	assert.Equal(t, model.Notice{
		EventType: model.EventMilestoneCompleted,
		Title:     "Milestone completed: Ship X",
		URL:       "/goals/" + g.ID,
	}, *res.Notice)
	assert.Equal(t, model.EventMilestoneCompleted, f.notifier.lastSummary().EventType)

	archived, err := f.svc.ArchiveGoal(ctx, g.ID)
	require.NoError(t, err)
	assert.Equal(t, model.GoalStatusArchived, archived.Goal.Status)
	assert.Equal(t, "Goal archived: Lead", archived.Notice.Title)
	assert.Equal(t, model.EventGoalArchived, f.notifier.lastSummary().EventType)
	assert.Equal(t, 0, f.notifier.lastSummary().Summary.Totals.ActiveGoals)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	require.Len(t, f.notifier.events, 2)
	assert.Equal(t, model.LevelSuccess, f.notifier.events[0].Level)
	assert.Equal(t, m.ID, f.notifier.events[0].Meta["milestone_id"])
	assert.Equal(t, model.LevelInfo, f.notifier.events[1].Level)
	assert.Equal(t, "/goals/"+g.ID, f.notifier.events[1].Meta["url"])
}

func TestTaskCompletionHasNoNotice(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	ctx := testutil.AsUser("alice")

	g, _ := f.svc.CreateGoal(ctx, model.GoalInput{Title: "g"})
	m, _ := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m"})
	tk, err := f.svc.CreateTask(ctx, m.ID, model.TaskInput{Title: "t"})
	require.NoError(t, err)

	res, err := f.svc.SetTaskStatus(ctx, tk.ID, model.WorkStatusDone)
	require.NoError(t, err)
	assert.Nil(t, res.Notice)
	assert.Equal(t, model.EventTaskCompleted, f.notifier.lastSummary().EventType)

	_, err = f.svc.SetTaskStatus(ctx, tk.ID, model.WorkStatusTodo)
	require.NoError(t, err)
	assert.Equal(t, model.EventTaskUpdated, f.notifier.lastSummary().EventType)

	f.notifier.mu.Lock()
	defer f.notifier.mu.Unlock()
	assert.Empty(t, f.notifier.events)
}

func TestOwnershipIsolation(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	alice := testutil.AsUser("alice")
	bob := testutil.AsUser("bob")

	g, err := f.svc.CreateGoal(alice, model.GoalInput{Title: "g"})
	require.NoError(t, err)
	m, err := f.svc.CreateMilestone(alice, g.ID, model.MilestoneInput{Title: "m"})
	require.NoError(t, err)
	tk, err := f.svc.CreateTask(alice, m.ID, model.TaskInput{Title: "t"})
	require.NoError(t, err)

	checks := map[string]error{}
	_, checks["GetGoal"] = f.svc.GetGoal(bob, g.ID)
	_, checks["UpdateGoal"] = f.svc.UpdateGoal(bob, g.ID, model.GoalInput{Title: "x"})
	_, checks["ArchiveGoal"] = f.svc.ArchiveGoal(bob, g.ID)
	_, checks["CreateMilestone"] = f.svc.CreateMilestone(bob, g.ID, model.MilestoneInput{Title: "x"})
	_, checks["ListMilestonesByGoal"] = f.svc.ListMilestonesByGoal(bob, g.ID)
	_, checks["UpdateMilestone"] = f.svc.UpdateMilestone(bob, m.ID, model.MilestonePatch{Title: model.Set("x")})
	_, checks["SetMilestoneStatus"] = f.svc.SetMilestoneStatus(bob, m.ID, model.WorkStatusDone)
	_, checks["CreateTask"] = f.svc.CreateTask(bob, m.ID, model.TaskInput{Title: "x"})
	_, checks["ListTasksByMilestone"] = f.svc.ListTasksByMilestone(bob, m.ID)
	_, checks["UpdateTask"] = f.svc.UpdateTask(bob, tk.ID, model.TaskPatch{Title: model.Set("x")})
	_, checks["SetTaskStatus"] = f.svc.SetTaskStatus(bob, tk.ID, model.WorkStatusDone)
	checks["DeleteTask"] = f.svc.DeleteTask(bob, tk.ID)
	checks["DeleteMilestone"] = f.svc.DeleteMilestone(bob, m.ID)
	checks["DeleteGoal"] = f.svc.DeleteGoal(bob, g.ID)

	for op, err := range checks {
		assert.ErrorIs(t, err, planner.ErrNotFound, op)
	}

	// Alice's data is untouched.
	got, err := f.svc.GetGoal(alice, g.ID)
	require.NoError(t, err)
	assert.Equal(t, "g", got.Title)
	assert.Equal(t, model.GoalStatusActive, got.Status)
	tasks, err := f.svc.ListTasksByMilestone(alice, m.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.WorkStatusTodo, tasks[0].Status)
}

func TestDeleteCascade(t *testing.T) {
	f := newFixture(t, model.LimitsConfig{})
	ctx := testutil.AsUser("alice")

	g, _ := f.svc.CreateGoal(ctx, model.GoalInput{Title: "g"})
	m, _ := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "m"})
	_, err := f.svc.CreateTask(ctx, m.ID, model.TaskInput{Title: "t"})
	require.NoError(t, err)

	require.NoError(t, f.svc.DeleteGoal(ctx, g.ID))
	assert.Equal(t, model.EventGoalDeleted, f.notifier.lastSummary().EventType)

	_, err = f.svc.ListTasksByMilestone(ctx, m.ID)
	assert.ErrorIs(t, err, planner.ErrNotFound)

	sum, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SummaryTotals{}, sum.Totals)
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t, model.DefaultAppConfig().Limits)
	ctx := testutil.AsUser("alice")

	g, err := f.svc.CreateGoal(ctx, model.GoalInput{Title: "Become Staff Engineer"})
	require.NoError(t, err)
	m, err := f.svc.CreateMilestone(ctx, g.ID, model.MilestoneInput{Title: "Ship project X"})
	require.NoError(t, err)
	past := f.clock.Peek().Add(-72 * time.Hour)
	tk, err := f.svc.CreateTask(ctx, m.ID, model.TaskInput{Title: "Write design doc", DueDate: &past})
	require.NoError(t, err)

	sum, err := f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.SummaryTotals{
		ActiveGoals:     1,
		MilestonesTotal: 1,
		MilestonesDone:  0,
		TasksTotal:      1,
		TasksDone:       0,
		OverdueTasks:    1,
	}, sum.Totals)
	assert.Nil(t, sum.Activity.LastCompletedAt)

	res, err := f.svc.SetTaskStatus(ctx, tk.ID, model.WorkStatusDone)
	require.NoError(t, err)
	doneAt := *res.Item.CompletedAt

	sum, err = f.svc.Summary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Totals.OverdueTasks)
	assert.Equal(t, 1, sum.Totals.TasksDone)
	require.NotNil(t, sum.Activity.LastCompletedAt)
	assert.True(t, sum.Activity.LastCompletedAt.Equal(doneAt))
	assert.True(t, sum.Activity.LastActivityAt.Equal(doneAt))

	// The notice pushed with the completion carries the same numbers.
	pushed := f.notifier.lastSummary()
	assert.Equal(t, model.EventTaskCompleted, pushed.EventType)
	assert.Equal(t, model.SummaryVersion, pushed.SummaryVersion)
	assert.Equal(t, 1, pushed.Summary.Totals.TasksDone)
}
