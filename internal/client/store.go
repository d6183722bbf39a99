// Package client holds the per-session view state of the planner and
// keeps it in step with a Backend, applying status changes optimistically.
package client

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/planner"
)

// Backend is the set of planner operations the store drives. Both
// *planner.Service and the HTTP api.Client satisfy it.
type Backend interface {
	ListGoals(ctx context.Context) ([]model.Goal, error)
	GetGoal(ctx context.Context, id string) (*model.Goal, error)
	CreateGoal(ctx context.Context, in model.GoalInput) (*model.Goal, error)
	UpdateGoal(ctx context.Context, id string, in model.GoalInput) (*model.Goal, error)
	ArchiveGoal(ctx context.Context, id string) (*model.ArchivedGoal, error)
	ListMilestonesByGoal(ctx context.Context, goalID string) ([]model.Milestone, error)
	CreateMilestone(ctx context.Context, goalID string, in model.MilestoneInput) (*model.Milestone, error)
	SetMilestoneStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Milestone], error)
	ListTasksByMilestone(ctx context.Context, milestoneID string) ([]model.Task, error)
	CreateTask(ctx context.Context, milestoneID string, in model.TaskInput) (*model.Task, error)
	SetTaskStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Task], error)
}

// GoalForm is the editable goal draft.
type GoalForm struct {
	Title      string
	TargetRole string
	Notes      string
}

// MilestoneForm is the editable milestone draft.
type MilestoneForm struct {
	Title       string
	Description string
	TargetDate  *time.Time
}

// TaskForm is the editable task draft.
type TaskForm struct {
	Title   string
	Notes   string
	DueDate *time.Time
}

// State is a copy of the store's view state. Entities inside it are
// values and must not be modified through their pointer fields.
type State struct {
	Goals            []model.Goal
	ActiveGoalID     string
	MilestonesByGoal map[string][]model.Milestone
	TasksByMilestone map[string][]model.Task
	Loading          bool
	LastError        string
	LastSuccess      string
	LastNotice       *model.Notice
	IsPaid           bool
	GoalForm         GoalForm
	MilestoneForm    MilestoneForm
	TaskForm         TaskForm
}

// Store is the client-side cache of one user's planner data. It is safe
// for concurrent use; every mutation of the collections happens under
// a single lock acquisition.
type Store struct {
	backend Backend

	mu      sync.RWMutex
	state   State
	pending int
}

// Option configures a Store.
type Option func(*Store)

// WithState seeds the store, e.g. with data rendered by the server.
func WithState(st State) Option {
	return func(s *Store) { s.state = st.clone() }
}

// New creates a Store driven by backend.
func New(backend Backend, opts ...Option) *Store {
	s := &Store{backend: backend}
	for _, opt := range opts {
		opt(s)
	}
	if s.state.MilestonesByGoal == nil {
		s.state.MilestonesByGoal = map[string][]model.Milestone{}
	}
	if s.state.TasksByMilestone == nil {
		s.state.TasksByMilestone = map[string][]model.Task{}
	}
	return s
}

// Snapshot returns a copy of the current state.
func (s *Store) Snapshot() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st := s.state.clone()
	st.Loading = s.pending > 0
	return st
}

func (st State) clone() State {
	out := st
	out.Goals = append([]model.Goal(nil), st.Goals...)
	out.MilestonesByGoal = make(map[string][]model.Milestone, len(st.MilestonesByGoal))
	for k, v := range st.MilestonesByGoal {
		out.MilestonesByGoal[k] = append([]model.Milestone(nil), v...)
	}
	out.TasksByMilestone = make(map[string][]model.Task, len(st.TasksByMilestone))
	for k, v := range st.TasksByMilestone {
		out.TasksByMilestone[k] = append([]model.Task(nil), v...)
	}
	if st.LastNotice != nil {
		n := *st.LastNotice
		out.LastNotice = &n
	}
	return out
}

// SetBillingStatus records whether the user is on the paid plan.
func (s *Store) SetBillingStatus(paid bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.IsPaid = paid
}

// SetActiveGoal selects the goal shown in detail views.
func (s *Store) SetActiveGoal(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.ActiveGoalID = id
}

// SetGoalForm replaces the goal draft.
func (s *Store) SetGoalForm(f GoalForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.GoalForm = f
}

// SetMilestoneForm replaces the milestone draft.
func (s *Store) SetMilestoneForm(f MilestoneForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MilestoneForm = f
}

// SetTaskForm replaces the task draft.
func (s *Store) SetTaskForm(f TaskForm) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TaskForm = f
}

// start marks a request in flight and clears the messages. The returned
// func ends it.
func (s *Store) start(clearSuccess bool) func() {
	s.mu.Lock()
	s.pending++
	s.state.LastError = ""
	if clearSuccess {
		s.state.LastSuccess = ""
	}
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.pending--
		s.mu.Unlock()
	}
}

func (s *Store) fail(err error, fallback string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.LastError = userMessage(err, fallback)
	return err
}

// userMessage turns a backend error into text fit for the user.
func userMessage(err error, fallback string) string {
	var verr *planner.ValidationError
	var qerr *planner.QuotaError
	switch {
	case errors.As(err, &verr):
		return verr.Error()
	case errors.As(err, &qerr):
		return qerr.Error()
	case errors.Is(err, planner.ErrQuotaExceeded):
		return "Plan limit reached. Upgrade to add more."
	case errors.Is(err, planner.ErrUnauthorized):
		return "Please sign in again."
	}
	return fallback
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func firstActive(goals []model.Goal) string {
	for _, g := range goals {
		if g.IsActive() {
			return g.ID
		}
	}
	return ""
}

// LoadGoals replaces the goal list and selects the first active goal.
// On failure the previous state is kept.
func (s *Store) LoadGoals(ctx context.Context) error {
	done := s.start(false)
	defer done()

	goals, err := s.backend.ListGoals(ctx)
	if err != nil {
		return s.fail(err, "Failed to load goals.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Goals = goals
	s.state.ActiveGoalID = firstActive(goals)
	return nil
}

// LoadGoalDetail fetches a goal with its milestones and all of their
// tasks, then makes it the active goal. Nothing is applied unless every
// request succeeds.
func (s *Store) LoadGoalDetail(ctx context.Context, goalID string) error {
	done := s.start(false)
	defer done()

	var (
		goal       *model.Goal
		milestones []model.Milestone
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		goal, err = s.backend.GetGoal(gctx, goalID)
		return err
	})
	g.Go(func() error {
		var err error
		milestones, err = s.backend.ListMilestonesByGoal(gctx, goalID)
		return err
	})
	if err := g.Wait(); err != nil {
		return s.fail(err, "Failed to load goal details.")
	}

	tasks := make([][]model.Task, len(milestones))
	g, gctx = errgroup.WithContext(ctx)
	for i, m := range milestones {
		g.Go(func() error {
			var err error
			tasks[i], err = s.backend.ListTasksByMilestone(gctx, m.ID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return s.fail(err, "Failed to load goal details.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if goal != nil && indexOf(s.state.Goals, goal.ID) < 0 {
		s.state.Goals = append([]model.Goal{*goal}, s.state.Goals...)
	}
	s.state.ActiveGoalID = goalID
	s.state.MilestonesByGoal[goalID] = milestones
	for i, m := range milestones {
		s.state.TasksByMilestone[m.ID] = tasks[i]
	}
	return nil
}

// CreateGoal submits the goal form. The created goal is prepended and
// becomes active; the form is reset.
func (s *Store) CreateGoal(ctx context.Context) error {
	s.mu.RLock()
	form := s.state.GoalForm
	s.mu.RUnlock()

	title := strings.TrimSpace(form.Title)
	if title == "" {
		return s.fail(&planner.ValidationError{Message: "Goal title is required."}, "")
	}

	done := s.start(true)
	defer done()

	goal, err := s.backend.CreateGoal(ctx, model.GoalInput{
		Title:      title,
		TargetRole: optional(form.TargetRole),
		Notes:      optional(form.Notes),
	})
	if err != nil {
		return s.fail(err, "Unable to create goal.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Goals = append([]model.Goal{*goal}, s.state.Goals...)
	if goal.IsActive() {
		s.state.ActiveGoalID = goal.ID
	}
	s.state.GoalForm = GoalForm{}
	s.state.LastSuccess = "Goal created."
	return nil
}

// UpdateGoal saves form onto goal id and replaces it in place.
func (s *Store) UpdateGoal(ctx context.Context, id string, form GoalForm) error {
	done := s.start(true)
	defer done()

	goal, err := s.backend.UpdateGoal(ctx, id, model.GoalInput{
		Title:      strings.TrimSpace(form.Title),
		TargetRole: optional(form.TargetRole),
		Notes:      optional(form.Notes),
	})
	if err != nil {
		return s.fail(err, "Unable to update goal.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replaceGoal(s.state.Goals, *goal)
	s.state.LastSuccess = "Goal updated."
	return nil
}

// ArchiveGoal archives goal id. If it was active, the next active goal
// is selected. The returned notice is kept for display.
func (s *Store) ArchiveGoal(ctx context.Context, id string) error {
	done := s.start(true)
	defer done()

	res, err := s.backend.ArchiveGoal(ctx, id)
	if err != nil {
		return s.fail(err, "Unable to archive goal.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	replaceGoal(s.state.Goals, *res.Goal)
	if s.state.ActiveGoalID == res.Goal.ID {
		s.state.ActiveGoalID = firstActive(s.state.Goals)
	}
	notice := res.Notice
	s.state.LastNotice = &notice
	s.state.LastSuccess = "Goal archived."
	return nil
}

// CreateMilestone submits the milestone form under goalID.
func (s *Store) CreateMilestone(ctx context.Context, goalID string) error {
	s.mu.RLock()
	form := s.state.MilestoneForm
	s.mu.RUnlock()

	title := strings.TrimSpace(form.Title)
	if title == "" {
		return s.fail(&planner.ValidationError{Message: "Milestone title is required."}, "")
	}

	done := s.start(true)
	defer done()

	m, err := s.backend.CreateMilestone(ctx, goalID, model.MilestoneInput{
		Title:       title,
		Description: optional(form.Description),
		TargetDate:  form.TargetDate,
	})
	if err != nil {
		return s.fail(err, "Unable to create milestone.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.MilestonesByGoal[goalID] = append([]model.Milestone{*m}, s.state.MilestonesByGoal[goalID]...)
	s.state.MilestoneForm = MilestoneForm{}
	s.state.LastSuccess = "Milestone created."
	return nil
}

// CreateTask submits the task form under milestoneID.
func (s *Store) CreateTask(ctx context.Context, milestoneID string) error {
	s.mu.RLock()
	form := s.state.TaskForm
	s.mu.RUnlock()

	title := strings.TrimSpace(form.Title)
	if title == "" {
		return s.fail(&planner.ValidationError{Message: "Task title is required."}, "")
	}

	done := s.start(true)
	defer done()

	t, err := s.backend.CreateTask(ctx, milestoneID, model.TaskInput{
		Title:   title,
		Notes:   optional(form.Notes),
		DueDate: form.DueDate,
	})
	if err != nil {
		return s.fail(err, "Unable to create task.")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.TasksByMilestone[milestoneID] = append([]model.Task{*t}, s.state.TasksByMilestone[milestoneID]...)
	s.state.TaskForm = TaskForm{}
	s.state.LastSuccess = "Task created."
	return nil
}

func indexOf(goals []model.Goal, id string) int {
	for i, g := range goals {
		if g.ID == id {
			return i
		}
	}
	return -1
}

func replaceGoal(goals []model.Goal, goal model.Goal) {
	if i := indexOf(goals, goal.ID); i >= 0 {
		goals[i] = goal
	}
}
