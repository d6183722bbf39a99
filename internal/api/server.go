// Package api exposes the planner over HTTP and provides a matching
// HTTP client.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/nhle/career-planner/internal/model"
)

// ServiceName identifies the server in traces.
const ServiceName = "careerplanner"

// Planner is the set of operations served under /api/v1.
type Planner interface {
	ListGoals(ctx context.Context) ([]model.Goal, error)
	GetGoal(ctx context.Context, id string) (*model.Goal, error)
	CreateGoal(ctx context.Context, in model.GoalInput) (*model.Goal, error)
	UpdateGoal(ctx context.Context, id string, in model.GoalInput) (*model.Goal, error)
	ArchiveGoal(ctx context.Context, id string) (*model.ArchivedGoal, error)
	DeleteGoal(ctx context.Context, id string) error

	ListMilestonesByGoal(ctx context.Context, goalID string) ([]model.Milestone, error)
	CreateMilestone(ctx context.Context, goalID string, in model.MilestoneInput) (*model.Milestone, error)
	UpdateMilestone(ctx context.Context, id string, patch model.MilestonePatch) (*model.Milestone, error)
	SetMilestoneStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Milestone], error)
	DeleteMilestone(ctx context.Context, id string) error

	ListTasksByMilestone(ctx context.Context, milestoneID string) ([]model.Task, error)
	CreateTask(ctx context.Context, milestoneID string, in model.TaskInput) (*model.Task, error)
	UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error)
	SetTaskStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Task], error)
	DeleteTask(ctx context.Context, id string) error

	Summary(ctx context.Context) (model.ProgressSummary, error)
}

// Server routes HTTP requests to a Planner.
type Server struct {
	planner  Planner
	auth     Authenticator
	gatherer prometheus.Gatherer
	logger   *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithAuthenticator replaces the default HeaderAuthenticator.
func WithAuthenticator(a Authenticator) Option {
	return func(s *Server) { s.auth = a }
}

// WithGatherer sets the registry served at /metrics.
// Defaults to prometheus.DefaultGatherer.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(s *Server) { s.gatherer = g }
}

// WithLogger sets the logger used for internal errors.
func WithLogger(l *slog.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer creates a Server for p.
func NewServer(p Planner, opts ...Option) *Server {
	s := &Server{
		planner:  p,
		auth:     HeaderAuthenticator{},
		gatherer: prometheus.DefaultGatherer,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler builds the gin engine with every route registered.
func (s *Server) Handler() http.Handler {
	router := gin.New()
	router.Use(gin.Recovery(), otelgin.Middleware(ServiceName))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))

	v1 := router.Group("/api/v1", s.authenticate)
	s.registerRoutes(v1)
	return router
}

func (s *Server) registerRoutes(rg *gin.RouterGroup) {
	goals := rg.Group("/goals")
	{
		goals.GET("", s.handleListGoals)
		goals.POST("", s.handleCreateGoal)
		goals.GET("/:id", s.handleGetGoal)
		goals.PUT("/:id", s.handleUpdateGoal)
		goals.POST("/:id/archive", s.handleArchiveGoal)
		goals.DELETE("/:id", s.handleDeleteGoal)
		goals.GET("/:id/milestones", s.handleListMilestones)
		goals.POST("/:id/milestones", s.handleCreateMilestone)
	}

	milestones := rg.Group("/milestones")
	{
		milestones.PATCH("/:id", s.handleUpdateMilestone)
		milestones.PUT("/:id/status", s.handleSetMilestoneStatus)
		milestones.DELETE("/:id", s.handleDeleteMilestone)
		milestones.GET("/:id/tasks", s.handleListTasks)
		milestones.POST("/:id/tasks", s.handleCreateTask)
	}

	tasks := rg.Group("/tasks")
	{
		tasks.PATCH("/:id", s.handleUpdateTask)
		tasks.PUT("/:id/status", s.handleSetTaskStatus)
		tasks.DELETE("/:id", s.handleDeleteTask)
	}

	rg.GET("/summary", s.handleSummary)
	rg.GET("/unread-count", s.handleUnreadCount)
}
