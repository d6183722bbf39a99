package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/nhle/career-planner/internal/model"
)

// Response envelopes.
type (
	goalsResponse struct {
		Goals []model.Goal `json:"goals"`
	}
	goalResponse struct {
		Goal *model.Goal `json:"goal"`
	}
	milestonesResponse struct {
		Milestones []model.Milestone `json:"milestones"`
	}
	milestoneResponse struct {
		Milestone *model.Milestone `json:"milestone"`
	}
	tasksResponse struct {
		Tasks []model.Task `json:"tasks"`
	}
	taskResponse struct {
		Task *model.Task `json:"task"`
	}
	unreadCountResponse struct {
		UnreadCount int `json:"unreadCount"`
	}
)

// StatusRequest is the body of the status endpoints.
type StatusRequest struct {
	Status model.WorkStatus `json:"status"`
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}
	return items
}

// ----- goals -----

func (s *Server) handleListGoals(c *gin.Context) {
	goals, err := s.planner.ListGoals(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalsResponse{Goals: nonNil(goals)})
}

func (s *Server) handleCreateGoal(c *gin.Context) {
	var in model.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := s.planner.CreateGoal(c.Request.Context(), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, goalResponse{Goal: goal})
}

func (s *Server) handleGetGoal(c *gin.Context) {
	goal, err := s.planner.GetGoal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalResponse{Goal: goal})
}

func (s *Server) handleUpdateGoal(c *gin.Context) {
	var in model.GoalInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	goal, err := s.planner.UpdateGoal(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, goalResponse{Goal: goal})
}

func (s *Server) handleArchiveGoal(c *gin.Context) {
	res, err := s.planner.ArchiveGoal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteGoal(c *gin.Context) {
	if err := s.planner.DeleteGoal(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ----- milestones -----

func (s *Server) handleListMilestones(c *gin.Context) {
	milestones, err := s.planner.ListMilestonesByGoal(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestonesResponse{Milestones: nonNil(milestones)})
}

func (s *Server) handleCreateMilestone(c *gin.Context) {
	var in model.MilestoneInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	m, err := s.planner.CreateMilestone(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, milestoneResponse{Milestone: m})
}

func (s *Server) handleUpdateMilestone(c *gin.Context) {
	var patch model.MilestonePatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	m, err := s.planner.UpdateMilestone(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, milestoneResponse{Milestone: m})
}

func (s *Server) handleSetMilestoneStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.planner.SetMilestoneStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteMilestone(c *gin.Context) {
	if err := s.planner.DeleteMilestone(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ----- tasks -----

func (s *Server) handleListTasks(c *gin.Context) {
	tasks, err := s.planner.ListTasksByMilestone(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, tasksResponse{Tasks: nonNil(tasks)})
}

func (s *Server) handleCreateTask(c *gin.Context) {
	var in model.TaskInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	t, err := s.planner.CreateTask(c.Request.Context(), c.Param("id"), in)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, taskResponse{Task: t})
}

func (s *Server) handleUpdateTask(c *gin.Context) {
	var patch model.TaskPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		badRequest(c, err)
		return
	}
	t, err := s.planner.UpdateTask(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, taskResponse{Task: t})
}

func (s *Server) handleSetTaskStatus(c *gin.Context) {
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	res, err := s.planner.SetTaskStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (s *Server) handleDeleteTask(c *gin.Context) {
	if err := s.planner.DeleteTask(c.Request.Context(), c.Param("id")); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ----- summary -----

func (s *Server) handleSummary(c *gin.Context) {
	sum, err := s.planner.Summary(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// handleUnreadCount answers the parent system's badge poll. The planner
// keeps no inbox of its own.
func (s *Server) handleUnreadCount(c *gin.Context) {
	c.JSON(http.StatusOK, unreadCountResponse{UnreadCount: 0})
}
