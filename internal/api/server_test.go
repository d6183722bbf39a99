package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/career-planner/internal/api"
	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/planner"
	"github.com/nhle/career-planner/internal/quota"
	"github.com/nhle/career-planner/internal/testutil"
)

var _ api.Planner = (*planner.Service)(nil)
var _ api.Planner = (*api.Client)(nil)

func init() {
	gin.SetMode(gin.TestMode)
}

func newHandler(t *testing.T, limits model.LimitsConfig) http.Handler {
	t.Helper()
	st := testutil.NewTestStore(t)
	reg := prometheus.NewRegistry()
	svc := planner.NewService(st, quota.NewGate(st, limits),
		planner.WithLogger(testutil.QuietLogger()),
		planner.WithMetrics(planner.NewMetrics(reg)),
	)
	return api.NewServer(svc,
		api.WithGatherer(reg),
		api.WithLogger(testutil.QuietLogger()),
	).Handler()
}

func request(t *testing.T, h http.Handler, method, path, user string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	if user != "" {
		req.Header.Set("Authorization", "Bearer "+user)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestHealthAndMetrics(t *testing.T) {
	h := newHandler(t, model.LimitsConfig{})

	w := request(t, h, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	request(t, h, http.MethodGet, "/api/v1/goals", "u1", nil)
	w = request(t, h, http.MethodGet, "/metrics", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "careerplanner_planner_operations_total")
}

func TestRequiresBearer(t *testing.T) {
	h := newHandler(t, model.LimitsConfig{})

	w := request(t, h, http.MethodGet, "/api/v1/goals", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, api.CodeUnauthorized, decode[api.ErrorResponse](t, w).Code)

	w = request(t, h, http.MethodGet, "/api/v1/unread-count", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHeaderAuthenticator(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer alice")
	req.Header.Set("X-User-Plan", "PRO")

	p, err := api.HeaderAuthenticator{}.Authenticate(req)
	require.NoError(t, err)
	assert.Equal(t, "alice", p.UserID)
	assert.True(t, p.Pro)

	req.Header.Set("Authorization", "Basic abc")
	_, err = api.HeaderAuthenticator{}.Authenticate(req)
	assert.Error(t, err)

	req.Header.Set("Authorization", "Bearer ")
	_, err = api.HeaderAuthenticator{}.Authenticate(req)
	assert.Error(t, err)
}

func TestGoalLifecycleOverHTTP(t *testing.T) {
	h := newHandler(t, model.LimitsConfig{MaxActiveGoals: 3})

	w := request(t, h, http.MethodPost, "/api/v1/goals", "u1", model.GoalInput{Title: "Become staff"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[struct {
		Goal model.Goal `json:"goal"`
	}](t, w).Goal
	assert.Equal(t, model.GoalStatusActive, created.Status)

	w = request(t, h, http.MethodGet, "/api/v1/goals/"+created.ID, "u2", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, api.CodeNotFound, decode[api.ErrorResponse](t, w).Code)

	w = request(t, h, http.MethodPost, "/api/v1/goals/"+created.ID+"/milestones", "u1", model.MilestoneInput{Title: "Lead a project"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	m := decode[struct {
		Milestone model.Milestone `json:"milestone"`
	}](t, w).Milestone

	w = request(t, h, http.MethodPut, "/api/v1/milestones/"+m.ID+"/status", "u1", api.StatusRequest{Status: model.WorkStatusDone})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[model.StatusResult[model.Milestone]](t, w)
	require.NotNil(t, res.Item)
	assert.NotNil(t, res.Item.CompletedAt)
	require.NotNil(t, res.Notice)
	assert.Equal(t, "/goals/"+created.ID, res.Notice.URL)

	w = request(t, h, http.MethodPatch, "/api/v1/milestones/"+m.ID, "u1", map[string]interface{}{"description": "q3"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = request(t, h, http.MethodPost, "/api/v1/goals/"+created.ID+"/archive", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	archived := decode[model.ArchivedGoal](t, w)
	assert.Equal(t, model.GoalStatusArchived, archived.Goal.Status)
	assert.Equal(t, model.EventGoalArchived, archived.Notice.EventType)

	w = request(t, h, http.MethodGet, "/api/v1/summary", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	sum := decode[model.ProgressSummary](t, w)
	assert.Equal(t, 0, sum.Totals.ActiveGoals)
	assert.Equal(t, 1, sum.Totals.MilestonesDone)

	w = request(t, h, http.MethodDelete, "/api/v1/goals/"+created.ID, "u1", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)
	w = request(t, h, http.MethodGet, "/api/v1/goals/"+created.ID+"/milestones", "u1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestErrorMapping(t *testing.T) {
	h := newHandler(t, model.LimitsConfig{MaxActiveGoals: 1})

	w := request(t, h, http.MethodPost, "/api/v1/goals", "u1", model.GoalInput{Title: "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	er := decode[api.ErrorResponse](t, w)
	assert.Equal(t, api.CodeValidation, er.Code)
	assert.Equal(t, "title", er.Field)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/goals", strings.NewReader("{"))
	req.Header.Set("Authorization", "Bearer u1")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	w = request(t, h, http.MethodPost, "/api/v1/goals", "u1", model.GoalInput{Title: "one"})
	require.Equal(t, http.StatusCreated, w.Code)
	w = request(t, h, http.MethodPost, "/api/v1/goals", "u1", model.GoalInput{Title: "two"})
	assert.Equal(t, http.StatusPaymentRequired, w.Code)
	er = decode[api.ErrorResponse](t, w)
	assert.Equal(t, api.CodeQuotaExceeded, er.Code)
	assert.Equal(t, string(quota.ActiveGoals), er.Resource)
	assert.Equal(t, 1, er.Limit)

	w = request(t, h, http.MethodPut, "/api/v1/tasks/missing/status", "u1", api.StatusRequest{Status: "blocked"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUnreadCount(t *testing.T) {
	h := newHandler(t, model.LimitsConfig{})

	w := request(t, h, http.MethodGet, "/api/v1/unread-count", "u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"unreadCount":0}`, w.Body.String())
}

type failingPlanner struct{ api.Planner }

func (failingPlanner) ListGoals(context.Context) ([]model.Goal, error) {
	return nil, errors.New("database is locked")
}

func TestInternalErrorsAreMasked(t *testing.T) {
	h := api.NewServer(failingPlanner{}, api.WithLogger(testutil.QuietLogger())).Handler()

	w := request(t, h, http.MethodGet, "/api/v1/goals", "u1", nil)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	er := decode[api.ErrorResponse](t, w)
	assert.Equal(t, api.CodeInternal, er.Code)
	assert.NotContains(t, er.Error, "locked")
}
