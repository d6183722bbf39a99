package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/nhle/career-planner/internal/model"
	"github.com/nhle/career-planner/internal/planner"
	"github.com/nhle/career-planner/internal/quota"
)

// Client is a thin HTTP client for the planner API. It authenticates
// with the same headers HeaderAuthenticator reads, translates error
// responses back into planner errors, and retries HTTP 429 with
// exponential backoff.
type Client struct {
	baseURL    string
	userID     string
	pro        bool
	httpClient *http.Client
	maxRetries int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default 30s-timeout http.Client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

// WithProPlan marks requests as coming from a paid user.
func WithProPlan(pro bool) ClientOption {
	return func(c *Client) { c.pro = pro }
}

// NewClient creates a client for the server at baseURL acting as userID.
func NewClient(baseURL, userID string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		userID:  userID,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func goalPath(id string) string      { return "/api/v1/goals/" + url.PathEscape(id) }
func milestonePath(id string) string { return "/api/v1/milestones/" + url.PathEscape(id) }
func taskPath(id string) string      { return "/api/v1/tasks/" + url.PathEscape(id) }

// ListGoals implements client.Backend.
func (c *Client) ListGoals(ctx context.Context) ([]model.Goal, error) {
	var resp goalsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/goals", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Goals, nil
}

// GetGoal implements client.Backend.
func (c *Client) GetGoal(ctx context.Context, id string) (*model.Goal, error) {
	var resp goalResponse
	if err := c.do(ctx, http.MethodGet, goalPath(id), nil, &resp); err != nil {
		return nil, err
	}
	return resp.Goal, nil
}

// CreateGoal implements client.Backend.
func (c *Client) CreateGoal(ctx context.Context, in model.GoalInput) (*model.Goal, error) {
	var resp goalResponse
	if err := c.do(ctx, http.MethodPost, "/api/v1/goals", in, &resp); err != nil {
		return nil, err
	}
	return resp.Goal, nil
}

// UpdateGoal implements client.Backend.
func (c *Client) UpdateGoal(ctx context.Context, id string, in model.GoalInput) (*model.Goal, error) {
	var resp goalResponse
	if err := c.do(ctx, http.MethodPut, goalPath(id), in, &resp); err != nil {
		return nil, err
	}
	return resp.Goal, nil
}

// ArchiveGoal implements client.Backend.
func (c *Client) ArchiveGoal(ctx context.Context, id string) (*model.ArchivedGoal, error) {
	var resp model.ArchivedGoal
	if err := c.do(ctx, http.MethodPost, goalPath(id)+"/archive", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteGoal removes a goal with its milestones and tasks.
func (c *Client) DeleteGoal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, goalPath(id), nil, nil)
}

// ListMilestonesByGoal implements client.Backend.
func (c *Client) ListMilestonesByGoal(ctx context.Context, goalID string) ([]model.Milestone, error) {
	var resp milestonesResponse
	if err := c.do(ctx, http.MethodGet, goalPath(goalID)+"/milestones", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Milestones, nil
}

// CreateMilestone implements client.Backend.
func (c *Client) CreateMilestone(ctx context.Context, goalID string, in model.MilestoneInput) (*model.Milestone, error) {
	var resp milestoneResponse
	if err := c.do(ctx, http.MethodPost, goalPath(goalID)+"/milestones", in, &resp); err != nil {
		return nil, err
	}
	return resp.Milestone, nil
}

// UpdateMilestone applies a partial update.
func (c *Client) UpdateMilestone(ctx context.Context, id string, patch model.MilestonePatch) (*model.Milestone, error) {
	var resp milestoneResponse
	if err := c.do(ctx, http.MethodPatch, milestonePath(id), patch, &resp); err != nil {
		return nil, err
	}
	return resp.Milestone, nil
}

// SetMilestoneStatus implements client.Backend.
func (c *Client) SetMilestoneStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Milestone], error) {
	var resp model.StatusResult[model.Milestone]
	if err := c.do(ctx, http.MethodPut, milestonePath(id)+"/status", StatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteMilestone removes a milestone with its tasks.
func (c *Client) DeleteMilestone(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, milestonePath(id), nil, nil)
}

// ListTasksByMilestone implements client.Backend.
func (c *Client) ListTasksByMilestone(ctx context.Context, milestoneID string) ([]model.Task, error) {
	var resp tasksResponse
	if err := c.do(ctx, http.MethodGet, milestonePath(milestoneID)+"/tasks", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Tasks, nil
}

// CreateTask implements client.Backend.
func (c *Client) CreateTask(ctx context.Context, milestoneID string, in model.TaskInput) (*model.Task, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodPost, milestonePath(milestoneID)+"/tasks", in, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id string, patch model.TaskPatch) (*model.Task, error) {
	var resp taskResponse
	if err := c.do(ctx, http.MethodPatch, taskPath(id), patch, &resp); err != nil {
		return nil, err
	}
	return resp.Task, nil
}

// SetTaskStatus implements client.Backend.
func (c *Client) SetTaskStatus(ctx context.Context, id string, status model.WorkStatus) (*model.StatusResult[model.Task], error) {
	var resp model.StatusResult[model.Task]
	if err := c.do(ctx, http.MethodPut, taskPath(id)+"/status", StatusRequest{Status: status}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteTask removes a task.
func (c *Client) DeleteTask(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
}

// Summary fetches the caller's progress summary.
func (c *Client) Summary(ctx context.Context) (model.ProgressSummary, error) {
	var sum model.ProgressSummary
	err := c.do(ctx, http.MethodGet, "/api/v1/summary", nil, &sum)
	return sum, err
}

// do builds the request, authenticates it, retries on 429 and decodes
// the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result interface{}) error {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshaling request body: %w", err)
		}
		payload = data
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set(HeaderAuthorization, "Bearer "+c.userID)
		if c.pro {
			req.Header.Set(HeaderUserPlan, planPro)
		}
		req.Header.Set("Accept", "application/json")
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("executing request %s %s: %w", method, path, err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return fmt.Errorf("reading response body: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("rate limited (429) on %s %s", method, path)
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(retryAfterDuration(resp, attempt)):
				continue
			}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return decodeError(method, path, resp.StatusCode, respBody)
		}

		if result == nil || resp.StatusCode == http.StatusNoContent {
			return nil
		}
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshaling response from %s %s: %w", method, path, err)
		}
		return nil
	}

	return fmt.Errorf("max retries (%d) exceeded: %w", c.maxRetries, lastErr)
}

// decodeError turns an error response back into the planner error the
// server mapped it from.
func decodeError(method, path string, status int, body []byte) error {
	var er ErrorResponse
	if json.Unmarshal(body, &er) != nil || er.Error == "" {
		er.Error = strings.TrimSpace(string(body))
	}

	switch status {
	case http.StatusUnauthorized:
		return fmt.Errorf("%s %s: %w", method, path, planner.ErrUnauthorized)
	case http.StatusNotFound:
		return fmt.Errorf("%s %s: %w", method, path, planner.ErrNotFound)
	case http.StatusBadRequest:
		return &planner.ValidationError{Field: er.Field, Message: er.Error}
	case http.StatusPaymentRequired:
		return &planner.QuotaError{Resource: quota.Resource(er.Resource), Limit: er.Limit}
	}
	return fmt.Errorf("unexpected status %d on %s %s: %s", status, method, path, er.Error)
}

// retryAfterDuration reads Retry-After, falling back to exponential
// backoff capped at 30s.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}
