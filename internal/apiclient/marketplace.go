package apiclient

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/ashureev/marketdesk/internal/domain"
)

// ListProjects returns the projects visible to the current role.
func (c *Client) ListProjects(ctx context.Context) ([]domain.Project, error) {
	var out []domain.Project
	if err := c.Do(ctx, http.MethodGet, "/projects/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetProject(ctx context.Context, id int64) (*domain.Project, error) {
	var out domain.Project
	if err := c.Do(ctx, http.MethodGet, fmt.Sprintf("/projects/%d/", id), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) CreateProject(ctx context.Context, p domain.NewProject) (*domain.Project, error) {
	var out domain.Project
	if err := c.Do(ctx, http.MethodPost, "/projects/", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateProjectStatus(ctx context.Context, id int64, status domain.ProjectStatus) (*domain.Project, error) {
	var out domain.Project
	body := map[string]domain.ProjectStatus{"status": status}
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/projects/%d/", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListTasks returns tasks, restricted to projectID when it is non-zero.
func (c *Client) ListTasks(ctx context.Context, projectID int64) ([]domain.Task, error) {
	var q url.Values
	if projectID != 0 {
		q = url.Values{"project": {strconv.FormatInt(projectID, 10)}}
	}
	var out []domain.Task
	if err := c.Do(ctx, http.MethodGet, "/tasks/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateTask(ctx context.Context, t domain.NewTask) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodPost, "/tasks/", nil, t, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) UpdateTask(ctx context.Context, id int64, u domain.TaskUpdate) (*domain.Task, error) {
	var out domain.Task
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/tasks/%d/", id), nil, u, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListApplications returns applications, restricted to projectID when it is non-zero.
func (c *Client) ListApplications(ctx context.Context, projectID int64) ([]domain.ProjectApplication, error) {
	var q url.Values
	if projectID != 0 {
		q = url.Values{"project_id": {strconv.FormatInt(projectID, 10)}}
	}
	var out []domain.ProjectApplication
	if err := c.Do(ctx, http.MethodGet, "/applications/", q, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Apply submits the current developer's application to projectID.
func (c *Client) Apply(ctx context.Context, projectID int64, coverLetter string) (*domain.ProjectApplication, error) {
	var out domain.ProjectApplication
	body := map[string]any{"project": projectID}
	if coverLetter != "" {
		body["cover_letter"] = coverLetter
	}
	if err := c.Do(ctx, http.MethodPost, "/applications/", nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ApproveApplication(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/applications/%d/approve/", id), nil, nil, nil)
}

func (c *Client) RejectApplication(ctx context.Context, id int64) error {
	return c.Do(ctx, http.MethodPost, fmt.Sprintf("/applications/%d/reject/", id), nil, nil, nil)
}

// ListUsers returns every profile. Admin only.
func (c *Client) ListUsers(ctx context.Context) ([]domain.Profile, error) {
	var out []domain.Profile
	if err := c.Do(ctx, http.MethodGet, "/users/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// ApproveUser marks profile id as approved. Admin only.
func (c *Client) ApproveUser(ctx context.Context, id int64) (*domain.Profile, error) {
	var out domain.Profile
	body := map[string]bool{"is_approved": true}
	if err := c.Do(ctx, http.MethodPatch, fmt.Sprintf("/users/%d/", id), nil, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) ListPayments(ctx context.Context) ([]domain.Payment, error) {
	var out []domain.Payment
	if err := c.Do(ctx, http.MethodGet, "/payments/", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreatePayment(ctx context.Context, p domain.NewPayment) (*domain.Payment, error) {
	var out domain.Payment
	if err := c.Do(ctx, http.MethodPost, "/payments/", nil, p, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) AdminStats(ctx context.Context) (*domain.AdminStats, error) {
	var out domain.AdminStats
	if err := c.Do(ctx, http.MethodGet, "/admin/stats/", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
