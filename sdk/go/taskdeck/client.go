package taskdeck

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the TaskDeck REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client

	mu       sync.RWMutex
	username string
}

// Task mirrors a row of the tasks table.
type Task struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Completed   int     `json:"completed"`
	Comments    *string `json:"comments"`
	SortIndex   *int64  `json:"sort_index"`
}

// Done reports whether the task is marked as completed.
func (t Task) Done() bool { return t.Completed != 0 }

// TaskInput is the payload for creating a task or a template item.
type TaskInput struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// TaskUpdate carries a partial update. Nil fields are left untouched.
type TaskUpdate struct {
	Title       *string `json:"title,omitempty"`
	Description *string `json:"description,omitempty"`
	Completed   *bool   `json:"completed,omitempty"`
	Comments    *string `json:"comments,omitempty"`
}

// Position assigns a manual sort index to a task.
type Position struct {
	ID    int64 `json:"id"`
	Order int64 `json:"order"`
}

// ListTasksOptions filters and orders ListTasks results.
type ListTasksOptions struct {
	// Manual orders tasks by their reorder position instead of newest first.
	Manual    bool
	Completed *bool
}

// TaskStats summarises completion counts.
type TaskStats struct {
	Total     int64 `json:"total"`
	Completed int64 `json:"completed"`
	Open      int64 `json:"open"`
}

// Template is a named collection of task blueprints.
type Template struct {
	ID    int64   `json:"id"`
	Label *string `json:"label"`
}

// TemplateItem is one blueprint inside a template.
type TemplateItem struct {
	ID          int64   `json:"id"`
	Title       *string `json:"title"`
	Description *string `json:"description"`
}

// TemplateDetail is a template together with its items.
type TemplateDetail struct {
	Template
	Tasks []TemplateItem `json:"tasks"`
}

// APIError represents a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	if e.Code != "" {
		return fmt.Sprintf("taskdeck api error (%d): %s - %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("taskdeck api error (%d): %s", e.StatusCode, e.Message)
}

type idResponse struct {
	ID int64 `json:"id"`
}

// NewClient instantiates a client for the TaskDeck API. When httpClient is
// nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) (*Client, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base url: %w", err)
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}, nil
}

// Login verifies the credentials and remembers the returned username.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Username string `json:"username"`
	}
	creds := map[string]string{"username": username, "password": password}
	if err := c.send(ctx, http.MethodPost, "/login", nil, creds, &out); err != nil {
		return "", err
	}
	c.mu.Lock()
	c.username = out.Username
	c.mu.Unlock()
	return out.Username, nil
}

// Username returns the name of the last successful login.
func (c *Client) Username() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.username
}

// ListTasks returns tasks, newest first unless opts.Manual is set.
func (c *Client) ListTasks(ctx context.Context, opts ListTasksOptions) ([]Task, error) {
	query := url.Values{}
	if opts.Manual {
		query.Set("order", "manual")
	}
	if opts.Completed != nil {
		query.Set("completed", strconv.FormatBool(*opts.Completed))
	}
	var tasks []Task
	if err := c.send(ctx, http.MethodGet, "/tasks", query, nil, &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// TaskStats returns the total, completed and open task counts.
func (c *Client) TaskStats(ctx context.Context) (TaskStats, error) {
	var stats TaskStats
	if err := c.send(ctx, http.MethodGet, "/tasks/stats", nil, nil, &stats); err != nil {
		return TaskStats{}, err
	}
	return stats, nil
}

// GetTask fetches a task by id.
func (c *Client) GetTask(ctx context.Context, id int64) (Task, error) {
	var task Task
	if err := c.send(ctx, http.MethodGet, taskPath(id), nil, nil, &task); err != nil {
		return Task{}, err
	}
	return task, nil
}

// CreateTask creates an open task and returns its id.
func (c *Client) CreateTask(ctx context.Context, input TaskInput) (int64, error) {
	var out idResponse
	if err := c.send(ctx, http.MethodPost, "/tasks", nil, input, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// UpdateTask applies a partial update.
func (c *Client) UpdateTask(ctx context.Context, id int64, update TaskUpdate) error {
	return c.send(ctx, http.MethodPut, taskPath(id), nil, update, nil)
}

// DeleteTask removes a task. Deleting a missing task is not an error.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, taskPath(id), nil, nil, nil)
}

// ReorderTasks stores manual sort positions atomically.
func (c *Client) ReorderTasks(ctx context.Context, positions []Position) error {
	if positions == nil {
		positions = []Position{}
	}
	body := struct {
		Order []Position `json:"order"`
	}{Order: positions}
	return c.send(ctx, http.MethodPost, "/tasks/reorder", nil, body, nil)
}

// ListTemplates returns all templates, newest first.
func (c *Client) ListTemplates(ctx context.Context) ([]Template, error) {
	var list []Template
	if err := c.send(ctx, http.MethodGet, "/templates", nil, nil, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// GetTemplate fetches a template with its items.
func (c *Client) GetTemplate(ctx context.Context, id int64) (TemplateDetail, error) {
	var detail TemplateDetail
	if err := c.send(ctx, http.MethodGet, templatePath(id), nil, nil, &detail); err != nil {
		return TemplateDetail{}, err
	}
	return detail, nil
}

// SaveTemplate creates a template or overwrites the items of the template
// with the same label, returning its id.
func (c *Client) SaveTemplate(ctx context.Context, label *string, tasks []TaskInput) (int64, error) {
	body := struct {
		Label *string     `json:"label"`
		Tasks []TaskInput `json:"tasks"`
	}{Label: label, Tasks: nonNil(tasks)}
	var out idResponse
	if err := c.send(ctx, http.MethodPost, "/templates", nil, body, &out); err != nil {
		return 0, err
	}
	return out.ID, nil
}

// ReplaceTemplateTasks replaces all items of an existing template.
func (c *Client) ReplaceTemplateTasks(ctx context.Context, id int64, tasks []TaskInput) error {
	body := struct {
		Tasks []TaskInput `json:"tasks"`
	}{Tasks: nonNil(tasks)}
	return c.send(ctx, http.MethodPut, templatePath(id), nil, body, nil)
}

// DeleteTemplate removes a template and its items.
func (c *Client) DeleteTemplate(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodDelete, templatePath(id), nil, nil, nil)
}

// ApplyTemplate creates one open task per template item.
func (c *Client) ApplyTemplate(ctx context.Context, id int64) error {
	return c.send(ctx, http.MethodPost, "/templates/apply/"+strconv.FormatInt(id, 10), nil, nil, nil)
}

func taskPath(id int64) string     { return "/tasks/" + strconv.FormatInt(id, 10) }
func templatePath(id int64) string { return "/templates/" + strconv.FormatInt(id, 10) }

func nonNil(tasks []TaskInput) []TaskInput {
	if tasks == nil {
		return []TaskInput{}
	}
	return tasks
}

func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL.ResolveReference(&url.URL{Path: path.Join(c.baseURL.Path, endpoint)})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, &apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return &apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
