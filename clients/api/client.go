// Package api provides a typed HTTP client for the tasktrack Task API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// Client talks to the Task API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTimeout bounds every request. Zero means no timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		hc := *c.httpClient
		hc.Timeout = d
		c.httpClient = &hc
	}
}

// NewClient creates a client for the API rooted at baseURL (e.g. http://127.0.0.1:3000).
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client was built with.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type taskEnvelope struct {
	Task any `json:"task"`
}

// ListTasks returns every task in id order.
func (c *Client) ListTasks(ctx context.Context) ([]tasks.Task, error) {
	var list []tasks.Task
	if err := c.do(ctx, "list tasks", http.MethodGet, "/api/tasks", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		list = []tasks.Task{}
	}
	return list, nil
}

// GetTask fetches one task.
func (c *Client) GetTask(ctx context.Context, id int64) (tasks.Task, error) {
	var t tasks.Task
	err := c.do(ctx, "get task", http.MethodGet, taskPath(id), nil, &t)
	return t, err
}

// CreateTask persists t and returns the server's copy. t.ID is ignored.
func (c *Client) CreateTask(ctx context.Context, t tasks.Task) (tasks.Task, error) {
	body := taskEnvelope{Task: tasks.Draft{Title: t.Title, Completed: t.Completed}}
	var created tasks.Task
	err := c.do(ctx, "create task", http.MethodPost, "/api/tasks", body, &created)
	return created, err
}

// UpdateTask applies p to task id and returns the merged task.
func (c *Client) UpdateTask(ctx context.Context, id int64, p tasks.Patch) (tasks.Task, error) {
	var updated tasks.Task
	err := c.do(ctx, "update task", http.MethodPatch, taskPath(id), taskEnvelope{Task: p}, &updated)
	return updated, err
}

// DeleteTask removes task id.
func (c *Client) DeleteTask(ctx context.Context, id int64) error {
	return c.do(ctx, "delete task", http.MethodDelete, taskPath(id), nil, nil)
}

// Health checks that the gateway answers.
func (c *Client) Health(ctx context.Context) error {
	var body struct {
		Status string `json:"status"`
	}
	if err := c.do(ctx, "health", http.MethodGet, "/api/health", nil, &body); err != nil {
		return err
	}
	if body.Status != "ok" {
		return fmt.Errorf("health: unexpected status %q", body.Status)
	}
	return nil
}

func taskPath(id int64) string {
	return fmt.Sprintf("/api/tasks/%d", id)
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return transportErr(op, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportErr(op, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp.StatusCode, data)
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return transportErr(op, fmt.Errorf("decode response: %w", err))
	}
	return nil
}
