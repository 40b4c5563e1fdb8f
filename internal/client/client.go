// Package client is an HTTP client for the task API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/hiroki-koketsu/go-todo/internal/model"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// ErrNoBaseURL is returned by New when no base URL is configured.
var ErrNoBaseURL = errors.New("API base URL is not configured")

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return e.Message
}

// Client issues task requests against a base URL such as http://localhost:4000/api.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default instrumented HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// New creates a Client. Trailing slashes on baseURL are ignored.
func New(baseURL string, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if base == "" {
		return nil, ErrNoBaseURL
	}

	c := &Client{
		baseURL: base,
		httpClient: &http.Client{
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the normalized base URL.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// List fetches all tasks.
func (c *Client) List(ctx context.Context) ([]model.Task, error) {
	var tasks []model.Task
	if _, err := c.do(ctx, http.MethodGet, "/tasks", nil, &tasks); err != nil {
		return nil, err
	}
	if tasks == nil {
		tasks = []model.Task{}
	}
	return tasks, nil
}

// Get fetches one task.
func (c *Client) Get(ctx context.Context, id int64) (*model.Task, error) {
	return c.task(ctx, http.MethodGet, taskPath(id), nil)
}

// Create creates a task.
func (c *Client) Create(ctx context.Context, req model.CreateTaskRequest) (*model.Task, error) {
	return c.task(ctx, http.MethodPost, "/tasks", req)
}

// Update applies a partial update to a task.
func (c *Client) Update(ctx context.Context, id int64, req model.UpdateTaskRequest) (*model.Task, error) {
	return c.task(ctx, http.MethodPut, taskPath(id), req)
}

// Delete removes a task.
func (c *Client) Delete(ctx context.Context, id int64) error {
	_, err := c.do(ctx, http.MethodDelete, taskPath(id), nil, nil)
	return err
}

// ToggleStatus flips a task between pending and completed given its current status.
func (c *Client) ToggleStatus(ctx context.Context, id int64, current model.Status) (*model.Task, error) {
	next := current.Toggle()
	return c.Update(ctx, id, model.UpdateTaskRequest{Status: &next})
}

func (c *Client) task(ctx context.Context, method, path string, body any) (*model.Task, error) {
	var task model.Task
	ok, err := c.do(ctx, method, path, body, &task)
	if err != nil || !ok {
		return nil, err
	}
	return &task, nil
}

// do sends the request and decodes the response into out. It reports false
// when the response carried no content.
func (c *Client) do(ctx context.Context, method, path string, body, out any) (bool, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return false, fmt.Errorf("failed to encode request: %w", err)
		}
		payload = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, payload)
	if err != nil {
		return false, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return false, decodeError(resp)
	}
	if resp.StatusCode == http.StatusNoContent || out == nil {
		return false, nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return false, fmt.Errorf("failed to decode response: %w", err)
	}
	return true, nil
}

// decodeError extracts message or error from a JSON body; error wins when both are set.
func decodeError(resp *http.Response) error {
	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		Message:    "Request failed with status " + strconv.Itoa(resp.StatusCode),
	}

	var body struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return apiErr
	}
	if body.Message != "" {
		apiErr.Message = body.Message
	}
	if body.Error != "" {
		apiErr.Message = body.Error
	}
	return apiErr
}

func taskPath(id int64) string {
	return "/tasks/" + strconv.FormatInt(id, 10)
}
