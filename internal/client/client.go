// Package client talks to the task API over HTTP.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"daily-planner/internal/api"
	"daily-planner/internal/model"
	"daily-planner/internal/timeutil"
	"daily-planner/internal/view"
)

// RequestIDHeader tags every request so server logs can be matched with client notices.
const RequestIDHeader = "X-Request-ID"

// NetworkError is any transport failure or non-success response.
type NetworkError struct {
	Op        string
	Status    int
	Message   string
	RequestID string
	Err       error
}

func (e *NetworkError) Error() string {
	switch {
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	case e.Message != "":
		return fmt.Sprintf("%s: %d %s", e.Op, e.Status, e.Message)
	default:
		return fmt.Sprintf("%s: unexpected status %d", e.Op, e.Status)
	}
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// NotFound reports whether the server answered 404.
func (e *NetworkError) NotFound() bool {
	return e.Status == http.StatusNotFound
}

// Client is a task API client bound to one owner.
type Client struct {
	baseURL string
	owner   uint
	http    *http.Client
}

// New creates a client for the API at baseURL acting as owner.
func New(baseURL string, owner uint) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		owner:   owner,
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

// View is one fetched view.
type View struct {
	View   view.View
	Today  time.Time
	Tasks  []model.Task
	Groups []view.Group
}

func (c *Client) View(ctx context.Context, v view.View) (*View, error) {
	var res api.ViewResponse
	path := "/api/tasks?view=" + url.QueryEscape(string(v))
	if err := c.do(ctx, "load view", http.MethodGet, path, nil, &res); err != nil {
		return nil, err
	}

	today, err := timeutil.ParseDueDate(res.Today)
	if err != nil {
		return nil, &NetworkError{Op: "load view", Status: http.StatusOK, Err: err}
	}
	out := &View{View: res.View, Today: today}
	if out.Tasks, err = toModels(res.Tasks); err != nil {
		return nil, &NetworkError{Op: "load view", Status: http.StatusOK, Err: err}
	}
	for _, g := range res.Groups {
		tasks, err := toModels(g.Tasks)
		if err != nil {
			return nil, &NetworkError{Op: "load view", Status: http.StatusOK, Err: err}
		}
		out.Groups = append(out.Groups, view.Group{Bucket: g.Bucket, Tasks: tasks})
	}
	return out, nil
}

func (c *Client) Create(ctx context.Context, title string, due *time.Time) (model.Task, error) {
	req := api.CreateRequest{Title: title}
	if due != nil {
		d := timeutil.FormatDate(*due)
		req.DueDate = &d
	}
	var dto api.TaskDTO
	if err := c.do(ctx, "create task", http.MethodPost, "/api/tasks", req, &dto); err != nil {
		return model.Task{}, err
	}
	return dto.Model()
}

// BulkCreate sends free text, one task per line.
func (c *Client) BulkCreate(ctx context.Context, text string, fallback *time.Time) ([]model.Task, error) {
	req := api.BulkRequest{Text: text}
	if fallback != nil {
		d := timeutil.FormatDate(*fallback)
		req.DefaultDueDate = &d
	}
	var res api.BulkResponse
	if err := c.do(ctx, "bulk create", http.MethodPost, "/api/tasks/bulk", req, &res); err != nil {
		return nil, err
	}
	return toModels(res.Tasks)
}

// Update sends typed updates as a partial update.
func (c *Client) Update(ctx context.Context, id uint, updates ...model.Update) (model.Task, error) {
	body, err := api.EncodePatch(updates)
	if err != nil {
		return model.Task{}, err
	}
	var dto api.TaskDTO
	if err := c.do(ctx, "update task", http.MethodPatch, "/api/tasks/"+strconv.FormatUint(uint64(id), 10), json.RawMessage(body), &dto); err != nil {
		return model.Task{}, err
	}
	return dto.Model()
}

func (c *Client) Reorder(ctx context.Context, items []model.PositionUpdate) error {
	return c.do(ctx, "reorder", http.MethodPut, "/api/tasks/reorder", api.ReorderRequest{Items: items}, nil)
}

func (c *Client) Delete(ctx context.Context, id uint) error {
	return c.do(ctx, "delete task", http.MethodDelete, "/api/tasks/"+strconv.FormatUint(uint64(id), 10), nil, nil)
}

func (c *Client) do(ctx context.Context, op, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encode body: %w", op, err)
		}
		reader = bytes.NewReader(raw)
	}

	requestID := uuid.NewString()
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return &NetworkError{Op: op, RequestID: requestID, Err: err}
	}
	req.Header.Set(api.OwnerHeader, strconv.FormatUint(uint64(c.owner), 10))
	req.Header.Set(RequestIDHeader, requestID)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &NetworkError{Op: op, RequestID: requestID, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr api.ErrorResponse
		_ = json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&apiErr)
		return &NetworkError{Op: op, Status: resp.StatusCode, Message: apiErr.Error, RequestID: requestID}
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &NetworkError{Op: op, Status: resp.StatusCode, RequestID: requestID, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func toModels(dtos []api.TaskDTO) ([]model.Task, error) {
	out := make([]model.Task, 0, len(dtos))
	for _, dto := range dtos {
		task, err := dto.Model()
		if err != nil {
			return nil, err
		}
		out = append(out, task)
	}
	return out, nil
}

// IsNetwork reports whether err is a NetworkError.
func IsNetwork(err error) bool {
	var n *NetworkError
	return errors.As(err, &n)
}
