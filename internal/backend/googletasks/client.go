// Package googletasks implements service.Remote using the Google Tasks API.
package googletasks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"todosync/internal/service"
)

const (
	// PageSize is the number of items requested per page.
	PageSize = 100

	// DefaultAPITimeout is used when no timeout is configured.
	DefaultAPITimeout = 10 * time.Second
)

// Client implements service.Remote using Google Tasks API.
type Client struct {
	svc     *tasks.Service
	timeout time.Duration
}

var _ service.Remote = (*Client)(nil)

// New creates a Google Tasks client. Every request is authorized with the
// token currently returned by ts. Extra client options (such as an endpoint
// override) are passed through to the API library.
func New(ctx context.Context, ts oauth2.TokenSource, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	// ts is asked on every request. oauth2.NewClient would wrap it in a
	// ReuseTokenSource and keep sending a token the remote already rejected.
	httpClient := &http.Client{Transport: &oauth2.Transport{Source: ts, Base: http.DefaultTransport}}
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	return newClient(ctx, timeout, opts...)
}

// NewWithHTTPClient creates a client with a custom HTTP client (for testing).
func NewWithHTTPClient(ctx context.Context, httpClient *http.Client, opts ...option.ClientOption) (*Client, error) {
	opts = append([]option.ClientOption{option.WithHTTPClient(httpClient)}, opts...)
	return newClient(ctx, DefaultAPITimeout, opts...)
}

func newClient(ctx context.Context, timeout time.Duration, opts ...option.ClientOption) (*Client, error) {
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultAPITimeout
	}
	return &Client{svc: svc, timeout: timeout}, nil
}

// ListLists returns all task lists in API order.
func (c *Client) ListLists(ctx context.Context) ([]service.TaskList, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.TaskList
	err := c.svc.Tasklists.List().MaxResults(PageSize).Pages(ctx, func(resp *tasks.TaskLists) error {
		for _, list := range resp.Items {
			result = append(result, service.TaskList{ID: list.Id, Title: list.Title})
		}
		return nil
	})
	if err != nil {
		return nil, wrapError("list task lists", err)
	}
	return result, nil
}

// ListTasks returns all tasks of a list, completed and hidden ones included.
func (c *Client) ListTasks(ctx context.Context, listID string) ([]service.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var result []service.RemoteTask
	err := c.svc.Tasks.List(listID).
		MaxResults(PageSize).
		ShowCompleted(true).
		ShowHidden(true).
		ShowDeleted(false).
		Pages(ctx, func(resp *tasks.Tasks) error {
			for _, t := range resp.Items {
				result = append(result, fromAPI(t))
			}
			return nil
		})
	if err != nil {
		return nil, wrapError("list tasks", err)
	}
	return result, nil
}

// GetTask returns a single task.
func (c *Client) GetTask(ctx context.Context, listID, taskID string) (service.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	t, err := c.svc.Tasks.Get(listID, taskID).Context(ctx).Do()
	if err != nil {
		return service.RemoteTask{}, wrapError("get task", err)
	}
	return fromAPI(t), nil
}

// InsertTask creates a new task in the specified list.
func (c *Client) InsertTask(ctx context.Context, listID string, task service.RemoteTask) (service.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	created, err := c.svc.Tasks.Insert(listID, toAPI(task)).Context(ctx).Do()
	if err != nil {
		return service.RemoteTask{}, wrapError("insert task", err)
	}
	return fromAPI(created), nil
}

// UpdateTask patches a task; fields left empty are not sent.
func (c *Client) UpdateTask(ctx context.Context, listID, taskID string, task service.RemoteTask) (service.RemoteTask, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	updated, err := c.svc.Tasks.Patch(listID, taskID, toAPI(task)).Context(ctx).Do()
	if err != nil {
		return service.RemoteTask{}, wrapError("update task", err)
	}
	return fromAPI(updated), nil
}

// DeleteTask deletes a task.
func (c *Client) DeleteTask(ctx context.Context, listID, taskID string) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	if err := c.svc.Tasks.Delete(listID, taskID).Context(ctx).Do(); err != nil {
		return wrapError("delete task", err)
	}
	return nil
}

// nullable maps RemoteTask null field names to API struct field names.
var nullable = map[string]string{
	"completed": "Completed",
	"due":       "Due",
	"notes":     "Notes",
}

func toAPI(t service.RemoteTask) *tasks.Task {
	out := &tasks.Task{
		Title:  t.Title,
		Notes:  t.Notes,
		Status: t.Status,
		Due:    t.Due,
	}
	if t.Completed != "" {
		completed := t.Completed
		out.Completed = &completed
	}
	for _, f := range t.NullFields {
		if name, ok := nullable[f]; ok {
			out.NullFields = append(out.NullFields, name)
		}
	}
	return out
}

func fromAPI(t *tasks.Task) service.RemoteTask {
	if t == nil {
		return service.RemoteTask{}
	}
	out := service.RemoteTask{
		ID:      t.Id,
		Title:   t.Title,
		Notes:   t.Notes,
		Status:  t.Status,
		Due:     t.Due,
		Updated: t.Updated,
	}
	if t.Completed != nil {
		out.Completed = *t.Completed
	}
	return out
}

// wrapError classifies API errors into service error kinds.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	// Token source failures already carry a kind.
	if errors.Is(err, service.ErrAuth) {
		return service.AuthError(op, err)
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		switch gerr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			return service.AuthError(op, fmt.Errorf("token expired or revoked: %w", err))
		case http.StatusNotFound, http.StatusGone:
			return service.NotFoundError(op, err)
		}
		return service.NetworkError(op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return service.NetworkError(op, fmt.Errorf("request timed out: %w", err))
	}
	if errors.Is(err, context.Canceled) {
		return err
	}
	return service.NetworkError(op, err)
}
