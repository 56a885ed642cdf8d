// Package client implements the typed contract over the backend task API.
// Every call attaches a freshly acquired bearer token and runs inside a
// circuit breaker; responses are mapped onto the shared error taxonomy.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/xeno035/todo-list-sync-client/logging"
	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
)

// listEnvelope is the canonical task-list response shape.
type listEnvelope struct {
	Tasks []models.Task `json:"tasks"`
}

type shareRequest struct {
	Email string `json:"email"`
}

// RemoteClient talks to the task backend under its /api base path.
type RemoteClient struct {
	baseURL    string
	identity   *session.Identity
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
}

// NewRemoteClient builds a client for the given base URL. Pass nil to use a
// default HTTP client with a request timeout.
func NewRemoteClient(baseURL string, identity *session.Identity, httpClient *http.Client) *RemoteClient {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "TasksBackendCB",
		MaxRequests: 1,
		Timeout:     5 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		// A 401/403/404 is a healthy backend saying no; only transport and
		// 5xx failures should trip the breaker.
		IsSuccessful: func(err error) bool {
			if err == nil {
				return true
			}
			var authErr *models.AuthorizationError
			var notFound *models.NotFoundError
			return errors.As(err, &authErr) || errors.As(err, &notFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logging.Logger.Infof("Event ID: CIRCUIT_BREAKER_STATE_CHANGE, Description: Circuit Breaker '%s' changed from '%s' to '%s'", name, from.String(), to.String())
		},
	})

	return &RemoteClient{
		baseURL:    baseURL,
		identity:   identity,
		httpClient: httpClient,
		breaker:    breaker,
	}
}

// List fetches every task visible to the caller.
func (c *RemoteClient) List(ctx context.Context) ([]models.Task, error) {
	var envelope listEnvelope
	if err := c.call(ctx, "list tasks", http.MethodGet, "/tasks", nil, &envelope); err != nil {
		return nil, err
	}
	return envelope.Tasks, nil
}

// Get fetches a single task by id.
func (c *RemoteClient) Get(ctx context.Context, id string) (*models.Task, error) {
	var task models.Task
	if err := c.call(ctx, "get task", http.MethodGet, "/tasks/"+id, nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Create persists a draft; the backend assigns the id.
func (c *RemoteClient) Create(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	var task models.Task
	if err := c.call(ctx, "create task", http.MethodPost, "/tasks", draft, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Update replaces the full task record and returns the backend's view of it.
func (c *RemoteClient) Update(ctx context.Context, id string, draft models.TaskDraft) (*models.Task, error) {
	var task models.Task
	if err := c.call(ctx, "update task", http.MethodPut, "/tasks/"+id, draft, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// Delete removes a task.
func (c *RemoteClient) Delete(ctx context.Context, id string) error {
	return c.call(ctx, "delete task", http.MethodDelete, "/tasks/"+id, nil, nil)
}

// Share invites a collaborator by email. Only the backend can validate the
// invitee, so the response carries no task payload.
func (c *RemoteClient) Share(ctx context.Context, id, email string) error {
	return c.call(ctx, "share task", http.MethodPost, "/tasks/share/"+id, shareRequest{Email: email}, nil)
}

// Stats fetches the backend-computed aggregate counts.
func (c *RemoteClient) Stats(ctx context.Context) (*models.TaskStats, error) {
	var stats models.TaskStats
	if err := c.call(ctx, "fetch stats", http.MethodGet, "/tasks/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// call performs one authorized request inside the breaker and decodes the
// response into out when out is non-nil. Authorization and not-found
// responses keep their typed error through the breaker; everything else the
// breaker counts as a failure and surfaces as a NetworkError.
func (c *RemoteClient) call(ctx context.Context, op, method, path string, body, out interface{}) error {
	token, err := c.identity.Token(ctx)
	if err != nil {
		return &models.AuthorizationError{Op: op}
	}

	_, err = c.breaker.Execute(func() (interface{}, error) {
		var reader io.Reader
		if body != nil {
			payload, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("failed to encode request body: %v", err)
			}
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %v", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed to reach backend: %v", err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return nil, &models.AuthorizationError{Op: op, StatusCode: resp.StatusCode}
		case resp.StatusCode == http.StatusNotFound:
			return nil, &models.NotFoundError{Resource: "task", ID: lastSegment(path)}
		case resp.StatusCode < 200 || resp.StatusCode > 299:
			msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
			return nil, fmt.Errorf("backend error (%d): %s", resp.StatusCode, string(msg))
		}

		if out != nil {
			if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
				return nil, fmt.Errorf("failed to decode response: %v", err)
			}
		}
		return nil, nil
	})

	return mapError(op, err)
}
