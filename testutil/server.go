// Package testutil provides the in-process doubles the test suites run
// against: a fake task backend implementing the full REST surface and an
// embedded NATS server for push tests.
package testutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
)

// FakeBackend is an in-memory task backend behind httptest. It enforces
// bearer tokens and can be told to fail, which is how the breaker and
// failure-isolation tests drive it.
type FakeBackend struct {
	mu       sync.Mutex
	tasks    map[string]models.Task
	order    []string
	invitees map[string]bool
	failNext int
	requests int

	secret string
	srv    *httptest.Server
}

// NewFakeBackend starts the server. Tokens must be signed with the given
// secret.
func NewFakeBackend(secret string) *FakeBackend {
	b := &FakeBackend{
		tasks:    make(map[string]models.Task),
		invitees: make(map[string]bool),
		secret:   secret,
	}

	r := mux.NewRouter()
	api := r.PathPrefix("/api").Subrouter()
	api.Use(b.requireBearer)
	api.HandleFunc("/tasks", b.listTasks).Methods(http.MethodGet)
	api.HandleFunc("/tasks", b.createTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/stats", b.stats).Methods(http.MethodGet)
	api.HandleFunc("/tasks/share/{id}", b.shareTask).Methods(http.MethodPost)
	api.HandleFunc("/tasks/{id}", b.getTask).Methods(http.MethodGet)
	api.HandleFunc("/tasks/{id}", b.updateTask).Methods(http.MethodPut)
	api.HandleFunc("/tasks/{id}", b.deleteTask).Methods(http.MethodDelete)

	b.srv = httptest.NewServer(r)
	return b
}

// URL is the API base URL, including the /api prefix.
func (b *FakeBackend) URL() string { return b.srv.URL + "/api" }

// Close shuts the server down.
func (b *FakeBackend) Close() { b.srv.Close() }

// FailNext makes the next n requests fail with a 500 before reaching any
// handler logic.
func (b *FakeBackend) FailNext(n int) {
	b.mu.Lock()
	b.failNext = n
	b.mu.Unlock()
}

// Seed inserts a task directly, bypassing the API.
func (b *FakeBackend) Seed(t models.Task) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.tasks[t.ID]; !ok {
		b.order = append(b.order, t.ID)
	}
	b.tasks[t.ID] = t
}

// AllowInvitee registers an email the backend will accept for sharing.
// Sharing with anyone else is refused with a 403.
func (b *FakeBackend) AllowInvitee(email string) {
	b.mu.Lock()
	b.invitees[strings.ToLower(email)] = true
	b.mu.Unlock()
}

// Requests reports how many requests reached the server, including the ones
// told to fail.
func (b *FakeBackend) Requests() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.requests
}

// Task looks up a stored task by id.
func (b *FakeBackend) Task(id string) (models.Task, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	t, ok := b.tasks[id]
	return t, ok
}

func (b *FakeBackend) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.requests++
		if b.failNext > 0 {
			b.failNext--
			b.mu.Unlock()
			http.Error(w, "simulated backend failure", http.StatusInternalServerError)
			return
		}
		b.mu.Unlock()

		authHeader := r.Header.Get("Authorization")
		if !strings.HasPrefix(authHeader, "Bearer ") {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}
		tokenStr := strings.TrimPrefix(authHeader, "Bearer ")
		claims := &session.Claims{}
		token, err := jwt.ParseWithClaims(tokenStr, claims, func(token *jwt.Token) (interface{}, error) {
			return []byte(b.secret), nil
		})
		if err != nil || !token.Valid {
			http.Error(w, "invalid token", http.StatusUnauthorized)
			return
		}

		r.Header.Set("X-Principal", claims.Subject)
		next.ServeHTTP(w, r)
	})
}

func (b *FakeBackend) listTasks(w http.ResponseWriter, r *http.Request) {
	b.mu.Lock()
	tasks := make([]models.Task, 0, len(b.order))
	for _, id := range b.order {
		tasks = append(tasks, b.tasks[id])
	}
	b.mu.Unlock()

	json.NewEncoder(w).Encode(map[string]interface{}{"tasks": tasks})
}

func (b *FakeBackend) getTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	task, ok := b.tasks[id]
	b.mu.Unlock()
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	json.NewEncoder(w).Encode(task)
}

func (b *FakeBackend) createTask(w http.ResponseWriter, r *http.Request) {
	var draft models.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	task := models.Task{
		ID:          uuid.New().String(),
		Title:       draft.Title,
		Description: draft.Description,
		DueDate:     draft.DueDate,
		Priority:    draft.Priority,
		Status:      draft.Status,
		CreatedBy:   r.Header.Get("X-Principal"),
		CreatedAt:   time.Now().UTC(),
	}
	if task.Priority == "" {
		task.Priority = models.PriorityMedium
	}
	if task.Status == "" {
		task.Status = models.StatusPending
	}

	b.mu.Lock()
	b.tasks[task.ID] = task
	b.order = append(b.order, task.ID)
	b.mu.Unlock()

	w.WriteHeader(http.StatusCreated)
	json.NewEncoder(w).Encode(task)
}

func (b *FakeBackend) updateTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var draft models.TaskDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	task, ok := b.tasks[id]
	if !ok {
		b.mu.Unlock()
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}

	// Full-record replace; identity and server-owned fields survive.
	task.Title = draft.Title
	task.Description = draft.Description
	task.DueDate = draft.DueDate
	task.Priority = draft.Priority
	task.Status = draft.Status
	b.tasks[id] = task
	b.mu.Unlock()

	json.NewEncoder(w).Encode(task)
}

func (b *FakeBackend) deleteTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	b.mu.Lock()
	_, ok := b.tasks[id]
	if ok {
		delete(b.tasks, id)
		for i, oid := range b.order {
			if oid == id {
				b.order = append(b.order[:i], b.order[i+1:]...)
				break
			}
		}
	}
	b.mu.Unlock()

	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (b *FakeBackend) shareTask(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	task, ok := b.tasks[id]
	if !ok {
		http.Error(w, "task not found", http.StatusNotFound)
		return
	}
	if !b.invitees[strings.ToLower(req.Email)] {
		http.Error(w, "unknown collaborator", http.StatusForbidden)
		return
	}

	for _, c := range task.Collaborators {
		if strings.EqualFold(c, req.Email) {
			w.WriteHeader(http.StatusOK)
			return
		}
	}
	task.Collaborators = append(task.Collaborators, req.Email)
	b.tasks[id] = task
	w.WriteHeader(http.StatusOK)
}

func (b *FakeBackend) stats(w http.ResponseWriter, r *http.Request) {
	now := time.Now()
	b.mu.Lock()
	stats := models.TaskStats{Total: len(b.tasks)}
	for _, t := range b.tasks {
		if t.Status == models.StatusCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if t.Overdue(now) {
			stats.Overdue++
		}
	}
	b.mu.Unlock()

	json.NewEncoder(w).Encode(stats)
}
