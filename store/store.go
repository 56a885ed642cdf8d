// Package store keeps the client's view of the task collection. It is the
// single owner of that state: REST responses, direct mutations and push
// events all reconcile here, and every read view derives from the same
// snapshot. Views never mutate the collection directly.
package store

import (
	"context"
	"strings"
	"sync"

	"github.com/xeno035/todo-list-sync-client/logging"
	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
)

// TaskAPI is the backend contract the store consumes. *client.RemoteClient
// satisfies it; tests substitute their own.
type TaskAPI interface {
	List(ctx context.Context) ([]models.Task, error)
	Get(ctx context.Context, id string) (*models.Task, error)
	Create(ctx context.Context, draft models.TaskDraft) (*models.Task, error)
	Update(ctx context.Context, id string, draft models.TaskDraft) (*models.Task, error)
	Delete(ctx context.Context, id string) error
	Share(ctx context.Context, id, email string) error
	Stats(ctx context.Context) (*models.TaskStats, error)
}

// TaskStore reconciles three independent change sources into one collection:
// manual refresh, mutation responses and push events. Whichever completes
// last wins for overlapping ids; the periodic refresh bounds the staleness
// window.
type TaskStore struct {
	api      TaskAPI
	identity *session.Identity

	mu    sync.RWMutex
	tasks []models.Task
	index map[string]int

	listenerMu sync.Mutex
	listeners  map[int]func()
	nextID     int
}

// NewTaskStore builds an empty store bound to the backend and the current
// session.
func NewTaskStore(api TaskAPI, identity *session.Identity) *TaskStore {
	return &TaskStore{
		api:       api,
		identity:  identity,
		index:     make(map[string]int),
		listeners: make(map[int]func()),
	}
}

// Subscribe registers a change listener, fired after every committed
// mutation. The returned func removes the listener; calling it twice is safe.
func (s *TaskStore) Subscribe(fn func()) func() {
	s.listenerMu.Lock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	s.listenerMu.Unlock()

	return func() {
		s.listenerMu.Lock()
		delete(s.listeners, id)
		s.listenerMu.Unlock()
	}
}

func (s *TaskStore) notify() {
	s.listenerMu.Lock()
	fns := make([]func(), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.listenerMu.Unlock()

	for _, fn := range fns {
		fn()
	}
}

// requireSession gates every operation: no session, no network call.
func (s *TaskStore) requireSession(op string) error {
	if _, ok := s.identity.Current(); !ok {
		return &models.AuthorizationError{Op: op}
	}
	return nil
}

// Refresh replaces the collection wholesale with the backend's task list.
// On failure the prior collection is left untouched and the error surfaces
// to the caller; the store never retries on its own.
func (s *TaskStore) Refresh(ctx context.Context) error {
	if err := s.requireSession("refresh"); err != nil {
		return err
	}

	tasks, err := s.api.List(ctx)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.tasks = tasks
	s.index = make(map[string]int, len(tasks))
	for i, t := range tasks {
		s.index[t.ID] = i
	}
	s.mu.Unlock()

	logging.Logger.Infof("Event ID: STORE_REFRESHED, Description: Task collection replaced, %d tasks loaded", len(tasks))
	s.notify()
	return nil
}

// Create validates the draft locally, persists it and merges the backend's
// response into the collection under its assigned id. An invalid draft fails
// before any request is issued.
func (s *TaskStore) Create(ctx context.Context, draft models.TaskDraft) (*models.Task, error) {
	if err := s.requireSession("create"); err != nil {
		return nil, err
	}
	if err := draft.Validate(); err != nil {
		return nil, err
	}
	draft.Normalize()

	created, err := s.api.Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.upsertLocked(*created, false)
	s.mu.Unlock()

	s.notify()
	return created, nil
}

// Update replaces the full task record. The local entry takes the backend's
// response, not the submitted patch, so server-derived fields stay
// authoritative.
func (s *TaskStore) Update(ctx context.Context, id string, draft models.TaskDraft) (*models.Task, error) {
	if err := s.requireSession("update"); err != nil {
		return nil, err
	}

	updated, err := s.api.Update(ctx, id, draft)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.upsertLocked(*updated, false)
	s.mu.Unlock()

	s.notify()
	return updated, nil
}

// Get fetches one task from the backend and folds it into the collection.
func (s *TaskStore) Get(ctx context.Context, id string) (*models.Task, error) {
	if err := s.requireSession("get"); err != nil {
		return nil, err
	}

	task, err := s.api.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	s.upsertLocked(*task, false)
	s.mu.Unlock()

	s.notify()
	return task, nil
}

// Remove deletes the task remotely and evicts it locally once the delete
// call succeeds. Deletion is immediate and final on the client.
func (s *TaskStore) Remove(ctx context.Context, id string) error {
	if err := s.requireSession("remove"); err != nil {
		return err
	}

	if err := s.api.Delete(ctx, id); err != nil {
		return err
	}

	s.mu.Lock()
	s.removeLocked(id)
	s.mu.Unlock()

	s.notify()
	return nil
}

// Share invites a collaborator. The local collaborator list is deliberately
// not touched: only the backend can validate the invitee, so the change lands
// through the next refresh or a push event.
func (s *TaskStore) Share(ctx context.Context, id, email string) error {
	if err := s.requireSession("share"); err != nil {
		return err
	}
	if strings.TrimSpace(email) == "" {
		return &models.ValidationError{Field: "email", Reason: "collaborator email must not be empty"}
	}

	return s.api.Share(ctx, id, email)
}

// ApplyRemoteEvent reconciles one push notification. Upsert-by-id and
// remove-by-id are both idempotent, so duplicate delivery cannot corrupt the
// collection. Newly seen tasks are prepended so freshly shared work surfaces
// first.
func (s *TaskStore) ApplyRemoteEvent(event models.TaskEvent) {
	switch event.Kind {
	case models.EventTaskCreated, models.EventTaskUpdated, models.EventTaskShared:
		s.mu.Lock()
		s.upsertLocked(event.Task, true)
		s.mu.Unlock()
	case models.EventTaskDeleted:
		s.mu.Lock()
		changed := s.removeLocked(event.Task.ID)
		s.mu.Unlock()
		if !changed {
			return
		}
	default:
		return
	}

	s.notify()
}

// RemoteStats fetches the backend-computed aggregate counts. These are
// computed independently of the task list, so they may briefly disagree with
// Stats; callers tolerate the skew.
func (s *TaskStore) RemoteStats(ctx context.Context) (*models.TaskStats, error) {
	if err := s.requireSession("stats"); err != nil {
		return nil, err
	}
	return s.api.Stats(ctx)
}

// upsertLocked inserts or replaces by id. prepend controls where a new task
// lands: push events go first, REST responses keep arrival order.
func (s *TaskStore) upsertLocked(task models.Task, prepend bool) {
	if i, ok := s.index[task.ID]; ok {
		s.tasks[i] = task
		return
	}

	if prepend {
		s.tasks = append([]models.Task{task}, s.tasks...)
		for id, i := range s.index {
			s.index[id] = i + 1
		}
		s.index[task.ID] = 0
		return
	}

	s.tasks = append(s.tasks, task)
	s.index[task.ID] = len(s.tasks) - 1
}

// removeLocked drops a task by id, reporting whether anything changed.
func (s *TaskStore) removeLocked(id string) bool {
	i, ok := s.index[id]
	if !ok {
		return false
	}

	s.tasks = append(s.tasks[:i], s.tasks[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.tasks); j++ {
		s.index[s.tasks[j].ID] = j
	}
	return true
}
