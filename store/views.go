package store

import (
	"sort"
	"strings"
	"time"

	"github.com/xeno035/todo-list-sync-client/models"
)

// Filter selects a subset of the collection. Zero values and "all" leave a
// dimension unconstrained; active predicates compose conjunctively.
type Filter struct {
	Search   string
	Status   models.TaskStatus
	Priority models.TaskPriority
}

// SortKey names a client-side sort order.
type SortKey string

const (
	SortByDueDate   SortKey = "dueDate"  // ascending by calendar date
	SortByPriority  SortKey = "priority" // high before medium before low
	SortByCreatedAt SortKey = "created"  // newest first
)

// Tasks returns a snapshot of the collection in arrival order.
func (s *TaskStore) Tasks() []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Len reports the collection size.
func (s *TaskStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Filtered returns the tasks satisfying every active predicate. Search
// matches case-insensitively against title or description substrings.
func (s *TaskStore) Filtered(f Filter) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	search := strings.ToLower(strings.TrimSpace(f.Search))
	var out []models.Task
	for _, t := range s.tasks {
		if search != "" &&
			!strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		if f.Status != "" && f.Status != "all" && t.Status != f.Status {
			continue
		}
		if f.Priority != "" && f.Priority != "all" && t.Priority != f.Priority {
			continue
		}
		out = append(out, t)
	}
	return out
}

// SortBy returns a sorted snapshot. The sort is stable, so ties preserve
// arrival order.
func (s *TaskStore) SortBy(key SortKey) []models.Task {
	s.mu.RLock()
	out := s.snapshotLocked()
	s.mu.RUnlock()

	SortTasks(out, key)
	return out
}

// SortTasks orders tasks in place by the given key. Exposed so views can
// re-sort an already filtered slice without another snapshot.
func SortTasks(tasks []models.Task, key SortKey) {
	switch key {
	case SortByDueDate:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].DueDate.Before(tasks[j].DueDate)
		})
	case SortByPriority:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].Priority.Rank() > tasks[j].Priority.Rank()
		})
	case SortByCreatedAt:
		sort.SliceStable(tasks, func(i, j int) bool {
			return tasks[i].CreatedAt.After(tasks[j].CreatedAt)
		})
	}
}

// Stats derives the aggregate counts from the local collection. Pending
// counts every task not yet completed. This is the client-side fallback for
// the backend's authoritative figures.
func (s *TaskStore) Stats(now time.Time) models.TaskStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := models.TaskStats{Total: len(s.tasks)}
	for _, t := range s.tasks {
		if t.Status == models.StatusCompleted {
			stats.Completed++
		} else {
			stats.Pending++
		}
		if t.Overdue(now) {
			stats.Overdue++
		}
	}
	return stats
}

// Overdue returns the tasks whose due date has passed. Evaluated at query
// time, not cached: a task can become overdue with no mutation at all.
func (s *TaskStore) Overdue(now time.Time) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, t := range s.tasks {
		if t.Overdue(now) {
			out = append(out, t)
		}
	}
	return out
}

// Vital returns the tasks needing immediate attention: high priority or
// overdue.
func (s *TaskStore) Vital(now time.Time) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, t := range s.tasks {
		if t.Vital(now) {
			out = append(out, t)
		}
	}
	return out
}

// SharedWith returns the tasks other principals shared with the given
// session: collaborator membership is case-insensitive and the creator's own
// tasks are excluded.
func (s *TaskStore) SharedWith(session *models.Session) []models.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.Task
	for _, t := range s.tasks {
		if t.SharedWith(session) {
			out = append(out, t)
		}
	}
	return out
}

// Recent returns the newest n tasks by creation time, the dashboard's
// headline slice.
func (s *TaskStore) Recent(n int) []models.Task {
	out := s.SortBy(SortByCreatedAt)
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func (s *TaskStore) snapshotLocked() []models.Task {
	out := make([]models.Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
