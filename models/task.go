package models

import (
	"strings"
	"time"
)

type TaskStatus string

const (
	StatusPending    TaskStatus = "pending"
	StatusInProgress TaskStatus = "in-progress"
	StatusCompleted  TaskStatus = "completed"
)

type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// Rank orders priorities for sorting: high before medium before low.
func (p TaskPriority) Rank() int {
	switch p {
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	}
	return 0
}

// Task is the client-visible task record. The id is assigned by the backend
// and is immutable once set.
type Task struct {
	ID            string       `json:"id"`
	Title         string       `json:"title"`
	Description   string       `json:"description"`
	DueDate       time.Time    `json:"dueDate"`
	Priority      TaskPriority `json:"priority"`
	Status        TaskStatus   `json:"status"`
	CreatedBy     string       `json:"createdBy"`
	Collaborators []string     `json:"collaborators,omitempty"`
	CreatedAt     time.Time    `json:"createdAt"`
}

// Overdue reports whether the task's due date has passed. Comparison is by
// calendar date, not instant, and completed tasks are never overdue.
func (t Task) Overdue(now time.Time) bool {
	if t.Status == StatusCompleted {
		return false
	}
	due := t.DueDate
	dueDay := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return dueDay.Before(today)
}

// Vital reports whether the task needs immediate attention: high priority or
// currently overdue.
func (t Task) Vital(now time.Time) bool {
	return t.Priority == PriorityHigh || t.Overdue(now)
}

// SharedWith reports whether the task was shared with the given principal:
// their email is a collaborator (case-insensitively) and they are not the
// creator. Sharing is additive and explicit; the creator is never an implicit
// collaborator.
func (t Task) SharedWith(s *Session) bool {
	if s == nil || s.Email == "" {
		return false
	}
	if t.CreatedBy != "" && t.CreatedBy == s.UID {
		return false
	}
	email := strings.ToLower(s.Email)
	for _, c := range t.Collaborators {
		if strings.ToLower(c) == email {
			return true
		}
	}
	return false
}

// TaskDraft is a client-constructed, not-yet-persisted task payload.
type TaskDraft struct {
	Title       string       `json:"title"`
	Description string       `json:"description"`
	DueDate     time.Time    `json:"dueDate"`
	Priority    TaskPriority `json:"priority"`
	Status      TaskStatus   `json:"status"`
}

// Normalize fills the defaults the create form applies: medium priority and
// pending status.
func (d *TaskDraft) Normalize() {
	if d.Priority == "" {
		d.Priority = PriorityMedium
	}
	if d.Status == "" {
		d.Status = StatusPending
	}
}

// Validate checks the draft locally, before any request is issued.
func (d TaskDraft) Validate() error {
	if strings.TrimSpace(d.Title) == "" {
		return &ValidationError{Field: "title", Reason: "title must not be empty"}
	}
	if d.DueDate.IsZero() {
		return &ValidationError{Field: "dueDate", Reason: "due date is required"}
	}
	return nil
}

// TaskStats holds the aggregate counts shown on the dashboard. The backend
// computes the authoritative figures; the store derives a local fallback.
type TaskStats struct {
	Total     int `json:"total"`
	Completed int `json:"completed"`
	Pending   int `json:"pending"`
	Overdue   int `json:"overdue"`
}
