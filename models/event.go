package models

// EventKind names the push notification kinds. Values match the event names
// the backend emits on the notification channel.
type EventKind string

const (
	EventTaskCreated EventKind = "taskCreated"
	EventTaskUpdated EventKind = "taskUpdated"
	EventTaskDeleted EventKind = "taskDeleted"
	EventTaskShared  EventKind = "task-shared"
)

// Known reports whether the kind is one the client understands. Unknown kinds
// are dropped at the channel boundary.
func (k EventKind) Known() bool {
	switch k {
	case EventTaskCreated, EventTaskUpdated, EventTaskDeleted, EventTaskShared:
		return true
	}
	return false
}

// TaskEvent is a task change delivered over the push channel. Delivery is
// at-least-once and unordered relative to REST responses, so applying an
// event must stay idempotent.
type TaskEvent struct {
	Kind EventKind `json:"event"`
	Task Task      `json:"task"`
}
