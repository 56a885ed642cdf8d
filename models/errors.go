package models

import "fmt"

// ValidationError is a client-side failure caught before any request is
// issued: missing title, missing due date, empty invite email.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// NetworkError covers transport failures, 5xx responses and an open circuit
// breaker. The prior local state is always left intact.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: network failure", e.Op)
	}
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// AuthorizationError maps 401/403-class responses, including sharing with an
// invitee the backend refuses.
type AuthorizationError struct {
	Op         string
	StatusCode int
}

func (e *AuthorizationError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s: not authorized", e.Op)
	}
	return fmt.Sprintf("%s: not authorized (status %d)", e.Op, e.StatusCode)
}

// NotFoundError maps 404-class responses, e.g. editing a task someone else
// already deleted.
type NotFoundError struct {
	Resource string
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Resource, e.ID)
}
