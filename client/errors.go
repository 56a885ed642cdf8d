package client

import (
	"errors"
	"strings"

	"github.com/xeno035/todo-list-sync-client/models"
)

// mapError normalizes a breaker result into the shared taxonomy. Typed
// authorization and not-found errors pass through untouched; transport
// failures, 5xx responses and an open breaker all become NetworkError.
func mapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var authErr *models.AuthorizationError
	if errors.As(err, &authErr) {
		return authErr
	}
	var notFound *models.NotFoundError
	if errors.As(err, &notFound) {
		return notFound
	}

	return &models.NetworkError{Op: op, Err: err}
}

// lastSegment extracts the trailing path element, used to name the missing
// resource in NotFoundError.
func lastSegment(path string) string {
	idx := strings.LastIndex(path, "/")
	if idx < 0 || idx == len(path)-1 {
		return path
	}
	return path[idx+1:]
}
