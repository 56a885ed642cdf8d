// Package push subscribes to the real-time notification stream. One channel
// serves one principal: the subscription subject is keyed by the lowercased
// account email, exactly as the backend publishes it.
package push

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/xeno035/todo-list-sync-client/logging"
	"github.com/xeno035/todo-list-sync-client/models"
	"github.com/xeno035/todo-list-sync-client/session"
)

// SubjectPrefix is the subject tree the backend publishes task events under.
const SubjectPrefix = "tasks.events."

// SubjectFor returns the notification subject for a principal email.
func SubjectFor(email string) string {
	return SubjectPrefix + strings.ToLower(email)
}

// Channel is an open push subscription. Events arrive at-least-once and
// unordered relative to REST responses; consumers must apply them
// idempotently and keep a periodic refresh as the correctness backstop.
type Channel struct {
	conn   *nats.Conn
	sub    *nats.Subscription
	events chan models.TaskEvent

	closeOnce sync.Once
	mu        sync.Mutex
	closed    bool
}

// Connect opens the subscription for the identity's current session. The
// bearer token authenticates the connection; reconnect and backoff are the
// transport's concern and show up here only as gaps in delivery.
func Connect(url string, identity *session.Identity) (*Channel, error) {
	s, ok := identity.Current()
	if !ok {
		return nil, &models.AuthorizationError{Op: "push connect"}
	}

	token, err := identity.Token(context.Background())
	if err != nil {
		return nil, &models.AuthorizationError{Op: "push connect"}
	}

	conn, err := nats.Connect(url,
		nats.Token(token),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
	)
	if err != nil {
		return nil, &models.NetworkError{Op: "push connect", Err: err}
	}

	ch := &Channel{
		conn:   conn,
		events: make(chan models.TaskEvent, 64),
	}

	subject := SubjectFor(s.Email)
	sub, err := conn.Subscribe(subject, ch.handleMessage)
	if err != nil {
		conn.Close()
		return nil, &models.NetworkError{Op: "push subscribe", Err: fmt.Errorf("failed to subscribe to %s: %v", subject, err)}
	}
	ch.sub = sub

	logging.Logger.Infof("Event ID: PUSH_CHANNEL_OPEN, Description: Subscribed to task events on subject: %s", subject)
	return ch, nil
}

// Events is the typed stream of task changes. It is closed by Close.
func (c *Channel) Events() <-chan models.TaskEvent {
	return c.events
}

// handleMessage decodes one wire message. Malformed payloads and unknown
// event names are logged and dropped; a full consumer drops the event rather
// than blocking the delivery callback.
func (c *Channel) handleMessage(msg *nats.Msg) {
	var event models.TaskEvent
	if err := json.Unmarshal(msg.Data, &event); err != nil {
		logging.Logger.Warnf("Event ID: PUSH_DECODE_FAILED, Description: Dropping malformed push payload: %v", err)
		return
	}
	if !event.Kind.Known() {
		logging.Logger.Warnf("Event ID: PUSH_UNKNOWN_EVENT, Description: Dropping push event with unknown name: %s", event.Kind)
		return
	}

	// A delivery callback can race a concurrent Close; the closed check and
	// the send stay under one lock so the channel is never written after it
	// closes.
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}

	select {
	case c.events <- event:
	default:
		logging.Logger.Warnf("Event ID: PUSH_BUFFER_FULL, Description: Dropping push event for task %s, consumer too slow", event.Task.ID)
	}
}

// Close releases the subscription and connection exactly once and closes the
// event stream. Safe to call more than once; re-subscribing after a close
// requires a fresh Connect, which keeps duplicate delivery out.
func (c *Channel) Close() {
	c.closeOnce.Do(func() {
		if c.sub != nil {
			_ = c.sub.Unsubscribe()
		}
		c.conn.Close()

		c.mu.Lock()
		c.closed = true
		close(c.events)
		c.mu.Unlock()
		logging.Logger.Info("Event ID: PUSH_CHANNEL_CLOSED, Description: Push subscription released")
	})
}
