// Package dispatch creates and serves per-user notification queues.
//
// The dispatcher is deliberately permissive: notifying an unknown user id
// creates an empty queue on demand, and marking an unknown notification as
// read is a no-op rather than an error.
package dispatch

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/sentra-backend/notification"
	"github.com/semanticallynull/sentra-backend/store"
)

// Pusher delivers a freshly created notification to live connections.
type Pusher interface {
	Push(userID string, n notification.Notification)
}

type Dispatcher struct {
	st     *store.Store
	pusher Pusher
	logger *slog.Logger
	now    func() time.Time
}

type Option func(*Dispatcher)

// WithPusher forwards every created notification to p.
func WithPusher(p Pusher) Option {
	return func(d *Dispatcher) { d.pusher = p }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(d *Dispatcher) { d.now = now }
}

func New(st *store.Store, logger *slog.Logger, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		st:     st,
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(d)
	}
	return d
}

// CreateNotification appends a notification to the user's queue, keeping only
// the notification.MaxPerUser most recent entries. It never fails.
func (d *Dispatcher) CreateNotification(ctx context.Context, userID, typ, title, message string,
	payload map[string]any) notification.Notification {
	if payload == nil {
		payload = map[string]any{}
	}
	n := notification.Notification{
		ID:        "NOTIF-" + shortID(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		Payload:   payload,
		CreatedAt: d.now().UTC(),
	}
	d.st.AppendNotification(n, notification.MaxPerUser)
	d.logger.DebugContext(ctx, "notification created", "userId", userID, "type", typ, "id", n.ID)

	if d.pusher != nil {
		d.pusher.Push(userID, n)
	}
	return n
}

// ListNotifications returns the user's queue, most recent first. Entries
// created in the same instant keep their creation order.
func (d *Dispatcher) ListNotifications(userID string, unreadOnly bool) []notification.Notification {
	q := d.st.Notifications(userID)
	if unreadOnly {
		q = slices.DeleteFunc(q, func(n notification.Notification) bool { return n.Read })
	}
	slices.SortStableFunc(q, func(a, b notification.Notification) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return q
}

// UnreadCount returns how many notifications in the user's queue are unread.
func (d *Dispatcher) UnreadCount(userID string) int {
	var c int
	for _, n := range d.st.Notifications(userID) {
		if !n.Read {
			c++
		}
	}
	return c
}

// MarkRead flags the notification as read. Unknown ids are ignored.
func (d *Dispatcher) MarkRead(userID, notificationID string) {
	if !d.st.MarkNotificationRead(userID, notificationID) {
		d.logger.Debug("mark read: notification not found", "userId", userID, "id", notificationID)
	}
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
