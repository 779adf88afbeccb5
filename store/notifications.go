package store

import (
	"github.com/semanticallynull/sentra-backend/notification"
)

// AppendNotification adds n to its user's queue, creating the queue when the
// user has none, and evicts from the front until at most limit remain.
func (s *Store) AppendNotification(n notification.Notification, limit int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := append(s.notifications[n.UserID], n.Clone())
	if over := len(q) - limit; limit > 0 && over > 0 {
		q = append([]notification.Notification(nil), q[over:]...)
	}
	s.notifications[n.UserID] = q
}

// Notifications returns a copy of the user's queue, oldest first.
func (s *Store) Notifications(userID string) []notification.Notification {
	s.mu.RLock()
	defer s.mu.RUnlock()

	q := s.notifications[userID]
	out := make([]notification.Notification, len(q))
	for i, n := range q {
		out[i] = n.Clone()
	}
	return out
}

// MarkNotificationRead sets read on the first notification in the user's queue
// with the given id. It reports whether one was found.
func (s *Store) MarkNotificationRead(userID, id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	q := s.notifications[userID]
	for i := range q {
		if q[i].ID == id {
			q[i].Read = true
			return true
		}
	}
	return false
}
