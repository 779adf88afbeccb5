// Package store is the in-memory entity store shared by the lifecycle engine
// and the notification dispatcher. All state lives for the process lifetime.
package store

import (
	"cmp"
	"errors"
	"slices"
	"sync"

	"github.com/semanticallynull/sentra-backend/notification"
	"github.com/semanticallynull/sentra-backend/ride"
	"github.com/semanticallynull/sentra-backend/user"
)

var ErrDuplicateID = errors.New("id already exists")

// Store holds users, ride requests and notification queues keyed by id.
// A single lock guards everything; the zero value is not usable, use New.
type Store struct {
	mu sync.RWMutex

	users map[string]user.User

	rides map[string]*ride.Request
	// rideOrder preserves insertion order for stable listings.
	rideOrder []string

	notifications map[string][]notification.Notification
}

func New() *Store {
	return &Store{
		users:         make(map[string]user.User),
		rides:         make(map[string]*ride.Request),
		notifications: make(map[string][]notification.Notification),
	}
}

// CreateUser registers u. Registering an id twice fails with ErrDuplicateID.
func (s *Store) CreateUser(u user.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[u.ID]; ok {
		return ErrDuplicateID
	}
	s.users[u.ID] = u
	if _, ok := s.notifications[u.ID]; !ok {
		s.notifications[u.ID] = nil
	}
	return nil
}

// GetUser returns the user and whether it exists.
func (s *Store) GetUser(id string) (user.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	return u, ok
}

// UsersByRole returns active users holding role r, ordered by id.
func (s *Store) UsersByRole(r user.Role) []user.User {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []user.User
	for _, u := range s.users {
		if u.Is(r) {
			out = append(out, u)
		}
	}
	slices.SortFunc(out, func(a, b user.User) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// SetUserActive flips the active flag of an existing user.
func (s *Store) SetUserActive(id string, active bool) (user.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return user.User{}, user.ErrNotFound
	}
	u.Active = active
	s.users[id] = u
	return u, nil
}
