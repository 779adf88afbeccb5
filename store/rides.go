package store

import (
	"github.com/semanticallynull/sentra-backend/ride"
)

// CreateRide inserts r after checking, under the same lock, that r's driver
// holds no other active request. The check and the insert are atomic with
// respect to concurrent CreateRide calls.
func (s *Store) CreateRide(r ride.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.rides[r.ID]; ok {
		return ErrDuplicateID
	}
	if active, ok := s.activeRideLocked(r.DriverID); ok {
		return ride.NewActiveRideError(r.DriverID, active.ID)
	}

	stored := r.Clone()
	s.rides[r.ID] = &stored
	s.rideOrder = append(s.rideOrder, r.ID)
	return nil
}

func (s *Store) activeRideLocked(driverID string) (*ride.Request, bool) {
	for _, id := range s.rideOrder {
		r := s.rides[id]
		if r.DriverID == driverID && r.Status.Active() {
			return r, true
		}
	}
	return nil, false
}

// ActiveRide returns the driver's active request, if any.
func (s *Store) ActiveRide(driverID string) (ride.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.activeRideLocked(driverID)
	if !ok {
		return ride.Request{}, false
	}
	return r.Clone(), true
}

// GetRide returns a copy of the request and whether it exists.
func (s *Store) GetRide(id string) (ride.Request, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	r, ok := s.rides[id]
	if !ok {
		return ride.Request{}, false
	}
	return r.Clone(), true
}

// UpdateRide runs fn on the stored request while holding the write lock. If fn
// returns an error nothing is committed. The committed request is returned.
func (s *Store) UpdateRide(id string, fn func(r *ride.Request) error) (ride.Request, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.rides[id]
	if !ok {
		return ride.Request{}, ride.ErrNotFound
	}

	working := stored.Clone()
	if err := fn(&working); err != nil {
		return ride.Request{}, err
	}
	*stored = working
	return working.Clone(), nil
}

// Rides returns every request accepted by keep, in insertion order.
func (s *Store) Rides(keep func(r ride.Request) bool) []ride.Request {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]ride.Request, 0, len(s.rideOrder))
	for _, id := range s.rideOrder {
		r := s.rides[id].Clone()
		if keep == nil || keep(r) {
			out = append(out, r)
		}
	}
	return out
}
