package notification

import (
	"maps"
	"time"
)

// Type tags emitted by the ride lifecycle.
const (
	TypeRideRequest  = "ride_request"
	TypeRideAccepted = "ride_accepted"
	TypeRideRejected = "ride_rejected"
	TypeRideStarted  = "ride_started"
	TypeRideFinished = "ride_finished"
)

// MaxPerUser is the number of most recent notifications kept in a user's queue.
const MaxPerUser = 50

type Notification struct {
	ID        string         `json:"id"`
	UserID    string         `json:"userId"`
	Type      string         `json:"type"`
	Title     string         `json:"title"`
	Message   string         `json:"message"`
	Payload   map[string]any `json:"payload"`
	Read      bool           `json:"read"`
	CreatedAt time.Time      `json:"createdAt"`
}

// Clone returns a copy of n with its own payload map. Payload values are
// shared.
func (n Notification) Clone() Notification {
	n.Payload = maps.Clone(n.Payload)
	return n
}
