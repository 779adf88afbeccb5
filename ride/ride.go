// Package ride models a ride request negotiated between an enterprise and a driver.
package ride

import (
	"slices"
	"time"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusAccepted   Status = "accepted"
	StatusRejected   Status = "rejected"
	StatusInProgress Status = "in_progress"
	StatusFinished   Status = "finished"
	// StatusCancelled is a valid terminal state but no operation produces it yet.
	StatusCancelled Status = "cancelled"
)

var transitions = map[Status][]Status{
	StatusPending:    {StatusAccepted, StatusRejected},
	StatusAccepted:   {StatusInProgress, StatusCancelled},
	StatusInProgress: {StatusFinished, StatusCancelled},
}

// CanTransitionTo reports whether next is a legal successor of s.
func (s Status) CanTransitionTo(next Status) bool {
	return slices.Contains(transitions[s], next)
}

// Active reports whether a request in this status counts against the driver's
// single active ride.
func (s Status) Active() bool {
	return s == StatusPending || s == StatusAccepted || s == StatusInProgress
}

// Terminal reports whether no transition leaves s.
func (s Status) Terminal() bool {
	return len(transitions[s]) == 0
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusAccepted, StatusRejected, StatusInProgress, StatusFinished, StatusCancelled:
		return true
	}
	return false
}

// Request is a ride request. It is created by an enterprise, mutated only
// through lifecycle transitions and never deleted.
type Request struct {
	ID           string   `json:"id"`
	EnterpriseID string   `json:"enterpriseId"`
	DriverID     string   `json:"driverId"`
	Trip         TripData `json:"tripData"`
	Status       Status   `json:"status"`

	CreatedAt  time.Time  `json:"createdAt"`
	AcceptedAt *time.Time `json:"acceptedAt,omitempty"`
	RejectedAt *time.Time `json:"rejectedAt,omitempty"`
	StartedAt  *time.Time `json:"startedAt,omitempty"`
	FinishedAt *time.Time `json:"finishedAt,omitempty"`

	RejectionReason *string `json:"rejectionReason,omitempty"`
}

// Clone returns a copy of r that shares no memory with it.
func (r Request) Clone() Request {
	r.Trip = r.Trip.Clone()
	r.AcceptedAt = clonePtr(r.AcceptedAt)
	r.RejectedAt = clonePtr(r.RejectedAt)
	r.StartedAt = clonePtr(r.StartedAt)
	r.FinishedAt = clonePtr(r.FinishedAt)
	r.RejectionReason = clonePtr(r.RejectionReason)
	return r
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Involves reports whether the request names userID as driver or enterprise.
func (r Request) Involves(userID string) bool {
	return r.DriverID == userID || r.EnterpriseID == userID
}
