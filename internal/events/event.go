// Package events carries ride lifecycle events out of the process.
package events

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// Event types, one per lifecycle transition.
const (
	RideCreated  = "ride.created"
	RideAccepted = "ride.accepted"
	RideRejected = "ride.rejected"
	RideStarted  = "ride.started"
	RideFinished = "ride.finished"
)

type Event struct {
	Type         string    `json:"type" db:"event_type"`
	RideID       string    `json:"rideId" db:"ride_id"`
	EnterpriseID string    `json:"enterpriseId" db:"enterprise_id"`
	DriverID     string    `json:"driverId" db:"driver_id"`
	TripID       string    `json:"tripId" db:"trip_id"`
	Status       string    `json:"status" db:"status"`
	Reason       *string   `json:"reason,omitempty" db:"reason"`
	OccurredAt   time.Time `json:"occurredAt" db:"occurred_at"`
}

// Sink receives lifecycle events. Implementations may perform I/O and must
// be safe for concurrent use.
type Sink interface {
	Publish(ctx context.Context, e Event) error
}

// Fanout publishes every event to all of its sinks.
type Fanout []Sink

func (f Fanout) Publish(ctx context.Context, e Event) error {
	var errs []error
	for _, s := range f {
		if err := s.Publish(ctx, e); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes events to a structured logger.
type LogSink struct {
	Logger *slog.Logger
}

func (l LogSink) Publish(ctx context.Context, e Event) error {
	l.Logger.InfoContext(ctx, "ride event",
		slog.String("type", e.Type),
		slog.String("rideId", e.RideID),
		slog.String("status", e.Status),
	)
	return nil
}
