// Package audit keeps a durable log of ride lifecycle events in Postgres.
package audit

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/sentra-backend/internal/events"
)

type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, createSchema)
	return err
}

const createSchema = `CREATE TABLE IF NOT EXISTS ride_events (
	id            BIGSERIAL PRIMARY KEY,
	event_type    TEXT        NOT NULL,
	ride_id       TEXT        NOT NULL,
	enterprise_id TEXT        NOT NULL,
	driver_id     TEXT        NOT NULL,
	trip_id       TEXT        NOT NULL,
	status        TEXT        NOT NULL,
	reason        TEXT,
	occurred_at   TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS ride_events_ride_id_idx ON ride_events (ride_id)`

// Publish implements events.Sink.
func (r *Repository) Publish(ctx context.Context, e events.Event) error {
	_, err := r.db.NamedExecContext(ctx, insertEvent, e)
	return err
}

const insertEvent = `INSERT INTO ride_events (event_type, ride_id, enterprise_id, driver_id, trip_id, status, reason, occurred_at)
VALUES (:event_type, :ride_id, :enterprise_id, :driver_id, :trip_id, :status, :reason, :occurred_at)`

// ListByRide returns the events recorded for a ride, oldest first.
func (r *Repository) ListByRide(ctx context.Context, rideID string) ([]events.Event, error) {
	evs := []events.Event{}
	err := r.db.SelectContext(ctx, &evs, listByRide, rideID)
	return evs, err
}

const listByRide = `SELECT event_type, ride_id, enterprise_id, driver_id, trip_id, status, reason, occurred_at
FROM ride_events WHERE ride_id = $1 ORDER BY occurred_at, id`
