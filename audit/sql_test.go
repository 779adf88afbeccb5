package audit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/davecgh/go-spew/spew"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/jmoiron/sqlx"

	"github.com/semanticallynull/sentra-backend/internal/events"
)

func newRepository(t *testing.T) *Repository {
	t.Helper()

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("DATABASE_URL not set")
	}
	db, err := sqlx.Connect("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to connect to database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	r := NewRepository(db)
	if err := r.EnsureSchema(context.Background()); err != nil {
		t.Fatalf("failed to create schema: %v", err)
	}
	if _, err := db.Exec("DELETE FROM ride_events WHERE ride_id LIKE 'REQ-test%'"); err != nil {
		t.Logf("warning: failed to clean ride_events: %v", err)
	}
	return r
}

func TestRepository_PublishAndList(t *testing.T) {
	r := newRepository(t)
	ctx := context.Background()

	at := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	reason := "busy"
	in := []events.Event{
		{Type: events.RideCreated, RideID: "REQ-test1", EnterpriseID: "EMP-001", DriverID: "DRV-001", TripID: "T1", Status: "pending", OccurredAt: at},
		{Type: events.RideRejected, RideID: "REQ-test1", EnterpriseID: "EMP-001", DriverID: "DRV-001", TripID: "T1", Status: "rejected", Reason: &reason, OccurredAt: at.Add(time.Minute)},
	}
	for _, e := range in {
		if err := r.Publish(ctx, e); err != nil {
			t.Fatalf("publish: %v", err)
		}
	}

	got, err := r.ListByRide(ctx, "REQ-test1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 events, got %s", spew.Sdump(got))
	}
	if got[0].Type != events.RideCreated || got[1].Type != events.RideRejected {
		t.Errorf("unexpected order: %s", spew.Sdump(got))
	}
	if got[1].Reason == nil || *got[1].Reason != "busy" {
		t.Errorf("expected reason to round-trip, got %s", spew.Sdump(got[1]))
	}
}

func TestRepository_ListUnknownRide(t *testing.T) {
	r := newRepository(t)

	got, err := r.ListByRide(context.Background(), "REQ-test-missing")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("expected no events, got %d", len(got))
	}
}
