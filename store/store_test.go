package store

import (
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/semanticallynull/sentra-backend/notification"
	"github.com/semanticallynull/sentra-backend/ride"
	"github.com/semanticallynull/sentra-backend/user"
)

func TestCreateUser_RejectsDuplicateID(t *testing.T) {
	s := New()
	u := user.User{ID: "DRV-001", Name: "João Silva", Role: user.Driver, Active: true}

	if err := s.CreateUser(u); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	u.Name = "Someone else"
	if err := s.CreateUser(u); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}

	got, ok := s.GetUser("DRV-001")
	if !ok || got.Name != "João Silva" {
		t.Errorf("expected original user to be kept, got %+v", got)
	}
}

func TestGetUser_Absent(t *testing.T) {
	s := New()
	if _, ok := s.GetUser("nope"); ok {
		t.Error("expected absent user")
	}
}

func TestCreateRide_OneActivePerDriver(t *testing.T) {
	s := New()
	first := ride.Request{ID: "REQ-1", DriverID: "DRV-001", Status: ride.StatusPending}
	if err := s.CreateRide(first); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	err := s.CreateRide(ride.Request{ID: "REQ-2", DriverID: "DRV-001", Status: ride.StatusPending})
	if !errors.Is(err, ride.ErrConflictActiveRide) {
		t.Fatalf("expected ErrConflictActiveRide, got %v", err)
	}
	if id, ok := ride.ActiveRideFromError(err); !ok || id != "REQ-1" {
		t.Errorf("expected blocking request REQ-1, got %q", id)
	}

	// Once the first request is terminal the driver is free again.
	if _, err := s.UpdateRide("REQ-1", func(r *ride.Request) error {
		r.Status = ride.StatusRejected
		return nil
	}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := s.CreateRide(ride.Request{ID: "REQ-3", DriverID: "DRV-001", Status: ride.StatusPending}); err != nil {
		t.Errorf("expected driver to be free, got %v", err)
	}
}

func TestCreateRide_DuplicateID(t *testing.T) {
	s := New()
	r := ride.Request{ID: "REQ-1", DriverID: "DRV-001", Status: ride.StatusFinished}
	if err := s.CreateRide(r); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	r.DriverID = "DRV-002"
	if err := s.CreateRide(r); !errors.Is(err, ErrDuplicateID) {
		t.Errorf("expected ErrDuplicateID, got %v", err)
	}
}

func TestCreateRide_ConcurrentSameDriver(t *testing.T) {
	s := New()

	const n = 50
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = s.CreateRide(ride.Request{
				ID:       fmt.Sprintf("REQ-%d", i),
				DriverID: "DRV-001",
				Status:   ride.StatusPending,
			})
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ride.ErrConflictActiveRide):
			conflicts++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != n-1 {
		t.Errorf("expected 1 success and %d conflicts, got %d and %d", n-1, ok, conflicts)
	}
}

func TestUpdateRide(t *testing.T) {
	s := New()
	if err := s.CreateRide(ride.Request{ID: "REQ-1", DriverID: "DRV-001", Status: ride.StatusPending}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	boom := errors.New("boom")
	if _, err := s.UpdateRide("REQ-1", func(r *ride.Request) error {
		r.Status = ride.StatusAccepted
		return boom
	}); !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}
	if r, _ := s.GetRide("REQ-1"); r.Status != ride.StatusPending {
		t.Errorf("failed update must not commit, got status %s", r.Status)
	}

	if _, err := s.UpdateRide("REQ-404", func(*ride.Request) error { return nil }); !errors.Is(err, ride.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestRides_InsertionOrder(t *testing.T) {
	s := New()
	for i, d := range []string{"DRV-1", "DRV-2", "DRV-3"} {
		if err := s.CreateRide(ride.Request{ID: fmt.Sprintf("REQ-%d", i), DriverID: d, Status: ride.StatusPending}); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	got := s.Rides(func(r ride.Request) bool { return r.DriverID != "DRV-2" })
	if len(got) != 2 || got[0].ID != "REQ-0" || got[1].ID != "REQ-2" {
		t.Errorf("unexpected rides %+v", got)
	}
}

func TestAppendNotification_EvictsOldest(t *testing.T) {
	s := New()
	for i := range 60 {
		s.AppendNotification(notification.Notification{
			ID:        fmt.Sprintf("NOTIF-%02d", i),
			UserID:    "DRV-001",
			CreatedAt: time.Unix(int64(i), 0),
		}, notification.MaxPerUser)
	}

	q := s.Notifications("DRV-001")
	if len(q) != notification.MaxPerUser {
		t.Fatalf("expected %d notifications, got %d", notification.MaxPerUser, len(q))
	}
	if q[0].ID != "NOTIF-10" || q[len(q)-1].ID != "NOTIF-59" {
		t.Errorf("expected NOTIF-10..NOTIF-59, got %s..%s", q[0].ID, q[len(q)-1].ID)
	}
}

func TestMarkNotificationRead(t *testing.T) {
	s := New()
	s.AppendNotification(notification.Notification{ID: "N1", UserID: "U"}, 50)

	if s.MarkNotificationRead("U", "missing") {
		t.Error("expected missing notification to report false")
	}
	if !s.MarkNotificationRead("U", "N1") {
		t.Fatal("expected N1 to be found")
	}
	if q := s.Notifications("U"); !q[0].Read {
		t.Error("expected N1 to be read")
	}
}

func TestRides_ReturnCopies(t *testing.T) {
	s := New()
	reason := "busy"
	in := ride.Request{
		ID:              "REQ-1",
		DriverID:        "DRV-001",
		Status:          ride.StatusPending,
		Trip:            ride.TripData{TripID: "T1", Route: []string{"A", "B", "C"}},
		RejectionReason: &reason,
	}
	if err := s.CreateRide(in); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	in.Trip.Route[0] = "caller"

	got, _ := s.GetRide("REQ-1")
	got.Trip.Route[1] = "get"
	*got.RejectionReason = "get"

	listed := s.Rides(nil)
	listed[0].Trip.Route[2] = "list"

	updated, err := s.UpdateRide("REQ-1", func(r *ride.Request) error { return nil })
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	updated.Trip.Route[0] = "update"

	r, _ := s.GetRide("REQ-1")
	if r.Trip.Route[0] != "A" || r.Trip.Route[1] != "B" || r.Trip.Route[2] != "C" {
		t.Errorf("stored route changed through a copy: %v", r.Trip.Route)
	}
	if *r.RejectionReason != "busy" {
		t.Errorf("stored reason changed through a copy: %q", *r.RejectionReason)
	}
}

func TestNotifications_ReturnCopies(t *testing.T) {
	s := New()
	payload := map[string]any{"rideRequestId": "REQ-1"}
	s.AppendNotification(notification.Notification{ID: "N1", UserID: "U", Payload: payload}, 50)
	payload["rideRequestId"] = "caller"

	q := s.Notifications("U")
	q[0].Payload["rideRequestId"] = "list"

	if got := s.Notifications("U")[0].Payload["rideRequestId"]; got != "REQ-1" {
		t.Errorf("stored payload changed through a copy: %v", got)
	}
}
