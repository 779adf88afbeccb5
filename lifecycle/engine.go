// Package lifecycle validates and executes ride request transitions:
//
//	pending -> accepted -> in_progress -> finished
//	pending -> rejected
//
// Each successful transition notifies the counterparty and emits an event.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/semanticallynull/sentra-backend/internal/events"
	"github.com/semanticallynull/sentra-backend/internal/o11y"
	"github.com/semanticallynull/sentra-backend/notification"
	"github.com/semanticallynull/sentra-backend/ride"
	"github.com/semanticallynull/sentra-backend/store"
	"github.com/semanticallynull/sentra-backend/user"
)

// Notifier creates notifications for users.
type Notifier interface {
	CreateNotification(ctx context.Context, userID, typ, title, message string,
		payload map[string]any) notification.Notification
}

type Engine struct {
	st       *store.Store
	notifier Notifier
	sink     events.Sink
	metrics  *o11y.Metrics
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// idAttempts bounds request id allocation when generated ids collide.
const idAttempts = 5

type Option func(*Engine)

// WithEvents publishes every committed transition to sink.
func WithEvents(sink events.Sink) Option {
	return func(e *Engine) { e.sink = sink }
}

func WithMetrics(m *o11y.Metrics) Option {
	return func(e *Engine) { e.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func New(st *store.Store, notifier Notifier, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		st:       st,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
		newID:    shortID,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// CreateRideRequest opens a pending request from enterpriseID to driverID.
// The driver must not already hold an active request.
func (e *Engine) CreateRideRequest(ctx context.Context, enterpriseID, driverID string, trip ride.TripData) (ride.Request, error) {
	enterprise, err := e.userWithRole(enterpriseID, user.Enterprise)
	if err != nil {
		e.metrics.RideRefused("create", reason(err))
		return ride.Request{}, err
	}
	driver, err := e.userWithRole(driverID, user.Driver)
	if err != nil {
		e.metrics.RideRefused("create", reason(err))
		return ride.Request{}, err
	}
	if strings.TrimSpace(trip.TripID) == "" {
		e.metrics.RideRefused("create", "invalid_trip")
		return ride.Request{}, fmt.Errorf("%w: trip id is required", ride.ErrInvalidTrip)
	}
	if len(trip.Route) == 0 {
		e.metrics.RideRefused("create", "invalid_trip")
		return ride.Request{}, fmt.Errorf("%w: route needs at least one waypoint", ride.ErrInvalidTrip)
	}

	trip.Route = ride.PadRoute(trip.Route, ride.MinWaypoints)
	r := ride.Request{
		EnterpriseID: enterprise.ID,
		DriverID:     driver.ID,
		Trip:         trip,
		Status:       ride.StatusPending,
		CreatedAt:    e.now().UTC(),
	}
	for attempt := 1; ; attempt++ {
		r.ID = "REQ-" + e.newID()
		err = e.st.CreateRide(r)
		if !errors.Is(err, store.ErrDuplicateID) {
			break
		}
		if attempt == idAttempts {
			err = fmt.Errorf("allocate ride request id: %d collisions", attempt)
			break
		}
	}
	if err != nil {
		e.metrics.RideRefused("create", reason(err))
		return ride.Request{}, err
	}

	e.notifier.CreateNotification(ctx, driver.ID, notification.TypeRideRequest,
		"New ride request",
		fmt.Sprintf("Enterprise %s sent you a ride request.", enterprise.Name),
		map[string]any{"rideRequestId": r.ID, "enterpriseName": enterprise.Name},
	)
	e.committed(ctx, events.RideCreated, r)
	return r, nil
}

// AcceptRideRequest moves a pending request to accepted. Only the assigned
// driver may accept.
func (e *Engine) AcceptRideRequest(ctx context.Context, requestID, driverID string) (ride.Request, error) {
	r, err := e.transition("accept", requestID, ride.StatusAccepted,
		func(r ride.Request) bool { return r.DriverID == driverID },
		func(r *ride.Request, at time.Time) { r.AcceptedAt = &at },
	)
	if err != nil {
		return ride.Request{}, err
	}

	driverName := e.userName(driverID)
	e.notifier.CreateNotification(ctx, r.EnterpriseID, notification.TypeRideAccepted,
		"Ride accepted",
		fmt.Sprintf("Driver %s accepted ride %s.", driverName, r.ID),
		map[string]any{"rideRequestId": r.ID, "driverName": driverName},
	)
	e.committed(ctx, events.RideAccepted, r)
	return r, nil
}

// RejectRideRequest moves a pending request to rejected, keeping the optional
// reason. Only the assigned driver may reject.
func (e *Engine) RejectRideRequest(ctx context.Context, requestID, driverID string, why *string) (ride.Request, error) {
	r, err := e.transition("reject", requestID, ride.StatusRejected,
		func(r ride.Request) bool { return r.DriverID == driverID },
		func(r *ride.Request, at time.Time) {
			r.RejectedAt = &at
			r.RejectionReason = why
		},
	)
	if err != nil {
		return ride.Request{}, err
	}

	driverName := e.userName(driverID)
	msg := fmt.Sprintf("Driver %s rejected ride %s.", driverName, r.ID)
	payload := map[string]any{"rideRequestId": r.ID, "driverName": driverName, "reason": nil}
	if why != nil && *why != "" {
		msg += " Reason: " + *why
		payload["reason"] = *why
	}
	e.notifier.CreateNotification(ctx, r.EnterpriseID, notification.TypeRideRejected, "Ride rejected", msg, payload)
	e.committed(ctx, events.RideRejected, r)
	return r, nil
}

// StartRide moves an accepted request to in progress. Only the originating
// enterprise may start it. Creating the ledger contract for the trip is left
// to the caller.
func (e *Engine) StartRide(ctx context.Context, requestID, enterpriseID string) (ride.Request, error) {
	r, err := e.transition("start", requestID, ride.StatusInProgress,
		func(r ride.Request) bool { return r.EnterpriseID == enterpriseID },
		func(r *ride.Request, at time.Time) { r.StartedAt = &at },
	)
	if err != nil {
		return ride.Request{}, err
	}

	e.notifier.CreateNotification(ctx, r.DriverID, notification.TypeRideStarted,
		"Ride started",
		fmt.Sprintf("Ride %s has started. You can begin the route.", r.ID),
		map[string]any{"rideRequestId": r.ID, "tripId": r.Trip.TripID},
	)
	e.committed(ctx, events.RideStarted, r)
	return r, nil
}

// FinishRide moves an in-progress request to finished. Only the originating
// enterprise may finish it.
func (e *Engine) FinishRide(ctx context.Context, requestID, enterpriseID string) (ride.Request, error) {
	r, err := e.transition("finish", requestID, ride.StatusFinished,
		func(r ride.Request) bool { return r.EnterpriseID == enterpriseID },
		func(r *ride.Request, at time.Time) { r.FinishedAt = &at },
	)
	if err != nil {
		return ride.Request{}, err
	}

	e.notifier.CreateNotification(ctx, r.DriverID, notification.TypeRideFinished,
		"Ride finished",
		fmt.Sprintf("Ride %s was marked as finished.", r.ID),
		map[string]any{"rideRequestId": r.ID, "tripId": r.Trip.TripID},
	)
	e.committed(ctx, events.RideFinished, r)
	return r, nil
}

// GetRideRequest returns a request visible to callerID: its driver, its
// enterprise or any admin.
func (e *Engine) GetRideRequest(ctx context.Context, requestID, callerID string) (ride.Request, error) {
	r, ok := e.st.GetRide(requestID)
	if !ok {
		return ride.Request{}, ride.ErrNotFound
	}
	caller, ok := e.st.GetUser(callerID)
	if !ok {
		return ride.Request{}, fmt.Errorf("caller %s: %w", callerID, user.ErrNotFound)
	}
	if caller.Role != user.Admin && !r.Involves(caller.ID) {
		return ride.Request{}, ride.ErrForbidden
	}
	return r, nil
}

// ListRideRequestsForUser returns the requests visible to the user's role,
// optionally narrowed to one status, most recent first. Requests created in
// the same instant keep their creation order. Unknown users see nothing.
func (e *Engine) ListRideRequestsForUser(ctx context.Context, userID string, status *ride.Status) []ride.Request {
	u, ok := e.st.GetUser(userID)
	if !ok {
		return []ride.Request{}
	}

	rides := e.st.Rides(func(r ride.Request) bool {
		switch u.Role {
		case user.Driver:
			if r.DriverID != u.ID {
				return false
			}
		case user.Enterprise:
			if r.EnterpriseID != u.ID {
				return false
			}
		case user.Admin:
		default:
			return false
		}
		return status == nil || r.Status == *status
	})

	slices.SortStableFunc(rides, func(a, b ride.Request) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return rides
}

// transition applies the guarded move to status `to` atomically: the request
// must exist, authorised must accept it and the current status must allow
// the move.
func (e *Engine) transition(op, requestID string, to ride.Status,
	authorised func(ride.Request) bool, stamp func(*ride.Request, time.Time)) (ride.Request, error) {
	now := e.now().UTC()
	r, err := e.st.UpdateRide(requestID, func(r *ride.Request) error {
		if !authorised(*r) {
			return ride.ErrForbidden
		}
		if !r.Status.CanTransitionTo(to) {
			return fmt.Errorf("%w: cannot %s request in status %s", ride.ErrInvalidTransition, op, r.Status)
		}
		r.Status = to
		stamp(r, now)
		return nil
	})
	if err != nil {
		e.metrics.RideRefused(op, reason(err))
		return ride.Request{}, err
	}
	return r, nil
}

func (e *Engine) committed(ctx context.Context, typ string, r ride.Request) {
	e.metrics.RideTransition(string(r.Status))
	e.logger.InfoContext(ctx, "ride request transition",
		"rideRequestId", r.ID, "status", r.Status, "enterpriseId", r.EnterpriseID, "driverId", r.DriverID)

	if e.sink == nil {
		return
	}
	err := e.sink.Publish(ctx, events.Event{
		Type:         typ,
		RideID:       r.ID,
		EnterpriseID: r.EnterpriseID,
		DriverID:     r.DriverID,
		TripID:       r.Trip.TripID,
		Status:       string(r.Status),
		Reason:       r.RejectionReason,
		OccurredAt:   e.now().UTC(),
	})
	if err != nil {
		e.logger.ErrorContext(ctx, "failed to publish ride event", "type", typ, "rideRequestId", r.ID, "error", err)
	}
}

func (e *Engine) userWithRole(id string, role user.Role) (user.User, error) {
	u, ok := e.st.GetUser(id)
	if !ok {
		return user.User{}, fmt.Errorf("%s %s: %w", role, id, user.ErrNotFound)
	}
	if !u.Is(role) {
		return user.User{}, fmt.Errorf("%w: %s is not an active %s", ride.ErrInvalidRole, id, role)
	}
	return u, nil
}

func (e *Engine) userName(id string) string {
	if u, ok := e.st.GetUser(id); ok {
		return u.Name
	}
	return id
}

func reason(err error) string {
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, ride.ErrNotFound):
		return "not_found"
	case errors.Is(err, ride.ErrInvalidRole):
		return "invalid_role"
	case errors.Is(err, ride.ErrForbidden):
		return "forbidden"
	case errors.Is(err, ride.ErrInvalidTransition):
		return "invalid_transition"
	case errors.Is(err, ride.ErrConflictActiveRide):
		return "active_ride"
	}
	return "other"
}

func shortID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
