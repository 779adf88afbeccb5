package ride

import (
	"errors"
)

var (
	ErrNotFound          = errors.New("ride request not found")
	ErrInvalidRole       = errors.New("user does not hold the required role")
	ErrInvalidTransition = errors.New("invalid ride status transition")
	ErrForbidden         = errors.New("caller is not authorised for this ride request")
	// ErrConflictActiveRide is returned when a driver already holds a pending, accepted or in-progress request.
	ErrConflictActiveRide = errors.New("driver already has an active ride")
	ErrInvalidTrip        = errors.New("invalid trip data")
)

type activeRideError struct {
	driverID  string
	requestID string
}

func (e *activeRideError) Error() string {
	return "driver " + e.driverID + " already has an active ride: " + e.requestID
}

func (e *activeRideError) Is(target error) bool {
	return target == ErrConflictActiveRide
}

// NewActiveRideError reports that driverID is already bound to requestID.
func NewActiveRideError(driverID, requestID string) error {
	return &activeRideError{driverID: driverID, requestID: requestID}
}

// ActiveRideFromError returns the id of the request blocking the driver.
func ActiveRideFromError(err error) (string, bool) {
	var are *activeRideError
	if errors.As(err, &are) {
		return are.requestID, true
	}
	return "", false
}
