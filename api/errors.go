package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/internal/middleware"
	"github.com/semanticallynull/sentra-backend/registry"
	"github.com/semanticallynull/sentra-backend/ride"
	"github.com/semanticallynull/sentra-backend/store"
	"github.com/semanticallynull/sentra-backend/user"
)

// errorStatus maps a domain error to its HTTP status and response code.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, user.ErrNotFound), errors.Is(err, ride.ErrNotFound), errors.Is(err, contract.ErrNotFound):
		return http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, ride.ErrInvalidRole):
		return http.StatusBadRequest, "INVALID_ROLE"
	case errors.Is(err, ride.ErrInvalidTransition):
		return http.StatusBadRequest, "INVALID_TRANSITION"
	case errors.Is(err, ride.ErrConflictActiveRide):
		return http.StatusBadRequest, "ACTIVE_RIDE_CONFLICT"
	case errors.Is(err, ride.ErrInvalidTrip), errors.Is(err, contract.ErrInvalidTrip),
		errors.Is(err, registry.ErrInvalidUser), errors.Is(err, user.ErrUnknownRole):
		return http.StatusBadRequest, "INVALID_REQUEST"
	case errors.Is(err, ride.ErrForbidden):
		return http.StatusForbidden, "FORBIDDEN"
	case errors.Is(err, store.ErrDuplicateID):
		return http.StatusConflict, "DUPLICATE_ID"
	case errors.Is(err, contract.ErrLedgerUnavailable):
		return http.StatusInternalServerError, "LEDGER_UNAVAILABLE"
	}
	return http.StatusInternalServerError, "INTERNAL_ERROR"
}

func writeError(c *gin.Context, err error) {
	logger := middleware.GetLogger(c)
	status, code := errorStatus(err)

	body := gin.H{"code": code, "message": err.Error()}
	if status >= http.StatusInternalServerError {
		logger.ErrorContext(c, "request failed", "error", err)
		if code == "INTERNAL_ERROR" {
			body["message"] = "internal error"
		}
	} else {
		logger.InfoContext(c, "request refused", "code", code, "error", err)
	}
	if id, ok := ride.ActiveRideFromError(err); ok {
		body["activeRideRequestId"] = id
	}
	c.JSON(status, body)
}

func badRequest(c *gin.Context, err error) {
	middleware.GetLogger(c).InfoContext(c, "failed to bind request", "error", err)
	c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": err.Error()})
}

func forbidden(c *gin.Context, msg string) {
	c.JSON(http.StatusForbidden, gin.H{"code": "FORBIDDEN", "message": msg})
}

// caller returns the identity set by middleware.Identity. Routes using it are
// always mounted behind that middleware.
func caller(c *gin.Context) string {
	id, _ := middleware.GetCallerID(c)
	return id
}
