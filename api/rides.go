package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/internal/middleware"
	"github.com/semanticallynull/sentra-backend/ride"
)

type createRideRequest struct {
	DriverID string        `json:"driverId" binding:"required"`
	Trip     ride.TripData `json:"tripData"`
}

func (a *API) createRideRequestHandler(c *gin.Context) {
	var req createRideRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	r, err := a.rides.CreateRideRequest(c, caller(c), req.DriverID, req.Trip)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, r)
}

func (a *API) listRideRequestsHandler(c *gin.Context) {
	var status *ride.Status
	if s := c.Query("status"); s != "" {
		st := ride.Status(s)
		if !st.Valid() {
			c.JSON(http.StatusBadRequest, gin.H{"code": "INVALID_REQUEST", "message": "unknown status " + s})
			return
		}
		status = &st
	}

	rides := a.rides.ListRideRequestsForUser(c, caller(c), status)
	c.JSON(http.StatusOK, gin.H{"rideRequests": rides, "total": len(rides)})
}

func (a *API) getRideRequestHandler(c *gin.Context) {
	r, err := a.rides.GetRideRequest(c, c.Param("id"), caller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

func (a *API) acceptRideRequestHandler(c *gin.Context) {
	r, err := a.rides.AcceptRideRequest(c, c.Param("id"), caller(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

type rejectRequest struct {
	Reason *string `json:"reason"`
}

func (a *API) rejectRideRequestHandler(c *gin.Context) {
	var req rejectRequest
	// The body is optional.
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, err)
			return
		}
	}

	r, err := a.rides.RejectRideRequest(c, c.Param("id"), caller(c), req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// startRideHandler starts the ride and then creates the trip's ledger
// contract. The ride stays in progress if the contract cannot be created;
// the failure is reported alongside it.
func (a *API) startRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, err := a.rides.StartRide(c, c.Param("id"), caller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	driver := r.Trip.Driver
	if driver == "" {
		driver = r.DriverID
	}
	rec, err := a.mirror.CreateContract(c, r.Trip.TripID, driver, r.Trip.Route, contract.Authorities{
		Saida:   deref(r.Trip.SaidaCheckpoint),
		Meio:    deref(r.Trip.MeioCheckpoint),
		Chegada: deref(r.Trip.ChegadaCheckpoint),
	})
	if err != nil {
		logger.ErrorContext(c, "ride started without ledger contract", "rideRequestId", r.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"rideRequest": r, "contract": nil, "contractError": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rideRequest": r, "contract": rec})
}

// finishRideHandler finishes the ride and records the arrival on the trip's
// contract when one exists.
func (a *API) finishRideHandler(c *gin.Context) {
	logger := middleware.GetLogger(c)

	r, err := a.rides.FinishRide(c, c.Param("id"), caller(c))
	if err != nil {
		writeError(c, err)
		return
	}

	rec, _, err := a.mirror.UpdateContractStatus(c, r.Trip.TripID, "chegada", "completed", nil)
	switch {
	case errors.Is(err, contract.ErrNotFound):
		c.JSON(http.StatusOK, gin.H{"rideRequest": r, "contract": nil})
	case err != nil:
		logger.ErrorContext(c, "ride finished without ledger arrival", "rideRequestId", r.ID, "error", err)
		c.JSON(http.StatusOK, gin.H{"rideRequest": r, "contract": nil, "contractError": err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{"rideRequest": r, "contract": rec})
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
