package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/user"
)

type createContractRequest struct {
	TripID            string   `json:"tripId" binding:"required"`
	Driver            string   `json:"driver" binding:"required"`
	Route             []string `json:"route" binding:"required"`
	SaidaCheckpoint   string   `json:"saidaCheckpoint"`
	MeioCheckpoint    string   `json:"meioCheckpoint"`
	ChegadaCheckpoint string   `json:"chegadaCheckpoint"`
}

func (a *API) createContractHandler(c *gin.Context) {
	var req createContractRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	rec, err := a.mirror.CreateContract(c, req.TripID, req.Driver, req.Route, contract.Authorities{
		Saida:   req.SaidaCheckpoint,
		Meio:    req.MeioCheckpoint,
		Chegada: req.ChegadaCheckpoint,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}

type checkpointRequest struct {
	Event    string  `json:"event" binding:"required"`
	Status   string  `json:"status" binding:"required"`
	Location *string `json:"location"`
}

type checkpointResponse struct {
	Contract        contract.Record `json:"contract"`
	TransactionHash string          `json:"transactionHash"`
}

func (a *API) updateContractHandler(c *gin.Context) {
	var req checkpointRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	a.recordCheckpoint(c, req)
}

// checkpointHandler records a fixed event/status pair, optionally with a
// location.
func (a *API) checkpointHandler(event, status string) gin.HandlerFunc {
	return func(c *gin.Context) {
		var body struct {
			Location *string `json:"location"`
		}
		if c.Request.ContentLength > 0 {
			if err := c.ShouldBindJSON(&body); err != nil {
				badRequest(c, err)
				return
			}
		}
		a.recordCheckpoint(c, checkpointRequest{Event: event, Status: status, Location: body.Location})
	}
}

func (a *API) recordCheckpoint(c *gin.Context, req checkpointRequest) {
	rec, hash, err := a.mirror.UpdateContractStatus(c, c.Param("tripId"), req.Event, req.Status, req.Location)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, checkpointResponse{Contract: rec, TransactionHash: hash})
}

func (a *API) getContractHandler(c *gin.Context) {
	rec, err := a.mirror.GetContractStatus(c, c.Param("tripId"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, rec)
}

func (a *API) contractHistoryHandler(c *gin.Context) {
	tripID := c.Param("tripId")
	history := a.mirror.GetContractHistory(c, tripID)
	c.JSON(http.StatusOK, gin.H{"tripId": tripID, "checkpoints": history, "total": len(history)})
}

type initializeRequest struct {
	Admin string `json:"admin" binding:"required"`
}

func (a *API) initializeContractHandler(c *gin.Context) {
	if !a.isAdmin(c) {
		forbidden(c, "only admins can initialize the contract")
		return
	}
	var req initializeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	hash, err := a.mirror.Initialize(c, req.Admin)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": req.Admin, "transactionHash": hash})
}

func (a *API) contractAdminHandler(c *gin.Context) {
	admin, err := a.mirror.Admin(c)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"admin": admin})
}

func (a *API) isAdmin(c *gin.Context) bool {
	u, err := a.users.GetUser(caller(c))
	return err == nil && u.Is(user.Admin)
}
