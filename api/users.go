package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/semanticallynull/sentra-backend/registry"
	"github.com/semanticallynull/sentra-backend/user"
)

type registerUserRequest struct {
	ID      string `json:"id"`
	Name    string `json:"name" binding:"required"`
	Role    string `json:"role" binding:"required"`
	Contact string `json:"contact"`
}

func (a *API) registerUserHandler(c *gin.Context) {
	var req registerUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	role, err := user.ParseRole(req.Role)
	if err != nil {
		writeError(c, err)
		return
	}

	u, err := a.users.RegisterUser(c, registry.Registration{
		ID:      req.ID,
		Name:    req.Name,
		Role:    role,
		Contact: req.Contact,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, u)
}

func (a *API) getUserHandler(c *gin.Context) {
	u, err := a.users.GetUser(c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}

func (a *API) listUsersHandler(c *gin.Context) {
	role, err := user.ParseRole(c.DefaultQuery("role", "driver"))
	if err != nil {
		writeError(c, err)
		return
	}
	users := a.users.ListUsersByRole(role)
	if users == nil {
		users = []user.User{}
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "total": len(users)})
}

// deactivateUserHandler lets admins deactivate anyone and users deactivate
// themselves.
func (a *API) deactivateUserHandler(c *gin.Context) {
	id := c.Param("id")
	callerID := caller(c)
	if callerID != id {
		u, err := a.users.GetUser(callerID)
		if err != nil || !u.Is(user.Admin) {
			forbidden(c, "only admins can deactivate other users")
			return
		}
	}

	u, err := a.users.DeactivateUser(c, id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, u)
}
