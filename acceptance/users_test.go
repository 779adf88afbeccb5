package acceptance

import (
	"net/http"
	"strings"
	"testing"
)

type userResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Role   string `json:"role"`
	Active bool   `json:"active"`
}

func TestRegisterUser(t *testing.T) {
	ts := NewTestServer(t)

	w := ts.POST("/users", map[string]string{"name": "Pedro Costa", "role": "driver", "contact": "pedro@example.com"}, nil)
	expectStatus(t, w, http.StatusCreated)
	u := decode[userResponse](t, w)
	if !strings.HasPrefix(u.ID, "DRIVER-") || u.Role != "driver" || !u.Active {
		t.Errorf("unexpected user %+v", u)
	}

	expectCode(t, ts.POST("/users", map[string]string{"id": "DRV-001", "name": "Dup", "role": "driver"}, nil), http.StatusConflict, "DUPLICATE_ID")
	expectCode(t, ts.POST("/users", map[string]string{"name": "X", "role": "pilot"}, nil), http.StatusBadRequest, "INVALID_REQUEST")
	expectCode(t, ts.POST("/users", map[string]string{"role": "driver"}, nil), http.StatusBadRequest, "INVALID_REQUEST")
}

func TestListAndGetUsers(t *testing.T) {
	ts := NewTestServer(t)

	type listResponse struct {
		Users []userResponse `json:"users"`
		Total int            `json:"total"`
	}
	got := decode[listResponse](t, ts.GET("/users?role=driver", as("EMP-001")))
	if got.Total != 2 || got.Users[0].ID != "DRV-001" || got.Users[1].ID != "DRV-002" {
		t.Errorf("unexpected drivers %+v", got)
	}

	w := ts.GET("/users/EMP-001", as("DRV-001"))
	expectStatus(t, w, http.StatusOK)
	if u := decode[userResponse](t, w); u.Name != "TransLog Empresa" || u.Role != "enterprise" {
		t.Errorf("unexpected user %+v", u)
	}
	expectCode(t, ts.GET("/users/NOPE", as("DRV-001")), http.StatusNotFound, "NOT_FOUND")
}

func TestDeactivateUser(t *testing.T) {
	ts := NewTestServer(t)

	expectCode(t, ts.POST("/users/DRV-002/deactivate", nil, as("DRV-001")), http.StatusForbidden, "FORBIDDEN")

	w := ts.POST("/users/DRV-002/deactivate", nil, as("ADM-001"))
	expectStatus(t, w, http.StatusOK)
	if u := decode[userResponse](t, w); u.Active {
		t.Errorf("expected inactive user, got %+v", u)
	}

	// Inactive drivers cannot receive new requests.
	w = ts.POST("/ride-requests", rideBody{DriverID: "DRV-002", Trip: tripBody{TripID: "T", Route: []string{"A"}}}, as("EMP-001"))
	expectCode(t, w, http.StatusBadRequest, "INVALID_ROLE")

	// Users may deactivate themselves.
	expectStatus(t, ts.POST("/users/DRV-001/deactivate", nil, as("DRV-001")), http.StatusOK)
}
