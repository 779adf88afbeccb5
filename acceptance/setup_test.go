package acceptance

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/semanticallynull/sentra-backend/api"
	"github.com/semanticallynull/sentra-backend/contract"
	"github.com/semanticallynull/sentra-backend/dispatch"
	"github.com/semanticallynull/sentra-backend/internal/ledger"
	"github.com/semanticallynull/sentra-backend/internal/o11y"
	"github.com/semanticallynull/sentra-backend/lifecycle"
	"github.com/semanticallynull/sentra-backend/registry"
	"github.com/semanticallynull/sentra-backend/store"
)

type TestServer struct {
	Router *gin.Engine
	Store  *store.Store
	Mirror *contract.Mirror
}

// NewTestServer wires the full API over an in-memory store and a simulated
// ledger, seeded with the demo users.
func NewTestServer(t *testing.T, opts ...func(*api.Options)) *TestServer {
	t.Helper()

	gin.SetMode(gin.TestMode)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	metrics := o11y.NewMetrics(reg)

	st := store.New()
	users := registry.New(st, logger)
	if err := users.SeedDemo(context.Background()); err != nil {
		t.Fatalf("failed to seed users: %v", err)
	}
	notifs := dispatch.New(st, logger)
	rides := lifecycle.New(st, notifs, logger, lifecycle.WithMetrics(metrics))
	mirror := contract.NewMirror(ledger.NewSimulator(nil), logger, contract.WithMetrics(metrics))

	options := api.Options{Logger: logger, Registry: reg}
	for _, o := range opts {
		o(&options)
	}
	a := api.New(api.Services{
		Users:         users,
		Rides:         rides,
		Notifications: notifs,
		Contracts:     mirror,
	}, options)

	return &TestServer{Router: a.Router(), Store: st, Mirror: mirror}
}

func as(userID string) map[string]string {
	return map[string]string{"X-User-ID": userID}
}

func (ts *TestServer) GET(path string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func (ts *TestServer) POST(path string, body interface{}, headers map[string]string) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(http.MethodPost, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	ts.Router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("failed to decode response %q: %v", w.Body.String(), err)
	}
	return v
}

func expectStatus(t *testing.T, w *httptest.ResponseRecorder, want int) {
	t.Helper()
	if w.Code != want {
		t.Fatalf("expected status %d, got %d: %s", want, w.Code, w.Body.String())
	}
}

func expectCode(t *testing.T, w *httptest.ResponseRecorder, status int, code string) {
	t.Helper()
	expectStatus(t, w, status)
	resp := decode[map[string]any](t, w)
	if resp["code"] != code {
		t.Errorf("expected code %s, got %v", code, resp["code"])
	}
}

type tripBody struct {
	TripID string   `json:"tripId"`
	Route  []string `json:"route"`
}

type rideBody struct {
	DriverID string   `json:"driverId"`
	Trip     tripBody `json:"tripData"`
}

type rideResponse struct {
	ID              string  `json:"id"`
	EnterpriseID    string  `json:"enterpriseId"`
	DriverID        string  `json:"driverId"`
	Status          string  `json:"status"`
	RejectionReason *string `json:"rejectionReason"`
	Trip            struct {
		TripID string   `json:"tripId"`
		Route  []string `json:"route"`
	} `json:"tripData"`
}

type contractResponse struct {
	TripID            string `json:"tripId"`
	Status            string `json:"status"`
	SaidaCheckpoint   string `json:"saidaCheckpoint"`
	ChegadaCheckpoint string `json:"chegadaCheckpoint"`
	TransactionHash   string `json:"transactionHash"`
	Checkpoints       []struct {
		Event  string `json:"event"`
		Status string `json:"status"`
	} `json:"checkpoints"`
}

type transitionResponse struct {
	RideRequest   rideResponse      `json:"rideRequest"`
	Contract      *contractResponse `json:"contract"`
	ContractError string            `json:"contractError"`
}

type notificationsResponse struct {
	Notifications []struct {
		ID   string `json:"id"`
		Type string `json:"type"`
		Read bool   `json:"read"`
	} `json:"notifications"`
	Total       int `json:"total"`
	UnreadCount int `json:"unreadCount"`
}

// createRide posts a ride request from EMP-001 and returns it.
func (ts *TestServer) createRide(t *testing.T, driverID, tripID string) rideResponse {
	t.Helper()
	w := ts.POST("/ride-requests", rideBody{DriverID: driverID, Trip: tripBody{TripID: tripID, Route: []string{"Lisboa", "Coimbra", "Porto"}}}, as("EMP-001"))
	expectStatus(t, w, http.StatusCreated)
	return decode[rideResponse](t, w)
}
