package stream

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/semanticallynull/sentra-backend/notification"
)

type frame struct {
	Type string                    `json:"type"`
	Data notification.Notification `json:"data"`
}

func TestHub_PushReachesConnectedUser(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, r.URL.Query().Get("user"))
	}))
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "?user=DRV-001"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	var hello frame
	if err := conn.ReadJSON(&hello); err != nil {
		t.Fatalf("read hello: %v", err)
	}
	if hello.Type != "connected" {
		t.Fatalf("expected connected frame, got %q", hello.Type)
	}
	if got := hub.Connected("DRV-001"); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}

	hub.Push("DRV-002", notification.Notification{ID: "NOTIF-other"})
	hub.Push("DRV-001", notification.Notification{ID: "NOTIF-1", Type: notification.TypeRideRequest})

	var got frame
	if err := conn.ReadJSON(&got); err != nil {
		t.Fatalf("read: %v", err)
	}
	if got.Type != "notification" || got.Data.ID != "NOTIF-1" {
		t.Errorf("unexpected frame %+v", got)
	}
}

func TestHub_PushWithoutConnectionsIsNoop(t *testing.T) {
	hub := NewHub(slog.New(slog.NewTextHandler(io.Discard, nil)))
	hub.Push("nobody", notification.Notification{ID: "NOTIF-1"})
	if hub.Connected("nobody") != 0 {
		t.Error("expected no connections")
	}
}
