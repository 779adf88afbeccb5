package dispatch

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/semanticallynull/sentra-backend/notification"
	"github.com/semanticallynull/sentra-backend/store"
)

type recordingPusher struct {
	pushed []string
}

func (p *recordingPusher) Push(userID string, n notification.Notification) {
	p.pushed = append(p.pushed, userID+"/"+n.ID)
}

func newDispatcher(opts ...Option) *Dispatcher {
	return New(store.New(), slog.New(slog.NewTextHandler(io.Discard, nil)), opts...)
}

func TestCreateNotification_CapsQueue(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := newDispatcher(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	for i := range 60 {
		clock = clock.Add(time.Second)
		d.CreateNotification(ctx, "DRV-001", notification.TypeRideRequest, "t", fmt.Sprintf("msg %d", i), nil)
	}

	got := d.ListNotifications("DRV-001", false)
	if len(got) != notification.MaxPerUser {
		t.Fatalf("expected %d notifications, got %d", notification.MaxPerUser, len(got))
	}
	if got[0].Message != "msg 59" || got[len(got)-1].Message != "msg 10" {
		t.Errorf("expected msg 59..msg 10, got %q..%q", got[0].Message, got[len(got)-1].Message)
	}
}

func TestCreateNotification_AutoVivifies(t *testing.T) {
	d := newDispatcher()
	n := d.CreateNotification(context.Background(), "ghost", notification.TypeRideStarted, "t", "m", nil)

	if n.Payload == nil {
		t.Error("expected empty payload, got nil")
	}
	if len(n.ID) != len("NOTIF-")+8 {
		t.Errorf("unexpected id %q", n.ID)
	}
	if got := d.ListNotifications("ghost", false); len(got) != 1 {
		t.Errorf("expected queue to be created for unknown user, got %d entries", len(got))
	}
}

func TestListNotifications_StableWithinInstant(t *testing.T) {
	clock := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	d := newDispatcher(WithClock(func() time.Time { return clock }))
	ctx := context.Background()

	a := d.CreateNotification(ctx, "U", "x", "a", "a", nil)
	b := d.CreateNotification(ctx, "U", "x", "b", "b", nil)
	clock = clock.Add(time.Minute)
	c := d.CreateNotification(ctx, "U", "x", "c", "c", nil)

	got := d.ListNotifications("U", false)
	want := []string{c.ID, a.ID, b.ID}
	for i := range want {
		if got[i].ID != want[i] {
			t.Fatalf("position %d: expected %s, got %s", i, want[i], got[i].ID)
		}
	}
}

func TestMarkRead(t *testing.T) {
	d := newDispatcher()
	ctx := context.Background()
	n1 := d.CreateNotification(ctx, "U", "x", "1", "1", nil)
	d.CreateNotification(ctx, "U", "x", "2", "2", nil)

	d.MarkRead("U", n1.ID)
	d.MarkRead("U", "NOTIF-missing")
	d.MarkRead("nobody", n1.ID)

	if got := d.UnreadCount("U"); got != 1 {
		t.Errorf("expected 1 unread, got %d", got)
	}
	unread := d.ListNotifications("U", true)
	if len(unread) != 1 || unread[0].ID == n1.ID {
		t.Errorf("expected only the second notification unread, got %+v", unread)
	}
	if all := d.ListNotifications("U", false); len(all) != 2 {
		t.Errorf("unread filter must not change the queue, got %d", len(all))
	}
}

func TestCreateNotification_Pushes(t *testing.T) {
	p := &recordingPusher{}
	d := newDispatcher(WithPusher(p))

	n := d.CreateNotification(context.Background(), "EMP-001", notification.TypeRideAccepted, "t", "m", nil)

	if len(p.pushed) != 1 || p.pushed[0] != "EMP-001/"+n.ID {
		t.Errorf("unexpected pushes %v", p.pushed)
	}
}
