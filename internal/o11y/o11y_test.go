package o11y

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestSetup_LogLevelAndMetrics(t *testing.T) {
	var buf bytes.Buffer
	obs, cleanup, err := Setup(context.Background(), Options{LogLevel: "warn", Output: &buf})
	if err != nil {
		t.Fatalf("setup: %v", err)
	}
	defer cleanup()

	obs.Logger.Info("hidden")
	obs.Logger.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected log output %s", buf.String())
	}

	obs.Metrics.RideTransition("accepted")
	obs.Metrics.LedgerCall("criar_viagem", time.Millisecond, errors.New("down"))

	families, err := obs.Registry.Gather()
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{"ride_transitions_total", "ledger_calls_total"} {
		if !names[want] {
			t.Errorf("expected metric %s, got %v", want, names)
		}
	}
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	m.RideTransition("accepted")
	m.RideRefused("create", "forbidden")
	m.LedgerCall("get_viagem", time.Second, nil)
}
