package ledger

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Simulator is a deterministic in-memory ledger used when no contract is
// configured. Checkpoint calls take their resulting status from the
// "status" parameter rather than from the function invoked:
//
//	ok -> EmAndamento, checkpoint -> PontoIntermediario,
//	completed|delivered -> Finalizada, anything else leaves it unchanged.
type Simulator struct {
	mu    sync.Mutex
	now   func() time.Time
	seq   int
	trips map[string]*simulatedTrip
	admin string
}

type simulatedTrip struct {
	status  TripStatus
	saida   string
	meio    string
	chegada string
}

func NewSimulator(now func() time.Time) *Simulator {
	if now == nil {
		now = time.Now
	}
	return &Simulator{
		now:   now,
		trips: make(map[string]*simulatedTrip),
	}
}

func (s *Simulator) Mode() string { return "simulation" }

var simulatedStatus = map[string]TripStatus{
	"ok":         StatusEmAndamento,
	"checkpoint": StatusPontoIntermediario,
	"completed":  StatusFinalizada,
	"delivered":  StatusFinalizada,
}

func (s *Simulator) Invoke(ctx context.Context, op Operation, params Params) (Receipt, error) {
	if err := ctx.Err(); err != nil {
		return Receipt{}, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	ts := s.now().Unix()
	tripID := params.String("trip_id")

	switch op {
	case OpCreateTrip:
		s.trips[tripID] = &simulatedTrip{
			status:  StatusPendente,
			saida:   params.String("saida_checkpoint"),
			meio:    params.String("meio_checkpoint"),
			chegada: params.String("chegada_checkpoint"),
		}
		return Receipt{
			TxHash:          fmt.Sprintf("SIMULATED_TX_%s_%d", tripID, ts),
			ContractAddress: fmt.Sprintf("SIMULATED_CONTRACT_%s_%d", tripID, ts),
			Status:          StatusPendente,
		}, nil

	case OpMarkDeparture, OpMarkMidpoint, OpMarkArrival, OpRecordEvent:
		t, ok := s.trips[tripID]
		if !ok {
			return Receipt{}, fmt.Errorf("%w: %s", ErrTripNotFound, tripID)
		}
		if next, ok := simulatedStatus[params.String("status")]; ok {
			t.status = next
		}
		return Receipt{
			TxHash: fmt.Sprintf("SIMULATED_TX_%s_%s_%d_%d", tripID, params.String("event"), ts, s.seq),
			Status: t.status,
		}, nil

	case OpInitialize:
		s.admin = params.String("admin")
		return Receipt{TxHash: fmt.Sprintf("SIMULATED_TX_initialize_%d_%d", ts, s.seq)}, nil
	}

	return Receipt{}, fmt.Errorf("%w: %s", ErrNoFunction, op)
}

func (s *Simulator) Query(ctx context.Context, op Operation, params Params) (Params, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCallFailed, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	switch op {
	case OpGetTrip:
		tripID := params.String("trip_id")
		t, ok := s.trips[tripID]
		if !ok {
			return nil, nil
		}
		return Params{
			"trip_id":            tripID,
			"status":             string(t.status),
			"saida_checkpoint":   t.saida,
			"meio_checkpoint":    t.meio,
			"chegada_checkpoint": t.chegada,
		}, nil
	case OpGetAdmin:
		if s.admin == "" {
			return nil, nil
		}
		return Params{"admin": s.admin}, nil
	}
	return nil, fmt.Errorf("%w: %s", ErrNoFunction, op)
}
