// Package ledger talks to the smart contract that mirrors trip progress.
package ledger

import (
	"context"
	"errors"
)

var (
	// ErrNoFunction is returned by Invoke for operations with no on-ledger function.
	ErrNoFunction = errors.New("operation has no ledger function")
	// ErrCallFailed wraps any failed or rejected ledger call.
	ErrCallFailed = errors.New("ledger call failed")
	// ErrTripNotFound is returned when the ledger has no trip with the given id.
	ErrTripNotFound = errors.New("trip not found on ledger")
)

// TripStatus is the status held by the contract for a trip.
type TripStatus string

const (
	StatusPendente           TripStatus = "Pendente"
	StatusEmAndamento        TripStatus = "EmAndamento"
	StatusPontoIntermediario TripStatus = "PontoIntermediario"
	StatusFinalizada         TripStatus = "Finalizada"
)

type Operation int

const (
	OpCreateTrip Operation = iota + 1
	OpMarkDeparture
	OpMarkMidpoint
	OpMarkArrival
	// OpRecordEvent is a checkpoint with no matching contract function.
	OpRecordEvent
	OpGetTrip
	OpInitialize
	OpGetAdmin
)

var functions = map[Operation]string{
	OpCreateTrip:    "criar_viagem",
	OpMarkDeparture: "marcar_saida",
	OpMarkMidpoint:  "marcar_meio",
	OpMarkArrival:   "marcar_chegada",
	OpGetTrip:       "get_viagem",
	OpInitialize:    "initialize",
	OpGetAdmin:      "get_admin",
}

// statusAfter is the trip status the contract holds after a successful call.
var statusAfter = map[Operation]TripStatus{
	OpCreateTrip:    StatusPendente,
	OpMarkDeparture: StatusEmAndamento,
	OpMarkMidpoint:  StatusPontoIntermediario,
	OpMarkArrival:   StatusFinalizada,
}

// Function returns the contract function name for o.
func (o Operation) Function() (string, bool) {
	fn, ok := functions[o]
	return fn, ok
}

func (o Operation) String() string {
	if fn, ok := functions[o]; ok {
		return fn
	}
	if o == OpRecordEvent {
		return "record_event"
	}
	return "unknown"
}

// Params are the named arguments of a ledger call.
type Params map[string]any

// String returns the string value stored under key, or "".
func (p Params) String(key string) string {
	s, _ := p[key].(string)
	return s
}

// Receipt describes the outcome of a state-changing call.
type Receipt struct {
	TxHash          string
	ContractAddress string
	// Status is the trip status after the call, or "" when the call does not
	// change it.
	Status TripStatus
}

// Client is a ledger able to run contract functions.
type Client interface {
	// Invoke runs a state-changing contract function.
	Invoke(ctx context.Context, op Operation, params Params) (Receipt, error)
	// Query runs a read-only contract function. A nil result with a nil error
	// means the ledger holds nothing for params.
	Query(ctx context.Context, op Operation, params Params) (Params, error)
	// Mode names the implementation for health reporting ("ledger" or "simulation").
	Mode() string
}
