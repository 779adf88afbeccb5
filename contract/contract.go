// Package contract mirrors trip progress onto the ledger and caches the
// resulting contract state per trip id.
package contract

import (
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/semanticallynull/sentra-backend/internal/ledger"
)

var (
	ErrNotFound = errors.New("contract not found")
	// ErrLedgerUnavailable is returned when a ledger call fails or times out.
	ErrLedgerUnavailable = errors.New("ledger unavailable")
	ErrInvalidTrip       = errors.New("invalid trip")
)

// Checkpoint is one recorded progress event of a trip.
type Checkpoint struct {
	Event     string    `json:"event"`
	Status    string    `json:"status"`
	Location  *string   `json:"location,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Record is the cached view of a trip's contract.
type Record struct {
	TripID string            `json:"tripId"`
	Driver string            `json:"driver"`
	Route  []string          `json:"route"`
	Status ledger.TripStatus `json:"status"`

	SaidaCheckpoint   string `json:"saidaCheckpoint"`
	MeioCheckpoint    string `json:"meioCheckpoint"`
	ChegadaCheckpoint string `json:"chegadaCheckpoint"`

	CurrentLocation *string      `json:"currentLocation,omitempty"`
	Checkpoints     []Checkpoint `json:"checkpoints"`

	ContractAddress string    `json:"contractAddress"`
	TransactionHash string    `json:"transactionHash"`
	CreatedAt       time.Time `json:"createdAt"`
	UpdatedAt       time.Time `json:"updatedAt"`

	// revision counts committed changes to the cached record.
	revision uint64
}

func (r Record) clone() Record {
	r.Route = slices.Clone(r.Route)
	r.Checkpoints = slices.Clone(r.Checkpoints)
	if r.Checkpoints == nil {
		r.Checkpoints = []Checkpoint{}
	}
	return r
}

// Authorities are the addresses allowed to mark each checkpoint. Empty
// fields fall back to the next policy level and finally to the driver.
type Authorities struct {
	Saida   string
	Meio    string
	Chegada string
}

// resolve layers trip-specific overrides over configured defaults, with the
// driver as the last fallback.
func (a Authorities) resolve(defaults Authorities, driver string) Authorities {
	pick := func(vals ...string) string {
		for _, v := range vals {
			if v != "" {
				return v
			}
		}
		return driver
	}
	return Authorities{
		Saida:   pick(a.Saida, defaults.Saida),
		Meio:    pick(a.Meio, defaults.Meio),
		Chegada: pick(a.Chegada, defaults.Chegada),
	}
}

// EventOperation maps a checkpoint event name, case-insensitively, to the
// ledger operation recording it. Unrecognised events map to
// ledger.OpRecordEvent.
func EventOperation(event string) ledger.Operation {
	switch strings.ToLower(event) {
	case "saida":
		return ledger.OpMarkDeparture
	case "checkpoint", "meio":
		return ledger.OpMarkMidpoint
	case "chegada", "entrega":
		return ledger.OpMarkArrival
	}
	return ledger.OpRecordEvent
}
