package contract

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/semanticallynull/sentra-backend/internal/ledger"
	"github.com/semanticallynull/sentra-backend/internal/o11y"
	"github.com/semanticallynull/sentra-backend/ride"
)

const DefaultLedgerTimeout = 5 * time.Second

// Mirror projects trip events onto a ledger.Client and caches the resulting
// contract records. The store lock is never held across a ledger call.
type Mirror struct {
	ledger      ledger.Client
	authorities Authorities
	timeout     time.Duration
	metrics     *o11y.Metrics
	logger      *slog.Logger
	now         func() time.Time

	mu      sync.RWMutex
	records map[string]*Record
}

type Option func(*Mirror)

// WithAuthorities sets the configured checkpoint authorities.
func WithAuthorities(a Authorities) Option {
	return func(m *Mirror) { m.authorities = a }
}

// WithTimeout bounds every ledger call.
func WithTimeout(d time.Duration) Option {
	return func(m *Mirror) { m.timeout = d }
}

func WithMetrics(metrics *o11y.Metrics) Option {
	return func(m *Mirror) { m.metrics = metrics }
}

func WithClock(now func() time.Time) Option {
	return func(m *Mirror) { m.now = now }
}

func NewMirror(client ledger.Client, logger *slog.Logger, opts ...Option) *Mirror {
	m := &Mirror{
		ledger:  client,
		timeout: DefaultLedgerTimeout,
		logger:  logger,
		now:     time.Now,
		records: make(map[string]*Record),
	}
	for _, o := range opts {
		o(m)
	}
	return m
}

// Mode reports which ledger implementation backs the mirror.
func (m *Mirror) Mode() string {
	return m.ledger.Mode()
}

// CreateContract creates the ledger contract for a trip and caches its
// record, replacing any previous record for the same trip id. The route is
// padded to three waypoints. overrides may name per-trip checkpoint
// authorities.
func (m *Mirror) CreateContract(ctx context.Context, tripID, driver string, route []string, overrides Authorities) (Record, error) {
	if tripID == "" || driver == "" || len(route) == 0 {
		return Record{}, fmt.Errorf("%w: trip id, driver and route are required", ErrInvalidTrip)
	}
	ctx, span := otel.Tracer("contract").Start(ctx, "contract.create")
	defer span.End()
	span.SetAttributes(attribute.String("trip_id", tripID))

	route = ride.PadRoute(route, ride.MinWaypoints)
	auth := overrides.resolve(m.authorities, driver)

	receipt, err := m.invoke(ctx, ledger.OpCreateTrip, ledger.Params{
		"trip_id":            tripID,
		"driver":             driver,
		"route":              route,
		"saida_checkpoint":   auth.Saida,
		"meio_checkpoint":    auth.Meio,
		"chegada_checkpoint": auth.Chegada,
	})
	if err != nil {
		m.logger.ErrorContext(ctx, "failed to create contract", "tripId", tripID, "error", err)
		return Record{}, err
	}

	status := receipt.Status
	if status == "" {
		status = ledger.StatusPendente
	}
	now := m.now().UTC()
	rec := &Record{
		TripID:            tripID,
		Driver:            driver,
		Route:             route,
		Status:            status,
		SaidaCheckpoint:   auth.Saida,
		MeioCheckpoint:    auth.Meio,
		ChegadaCheckpoint: auth.Chegada,
		Checkpoints:       []Checkpoint{},
		ContractAddress:   receipt.ContractAddress,
		TransactionHash:   receipt.TxHash,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	m.mu.Lock()
	m.records[tripID] = rec
	out := rec.clone()
	m.mu.Unlock()

	m.logger.InfoContext(ctx, "contract created", "tripId", tripID, "tx", receipt.TxHash, "mode", m.ledger.Mode())
	return out, nil
}

// UpdateContractStatus records a checkpoint event on the trip. The entry is
// appended to the record's checkpoint log before the ledger is called and
// stays there even if the call fails. It returns the updated record and the
// latest transaction hash.
func (m *Mirror) UpdateContractStatus(ctx context.Context, tripID, event, status string, location *string) (Record, string, error) {
	ctx, span := otel.Tracer("contract").Start(ctx, "contract.update")
	defer span.End()
	span.SetAttributes(attribute.String("trip_id", tripID), attribute.String("event", event))

	m.mu.Lock()
	rec, ok := m.records[tripID]
	if !ok {
		m.mu.Unlock()
		return Record{}, "", ErrNotFound
	}
	rec.Checkpoints = append(rec.Checkpoints, Checkpoint{
		Event:     event,
		Status:    status,
		Location:  location,
		Timestamp: m.now().UTC(),
	})
	if location != nil {
		rec.CurrentLocation = location
	}
	rec.revision++
	m.mu.Unlock()

	op := EventOperation(event)
	receipt, err := m.invoke(ctx, op, ledger.Params{
		"trip_id": tripID,
		"event":   event,
		"status":  status,
	})
	if err != nil && !errors.Is(err, ledger.ErrNoFunction) {
		m.logger.ErrorContext(ctx, "failed to update contract", "tripId", tripID, "event", event, "error", err)
		return Record{}, "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	rec = m.records[tripID]
	if receipt.TxHash != "" {
		rec.TransactionHash = receipt.TxHash
	}
	if receipt.Status != "" {
		rec.Status = receipt.Status
	}
	rec.UpdatedAt = m.now().UTC()
	rec.revision++
	return rec.clone(), rec.TransactionHash, nil
}

// GetContractStatus returns the trip's contract, merging the status and
// checkpoint authorities reported by the ledger into the cache. A failed
// ledger query is logged and the cached record is returned instead. A ledger
// snapshot is only merged if the cached record did not change while the
// query was in flight.
func (m *Mirror) GetContractStatus(ctx context.Context, tripID string) (Record, error) {
	ctx, span := otel.Tracer("contract").Start(ctx, "contract.status")
	defer span.End()

	m.mu.RLock()
	seen := m.records[tripID]
	var seenRevision uint64
	if seen != nil {
		seenRevision = seen.revision
	}
	m.mu.RUnlock()

	remote, err := m.query(ctx, ledger.OpGetTrip, ledger.Params{"trip_id": tripID})
	if err != nil {
		m.logger.WarnContext(ctx, "ledger query failed, using cached contract", "tripId", tripID, "error", err)
		remote = nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	rec, ok := m.records[tripID]
	if remote == nil {
		if !ok {
			return Record{}, ErrNotFound
		}
		return rec.clone(), nil
	}

	if !ok {
		// Known to the ledger only; nothing to merge into.
		view := Record{TripID: tripID, Checkpoints: []Checkpoint{}}
		merge(&view, remote)
		return view, nil
	}
	if rec != seen || rec.revision != seenRevision {
		return rec.clone(), nil
	}
	merge(rec, remote)
	rec.revision++
	return rec.clone(), nil
}

func merge(rec *Record, remote ledger.Params) {
	if s := remote.String("status"); s != "" {
		rec.Status = ledger.TripStatus(s)
	}
	if s := remote.String("saida_checkpoint"); s != "" {
		rec.SaidaCheckpoint = s
	}
	if s := remote.String("meio_checkpoint"); s != "" {
		rec.MeioCheckpoint = s
	}
	if s := remote.String("chegada_checkpoint"); s != "" {
		rec.ChegadaCheckpoint = s
	}
}

// GetContractHistory returns the trip's checkpoint log. It never fails: an
// unknown trip yields an empty slice.
func (m *Mirror) GetContractHistory(ctx context.Context, tripID string) []Checkpoint {
	rec, err := m.GetContractStatus(ctx, tripID)
	if err != nil {
		return []Checkpoint{}
	}
	return rec.Checkpoints
}

// Initialize sets the contract admin and returns the transaction hash.
func (m *Mirror) Initialize(ctx context.Context, admin string) (string, error) {
	receipt, err := m.invoke(ctx, ledger.OpInitialize, ledger.Params{"admin": admin})
	if err != nil {
		return "", err
	}
	return receipt.TxHash, nil
}

// Admin returns the contract admin address, or "" when none is set.
func (m *Mirror) Admin(ctx context.Context) (string, error) {
	res, err := m.query(ctx, ledger.OpGetAdmin, nil)
	if err != nil {
		return "", err
	}
	return res.String("admin"), nil
}

func (m *Mirror) invoke(ctx context.Context, op ledger.Operation, params ledger.Params) (ledger.Receipt, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	receipt, err := m.ledger.Invoke(ctx, op, params)
	if errors.Is(err, ledger.ErrNoFunction) {
		return ledger.Receipt{}, err
	}
	m.metrics.LedgerCall(op.String(), time.Since(start), err)
	if err != nil {
		return ledger.Receipt{}, fmt.Errorf("%w: %s: %w", ErrLedgerUnavailable, op, err)
	}
	return receipt, nil
}

func (m *Mirror) query(ctx context.Context, op ledger.Operation, params ledger.Params) (ledger.Params, error) {
	ctx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	start := time.Now()
	res, err := m.ledger.Query(ctx, op, params)
	m.metrics.LedgerCall(op.String(), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrLedgerUnavailable, op, err)
	}
	return res, nil
}
