// Package memory provides an in-memory implementation of every store
// interface. It backs the tests and the local development wiring; the
// postgres adapters are the durable equivalent.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/patrimo/patrimo-backend/internal/domain"
)

// Store holds all in-memory state behind one mutex, which makes the
// range-replace operations naturally atomic. The typed accessors expose the
// per-interface views; they all share this state.
type Store struct {
	mu sync.RWMutex

	quantities map[uuid.UUID]map[domain.Day]*domain.QuantityFact
	prices     map[uuid.UUID]map[domain.Day]*domain.PriceFact
	rates      map[string]map[domain.Day]*domain.RateFact

	holdings     map[uuid.UUID]*domain.Holding
	transactions map[uuid.UUID]*domain.Transaction
	envelopes    map[uuid.UUID]*domain.Envelope

	valuations map[uuid.UUID]map[domain.Day]*domain.ValuationSnapshot
	worths     map[uuid.UUID]map[domain.Day]*domain.NetWorthSnapshot
	cashflows  map[uuid.UUID]map[domain.Month]*domain.CashFlowSnapshot

	jobs map[uuid.UUID]*domain.Job
}

// NewStore creates an empty Store.
func NewStore() *Store {
	return &Store{
		quantities:   make(map[uuid.UUID]map[domain.Day]*domain.QuantityFact),
		prices:       make(map[uuid.UUID]map[domain.Day]*domain.PriceFact),
		rates:        make(map[string]map[domain.Day]*domain.RateFact),
		holdings:     make(map[uuid.UUID]*domain.Holding),
		transactions: make(map[uuid.UUID]*domain.Transaction),
		envelopes:    make(map[uuid.UUID]*domain.Envelope),
		valuations:   make(map[uuid.UUID]map[domain.Day]*domain.ValuationSnapshot),
		worths:       make(map[uuid.UUID]map[domain.Day]*domain.NetWorthSnapshot),
		cashflows:    make(map[uuid.UUID]map[domain.Month]*domain.CashFlowSnapshot),
		jobs:         make(map[uuid.UUID]*domain.Job),
	}
}

// Facts returns the store's fact view.
func (s *Store) Facts() domain.FactStore { return &factStore{s} }

// Holdings returns the store's holding view.
func (s *Store) Holdings() domain.HoldingRepository { return &holdingRepo{s} }

// Transactions returns the store's transaction view.
func (s *Store) Transactions() domain.TransactionRepository { return &transactionRepo{s} }

// Snapshots returns the store's snapshot view.
func (s *Store) Snapshots() domain.SnapshotStore { return &snapshotStore{s} }

// Envelopes returns the store's envelope view.
func (s *Store) Envelopes() domain.EnvelopeRepository { return &envelopeRepo{s} }

// Jobs returns the store's job queue view.
func (s *Store) Jobs() domain.JobStore { return &jobStore{s} }

func rateKey(base, quote string) string { return base + "/" + quote }

// --- domain.FactStore ---

type factStore struct{ s *Store }

func (f *factStore) UpsertQuantity(_ context.Context, fact *domain.QuantityFact) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byDay, ok := f.s.quantities[fact.HoldingID]
	if !ok {
		byDay = make(map[domain.Day]*domain.QuantityFact)
		f.s.quantities[fact.HoldingID] = byDay
	}
	clone := *fact
	byDay[fact.Day] = &clone
	return nil
}

func (f *factStore) DeleteQuantity(_ context.Context, holdingID uuid.UUID, day domain.Day) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byDay, ok := f.s.quantities[holdingID]
	if !ok || byDay[day] == nil {
		return domain.ErrNotFound
	}
	delete(byDay, day)
	return nil
}

func (f *factStore) QuantityAtOrBefore(_ context.Context, holdingID uuid.UUID, day domain.Day) (*domain.QuantityFact, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var best *domain.QuantityFact
	for d, fact := range f.s.quantities[holdingID] {
		if d.After(day) {
			continue
		}
		if best == nil || d.After(best.Day) {
			best = fact
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (f *factStore) EarliestQuantity(_ context.Context, holdingID uuid.UUID) (*domain.QuantityFact, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var best *domain.QuantityFact
	for d, fact := range f.s.quantities[holdingID] {
		if best == nil || d.Before(best.Day) {
			best = fact
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (f *factStore) UpsertPrice(_ context.Context, fact *domain.PriceFact) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byDay, ok := f.s.prices[fact.TickerID]
	if !ok {
		byDay = make(map[domain.Day]*domain.PriceFact)
		f.s.prices[fact.TickerID] = byDay
	}
	clone := *fact
	byDay[fact.Day] = &clone
	return nil
}

func (f *factStore) DeletePrice(_ context.Context, tickerID uuid.UUID, day domain.Day) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byDay, ok := f.s.prices[tickerID]
	if !ok || byDay[day] == nil {
		return domain.ErrNotFound
	}
	delete(byDay, day)
	return nil
}

func (f *factStore) PriceAtOrBefore(_ context.Context, tickerID uuid.UUID, day domain.Day) (*domain.PriceFact, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var best *domain.PriceFact
	for d, fact := range f.s.prices[tickerID] {
		if d.After(day) {
			continue
		}
		if best == nil || d.After(best.Day) {
			best = fact
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

func (f *factStore) UpsertRate(_ context.Context, fact *domain.RateFact) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	key := rateKey(fact.Base, fact.Quote)
	byDay, ok := f.s.rates[key]
	if !ok {
		byDay = make(map[domain.Day]*domain.RateFact)
		f.s.rates[key] = byDay
	}
	clone := *fact
	byDay[fact.Day] = &clone
	return nil
}

func (f *factStore) DeleteRate(_ context.Context, base, quote string, day domain.Day) error {
	f.s.mu.Lock()
	defer f.s.mu.Unlock()
	byDay, ok := f.s.rates[rateKey(base, quote)]
	if !ok || byDay[day] == nil {
		return domain.ErrNotFound
	}
	delete(byDay, day)
	return nil
}

func (f *factStore) RateAtOrBefore(_ context.Context, base, quote string, day domain.Day) (*domain.RateFact, error) {
	f.s.mu.RLock()
	defer f.s.mu.RUnlock()
	var best *domain.RateFact
	for d, fact := range f.s.rates[rateKey(base, quote)] {
		if d.After(day) {
			continue
		}
		if best == nil || d.After(best.Day) {
			best = fact
		}
	}
	if best == nil {
		return nil, domain.ErrNotFound
	}
	clone := *best
	return &clone, nil
}

// --- domain.HoldingRepository ---

type holdingRepo struct{ s *Store }

func (r *holdingRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	h, ok := r.s.holdings[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *h
	return &clone, nil
}

func (r *holdingRepo) Create(_ context.Context, h *domain.Holding) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *h
	r.s.holdings[h.ID] = &clone
	return nil
}

func (r *holdingRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(h *domain.Holding) bool { return h.UserID == userID }), nil
}

func (r *holdingRepo) ListByTicker(_ context.Context, tickerID uuid.UUID) ([]*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(h *domain.Holding) bool {
		return h.TickerID != nil && *h.TickerID == tickerID
	}), nil
}

func (r *holdingRepo) ListByCurrency(_ context.Context, currency string) ([]*domain.Holding, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.list(func(h *domain.Holding) bool { return h.Currency == currency }), nil
}

func (r *holdingRepo) ListUsers(_ context.Context) ([]uuid.UUID, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	seen := make(map[uuid.UUID]bool)
	var out []uuid.UUID
	for _, h := range r.s.holdings {
		if !seen[h.UserID] {
			seen[h.UserID] = true
			out = append(out, h.UserID)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].String() < out[j].String() })
	return out, nil
}

// list filters holdings under the caller's lock, sorted by name for
// deterministic iteration.
func (r *holdingRepo) list(keep func(*domain.Holding) bool) []*domain.Holding {
	var out []*domain.Holding
	for _, h := range r.s.holdings {
		if keep(h) {
			clone := *h
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// --- domain.TransactionRepository ---

type transactionRepo struct{ s *Store }

func (r *transactionRepo) Upsert(_ context.Context, t *domain.Transaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *t
	r.s.transactions[t.ID] = &clone
	return nil
}

func (r *transactionRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.transactions[id] == nil {
		return domain.ErrNotFound
	}
	delete(r.s.transactions, id)
	return nil
}

func (r *transactionRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	t, ok := r.s.transactions[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *t
	return &clone, nil
}

func (r *transactionRepo) ListByUserInMonth(_ context.Context, userID uuid.UUID, m domain.Month) ([]*domain.Transaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Transaction
	for _, t := range r.s.transactions {
		if t.UserID == userID && m.Contains(t.Day) {
			clone := *t
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Day.Equal(out[j].Day) {
			return out[i].Day.Before(out[j].Day)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out, nil
}

// --- domain.SnapshotStore ---

type snapshotStore struct{ s *Store }

// ReplaceRange swaps the affected rows under the single store mutex, so the
// overwrite is all-or-nothing.
func (r *snapshotStore) ReplaceRange(_ context.Context, userID uuid.UUID, holdingIDs []uuid.UUID, from, to domain.Day, valuations []*domain.ValuationSnapshot, worths []*domain.NetWorthSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, id := range holdingIDs {
		byDay := r.s.valuations[id]
		for d := range byDay {
			if !d.Before(from) && !d.After(to) {
				delete(byDay, d)
			}
		}
	}
	userWorths := r.s.worths[userID]
	for d := range userWorths {
		if !d.Before(from) && !d.After(to) {
			delete(userWorths, d)
		}
	}

	for _, v := range valuations {
		byDay, ok := r.s.valuations[v.HoldingID]
		if !ok {
			byDay = make(map[domain.Day]*domain.ValuationSnapshot)
			r.s.valuations[v.HoldingID] = byDay
		}
		clone := *v
		byDay[v.Day] = &clone
	}
	for _, w := range worths {
		byDay, ok := r.s.worths[w.UserID]
		if !ok {
			byDay = make(map[domain.Day]*domain.NetWorthSnapshot)
			r.s.worths[w.UserID] = byDay
		}
		clone := *w
		byDay[w.Day] = &clone
	}

	return nil
}

func (r *snapshotStore) ValuationsInRange(_ context.Context, holdingID uuid.UUID, from, to domain.Day) ([]*domain.ValuationSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.ValuationSnapshot
	for d, v := range r.s.valuations[holdingID] {
		if !d.Before(from) && !d.After(to) {
			clone := *v
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r *snapshotStore) ValuationOn(_ context.Context, holdingID uuid.UUID, day domain.Day) (*domain.ValuationSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	v, ok := r.s.valuations[holdingID][day]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *v
	return &clone, nil
}

func (r *snapshotStore) NetWorthInRange(_ context.Context, userID uuid.UUID, from, to domain.Day) ([]*domain.NetWorthSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.NetWorthSnapshot
	for d, w := range r.s.worths[userID] {
		if !d.Before(from) && !d.After(to) {
			clone := *w
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Day.Before(out[j].Day) })
	return out, nil
}

func (r *snapshotStore) ReplaceCashFlowRange(_ context.Context, userID uuid.UUID, from, to domain.Month, rows []*domain.CashFlowSnapshot) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	byMonth, ok := r.s.cashflows[userID]
	if !ok {
		byMonth = make(map[domain.Month]*domain.CashFlowSnapshot)
		r.s.cashflows[userID] = byMonth
	}
	for m := range byMonth {
		if !m.Before(from) && !m.After(to) {
			delete(byMonth, m)
		}
	}
	for _, row := range rows {
		clone := *row
		byMonth[row.Month] = &clone
	}

	return nil
}

func (r *snapshotStore) CashFlowInRange(_ context.Context, userID uuid.UUID, from, to domain.Month) ([]*domain.CashFlowSnapshot, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.CashFlowSnapshot
	for m, row := range r.s.cashflows[userID] {
		if !m.Before(from) && !m.After(to) {
			clone := *row
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out, nil
}

// --- domain.EnvelopeRepository ---

type envelopeRepo struct{ s *Store }

func (r *envelopeRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.Envelope, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	e, ok := r.s.envelopes[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (r *envelopeRepo) Create(_ context.Context, e *domain.Envelope) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *e
	r.s.envelopes[e.ID] = &clone
	return nil
}

func (r *envelopeRepo) Update(_ context.Context, e *domain.Envelope) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.envelopes[e.ID] == nil {
		return domain.ErrNotFound
	}
	clone := *e
	r.s.envelopes[e.ID] = &clone
	return nil
}

func (r *envelopeRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.envelopes[id] == nil {
		return domain.ErrNotFound
	}
	delete(r.s.envelopes, id)
	return nil
}

func (r *envelopeRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]*domain.Envelope, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Envelope
	for _, e := range r.s.envelopes {
		if e.UserID == userID {
			clone := *e
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out, nil
}

// Reorder rewrites all priorities under the lock; either all change or,
// on a missing envelope, none do.
func (r *envelopeRepo) Reorder(_ context.Context, userID uuid.UUID, orderedIDs []uuid.UUID) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, id := range orderedIDs {
		e := r.s.envelopes[id]
		if e == nil || e.UserID != userID {
			return domain.ErrNotFound
		}
	}
	for i, id := range orderedIDs {
		r.s.envelopes[id].Priority = i + 1
	}
	return nil
}

// --- domain.JobStore ---

type jobStore struct{ s *Store }

func (r *jobStore) Enqueue(_ context.Context, job *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	clone := *job
	r.s.jobs[job.ID] = &clone
	return nil
}

func (r *jobStore) ClaimNext(_ context.Context) (*domain.Job, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := time.Now()
	var best *domain.Job
	for _, j := range r.s.jobs {
		if j.Status != domain.JobStatusPending || j.RunAfter.After(now) {
			continue
		}
		if best == nil || j.CreatedAt.Before(best.CreatedAt) {
			best = j
		}
	}
	if best == nil {
		return nil, nil
	}
	best.Status = domain.JobStatusRunning
	best.Attempts++
	clone := *best
	return &clone, nil
}

func (r *jobStore) Update(_ context.Context, job *domain.Job) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if r.s.jobs[job.ID] == nil {
		return domain.ErrNotFound
	}
	clone := *job
	r.s.jobs[job.ID] = &clone
	return nil
}

func (r *jobStore) ListByStatus(_ context.Context, status domain.JobStatus) ([]*domain.Job, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var out []*domain.Job
	for _, j := range r.s.jobs {
		if j.Status == status {
			clone := *j
			out = append(out, &clone)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
