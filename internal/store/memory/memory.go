// Package memory is an in-memory store.Store used for local development
// and tests. All data is lost on restart.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Store struct {
	mu sync.RWMutex

	nextID       int64
	recurring    map[int64]core.RecurringItem
	materialized map[int64]time.Time
	debts        map[int64]core.DebtAccount
	goals        map[int64]core.FinancialGoal
	allocations  map[int64]core.BudgetAllocation
	transactions map[int64]core.Transaction

	snapshot   []byte
	snapshotAt time.Time
}

var _ store.Store = (*Store)(nil)

func New() *Store {
	return &Store{
		recurring:    make(map[int64]core.RecurringItem),
		materialized: make(map[int64]time.Time),
		debts:        make(map[int64]core.DebtAccount),
		goals:        make(map[int64]core.FinancialGoal),
		allocations:  make(map[int64]core.BudgetAllocation),
		transactions: make(map[int64]core.Transaction),
	}
}

func (s *Store) allocateID() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) CreateRecurringItem(_ context.Context, item core.RecurringItem) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	item.ID = s.allocateID()
	s.recurring[item.ID] = item
	return item.ID, nil
}

func (s *Store) GetRecurringItem(_ context.Context, id int64) (core.RecurringItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	item, ok := s.recurring[id]
	if !ok {
		return core.RecurringItem{}, store.ErrNotFound
	}
	return item, nil
}

func (s *Store) ListRecurringItems(_ context.Context) ([]core.RecurringItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.RecurringItem, 0, len(s.recurring))
	for _, item := range s.recurring {
		out = append(out, item)
	}
	sortByID(out, func(it core.RecurringItem) int64 { return it.ID })
	return out, nil
}

func (s *Store) UpdateRecurringItem(_ context.Context, item core.RecurringItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recurring[item.ID]; !ok {
		return store.ErrNotFound
	}
	s.recurring[item.ID] = item
	return nil
}

func (s *Store) DeleteRecurringItem(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recurring[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.recurring, id)
	delete(s.materialized, id)
	return nil
}

func (s *Store) LastMaterialized(_ context.Context, id int64) (time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if _, ok := s.recurring[id]; !ok {
		return time.Time{}, store.ErrNotFound
	}
	return s.materialized[id], nil
}

func (s *Store) MarkMaterialized(_ context.Context, id int64, occurredOn time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.recurring[id]; !ok {
		return store.ErrNotFound
	}
	s.materialized[id] = occurredOn
	return nil
}

func (s *Store) CreateDebt(_ context.Context, debt core.DebtAccount) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	debt.ID = s.allocateID()
	if debt.CreatedAt.IsZero() {
		debt.CreatedAt = time.Now().UTC()
	}
	s.debts[debt.ID] = debt
	return debt.ID, nil
}

func (s *Store) GetDebt(_ context.Context, id int64) (core.DebtAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	debt, ok := s.debts[id]
	if !ok {
		return core.DebtAccount{}, store.ErrNotFound
	}
	return debt, nil
}

func (s *Store) ListDebts(_ context.Context) ([]core.DebtAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.DebtAccount, 0, len(s.debts))
	for _, d := range s.debts {
		out = append(out, d)
	}
	sortByID(out, func(d core.DebtAccount) int64 { return d.ID })
	return out, nil
}

func (s *Store) UpdateDebt(_ context.Context, debt core.DebtAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debts[debt.ID]; !ok {
		return store.ErrNotFound
	}
	s.debts[debt.ID] = debt
	return nil
}

func (s *Store) DeleteDebt(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.debts[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.debts, id)
	return nil
}

func (s *Store) CreateGoal(_ context.Context, goal core.FinancialGoal) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	goal.ID = s.allocateID()
	s.goals[goal.ID] = goal
	return goal.ID, nil
}

func (s *Store) ListGoals(_ context.Context) ([]core.FinancialGoal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.FinancialGoal, 0, len(s.goals))
	for _, g := range s.goals {
		out = append(out, g)
	}
	sortByID(out, func(g core.FinancialGoal) int64 { return g.ID })
	return out, nil
}

func (s *Store) UpdateGoal(_ context.Context, goal core.FinancialGoal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[goal.ID]; !ok {
		return store.ErrNotFound
	}
	s.goals[goal.ID] = goal
	return nil
}

func (s *Store) DeleteGoal(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.goals[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.goals, id)
	return nil
}

func (s *Store) UpsertAllocation(_ context.Context, alloc core.BudgetAllocation) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, existing := range s.allocations {
		if existing.Category == alloc.Category && existing.Year == alloc.Year && existing.Month == alloc.Month {
			alloc.ID = id
			s.allocations[id] = alloc
			return id, nil
		}
	}
	alloc.ID = s.allocateID()
	s.allocations[alloc.ID] = alloc
	return alloc.ID, nil
}

func (s *Store) ListAllocations(_ context.Context, year, month int) ([]core.BudgetAllocation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.BudgetAllocation, 0)
	for _, a := range s.allocations {
		if a.Year == year && a.Month == month {
			out = append(out, a)
		}
	}
	sortByID(out, func(a core.BudgetAllocation) int64 { return a.ID })
	return out, nil
}

func (s *Store) DeleteAllocation(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.allocations[id]; !ok {
		return store.ErrNotFound
	}
	delete(s.allocations, id)
	return nil
}

func (s *Store) CreateTransaction(_ context.Context, tx core.Transaction) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	tx.ID = s.allocateID()
	s.transactions[tx.ID] = tx
	return tx.ID, nil
}

func (s *Store) ListTransactions(_ context.Context, year, month int) ([]core.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, 0)
	for _, tx := range s.transactions {
		if tx.Date.Year() == year && int(tx.Date.Month()) == month {
			out = append(out, tx)
		}
	}
	sortByID(out, func(tx core.Transaction) int64 { return tx.ID })
	return out, nil
}

func (s *Store) SaveForecastSnapshot(_ context.Context, generatedAt time.Time, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot = append([]byte(nil), payload...)
	s.snapshotAt = generatedAt
	return nil
}

func (s *Store) ForecastSnapshot(_ context.Context) ([]byte, time.Time, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.snapshot == nil {
		return nil, time.Time{}, store.ErrNotFound
	}
	return append([]byte(nil), s.snapshot...), s.snapshotAt, nil
}

func (s *Store) Close() error { return nil }

func sortByID[T any](items []T, id func(T) int64) {
	sort.Slice(items, func(i, j int) bool { return id(items[i]) < id(items[j]) })
}
