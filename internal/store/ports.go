// Package store defines the persistence ports the planning engine reads
// from. Implementations live in internal/storage (SQLite),
// internal/postgres and internal/store/memory.
package store

import (
	"context"
	"errors"
	"time"

	"fintrack/internal/core"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("record not found")

// RecurringStore persists recurring items and the materialization
// bookkeeping the recurring worker relies on.
type RecurringStore interface {
	CreateRecurringItem(ctx context.Context, item core.RecurringItem) (int64, error)
	GetRecurringItem(ctx context.Context, id int64) (core.RecurringItem, error)
	ListRecurringItems(ctx context.Context) ([]core.RecurringItem, error)
	UpdateRecurringItem(ctx context.Context, item core.RecurringItem) error
	DeleteRecurringItem(ctx context.Context, id int64) error

	// LastMaterialized returns the occurrence date most recently turned
	// into a transaction, or the zero time when none has been.
	LastMaterialized(ctx context.Context, id int64) (time.Time, error)
	MarkMaterialized(ctx context.Context, id int64, occurredOn time.Time) error
}

type DebtStore interface {
	CreateDebt(ctx context.Context, debt core.DebtAccount) (int64, error)
	GetDebt(ctx context.Context, id int64) (core.DebtAccount, error)
	ListDebts(ctx context.Context) ([]core.DebtAccount, error)
	UpdateDebt(ctx context.Context, debt core.DebtAccount) error
	DeleteDebt(ctx context.Context, id int64) error
}

type GoalStore interface {
	CreateGoal(ctx context.Context, goal core.FinancialGoal) (int64, error)
	ListGoals(ctx context.Context) ([]core.FinancialGoal, error)
	UpdateGoal(ctx context.Context, goal core.FinancialGoal) error
	DeleteGoal(ctx context.Context, id int64) error
}

type AllocationStore interface {
	UpsertAllocation(ctx context.Context, alloc core.BudgetAllocation) (int64, error)
	ListAllocations(ctx context.Context, year, month int) ([]core.BudgetAllocation, error)
	DeleteAllocation(ctx context.Context, id int64) error
}

type TransactionStore interface {
	CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error)
	ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error)
}

// SnapshotStore keeps the latest materialized forecast so dashboards can
// serve it without recomputing.
type SnapshotStore interface {
	SaveForecastSnapshot(ctx context.Context, generatedAt time.Time, payload []byte) error
	ForecastSnapshot(ctx context.Context) ([]byte, time.Time, error)
}

// Store is the full persistence surface.
type Store interface {
	RecurringStore
	DebtStore
	GoalStore
	AllocationStore
	TransactionStore
	SnapshotStore

	Close() error
}
