package storage

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "fintrack.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository() error = %v", err)
	}
	t.Cleanup(func() {
		if err := repo.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return repo
}

func TestRecurringItemRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	item := core.RecurringItem{
		Name:      "Streaming",
		Kind:      core.Subscription,
		Amount:    core.Money{Cents: 1599},
		Frequency: core.Monthly,
		Anchor:    core.RenewalAnchor(core.NewDate(2024, 1, 10), core.NewDate(2024, 12, 10)),
		Category:  "entertainment",
		Notes:     "family plan",
	}
	id, err := repo.CreateRecurringItem(ctx, item)
	if err != nil {
		t.Fatalf("CreateRecurringItem() error = %v", err)
	}

	got, err := repo.GetRecurringItem(ctx, id)
	if err != nil {
		t.Fatalf("GetRecurringItem() error = %v", err)
	}
	if got.Name != item.Name || got.Kind != item.Kind || got.Amount != item.Amount {
		t.Errorf("round trip = %+v", got)
	}
	if got.Anchor.Kind != core.AnchorRenewal {
		t.Errorf("anchor kind = %s, want renewal", got.Anchor.Kind)
	}
	if !got.Anchor.LastRenewal.Equal(item.Anchor.LastRenewal.Time) {
		t.Errorf("last renewal = %v, want %v", got.Anchor.LastRenewal, item.Anchor.LastRenewal)
	}
	if !got.Anchor.End.Equal(item.Anchor.End.Time) {
		t.Errorf("end = %v, want %v", got.Anchor.End, item.Anchor.End)
	}
	if !got.Anchor.Start.IsZero() {
		t.Errorf("start should be unset, got %v", got.Anchor.Start)
	}
	if got.Category != "entertainment" || got.Notes != "family plan" {
		t.Errorf("category/notes = %q/%q", got.Category, got.Notes)
	}

	got.Name = "Streaming premium"
	got.Amount = core.Money{Cents: 1999}
	if err := repo.UpdateRecurringItem(ctx, got); err != nil {
		t.Fatalf("UpdateRecurringItem() error = %v", err)
	}
	updated, _ := repo.GetRecurringItem(ctx, id)
	if updated.Name != "Streaming premium" || updated.Amount.Cents != 1999 {
		t.Errorf("after update = %+v", updated)
	}

	items, err := repo.ListRecurringItems(ctx)
	if err != nil {
		t.Fatalf("ListRecurringItems() error = %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("len = %d, want 1", len(items))
	}

	if err := repo.DeleteRecurringItem(ctx, id); err != nil {
		t.Fatalf("DeleteRecurringItem() error = %v", err)
	}
	if _, err := repo.GetRecurringItem(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
	if err := repo.DeleteRecurringItem(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestMaterializationColumns(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateRecurringItem(ctx, core.RecurringItem{
		Name:      "Rent",
		Kind:      core.FixedExpense,
		Amount:    core.Money{Cents: 100000},
		Frequency: core.Monthly,
		Anchor:    core.StartAnchor(core.NewDate(2024, 1, 1)),
	})
	if err != nil {
		t.Fatalf("CreateRecurringItem() error = %v", err)
	}

	last, err := repo.LastMaterialized(ctx, id)
	if err != nil {
		t.Fatalf("LastMaterialized() error = %v", err)
	}
	if !last.IsZero() {
		t.Errorf("unmarked LastMaterialized = %v, want zero", last)
	}

	occurred := time.Date(2024, time.February, 1, 0, 0, 0, 0, time.UTC)
	if err := repo.MarkMaterialized(ctx, id, occurred); err != nil {
		t.Fatalf("MarkMaterialized() error = %v", err)
	}
	last, err = repo.LastMaterialized(ctx, id)
	if err != nil {
		t.Fatalf("LastMaterialized() after mark error = %v", err)
	}
	if !last.Equal(occurred) {
		t.Errorf("LastMaterialized = %v, want %v", last, occurred)
	}

	if err := repo.MarkMaterialized(ctx, 999, occurred); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("mark unknown id = %v, want ErrNotFound", err)
	}
}

func TestDebtRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created := time.Date(2023, time.June, 1, 12, 30, 0, 0, time.UTC)
	debt := core.DebtAccount{
		Name:             "Visa",
		Kind:             core.CreditCard,
		Balance:          core.Money{Cents: 50000},
		APR:              19.99,
		MinimumPayment:   core.Money{Cents: 2500},
		PaymentDay:       15,
		PaymentFrequency: core.PayMonthly,
		CreatedAt:        created,
	}
	id, err := repo.CreateDebt(ctx, debt)
	if err != nil {
		t.Fatalf("CreateDebt() error = %v", err)
	}

	got, err := repo.GetDebt(ctx, id)
	if err != nil {
		t.Fatalf("GetDebt() error = %v", err)
	}
	if got.Name != "Visa" || got.Kind != core.CreditCard {
		t.Errorf("round trip = %+v", got)
	}
	if got.APR != 19.99 {
		t.Errorf("apr = %v, want 19.99", got.APR)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("createdAt = %v, want %v", got.CreatedAt, created)
	}

	got.Balance = core.Money{Cents: 45000}
	if err := repo.UpdateDebt(ctx, got); err != nil {
		t.Fatalf("UpdateDebt() error = %v", err)
	}
	updated, _ := repo.GetDebt(ctx, id)
	if updated.Balance.Cents != 45000 {
		t.Errorf("balance after update = %d, want 45000", updated.Balance.Cents)
	}

	if err := repo.DeleteDebt(ctx, id); err != nil {
		t.Fatalf("DeleteDebt() error = %v", err)
	}
	if _, err := repo.GetDebt(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("get after delete = %v, want ErrNotFound", err)
	}
}

func TestGoalRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	goal := core.FinancialGoal{
		Name:                "Emergency fund",
		TargetAmount:        core.Money{Cents: 1000000},
		SavedAmount:         core.Money{Cents: 250000},
		MonthlyContribution: core.Money{Cents: 20000},
		TargetDate:          core.NewDate(2025, 12, 31),
	}
	id, err := repo.CreateGoal(ctx, goal)
	if err != nil {
		t.Fatalf("CreateGoal() error = %v", err)
	}

	// An open-ended goal stores a null target date.
	openEnded := goal
	openEnded.Name = "Vacation"
	openEnded.TargetDate = core.Date{}
	if _, err := repo.CreateGoal(ctx, openEnded); err != nil {
		t.Fatalf("CreateGoal() open-ended error = %v", err)
	}

	goals, err := repo.ListGoals(ctx)
	if err != nil {
		t.Fatalf("ListGoals() error = %v", err)
	}
	if len(goals) != 2 {
		t.Fatalf("len = %d, want 2", len(goals))
	}
	if !goals[0].TargetDate.Equal(goal.TargetDate.Time) {
		t.Errorf("target date = %v, want %v", goals[0].TargetDate, goal.TargetDate)
	}
	if !goals[1].TargetDate.IsZero() {
		t.Errorf("open-ended target date = %v, want zero", goals[1].TargetDate)
	}

	goal.ID = id
	goal.SavedAmount = core.Money{Cents: 300000}
	if err := repo.UpdateGoal(ctx, goal); err != nil {
		t.Fatalf("UpdateGoal() error = %v", err)
	}
	if err := repo.DeleteGoal(ctx, id); err != nil {
		t.Fatalf("DeleteGoal() error = %v", err)
	}
	if err := repo.DeleteGoal(ctx, id); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestAllocationUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	alloc := core.BudgetAllocation{
		Category: "groceries",
		Year:     2024,
		Month:    3,
		Planned:  core.Money{Cents: 40000},
	}
	id1, err := repo.UpsertAllocation(ctx, alloc)
	if err != nil {
		t.Fatalf("UpsertAllocation() error = %v", err)
	}

	alloc.Planned = core.Money{Cents: 45000}
	alloc.Spent = core.Money{Cents: 12000}
	id2, err := repo.UpsertAllocation(ctx, alloc)
	if err != nil {
		t.Fatalf("second UpsertAllocation() error = %v", err)
	}
	if id2 != id1 {
		t.Errorf("upsert id = %d, want %d", id2, id1)
	}

	allocs, err := repo.ListAllocations(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ListAllocations() error = %v", err)
	}
	if len(allocs) != 1 {
		t.Fatalf("len = %d, want 1", len(allocs))
	}
	if allocs[0].Planned.Cents != 45000 || allocs[0].Spent.Cents != 12000 {
		t.Errorf("allocation = %+v", allocs[0])
	}

	if got, _ := repo.ListAllocations(ctx, 2024, 4); len(got) != 0 {
		t.Errorf("other month len = %d, want 0", len(got))
	}

	if err := repo.DeleteAllocation(ctx, id1); err != nil {
		t.Fatalf("DeleteAllocation() error = %v", err)
	}
	if err := repo.DeleteAllocation(ctx, id1); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("double delete = %v, want ErrNotFound", err)
	}
}

func TestTransactionMonthFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	dates := []core.Date{
		core.NewDate(2024, 3, 20),
		core.NewDate(2024, 3, 1),
		core.NewDate(2024, 4, 1),
		core.NewDate(2023, 3, 10),
	}
	for _, d := range dates {
		if _, err := repo.CreateTransaction(ctx, core.Transaction{
			Date:        d,
			Description: "tx",
			Amount:      core.Money{Cents: 100},
			RecurringID: 0,
		}); err != nil {
			t.Fatalf("CreateTransaction() error = %v", err)
		}
	}

	txs, err := repo.ListTransactions(ctx, 2024, 3)
	if err != nil {
		t.Fatalf("ListTransactions() error = %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("len = %d, want 2", len(txs))
	}
	// Ordered by date, not insertion.
	if !txs[0].Date.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("first tx date = %v, want 2024-03-01", txs[0].Date)
	}
}

func TestForecastSnapshotUpsert(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	if _, _, err := repo.ForecastSnapshot(ctx); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("empty snapshot = %v, want ErrNotFound", err)
	}

	first := time.Date(2024, time.March, 1, 6, 0, 0, 0, time.UTC)
	if err := repo.SaveForecastSnapshot(ctx, first, []byte(`{"v":1}`)); err != nil {
		t.Fatalf("SaveForecastSnapshot() error = %v", err)
	}

	// A second save replaces the singleton row.
	second := first.Add(24 * time.Hour)
	if err := repo.SaveForecastSnapshot(ctx, second, []byte(`{"v":2}`)); err != nil {
		t.Fatalf("second SaveForecastSnapshot() error = %v", err)
	}

	payload, generatedAt, err := repo.ForecastSnapshot(ctx)
	if err != nil {
		t.Fatalf("ForecastSnapshot() error = %v", err)
	}
	if !bytes.Equal(payload, []byte(`{"v":2}`)) {
		t.Errorf("payload = %s, want {\"v\":2}", payload)
	}
	if !generatedAt.Equal(second) {
		t.Errorf("generatedAt = %v, want %v", generatedAt, second)
	}
}
