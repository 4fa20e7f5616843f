// Package storage is the SQLite implementation of store.Store.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

const dateLayout = "2006-01-02"

type SQLiteRepository struct {
	db *sql.DB
}

var _ store.Store = (*SQLiteRepository)(nil)

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{db: db}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullDate(d core.Date) sql.NullString {
	if d.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: d.Format(dateLayout), Valid: true}
}

func scanDate(ns sql.NullString) (core.Date, error) {
	if !ns.Valid || ns.String == "" {
		return core.Date{}, nil
	}
	t, err := time.Parse(dateLayout, ns.String)
	if err != nil {
		return core.Date{}, fmt.Errorf("parse date %q: %w", ns.String, err)
	}
	return core.Date{Time: t}, nil
}

func (r *SQLiteRepository) CreateRecurringItem(ctx context.Context, item core.RecurringItem) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO recurring_items
			(name, kind, amount_cents, frequency, anchor_kind,
			 start_date, last_renewal_date, first_pay_date, second_pay_date, end_date,
			 category, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		item.Name, string(item.Kind), item.Amount.Cents, string(item.Frequency),
		string(item.Anchor.Kind),
		nullDate(item.Anchor.Start), nullDate(item.Anchor.LastRenewal),
		nullDate(item.Anchor.First), nullDate(item.Anchor.Second), nullDate(item.Anchor.End),
		item.Category, item.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert recurring item: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const recurringColumns = `id, name, kind, amount_cents, frequency, anchor_kind,
	start_date, last_renewal_date, first_pay_date, second_pay_date, end_date,
	category, notes`

func scanRecurringItem(row interface{ Scan(...any) error }) (core.RecurringItem, error) {
	var (
		item                              core.RecurringItem
		kind, freq, anchorKind            string
		start, renewal, first, second, end sql.NullString
	)
	err := row.Scan(&item.ID, &item.Name, &kind, &item.Amount.Cents, &freq, &anchorKind,
		&start, &renewal, &first, &second, &end, &item.Category, &item.Notes)
	if err != nil {
		return core.RecurringItem{}, err
	}
	item.Kind = core.ItemKind(kind)
	item.Frequency = core.Frequency(freq)
	item.Anchor.Kind = core.AnchorKind(anchorKind)
	if item.Anchor.Start, err = scanDate(start); err != nil {
		return core.RecurringItem{}, err
	}
	if item.Anchor.LastRenewal, err = scanDate(renewal); err != nil {
		return core.RecurringItem{}, err
	}
	if item.Anchor.First, err = scanDate(first); err != nil {
		return core.RecurringItem{}, err
	}
	if item.Anchor.Second, err = scanDate(second); err != nil {
		return core.RecurringItem{}, err
	}
	if item.Anchor.End, err = scanDate(end); err != nil {
		return core.RecurringItem{}, err
	}
	return item, nil
}

func (r *SQLiteRepository) GetRecurringItem(ctx context.Context, id int64) (core.RecurringItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_items WHERE id = ?`, id)
	item, err := scanRecurringItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringItem{}, store.ErrNotFound
	}
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("get recurring item: %w", err)
	}
	return item, nil
}

func (r *SQLiteRepository) ListRecurringItems(ctx context.Context) ([]core.RecurringItem, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_items ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list recurring items: %w", err)
	}
	defer rows.Close()

	var items []core.RecurringItem
	for rows.Next() {
		item, err := scanRecurringItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan recurring item: %w", err)
		}
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *SQLiteRepository) UpdateRecurringItem(ctx context.Context, item core.RecurringItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_items SET
			name = ?, kind = ?, amount_cents = ?, frequency = ?, anchor_kind = ?,
			start_date = ?, last_renewal_date = ?, first_pay_date = ?, second_pay_date = ?, end_date = ?,
			category = ?, notes = ?
		WHERE id = ?`,
		item.Name, string(item.Kind), item.Amount.Cents, string(item.Frequency),
		string(item.Anchor.Kind),
		nullDate(item.Anchor.Start), nullDate(item.Anchor.LastRenewal),
		nullDate(item.Anchor.First), nullDate(item.Anchor.Second), nullDate(item.Anchor.End),
		item.Category, item.Notes, item.ID)
	if err != nil {
		return fmt.Errorf("update recurring item: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteRecurringItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_items WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete recurring item: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) LastMaterialized(ctx context.Context, id int64) (time.Time, error) {
	var ns sql.NullString
	err := r.db.QueryRowContext(ctx,
		`SELECT last_materialized FROM recurring_items WHERE id = ?`, id).Scan(&ns)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last materialized: %w", err)
	}
	d, err := scanDate(ns)
	if err != nil {
		return time.Time{}, err
	}
	return d.Time, nil
}

func (r *SQLiteRepository) MarkMaterialized(ctx context.Context, id int64, occurredOn time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_items SET last_materialized = ? WHERE id = ?`,
		occurredOn.Format(dateLayout), id)
	if err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateDebt(ctx context.Context, debt core.DebtAccount) (int64, error) {
	createdAt := debt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO debts
			(name, kind, balance_cents, apr, minimum_payment_cents, payment_day, payment_frequency, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		debt.Name, string(debt.Kind), debt.Balance.Cents, debt.APR,
		debt.MinimumPayment.Cents, debt.PaymentDay, string(debt.PaymentFrequency),
		createdAt.Format(time.RFC3339))
	if err != nil {
		return 0, fmt.Errorf("insert debt: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

const debtColumns = `id, name, kind, balance_cents, apr, minimum_payment_cents,
	payment_day, payment_frequency, created_at`

func scanDebt(row interface{ Scan(...any) error }) (core.DebtAccount, error) {
	var (
		debt             core.DebtAccount
		kind, freq, when string
	)
	err := row.Scan(&debt.ID, &debt.Name, &kind, &debt.Balance.Cents, &debt.APR,
		&debt.MinimumPayment.Cents, &debt.PaymentDay, &freq, &when)
	if err != nil {
		return core.DebtAccount{}, err
	}
	debt.Kind = core.DebtKind(kind)
	debt.PaymentFrequency = core.PaymentFrequency(freq)
	if debt.CreatedAt, err = parseTimestamp(when); err != nil {
		return core.DebtAccount{}, err
	}
	return debt, nil
}

// parseTimestamp accepts both RFC 3339 and SQLite's datetime('now') format.
func parseTimestamp(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	t, err := time.Parse("2006-01-02 15:04:05", s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return t, nil
}

func (r *SQLiteRepository) GetDebt(ctx context.Context, id int64) (core.DebtAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = ?`, id)
	debt, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DebtAccount{}, store.ErrNotFound
	}
	if err != nil {
		return core.DebtAccount{}, fmt.Errorf("get debt: %w", err)
	}
	return debt, nil
}

func (r *SQLiteRepository) ListDebts(ctx context.Context) ([]core.DebtAccount, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+debtColumns+` FROM debts ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list debts: %w", err)
	}
	defer rows.Close()

	var debts []core.DebtAccount
	for rows.Next() {
		debt, err := scanDebt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan debt: %w", err)
		}
		debts = append(debts, debt)
	}
	return debts, rows.Err()
}

func (r *SQLiteRepository) UpdateDebt(ctx context.Context, debt core.DebtAccount) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE debts SET
			name = ?, kind = ?, balance_cents = ?, apr = ?,
			minimum_payment_cents = ?, payment_day = ?, payment_frequency = ?
		WHERE id = ?`,
		debt.Name, string(debt.Kind), debt.Balance.Cents, debt.APR,
		debt.MinimumPayment.Cents, debt.PaymentDay, string(debt.PaymentFrequency), debt.ID)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteDebt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateGoal(ctx context.Context, goal core.FinancialGoal) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO goals (name, target_cents, saved_cents, monthly_contribution_cents, target_date)
		VALUES (?, ?, ?, ?, ?)`,
		goal.Name, goal.TargetAmount.Cents, goal.SavedAmount.Cents,
		goal.MonthlyContribution.Cents, nullDate(goal.TargetDate))
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListGoals(ctx context.Context) ([]core.FinancialGoal, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, target_cents, saved_cents, monthly_contribution_cents, target_date
		FROM goals ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list goals: %w", err)
	}
	defer rows.Close()

	var goals []core.FinancialGoal
	for rows.Next() {
		var (
			g  core.FinancialGoal
			td sql.NullString
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.SavedAmount.Cents,
			&g.MonthlyContribution.Cents, &td); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		if g.TargetDate, err = scanDate(td); err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *SQLiteRepository) UpdateGoal(ctx context.Context, goal core.FinancialGoal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET
			name = ?, target_cents = ?, saved_cents = ?, monthly_contribution_cents = ?, target_date = ?
		WHERE id = ?`,
		goal.Name, goal.TargetAmount.Cents, goal.SavedAmount.Cents,
		goal.MonthlyContribution.Cents, nullDate(goal.TargetDate), goal.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) UpsertAllocation(ctx context.Context, alloc core.BudgetAllocation) (int64, error) {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO budget_allocations (category, year, month, planned_cents, spent_cents)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (category, year, month)
		DO UPDATE SET planned_cents = excluded.planned_cents, spent_cents = excluded.spent_cents`,
		alloc.Category, alloc.Year, alloc.Month, alloc.Planned.Cents, alloc.Spent.Cents)
	if err != nil {
		return 0, fmt.Errorf("upsert allocation: %w", err)
	}
	var id int64
	err = r.db.QueryRowContext(ctx,
		`SELECT id FROM budget_allocations WHERE category = ? AND year = ? AND month = ?`,
		alloc.Category, alloc.Year, alloc.Month).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("select allocation id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListAllocations(ctx context.Context, year, month int) ([]core.BudgetAllocation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, year, month, planned_cents, spent_cents
		FROM budget_allocations WHERE year = ? AND month = ? ORDER BY id`,
		year, month)
	if err != nil {
		return nil, fmt.Errorf("list allocations: %w", err)
	}
	defer rows.Close()

	var allocs []core.BudgetAllocation
	for rows.Next() {
		var a core.BudgetAllocation
		if err := rows.Scan(&a.ID, &a.Category, &a.Year, &a.Month,
			&a.Planned.Cents, &a.Spent.Cents); err != nil {
			return nil, fmt.Errorf("scan allocation: %w", err)
		}
		allocs = append(allocs, a)
	}
	return allocs, rows.Err()
}

func (r *SQLiteRepository) DeleteAllocation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_allocations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return requireRow(res)
}

func (r *SQLiteRepository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO transactions (tx_date, description, amount_cents, category, recurring_id)
		VALUES (?, ?, ?, ?, ?)`,
		tx.Date.Format(dateLayout), tx.Description, tx.Amount.Cents, tx.Category, tx.RecurringID)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}
	return id, nil
}

func (r *SQLiteRepository) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	prefix := fmt.Sprintf("%04d-%02d-", year, month)
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_date, description, amount_cents, category, recurring_id
		FROM transactions WHERE tx_date LIKE ? ORDER BY tx_date, id`,
		prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx   core.Transaction
			when string
		)
		if err := rows.Scan(&tx.ID, &when, &tx.Description, &tx.Amount.Cents,
			&tx.Category, &tx.RecurringID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		t, err := time.Parse(dateLayout, when)
		if err != nil {
			return nil, fmt.Errorf("parse transaction date %q: %w", when, err)
		}
		tx.Date = core.Date{Time: t}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *SQLiteRepository) SaveForecastSnapshot(ctx context.Context, generatedAt time.Time, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecast_snapshots (id, generated_at, payload)
		VALUES (1, ?, ?)
		ON CONFLICT (id) DO UPDATE SET generated_at = excluded.generated_at, payload = excluded.payload`,
		generatedAt.Format(time.RFC3339), payload)
	if err != nil {
		return fmt.Errorf("save forecast snapshot: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) ForecastSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var (
		when    string
		payload []byte
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT generated_at, payload FROM forecast_snapshots WHERE id = 1`).Scan(&when, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return nil, time.Time{}, fmt.Errorf("get forecast snapshot: %w", err)
	}
	t, err := parseTimestamp(when)
	if err != nil {
		return nil, time.Time{}, err
	}
	return payload, t, nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return store.ErrNotFound
	}
	return nil
}
