// Package postgres is the hosted-Postgres implementation of store.Store,
// used when the planner runs against a managed database instead of a
// local SQLite file.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"fintrack/internal/core"
	"fintrack/internal/store"
)

type Repository struct {
	db *sql.DB
}

var _ store.Store = (*Repository)(nil)

func NewRepository(dsn string) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func nullDate(d core.Date) sql.NullTime {
	if d.IsZero() {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}

func dateOf(nt sql.NullTime) core.Date {
	if !nt.Valid {
		return core.Date{}
	}
	return core.Date{Time: nt.Time}
}

func (r *Repository) CreateRecurringItem(ctx context.Context, item core.RecurringItem) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO recurring_items
			(name, kind, amount_cents, frequency, anchor_kind,
			 start_date, last_renewal_date, first_pay_date, second_pay_date, end_date,
			 category, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id`,
		item.Name, string(item.Kind), item.Amount.Cents, string(item.Frequency),
		string(item.Anchor.Kind),
		nullDate(item.Anchor.Start), nullDate(item.Anchor.LastRenewal),
		nullDate(item.Anchor.First), nullDate(item.Anchor.Second), nullDate(item.Anchor.End),
		item.Category, item.Notes).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert recurring item: %w", err)
	}
	return id, nil
}

const recurringColumns = `id, name, kind, amount_cents, frequency, anchor_kind,
	start_date, last_renewal_date, first_pay_date, second_pay_date, end_date,
	category, notes`

func scanRecurringItem(row interface{ Scan(...any) error }) (core.RecurringItem, error) {
	var (
		item                               core.RecurringItem
		kind, freq, anchorKind             string
		start, renewal, first, second, end sql.NullTime
	)
	err := row.Scan(&item.ID, &item.Name, &kind, &item.Amount.Cents, &freq, &anchorKind,
		&start, &renewal, &first, &second, &end, &item.Category, &item.Notes)
	if err != nil {
		return core.RecurringItem{}, err
	}
	item.Kind = core.ItemKind(kind)
	item.Frequency = core.Frequency(freq)
	item.Anchor.Kind = core.AnchorKind(anchorKind)
	item.Anchor.Start = dateOf(start)
	item.Anchor.LastRenewal = dateOf(renewal)
	item.Anchor.First = dateOf(first)
	item.Anchor.Second = dateOf(second)
	item.Anchor.End = dateOf(end)
	return item, nil
}

func (r *Repository) GetRecurringItem(ctx context.Context, id int64) (core.RecurringItem, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_items WHERE id = $1`, id)
	item, err := scanRecurringItem(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.RecurringItem{}, store.ErrNotFound
	}
	if err != nil {
		return core.RecurringItem{}, fmt.Errorf("get recurring item: %w", err)
	}
	return item, nil
}

func (r *Repository) ListRecurringItems(ctx context.Context) ([]core.RecurringItem, error) {
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

func (r *Repository) UpdateRecurringItem(ctx context.Context, item core.RecurringItem) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE recurring_items SET
			name = $1, kind = $2, amount_cents = $3, frequency = $4, anchor_kind = $5,
			start_date = $6, last_renewal_date = $7, first_pay_date = $8, second_pay_date = $9,
			end_date = $10, category = $11, notes = $12
		WHERE id = $13`,
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

func (r *Repository) DeleteRecurringItem(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM recurring_items WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete recurring item: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) LastMaterialized(ctx context.Context, id int64) (time.Time, error) {
	var nt sql.NullTime
	err := r.db.QueryRowContext(ctx,
		`SELECT last_materialized FROM recurring_items WHERE id = $1`, id).Scan(&nt)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, store.ErrNotFound
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("get last materialized: %w", err)
	}
	if !nt.Valid {
		return time.Time{}, nil
	}
	return nt.Time, nil
}

func (r *Repository) MarkMaterialized(ctx context.Context, id int64, occurredOn time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE recurring_items SET last_materialized = $1 WHERE id = $2`,
		occurredOn, id)
	if err != nil {
		return fmt.Errorf("mark materialized: %w", err)
	}
	return requireRow(res)
}

const debtColumns = `id, name, kind, balance_cents, apr, minimum_payment_cents,
	payment_day, payment_frequency, created_at`

func (r *Repository) CreateDebt(ctx context.Context, debt core.DebtAccount) (int64, error) {
	createdAt := debt.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO debts
			(name, kind, balance_cents, apr, minimum_payment_cents, payment_day, payment_frequency, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id`,
		debt.Name, string(debt.Kind), debt.Balance.Cents, debt.APR,
		debt.MinimumPayment.Cents, debt.PaymentDay, string(debt.PaymentFrequency),
		createdAt).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert debt: %w", err)
	}
	return id, nil
}

func scanDebt(row interface{ Scan(...any) error }) (core.DebtAccount, error) {
	var (
		debt       core.DebtAccount
		kind, freq string
	)
	err := row.Scan(&debt.ID, &debt.Name, &kind, &debt.Balance.Cents, &debt.APR,
		&debt.MinimumPayment.Cents, &debt.PaymentDay, &freq, &debt.CreatedAt)
	if err != nil {
		return core.DebtAccount{}, err
	}
	debt.Kind = core.DebtKind(kind)
	debt.PaymentFrequency = core.PaymentFrequency(freq)
	return debt, nil
}

func (r *Repository) GetDebt(ctx context.Context, id int64) (core.DebtAccount, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+debtColumns+` FROM debts WHERE id = $1`, id)
	debt, err := scanDebt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.DebtAccount{}, store.ErrNotFound
	}
	if err != nil {
		return core.DebtAccount{}, fmt.Errorf("get debt: %w", err)
	}
	return debt, nil
}

func (r *Repository) ListDebts(ctx context.Context) ([]core.DebtAccount, error) {
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

func (r *Repository) UpdateDebt(ctx context.Context, debt core.DebtAccount) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE debts SET
			name = $1, kind = $2, balance_cents = $3, apr = $4,
			minimum_payment_cents = $5, payment_day = $6, payment_frequency = $7
		WHERE id = $8`,
		debt.Name, string(debt.Kind), debt.Balance.Cents, debt.APR,
		debt.MinimumPayment.Cents, debt.PaymentDay, string(debt.PaymentFrequency), debt.ID)
	if err != nil {
		return fmt.Errorf("update debt: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteDebt(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete debt: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) CreateGoal(ctx context.Context, goal core.FinancialGoal) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO goals (name, target_cents, saved_cents, monthly_contribution_cents, target_date)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		goal.Name, goal.TargetAmount.Cents, goal.SavedAmount.Cents,
		goal.MonthlyContribution.Cents, nullDate(goal.TargetDate)).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert goal: %w", err)
	}
	return id, nil
}

func (r *Repository) ListGoals(ctx context.Context) ([]core.FinancialGoal, error) {
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
			td sql.NullTime
		)
		if err := rows.Scan(&g.ID, &g.Name, &g.TargetAmount.Cents, &g.SavedAmount.Cents,
			&g.MonthlyContribution.Cents, &td); err != nil {
			return nil, fmt.Errorf("scan goal: %w", err)
		}
		g.TargetDate = dateOf(td)
		goals = append(goals, g)
	}
	return goals, rows.Err()
}

func (r *Repository) UpdateGoal(ctx context.Context, goal core.FinancialGoal) error {
	res, err := r.db.ExecContext(ctx, `
		UPDATE goals SET
			name = $1, target_cents = $2, saved_cents = $3,
			monthly_contribution_cents = $4, target_date = $5
		WHERE id = $6`,
		goal.Name, goal.TargetAmount.Cents, goal.SavedAmount.Cents,
		goal.MonthlyContribution.Cents, nullDate(goal.TargetDate), goal.ID)
	if err != nil {
		return fmt.Errorf("update goal: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) DeleteGoal(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM goals WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete goal: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) UpsertAllocation(ctx context.Context, alloc core.BudgetAllocation) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO budget_allocations (category, year, month, planned_cents, spent_cents)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (category, year, month)
		DO UPDATE SET planned_cents = EXCLUDED.planned_cents, spent_cents = EXCLUDED.spent_cents
		RETURNING id`,
		alloc.Category, alloc.Year, alloc.Month, alloc.Planned.Cents, alloc.Spent.Cents).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("upsert allocation: %w", err)
	}
	return id, nil
}

func (r *Repository) ListAllocations(ctx context.Context, year, month int) ([]core.BudgetAllocation, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, category, year, month, planned_cents, spent_cents
		FROM budget_allocations WHERE year = $1 AND month = $2 ORDER BY id`,
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

func (r *Repository) DeleteAllocation(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM budget_allocations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete allocation: %w", err)
	}
	return requireRow(res)
}

func (r *Repository) CreateTransaction(ctx context.Context, tx core.Transaction) (int64, error) {
	var id int64
	err := r.db.QueryRowContext(ctx, `
		INSERT INTO transactions (tx_date, description, amount_cents, category, recurring_id)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		tx.Date.Time, tx.Description, tx.Amount.Cents, tx.Category, tx.RecurringID).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert transaction: %w", err)
	}
	return id, nil
}

func (r *Repository) ListTransactions(ctx context.Context, year, month int) ([]core.Transaction, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, tx_date, description, amount_cents, category, recurring_id
		FROM transactions
		WHERE date_part('year', tx_date) = $1 AND date_part('month', tx_date) = $2
		ORDER BY tx_date, id`,
		year, month)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	defer rows.Close()

	var txs []core.Transaction
	for rows.Next() {
		var (
			tx   core.Transaction
			when time.Time
		)
		if err := rows.Scan(&tx.ID, &when, &tx.Description, &tx.Amount.Cents,
			&tx.Category, &tx.RecurringID); err != nil {
			return nil, fmt.Errorf("scan transaction: %w", err)
		}
		tx.Date = core.Date{Time: when}
		txs = append(txs, tx)
	}
	return txs, rows.Err()
}

func (r *Repository) SaveForecastSnapshot(ctx context.Context, generatedAt time.Time, payload []byte) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO forecast_snapshots (id, generated_at, payload)
		VALUES (1, $1, $2)
		ON CONFLICT (id) DO UPDATE SET generated_at = EXCLUDED.generated_at, payload = EXCLUDED.payload`,
		generatedAt, payload)
	if err != nil {
		return fmt.Errorf("save forecast snapshot: %w", err)
	}
	return nil
}

func (r *Repository) ForecastSnapshot(ctx context.Context) ([]byte, time.Time, error) {
	var (
		when    time.Time
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
	return payload, when, nil
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
