package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"fintrack/internal/core"
	"fintrack/internal/projection"
	"fintrack/internal/store"
)

// maxCatchUpOccurrences bounds how many missed occurrences one item can
// backfill in a single run, so a daily item that sat unprocessed for
// years cannot stall the worker.
const maxCatchUpOccurrences = 500

// Materializer turns due recurring items into concrete transactions.
// Each occurrence up to the processing date becomes one transaction,
// recorded against the item so reruns are idempotent.
type Materializer struct {
	store   store.Store
	planner *PlannerService
}

// NewMaterializer creates a materializer. The planner is used to notify
// downstream consumers after each created transaction; it may be nil.
func NewMaterializer(st store.Store, planner *PlannerService) *Materializer {
	return &Materializer{
		store:   st,
		planner: planner,
	}
}

// ProcessDueItems materializes every occurrence due on or before now and
// returns the number of transactions created.
func (m *Materializer) ProcessDueItems(ctx context.Context, now time.Time) (int, error) {
	if m.store == nil {
		return 0, fmt.Errorf("materializer not properly initialized")
	}

	items, err := m.store.ListRecurringItems(ctx)
	if err != nil {
		return 0, fmt.Errorf("list recurring items: %w", err)
	}

	slog.InfoContext(ctx, "Processing recurring items",
		"total", len(items),
		"processing_date", now.Format("2006-01-02"))

	created := 0
	for _, item := range items {
		n, err := m.processItem(ctx, item, now)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to materialize recurring item",
				"id", item.ID,
				"name", item.Name,
				"error", err)
			continue
		}
		created += n
	}

	if created > 0 && m.planner != nil {
		m.planner.NotifyChange(ctx, "transaction", 0, "materialized recurring items")
	}

	slog.InfoContext(ctx, "Recurring item processing complete",
		"created", created,
		"total_checked", len(items))
	return created, nil
}

func (m *Materializer) processItem(ctx context.Context, item core.RecurringItem, now time.Time) (int, error) {
	last, err := m.store.LastMaterialized(ctx, item.ID)
	if err != nil {
		return 0, fmt.Errorf("get last materialized: %w", err)
	}

	cursor := firstCursor(item, last)
	created := 0
	for i := 0; i < maxCatchUpOccurrences; i++ {
		occ, err := projection.NextOccurrence(item, cursor)
		if err != nil {
			return created, err
		}
		if occ.Ended || occ.Date.After(now) {
			break
		}

		tx := core.Transaction{
			Date:        core.Date{Time: occ.Date},
			Description: item.Name,
			Amount:      item.Amount,
			Category:    item.Category,
			RecurringID: item.ID,
		}
		if _, err := m.store.CreateTransaction(ctx, tx); err != nil {
			return created, fmt.Errorf("create transaction: %w", err)
		}
		if err := m.store.MarkMaterialized(ctx, item.ID, occ.Date); err != nil {
			// The transaction exists; log and stop so the next run does
			// not duplicate it against a stale marker.
			return created, fmt.Errorf("mark materialized: %w", err)
		}

		created++
		slog.InfoContext(ctx, "Materialized recurring occurrence",
			"id", item.ID,
			"name", item.Name,
			"date", occ.Date.Format("2006-01-02"),
			"amount_cents", item.Amount.Cents)

		cursor = occ.Date.AddDate(0, 0, 1)
	}
	return created, nil
}

// firstCursor is the earliest date whose occurrence has not been
// materialized yet. Renewal anchors point at a renewal that already
// happened, so a never-processed subscription starts the day after it.
func firstCursor(item core.RecurringItem, last time.Time) time.Time {
	if !last.IsZero() {
		return last.AddDate(0, 0, 1)
	}
	a := item.Anchor
	switch a.Kind {
	case core.AnchorRenewal:
		return a.LastRenewal.AddDate(0, 0, 1)
	case core.AnchorSemiMonthly:
		return a.First.Time
	default:
		return a.Start.Time
	}
}
