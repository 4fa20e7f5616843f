// Package worker runs the background side of the planner: consuming
// refresh messages and keeping the forecast snapshot warm.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"fintrack/internal/amqp"
	"fintrack/internal/services"
)

// PlanWorker reacts to plan refresh messages by invalidating cached
// payoff plans and recomputing the stored forecast. A periodic sweep
// refreshes the snapshot even when messages are lost.
type PlanWorker struct {
	planner       *services.PlannerService
	bus           *amqp.Client
	sweepInterval time.Duration
}

func NewPlanWorker(planner *services.PlannerService, bus *amqp.Client, sweepInterval time.Duration) *PlanWorker {
	if sweepInterval <= 0 {
		sweepInterval = time.Hour
	}
	return &PlanWorker{
		planner:       planner,
		bus:           bus,
		sweepInterval: sweepInterval,
	}
}

// HandleRefresh processes one plan refresh message.
func (w *PlanWorker) HandleRefresh(ctx context.Context, msg *amqp.PlanRefreshMessage) error {
	slog.InfoContext(ctx, "Handling plan refresh",
		"entity", msg.Entity,
		"id", msg.ID,
		"reason", msg.Reason)

	if err := w.planner.InvalidatePlans(ctx); err != nil {
		return fmt.Errorf("invalidate plans: %w", err)
	}
	if err := w.planner.RefreshForecastSnapshot(ctx, time.Now()); err != nil {
		return fmt.Errorf("refresh forecast snapshot: %w", err)
	}
	return nil
}

// Run blocks until ctx is cancelled, consuming refresh messages and
// sweeping the forecast snapshot periodically.
func (w *PlanWorker) Run(ctx context.Context) error {
	// Warm the snapshot before consuming so a fresh deployment serves a
	// forecast immediately.
	if err := w.planner.RefreshForecastSnapshot(ctx, time.Now()); err != nil {
		slog.ErrorContext(ctx, "Initial forecast refresh failed", "error", err)
	}

	g, ctx := errgroup.WithContext(ctx)

	if w.bus != nil {
		g.Go(func() error {
			return w.bus.ConsumePlanRefresh(ctx, func(msg *amqp.PlanRefreshMessage) error {
				return w.HandleRefresh(ctx, msg)
			})
		})
	}

	g.Go(func() error {
		ticker := time.NewTicker(w.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-ticker.C:
				if err := w.planner.RefreshForecastSnapshot(ctx, time.Now()); err != nil {
					slog.ErrorContext(ctx, "Periodic forecast refresh failed", "error", err)
				}
			}
		}
	})

	return g.Wait()
}
