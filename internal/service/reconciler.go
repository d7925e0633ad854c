package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"pariposhan/internal/models"
	"pariposhan/internal/notifications"
	"pariposhan/internal/observability"
	"pariposhan/internal/repository"
)

const defaultReconcileBatch = 200

// SweepReport summarizes one reconciliation pass.
type SweepReport struct {
	ItemsChecked    int                       `json:"items_checked"`
	ProductsChecked int                       `json:"products_checked"`
	Corrections     []repository.CounterDrift `json:"corrections"`
	StartedAt       time.Time                 `json:"started_at"`
	Duration        time.Duration             `json:"duration_ns"`
}

// CounterReconciler treats the reaction, comment and review ledgers as the
// source of truth and rewrites denormalized counters that drifted from them.
type CounterReconciler struct {
	counters  repository.CounterRepository
	batchSize int
	pub       Publisher

	// One sweep at a time per process.
	sweepMu sync.Mutex
}

func NewCounterReconciler(counters repository.CounterRepository, batchSize int, pub Publisher) *CounterReconciler {
	if batchSize <= 0 {
		batchSize = defaultReconcileBatch
	}
	return &CounterReconciler{counters: counters, batchSize: batchSize, pub: orNop(pub)}
}

// ReconcileItem recounts likes and comments of one item of any kind.
func (r *CounterReconciler) ReconcileItem(ctx context.Context, ref models.ItemRef) ([]repository.CounterDrift, error) {
	if !ref.Kind.Valid() {
		return nil, models.NewValidationError("invalid item kind")
	}
	drifts, err := r.counters.RecountItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	r.record(ctx, ref, drifts)
	return drifts, nil
}

// ReconcileProduct recounts a product's likes, comments and rating aggregate.
func (r *CounterReconciler) ReconcileProduct(ctx context.Context, productID uint) ([]repository.CounterDrift, error) {
	ref := models.ItemRef{Kind: models.ItemKindProduct, ID: productID}
	drifts, err := r.counters.RecountItem(ctx, ref)
	if err != nil {
		return nil, err
	}
	ratings, err := r.counters.RecountRatings(ctx, productID)
	if err != nil {
		return nil, err
	}
	drifts = append(drifts, ratings...)
	r.record(ctx, ref, drifts)
	return drifts, nil
}

func (r *CounterReconciler) record(ctx context.Context, ref models.ItemRef, drifts []repository.CounterDrift) {
	if len(drifts) == 0 {
		return
	}
	for _, d := range drifts {
		observability.CounterDriftCorrections.WithLabelValues(d.Counter).Inc()
		slog.WarnContext(ctx, "counter drift corrected",
			slog.String("item", d.Ref.String()),
			slog.String("counter", d.Counter),
			slog.Int64("cached", d.Cached),
			slog.Int64("ledger", d.Ledger))
	}
	publish(ctx, r.pub, notifications.ItemTopic(ref), notifications.EventCountersReconciled, drifts)
}

// Sweep walks every item and product in id order, batch by batch. A
// cancelled context stops the sweep between rows.
func (r *CounterReconciler) Sweep(ctx context.Context) (*SweepReport, error) {
	r.sweepMu.Lock()
	defer r.sweepMu.Unlock()

	report := &SweepReport{StartedAt: time.Now().UTC(), Corrections: []repository.CounterDrift{}}
	observability.LogAsyncOperationStart(ctx, "counter_sweep", map[string]any{"batch_size": r.batchSize})

	var after uint
	for {
		refs, err := r.counters.ItemRefs(ctx, after, r.batchSize)
		if err != nil {
			observability.LogAsyncOperationError(ctx, "counter_sweep", err, nil)
			return nil, err
		}
		for _, ref := range refs {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			drifts, err := r.ReconcileItem(ctx, ref)
			if err != nil && !models.IsNotFound(err) {
				return nil, err
			}
			report.ItemsChecked++
			report.Corrections = append(report.Corrections, drifts...)
			after = ref.ID
		}
		if len(refs) < r.batchSize {
			break
		}
	}

	after = 0
	for {
		ids, err := r.counters.ProductIDs(ctx, after, r.batchSize)
		if err != nil {
			observability.LogAsyncOperationError(ctx, "counter_sweep", err, nil)
			return nil, err
		}
		for _, id := range ids {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			drifts, err := r.ReconcileProduct(ctx, id)
			if err != nil && !models.IsNotFound(err) {
				return nil, err
			}
			report.ProductsChecked++
			report.Corrections = append(report.Corrections, drifts...)
			after = id
		}
		if len(ids) < r.batchSize {
			break
		}
	}

	report.Duration = time.Since(report.StartedAt)
	observability.LogAsyncOperationEnd(ctx, "counter_sweep", map[string]any{
		"items":       report.ItemsChecked,
		"products":    report.ProductsChecked,
		"corrections": len(report.Corrections),
		"duration_ms": report.Duration.Milliseconds(),
	})
	return report, nil
}

// Run sweeps every interval until ctx is done. A non-positive interval
// disables the loop.
func (r *CounterReconciler) Run(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		slog.InfoContext(ctx, "counter reconciler disabled")
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := r.Sweep(ctx); err != nil && ctx.Err() == nil {
				slog.ErrorContext(ctx, "counter sweep failed", slog.String("error", err.Error()))
			}
		}
	}
}
