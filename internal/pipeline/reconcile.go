package pipeline

import (
	"context"
	"errors"
	"fmt"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// ErrEmptySource stops a reconciliation that would deactivate every row.
var ErrEmptySource = errors.New("refusing to reconcile against an empty source")

// Reconcile aligns is_active with the latest source: active rows whose id
// is missing from records are deactivated, inactive rows whose id is
// present are reactivated. Rows are never deleted.
func Reconcile(ctx context.Context, st store.ActivityStore, records []domain.NormalizedCategory) (*domain.ReconcileReport, error) {
	log := logger.FromContext(ctx)

	present := make(map[int64]struct{}, len(records))
	for _, rec := range records {
		if rec.SourceID > 0 {
			present[rec.SourceID] = struct{}{}
		}
	}
	if len(present) == 0 {
		return nil, fmt.Errorf("Reconcile: %w", ErrEmptySource)
	}

	rows, err := st.ListActivity(ctx)
	if err != nil {
		return nil, fmt.Errorf("Reconcile: list activity: %w", err)
	}

	var stale, revived []int64
	for _, row := range rows {
		_, inSource := present[row.SourceID]
		switch {
		case row.IsActive && !inSource:
			stale = append(stale, row.SourceID)
		case !row.IsActive && inSource:
			revived = append(revived, row.SourceID)
		}
	}

	report := &domain.ReconcileReport{}

	if len(stale) > 0 {
		n, err := st.SetActive(ctx, stale, false)
		if err != nil {
			return nil, fmt.Errorf("Reconcile: deactivate %d rows: %w", len(stale), err)
		}
		report.Deactivated = n
	}
	if len(revived) > 0 {
		n, err := st.SetActive(ctx, revived, true)
		if err != nil {
			return report, fmt.Errorf("Reconcile: reactivate %d rows: %w", len(revived), err)
		}
		report.Reactivated = n
	}

	log.Info().
		Int("destination_rows", len(rows)).
		Int64("deactivated", report.Deactivated).
		Int64("reactivated", report.Reactivated).
		Msg("Reconciled category activity")

	return report, nil
}
