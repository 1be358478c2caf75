package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// ErrSyncInProgress is returned when a second run starts before the first ends.
var ErrSyncInProgress = errors.New("category sync already running")

// Sync outcomes reported to the observer.
const (
	OutcomeSuccess = "success"
	OutcomePartial = "partial"
	OutcomeFailed  = "failed"
	OutcomeDryRun  = "dry_run"
)

// SyncObserver receives the result of every run.
type SyncObserver interface {
	ObserveSync(outcome string, report domain.SyncReport, elapsed time.Duration)
}

// SyncOptions tweak a single run.
type SyncOptions struct {
	// Source overrides the configured dataset URI.
	Source string
	// DryRun loads, normalizes and validates without writing.
	DryRun bool
	// DeactivateStale runs the reconciliation pass after the upsert.
	DeactivateStale bool
}

// Syncer wires loader, normalizer, upserter and store into one run.
type Syncer struct {
	Loader     RecordLoader
	Store      store.CategoryStore
	Normalizer Normalizer
	Upserter   *Upserter

	// Optional collaborators.
	Cache    CacheInvalidator
	Observer SyncObserver

	// Source is the default dataset URI.
	Source string
	// Timeout bounds a whole run; zero means no limit.
	Timeout time.Duration

	running sync.Mutex
}

// Sync runs Load → Normalize → Upsert (→ Reconcile) and returns the report.
// Only a source failure, a reconcile failure or a concurrent run produce an
// error; per-record failures are counted in the report. When a later step
// fails after rows were written, the report is returned with the error.
func (s *Syncer) Sync(ctx context.Context, opts SyncOptions) (*domain.SyncReport, error) {
	if !s.running.TryLock() {
		return nil, ErrSyncInProgress
	}
	defer s.running.Unlock()

	if s.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.Timeout)
		defer cancel()
	}

	state := &SyncState{Source: s.Source}
	if opts.Source != "" {
		state.Source = opts.Source
	}

	log := logger.WithFields(logger.FromContext(ctx), map[string]interface{}{
		"sync_id":          uuid.New().String(),
		"source":           state.Source,
		"dry_run":          opts.DryRun,
		"deactivate_stale": opts.DeactivateStale,
	})
	ctx = logger.WithContext(ctx, log)

	started := time.Now()
	log.Info().Msg("Starting category sync")

	err := s.pipelineFor(opts).Execute(ctx, state)
	elapsed := time.Since(started)

	outcome := outcomeOf(state.Report, opts, err)
	if s.Observer != nil {
		s.Observer.ObserveSync(outcome, state.Report, elapsed)
	}

	if err != nil {
		log.Error().Err(err).Dur("elapsed", elapsed).Msg("Category sync failed")
		if !state.Written {
			return nil, fmt.Errorf("Sync: %w", err)
		}
		if s.Cache != nil {
			_ = (&InvalidateCacheStep{Cache: s.Cache}).Execute(ctx, state)
		}
		return &state.Report, fmt.Errorf("Sync: %w", err)
	}

	log.Info().
		Str("outcome", outcome).
		Int("total", state.Report.Total).
		Int("success", state.Report.Success).
		Int("errors", state.Report.Errors).
		Dur("elapsed", elapsed).
		Msg("Category sync finished")

	return &state.Report, nil
}

func (s *Syncer) pipelineFor(opts SyncOptions) *Pipeline {
	steps := []PipelineStep{
		&LoadStep{Loader: s.Loader},
		&NormalizeStep{Normalizer: s.Normalizer},
	}

	if opts.DryRun {
		return NewPipeline(append(steps, &ValidateStep{Upserter: s.Upserter})...)
	}

	steps = append(steps, &UpsertStep{Upserter: s.Upserter})
	if opts.DeactivateStale {
		steps = append(steps, &ReconcileStep{Store: s.Store})
	}
	if s.Cache != nil {
		steps = append(steps, &InvalidateCacheStep{Cache: s.Cache})
	}
	return NewPipeline(steps...)
}

func outcomeOf(report domain.SyncReport, opts SyncOptions, err error) string {
	switch {
	case err != nil:
		return OutcomeFailed
	case opts.DryRun:
		return OutcomeDryRun
	case report.Errors > 0:
		return OutcomePartial
	default:
		return OutcomeSuccess
	}
}

// CompareCounts reports the raw (pre-dedup) source length next to the exact
// destination row count. A destination without a table counts as zero.
func (s *Syncer) CompareCounts(ctx context.Context, source string) (domain.Counts, error) {
	if source == "" {
		source = s.Source
	}

	raw, err := s.Loader.Load(ctx, source)
	if err != nil {
		return domain.Counts{}, fmt.Errorf("CompareCounts: %w", err)
	}

	n, err := s.Store.CountCategories(ctx)
	switch {
	case errors.Is(err, store.ErrSchemaNotReady):
		n = 0
	case err != nil:
		return domain.Counts{}, fmt.Errorf("CompareCounts: count destination: %w", err)
	}

	counts := domain.Counts{Source: len(raw), Destination: n}
	if counts.Drift() {
		log := logger.FromContext(ctx)
		log.Warn().
			Int("source_count", counts.Source).
			Int64("destination_count", counts.Destination).
			Msg("Category count drift detected")
	}
	return counts, nil
}
