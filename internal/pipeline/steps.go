package pipeline

import (
	"context"
	"fmt"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// PipelineStep represents a single step of a sync run.
type PipelineStep interface {
	Execute(ctx context.Context, state *SyncState) error
}

// SyncState holds the shared state across all pipeline steps.
type SyncState struct {
	Source     string
	Raw        []domain.SourceCategoryRecord
	Normalized []domain.NormalizedCategory
	Report     domain.SyncReport
	// Written is set once the upsert step has run against the store.
	Written bool
}

// RecordLoader reads the raw dataset behind a source URI.
type RecordLoader interface {
	Load(ctx context.Context, uri string) ([]domain.SourceCategoryRecord, error)
}

// CacheInvalidator drops cached read results after a write.
type CacheInvalidator interface {
	Bump(ctx context.Context) error
}

// LoadStep reads the source dataset.
type LoadStep struct {
	Loader RecordLoader
}

func (s *LoadStep) Execute(ctx context.Context, state *SyncState) error {
	raw, err := s.Loader.Load(ctx, state.Source)
	if err != nil {
		return err
	}
	state.Raw = raw
	return nil
}

// NormalizeStep deduplicates and derives destination rows.
type NormalizeStep struct {
	Normalizer Normalizer
}

func (s *NormalizeStep) Execute(ctx context.Context, state *SyncState) error {
	state.Normalized = s.Normalizer.Normalize(state.Raw)
	log := logger.FromContext(ctx)
	log.Info().
		Int("raw", len(state.Raw)).
		Int("normalized", len(state.Normalized)).
		Msg("Normalized category records")
	return nil
}

// ValidateStep fills the report without writing anything. Used for dry runs.
type ValidateStep struct {
	Upserter *Upserter
}

func (s *ValidateStep) Execute(_ context.Context, state *SyncState) error {
	valid, failed := s.Upserter.Validate(state.Normalized)

	details := failed
	if len(details) > s.Upserter.errorDetailLimit {
		details = details[:s.Upserter.errorDetailLimit]
	}
	if details == nil {
		details = []domain.RecordError{}
	}

	state.Report = domain.SyncReport{
		Total:        len(state.Normalized),
		Success:      len(valid),
		Errors:       len(failed),
		ErrorDetails: details,
		DryRun:       true,
	}
	return nil
}

// UpsertStep writes the normalized rows. Record failures end up in the
// report, never in the returned error.
type UpsertStep struct {
	Upserter *Upserter
}

func (s *UpsertStep) Execute(ctx context.Context, state *SyncState) error {
	state.Report = s.Upserter.Upsert(ctx, state.Normalized)
	state.Written = true
	return nil
}

// ReconcileStep flips is_active for rows that left or re-entered the source.
type ReconcileStep struct {
	Store store.ActivityStore
}

func (s *ReconcileStep) Execute(ctx context.Context, state *SyncState) error {
	rep, err := Reconcile(ctx, s.Store, state.Normalized)
	if rep != nil {
		state.Report.Reconcile = rep
	}
	return err
}

// InvalidateCacheStep bumps the read cache version. A cache failure is
// logged and does not fail the sync.
type InvalidateCacheStep struct {
	Cache CacheInvalidator
}

func (s *InvalidateCacheStep) Execute(ctx context.Context, _ *SyncState) error {
	if err := s.Cache.Bump(ctx); err != nil {
		log := logger.FromContext(ctx)
		log.Warn().Err(err).Msg("Failed to invalidate category cache")
	}
	return nil
}

// Pipeline executes a sequence of steps in order.
type Pipeline struct {
	steps []PipelineStep
}

// NewPipeline creates a new pipeline with the given steps.
func NewPipeline(steps ...PipelineStep) *Pipeline {
	return &Pipeline{steps: steps}
}

// Execute runs all steps in the pipeline sequentially.
func (p *Pipeline) Execute(ctx context.Context, state *SyncState) error {
	for i, step := range p.steps {
		if err := step.Execute(ctx, state); err != nil {
			return fmt.Errorf("pipeline step %d failed: %w", i+1, err)
		}
	}
	return nil
}
