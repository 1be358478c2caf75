package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// ErrInvalidRecord marks a record rejected before it reached the store.
var ErrInvalidRecord = errors.New("invalid category record")

const (
	// BatchSize is the default number of rows per store call.
	BatchSize = 100
	// DefaultErrorDetailLimit caps SyncReport.ErrorDetails.
	DefaultErrorDetailLimit = 10
	// progressEvery is the logging interval in records.
	progressEvery = 100
)

var validate = validator.New()

// Upserter writes normalized rows with per-record error isolation.
type Upserter struct {
	writer           store.CategoryWriter
	batchSize        int
	workers          int
	errorDetailLimit int
}

// UpserterOption configures an Upserter.
type UpserterOption func(*Upserter)

// WithBatchSize sets rows per batch.
func WithBatchSize(n int) UpserterOption {
	return func(u *Upserter) {
		if n > 0 {
			u.batchSize = n
		}
	}
}

// WithWorkers sets how many batches are written concurrently.
func WithWorkers(n int) UpserterOption {
	return func(u *Upserter) {
		if n > 0 {
			u.workers = n
		}
	}
}

// WithErrorDetailLimit caps the error list in the report.
func WithErrorDetailLimit(n int) UpserterOption {
	return func(u *Upserter) {
		if n >= 0 {
			u.errorDetailLimit = n
		}
	}
}

// NewUpserter creates an Upserter over w.
func NewUpserter(w store.CategoryWriter, opts ...UpserterOption) *Upserter {
	u := &Upserter{
		writer:           w,
		batchSize:        BatchSize,
		workers:          1,
		errorDetailLimit: DefaultErrorDetailLimit,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

// indexedError keeps failures sortable back into source order.
type indexedError struct {
	index int
	domain.RecordError
}

// Validate checks every record without writing. It returns the indexes of
// the valid rows and the failures in input order.
func (u *Upserter) Validate(records []domain.NormalizedCategory) ([]int, []domain.RecordError) {
	valid := make([]int, 0, len(records))
	var failed []domain.RecordError
	for i, rec := range records {
		if err := validateRecord(rec); err != nil {
			failed = append(failed, domain.RecordError{SourceID: rec.SourceID, Message: err.Error()})
			continue
		}
		valid = append(valid, i)
	}
	return valid, failed
}

// Upsert writes records in batches. A failed batch is retried one row at a
// time so each failure is attributed to its source id. It never aborts:
// the report always accounts for every record.
func (u *Upserter) Upsert(ctx context.Context, records []domain.NormalizedCategory) domain.SyncReport {
	log := logger.FromContext(ctx)

	var (
		mu        sync.Mutex
		failures  []indexedError
		succeeded int
		processed int
	)

	fail := func(index int, rec domain.NormalizedCategory, err error) {
		failures = append(failures, indexedError{
			index:       index,
			RecordError: domain.RecordError{SourceID: rec.SourceID, Message: err.Error()},
		})
		log.Warn().Err(err).Int64("source_id", rec.SourceID).Msg("Category upsert failed")
	}

	validIdx, _ := u.Validate(records)
	isValid := make(map[int]bool, len(validIdx))
	for _, i := range validIdx {
		isValid[i] = true
	}
	for i, rec := range records {
		if !isValid[i] {
			fail(i, rec, validateRecord(rec))
		}
	}

	log.Info().
		Int("total", len(records)).
		Int("valid", len(validIdx)).
		Int("batch_size", u.batchSize).
		Int("workers", u.workers).
		Msg("Starting category upsert")

	g := new(errgroup.Group)
	g.SetLimit(u.workers)

	for start := 0; start < len(validIdx); start += u.batchSize {
		end := start + u.batchSize
		if end > len(validIdx) {
			end = len(validIdx)
		}
		batchIdx := validIdx[start:end]
		batchStart := start

		g.Go(func() error {
			ok, errs := u.writeBatch(ctx, records, batchIdx)

			mu.Lock()
			defer mu.Unlock()

			succeeded += ok
			for _, e := range errs {
				fail(e.index, records[e.index], e.err)
			}

			before := processed
			processed += len(batchIdx)
			if processed/progressEvery > before/progressEvery || processed == len(validIdx) {
				log.Info().
					Int("processed", processed).
					Int("total", len(validIdx)).
					Int("batch_start", batchStart).
					Msg("Category upsert progress")
			}
			return nil
		})
	}
	_ = g.Wait()

	sort.Slice(failures, func(i, j int) bool { return failures[i].index < failures[j].index })

	report := domain.SyncReport{
		Total:        len(records),
		Success:      succeeded,
		Errors:       len(failures),
		ErrorDetails: make([]domain.RecordError, 0, min(len(failures), u.errorDetailLimit)),
	}
	for _, f := range failures {
		if len(report.ErrorDetails) >= u.errorDetailLimit {
			break
		}
		report.ErrorDetails = append(report.ErrorDetails, f.RecordError)
	}

	log.Info().
		Int("total", report.Total).
		Int("success", report.Success).
		Int("errors", report.Errors).
		Msg("Category upsert finished")

	return report
}

type batchFailure struct {
	index int
	err   error
}

// writeBatch returns how many rows landed and the per-row failures.
func (u *Upserter) writeBatch(ctx context.Context, records []domain.NormalizedCategory, idx []int) (int, []batchFailure) {
	if err := ctx.Err(); err != nil {
		failures := make([]batchFailure, 0, len(idx))
		for _, i := range idx {
			failures = append(failures, batchFailure{index: i, err: err})
		}
		return 0, failures
	}

	batch := make([]domain.NormalizedCategory, 0, len(idx))
	for _, i := range idx {
		batch = append(batch, records[i])
	}

	err := u.writer.UpsertCategories(ctx, batch)
	if err == nil {
		return len(batch), nil
	}

	log := logger.FromContext(ctx)
	log.Warn().
		Err(err).
		Int("batch_size", len(batch)).
		Int64("first_source_id", batch[0].SourceID).
		Msg("Batch upsert failed, retrying rows individually")

	var (
		ok       int
		failures []batchFailure
	)
	for _, i := range idx {
		if err := u.writer.UpsertCategory(ctx, records[i]); err != nil {
			failures = append(failures, batchFailure{index: i, err: err})
			continue
		}
		ok++
	}
	return ok, failures
}

func validateRecord(rec domain.NormalizedCategory) error {
	err := validate.Struct(rec)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("%w: %v", ErrInvalidRecord, err)
	}

	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fmt.Sprintf("%s failed %q", fe.Field(), fe.Tag()))
	}
	return fmt.Errorf("%w: %s", ErrInvalidRecord, strings.Join(fields, ", "))
}
