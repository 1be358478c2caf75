package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/logger"
)

func categories(ids ...int64) []domain.NormalizedCategory {
	src := make([]domain.SourceCategoryRecord, 0, len(ids))
	for _, id := range ids {
		src = append(src, domain.SourceCategoryRecord{
			SourceID:     id,
			MainCategory: fmt.Sprintf("Main %d", id%7),
			Sub1:         strPtr(fmt.Sprintf("Sub %d", id)),
		})
	}
	return Normalize(src)
}

func idRange(from, to int64) []int64 {
	out := make([]int64, 0, to-from+1)
	for i := from; i <= to; i++ {
		out = append(out, i)
	}
	return out
}

func TestUpsert_AllSucceed(t *testing.T) {
	st := newMemStore()
	u := NewUpserter(st, WithBatchSize(100))

	report := u.Upsert(context.Background(), categories(idRange(1, 250)...))

	assert.Equal(t, 250, report.Total)
	assert.Equal(t, 250, report.Success)
	assert.Zero(t, report.Errors)
	assert.Empty(t, report.ErrorDetails)
	assert.NotNil(t, report.ErrorDetails)
	assert.Equal(t, 3, st.batchCalls)
	assert.Zero(t, st.singleCalls)

	n, _ := st.CountCategories(context.Background())
	assert.Equal(t, int64(250), n)
}

func TestUpsert_FailedBatchIsRetriedPerRecord(t *testing.T) {
	st := newMemStore()
	st.UpsertCategoriesFunc = func(rows []domain.NormalizedCategory) error {
		for _, r := range rows {
			if r.SourceID == 7 {
				return errors.New("constraint violation")
			}
		}
		return nil
	}
	st.UpsertCategoryFunc = func(row domain.NormalizedCategory) error {
		if row.SourceID == 7 {
			return errors.New("constraint violation")
		}
		return nil
	}

	u := NewUpserter(st, WithBatchSize(5))
	report := u.Upsert(context.Background(), categories(idRange(1, 12)...))

	assert.Equal(t, 12, report.Total)
	assert.Equal(t, 11, report.Success)
	assert.Equal(t, 1, report.Errors)
	require.Len(t, report.ErrorDetails, 1)
	assert.Equal(t, int64(7), report.ErrorDetails[0].SourceID)
	assert.Contains(t, report.ErrorDetails[0].Message, "constraint violation")
	assert.Equal(t, 5, st.singleCalls)

	_, err := st.GetCategory(context.Background(), 7)
	assert.Error(t, err)
	_, err = st.GetCategory(context.Background(), 6)
	assert.NoError(t, err)
}

func TestUpsert_BatchFailureIsLoggedOnContextLogger(t *testing.T) {
	st := newMemStore()
	st.UpsertCategoriesFunc = func([]domain.NormalizedCategory) error {
		return errors.New("connection reset")
	}

	var buf bytes.Buffer
	ctx := logger.WithContext(context.Background(), logger.NewWithWriter(&buf))
	report := NewUpserter(st, WithBatchSize(2)).Upsert(ctx, categories(1, 2))

	assert.Equal(t, 2, report.Success)
	assert.Contains(t, buf.String(), "Batch upsert failed, retrying rows individually")
	assert.Contains(t, buf.String(), `"first_source_id":1`)
}

func TestUpsert_MalformedRecordIsIsolated(t *testing.T) {
	st := newMemStore()
	records := Normalize([]domain.SourceCategoryRecord{
		{SourceID: 1, MainCategory: "Elektronik"},
		{SourceID: 0, MainCategory: "No ID"},
		{SourceID: 2, MainCategory: ""},
		{SourceID: 3, MainCategory: "Fashion"},
	})

	report := NewUpserter(st).Upsert(context.Background(), records)

	assert.Equal(t, 4, report.Total)
	assert.Equal(t, 2, report.Errors)
	assert.Equal(t, report.Total-report.Errors, report.Success)
	require.Len(t, report.ErrorDetails, 2)
	assert.Equal(t, int64(0), report.ErrorDetails[0].SourceID)
	assert.Equal(t, int64(2), report.ErrorDetails[1].SourceID)
	assert.Contains(t, report.ErrorDetails[0].Message, ErrInvalidRecord.Error())

	snap := st.snapshot()
	assert.Len(t, snap, 2)
	assert.Contains(t, snap, int64(1))
	assert.Contains(t, snap, int64(3))
}

func TestUpsert_ErrorDetailsTruncated(t *testing.T) {
	st := newMemStore()
	st.UpsertCategoriesFunc = func([]domain.NormalizedCategory) error { return errors.New("connection reset") }
	st.UpsertCategoryFunc = func(row domain.NormalizedCategory) error {
		if row.SourceID%2 == 0 {
			return errors.New("connection reset")
		}
		return nil
	}

	report := NewUpserter(st, WithBatchSize(10), WithWorkers(4)).
		Upsert(context.Background(), categories(idRange(1, 40)...))

	assert.Equal(t, 40, report.Total)
	assert.Equal(t, 20, report.Errors)
	assert.Equal(t, 20, report.Success)
	require.Len(t, report.ErrorDetails, DefaultErrorDetailLimit)

	// details come back in source order regardless of worker scheduling
	for i, d := range report.ErrorDetails {
		assert.Equal(t, int64(2*(i+1)), d.SourceID)
	}
}

func TestUpsert_CustomErrorDetailLimit(t *testing.T) {
	st := newMemStore()
	st.UpsertCategoriesFunc = func([]domain.NormalizedCategory) error { return errors.New("down") }
	st.UpsertCategoryFunc = func(domain.NormalizedCategory) error { return errors.New("down") }

	report := NewUpserter(st, WithErrorDetailLimit(3)).Upsert(context.Background(), categories(idRange(1, 8)...))

	assert.Equal(t, 8, report.Errors)
	assert.Zero(t, report.Success)
	assert.Len(t, report.ErrorDetails, 3)
}

func TestUpsert_ConcurrentWorkers(t *testing.T) {
	st := newMemStore()
	report := NewUpserter(st, WithBatchSize(7), WithWorkers(8)).
		Upsert(context.Background(), categories(idRange(1, 500)...))

	assert.Equal(t, 500, report.Success)
	assert.Len(t, st.snapshot(), 500)
}

func TestUpsert_Idempotent(t *testing.T) {
	st := newMemStore()
	u := NewUpserter(st, WithBatchSize(3))
	records := categories(idRange(1, 20)...)

	first := u.Upsert(context.Background(), records)
	once := st.snapshot()

	second := u.Upsert(context.Background(), records)
	twice := st.snapshot()

	assert.Equal(t, first, second)
	assert.Equal(t, once, twice)
}

func TestUpsert_CancelledContext(t *testing.T) {
	st := newMemStore()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := NewUpserter(st).Upsert(ctx, categories(1, 2, 3))

	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.Errors)
	assert.Zero(t, st.batchCalls)
	assert.Contains(t, report.ErrorDetails[0].Message, context.Canceled.Error())
}

func TestUpsert_Empty(t *testing.T) {
	report := NewUpserter(newMemStore()).Upsert(context.Background(), nil)
	assert.Zero(t, report.Total)
	assert.Zero(t, report.Success)
	assert.NotNil(t, report.ErrorDetails)
}

func TestValidate(t *testing.T) {
	records := Normalize([]domain.SourceCategoryRecord{
		{SourceID: 1, MainCategory: "A"},
		{SourceID: 0, MainCategory: "B"},
	})

	valid, failed := NewUpserter(newMemStore()).Validate(records)
	assert.Equal(t, []int{0}, valid)
	require.Len(t, failed, 1)
	assert.Zero(t, failed[0].SourceID)
}
