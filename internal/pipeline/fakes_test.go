package pipeline

import (
	"context"
	"sort"
	"sync"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// memStore is an in-memory CategoryStore with upsert semantics. The Func
// fields, when set, intercept the matching call.
type memStore struct {
	mu   sync.Mutex
	rows map[int64]domain.NormalizedCategory

	batchCalls  int
	singleCalls int

	UpsertCategoriesFunc func(rows []domain.NormalizedCategory) error
	UpsertCategoryFunc   func(row domain.NormalizedCategory) error
	CountCategoriesFunc  func() (int64, error)
}

func newMemStore() *memStore {
	return &memStore{rows: make(map[int64]domain.NormalizedCategory)}
}

func (m *memStore) put(row domain.NormalizedCategory) {
	if existing, ok := m.rows[row.SourceID]; ok {
		row.IsActive = existing.IsActive
	} else {
		row.IsActive = true
	}
	m.rows[row.SourceID] = row
}

func (m *memStore) UpsertCategories(_ context.Context, rows []domain.NormalizedCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.batchCalls++
	if m.UpsertCategoriesFunc != nil {
		if err := m.UpsertCategoriesFunc(rows); err != nil {
			return err
		}
	}
	for _, r := range rows {
		m.put(r)
	}
	return nil
}

func (m *memStore) UpsertCategory(_ context.Context, row domain.NormalizedCategory) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singleCalls++
	if m.UpsertCategoryFunc != nil {
		if err := m.UpsertCategoryFunc(row); err != nil {
			return err
		}
	}
	m.put(row)
	return nil
}

func (m *memStore) ListCategories(_ context.Context, f store.Filter) ([]domain.NormalizedCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.NormalizedCategory
	for _, r := range m.rows {
		if f.MainCategory != "" && r.MainCategory != f.MainCategory {
			continue
		}
		if f.Sub1 != nil && (r.Sub1 == nil || *r.Sub1 != *f.Sub1) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Position < out[j].Position })
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

func (m *memStore) GetCategory(_ context.Context, id int64) (*domain.NormalizedCategory, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.rows[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return &r, nil
}

func (m *memStore) CountCategories(context.Context) (int64, error) {
	if m.CountCategoriesFunc != nil {
		return m.CountCategoriesFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.rows)), nil
}

func (m *memStore) ListActivity(context.Context) ([]store.Activity, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]store.Activity, 0, len(m.rows))
	for id, r := range m.rows {
		out = append(out, store.Activity{SourceID: id, IsActive: r.IsActive})
	}
	return out, nil
}

func (m *memStore) SetActive(_ context.Context, ids []int64, active bool) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for _, id := range ids {
		if r, ok := m.rows[id]; ok {
			r.IsActive = active
			m.rows[id] = r
			n++
		}
	}
	return n, nil
}

func (m *memStore) Close() error { return nil }

// snapshot copies the current rows for equality checks.
func (m *memStore) snapshot() map[int64]domain.NormalizedCategory {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make(map[int64]domain.NormalizedCategory, len(m.rows))
	for k, v := range m.rows {
		out[k] = v
	}
	return out
}

func strPtr(s string) *string { return &s }
