package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

func openStore(t *testing.T, migrate bool) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "categories.db"))
	if err != nil {
		t.Skipf("sqlite unavailable: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })

	if migrate {
		require.NoError(t, s.Migrate(context.Background()))
	}
	return s
}

func str(s string) *string { return &s }

func fixtures() []domain.NormalizedCategory {
	return []domain.NormalizedCategory{
		{SourceID: 3, Name: "Elektronik > Laptop", Slug: "elektronik-laptop", MainCategory: "Elektronik", Sub1: str("Laptop"), IsActive: true, Position: 3},
		{SourceID: 1, Name: "Elektronik > HP", Slug: "elektronik-hp", MainCategory: "Elektronik", Sub1: str("HP"), Image1: str("a.png"), Image: str("a.png"), IsActive: true, Position: 1},
		{SourceID: 2, Name: "Fashion", Slug: "fashion", MainCategory: "Fashion", IsActive: true, Position: 2},
		{SourceID: 4, Name: "Elektronik > HP > Case", Slug: "elektronik-hp-case", MainCategory: "Elektronik", Sub1: str("HP"), Sub2: str("Case"), IsActive: true, Position: 4},
	}
}

func TestStore_UpsertAndRead(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()

	require.NoError(t, s.UpsertCategories(ctx, fixtures()))

	n, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	all, err := s.ListCategories(ctx, store.Filter{})
	require.NoError(t, err)
	require.Len(t, all, 4)
	for i, c := range all {
		assert.Equal(t, int64(i+1), c.Position)
	}

	got, err := s.GetCategory(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "elektronik-hp", got.Slug)
	require.NotNil(t, got.Image)
	assert.Equal(t, "a.png", *got.Image)
	assert.Nil(t, got.Sub2)
	assert.True(t, got.IsActive)
}

func TestStore_Filters(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()
	require.NoError(t, s.UpsertCategories(ctx, fixtures()))

	main, err := s.ListCategories(ctx, store.Filter{MainCategory: "Elektronik"})
	require.NoError(t, err)
	require.Len(t, main, 3)
	assert.Equal(t, int64(1), main[0].SourceID)
	assert.Equal(t, int64(3), main[1].SourceID)
	assert.Equal(t, int64(4), main[2].SourceID)

	hp, err := s.ListCategories(ctx, store.Filter{MainCategory: "Elektronik", Sub1: str("HP")})
	require.NoError(t, err)
	require.Len(t, hp, 2)
	assert.Equal(t, int64(1), hp[0].SourceID)
	assert.Equal(t, int64(4), hp[1].SourceID)

	limited, err := s.ListCategories(ctx, store.Filter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)

	none, err := s.ListCategories(ctx, store.Filter{MainCategory: "Otomotif"})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_UpsertOverwritesButKeepsActivity(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()
	require.NoError(t, s.UpsertCategories(ctx, fixtures()))

	changed, err := s.SetActive(ctx, []int64{2}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(1), changed)

	updated := fixtures()[2]
	updated.Name = "Fashion Wanita"
	updated.Slug = "fashion-wanita"
	require.NoError(t, s.UpsertCategory(ctx, updated))

	got, err := s.GetCategory(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, "fashion-wanita", got.Slug)
	assert.False(t, got.IsActive)

	n, err := s.CountCategories(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

func TestStore_UpsertIsIdempotent(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()

	require.NoError(t, s.UpsertCategories(ctx, fixtures()))
	first, err := s.ListCategories(ctx, store.Filter{})
	require.NoError(t, err)

	require.NoError(t, s.UpsertCategories(ctx, fixtures()))
	second, err := s.ListCategories(ctx, store.Filter{})
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestStore_NullableFieldsCleared(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()
	require.NoError(t, s.UpsertCategories(ctx, fixtures()))

	row := fixtures()[1]
	row.Image1 = nil
	row.Image = nil
	require.NoError(t, s.UpsertCategory(ctx, row))

	got, err := s.GetCategory(ctx, 1)
	require.NoError(t, err)
	assert.Nil(t, got.Image1)
	assert.Nil(t, got.Image)
}

func TestStore_Activity(t *testing.T) {
	s := openStore(t, true)
	ctx := context.Background()
	require.NoError(t, s.UpsertCategories(ctx, fixtures()))

	changed, err := s.SetActive(ctx, []int64{1, 2, 999}, false)
	require.NoError(t, err)
	assert.Equal(t, int64(2), changed)

	changed, err = s.SetActive(ctx, []int64{1}, false)
	require.NoError(t, err)
	assert.Zero(t, changed, "already inactive")

	activity, err := s.ListActivity(ctx)
	require.NoError(t, err)
	require.Len(t, activity, 4)

	inactive := 0
	for _, a := range activity {
		if !a.IsActive {
			inactive++
		}
	}
	assert.Equal(t, 2, inactive)
}

func TestStore_NotFound(t *testing.T) {
	s := openStore(t, true)

	_, err := s.GetCategory(context.Background(), 42)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestStore_SchemaNotReady(t *testing.T) {
	s := openStore(t, false)
	ctx := context.Background()

	_, err := s.ListCategories(ctx, store.Filter{})
	assert.ErrorIs(t, err, store.ErrSchemaNotReady)

	_, err = s.CountCategories(ctx)
	assert.ErrorIs(t, err, store.ErrSchemaNotReady)

	_, err = s.GetCategory(ctx, 1)
	assert.ErrorIs(t, err, store.ErrSchemaNotReady)
}
