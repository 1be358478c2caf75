// Package store defines the destination contract for normalized categories.
// Backends live under internal/infra and translate their driver errors into
// the sentinel errors declared here.
package store

import (
	"context"
	"errors"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

// TableName is the destination table shared by every backend.
const TableName = "category_data"

// Columns lists the destination columns in write order. The first one is
// the conflict key.
var Columns = []string{
	"category_data_id", "name", "slug",
	"main_category", "sub1", "sub2", "sub3", "sub4",
	"image1", "image2", "image3", "image4", "image",
	"is_active", "position",
}

// UpdateColumns are the columns a re-sync overwrites. is_active is kept so
// a reconciliation decision survives the next plain sync.
func UpdateColumns() []string {
	out := make([]string, 0, len(Columns)-2)
	for _, c := range Columns[1:] {
		if c != "is_active" {
			out = append(out, c)
		}
	}
	return out
}

var (
	// ErrSchemaNotReady is returned when the destination table does not exist yet.
	ErrSchemaNotReady = errors.New("category store schema not ready")

	// ErrNotFound is returned when no row matches a source id.
	ErrNotFound = errors.New("category not found")
)

// Filter narrows ListCategories. Empty fields do not filter.
type Filter struct {
	MainCategory string
	Sub1         *string
	Limit        int
}

// Activity is the minimal projection used by the reconciliation pass.
type Activity struct {
	SourceID int64
	IsActive bool
}

// CategoryWriter writes normalized categories with upsert-on-conflict
// semantics keyed by SourceID. is_active is set on insert only.
type CategoryWriter interface {
	// UpsertCategories writes a batch atomically: either every row lands or none does.
	UpsertCategories(ctx context.Context, rows []domain.NormalizedCategory) error

	// UpsertCategory writes a single row.
	UpsertCategory(ctx context.Context, row domain.NormalizedCategory) error
}

// CategoryReader serves read projections ordered by position ascending.
type CategoryReader interface {
	// ListCategories returns rows matching the filter.
	ListCategories(ctx context.Context, filter Filter) ([]domain.NormalizedCategory, error)

	// GetCategory returns the row for a source id or ErrNotFound.
	GetCategory(ctx context.Context, sourceID int64) (*domain.NormalizedCategory, error)

	// CountCategories returns the exact number of rows.
	CountCategories(ctx context.Context) (int64, error)
}

// ActivityStore flips is_active for the reconciliation pass.
type ActivityStore interface {
	ListActivity(ctx context.Context) ([]Activity, error)
	SetActive(ctx context.Context, sourceIDs []int64, active bool) (int64, error)
}

// CategoryStore is everything a backend provides.
type CategoryStore interface {
	CategoryWriter
	CategoryReader
	ActivityStore
	Close() error
}
