// Package bigquery is the warehouse backend of the category store.
package bigquery

import (
	"context"
	"fmt"

	"cloud.google.com/go/bigquery"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

var _ store.CategoryStore = (*CategoryRepository)(nil)

// CategoryRepository implements store.CategoryStore on BigQuery. It holds a
// shared client to avoid creating a new connection for each operation.
type CategoryRepository struct {
	client *bigquery.Client
	table  Table
}

// NewCategoryRepository creates a repository for project.dataset.category_data.
func NewCategoryRepository(ctx context.Context, projectID, datasetID string) (*CategoryRepository, error) {
	client, err := bigquery.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("NewCategoryRepository: creating client: %w", err)
	}
	return &CategoryRepository{
		client: client,
		table:  Table{ProjectID: projectID, DatasetID: datasetID},
	}, nil
}

// Close closes the BigQuery client connection.
func (r *CategoryRepository) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// UpsertCategories merges a batch in one DML statement.
func (r *CategoryRepository) UpsertCategories(ctx context.Context, rows []domain.NormalizedCategory) error {
	bqRows := make([]CategoryRow, 0, len(rows))
	for _, c := range rows {
		bqRows = append(bqRows, RowFromCategory(c))
	}
	return UpsertCategoriesWithClient(ctx, r.client, r.table, bqRows)
}

// UpsertCategory merges a single row.
func (r *CategoryRepository) UpsertCategory(ctx context.Context, row domain.NormalizedCategory) error {
	return UpsertCategoriesWithClient(ctx, r.client, r.table, []CategoryRow{RowFromCategory(row)})
}

// ListCategories delegates to ListCategoriesWithClient.
func (r *CategoryRepository) ListCategories(ctx context.Context, filter store.Filter) ([]domain.NormalizedCategory, error) {
	rows, err := ListCategoriesWithClient(ctx, r.client, r.table, filter)
	if err != nil {
		return nil, err
	}
	out := make([]domain.NormalizedCategory, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.Category())
	}
	return out, nil
}

// GetCategory delegates to GetCategoryWithClient.
func (r *CategoryRepository) GetCategory(ctx context.Context, sourceID int64) (*domain.NormalizedCategory, error) {
	row, err := GetCategoryWithClient(ctx, r.client, r.table, sourceID)
	if err != nil {
		return nil, err
	}
	c := row.Category()
	return &c, nil
}

// CountCategories delegates to CountCategoriesWithClient.
func (r *CategoryRepository) CountCategories(ctx context.Context) (int64, error) {
	return CountCategoriesWithClient(ctx, r.client, r.table)
}

// ListActivity delegates to ListActivityWithClient.
func (r *CategoryRepository) ListActivity(ctx context.Context) ([]store.Activity, error) {
	return ListActivityWithClient(ctx, r.client, r.table)
}

// SetActive delegates to SetActiveWithClient.
func (r *CategoryRepository) SetActive(ctx context.Context, sourceIDs []int64, active bool) (int64, error) {
	return SetActiveWithClient(ctx, r.client, r.table, sourceIDs, active)
}
