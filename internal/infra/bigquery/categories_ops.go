package bigquery

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/bigquery"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/iterator"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

// Table addresses category_data inside a project and dataset.
type Table struct {
	ProjectID string
	DatasetID string
}

// FQN returns the backtick-quoted table name.
func (t Table) FQN() string {
	return fmt.Sprintf("`%s.%s.%s`", t.ProjectID, t.DatasetID, store.TableName)
}

// MergeSQL upserts every element of @rows keyed by category_data_id.
// is_active is written on insert only.
func MergeSQL(t Table) string {
	updates := store.UpdateColumns()
	sets := make([]string, len(updates))
	for i, c := range updates {
		sets[i] = fmt.Sprintf("%s = S.%s", c, c)
	}

	values := make([]string, len(store.Columns))
	for i, c := range store.Columns {
		if c == "is_active" {
			values[i] = "TRUE"
			continue
		}
		values[i] = "S." + c
	}

	return fmt.Sprintf(`
		MERGE %s T
		USING UNNEST(@rows) S
		ON T.category_data_id = S.category_data_id
		WHEN MATCHED THEN
		  UPDATE SET %s
		WHEN NOT MATCHED THEN
		  INSERT (%s)
		  VALUES (%s)
	`, t.FQN(), strings.Join(sets, ", "), strings.Join(store.Columns, ", "), strings.Join(values, ", "))
}

// UpsertCategoriesWithClient merges rows in a single DML statement.
func UpsertCategoriesWithClient(ctx context.Context, client *bigquery.Client, t Table, rows []CategoryRow) error {
	if len(rows) == 0 {
		return nil
	}

	q := client.Query(MergeSQL(t))
	q.Parameters = []bigquery.QueryParameter{
		{Name: "rows", Value: rows},
	}

	if _, err := runDML(ctx, q); err != nil {
		return fmt.Errorf("UpsertCategories: %w", translate(err))
	}
	return nil
}

// ListQuery builds the filtered read ordered by position.
func ListQuery(t Table, filter store.Filter) (string, []bigquery.QueryParameter) {
	var (
		conds  []string
		params []bigquery.QueryParameter
	)
	if filter.MainCategory != "" {
		conds = append(conds, "main_category = @main_category")
		params = append(params, bigquery.QueryParameter{Name: "main_category", Value: filter.MainCategory})
	}
	if filter.Sub1 != nil {
		conds = append(conds, "sub1 = @sub1")
		params = append(params, bigquery.QueryParameter{Name: "sub1", Value: *filter.Sub1})
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + strings.Join(store.Columns, ", ") + " FROM " + t.FQN())
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY position ASC")
	if filter.Limit > 0 {
		sb.WriteString(" LIMIT @limit")
		params = append(params, bigquery.QueryParameter{Name: "limit", Value: filter.Limit})
	}
	return sb.String(), params
}

// ListCategoriesWithClient returns rows matching filter ordered by position.
func ListCategoriesWithClient(ctx context.Context, client *bigquery.Client, t Table, filter store.Filter) ([]CategoryRow, error) {
	sql, params := ListQuery(t, filter)
	q := client.Query(sql)
	q.Parameters = params

	rows, err := readAll[CategoryRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", translate(err))
	}
	return rows, nil
}

// GetCategoryWithClient returns one row or store.ErrNotFound.
func GetCategoryWithClient(ctx context.Context, client *bigquery.Client, t Table, sourceID int64) (*CategoryRow, error) {
	q := client.Query("SELECT " + strings.Join(store.Columns, ", ") + " FROM " + t.FQN() +
		" WHERE category_data_id = @id LIMIT 1")
	q.Parameters = []bigquery.QueryParameter{{Name: "id", Value: sourceID}}

	rows, err := readAll[CategoryRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("GetCategory: %w", translate(err))
	}
	if len(rows) == 0 {
		return nil, store.ErrNotFound
	}
	return &rows[0], nil
}

// CountCategoriesWithClient returns the exact row count.
func CountCategoriesWithClient(ctx context.Context, client *bigquery.Client, t Table) (int64, error) {
	q := client.Query("SELECT COUNT(*) AS n FROM " + t.FQN())

	rows, err := readAll[struct {
		N int64 `bigquery:"n"`
	}](ctx, q)
	if err != nil {
		return 0, fmt.Errorf("CountCategories: %w", translate(err))
	}
	if len(rows) == 0 {
		return 0, nil
	}
	return rows[0].N, nil
}

// ListActivityWithClient returns every id with its active flag.
func ListActivityWithClient(ctx context.Context, client *bigquery.Client, t Table) ([]store.Activity, error) {
	q := client.Query("SELECT category_data_id, is_active FROM " + t.FQN())

	rows, err := readAll[activityRow](ctx, q)
	if err != nil {
		return nil, fmt.Errorf("ListActivity: %w", translate(err))
	}

	out := make([]store.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Activity{SourceID: r.CategoryDataID, IsActive: r.IsActive})
	}
	return out, nil
}

// SetActiveWithClient flips is_active for the given ids.
func SetActiveWithClient(ctx context.Context, client *bigquery.Client, t Table, sourceIDs []int64, active bool) (int64, error) {
	if len(sourceIDs) == 0 {
		return 0, nil
	}

	q := client.Query("UPDATE " + t.FQN() +
		" SET is_active = @active WHERE category_data_id IN UNNEST(@ids) AND is_active != @active")
	q.Parameters = []bigquery.QueryParameter{
		{Name: "active", Value: active},
		{Name: "ids", Value: sourceIDs},
	}

	n, err := runDML(ctx, q)
	if err != nil {
		return 0, fmt.Errorf("SetActive: %w", translate(err))
	}
	return n, nil
}

// runDML runs q, waits for it and returns the affected row count.
func runDML(ctx context.Context, q *bigquery.Query) (int64, error) {
	job, err := q.Run(ctx)
	if err != nil {
		return 0, fmt.Errorf("run query: %w", err)
	}

	status, err := job.Wait(ctx)
	if err != nil {
		return 0, fmt.Errorf("wait for job: %w", err)
	}
	if err := status.Err(); err != nil {
		return 0, fmt.Errorf("job error: %w", err)
	}

	if status.Statistics != nil {
		if qs, ok := status.Statistics.Details.(*bigquery.QueryStatistics); ok {
			return qs.NumDMLAffectedRows, nil
		}
	}
	return 0, nil
}

func readAll[T any](ctx context.Context, q *bigquery.Query) ([]T, error) {
	it, err := q.Read(ctx)
	if err != nil {
		return nil, fmt.Errorf("query read: %w", err)
	}

	var rows []T
	for {
		var r T
		err := it.Next(&r)
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("iter next: %w", err)
		}
		rows = append(rows, r)
	}
	return rows, nil
}

// translate maps a missing table or dataset to store.ErrSchemaNotReady.
func translate(err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == 404 {
		return fmt.Errorf("%w: %s", store.ErrSchemaNotReady, apiErr.Message)
	}
	var bqErr *bigquery.Error
	if errors.As(err, &bqErr) && bqErr.Reason == "notFound" {
		return fmt.Errorf("%w: %s", store.ErrSchemaNotReady, bqErr.Message)
	}
	return err
}
