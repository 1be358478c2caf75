// Package postgres is the hosted Postgres backend of the category store,
// built on a pgx connection pool.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

var _ store.CategoryStore = (*Store)(nil)

// undefinedTable is SQLSTATE 42P01.
const undefinedTable = "42P01"

var (
	selectColumns = strings.Join(store.Columns, ", ")
	upsertSQL     = buildUpsertSQL()
)

// Store implements store.CategoryStore on Postgres.
type Store struct {
	pool *pgxpool.Pool
}

// Open parses dsn, connects a pool of at most maxConns connections and pings it.
func Open(ctx context.Context, dsn string, maxConns int32) (*Store, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: parse dsn: %w", err)
	}
	if maxConns > 0 {
		cfg.MaxConns = maxConns
	}

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("postgres.Open: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres.Open: ping: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wraps an existing pool.
func NewWithPool(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Close releases the pool.
func (s *Store) Close() error {
	s.pool.Close()
	return nil
}

// UpsertCategories writes rows in one transaction using a pgx batch.
func (s *Store) UpsertCategories(ctx context.Context, rows []domain.NormalizedCategory) error {
	if len(rows) == 0 {
		return nil
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("UpsertCategories: begin: %w", translate(err))
	}
	defer func() { _ = tx.Rollback(ctx) }()

	b := &pgx.Batch{}
	for _, r := range rows {
		b.Queue(upsertSQL, rowArgs(r)...)
	}

	br := tx.SendBatch(ctx, b)
	for i := range rows {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return fmt.Errorf("UpsertCategories: row %d (source id %d): %w", i, rows[i].SourceID, translate(err))
		}
	}
	if err := br.Close(); err != nil {
		return fmt.Errorf("UpsertCategories: close batch: %w", translate(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("UpsertCategories: commit: %w", translate(err))
	}
	return nil
}

// UpsertCategory writes a single row.
func (s *Store) UpsertCategory(ctx context.Context, row domain.NormalizedCategory) error {
	if _, err := s.pool.Exec(ctx, upsertSQL, rowArgs(row)...); err != nil {
		return fmt.Errorf("UpsertCategory: %w", translate(err))
	}
	return nil
}

// ListCategories returns rows matching filter ordered by position.
func (s *Store) ListCategories(ctx context.Context, filter store.Filter) ([]domain.NormalizedCategory, error) {
	query, args := buildListQuery(filter)

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("ListCategories: %w", translate(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (domain.NormalizedCategory, error) {
		return scanCategory(row)
	})
	if err != nil {
		return nil, fmt.Errorf("ListCategories: scan: %w", translate(err))
	}
	return out, nil
}

// GetCategory returns one row or store.ErrNotFound.
func (s *Store) GetCategory(ctx context.Context, sourceID int64) (*domain.NormalizedCategory, error) {
	row := s.pool.QueryRow(ctx,
		"SELECT "+selectColumns+" FROM "+store.TableName+" WHERE category_data_id = $1", sourceID)

	c, err := scanCategory(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategory: %w", translate(err))
	}
	return &c, nil
}

// CountCategories returns the exact row count.
func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM "+store.TableName).Scan(&n); err != nil {
		return 0, fmt.Errorf("CountCategories: %w", translate(err))
	}
	return n, nil
}

// ListActivity returns every id with its active flag.
func (s *Store) ListActivity(ctx context.Context) ([]store.Activity, error) {
	rows, err := s.pool.Query(ctx, "SELECT category_data_id, is_active FROM "+store.TableName)
	if err != nil {
		return nil, fmt.Errorf("ListActivity: %w", translate(err))
	}

	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (store.Activity, error) {
		var a store.Activity
		err := row.Scan(&a.SourceID, &a.IsActive)
		return a, err
	})
	if err != nil {
		return nil, fmt.Errorf("ListActivity: scan: %w", translate(err))
	}
	return out, nil
}

// SetActive flips is_active for the given ids and returns the rows changed.
func (s *Store) SetActive(ctx context.Context, sourceIDs []int64, active bool) (int64, error) {
	if len(sourceIDs) == 0 {
		return 0, nil
	}
	tag, err := s.pool.Exec(ctx,
		"UPDATE "+store.TableName+" SET is_active = $1 WHERE category_data_id = ANY($2) AND is_active <> $1",
		active, sourceIDs)
	if err != nil {
		return 0, fmt.Errorf("SetActive: %w", translate(err))
	}
	return tag.RowsAffected(), nil
}

func buildUpsertSQL() string {
	placeholders := make([]string, len(store.Columns))
	for i := range store.Columns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
	}

	updates := store.UpdateColumns()
	sets := make([]string, len(updates))
	for i, c := range updates {
		sets[i] = fmt.Sprintf("%s = EXCLUDED.%s", c, c)
	}

	return fmt.Sprintf(
		"INSERT INTO %s (%s) VALUES (%s) ON CONFLICT (category_data_id) DO UPDATE SET %s",
		store.TableName, selectColumns, strings.Join(placeholders, ", "), strings.Join(sets, ", "),
	)
}

// rowArgs matches store.Columns order. New rows always start active.
func rowArgs(r domain.NormalizedCategory) []any {
	return []any{
		r.SourceID, r.Name, r.Slug,
		r.MainCategory, r.Sub1, r.Sub2, r.Sub3, r.Sub4,
		r.Image1, r.Image2, r.Image3, r.Image4, r.Image,
		true, r.Position,
	}
}

func buildListQuery(filter store.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	if filter.MainCategory != "" {
		args = append(args, filter.MainCategory)
		conds = append(conds, fmt.Sprintf("main_category = $%d", len(args)))
	}
	if filter.Sub1 != nil {
		args = append(args, *filter.Sub1)
		conds = append(conds, fmt.Sprintf("sub1 = $%d", len(args)))
	}

	var sb strings.Builder
	sb.WriteString("SELECT " + selectColumns + " FROM " + store.TableName)
	if len(conds) > 0 {
		sb.WriteString(" WHERE " + strings.Join(conds, " AND "))
	}
	sb.WriteString(" ORDER BY position ASC")
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		sb.WriteString(fmt.Sprintf(" LIMIT $%d", len(args)))
	}
	return sb.String(), args
}

func scanCategory(row pgx.Row) (domain.NormalizedCategory, error) {
	var c domain.NormalizedCategory
	err := row.Scan(
		&c.SourceID, &c.Name, &c.Slug,
		&c.MainCategory, &c.Sub1, &c.Sub2, &c.Sub3, &c.Sub4,
		&c.Image1, &c.Image2, &c.Image3, &c.Image4, &c.Image,
		&c.IsActive, &c.Position,
	)
	return c, err
}

// translate maps a missing table to store.ErrSchemaNotReady.
func translate(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == undefinedTable {
		return fmt.Errorf("%w: %s", store.ErrSchemaNotReady, pgErr.Message)
	}
	return err
}
