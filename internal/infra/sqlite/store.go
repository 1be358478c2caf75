// Package sqlite is the local development backend of the category store,
// using gorm over the pure-Go SQLite driver.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"strings"

	gormsqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

var _ store.CategoryStore = (*Store)(nil)

// setActiveChunk keeps IN lists well below SQLite's variable limit.
const setActiveChunk = 500

// Store implements store.CategoryStore on SQLite.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database file at path. It does not create
// the table; call Migrate for that.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("sqlite.Open: underlying db: %w", err)
	}
	// SQLite allows one writer; concurrent upsert batches queue here instead
	// of failing with "database is locked".
	sqlDB.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

// NewWithDB wraps an existing gorm handle.
func NewWithDB(db *gorm.DB) *Store {
	return &Store{db: db}
}

// Migrate creates or updates the category table and its indexes.
func (s *Store) Migrate(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&categoryModel{}); err != nil {
		return fmt.Errorf("Migrate: %w", err)
	}
	return nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func upsertClause() clause.OnConflict {
	return clause.OnConflict{
		Columns:   []clause.Column{{Name: "category_data_id"}},
		DoUpdates: clause.AssignmentColumns(store.UpdateColumns()),
	}
}

// UpsertCategories writes rows in one transaction.
func (s *Store) UpsertCategories(ctx context.Context, rows []domain.NormalizedCategory) error {
	if len(rows) == 0 {
		return nil
	}

	models := make([]categoryModel, 0, len(rows))
	for _, r := range rows {
		models = append(models, toModel(r))
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(upsertClause()).Create(&models).Error
	})
	if err != nil {
		return fmt.Errorf("UpsertCategories: %w", translate(err))
	}
	return nil
}

// UpsertCategory writes a single row.
func (s *Store) UpsertCategory(ctx context.Context, row domain.NormalizedCategory) error {
	m := toModel(row)
	if err := s.db.WithContext(ctx).Clauses(upsertClause()).Create(&m).Error; err != nil {
		return fmt.Errorf("UpsertCategory: %w", translate(err))
	}
	return nil
}

// ListCategories returns rows matching filter ordered by position.
func (s *Store) ListCategories(ctx context.Context, filter store.Filter) ([]domain.NormalizedCategory, error) {
	query := s.db.WithContext(ctx).Model(&categoryModel{})
	if filter.MainCategory != "" {
		query = query.Where("main_category = ?", filter.MainCategory)
	}
	if filter.Sub1 != nil {
		query = query.Where("sub1 = ?", *filter.Sub1)
	}
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []categoryModel
	if err := query.Order("position asc").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("ListCategories: %w", translate(err))
	}

	out := make([]domain.NormalizedCategory, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.toDomain())
	}
	return out, nil
}

// GetCategory returns one row or store.ErrNotFound.
func (s *Store) GetCategory(ctx context.Context, sourceID int64) (*domain.NormalizedCategory, error) {
	var row categoryModel
	err := s.db.WithContext(ctx).Where("category_data_id = ?", sourceID).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("GetCategory: %w", translate(err))
	}
	c := row.toDomain()
	return &c, nil
}

// CountCategories returns the exact row count.
func (s *Store) CountCategories(ctx context.Context) (int64, error) {
	var n int64
	if err := s.db.WithContext(ctx).Model(&categoryModel{}).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("CountCategories: %w", translate(err))
	}
	return n, nil
}

// ListActivity returns every id with its active flag.
func (s *Store) ListActivity(ctx context.Context) ([]store.Activity, error) {
	var rows []activityRow
	err := s.db.WithContext(ctx).
		Model(&categoryModel{}).
		Select("category_data_id", "is_active").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("ListActivity: %w", translate(err))
	}

	out := make([]store.Activity, 0, len(rows))
	for _, r := range rows {
		out = append(out, store.Activity{SourceID: r.CategoryDataID, IsActive: r.IsActive})
	}
	return out, nil
}

// SetActive flips is_active for the given ids and returns the rows changed.
func (s *Store) SetActive(ctx context.Context, sourceIDs []int64, active bool) (int64, error) {
	var total int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for start := 0; start < len(sourceIDs); start += setActiveChunk {
			end := min(start+setActiveChunk, len(sourceIDs))
			res := tx.Model(&categoryModel{}).
				Where("category_data_id IN ? AND is_active <> ?", sourceIDs[start:end], active).
				Update("is_active", active)
			if res.Error != nil {
				return res.Error
			}
			total += res.RowsAffected
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("SetActive: %w", translate(err))
	}
	return total, nil
}

// translate maps a missing table to store.ErrSchemaNotReady.
func translate(err error) error {
	if err != nil && strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", store.ErrSchemaNotReady, err)
	}
	return err
}
