package bigquery

import (
	"cloud.google.com/go/bigquery"

	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
)

// CategoryRow mirrors one row of category_data.
type CategoryRow struct {
	CategoryDataID int64  `bigquery:"category_data_id"` // REQUIRED
	Name           string `bigquery:"name"`             // REQUIRED
	Slug           string `bigquery:"slug"`             // REQUIRED

	MainCategory string              `bigquery:"main_category"` // REQUIRED
	Sub1         bigquery.NullString `bigquery:"sub1"`          // NULLABLE
	Sub2         bigquery.NullString `bigquery:"sub2"`          // NULLABLE
	Sub3         bigquery.NullString `bigquery:"sub3"`          // NULLABLE
	Sub4         bigquery.NullString `bigquery:"sub4"`          // NULLABLE

	Image1 bigquery.NullString `bigquery:"image1"` // NULLABLE
	Image2 bigquery.NullString `bigquery:"image2"` // NULLABLE
	Image3 bigquery.NullString `bigquery:"image3"` // NULLABLE
	Image4 bigquery.NullString `bigquery:"image4"` // NULLABLE
	Image  bigquery.NullString `bigquery:"image"`  // NULLABLE

	IsActive bool  `bigquery:"is_active"` // REQUIRED
	Position int64 `bigquery:"position"`  // REQUIRED
}

type activityRow struct {
	CategoryDataID int64 `bigquery:"category_data_id"`
	IsActive       bool  `bigquery:"is_active"`
}

// RowFromCategory converts a normalized category to its BigQuery shape.
func RowFromCategory(c domain.NormalizedCategory) CategoryRow {
	return CategoryRow{
		CategoryDataID: c.SourceID,
		Name:           c.Name,
		Slug:           c.Slug,
		MainCategory:   c.MainCategory,
		Sub1:           nullString(c.Sub1),
		Sub2:           nullString(c.Sub2),
		Sub3:           nullString(c.Sub3),
		Sub4:           nullString(c.Sub4),
		Image1:         nullString(c.Image1),
		Image2:         nullString(c.Image2),
		Image3:         nullString(c.Image3),
		Image4:         nullString(c.Image4),
		Image:          nullString(c.Image),
		IsActive:       c.IsActive,
		Position:       c.Position,
	}
}

// Category converts the row back to the domain type.
func (r CategoryRow) Category() domain.NormalizedCategory {
	return domain.NormalizedCategory{
		SourceID:     r.CategoryDataID,
		Name:         r.Name,
		Slug:         r.Slug,
		MainCategory: r.MainCategory,
		Sub1:         stringPtr(r.Sub1),
		Sub2:         stringPtr(r.Sub2),
		Sub3:         stringPtr(r.Sub3),
		Sub4:         stringPtr(r.Sub4),
		Image1:       stringPtr(r.Image1),
		Image2:       stringPtr(r.Image2),
		Image3:       stringPtr(r.Image3),
		Image4:       stringPtr(r.Image4),
		Image:        stringPtr(r.Image),
		IsActive:     r.IsActive,
		Position:     r.Position,
	}
}

func nullString(s *string) bigquery.NullString {
	if s == nil {
		return bigquery.NullString{}
	}
	return bigquery.NullString{StringVal: *s, Valid: true}
}

func stringPtr(ns bigquery.NullString) *string {
	if !ns.Valid {
		return nil
	}
	v := ns.StringVal
	return &v
}
