package sqlite

import (
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/domain"
	"github.com/neezar-abd/Books-E-Commerce-sub001/internal/store"
)

type categoryModel struct {
	CategoryDataID int64  `gorm:"column:category_data_id;primaryKey;autoIncrement:false"`
	Name           string `gorm:"column:name;not null"`
	Slug           string `gorm:"column:slug;not null;index:idx_category_data_slug"`

	MainCategory string  `gorm:"column:main_category;not null;index:idx_category_data_main_sub1,priority:1"`
	Sub1         *string `gorm:"column:sub1;index:idx_category_data_main_sub1,priority:2"`
	Sub2         *string `gorm:"column:sub2"`
	Sub3         *string `gorm:"column:sub3"`
	Sub4         *string `gorm:"column:sub4"`

	Image1 *string `gorm:"column:image1"`
	Image2 *string `gorm:"column:image2"`
	Image3 *string `gorm:"column:image3"`
	Image4 *string `gorm:"column:image4"`
	Image  *string `gorm:"column:image"`

	IsActive bool  `gorm:"column:is_active;not null;default:true"`
	Position int64 `gorm:"column:position;not null;index:idx_category_data_position"`
}

func (categoryModel) TableName() string {
	return store.TableName
}

type activityRow struct {
	CategoryDataID int64 `gorm:"column:category_data_id"`
	IsActive       bool  `gorm:"column:is_active"`
}

func toModel(c domain.NormalizedCategory) categoryModel {
	return categoryModel{
		CategoryDataID: c.SourceID,
		Name:           c.Name,
		Slug:           c.Slug,
		MainCategory:   c.MainCategory,
		Sub1:           c.Sub1,
		Sub2:           c.Sub2,
		Sub3:           c.Sub3,
		Sub4:           c.Sub4,
		Image1:         c.Image1,
		Image2:         c.Image2,
		Image3:         c.Image3,
		Image4:         c.Image4,
		Image:          c.Image,
		IsActive:       true,
		Position:       c.Position,
	}
}

func (m categoryModel) toDomain() domain.NormalizedCategory {
	return domain.NormalizedCategory{
		SourceID:     m.CategoryDataID,
		Name:         m.Name,
		Slug:         m.Slug,
		MainCategory: m.MainCategory,
		Sub1:         m.Sub1,
		Sub2:         m.Sub2,
		Sub3:         m.Sub3,
		Sub4:         m.Sub4,
		Image1:       m.Image1,
		Image2:       m.Image2,
		Image3:       m.Image3,
		Image4:       m.Image4,
		Image:        m.Image,
		IsActive:     m.IsActive,
		Position:     m.Position,
	}
}
