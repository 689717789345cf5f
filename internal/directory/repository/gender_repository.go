package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GenderRepository definition custom gender registry
type GenderRepository interface {
	AutoMigrate() error
	Ensure(ctx context.Context, name string) error
	FindAll(ctx context.Context) ([]string, error)
}

type genderRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"uniqueIndex;size:64;not null"`
}

func (genderRow) TableName() string { return "genders" }

type genderRepository struct {
	db *gorm.DB
}

// NewGenderRepository create a gorm GenderRepository
func NewGenderRepository(db *gorm.DB) GenderRepository {
	return &genderRepository{db: db}
}

func (r *genderRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&genderRow{})
}

// Ensure insert name once, concurrent inserts of the same name are absorbed by the unique index
func (r *genderRepository) Ensure(ctx context.Context, name string) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&genderRow{Name: name}).Error
}

func (r *genderRepository) FindAll(ctx context.Context) ([]string, error) {
	names := []string{}
	err := r.db.WithContext(ctx).Model(&genderRow{}).Distinct("name").Order("name").Pluck("name", &names).Error
	return names, err
}
