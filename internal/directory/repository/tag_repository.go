package repository

import (
	"context"
	"errors"
	"time"

	"chat_platform/internal/directory/domain"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// TagRepository definition tag inverted index
type TagRepository interface {
	AutoMigrate() error
	AddUser(ctx context.Context, tag, userID string) error
	RemoveUser(ctx context.Context, tag, userID string) error
	FindByName(ctx context.Context, tag string) (*domain.Tag, error)
	SearchByPrefix(ctx context.Context, term string, limit int) ([]domain.Tag, error)
}

type tagRow struct {
	TagName   string `gorm:"primaryKey;size:64"`
	CreatedAt time.Time
}

func (tagRow) TableName() string { return "tags" }

// one row per (tag, user), the composite key keeps a user in a tag at most once
type tagUserRow struct {
	TagName string `gorm:"primaryKey;size:64"`
	UserID  string `gorm:"primaryKey;size:64;index"`
}

func (tagUserRow) TableName() string { return "tag_users" }

type tagRepository struct {
	db *gorm.DB
}

// NewTagRepository create a gorm TagRepository
func NewTagRepository(db *gorm.DB) TagRepository {
	return &tagRepository{db: db}
}

func (r *tagRepository) AutoMigrate() error {
	return r.db.AutoMigrate(&tagRow{}, &tagUserRow{})
}

func (r *tagRepository) AddUser(ctx context.Context, tag, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tagRow{TagName: tag}).Error; err != nil {
			return err
		}
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&tagUserRow{TagName: tag, UserID: userID}).Error
	})
}

// RemoveUser drop userID from tag, the tag row goes away with its last user
func (r *tagRepository) RemoveUser(ctx context.Context, tag, userID string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("tag_name = ? AND user_id = ?", tag, userID).Delete(&tagUserRow{}).Error; err != nil {
			return err
		}
		var remaining int64
		if err := tx.Model(&tagUserRow{}).Where("tag_name = ?", tag).Count(&remaining).Error; err != nil {
			return err
		}
		if remaining > 0 {
			return nil
		}
		return tx.Where("tag_name = ?", tag).Delete(&tagRow{}).Error
	})
}

func (r *tagRepository) FindByName(ctx context.Context, tag string) (*domain.Tag, error) {
	db := r.db.WithContext(ctx)
	var row tagRow
	if err := db.Where("tag_name = ?", tag).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}

	ids := []string{}
	if err := db.Model(&tagUserRow{}).Where("tag_name = ?", tag).Order("user_id").Pluck("user_id", &ids).Error; err != nil {
		return nil, err
	}
	return &domain.Tag{TagName: row.TagName, UserIDs: ids}, nil
}

func (r *tagRepository) SearchByPrefix(ctx context.Context, term string, limit int) ([]domain.Tag, error) {
	db := r.db.WithContext(ctx)
	var rows []tagRow
	if err := db.Where("tag_name LIKE ?", escapeLike(term)+"%").Order("tag_name").Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return []domain.Tag{}, nil
	}

	names := make([]string, 0, len(rows))
	for _, row := range rows {
		names = append(names, row.TagName)
	}
	var members []tagUserRow
	if err := db.Where("tag_name IN ?", names).Order("user_id").Find(&members).Error; err != nil {
		return nil, err
	}
	byTag := make(map[string][]string, len(rows))
	for _, m := range members {
		byTag[m.TagName] = append(byTag[m.TagName], m.UserID)
	}

	tags := make([]domain.Tag, 0, len(rows))
	for _, row := range rows {
		ids := byTag[row.TagName]
		if ids == nil {
			ids = []string{}
		}
		tags = append(tags, domain.Tag{TagName: row.TagName, UserIDs: ids})
	}
	return tags, nil
}
