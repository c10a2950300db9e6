package seenstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ProcessedPost is one fully-handled post id.
type ProcessedPost struct {
	PostID    string `gorm:"primarykey"`
	CreatedAt time.Time
}

// GormSeenStore persists the processed set in the relational database.
type GormSeenStore struct {
	DB *gorm.DB
}

func NewGormSeenStore(db *gorm.DB) (*GormSeenStore, error) {
	if err := db.AutoMigrate(&ProcessedPost{}); err != nil {
		return nil, fmt.Errorf("migrating processed posts table: %w", err)
	}
	return &GormSeenStore{DB: db}, nil
}

func (s *GormSeenStore) IsSeen(ctx context.Context, id string) (bool, error) {
	var count int64
	err := s.DB.WithContext(ctx).Model(&ProcessedPost{}).Where("post_id = ?", id).Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *GormSeenStore) MarkSeen(ctx context.Context, id string) error {
	row := ProcessedPost{PostID: id}
	return s.DB.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&row).Error
}
