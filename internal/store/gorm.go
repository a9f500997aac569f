package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"campusfeed/internal/models"

	"gorm.io/gorm"
)

// postRecord is the relational row for one post document.
type postRecord struct {
	ID        string `gorm:"primaryKey;size:64"`
	Version   uint64 `gorm:"not null"`
	Body      string `gorm:"type:text;not null"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (postRecord) TableName() string { return "posts" }

// GormStore stores posts as versioned JSON rows in Postgres or SQLite.
type GormStore struct {
	db *gorm.DB
}

// NewGormStore creates a GormStore on top of an open connection.
func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// Migrate creates or updates the posts table.
func (s *GormStore) Migrate(ctx context.Context) error {
	return s.db.WithContext(ctx).AutoMigrate(&postRecord{})
}

func (s *GormStore) Create(ctx context.Context, post *models.Post) error {
	post.Version = InitialVersion
	body, err := encodePost(post)
	if err != nil {
		return err
	}
	rec := postRecord{
		ID:        post.ID,
		Version:   InitialVersion,
		Body:      string(body),
		CreatedAt: post.CreatedAt,
		UpdatedAt: post.UpdatedAt,
	}
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrAlreadyExists
		}
		return fmt.Errorf("create post %s: %w", post.ID, err)
	}
	return nil
}

func (s *GormStore) Get(ctx context.Context, id string) (*models.Post, error) {
	var rec postRecord
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get post %s: %w", id, err)
	}
	return decodePost([]byte(rec.Body), rec.Version)
}

// Replace issues a single conditional UPDATE keyed on (id, version).
func (s *GormStore) Replace(ctx context.Context, post *models.Post) error {
	next := post.Version + 1
	staged := *post
	staged.Version = next
	body, err := encodePost(&staged)
	if err != nil {
		return err
	}

	res := s.db.WithContext(ctx).Model(&postRecord{}).
		Where("id = ? AND version = ?", post.ID, post.Version).
		Updates(map[string]interface{}{
			"body":       string(body),
			"version":    next,
			"updated_at": post.UpdatedAt,
		})
	if res.Error != nil {
		return fmt.Errorf("replace post %s: %w", post.ID, res.Error)
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := s.db.WithContext(ctx).Model(&postRecord{}).Where("id = ?", post.ID).Count(&count).Error; err != nil {
			return fmt.Errorf("replace post %s: %w", post.ID, err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrVersionConflict
	}

	post.Version = next
	return nil
}

func (s *GormStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}
