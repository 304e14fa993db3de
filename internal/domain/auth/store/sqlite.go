package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"voice-chat-go/internal/platform/storage"
)

type sqliteStore struct {
	db    *gorm.DB
	owned bool
}

// NewSQLite builds a SQLite-backed storage on an existing handle. The caller
// keeps ownership of db.
func NewSQLite(db *gorm.DB) (Storage, error) {
	return newSQLite(db, false)
}

func newSQLite(db *gorm.DB, owned bool) (Storage, error) {
	if db == nil {
		return nil, fmt.Errorf("sqlite storage requires database handle")
	}
	return &sqliteStore{db: db, owned: owned}, nil
}

func (s *sqliteStore) Get(ctx context.Context, key string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}
	var entry storage.StorageEntry
	err := s.db.WithContext(ctx).Where("storage_key = ?", key).First(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return entry.Value, true, nil
}

func (s *sqliteStore) Set(ctx context.Context, key, value string) error {
	if key == "" {
		return ErrEmptyKey
	}
	entry := storage.StorageEntry{Key: key, Value: value, UpdatedAt: time.Now()}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "storage_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
}

func (s *sqliteStore) Remove(ctx context.Context, key string) error {
	if key == "" {
		return ErrEmptyKey
	}
	return s.db.WithContext(ctx).Where("storage_key = ?", key).Delete(&storage.StorageEntry{}).Error
}

func (s *sqliteStore) Close(_ context.Context) error {
	if !s.owned {
		return nil
	}
	return storage.Close(s.db)
}
