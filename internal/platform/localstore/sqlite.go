package localstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wellcheck/wellcheck/internal/platform/logging"
)

// item is one stored value. Value is kept as raw text: it is whatever
// the client wrote, valid JSON or not.
type item struct {
	Namespace string    `gorm:"primaryKey;size:64"`
	Key       string    `gorm:"primaryKey;column:item_key;size:128"`
	Value     string    `gorm:"type:text;not null"`
	UpdatedAt time.Time `gorm:"index"`
}

func (item) TableName() string { return "local_storage" }

// SQLite persists guest storage in a single SQLite file.
type SQLite struct {
	db *gorm.DB
}

// OpenSQLite opens (creating if needed) the database at path and
// migrates its schema.
func OpenSQLite(path string, logger zerolog.Logger) (*SQLite, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create guest store directory: %w", err)
		}
	}
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logging.NewGormLogger(logger),
	})
	if err != nil {
		return nil, fmt.Errorf("open guest store: %w", err)
	}
	if err := db.AutoMigrate(&item{}); err != nil {
		return nil, fmt.Errorf("migrate guest store: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) GetItem(ctx context.Context, namespace, key string) (string, bool, error) {
	var it item
	err := s.db.WithContext(ctx).
		Where("namespace = ? AND item_key = ?", namespace, key).
		Take(&it).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return it.Value, true, nil
}

func (s *SQLite) SetItem(ctx context.Context, namespace, key, value string) error {
	it := item{Namespace: namespace, Key: key, Value: value, UpdatedAt: time.Now().UTC()}
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "namespace"}, {Name: "item_key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
		}).
		Create(&it).Error
}

func (s *SQLite) RemoveItem(ctx context.Context, namespace, key string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ? AND item_key = ?", namespace, key).
		Delete(&item{}).Error
}

func (s *SQLite) Clear(ctx context.Context, namespace string) error {
	return s.db.WithContext(ctx).
		Where("namespace = ?", namespace).
		Delete(&item{}).Error
}

func (s *SQLite) PurgeOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	stale := s.db.Model(&item{}).
		Select("namespace").
		Group("namespace").
		Having("MAX(updated_at) < ?", cutoff.UTC())
	res := s.db.WithContext(ctx).
		Where("namespace IN (?)", stale).
		Delete(&item{})
	return res.RowsAffected, res.Error
}

// Close releases the underlying database handle.
func (s *SQLite) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
