package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	gormlogger "gorm.io/gorm/logger"

	"mindmail/internal/errs"
)

// Preference is one row of the key-value table.
type Preference struct {
	Key       string    `gorm:"column:pref_key;primaryKey;type:varchar(255)"`
	Value     []byte    `gorm:"column:value"`
	UpdatedAt time.Time `gorm:"column:updated_at"`
}

// TableName pins the table name regardless of GORM's naming strategy.
func (Preference) TableName() string { return "preferences" }

// OpenGORM opens a sqlite or postgres database and migrates the preferences table.
func OpenGORM(driver, dsn string) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch driver {
	case "sqlite":
		dialector = sqlite.Open(dsn)
	case "postgres":
		dialector = postgres.Open(dsn)
	default:
		return nil, fmt.Errorf("unsupported gorm driver %q", driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to %s database: %w", driver, err)
	}
	if err := db.AutoMigrate(&Preference{}); err != nil {
		return nil, fmt.Errorf("failed to migrate preferences table: %w", err)
	}
	return db, nil
}

// GORMKVStore is a GORM implementation of KVStore.
type GORMKVStore struct {
	db *gorm.DB
}

// NewGORMKVStore creates a new instance of GORMKVStore.
func NewGORMKVStore(db *gorm.DB) *GORMKVStore {
	return &GORMKVStore{
		db: db,
	}
}

// Get retrieves the value stored under key.
func (s *GORMKVStore) Get(ctx context.Context, key string) ([]byte, error) {
	var pref Preference
	if err := s.db.WithContext(ctx).First(&pref, "pref_key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, errs.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get preference %s: %w", key, err)
	}
	return pref.Value, nil
}

// Set inserts or replaces the value stored under key.
func (s *GORMKVStore) Set(ctx context.Context, key string, value []byte) error {
	pref := Preference{Key: key, Value: value, UpdatedAt: time.Now()}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "pref_key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&pref).Error
	if err != nil {
		return fmt.Errorf("failed to set preference %s: %w", key, err)
	}
	return nil
}

// Delete removes key from the table.
func (s *GORMKVStore) Delete(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Delete(&Preference{}, "pref_key = ?", key).Error; err != nil {
		return fmt.Errorf("failed to delete preference %s: %w", key, err)
	}
	return nil
}

// Ping checks the underlying connection.
func (s *GORMKVStore) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// Close releases the connection pool.
func (s *GORMKVStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
