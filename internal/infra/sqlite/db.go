// Package sqlite implements repository.Store on a single SQLite file with gorm.
package sqlite

import (
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
	gormsqlite "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/aliskhannn/mastery-engine/internal/repository"
)

// MemoryPath opens a private in-memory database.
const MemoryPath = ":memory:"

// Open opens the database at path and migrates the schema. SQLite allows a
// single writer, so the pool is limited to one connection and transactions
// run one after another.
func Open(path string, logger *zap.Logger) (*gorm.DB, error) {
	db, err := gorm.Open(gormsqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql db: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	} {
		if err := db.Exec(pragma).Error; err != nil {
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	if err := db.AutoMigrate(models...); err != nil {
		return nil, fmt.Errorf("migrate sqlite: %w", err)
	}

	logger.Info("sqlite database ready", zap.String("path", path))
	return db, nil
}

// Close releases the underlying connection.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// mapError reports lock contention as repository.ErrConflict.
func mapError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code {
		case sqlite3.ErrBusy, sqlite3.ErrLocked:
			return fmt.Errorf("%w: %w", repository.ErrConflict, err)
		}
	}
	return err
}
