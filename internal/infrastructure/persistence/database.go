package persistence

import (
	"fmt"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/amyhong0/imweb-cancel-notification/internal/infrastructure/persistence/models"
)

// Database holds the database connection and provides methods for database
// operations. The watcher uses a local SQLite file as its durable store.
type Database struct {
	DB *gorm.DB
}

// NewDatabase opens (or creates) the SQLite database at the given path and
// runs schema migration.
func NewDatabase(path string) (*Database, error) {
	return NewDatabaseWithLogger(path, gormlogger.Default.LogMode(gormlogger.Silent))
}

// NewDatabaseWithLogger opens the database with a custom GORM logger
func NewDatabaseWithLogger(path string, dbLogger gormlogger.Interface) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger:                 dbLogger,
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(&models.NotifiedOrder{}, &models.WatchCheckpoint{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return &Database{DB: db}, nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
