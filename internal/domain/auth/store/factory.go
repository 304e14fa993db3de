package store

import (
	"fmt"

	"gorm.io/gorm"

	"voice-chat-go/internal/platform/storage"
)

// Driver identifiers supported by the session storage.
const (
	DriverMemory = "memory"
	DriverFile   = "file"
	DriverSQLite = "sqlite"
	DriverRedis  = "redis"
)

// Dependencies captures external handles required by certain drivers.
type Dependencies struct {
	SQLiteDB *gorm.DB
}

// New creates a storage driver based on the provided configuration.
func New(cfg Config, deps Dependencies) (Storage, error) {
	driver := cfg.Driver
	if driver == "" {
		driver = DriverMemory
	}

	switch driver {
	case DriverMemory:
		return NewMemory(), nil
	case DriverFile:
		if cfg.File == nil || cfg.File.Path == "" {
			return nil, fmt.Errorf("file driver requires a path")
		}
		return NewFile(cfg.File.Path)
	case DriverSQLite:
		db := deps.SQLiteDB
		owned := false
		if db == nil {
			if cfg.SQLite == nil || cfg.SQLite.DSN == "" {
				return nil, fmt.Errorf("sqlite driver requires database handle or dsn")
			}
			var err error
			if db, err = storage.OpenSQLite(cfg.SQLite.DSN); err != nil {
				return nil, err
			}
			owned = true
		}
		return newSQLite(db, owned)
	case DriverRedis:
		return NewRedis(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
