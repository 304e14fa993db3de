package store

import (
	"context"
	"errors"
)

// Storage is the durable key/value storage the session mirrors its token
// into. It plays the role browser local storage plays for a web client: the
// values survive process restarts.
type Storage interface {
	// Get returns the value and whether the key was present.
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(ctx context.Context, key string) error
	Close(ctx context.Context) error
}

// ErrEmptyKey is returned by every driver for an empty key.
var ErrEmptyKey = errors.New("storage key required")

// Config describes the high level storage selection parameters.
type Config struct {
	Driver string
	File   *FileConfig
	SQLite *SQLiteConfig
	Redis  *RedisConfig
}

// FileConfig locates the JSON document used by the file driver.
type FileConfig struct {
	Path string
}

// SQLiteConfig provides the database location when no handle is injected.
type SQLiteConfig struct {
	DSN string
}

// RedisConfig captures connection options.
type RedisConfig struct {
	Addr     string
	Username string
	Password string
	DB       int
	Prefix   string
}
