package testing

import (
	"bytes"
	"path/filepath"
	"sync"
	"testing"

	"voice-chat-go/internal/platform/config"
	"voice-chat-go/internal/platform/logging"
)

// SetupTestConfig returns the default configuration with every on-disk
// location moved under t.TempDir() and the in-memory token storage.
func SetupTestConfig(t *testing.T) *config.Config {
	t.Helper()

	dir := t.TempDir()
	cfg := config.DefaultConfig()
	cfg.Storage.Driver = "memory"
	cfg.Storage.File.Path = filepath.Join(dir, "storage.json")
	cfg.Storage.SQLite.DSN = filepath.Join(dir, "voicechat.db")
	cfg.Dev.Listen = "127.0.0.1:0"
	cfg.Dev.StaticDir = ""
	cfg.Log = config.LogConfig{Level: "DEBUG"}
	return cfg
}

// LogBuffer is a goroutine safe sink for console logs.
type LogBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *LogBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *LogBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

// SetupTestLogger returns a debug logger writing into the returned buffer.
func SetupTestLogger(t *testing.T) (*logging.Logger, *LogBuffer) {
	t.Helper()

	buf := &LogBuffer{}
	logger, err := logging.New(logging.Config{Level: "DEBUG", Console: buf})
	if err != nil {
		t.Fatalf("failed to create test logger: %v", err)
	}
	t.Cleanup(func() { _ = logger.Close() })
	return logger, buf
}
