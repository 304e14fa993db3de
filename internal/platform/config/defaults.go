package config

import (
	"os"
	"path/filepath"
	"time"
)

const (
	DefaultBackendURL = "http://localhost:8002"
	DefaultTokenPath  = "/api/v1/auth/token"
	DefaultDevListen  = "0.0.0.0:5173"
)

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			BaseURL:   DefaultBackendURL,
			TokenPath: DefaultTokenPath,
			Timeout:   10 * time.Second,
		},
		Storage: StorageConfig{
			Driver: "file",
			File: FileStorageConfig{
				Path: defaultStoragePath(),
			},
			SQLite: SQLiteStoreConfig{
				DSN: "data/voicechat.db",
			},
			Redis: RedisStorageConfig{
				Addr:   "127.0.0.1:6379",
				Prefix: "voicechat:storage:",
			},
		},
		Dev: DevConfig{
			Listen:       DefaultDevListen,
			StaticDir:    "web/dist",
			AllowedHosts: []string{"*"},
			Proxy: []ProxyRule{
				{Prefix: "/api", Target: DefaultBackendURL, ChangeOrigin: true},
				{Prefix: "/static", Target: DefaultBackendURL, ChangeOrigin: true},
			},
		},
		Log: LogConfig{
			Level: "INFO",
		},
	}
}

func defaultStoragePath() string {
	dir, err := os.UserConfigDir()
	if err != nil || dir == "" {
		return filepath.Join("data", "storage.json")
	}
	return filepath.Join(dir, "voicechat", "storage.json")
}
