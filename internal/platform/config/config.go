package config

import (
	"time"
)

type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Dev     DevConfig     `yaml:"dev"`
	Log     LogConfig     `yaml:"log"`
}

// BackendConfig describes the API the session logs in against.
type BackendConfig struct {
	BaseURL   string        `yaml:"base_url"`
	TokenPath string        `yaml:"token_path"`
	Timeout   time.Duration `yaml:"timeout"`
}

// StorageConfig selects the durable storage driver that mirrors the session token.
type StorageConfig struct {
	Driver string             `yaml:"driver"`
	File   FileStorageConfig  `yaml:"file,omitempty"`
	SQLite SQLiteStoreConfig  `yaml:"sqlite,omitempty"`
	Redis  RedisStorageConfig `yaml:"redis,omitempty"`
}

type FileStorageConfig struct {
	Path string `yaml:"path"`
}

type SQLiteStoreConfig struct {
	DSN string `yaml:"dsn"`
}

type RedisStorageConfig struct {
	Addr     string `yaml:"addr"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
	DB       int    `yaml:"db,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
}

// DevConfig 本地开发服务器配置
type DevConfig struct {
	Listen       string      `yaml:"listen"`
	StaticDir    string      `yaml:"static_dir"`
	AllowedHosts []string    `yaml:"allowed_hosts"`
	Proxy        []ProxyRule `yaml:"proxy"`
}

// ProxyRule forwards every request whose path starts with Prefix to Target.
type ProxyRule struct {
	Prefix       string `yaml:"prefix"`
	Target       string `yaml:"target"`
	ChangeOrigin bool   `yaml:"change_origin"`
}

type LogConfig struct {
	Level string `yaml:"log_level"`
	Dir   string `yaml:"log_dir"`
	File  string `yaml:"log_file"`
}
