package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultFile is looked up in the working directory when no path is given.
const DefaultFile = "voicechat.yaml"

// Loader reads the client configuration from defaults, an optional YAML file
// and environment overrides, in that order.
type Loader struct {
	useDotEnv bool
	path      string
	lookupEnv func(string) (string, bool)
}

// NewLoader creates a loader that preloads .env and reads voicechat.yaml.
func NewLoader() *Loader {
	return &Loader{
		useDotEnv: true,
		lookupEnv: os.LookupEnv,
	}
}

// WithDotEnv toggles loading variables from a .env file before reading config.
func (l *Loader) WithDotEnv(enabled bool) *Loader {
	l.useDotEnv = enabled
	return l
}

// WithPath pins the YAML file. A pinned file that does not exist is an error.
func (l *Loader) WithPath(path string) *Loader {
	l.path = path
	return l
}

// WithEnv overrides environment lookups (useful for tests).
func (l *Loader) WithEnv(lookup func(string) (string, bool)) *Loader {
	if lookup != nil {
		l.lookupEnv = lookup
	}
	return l
}

// Result captures the loaded configuration and its origin path.
type Result struct {
	Config *Config
	Path   string
}

// Load 加载配置
func (l *Loader) Load() (*Result, error) {
	if l.useDotEnv {
		// .env 不存在时不中断流程
		_ = godotenv.Load()
	}

	cfg := DefaultConfig()
	path, required := l.path, true
	if path == "" {
		if v, ok := l.lookupEnv("VOICECHAT_CONFIG"); ok && v != "" {
			path = v
		} else {
			path, required = DefaultFile, false
		}
	}

	origin := "default"
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
		origin = path
	case errors.Is(err, fs.ErrNotExist) && !required:
	default:
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}

	l.applyEnv(cfg)
	if err := l.validate(cfg); err != nil {
		return nil, err
	}

	return &Result{Config: cfg, Path: origin}, nil
}

func (l *Loader) applyEnv(cfg *Config) {
	if v, ok := l.lookupEnv("VOICECHAT_BACKEND_URL"); ok && v != "" {
		cfg.Backend.BaseURL = v
	}
	if v, ok := l.lookupEnv("VOICECHAT_STORAGE_DRIVER"); ok && v != "" {
		cfg.Storage.Driver = v
	}
	if v, ok := l.lookupEnv("VOICECHAT_LOG_LEVEL"); ok && v != "" {
		cfg.Log.Level = v
	}
	if v, ok := l.lookupEnv("VOICECHAT_DEV_LISTEN"); ok && v != "" {
		cfg.Dev.Listen = v
	}
}

func (l *Loader) validate(cfg *Config) error {
	if _, err := parseOrigin(cfg.Backend.BaseURL); err != nil {
		return fmt.Errorf("backend.base_url: %w", err)
	}
	if !strings.HasPrefix(cfg.Backend.TokenPath, "/") {
		return fmt.Errorf("backend.token_path must start with '/': %q", cfg.Backend.TokenPath)
	}
	if cfg.Backend.Timeout < 0 {
		return fmt.Errorf("backend.timeout must not be negative")
	}
	for i, rule := range cfg.Dev.Proxy {
		if !strings.HasPrefix(rule.Prefix, "/") {
			return fmt.Errorf("dev.proxy[%d].prefix must start with '/': %q", i, rule.Prefix)
		}
		if _, err := parseOrigin(rule.Target); err != nil {
			return fmt.Errorf("dev.proxy[%d].target: %w", i, err)
		}
	}
	return nil
}

func parseOrigin(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return nil, err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("unsupported scheme in %q", raw)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("missing host in %q", raw)
	}
	return u, nil
}
