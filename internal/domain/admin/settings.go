package admin

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	platformerrors "voice-chat-go/internal/platform/errors"
)

// 默认连接参数
const (
	DefaultPort           = 3306
	DefaultUser           = "user"
	DefaultPassword       = "password"
	DefaultDatabase       = "voice_chat"
	DefaultConnectTimeout = 5 * time.Second
	DefaultQueryTimeout   = 10 * time.Second
)

// Settings holds the MySQL connection parameters read from .env.
type Settings struct {
	Host           string
	Port           int
	User           string
	Password       string
	Database       string
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration

	// Sources records where each key's value came from: SourceFile,
	// SourceEnv or SourceDefault.
	Sources map[string]string
}

// 配置来源
const (
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceDefault = "default"
)

// SettingKeys lists the keys LoadSettings reads, in log order.
var SettingKeys = []string{
	"MYSQL_HOST", "MYSQL_PORT", "MYSQL_USER", "MYSQL_PASSWORD", "MYSQL_DB",
	"MYSQL_CONNECT_TIMEOUT", "MYSQL_QUERY_TIMEOUT",
}

// Target is one connection attempt.
type Target struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// Addr returns host:port for log lines.
func (t Target) Addr() string {
	return fmt.Sprintf("%s:%d", t.Host, t.Port)
}

// LoadSettings reads envPath with godotenv. A missing file is not an error.
// Values from the file win; lookup (usually os.LookupEnv) fills the gaps and
// empty values fall back to the defaults.
func LoadSettings(envPath string, lookup func(string) (string, bool)) (Settings, error) {
	const op = "admin.load_settings"

	values, err := readEnvFile(envPath)
	if err != nil {
		return Settings{}, platformerrors.Wrap(platformerrors.KindConfig, op, "failed to read "+envPath, err)
	}
	if lookup == nil {
		lookup = os.LookupEnv
	}

	sources := make(map[string]string, len(SettingKeys))
	get := func(key, def string) string {
		if v := strings.TrimSpace(values[key]); v != "" {
			sources[key] = SourceFile
			return v
		}
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			sources[key] = SourceEnv
			return strings.TrimSpace(v)
		}
		sources[key] = SourceDefault
		return def
	}

	s := Settings{
		Sources:  sources,
		Host:     get("MYSQL_HOST", ""),
		User:     get("MYSQL_USER", DefaultUser),
		Password: get("MYSQL_PASSWORD", DefaultPassword),
		Database: get("MYSQL_DB", DefaultDatabase),
	}

	portRaw := get("MYSQL_PORT", strconv.Itoa(DefaultPort))
	s.Port, err = strconv.Atoi(portRaw)
	if err != nil || s.Port <= 0 || s.Port > 65535 {
		return Settings{}, platformerrors.New(platformerrors.KindConfig, op, "invalid MYSQL_PORT "+strconv.Quote(portRaw))
	}

	if s.ConnectTimeout, err = parseTimeout(get("MYSQL_CONNECT_TIMEOUT", ""), DefaultConnectTimeout); err != nil {
		return Settings{}, platformerrors.Wrap(platformerrors.KindConfig, op, "invalid MYSQL_CONNECT_TIMEOUT", err)
	}
	if s.QueryTimeout, err = parseTimeout(get("MYSQL_QUERY_TIMEOUT", ""), DefaultQueryTimeout); err != nil {
		return Settings{}, platformerrors.Wrap(platformerrors.KindConfig, op, "invalid MYSQL_QUERY_TIMEOUT", err)
	}
	return s, nil
}

// readEnvFile parses the .env file. When godotenv rejects the document the
// file is parsed line by line and lines it cannot read are skipped.
func readEnvFile(envPath string) (map[string]string, error) {
	raw, err := os.ReadFile(envPath)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, err
	}

	values, err := godotenv.Unmarshal(string(raw))
	if err == nil {
		return values, nil
	}

	values = map[string]string{}
	for _, line := range strings.Split(string(raw), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parsed, err := godotenv.Unmarshal(line)
		if err != nil {
			continue
		}
		for k, v := range parsed {
			values[k] = v
		}
	}
	return values, nil
}

// parseTimeout accepts Go durations ("5s") or plain seconds ("5").
func parseTimeout(raw string, def time.Duration) (time.Duration, error) {
	if raw == "" {
		return def, nil
	}
	if secs, err := strconv.Atoi(raw); err == nil {
		raw = strconv.Itoa(secs) + "s"
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %s", d)
	}
	return d, nil
}

// fallbackHosts are always tried after the configured host, in this order.
var fallbackHosts = []string{"localhost", "127.0.0.1"}

// BuildHosts returns the ordered host candidates: the configured host if
// any, then localhost, then 127.0.0.1. A configured host that is already one
// of the fallbacks is not tried twice and the fallback order is kept.
func BuildHosts(configured string) []string {
	configured = strings.TrimSpace(configured)
	hosts := make([]string, 0, len(fallbackHosts)+1)
	if configured != "" && !slices.Contains(fallbackHosts, configured) {
		hosts = append(hosts, configured)
	}
	return append(hosts, fallbackHosts...)
}

// Targets expands the settings into one Target per host candidate.
func (s Settings) Targets() []Target {
	hosts := BuildHosts(s.Host)
	targets := make([]Target, 0, len(hosts))
	for _, h := range hosts {
		targets = append(targets, Target{
			Host:     h,
			Port:     s.Port,
			User:     s.User,
			Password: s.Password,
			Database: s.Database,
		})
	}
	return targets
}
