package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"voice-chat-go/internal/domain/auth/store"
	"voice-chat-go/internal/domain/eventbus"
	platformerrors "voice-chat-go/internal/platform/errors"
)

// TokenKey is the durable storage key holding the raw access token.
const TokenKey = "token"

// Logger provides the minimal logging contract required by the auth domain.
type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// User is the optional profile attached to a session.
type User struct {
	Username string `json:"username"`
	Email    string `json:"email,omitempty"`
	FullName string `json:"full_name,omitempty"`
}

// Options encapsulates the dependencies required to construct a Session.
type Options struct {
	Storage store.Storage
	Client  TokenRequester
	Logger  Logger
	Bus     eventbus.Bus
}

// Session holds the bearer token of the current user. Storage is the source
// of truth across restarts: the token is read from it once at construction
// and every mutation is written to it.
type Session struct {
	storage store.Storage
	client  TokenRequester
	logger  Logger
	bus     eventbus.Bus

	mu    sync.RWMutex
	token string
	user  *User
}

// NewSession wires a Session and loads the persisted token. A storage read
// failure is logged and leaves the session unauthenticated.
func NewSession(ctx context.Context, opts Options) (*Session, error) {
	if opts.Storage == nil {
		return nil, errors.New("session requires a storage")
	}
	s := &Session{
		storage: opts.Storage,
		client:  opts.Client,
		logger:  opts.Logger,
		bus:     opts.Bus,
	}

	token, ok, err := opts.Storage.Get(ctx, TokenKey)
	switch {
	case err != nil:
		s.warn("[认证] 读取持久化令牌失败，以未登录状态启动: %v", err)
	case ok:
		s.token = token
	}
	return s, nil
}

func (s *Session) warn(format string, args ...any) {
	if s.logger != nil {
		s.logger.Warn(format, args...)
	}
}

// Token returns the current token, "" when unauthenticated.
func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

// IsAuthenticated reports whether a token is held.
func (s *Session) IsAuthenticated() bool {
	return s.Token() != ""
}

// User returns a copy of the attached profile, if any.
func (s *Session) User() *User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// SetUser attaches a profile to the session. It is not persisted.
func (s *Session) SetUser(u *User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if u == nil {
		s.user = nil
		return
	}
	cp := *u
	s.user = &cp
}

// Login exchanges credentials for a token, persists it, then adopts it in
// memory. On any failure the in-memory state is left untouched.
func (s *Session) Login(ctx context.Context, username, password string) error {
	if s.client == nil {
		return platformerrors.New(platformerrors.KindConfig, "session.login", "no token client configured")
	}

	token, err := s.client.RequestToken(ctx, username, password)
	if err != nil {
		return err
	}

	if err := s.storage.Set(ctx, TokenKey, token); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.login", "failed to persist token", err)
	}

	s.mu.Lock()
	s.token = token
	s.mu.Unlock()

	eventbus.Publish(s.bus, eventbus.EventSessionLogin, eventbus.SessionEventData{Username: username, At: time.Now()})
	return nil
}

// Logout clears the token in memory and removes it from storage. No network
// call is made. The in-memory token is cleared even if storage fails.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	s.token = ""
	s.user = nil
	s.mu.Unlock()

	eventbus.Publish(s.bus, eventbus.EventSessionLogout, eventbus.SessionEventData{At: time.Now()})

	if err := s.storage.Remove(ctx, TokenKey); err != nil {
		return platformerrors.Wrap(platformerrors.KindStorage, "session.logout", "failed to remove persisted token", err)
	}
	return nil
}
