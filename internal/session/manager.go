package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"stayhaven/internal/hotelapi"
	"stayhaven/internal/metrics"
	"stayhaven/internal/model"

	"github.com/rs/zerolog"
)

var ErrMissingCredentials = errors.New("username and password are required")

// Authenticator exchanges credentials for a token.
type Authenticator interface {
	Login(ctx context.Context, username, password string) (*hotelapi.AuthResult, error)
}

// Manager is the single place where the current session is read and changed.
type Manager struct {
	store Store
	auth  Authenticator
	ttl   time.Duration
	now   func() time.Time
}

func NewManager(store Store, auth Authenticator, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &Manager{store: store, auth: auth, ttl: ttl, now: time.Now}
}

// Current returns the session of chatID, or an anonymous one when the chat is
// not logged in or its session expired.
func (m *Manager) Current(ctx context.Context, chatID int64) (*Session, error) {
	s, err := m.store.Get(ctx, chatID)
	if err != nil {
		return Anonymous(chatID), fmt.Errorf("load session: %w", err)
	}
	if s == nil {
		return Anonymous(chatID), nil
	}
	if s.Expired(m.now()) {
		if err := m.store.Delete(ctx, chatID); err != nil {
			zerolog.Ctx(ctx).Warn().Err(err).Int64("chat_id", chatID).Msg("failed to drop expired session")
		}
		metrics.IncSession("expired")
		return Anonymous(chatID), nil
	}
	return s, nil
}

// Login authenticates and stores the session for chatID.
func (m *Manager) Login(ctx context.Context, chatID int64, username, password string) (*Session, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingCredentials
	}
	res, err := m.auth.Login(ctx, username, password)
	if err != nil {
		metrics.IncSession("login_failed")
		return nil, fmt.Errorf("login: %w", err)
	}
	s := &Session{
		ChatID:    chatID,
		Token:     res.Token,
		User:      res.User,
		ExpiresAt: m.now().Add(m.ttl),
	}
	if err := m.store.Save(ctx, s); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}
	metrics.IncSession("login")
	return s, nil
}

// Logout drops the session of chatID.
func (m *Manager) Logout(ctx context.Context, chatID int64) error {
	if err := m.store.Delete(ctx, chatID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	metrics.IncSession("logout")
	return nil
}

// UpdateUser replaces the cached account after a profile save.
func (m *Manager) UpdateUser(ctx context.Context, chatID int64, user model.User) error {
	s, err := m.Current(ctx, chatID)
	if err != nil {
		return err
	}
	if !s.IsAuthenticated() {
		return nil
	}
	s.User = user
	return m.store.Save(ctx, s)
}
