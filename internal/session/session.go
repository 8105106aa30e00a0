// Package session keeps the authenticated identity of each chat.
package session

import (
	"context"
	"time"

	"stayhaven/internal/model"
)

// Session is the login state of one chat. A zero Token means anonymous.
type Session struct {
	ChatID    int64      `json:"chat_id"`
	Token     string     `json:"token,omitempty"`
	User      model.User `json:"user"`
	ExpiresAt time.Time  `json:"expires_at"`
}

// Anonymous returns an unauthenticated session for chatID.
func Anonymous(chatID int64) *Session {
	return &Session{ChatID: chatID}
}

func (s *Session) IsAuthenticated() bool {
	return s != nil && s.Token != "" && s.User.ID != ""
}

func (s *Session) AccountID() string {
	if s == nil {
		return ""
	}
	return s.User.ID
}

// Expired reports whether the session is past its deadline.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Store persists sessions. Get returns nil, nil when nothing is stored.
type Store interface {
	Get(ctx context.Context, chatID int64) (*Session, error)
	Save(ctx context.Context, s *Session) error
	Delete(ctx context.Context, chatID int64) error
}
