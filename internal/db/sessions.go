package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"stayhaven/internal/model"
	"stayhaven/internal/session"
)

// SessionStore keeps sessions in SQLite. It implements session.Store.
type SessionStore struct {
	db *DB
}

func NewSessionStore(db *DB) *SessionStore {
	return &SessionStore{db: db}
}

func (s *SessionStore) Get(ctx context.Context, chatID int64) (*session.Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, user_json, expires_at
		FROM sessions
		WHERE chat_id = ?`, chatID)

	var (
		token     string
		userJSON  string
		expiresAt int64
	)
	if err := row.Scan(&token, &userJSON, &expiresAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}

	var user model.User
	if err := json.Unmarshal([]byte(userJSON), &user); err != nil {
		return nil, err
	}
	sess := &session.Session{ChatID: chatID, Token: token, User: user}
	if expiresAt > 0 {
		sess.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	}
	return sess, nil
}

func (s *SessionStore) Save(ctx context.Context, sess *session.Session) error {
	userJSON, err := json.Marshal(sess.User)
	if err != nil {
		return err
	}
	var expiresAt int64
	if !sess.ExpiresAt.IsZero() {
		expiresAt = sess.ExpiresAt.Unix()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO sessions (chat_id, token, user_json, expires_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			token = excluded.token,
			user_json = excluded.user_json,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`,
		sess.ChatID, sess.Token, string(userJSON), expiresAt, time.Now().UTC())
	return err
}

func (s *SessionStore) Delete(ctx context.Context, chatID int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM sessions WHERE chat_id = ?`, chatID)
	return err
}

// PurgeExpired removes sessions that expired before now.
func (s *SessionStore) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM sessions
		WHERE expires_at > 0 AND expires_at <= ?`, now.Unix())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
