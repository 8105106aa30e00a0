package db

import (
	"context"
	"database/sql"
	"errors"
	"net/url"
	"time"
)

// SaveLastSearch remembers the last submitted search query of a chat.
func (db *DB) SaveLastSearch(ctx context.Context, chatID int64, query url.Values) error {
	_, err := db.ExecContext(ctx, `
		INSERT INTO last_searches (chat_id, query, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chat_id) DO UPDATE SET
			query = excluded.query,
			updated_at = excluded.updated_at`,
		chatID, query.Encode(), time.Now().UTC())
	return err
}

// LastSearch returns the last submitted query, or nil if the chat never searched.
func (db *DB) LastSearch(ctx context.Context, chatID int64) (url.Values, error) {
	var raw string
	err := db.QueryRowContext(ctx, `SELECT query FROM last_searches WHERE chat_id = ?`, chatID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return url.ParseQuery(raw)
}
