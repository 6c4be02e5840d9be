package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/core/prefs"
)

const (
	queryGetLanguage = `SELECT language FROM chat_languages WHERE chat_id = $1`
	querySetLanguage = `
INSERT INTO chat_languages (chat_id, language, updated_at)
VALUES ($1, $2, now())
ON CONFLICT (chat_id) DO UPDATE SET language = EXCLUDED.language, updated_at = now()`
)

// PreferenceStore persists chat languages in the chat_languages table.
type PreferenceStore struct {
	db *DB
}

func NewPreferenceStore(db *DB) *PreferenceStore {
	return &PreferenceStore{db: db}
}

// Get implements prefs.Store. Chats without a row, or with a value that is
// no longer supported, resolve to i18n.Default.
func (s *PreferenceStore) Get(ctx context.Context, chatID int64) (i18n.Language, error) {
	var code string

	err := s.db.Pool.QueryRow(ctx, queryGetLanguage, chatID).Scan(&code)
	if errors.Is(err, pgx.ErrNoRows) {
		return i18n.Default, nil
	}

	if err != nil {
		return "", fmt.Errorf("get chat language: %w", err)
	}

	lang, ok := i18n.ParseLanguage(code)
	if !ok {
		s.db.Logger.Warn().Int64(logFieldChatID, chatID).Str(logFieldLanguage, code).Msg("stored language is not supported")

		return i18n.Default, nil
	}

	return lang, nil
}

// Set implements prefs.Store.
func (s *PreferenceStore) Set(ctx context.Context, chatID int64, lang i18n.Language) error {
	if _, err := s.db.Pool.Exec(ctx, querySetLanguage, chatID, string(lang)); err != nil {
		return fmt.Errorf("set chat language: %w", err)
	}

	return nil
}

var _ prefs.Store = (*PreferenceStore)(nil)
