// Package prefs stores the interface language each chat selected.
package prefs

import (
	"context"
	"sync"

	"github.com/chatmaster/relay-bot/internal/core/i18n"
)

// Store maps a chat to its selected language.
// Get returns i18n.Default for chats that never selected one.
type Store interface {
	Get(ctx context.Context, chatID int64) (i18n.Language, error)
	Set(ctx context.Context, chatID int64, lang i18n.Language) error
}

// MemoryStore keeps preferences for the lifetime of the process.
type MemoryStore struct {
	langs sync.Map
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get implements Store.
func (s *MemoryStore) Get(_ context.Context, chatID int64) (i18n.Language, error) {
	v, ok := s.langs.Load(chatID)
	if !ok {
		return i18n.Default, nil
	}

	lang, ok := v.(i18n.Language)
	if !ok {
		return i18n.Default, nil
	}

	return lang, nil
}

// Set implements Store.
func (s *MemoryStore) Set(_ context.Context, chatID int64, lang i18n.Language) error {
	s.langs.Store(chatID, lang)

	return nil
}

// Len reports how many chats have a stored preference.
func (s *MemoryStore) Len() int {
	n := 0

	s.langs.Range(func(_, _ any) bool {
		n++

		return true
	})

	return n
}

var _ Store = (*MemoryStore)(nil)
