// Package llm builds completion requests and calls the chat-completion
// provider.
package llm

import (
	"context"

	"github.com/chatmaster/relay-bot/internal/core/i18n"
)

// Message roles.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// Message is one role-tagged chat message.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UserMessage is a shorthand for a user-role message.
func UserMessage(content string) Message {
	return Message{Role: RoleUser, Content: content}
}

// Request is a provider-agnostic completion request: one system message
// followed by the caller's messages. It is never modified after NewRequest.
type Request struct {
	Language i18n.Language
	Messages []Message
}

// NewRequest prepends the system message to a copy of msgs.
func NewRequest(lang i18n.Language, system string, msgs []Message) Request {
	all := make([]Message, 0, len(msgs)+1)
	all = append(all, Message{Role: RoleSystem, Content: system})
	all = append(all, msgs...)

	return Request{Language: lang, Messages: all}
}

// Completer returns the provider's reply for msgs in the given language.
type Completer interface {
	Complete(ctx context.Context, lang i18n.Language, msgs []Message) (string, error)
}

// SystemPrompter supplies the system message for a language.
type SystemPrompter interface {
	SystemMessage(lang i18n.Language) string
}
