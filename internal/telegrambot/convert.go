package telegrambot

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chatmaster/relay-bot/internal/core/domain"
)

// ToInbound converts a Telegram update into a platform-neutral message.
// ok is false for updates that carry neither a message nor a callback.
func ToInbound(update tgbotapi.Update) (domain.InboundMessage, bool) {
	if q := update.CallbackQuery; q != nil {
		return fromCallback(q)
	}

	m := update.Message
	if m == nil || m.Chat == nil {
		return domain.InboundMessage{}, false
	}

	in := domain.InboundMessage{
		ChatID: m.Chat.ID,
		Text:   m.Text,
	}

	switch {
	case m.IsCommand():
		in.Category = domain.CategoryCommand
		in.Command = strings.ToLower(m.Command())
	case m.Voice != nil:
		in.Category = domain.CategoryVoice
	case len(m.Photo) > 0:
		in.Category = domain.CategoryPhoto
		in.Photos = convertPhotos(m.Photo)
	case m.Text != "":
		in.Category = domain.CategoryText
	default:
		in.Category = domain.CategoryUnsupported
	}

	return in, true
}

func fromCallback(q *tgbotapi.CallbackQuery) (domain.InboundMessage, bool) {
	var chatID int64

	switch {
	case q.Message != nil && q.Message.Chat != nil:
		chatID = q.Message.Chat.ID
	case q.From != nil:
		chatID = q.From.ID
	default:
		return domain.InboundMessage{}, false
	}

	return domain.InboundMessage{
		ChatID:       chatID,
		Category:     domain.CategoryCallback,
		CallbackID:   q.ID,
		CallbackData: q.Data,
	}, true
}

// convertPhotos keeps Telegram's ascending size order.
func convertPhotos(sizes []tgbotapi.PhotoSize) []domain.PhotoSize {
	out := make([]domain.PhotoSize, 0, len(sizes))
	for _, s := range sizes {
		out = append(out, domain.PhotoSize{
			FileID:   s.FileID,
			Width:    s.Width,
			Height:   s.Height,
			FileSize: s.FileSize,
		})
	}

	return out
}
