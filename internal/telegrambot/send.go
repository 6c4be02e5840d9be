package telegrambot

import (
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/chatmaster/relay-bot/internal/core/domain"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/platform/textutil"
)

// Telegram methods, used as metric labels.
const (
	methodSendMessage    = "sendMessage"
	methodAnswerCallback = "answerCallbackQuery"
	methodChatAction     = "sendChatAction"
	methodGetFile        = "getFile"
)

// buildMessages renders a reply as one or more plain-text messages. Inline
// choices are attached to the last part.
func buildMessages(reply domain.Reply) []tgbotapi.MessageConfig {
	parts := textutil.Split(reply.Text, textutil.MaxMessageSize)
	msgs := make([]tgbotapi.MessageConfig, 0, len(parts))

	for i, part := range parts {
		msg := tgbotapi.NewMessage(reply.ChatID, part)
		msg.DisableWebPagePreview = true

		if i == len(parts)-1 && len(reply.Choices) > 0 {
			msg.ReplyMarkup = keyboard(reply.Choices)
		}

		msgs = append(msgs, msg)
	}

	return msgs
}

// keyboard puts each choice on its own row.
func keyboard(choices []domain.Choice) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(choices))
	for _, c := range choices {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData(c.Label, c.Data)))
	}

	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Deliver sends the reply and acknowledges its callback. Failures are
// logged and counted, never retried.
func (b *Bot) Deliver(reply domain.Reply) {
	for i, msg := range buildMessages(reply) {
		if _, err := b.api.Send(msg); err != nil {
			observability.SendFailures.WithLabelValues(methodSendMessage).Inc()
			b.logger.Error().Err(httpclient.RedactError(err)).Int64(logFieldChatID, reply.ChatID).Int("part", i+1).Msg("failed to send reply")

			break
		}
	}

	if reply.CallbackID == "" {
		return
	}

	if _, err := b.api.Request(tgbotapi.NewCallback(reply.CallbackID, "")); err != nil {
		observability.SendFailures.WithLabelValues(methodAnswerCallback).Inc()
		b.logger.Error().Err(httpclient.RedactError(err)).Int64(logFieldChatID, reply.ChatID).Msg("failed to answer callback")
	}
}
