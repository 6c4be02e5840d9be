// Package telegrambot connects the relay to the Telegram Bot API: it
// long-polls updates, hands them to a Handler and delivers the replies.
package telegrambot

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/chatmaster/relay-bot/internal/core/domain"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
)

const (
	defaultPollTimeout   = 60
	defaultMaxConcurrent = 64

	logFieldChatID   = "chat_id"
	logFieldCategory = "category"
)

// Handler produces the reply for one inbound message.
type Handler interface {
	Handle(ctx context.Context, msg domain.InboundMessage) (domain.Reply, bool)
}

// Options tune the update loop.
type Options struct {
	// PollTimeout is the long-poll timeout in seconds.
	PollTimeout int
	// MaxConcurrent bounds the number of updates handled at once.
	MaxConcurrent int
}

type Bot struct {
	api    *tgbotapi.BotAPI
	opts   Options
	sem    chan struct{}
	wg     sync.WaitGroup
	logger *zerolog.Logger
}

// New connects to the Bot API with token.
func New(token string, opts Options, logger *zerolog.Logger) (*Bot, error) {
	if logger != nil {
		_ = tgbotapi.SetLogger(apiLogger{logger: logger})
	}

	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("creating bot API: %w", httpclient.RedactError(err))
	}

	return NewWithAPI(api, opts, logger), nil
}

// NewWithAPI wraps an existing API client.
func NewWithAPI(api *tgbotapi.BotAPI, opts Options, logger *zerolog.Logger) *Bot {
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = defaultPollTimeout
	}

	if opts.MaxConcurrent <= 0 {
		opts.MaxConcurrent = defaultMaxConcurrent
	}

	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str("component", "telegram").Logger()

	return &Bot{
		api:    api,
		opts:   opts,
		sem:    make(chan struct{}, opts.MaxConcurrent),
		logger: &l,
	}
}

// Username is the bot's Telegram username.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// FileURL resolves a file id to a direct download URL.
func (b *Bot) FileURL(_ context.Context, fileID string) (string, error) {
	url, err := b.api.GetFileDirectURL(fileID)
	if err != nil {
		observability.SendFailures.WithLabelValues(methodGetFile).Inc()

		return "", fmt.Errorf("get file %s: %w", fileID, httpclient.RedactError(err))
	}

	return url, nil
}

// Typing shows the typing indicator in chatID.
func (b *Bot) Typing(_ context.Context, chatID int64) error {
	if _, err := b.api.Request(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)); err != nil {
		observability.SendFailures.WithLabelValues(methodChatAction).Inc()

		return fmt.Errorf("send chat action: %w", httpclient.RedactError(err))
	}

	return nil
}

// Run polls updates until ctx is canceled and handles each one in its own
// goroutine. Handlers are detached from ctx: on shutdown Run stops polling
// and waits for in-flight updates to finish.
func (b *Bot) Run(ctx context.Context, h Handler) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.opts.PollTimeout

	updates := b.api.GetUpdatesChan(u)
	taskCtx := context.WithoutCancel(ctx)

	defer b.wg.Wait()
	defer b.api.StopReceivingUpdates()

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("bot run context canceled: %w", ctx.Err())
		case update, ok := <-updates:
			if !ok {
				return nil
			}

			msg, ok := ToInbound(update)
			if !ok {
				continue
			}

			select {
			case b.sem <- struct{}{}:
			case <-ctx.Done():
				return fmt.Errorf("bot run context canceled: %w", ctx.Err())
			}

			b.wg.Add(1)

			go b.process(taskCtx, h, msg)
		}
	}
}

func (b *Bot) process(ctx context.Context, h Handler, msg domain.InboundMessage) {
	observability.InFlightUpdates.Inc()

	defer func() {
		observability.InFlightUpdates.Dec()
		<-b.sem
		b.wg.Done()
	}()

	b.logger.Debug().Int64(logFieldChatID, msg.ChatID).Str(logFieldCategory, string(msg.Category)).Msg("handling update")

	reply, ok := h.Handle(ctx, msg)
	if !ok {
		return
	}

	b.Deliver(reply)
}
