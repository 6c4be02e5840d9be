package relay

import (
	"context"
	"strings"

	"github.com/rs/zerolog"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/core/domain"
	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/core/prefs"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
)

// Commands answers /start and /language and applies language selections.
type Commands struct {
	catalog *i18n.Catalog
	store   prefs.Store
	logger  *zerolog.Logger
}

// NewCommands creates the command handler. A nil logger disables logging.
func NewCommands(catalog *i18n.Catalog, store prefs.Store, logger *zerolog.Logger) *Commands {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &Commands{
		catalog: catalog,
		store:   store,
		logger:  logger,
	}
}

// Start returns the greeting with one selector button per supported
// language. It never writes to the store.
func (c *Commands) Start(chatID int64, lang i18n.Language) domain.Reply {
	choices := make([]domain.Choice, 0, len(i18n.Supported))
	for _, l := range i18n.Supported {
		choices = append(choices, domain.Choice{
			Label: c.catalog.Button(l),
			Data:  CallbackPrefixLanguage + string(l),
		})
	}

	return domain.Reply{
		ChatID:  chatID,
		Text:    c.catalog.Greeting(lang),
		Choices: choices,
	}
}

// SelectLanguage handles a selector callback. The callback is always
// acknowledged; only a recognized "lang_<code>" payload is stored and
// answered with the welcome text.
func (c *Commands) SelectLanguage(ctx context.Context, msg domain.InboundMessage) domain.Reply {
	reply := domain.Reply{ChatID: msg.ChatID, CallbackID: msg.CallbackID}

	code, found := strings.CutPrefix(msg.CallbackData, CallbackPrefixLanguage)
	if !found {
		c.logger.Debug().Int64(logFieldChatID, msg.ChatID).Str(logFieldData, msg.CallbackData).Msg("ignoring foreign callback")

		return reply
	}

	lang, ok := i18n.ParseLanguage(code)
	if !ok {
		c.logger.Warn().Int64(logFieldChatID, msg.ChatID).Str(logFieldData, msg.CallbackData).Msg("unknown language in callback")

		return reply
	}

	if err := c.store.Set(ctx, msg.ChatID, lang); err != nil {
		appErr := apperrors.New(apperrors.KindUnclassified, opSelectLang, err)
		c.logger.Error().Err(appErr).Int64(logFieldChatID, msg.ChatID).Str(logFieldLanguage, string(lang)).Msg("failed to store language")

		reply.Text = c.catalog.Error(lang, appErr.Kind)

		return reply
	}

	observability.StoredPreferences.WithLabelValues(string(lang)).Inc()
	c.logger.Info().Int64(logFieldChatID, msg.ChatID).Str(logFieldLanguage, string(lang)).Msg("language selected")

	reply.Text = c.catalog.Welcome(lang)

	return reply
}
