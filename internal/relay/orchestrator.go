// Package relay turns inbound chat events into replies: it classifies the
// event, runs the photo or text pipeline and localizes any failure.
package relay

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/core/domain"
	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/core/llm"
	"github.com/chatmaster/relay-bot/internal/core/media"
	"github.com/chatmaster/relay-bot/internal/core/ocr"
	"github.com/chatmaster/relay-bot/internal/core/prefs"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/platform/textutil"
)

// Platform is the part of the chat platform the pipelines need.
type Platform interface {
	// FileURL resolves a platform file id to a downloadable URL.
	FileURL(ctx context.Context, fileID string) (string, error)
	// Typing shows a typing indicator in the chat.
	Typing(ctx context.Context, chatID int64) error
}

// Acquirer downloads a remote file into a scratch file.
type Acquirer interface {
	Acquire(ctx context.Context, url, fileID string) (*media.ScratchFile, error)
}

// Deps are the collaborators of an Orchestrator.
type Deps struct {
	Platform  Platform
	Store     prefs.Store
	Catalog   *i18n.Catalog
	Media     Acquirer
	OCR       ocr.Extractor
	Completer llm.Completer
	Logger    *zerolog.Logger
}

// Orchestrator routes each inbound message to exactly one pipeline and
// turns its outcome into a reply.
type Orchestrator struct {
	platform  Platform
	store     prefs.Store
	catalog   *i18n.Catalog
	media     Acquirer
	ocr       ocr.Extractor
	completer llm.Completer
	commands  *Commands
	logger    *zerolog.Logger
}

// NewOrchestrator creates an Orchestrator. A nil Deps.Logger disables logging.
func NewOrchestrator(d Deps) *Orchestrator {
	logger := d.Logger
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str("component", "relay").Logger()

	return &Orchestrator{
		platform:  d.Platform,
		store:     d.Store,
		catalog:   d.Catalog,
		media:     d.Media,
		ocr:       d.OCR,
		completer: d.Completer,
		commands:  NewCommands(d.Catalog, d.Store, &l),
		logger:    &l,
	}
}

// Handle produces the reply for msg. ok is false when the event is ignored.
// Handle never panics and never returns a raw error: every failure becomes
// a localized reply in the chat's language.
func (o *Orchestrator) Handle(ctx context.Context, msg domain.InboundMessage) (reply domain.Reply, ok bool) {
	start := time.Now()
	lang := o.language(ctx, msg.ChatID)

	observability.UpdatesReceived.WithLabelValues(string(msg.Category)).Inc()

	defer func() {
		if r := recover(); r != nil {
			err := apperrors.New(apperrors.KindUnclassified, opHandle, fmt.Errorf("panic: %v", r))
			o.logger.Error().
				Err(err).
				Int64(logFieldChatID, msg.ChatID).
				Str(logFieldCategory, string(msg.Category)).
				Bytes("stack", debug.Stack()).
				Msg("recovered from panic while handling message")

			reply, ok = o.failure(msg, lang, err), true
		}
	}()

	switch msg.Category {
	case domain.CategoryCommand:
		if msg.Command == domain.CommandStart || msg.Command == domain.CommandLanguage {
			return o.commands.Start(msg.ChatID, lang), true
		}

		o.logger.Debug().Int64(logFieldChatID, msg.ChatID).Str("command", msg.Command).Msg("ignoring command")

		return domain.Reply{}, false

	case domain.CategoryCallback:
		return o.commands.SelectLanguage(ctx, msg), true

	case domain.CategoryVoice:
		return o.failure(msg, lang, apperrors.New(apperrors.KindUnsupportedInput, opHandle, apperrors.ErrVoiceUnsupported)), true

	case domain.CategoryPhoto:
		o.typing(ctx, msg.ChatID)

		return o.respond(msg, lang, start, o.processPhoto(ctx, msg, lang)), true

	case domain.CategoryText:
		o.typing(ctx, msg.ChatID)

		return o.respond(msg, lang, start, o.processText(ctx, msg, lang)), true

	default:
		return domain.Reply{}, false
	}
}

type pipelineResult struct {
	text string
	err  error
}

func result(text string, err error) pipelineResult {
	return pipelineResult{text: text, err: err}
}

func (o *Orchestrator) processText(ctx context.Context, msg domain.InboundMessage, lang i18n.Language) pipelineResult {
	return result(o.complete(ctx, lang, msg.Text))
}

func (o *Orchestrator) processPhoto(ctx context.Context, msg domain.InboundMessage, lang i18n.Language) pipelineResult {
	photo, ok := msg.LargestPhoto()
	if !ok {
		return result("", apperrors.New(apperrors.KindAcquisition, opResolveFile, apperrors.ErrNoPhoto))
	}

	url, err := o.platform.FileURL(ctx, photo.FileID)
	if err != nil {
		return result("", apperrors.New(apperrors.KindAcquisition, opResolveFile, err))
	}

	file, err := o.media.Acquire(ctx, url, photo.FileID)
	if err != nil {
		return result("", err)
	}

	text, err := o.extract(ctx, file, photo.FileID)
	if err != nil {
		return result("", err)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return result("", apperrors.New(apperrors.KindEmptyText, opHandle, apperrors.ErrNoText))
	}

	return result(o.complete(ctx, lang, o.catalog.PhotoPrompt(lang, text)))
}

// extract runs OCR on file and removes it before returning, whatever the
// outcome.
func (o *Orchestrator) extract(ctx context.Context, file *media.ScratchFile, fileID string) (string, error) {
	defer func() {
		if err := file.Remove(); err != nil {
			o.logger.Warn().Err(err).Str(logFieldFileID, fileID).Msg("failed to remove scratch file")
		}
	}()

	text, err := o.ocr.Extract(ctx, file.Path)
	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			err = apperrors.New(apperrors.KindExtraction, opHandle, err)
		}

		return "", err
	}

	return text, nil
}

func (o *Orchestrator) complete(ctx context.Context, lang i18n.Language, content string) (string, error) {
	reply, err := o.completer.Complete(ctx, lang, []llm.Message{llm.UserMessage(content)})
	if err != nil {
		var appErr *apperrors.Error
		if !errors.As(err, &appErr) {
			err = apperrors.New(apperrors.KindCompletion, opComplete, err)
		}

		return "", err
	}

	return reply, nil
}

func (o *Orchestrator) respond(msg domain.InboundMessage, lang i18n.Language, start time.Time, res pipelineResult) domain.Reply {
	if res.err != nil {
		return o.failure(msg, lang, res.err)
	}

	observability.RepliesSent.WithLabelValues(outcomeOK).Inc()
	o.logger.Debug().
		Int64(logFieldChatID, msg.ChatID).
		Str(logFieldCategory, string(msg.Category)).
		Dur(logFieldDuration, time.Since(start)).
		Msg("reply ready")

	return domain.Reply{ChatID: msg.ChatID, Text: res.text}
}

// failure logs err with its full detail and returns the localized message
// for its kind. Callback acknowledgements are preserved.
func (o *Orchestrator) failure(msg domain.InboundMessage, lang i18n.Language, err error) domain.Reply {
	kind := apperrors.KindOf(err)

	observability.RepliesSent.WithLabelValues(kind.String()).Inc()

	event := o.logger.Error()
	if kind == apperrors.KindUnsupportedInput {
		event = o.logger.Info()
	}

	event = event.
		Err(err).
		Int64(logFieldChatID, msg.ChatID).
		Str(logFieldCategory, string(msg.Category)).
		Str(logFieldKind, kind.String())

	var appErr *apperrors.Error
	if errors.As(err, &appErr) && appErr.Status != 0 {
		event = event.Int(logFieldStatus, appErr.Status).Str(logFieldBody, textutil.Truncate(appErr.Body, maxLoggedBody))
	}

	event.Msg("request failed")

	return domain.Reply{
		ChatID:     msg.ChatID,
		Text:       o.catalog.Error(lang, kind),
		CallbackID: msg.CallbackID,
	}
}

func (o *Orchestrator) typing(ctx context.Context, chatID int64) {
	if err := o.platform.Typing(ctx, chatID); err != nil {
		o.logger.Debug().Err(err).Int64(logFieldChatID, chatID).Msg("typing indicator failed")
	}
}

// language returns the chat's stored language, falling back to the default
// when the store cannot be read.
func (o *Orchestrator) language(ctx context.Context, chatID int64) i18n.Language {
	lang, err := o.store.Get(ctx, chatID)
	if err != nil {
		o.logger.Warn().Err(err).Int64(logFieldChatID, chatID).Msg("failed to read language preference")

		return i18n.Default
	}

	return lang
}
