// Package app wires the relay together and runs it.
//
// Startup order: validate the localization catalog, open the preference
// store (Postgres when configured, memory otherwise), start the optional
// health/metrics listener, connect to Telegram, then poll until the
// context is canceled.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/core/llm"
	"github.com/chatmaster/relay-bot/internal/core/media"
	"github.com/chatmaster/relay-bot/internal/core/ocr"
	"github.com/chatmaster/relay-bot/internal/core/prefs"
	"github.com/chatmaster/relay-bot/internal/platform/config"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/relay"
	"github.com/chatmaster/relay-bot/internal/storage"
	"github.com/chatmaster/relay-bot/internal/telegrambot"
)

const errBotInit = "bot initialization failed: %w"

// App holds the configuration and logger shared by all components.
type App struct {
	cfg    *config.Config
	logger *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, logger *zerolog.Logger) *App {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	return &App{
		cfg:    cfg,
		logger: logger,
	}
}

// Run starts the bot and blocks until ctx is canceled or polling fails.
func (a *App) Run(ctx context.Context) error {
	catalog, err := i18n.Load()
	if err != nil {
		return fmt.Errorf("load locales: %w", err)
	}

	store, ready, closeStore, err := a.newPreferenceStore(ctx)
	if err != nil {
		return err
	}
	defer closeStore()

	a.startHealthServer(ctx, ready)

	bot, err := telegrambot.New(a.cfg.BotToken, telegrambot.Options{
		PollTimeout:   a.cfg.TelegramPollTimeout,
		MaxConcurrent: a.cfg.MaxConcurrentUpdates,
	}, a.logger)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	orch, err := a.newOrchestrator(bot, store, catalog)
	if err != nil {
		return fmt.Errorf(errBotInit, err)
	}

	a.logger.Info().
		Str("username", bot.Username()).
		Str("model", a.cfg.LLMModel).
		Str("ocr_engine", a.cfg.OCREngine).
		Msg("ChatMaster AI bot is running")

	if err := bot.Run(ctx, orch); err != nil {
		return fmt.Errorf("bot run: %w", err)
	}

	return nil
}

// newOrchestrator builds the message pipeline on top of platform.
func (a *App) newOrchestrator(platform relay.Platform, store prefs.Store, catalog *i18n.Catalog) (*relay.Orchestrator, error) {
	extractor, err := ocr.New(a.cfg.OCRCfg(), a.logger)
	if err != nil {
		return nil, fmt.Errorf("ocr engine: %w", err)
	}

	client := httpclient.New(a.cfg.CompletionTimeout)

	return relay.NewOrchestrator(relay.Deps{
		Platform:  platform,
		Store:     store,
		Catalog:   catalog,
		Media:     media.NewDownloader(client, a.cfg.ScratchDir, a.cfg.DownloadTimeout, a.logger),
		OCR:       extractor,
		Completer: llm.NewOpenRouter(a.cfg.LLMCfg(), client, catalog, a.logger),
		Logger:    a.logger,
	}), nil
}

// newPreferenceStore returns the Postgres store when a DSN is configured and
// the in-memory store otherwise. ready is nil for the memory store.
func (a *App) newPreferenceStore(ctx context.Context) (store prefs.Store, ready observability.Pinger, closeFn func(), err error) {
	dbCfg := a.cfg.DatabaseCfg()
	if !dbCfg.Enabled() {
		a.logger.Info().Msg("POSTGRES_DSN not set, language preferences are kept in memory")

		return prefs.NewMemoryStore(), nil, func() {}, nil
	}

	database, err := storage.NewWithOptions(ctx, dbCfg.PostgresDSN, storage.PoolOptionsFrom(dbCfg), a.logger)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	if err := database.Migrate(ctx); err != nil {
		database.Close()

		return nil, nil, nil, fmt.Errorf("run migrations: %w", err)
	}

	return storage.NewPreferenceStore(database), database, database.Close, nil
}

// startHealthServer serves /healthz, /readyz and /metrics in the background
// when HEALTH_PORT is set.
func (a *App) startHealthServer(ctx context.Context, ready observability.Pinger) {
	if a.cfg.HealthPort <= 0 {
		return
	}

	srv := observability.NewServer(a.cfg.HealthPort, ready, a.logger)

	go func() {
		if err := srv.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			a.logger.Error().Err(err).Msg("health check server error")
		}
	}()
}
