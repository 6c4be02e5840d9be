package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// OCR engine names.
const (
	OCREngineTesseract = "tesseract"
	OCREngineVision    = "vision"
)

// Validation errors.
var (
	ErrInvalidTimeout   = errors.New("timeout must be positive")
	ErrUnknownOCREngine = errors.New("unknown OCR engine")
	ErrInvalidLimit     = errors.New("limit must be positive")
)

type Config struct {
	AppEnv   string `env:"APP_ENV" envDefault:"local"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	// Telegram
	BotToken             string `env:"BOT_TOKEN,required,notEmpty"`
	TelegramPollTimeout  int    `env:"TELEGRAM_POLL_TIMEOUT" envDefault:"60"`
	MaxConcurrentUpdates int    `env:"MAX_CONCURRENT_UPDATES" envDefault:"64"`

	// Completion provider
	OpenRouterAPIKey  string        `env:"OPENROUTER_KEY,required,notEmpty"`
	LLMEndpoint       string        `env:"LLM_ENDPOINT" envDefault:"https://openrouter.ai/api/v1/chat/completions"`
	LLMModel          string        `env:"LLM_MODEL" envDefault:"openai/gpt-3.5-turbo"`
	LLMReferer        string        `env:"LLM_REFERER" envDefault:"https://github.com/chatmaster/relay-bot"`
	LLMTitle          string        `env:"LLM_TITLE" envDefault:"ChatMaster AI Bot"`
	CompletionTimeout time.Duration `env:"COMPLETION_TIMEOUT" envDefault:"60s"`

	// Photo handling
	DownloadTimeout time.Duration `env:"DOWNLOAD_TIMEOUT" envDefault:"30s"`
	ScratchDir      string        `env:"SCRATCH_DIR"`
	OCREngine       string        `env:"OCR_ENGINE" envDefault:"tesseract"`
	OCRLanguages    string        `env:"OCR_LANGUAGES" envDefault:"eng+rus"`
	OCRTimeout      time.Duration `env:"OCR_TIMEOUT" envDefault:"60s"`
	TesseractPath   string        `env:"TESSERACT_PATH" envDefault:"tesseract"`
	VisionModel     string        `env:"VISION_MODEL" envDefault:"openai/gpt-4o-mini"`
	VisionBaseURL   string        `env:"VISION_BASE_URL" envDefault:"https://openrouter.ai/api/v1"`

	// Optional persistent preference store
	PostgresDSN         string        `env:"POSTGRES_DSN"`
	DBMaxConnections    int32         `env:"DB_MAX_CONNECTIONS" envDefault:"5"`
	DBMinConnections    int32         `env:"DB_MIN_CONNECTIONS" envDefault:"1"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"30m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// 0 disables the health/metrics listener.
	HealthPort int `env:"HEALTH_PORT" envDefault:"0"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if cfg.ScratchDir == "" {
		cfg.ScratchDir = os.TempDir()
	}

	cfg.OCREngine = strings.ToLower(strings.TrimSpace(cfg.OCREngine))

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects settings that would make the pipeline hang or misroute.
func (c *Config) Validate() error {
	timeouts := map[string]time.Duration{
		"COMPLETION_TIMEOUT": c.CompletionTimeout,
		"DOWNLOAD_TIMEOUT":   c.DownloadTimeout,
		"OCR_TIMEOUT":        c.OCRTimeout,
	}

	for name, d := range timeouts {
		if d <= 0 {
			return fmt.Errorf("%s: %w", name, ErrInvalidTimeout)
		}
	}

	if c.MaxConcurrentUpdates <= 0 {
		return fmt.Errorf("MAX_CONCURRENT_UPDATES: %w", ErrInvalidLimit)
	}

	switch c.OCREngine {
	case OCREngineTesseract, OCREngineVision:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownOCREngine, c.OCREngine)
	}

	return nil
}
