package config

import "time"

// DatabaseConfig holds settings for the optional Postgres preference store.
type DatabaseConfig struct {
	PostgresDSN       string
	MaxConnections    int32
	MinConnections    int32
	MaxConnIdleTime   time.Duration
	MaxConnLifetime   time.Duration
	HealthCheckPeriod time.Duration
}

// Enabled reports whether a DSN was configured.
func (d DatabaseConfig) Enabled() bool {
	return d.PostgresDSN != ""
}

// LLMConfig holds completion provider settings.
type LLMConfig struct {
	APIKey   string
	Endpoint string
	Model    string
	Referer  string
	Title    string
	Timeout  time.Duration
}

// OCRConfig holds text extraction settings.
type OCRConfig struct {
	Engine        string
	Languages     string
	Timeout       time.Duration
	TesseractPath string
	VisionModel   string
	VisionBaseURL string
	// APIKey is shared with the completion provider for the vision engine.
	APIKey string
}

// DatabaseCfg returns the database configuration.
func (c *Config) DatabaseCfg() DatabaseConfig {
	return DatabaseConfig{
		PostgresDSN:       c.PostgresDSN,
		MaxConnections:    c.DBMaxConnections,
		MinConnections:    c.DBMinConnections,
		MaxConnIdleTime:   c.DBMaxConnIdleTime,
		MaxConnLifetime:   c.DBMaxConnLifetime,
		HealthCheckPeriod: c.DBHealthCheckPeriod,
	}
}

// LLMCfg returns the completion provider configuration.
func (c *Config) LLMCfg() LLMConfig {
	return LLMConfig{
		APIKey:   c.OpenRouterAPIKey,
		Endpoint: c.LLMEndpoint,
		Model:    c.LLMModel,
		Referer:  c.LLMReferer,
		Title:    c.LLMTitle,
		Timeout:  c.CompletionTimeout,
	}
}

// OCRCfg returns the text extraction configuration.
func (c *Config) OCRCfg() OCRConfig {
	return OCRConfig{
		Engine:        c.OCREngine,
		Languages:     c.OCRLanguages,
		Timeout:       c.OCRTimeout,
		TesseractPath: c.TesseractPath,
		VisionModel:   c.VisionModel,
		VisionBaseURL: c.VisionBaseURL,
		APIKey:        c.OpenRouterAPIKey,
	}
}
