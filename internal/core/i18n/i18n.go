// Package i18n holds the localized strings the relay shows to users:
// system prompts, greetings, photo prompt framing and error messages.
//
// Strings live in an embedded YAML catalog. Lookups are two-level
// (kind -> language -> string) and Load validates that every supported
// language defines every string, so a missing translation fails startup
// instead of reaching a user.
package i18n

import (
	_ "embed"
	"fmt"
	"sort"
	"strings"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
)

// Language is a supported interface language code.
type Language string

// Supported languages.
const (
	Uzbek   Language = "uz"
	Russian Language = "ru"
	English Language = "en"

	// Default is used for chats that never selected a language.
	Default = Uzbek
)

// Supported lists languages in the order they are offered to users.
var Supported = []Language{Uzbek, Russian, English}

// Error message keys in the catalog.
const (
	keyAPI        = "api"
	keyConnection = "connection"
	keyOCR        = "ocr"
	keyNoText     = "no_text"
	keyVoice      = "voice"
)

var kindKeys = map[apperrors.Kind]string{
	apperrors.KindUnclassified:     keyConnection,
	apperrors.KindAcquisition:      keyConnection,
	apperrors.KindExtraction:       keyOCR,
	apperrors.KindEmptyText:        keyNoText,
	apperrors.KindCompletion:       keyAPI,
	apperrors.KindConnection:       keyConnection,
	apperrors.KindUnsupportedInput: keyVoice,
}

//go:embed locales.yaml
var defaultCatalog []byte

type entry struct {
	Button           string            `yaml:"button"`
	System           string            `yaml:"system"`
	Greeting         string            `yaml:"greeting"`
	Welcome          string            `yaml:"welcome"`
	PhotoLabel       string            `yaml:"photo_label"`
	PhotoInstruction string            `yaml:"photo_instruction"`
	Errors           map[string]string `yaml:"errors"`
}

// Catalog is an immutable, validated set of localized strings.
type Catalog struct {
	entries map[Language]entry
}

// Load parses the embedded catalog and validates its coverage.
func Load() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// MustLoad is Load for package-level initialization and tests.
func MustLoad() *Catalog {
	c, err := Load()
	if err != nil {
		panic(err)
	}

	return c
}

// Parse builds a catalog from YAML and validates it.
func Parse(data []byte) (*Catalog, error) {
	raw := map[Language]entry{}
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse locale catalog: %w", err)
	}

	c := &Catalog{entries: raw}
	if err := c.Validate(); err != nil {
		return nil, err
	}

	return c, nil
}

// Validate reports the first missing string for any supported language.
func (c *Catalog) Validate() error {
	for _, lang := range Supported {
		e, ok := c.entries[lang]
		if !ok {
			return fmt.Errorf("locale catalog: language %q missing", lang)
		}

		fields := map[string]string{
			"button":            e.Button,
			"system":            e.System,
			"greeting":          e.Greeting,
			"welcome":           e.Welcome,
			"photo_label":       e.PhotoLabel,
			"photo_instruction": e.PhotoInstruction,
		}

		for name, v := range fields {
			if strings.TrimSpace(v) == "" {
				return fmt.Errorf("locale catalog: %s.%s is empty", lang, name)
			}
		}

		for _, kind := range apperrors.Kinds {
			key, ok := kindKeys[kind]
			if !ok {
				return fmt.Errorf("locale catalog: no message key for kind %s", kind)
			}

			if strings.TrimSpace(e.Errors[key]) == "" {
				return fmt.Errorf("locale catalog: %s.errors.%s is empty (kind %s)", lang, key, kind)
			}
		}
	}

	return nil
}

// ParseLanguage normalizes a code such as "ru", "RU" or "ru-RU" to a
// supported Language.
func ParseLanguage(code string) (Language, bool) {
	tag, err := language.Parse(strings.TrimSpace(code))
	if err != nil {
		return "", false
	}

	base, _ := tag.Base()
	lang := Language(base.String())

	for _, l := range Supported {
		if l == lang {
			return lang, true
		}
	}

	return "", false
}

func (c *Catalog) entry(lang Language) entry {
	if e, ok := c.entries[lang]; ok {
		return e
	}

	return c.entries[Default]
}

// SystemMessage returns the system prompt sent ahead of every user message.
func (c *Catalog) SystemMessage(lang Language) string {
	return c.entry(lang).System
}

// Error returns the user-facing text for kind.
func (c *Catalog) Error(lang Language, kind apperrors.Kind) string {
	key, ok := kindKeys[kind]
	if !ok {
		key = keyConnection
	}

	if msg := c.entry(lang).Errors[key]; msg != "" {
		return msg
	}

	return c.entries[Default].Errors[key]
}

// Greeting is the reply to /start.
func (c *Catalog) Greeting(lang Language) string {
	return c.entry(lang).Greeting
}

// Welcome is sent after a language is selected.
func (c *Catalog) Welcome(lang Language) string {
	return c.entry(lang).Welcome
}

// Button is the label of the selector button for lang.
func (c *Catalog) Button(lang Language) string {
	return c.entry(lang).Button
}

// PhotoPrompt frames OCR output as a user message.
func (c *Catalog) PhotoPrompt(lang Language, text string) string {
	e := c.entry(lang)

	return fmt.Sprintf("%s: %s\n\n%s", e.PhotoLabel, text, e.PhotoInstruction)
}

// Coverage returns "lang: n strings" lines, used by the locales command.
func (c *Catalog) Coverage() []string {
	langs := make([]string, 0, len(c.entries))
	for lang := range c.entries {
		langs = append(langs, string(lang))
	}

	sort.Strings(langs)

	out := make([]string, 0, len(langs))
	for _, l := range langs {
		e := c.entries[Language(l)]
		out = append(out, fmt.Sprintf("%s: %d error messages", l, len(e.Errors)))
	}

	return out
}
