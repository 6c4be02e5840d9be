// Package ocr extracts text from images.
//
// Two engines are available: the tesseract command line tool and a
// vision-capable chat model. Both return trimmed text; an image without
// text yields "" and no error.
package ocr

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/chatmaster/relay-bot/internal/platform/config"
)

const opExtract = "ocr.extract"

// Extractor recognizes text in the image at path.
type Extractor interface {
	Extract(ctx context.Context, path string) (string, error)
}

// New builds the extractor selected by cfg.Engine.
func New(cfg config.OCRConfig, logger *zerolog.Logger) (Extractor, error) {
	switch cfg.Engine {
	case config.OCREngineTesseract, "":
		return NewTesseract(cfg, logger), nil
	case config.OCREngineVision:
		return NewVision(cfg, logger), nil
	default:
		return nil, fmt.Errorf("%w: %q", config.ErrUnknownOCREngine, cfg.Engine)
	}
}

var languageNames = map[string]string{
	"eng": "English",
	"rus": "Russian",
	"uzb": "Uzbek",
}

// describeLanguages turns a tesseract language list ("eng+rus") into a
// human readable one ("English, Russian") for prompting.
func describeLanguages(langs string) string {
	parts := strings.Split(langs, "+")
	names := make([]string, 0, len(parts))

	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}

		if name, ok := languageNames[p]; ok {
			names = append(names, name)
		} else {
			names = append(names, p)
		}
	}

	return strings.Join(names, ", ")
}
