package ocr

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/platform/config"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/platform/textutil"
)

const (
	engineTesseract     = "tesseract"
	defaultTesseractBin = "tesseract"
	defaultLanguages    = "eng+rus"
	maxStderrLogged     = 512
)

// TesseractExtractor runs the tesseract binary once per image.
type TesseractExtractor struct {
	bin       string
	languages string
	timeout   time.Duration
	logger    *zerolog.Logger
}

func NewTesseract(cfg config.OCRConfig, logger *zerolog.Logger) *TesseractExtractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	bin := cfg.TesseractPath
	if bin == "" {
		bin = defaultTesseractBin
	}

	langs := cfg.Languages
	if langs == "" {
		langs = defaultLanguages
	}

	l := logger.With().Str("component", "ocr").Str("engine", engineTesseract).Logger()

	return &TesseractExtractor{
		bin:       bin,
		languages: langs,
		timeout:   cfg.Timeout,
		logger:    &l,
	}
}

func (e *TesseractExtractor) Extract(ctx context.Context, path string) (string, error) {
	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	var stdout, stderr bytes.Buffer

	cmd := exec.CommandContext(ctx, e.bin, path, "stdout", "-l", e.languages)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()

	if err := cmd.Run(); err != nil {
		observability.OCRDuration.WithLabelValues(engineTesseract, observability.StatusError).Observe(time.Since(start).Seconds())

		e.logger.Error().
			Err(err).
			Str("path", path).
			Str("stderr", textutil.Truncate(stderr.String(), maxStderrLogged)).
			Msg("tesseract failed")

		if ctx.Err() != nil {
			err = fmt.Errorf("%w: %w", apperrors.ErrTimeout, ctx.Err())
		}

		return "", apperrors.New(apperrors.KindExtraction, opExtract, err)
	}

	observability.OCRDuration.WithLabelValues(engineTesseract, observability.StatusSuccess).Observe(time.Since(start).Seconds())

	return strings.TrimSpace(stdout.String()), nil
}

var _ Extractor = (*TesseractExtractor)(nil)
