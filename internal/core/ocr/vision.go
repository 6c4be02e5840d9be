package ocr

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sashabaranov/go-openai"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/platform/config"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
)

const (
	engineVision       = "vision"
	defaultVisionModel = openai.GPT4oMini
	visionMaxTokens    = 2048

	visionPromptFmt = "Transcribe all text visible in this image exactly as written. " +
		"Expected scripts: %s. Reply with the transcribed text only, without commentary. " +
		"If the image contains no text, reply with an empty message."
)

// VisionExtractor asks a vision-capable chat model to transcribe the image.
type VisionExtractor struct {
	client    *openai.Client
	model     string
	languages string
	timeout   time.Duration
	logger    *zerolog.Logger
}

func NewVision(cfg config.OCRConfig, logger *zerolog.Logger) *VisionExtractor {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.VisionBaseURL != "" {
		clientCfg.BaseURL = strings.TrimRight(cfg.VisionBaseURL, "/")
	}

	model := cfg.VisionModel
	if model == "" {
		model = defaultVisionModel
	}

	langs := cfg.Languages
	if langs == "" {
		langs = defaultLanguages
	}

	l := logger.With().Str("component", "ocr").Str("engine", engineVision).Logger()

	return &VisionExtractor{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     model,
		languages: langs,
		timeout:   cfg.Timeout,
		logger:    &l,
	}
}

func (e *VisionExtractor) Extract(ctx context.Context, path string) (string, error) {
	dataURL, err := imageDataURL(path)
	if err != nil {
		return "", apperrors.New(apperrors.KindExtraction, opExtract, err)
	}

	if e.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, e.timeout)
		defer cancel()
	}

	start := time.Now()

	resp, err := e.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:     e.model,
		MaxTokens: visionMaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role: openai.ChatMessageRoleUser,
				MultiContent: []openai.ChatMessagePart{
					{
						Type: openai.ChatMessagePartTypeText,
						Text: fmt.Sprintf(visionPromptFmt, describeLanguages(e.languages)),
					},
					{
						Type: openai.ChatMessagePartTypeImageURL,
						ImageURL: &openai.ChatMessageImageURL{
							URL:    dataURL,
							Detail: openai.ImageURLDetailHigh,
						},
					},
				},
			},
		},
	})
	if err != nil {
		observability.OCRDuration.WithLabelValues(engineVision, observability.StatusError).Observe(time.Since(start).Seconds())
		e.logger.Error().Err(err).Str("path", path).Str("model", e.model).Msg("vision transcription failed")

		return "", apperrors.New(apperrors.KindExtraction, opExtract, err)
	}

	observability.OCRDuration.WithLabelValues(engineVision, observability.StatusSuccess).Observe(time.Since(start).Seconds())

	if len(resp.Choices) == 0 {
		return "", apperrors.New(apperrors.KindExtraction, opExtract, apperrors.ErrEmptyResponse)
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func imageDataURL(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}

	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		mime = "image/jpeg"
	}

	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}

var _ Extractor = (*VisionExtractor)(nil)
