package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/platform/config"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
	"github.com/chatmaster/relay-bot/internal/platform/observability"
	"github.com/chatmaster/relay-bot/internal/platform/textutil"
)

// OpenRouterClient calls an OpenAI-compatible chat completions endpoint.
type OpenRouterClient struct {
	cfg     config.LLMConfig
	http    httpclient.Doer
	prompts SystemPrompter
	logger  *zerolog.Logger
}

// openRouterChatRequest is the request body sent to the provider.
type openRouterChatRequest struct {
	Model    string    `json:"model"`
	Messages []Message `json:"messages"`
}

// openRouterChatResponse accepts both the chat ("message.content") and the
// legacy completion ("text") shapes of a choice.
type openRouterChatResponse struct {
	Choices []struct {
		Message *struct {
			Content string `json:"content"`
		} `json:"message"`
		Text string `json:"text"`
	} `json:"choices"`
}

// NewOpenRouter creates a completion client.
func NewOpenRouter(cfg config.LLMConfig, doer httpclient.Doer, prompts SystemPrompter, logger *zerolog.Logger) *OpenRouterClient {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	l := logger.With().Str("component", "llm").Logger()

	return &OpenRouterClient{
		cfg:     cfg,
		http:    doer,
		prompts: prompts,
		logger:  &l,
	}
}

// Complete implements Completer.
func (c *OpenRouterClient) Complete(ctx context.Context, lang i18n.Language, msgs []Message) (string, error) {
	req := NewRequest(lang, c.prompts.SystemMessage(lang), msgs)

	payload, err := json.Marshal(openRouterChatRequest{
		Model:    c.cfg.Model,
		Messages: req.Messages,
	})
	if err != nil {
		return "", apperrors.New(apperrors.KindUnclassified, opComplete, fmt.Errorf(errFmtMarshalRequest, err))
	}

	start := time.Now()

	resp, err := c.http.Do(ctx, httpclient.Request{
		Method:  http.MethodPost,
		URL:     c.cfg.Endpoint,
		Header:  c.headers(),
		Body:    payload,
		Timeout: c.cfg.Timeout,
	})
	if err != nil {
		observability.CompletionRequestDuration.WithLabelValues(observability.StatusError).Observe(time.Since(start).Seconds())
		c.logger.Warn().Err(err).Str(logKeyModel, c.cfg.Model).Dur(logKeyDuration, time.Since(start)).Msg("completion request failed")

		return "", apperrors.New(apperrors.KindConnection, opComplete, err)
	}

	if !resp.OK() {
		observability.CompletionRequestDuration.WithLabelValues(observability.StatusError).Observe(time.Since(start).Seconds())

		body := string(resp.Body)
		c.logger.Error().
			Int(logKeyStatus, resp.Status).
			Str(logKeyBody, textutil.Truncate(body, maxLoggedBody)).
			Str(logKeyModel, c.cfg.Model).
			Str(logKeyLanguage, string(lang)).
			Msg("completion provider returned error")

		return "", apperrors.New(apperrors.KindCompletion, opComplete, apperrors.ErrHTTPStatus).WithResponse(resp.Status, body)
	}

	observability.CompletionRequestDuration.WithLabelValues(observability.StatusSuccess).Observe(time.Since(start).Seconds())

	reply, err := extractReply(resp.Body)
	if err != nil {
		c.logger.Error().Err(err).Str(logKeyBody, textutil.Truncate(string(resp.Body), maxLoggedBody)).Msg("completion response unusable")

		return "", apperrors.New(apperrors.KindCompletion, opComplete, err).WithResponse(resp.Status, string(resp.Body))
	}

	return reply, nil
}

func (c *OpenRouterClient) headers() http.Header {
	h := http.Header{}
	h.Set(headerAuthorization, "Bearer "+c.cfg.APIKey)
	h.Set(headerContentType, contentTypeJSON)

	if c.cfg.Referer != "" {
		h.Set(headerReferer, c.cfg.Referer)
	}

	if c.cfg.Title != "" {
		h.Set(headerTitle, c.cfg.Title)
	}

	return h
}

// extractReply returns the first choice's message content, falling back to
// its text field. A missing or blank reply is an error, never "".
func extractReply(body []byte) (string, error) {
	var resp openRouterChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf(errFmtDecodeResponse, apperrors.ErrMalformedResponse, err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", apperrors.ErrEmptyResponse)
	}

	choice := resp.Choices[0]

	if choice.Message != nil && strings.TrimSpace(choice.Message.Content) != "" {
		return choice.Message.Content, nil
	}

	if strings.TrimSpace(choice.Text) != "" {
		return choice.Text, nil
	}

	return "", fmt.Errorf("%w: choice has no content", apperrors.ErrEmptyResponse)
}

var _ Completer = (*OpenRouterClient)(nil)
