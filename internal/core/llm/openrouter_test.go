package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chatmaster/relay-bot/internal/core/errors"
	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/platform/config"
	"github.com/chatmaster/relay-bot/internal/platform/httpclient"
)

type stubPrompts map[i18n.Language]string

func (s stubPrompts) SystemMessage(lang i18n.Language) string {
	return s[lang]
}

func newTestClient(t *testing.T, handler http.HandlerFunc, logs io.Writer) *OpenRouterClient {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := zerolog.New(logs)

	return NewOpenRouter(config.LLMConfig{
		APIKey:   "test-key",
		Endpoint: srv.URL,
		Model:    "openai/gpt-3.5-turbo",
		Referer:  "https://example.org",
		Title:    "ChatMaster AI",
		Timeout:  5 * time.Second,
	}, httpclient.New(5*time.Second), stubPrompts{i18n.English: "be helpful"}, &logger)
}

func TestNewRequestPrependsSystemMessage(t *testing.T) {
	msgs := []Message{UserMessage("hi")}

	req := NewRequest(i18n.Russian, "system text", msgs)

	require.Len(t, req.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "system text"}, req.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "hi"}, req.Messages[1])
	assert.Equal(t, i18n.Russian, req.Language)

	// caller's slice is untouched
	assert.Len(t, msgs, 1)
}

func TestCompleteSendsRequestAndReturnsReply(t *testing.T) {
	var got openRouterChatRequest

	var headers http.Header

	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()

		assert.Equal(t, http.MethodPost, r.Method)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"42"}}]}`))
	}, io.Discard)

	reply, err := client.Complete(context.Background(), i18n.English, []Message{UserMessage("what is 6*7")})
	require.NoError(t, err)
	assert.Equal(t, "42", reply)

	assert.Equal(t, "openai/gpt-3.5-turbo", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, Message{Role: RoleSystem, Content: "be helpful"}, got.Messages[0])
	assert.Equal(t, Message{Role: RoleUser, Content: "what is 6*7"}, got.Messages[1])

	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "application/json", headers.Get("Content-Type"))
	assert.Equal(t, "https://example.org", headers.Get("HTTP-Referer"))
	assert.Equal(t, "ChatMaster AI", headers.Get("X-Title"))
}

func TestCompleteFallsBackToTextField(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[{"text":"legacy reply"}]}`))
	}, io.Discard)

	reply, err := client.Complete(context.Background(), i18n.English, []Message{UserMessage("x")})
	require.NoError(t, err)
	assert.Equal(t, "legacy reply", reply)
}

func TestCompleteErrorStatusLogsBody(t *testing.T) {
	var logs bytes.Buffer

	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}, &logs)

	reply, err := client.Complete(context.Background(), i18n.English, []Message{UserMessage("x")})
	require.Error(t, err)
	assert.Empty(t, reply)

	assert.Equal(t, apperrors.KindCompletion, apperrors.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrHTTPStatus)

	var appErr *apperrors.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, http.StatusInternalServerError, appErr.Status)
	assert.Equal(t, `{"error":"rate limited"}`, appErr.Body)

	assert.Contains(t, logs.String(), "rate limited")
	assert.NotContains(t, err.Error(), "rate limited")
}

func TestCompleteUnusableBodies(t *testing.T) {
	tests := []struct {
		name string
		body string
		want error
	}{
		{name: "invalid json", body: `not json`, want: apperrors.ErrMalformedResponse},
		{name: "no choices", body: `{"choices":[]}`, want: apperrors.ErrEmptyResponse},
		{name: "empty content", body: `{"choices":[{"message":{"content":""}}]}`, want: apperrors.ErrEmptyResponse},
		{name: "blank text", body: `{"choices":[{"text":"   "}]}`, want: apperrors.ErrEmptyResponse},
		{name: "missing fields", body: `{"id":"abc"}`, want: apperrors.ErrEmptyResponse},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
				_, _ = w.Write([]byte(tt.body))
			}, io.Discard)

			_, err := client.Complete(context.Background(), i18n.English, []Message{UserMessage("x")})
			require.Error(t, err)
			assert.Equal(t, apperrors.KindCompletion, apperrors.KindOf(err))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestCompleteUnreachableIsConnection(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	endpoint := srv.URL
	srv.Close()

	client := NewOpenRouter(config.LLMConfig{
		Endpoint: endpoint,
		Timeout:  time.Second,
	}, httpclient.New(time.Second), stubPrompts{}, nil)

	_, err := client.Complete(context.Background(), i18n.Uzbek, []Message{UserMessage("x")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnection, apperrors.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrTransport)
}

func TestCompleteTimeoutIsConnection(t *testing.T) {
	release := make(chan struct{})

	srv := httptest.NewServer(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(srv.Close)
	t.Cleanup(func() { close(release) })

	client := NewOpenRouter(config.LLMConfig{
		Endpoint: srv.URL,
		Timeout:  50 * time.Millisecond,
	}, httpclient.New(time.Second), stubPrompts{}, nil)

	_, err := client.Complete(context.Background(), i18n.Uzbek, []Message{UserMessage("x")})
	require.Error(t, err)
	assert.Equal(t, apperrors.KindConnection, apperrors.KindOf(err))
	assert.ErrorIs(t, err, apperrors.ErrTimeout)
}
