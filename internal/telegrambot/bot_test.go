package telegrambot

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chatmaster/relay-bot/internal/core/domain"
)

const testToken = "123:test"

type apiCall struct {
	method string
	form   url.Values
}

// fakeTelegram answers Bot API calls and records them.
type fakeTelegram struct {
	t       *testing.T
	srv     *httptest.Server
	updates string

	mu    sync.Mutex
	calls []apiCall
	fail  map[string]bool
}

func newFakeTelegram(t *testing.T) *fakeTelegram {
	t.Helper()

	f := &fakeTelegram{t: t, fail: map[string]bool{}}
	f.srv = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.srv.Close)

	return f
}

func (f *fakeTelegram) serve(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := path.Base(r.URL.Path)

	f.mu.Lock()
	if method != "getUpdates" {
		f.calls = append(f.calls, apiCall{method: method, form: r.PostForm})
	}
	fail := f.fail[method]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")

	if fail {
		_, _ = w.Write([]byte(`{"ok":false,"error_code":403,"description":"Forbidden: bot was blocked by the user"}`))
		return
	}

	var result string

	switch method {
	case "getMe":
		result = `{"id":1,"is_bot":true,"first_name":"ChatMaster","username":"chatmaster_bot"}`
	case "getUpdates":
		result = f.nextUpdates(r.PostForm.Get("offset"))
	case "getFile":
		result = `{"file_id":"` + r.PostForm.Get("file_id") + `","file_path":"photos/file_1.jpg"}`
	case "sendMessage":
		result = `{"message_id":1,"date":0,"chat":{"id":` + r.PostForm.Get("chat_id") + `,"type":"private"}}`
	default:
		result = `true`
	}

	_, _ = w.Write([]byte(`{"ok":true,"result":` + result + `}`))
}

// nextUpdates hands out the configured batch once, then idles.
func (f *fakeTelegram) nextUpdates(offset string) string {
	if (offset == "" || offset == "0") && f.updates != "" {
		return f.updates
	}

	time.Sleep(20 * time.Millisecond)

	return `[]`
}

func (f *fakeTelegram) failMethod(method string) {
	f.mu.Lock()
	f.fail[method] = true
	f.mu.Unlock()
}

func (f *fakeTelegram) callsFor(method string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()

	var out []apiCall

	for _, c := range f.calls {
		if c.method == method {
			out = append(out, c)
		}
	}

	return out
}

func (f *fakeTelegram) bot(opts Options) *Bot {
	f.t.Helper()

	api, err := tgbotapi.NewBotAPIWithClient(testToken, f.srv.URL+"/bot%s/%s", f.srv.Client())
	require.NoError(f.t, err)

	return NewWithAPI(api, opts, nil)
}

func TestDeliverSendsPartsAndAcknowledges(t *testing.T) {
	f := newFakeTelegram(t)
	b := f.bot(Options{})

	b.Deliver(domain.Reply{
		ChatID:     42,
		Text:       strings.Repeat("word ", 1000),
		Choices:    []domain.Choice{{Label: "🇬🇧 English", Data: "lang_en"}},
		CallbackID: "cb-1",
	})

	sends := f.callsFor("sendMessage")
	require.Len(t, sends, 2)

	assert.Equal(t, "42", sends[0].form.Get("chat_id"))
	assert.Empty(t, sends[0].form.Get("reply_markup"))
	assert.Empty(t, sends[0].form.Get("parse_mode"))

	var markup tgbotapi.InlineKeyboardMarkup
	require.NoError(t, json.Unmarshal([]byte(sends[1].form.Get("reply_markup")), &markup))
	require.Len(t, markup.InlineKeyboard, 1)
	assert.Equal(t, "🇬🇧 English", markup.InlineKeyboard[0][0].Text)
	require.NotNil(t, markup.InlineKeyboard[0][0].CallbackData)
	assert.Equal(t, "lang_en", *markup.InlineKeyboard[0][0].CallbackData)

	acks := f.callsFor("answerCallbackQuery")
	require.Len(t, acks, 1)
	assert.Equal(t, "cb-1", acks[0].form.Get("callback_query_id"))
}

func TestDeliverAckOnly(t *testing.T) {
	f := newFakeTelegram(t)
	b := f.bot(Options{})

	b.Deliver(domain.Reply{ChatID: 42, CallbackID: "cb-2"})

	assert.Empty(t, f.callsFor("sendMessage"))
	assert.Len(t, f.callsFor("answerCallbackQuery"), 1)
}

func TestDeliverSendFailureStillAcknowledges(t *testing.T) {
	f := newFakeTelegram(t)
	f.failMethod("sendMessage")
	b := f.bot(Options{})

	require.NotPanics(t, func() {
		b.Deliver(domain.Reply{ChatID: 42, Text: "hello", CallbackID: "cb-3"})
	})

	assert.Len(t, f.callsFor("sendMessage"), 1)
	assert.Len(t, f.callsFor("answerCallbackQuery"), 1)
}

func TestFileURLAndTyping(t *testing.T) {
	f := newFakeTelegram(t)
	b := f.bot(Options{})

	assert.Equal(t, "chatmaster_bot", b.Username())

	link, err := b.FileURL(context.Background(), "photo-1")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(link, "/bot"+testToken+"/photos/file_1.jpg"), link)

	require.NoError(t, b.Typing(context.Background(), 42))

	actions := f.callsFor("sendChatAction")
	require.Len(t, actions, 1)
	assert.Equal(t, "typing", actions[0].form.Get("action"))

	f.failMethod("sendChatAction")
	assert.Error(t, b.Typing(context.Background(), 42))
}

func TestFileURLTransportErrorHidesToken(t *testing.T) {
	f := newFakeTelegram(t)
	b := f.bot(Options{})
	f.srv.Close()

	_, err := b.FileURL(context.Background(), "photo-1")
	require.Error(t, err)

	assert.NotContains(t, err.Error(), testToken)
	assert.Contains(t, err.Error(), "bot<redacted>")
}

func TestAPILoggerMasksToken(t *testing.T) {
	var buf bytes.Buffer

	logger := zerolog.New(&buf)
	l := apiLogger{logger: &logger}

	l.Println(`Post "https://api.telegram.org/bot` + testToken + `/getUpdates": EOF`)
	l.Printf("retrying %s in %d seconds", "https://api.telegram.org/bot"+testToken+"/getUpdates", 3)

	assert.NotContains(t, buf.String(), testToken)
	assert.Equal(t, 2, strings.Count(buf.String(), "redacted"))
}

type recordingHandler struct {
	mu   sync.Mutex
	msgs []domain.InboundMessage
}

func (h *recordingHandler) Handle(_ context.Context, msg domain.InboundMessage) (domain.Reply, bool) {
	h.mu.Lock()
	h.msgs = append(h.msgs, msg)
	h.mu.Unlock()

	if msg.Category != domain.CategoryText {
		return domain.Reply{}, false
	}

	return domain.Reply{ChatID: msg.ChatID, Text: "echo: " + msg.Text}, true
}

func TestRunHandlesUpdatesUntilCanceled(t *testing.T) {
	f := newFakeTelegram(t)
	f.updates = `[
		{"update_id":1,"message":{"message_id":10,"date":0,"chat":{"id":42,"type":"private"},"text":"hello"}},
		{"update_id":2,"message":{"message_id":11,"date":0,"chat":{"id":43,"type":"private"},"sticker":{"file_id":"st","file_unique_id":"u","width":1,"height":1,"is_animated":false,"is_video":false}}},
		{"update_id":3}
	]`

	b := f.bot(Options{PollTimeout: 1, MaxConcurrent: 2})
	h := &recordingHandler{}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() { done <- b.Run(ctx, h) }()

	require.Eventually(t, func() bool {
		return len(f.callsFor("sendMessage")) == 1
	}, 5*time.Second, 10*time.Millisecond)

	require.Eventually(t, func() bool {
		h.mu.Lock()
		defer h.mu.Unlock()

		return len(h.msgs) == 2
	}, 5*time.Second, 10*time.Millisecond)

	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	sends := f.callsFor("sendMessage")
	assert.Equal(t, "42", sends[0].form.Get("chat_id"))
	assert.Equal(t, "echo: hello", sends[0].form.Get("text"))
}
