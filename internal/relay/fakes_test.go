package relay

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/chatmaster/relay-bot/internal/core/i18n"
	"github.com/chatmaster/relay-bot/internal/core/llm"
	"github.com/chatmaster/relay-bot/internal/core/media"
	"github.com/chatmaster/relay-bot/internal/core/prefs"
)

var errNotImplemented = errors.New("not implemented")

type fakePlatform struct {
	fileURLFn func(ctx context.Context, fileID string) (string, error)
	typingFn  func(ctx context.Context, chatID int64) error

	mu          sync.Mutex
	typingCalls int
	fileIDs     []string
}

func (f *fakePlatform) FileURL(ctx context.Context, fileID string) (string, error) {
	f.mu.Lock()
	f.fileIDs = append(f.fileIDs, fileID)
	f.mu.Unlock()

	if f.fileURLFn != nil {
		return f.fileURLFn(ctx, fileID)
	}

	return "https://files.example/" + fileID, nil
}

func (f *fakePlatform) Typing(ctx context.Context, chatID int64) error {
	f.mu.Lock()
	f.typingCalls++
	f.mu.Unlock()

	if f.typingFn != nil {
		return f.typingFn(ctx, chatID)
	}

	return nil
}

// fakeAcquirer writes a real scratch file into dir so tests can assert on
// its removal.
type fakeAcquirer struct {
	dir       string
	acquireFn func(ctx context.Context, url, fileID string) (*media.ScratchFile, error)

	mu    sync.Mutex
	calls int
	paths []string
}

func (f *fakeAcquirer) Acquire(ctx context.Context, url, fileID string) (*media.ScratchFile, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.acquireFn != nil {
		return f.acquireFn(ctx, url, fileID)
	}

	path := filepath.Join(f.dir, fileID+".jpg")
	if err := os.WriteFile(path, []byte("image"), 0o600); err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.paths = append(f.paths, path)
	f.mu.Unlock()

	return &media.ScratchFile{Path: path, Size: 5}, nil
}

type fakeExtractor struct {
	extractFn func(ctx context.Context, path string) (string, error)

	mu    sync.Mutex
	calls int
}

func (f *fakeExtractor) Extract(ctx context.Context, path string) (string, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.extractFn != nil {
		return f.extractFn(ctx, path)
	}

	return "", errNotImplemented
}

type completion struct {
	lang i18n.Language
	msgs []llm.Message
}

type fakeCompleter struct {
	completeFn func(ctx context.Context, lang i18n.Language, msgs []llm.Message) (string, error)

	mu    sync.Mutex
	calls []completion
}

func (f *fakeCompleter) Complete(ctx context.Context, lang i18n.Language, msgs []llm.Message) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, completion{lang: lang, msgs: msgs})
	f.mu.Unlock()

	if f.completeFn != nil {
		return f.completeFn(ctx, lang, msgs)
	}

	return "", errNotImplemented
}

type failingStore struct {
	prefs.Store
	getErr error
	setErr error
}

func (s failingStore) Get(ctx context.Context, chatID int64) (i18n.Language, error) {
	if s.getErr != nil {
		return "", s.getErr
	}

	return s.Store.Get(ctx, chatID)
}

func (s failingStore) Set(ctx context.Context, chatID int64, lang i18n.Language) error {
	if s.setErr != nil {
		return s.setErr
	}

	return s.Store.Set(ctx, chatID, lang)
}

type harness struct {
	orch      *Orchestrator
	catalog   *i18n.Catalog
	store     *prefs.MemoryStore
	platform  *fakePlatform
	media     *fakeAcquirer
	ocr       *fakeExtractor
	completer *fakeCompleter
	dir       string
	logs      *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()

	catalog, err := i18n.Load()
	require.NoError(t, err)

	h := &harness{
		catalog:   catalog,
		store:     prefs.NewMemoryStore(),
		platform:  &fakePlatform{},
		ocr:       &fakeExtractor{},
		completer: &fakeCompleter{},
		dir:       t.TempDir(),
		logs:      &bytes.Buffer{},
	}
	h.media = &fakeAcquirer{dir: h.dir}

	h.orch = h.build(h.store)

	return h
}

func (h *harness) build(store prefs.Store) *Orchestrator {
	logger := zerolog.New(h.logs)

	return NewOrchestrator(Deps{
		Platform:  h.platform,
		Store:     store,
		Catalog:   h.catalog,
		Media:     h.media,
		OCR:       h.ocr,
		Completer: h.completer,
		Logger:    &logger,
	})
}

func (h *harness) scratchFiles(t *testing.T) []string {
	t.Helper()

	entries, err := os.ReadDir(h.dir)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}

	return names
}
