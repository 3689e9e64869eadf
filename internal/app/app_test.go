package app

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/infrastructure/storage"
)

const testToken = "123:abc"

type fakeTelegram struct {
	mu   sync.Mutex
	sent []string
}

func newFakeTelegram(t *testing.T) (*fakeTelegram, *httptest.Server) {
	t.Helper()
	fake := &fakeTelegram{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fake.mu.Lock()
		defer fake.mu.Unlock()
		switch strings.TrimPrefix(r.URL.Path, "/bot"+testToken+"/") {
		case "getMe":
			_, _ = io.WriteString(w, `{"ok":true,"result":{"id":1,"is_bot":true,"first_name":"poster"}}`)
		case "getUpdates":
			_, _ = io.WriteString(w, `{"ok":true,"result":[]}`)
		case "sendMessage":
			_ = r.ParseForm()
			fake.sent = append(fake.sent, r.FormValue("text"))
			_, _ = io.WriteString(w, `{"ok":true,"result":{"message_id":1,"date":0,"chat":{"id":-100,"type":"channel"}}}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(srv.Close)
	return fake, srv
}

func loadTestConfig(t *testing.T, srvURL, backend string) config.Config {
	t.Helper()
	dir := t.TempDir()
	yaml := "telegram:\n" +
		"  botToken: \"" + testToken + "\"\n" +
		"  chatId: -100\n" +
		"  apiEndpoint: \"" + srvURL + "/bot%s/%s\"\n" +
		"facebook:\n  pageId: \"1\"\n  accessToken: \"tok\"\n" +
		"source:\n  mediaDir: \"" + filepath.Join(dir, "videos") + "\"\n" +
		"state:\n  backend: " + backend + "\n  dir: \"" + filepath.Join(dir, "state") + "\"\n" +
		"notify:\n  progress: false\n"
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	cfg, err := config.LoadFrom(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())
	return cfg
}

func TestRunWithEmptyUpdateLog(t *testing.T) {
	fake, srv := newFakeTelegram(t)
	cfg := loadTestConfig(t, srv.URL, config.BackendJSON)

	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	require.NoError(t, application.Run(context.Background()))
	require.Len(t, fake.sent, 1)
	require.Contains(t, fake.sent[0], "No new media found")

	_, err = os.Stat(filepath.Join(cfg.State.Dir, ".run.lock"))
	require.True(t, os.IsNotExist(err))
}

func TestRunRefusesWhileLocked(t *testing.T) {
	_, srv := newFakeTelegram(t)
	cfg := loadTestConfig(t, srv.URL, config.BackendSQLite)

	application, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, err)
	t.Cleanup(func() { _ = application.Close() })

	lock, err := storage.AcquireRunLock(cfg.State.Dir, "other", 0, time.Now())
	require.NoError(t, err)
	defer lock.Release()

	err = application.Run(context.Background())
	require.True(t, errors.Is(err, domain.ErrRunLocked))
}

func TestUnknownSourceFailsStartup(t *testing.T) {
	_, srv := newFakeTelegram(t)
	cfg := loadTestConfig(t, srv.URL, config.BackendJSON)
	cfg.Source.Kind = "tiktok"

	_, err := New(context.Background(), cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.ErrorIs(t, err, domain.ErrUnknownSource)
}

func TestOpenStoresByBackend(t *testing.T) {
	_, srv := newFakeTelegram(t)
	ctx := context.Background()

	for _, backend := range []string{config.BackendJSON, config.BackendSQLite} {
		cfg := loadTestConfig(t, srv.URL, backend)
		dedup, cursor, closeFn, err := openStores(ctx, cfg)
		require.NoError(t, err, backend)

		require.NoError(t, cursor.Save(ctx, 12))
		got, err := cursor.Load(ctx)
		require.NoError(t, err)
		require.Equal(t, int64(12), got)

		require.NoError(t, dedup.Record(ctx, "u1", domain.DedupRecord{Status: domain.StatusPosted}))
		posted, err := dedup.IsPosted(ctx, "u1")
		require.NoError(t, err)
		require.True(t, posted)
		require.NoError(t, closeFn())
	}
}

func TestNewRewriterNone(t *testing.T) {
	t.Parallel()
	rw, err := newRewriter(context.Background(), config.LLMConfig{Provider: config.ProviderNone})
	require.NoError(t, err)
	require.Nil(t, rw)

	_, err = newRewriter(context.Background(), config.LLMConfig{Provider: config.ProviderGemini})
	require.Error(t, err)
}

func TestReportStartupFailure(t *testing.T) {
	fake, srv := newFakeTelegram(t)
	cfg := loadTestConfig(t, srv.URL, config.BackendJSON)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	ReportStartupFailure(context.Background(), cfg, logger, errors.New("FB_PAGE_ID is required"))
	require.Equal(t, []string{"🔥 Autoposter cannot start: FB_PAGE_ID is required"}, fake.sent)

	cfg.Telegram.BotToken = ""
	ReportStartupFailure(context.Background(), cfg, logger, errors.New("ignored"))
	require.Len(t, fake.sent, 1)
}
