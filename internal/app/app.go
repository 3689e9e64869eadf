package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"ReelsAutoposter/internal/caption"
	"ReelsAutoposter/internal/classifier"
	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/infrastructure/facebook"
	"ReelsAutoposter/internal/infrastructure/llm"
	"ReelsAutoposter/internal/infrastructure/probe"
	"ReelsAutoposter/internal/infrastructure/queue"
	"ReelsAutoposter/internal/infrastructure/storage"
	"ReelsAutoposter/internal/infrastructure/telegram"
	"ReelsAutoposter/internal/infrastructure/youtube"
	"ReelsAutoposter/internal/logging"
	"ReelsAutoposter/internal/ports"
	"ReelsAutoposter/internal/source"
	"ReelsAutoposter/internal/usecase"
	"ReelsAutoposter/pkg/retry"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	pipeline *usecase.Pipeline
	closers  []func() error
}

// New builds every adapter from cfg. The Telegram bot is contacted once to
// verify the token.
func New(ctx context.Context, cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}
	a := &Application{cfg: cfg, logger: baseLogger}

	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		return nil, err
	}
	notifier := telegram.NewNotifier(bot, cfg.Telegram.NotifyChat())

	dedup, cursor, closeStore, err := openStores(ctx, cfg)
	if err != nil {
		return nil, err
	}
	a.closers = append(a.closers, closeStore)

	registry := source.NewRegistry()
	registry.Register(telegram.NewSource(bot, telegram.SourceOptions{
		ChatID:       cfg.Telegram.ChatID,
		BatchSize:    cfg.Telegram.BatchSize,
		MediaDir:     cfg.Source.MediaDir,
		FileEndpoint: cfg.Telegram.FileEndpoint,
		Timeout:      cfg.Telegram.Timeout,
		Retry:        retry.Default(),
	}, baseLogger.With("component", "source.telegram")))
	registry.Register(youtube.NewSource(
		youtube.NewYTDLPSearcher(cfg.YouTube.YTDLPPath, cfg.YouTube.Timeout),
		youtube.NewStreamDownloader(cfg.YouTube.Timeout),
		dedup,
		youtube.SourceOptions{
			Keywords:      cfg.YouTube.Keywords,
			SearchResults: cfg.YouTube.SearchResults,
			MaxDuration:   cfg.YouTube.MaxDuration,
			MaxFileSize:   cfg.Limits.MaxFileSize,
			MediaDir:      cfg.Source.MediaDir,
		},
		baseLogger.With("component", "source.youtube"),
	))

	src, err := registry.Resolve(cfg.Source.Kind)
	if err != nil {
		_ = a.Close()
		return nil, err
	}

	rewriter, err := newRewriter(ctx, cfg.LLM)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	resolver := caption.NewResolver(rewriter, caption.Options{
		Boilerplate: cfg.Captions.Boilerplate,
		Pool:        cfg.Captions.FallbackPool,
		Timeout:     cfg.LLM.Timeout,
	}, baseLogger.With("component", "caption"))

	videoClassifier := classifier.New(
		probe.NewFFProbe(cfg.Probe.FFProbePath, cfg.Probe.Timeout),
		classifier.PolicyFromConfig(cfg.Classifier),
		baseLogger.With("component", "classifier"),
	)

	var events ports.EventPublisher
	if cfg.Events.AMQPURL != "" {
		pub, err := queue.NewPublisher(cfg.Events.AMQPURL, cfg.Events.Queue, baseLogger.With("component", "queue"))
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, pub.Close)
		events = pub
	}

	a.pipeline = usecase.NewPipeline(usecase.PipelineDeps{
		Source:     src,
		Dedup:      dedup,
		Cursor:     cursor,
		Classifier: videoClassifier,
		Captions:   resolver,
		Publisher:  facebook.NewClient(cfg.Facebook, baseLogger.With("component", "facebook")),
		Notifier:   notifier,
		Events:     events,
		Logger:     baseLogger.With("component", "pipeline"),
		Options: usecase.PipelineOptions{
			MaxFileSize:           cfg.Limits.MaxFileSize,
			MaxPostsPerRun:        cfg.Limits.MaxPostsPerRun,
			DowngradeInvalid:      cfg.Classifier.DowngradeInvalid,
			ProgressNotifications: cfg.Notify.Progress,
			SourceName:            src.Name(),
		},
	})
	return a, nil
}

// Run holds the state lock for the duration of one invocation.
func (a *Application) Run(ctx context.Context) error {
	if a.pipeline == nil {
		return nil
	}

	lockID := uuid.NewString()
	lock, err := storage.AcquireRunLock(a.cfg.State.Dir, lockID, a.cfg.State.LockStaleAfter, time.Now())
	if err != nil {
		return err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			a.logger.Warn("release run lock", "error", err)
		}
	}()

	started := time.Now()
	outcomes, err := a.pipeline.Run(ctx)
	counts := map[domain.OutcomeKind]int{}
	for _, out := range outcomes {
		counts[out.Kind]++
	}
	a.logger.Info("run finished",
		"passes", len(outcomes),
		"published", counts[domain.OutcomePublished],
		"failed", counts[domain.OutcomeFailed],
		"elapsed", time.Since(started).Round(time.Millisecond))
	return err
}

// Close releases stores and broker connections.
func (a *Application) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}

// ReportStartupFailure tells the notify chat why the invocation could not start.
// It is best effort: without a token or chat nothing is sent.
func ReportStartupFailure(ctx context.Context, cfg config.Config, logger *slog.Logger, cause error) {
	if cfg.Telegram.BotToken == "" || cfg.Telegram.NotifyChat() == 0 {
		return
	}
	bot, err := telegram.NewBot(cfg.Telegram)
	if err != nil {
		logger.Warn("startup failure not reported", "error", err)
		return
	}
	text := fmt.Sprintf("🔥 Autoposter cannot start: %v", cause)
	if err := telegram.NewNotifier(bot, cfg.Telegram.NotifyChat()).Notify(ctx, text); err != nil {
		logger.Warn("startup failure not reported", "error", err)
	}
}

func openStores(ctx context.Context, cfg config.Config) (ports.DedupStore, ports.CursorStore, func() error, error) {
	switch cfg.State.Backend {
	case config.BackendSQLite:
		store, err := storage.OpenSQLite(ctx, cfg.State.SQLitePath, cfg.Source.Kind)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store.Close, nil
	case config.BackendPostgres:
		store, err := storage.OpenPostgres(ctx, cfg.State.DSN, cfg.Source.Kind)
		if err != nil {
			return nil, nil, nil, err
		}
		return store, store, store.Close, nil
	default:
		dedup, err := storage.OpenJSONDedupStore(cfg.State.DedupFile)
		if err != nil {
			return nil, nil, nil, err
		}
		return dedup, storage.NewFileCursorStore(cfg.State.CursorFile), func() error { return nil }, nil
	}
}

func newRewriter(ctx context.Context, cfg config.LLMConfig) (ports.Rewriter, error) {
	switch cfg.Provider {
	case config.ProviderGemini:
		rewriter, err := llm.NewGeminiRewriter(ctx, cfg.Gemini, &http.Client{Timeout: cfg.Timeout})
		if err != nil {
			return nil, err
		}
		return rewriter, nil
	case config.ProviderChatGPT:
		return llm.NewChatGPTClient(cfg.ChatGPT, cfg.Timeout), nil
	default:
		return nil, nil
	}
}
