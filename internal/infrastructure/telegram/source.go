package telegram

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
	"ReelsAutoposter/pkg/retry"
)

// SourceName is the registry name of the Telegram source.
const SourceName = "telegram"

// NewBot creates a bot API client honoring a custom endpoint and timeout.
// The constructor calls getMe, so it fails fast on a bad token.
func NewBot(cfg config.TelegramConfig) (*tgbotapi.BotAPI, error) {
	endpoint := cfg.APIEndpoint
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	bot, err := tgbotapi.NewBotAPIWithClient(cfg.BotToken, endpoint, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, fmt.Errorf("create telegram bot: %w", err)
	}
	return bot, nil
}

// SourceOptions configures the update-log source.
type SourceOptions struct {
	ChatID       int64
	BatchSize    int
	MediaDir     string
	FileEndpoint string
	Timeout      time.Duration
	Retry        retry.Config
}

// Source pulls media posted to one chat from the bot update log.
type Source struct {
	bot          *tgbotapi.BotAPI
	chatID       int64
	batchSize    int
	mediaDir     string
	fileEndpoint string
	http         *http.Client
	retry        retry.Config
	logger       *slog.Logger
}

var _ ports.MediaSource = (*Source)(nil)

// NewSource wires the bot with source options.
func NewSource(bot *tgbotapi.BotAPI, opts SourceOptions, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	batch := opts.BatchSize
	if batch <= 0 {
		batch = 1
	}
	fileEndpoint := opts.FileEndpoint
	if fileEndpoint == "" {
		fileEndpoint = tgbotapi.FileEndpoint
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	if opts.Retry.MaxAttempts == 0 {
		opts.Retry = retry.Default()
	}

	return &Source{
		bot:          bot,
		chatID:       opts.ChatID,
		batchSize:    batch,
		mediaDir:     opts.MediaDir,
		fileEndpoint: fileEndpoint,
		http:         &http.Client{Timeout: timeout},
		retry:        opts.Retry,
		logger:       logger,
	}
}

// Name identifies the source in the registry.
func (s *Source) Name() string {
	return SourceName
}

type attachment struct {
	updateID int64
	kind     domain.MediaKind
	fileID   string
	uniqueID string
	caption  string
}

// FetchNext reads one batch after cursor. The returned cursor covers every
// update in the batch, including ones that were skipped or failed to download.
func (s *Source) FetchNext(ctx context.Context, cursor int64) (*domain.MediaItem, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, cursor, err
	}

	updates, err := s.bot.GetUpdates(tgbotapi.UpdateConfig{
		Offset: int(cursor + 1),
		Limit:  s.batchSize,
	})
	if err != nil {
		return nil, cursor, fmt.Errorf("get updates: %w", err)
	}

	next := cursor
	var candidate *attachment
	for i := range updates {
		u := updates[i]
		if id := int64(u.UpdateID); id > next {
			next = id
		}
		if candidate == nil {
			candidate = s.extract(&u)
		}
	}

	s.logger.Debug("telegram batch scanned", "updates", len(updates), "cursor", cursor, "next", next, "found", candidate != nil)
	if candidate == nil {
		return nil, next, nil
	}

	item, err := s.download(ctx, candidate)
	if err != nil {
		return nil, next, fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, candidate.uniqueID, err)
	}
	return item, next, nil
}

func (s *Source) extract(u *tgbotapi.Update) *attachment {
	chat := u.FromChat()
	if chat == nil || chat.ID != s.chatID {
		return nil
	}

	msg := u.Message
	if msg == nil {
		msg = u.ChannelPost
	}
	if msg == nil {
		return nil
	}

	switch {
	case msg.Video != nil:
		return &attachment{
			updateID: int64(u.UpdateID),
			kind:     domain.MediaKindVideo,
			fileID:   msg.Video.FileID,
			uniqueID: msg.Video.FileUniqueID,
			caption:  msg.Caption,
		}
	case len(msg.Photo) > 0:
		largest := msg.Photo[len(msg.Photo)-1]
		return &attachment{
			updateID: int64(u.UpdateID),
			kind:     domain.MediaKindPhoto,
			fileID:   largest.FileID,
			uniqueID: largest.FileUniqueID,
			caption:  msg.Caption,
		}
	default:
		return nil
	}
}

func (s *Source) download(ctx context.Context, a *attachment) (*domain.MediaItem, error) {
	file, err := s.bot.GetFile(tgbotapi.FileConfig{FileID: a.fileID})
	if err != nil {
		return nil, fmt.Errorf("get file: %w", err)
	}
	link := fmt.Sprintf(s.fileEndpoint, s.bot.Token, file.FilePath)

	if err := os.MkdirAll(s.mediaDir, 0o755); err != nil {
		return nil, fmt.Errorf("create media dir: %w", err)
	}
	path := filepath.Join(s.mediaDir, a.uniqueID+a.kind.Extension())

	size, err := retry.Do(ctx, s.retry, func() (int64, error) {
		return s.fetchFile(ctx, link, path)
	})
	if err != nil {
		_ = os.Remove(path)
		return nil, err
	}

	s.logger.Info("telegram media downloaded", "unique_id", a.uniqueID, "kind", a.kind.String(), "bytes", size)
	return &domain.MediaItem{
		SourceUpdateID: a.updateID,
		UniqueID:       a.uniqueID,
		Kind:           a.kind,
		LocalPath:      path,
		RawCaption:     a.caption,
		Source:         SourceName,
		SizeBytes:      size,
	}, nil
}

func (s *Source) fetchFile(ctx context.Context, link, path string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return 0, fmt.Errorf("new request: %w", err)
	}

	resp, err := s.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("download status %s", resp.Status)
	}

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("copy body: %w", copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("close %s: %w", path, closeErr)
	}
	return n, nil
}
