package youtube

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// SourceName is the registry name of the YouTube source.
const SourceName = "youtube"

// SourceOptions configures the Shorts source.
type SourceOptions struct {
	Keywords      []string
	SearchResults int
	MaxDuration   time.Duration
	MaxFileSize   int64
	MediaDir      string
	// Pick returns an index in [0, n); defaults to math/rand.
	Pick func(n int) int
}

// Source searches Shorts by keyword and downloads the first unseen match.
// Search has no update log, so the cursor passes through unchanged.
type Source struct {
	searcher   Searcher
	downloader Downloader
	dedup      ports.DedupStore
	opts       SourceOptions
	pick       func(n int) int
	logger     *slog.Logger
}

var _ ports.MediaSource = (*Source)(nil)

// NewSource wires search, download and the dedup history used to skip known ids.
func NewSource(searcher Searcher, downloader Downloader, dedup ports.DedupStore, opts SourceOptions, logger *slog.Logger) *Source {
	if logger == nil {
		logger = slog.Default()
	}
	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}
	return &Source{
		searcher:   searcher,
		downloader: downloader,
		dedup:      dedup,
		opts:       opts,
		pick:       pick,
		logger:     logger,
	}
}

// Name identifies the source in the registry.
func (s *Source) Name() string {
	return SourceName
}

// UniqueID namespaces a YouTube video id in the dedup history.
func UniqueID(videoID string) string {
	return SourceName + ":" + videoID
}

// FetchNext searches a random keyword and downloads the first eligible result.
func (s *Source) FetchNext(ctx context.Context, cursor int64) (*domain.MediaItem, int64, error) {
	if len(s.opts.Keywords) == 0 {
		return nil, cursor, fmt.Errorf("no youtube keywords configured")
	}
	keyword := s.opts.Keywords[s.pick(len(s.opts.Keywords))]

	entries, err := s.searcher.Search(ctx, keyword, s.opts.SearchResults)
	if err != nil {
		return nil, cursor, fmt.Errorf("search shorts: %w", err)
	}

	entry, ok, err := s.firstEligible(ctx, entries)
	if err != nil {
		return nil, cursor, err
	}
	if !ok {
		s.logger.Info("no eligible shorts", "keyword", keyword, "results", len(entries))
		return nil, cursor, nil
	}

	if err := os.MkdirAll(s.opts.MediaDir, 0o755); err != nil {
		return nil, cursor, fmt.Errorf("create media dir: %w", err)
	}
	uniqueID := UniqueID(entry.ID)
	path := filepath.Join(s.opts.MediaDir, strings.ReplaceAll(uniqueID, ":", "_")+domain.MediaKindVideo.Extension())

	size, err := s.downloader.Download(ctx, entry.ID, path, s.opts.MaxFileSize)
	if err != nil {
		_ = os.Remove(path)
		return nil, cursor, fmt.Errorf("%w: %s: %v", domain.ErrDownloadFailed, uniqueID, err)
	}

	s.logger.Info("youtube short downloaded", "keyword", keyword, "video_id", entry.ID, "bytes", size)
	return &domain.MediaItem{
		UniqueID:   uniqueID,
		Kind:       domain.MediaKindVideo,
		LocalPath:  path,
		RawCaption: entry.Title,
		Source:     SourceName,
		SizeBytes:  size,
	}, cursor, nil
}

func (s *Source) firstEligible(ctx context.Context, entries []Entry) (Entry, bool, error) {
	maxSeconds := s.opts.MaxDuration.Seconds()
	for _, e := range entries {
		if e.ID == "" || e.Duration <= 0 {
			continue
		}
		if maxSeconds > 0 && e.Duration > maxSeconds {
			continue
		}
		if s.dedup != nil {
			seen, err := s.dedup.IsPosted(ctx, UniqueID(e.ID))
			if err != nil {
				return Entry{}, false, fmt.Errorf("check dedup: %w", err)
			}
			if seen {
				continue
			}
		}
		return e, true, nil
	}
	return Entry{}, false, nil
}
