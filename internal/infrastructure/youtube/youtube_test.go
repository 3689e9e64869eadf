package youtube

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
	"github.com/stretchr/testify/require"

	"ReelsAutoposter/internal/domain"
)

type fakeSearcher struct {
	entries []Entry
	err     error
	keyword string
}

func (f *fakeSearcher) Search(_ context.Context, keyword string, _ int) ([]Entry, error) {
	f.keyword = keyword
	return f.entries, f.err
}

type fakeDownloader struct {
	body string
	err  error
	ids  []string
}

func (f *fakeDownloader) Download(_ context.Context, videoID, path string, _ int64) (int64, error) {
	f.ids = append(f.ids, videoID)
	if f.err != nil {
		_ = os.WriteFile(path, []byte("partial"), 0o644)
		return 0, f.err
	}
	if err := os.WriteFile(path, []byte(f.body), 0o644); err != nil {
		return 0, err
	}
	return int64(len(f.body)), nil
}

type seenStore map[string]bool

func (s seenStore) IsPosted(_ context.Context, id string) (bool, error) { return s[id], nil }
func (s seenStore) Record(context.Context, string, domain.DedupRecord) error {
	return nil
}
func (s seenStore) Get(context.Context, string) (domain.DedupRecord, bool, error) {
	return domain.DedupRecord{}, false, nil
}

func TestYTDLPSearcherBuildsQuery(t *testing.T) {
	t.Parallel()

	var got []string
	s := NewYTDLPSearcher("", 0).WithRunner(func(_ context.Context, name string, args ...string) ([]byte, error) {
		got = append([]string{name}, args...)
		return []byte(`{"entries":[{"id":"abc","title":"Cat jumps","duration":14.0},{"id":"def","title":"Live","duration":null}]}`), nil
	})

	entries, err := s.Search(context.Background(), " funny cats ", 5)
	require.NoError(t, err)
	require.Equal(t, []string{"yt-dlp", "--flat-playlist", "-J", "--no-warnings", "ytsearch5:funny cats shorts"}, got)
	require.Len(t, entries, 2)
	require.Equal(t, "Cat jumps", entries[0].Title)
	require.Zero(t, entries[1].Duration)

	_, err = s.Search(context.Background(), "  ", 5)
	require.Error(t, err)
}

func TestYTDLPSearcherTimesOut(t *testing.T) {
	t.Parallel()

	s := NewYTDLPSearcher("yt-dlp", 20*time.Millisecond).WithRunner(func(ctx context.Context, _ string, _ ...string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	})

	started := time.Now()
	_, err := s.Search(context.Background(), "cats", 3)
	require.ErrorIs(t, err, context.DeadlineExceeded)
	require.Less(t, time.Since(started), 5*time.Second)
}

func TestSourceSkipsLongAndKnownVideos(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	searcher := &fakeSearcher{entries: []Entry{
		{ID: "long", Title: "Too long", Duration: 300},
		{ID: "seen", Title: "Already posted", Duration: 30},
		{ID: "live", Title: "No duration"},
		{ID: "fresh", Title: "Dog surfing", Duration: 42},
	}}
	downloader := &fakeDownloader{body: "mp4"}
	src := NewSource(searcher, downloader, seenStore{"youtube:seen": true}, SourceOptions{
		Keywords:    []string{"dogs", "cats"},
		MaxDuration: 65 * time.Second,
		MediaDir:    dir,
		Pick:        func(int) int { return 1 },
	}, nil)

	item, next, err := src.FetchNext(context.Background(), 7)
	require.NoError(t, err)
	require.Equal(t, int64(7), next)
	require.Equal(t, "cats", searcher.keyword)
	require.Equal(t, []string{"fresh"}, downloader.ids)

	require.Equal(t, "youtube:fresh", item.UniqueID)
	require.Equal(t, domain.MediaKindVideo, item.Kind)
	require.Equal(t, "Dog surfing", item.RawCaption)
	require.Equal(t, filepath.Join(dir, "youtube_fresh.mp4"), item.LocalPath)
	require.Equal(t, int64(3), item.SizeBytes)
}

func TestSourceNoEligible(t *testing.T) {
	t.Parallel()

	src := NewSource(&fakeSearcher{entries: []Entry{{ID: "x", Duration: 100}}}, &fakeDownloader{}, nil,
		SourceOptions{Keywords: []string{"k"}, MaxDuration: 65 * time.Second, MediaDir: t.TempDir()}, nil)
	item, next, err := src.FetchNext(context.Background(), 0)
	require.NoError(t, err)
	require.Nil(t, item)
	require.Zero(t, next)
}

func TestSourceDownloadFailureRemovesPartial(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	src := NewSource(&fakeSearcher{entries: []Entry{{ID: "abc", Duration: 10}}}, &fakeDownloader{err: errors.New("403")}, nil,
		SourceOptions{Keywords: []string{"k"}, MediaDir: dir}, nil)
	item, _, err := src.FetchNext(context.Background(), 0)
	require.ErrorIs(t, err, domain.ErrDownloadFailed)
	require.Nil(t, item)

	entries, readErr := os.ReadDir(dir)
	require.NoError(t, readErr)
	require.Empty(t, entries)
}

func TestPickFormat(t *testing.T) {
	t.Parallel()

	formats := ytdl.FormatList{
		{ItagNo: 1, MimeType: `audio/mp4; codecs="mp4a"`, Bitrate: 900},
		{ItagNo: 2, MimeType: `video/mp4; codecs="avc1"`, QualityLabel: "360p", Bitrate: 300, ContentLength: 100},
		{ItagNo: 3, MimeType: `video/mp4; codecs="avc1"`, QualityLabel: "720p", Bitrate: 800, ContentLength: 5000},
		{ItagNo: 4, MimeType: `video/webm; codecs="vp9"`, QualityLabel: "1080p", Bitrate: 2000},
	}

	got, ok := pickFormat(formats, 0)
	require.True(t, ok)
	require.Equal(t, 3, got.ItagNo)

	got, ok = pickFormat(formats, 1000)
	require.True(t, ok)
	require.Equal(t, 2, got.ItagNo)

	_, ok = pickFormat(formats, 10)
	require.False(t, ok)
}
