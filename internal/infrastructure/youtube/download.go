package youtube

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	ytdl "github.com/kkdai/youtube/v2"
)

// Downloader stores a video by id at path.
type Downloader interface {
	Download(ctx context.Context, videoID, path string, maxBytes int64) (int64, error)
}

// StreamDownloader downloads progressive mp4 streams with kkdai/youtube.
type StreamDownloader struct {
	client ytdl.Client
}

// NewStreamDownloader builds a downloader bounded by timeout.
func NewStreamDownloader(timeout time.Duration) *StreamDownloader {
	if timeout <= 0 {
		timeout = 2 * time.Minute
	}
	return &StreamDownloader{client: ytdl.Client{HTTPClient: &http.Client{Timeout: timeout}}}
}

// Download picks the best mp4 format with audio that fits maxBytes.
func (d *StreamDownloader) Download(ctx context.Context, videoID, path string, maxBytes int64) (int64, error) {
	video, err := d.client.GetVideoContext(ctx, videoID)
	if err != nil {
		return 0, fmt.Errorf("get video %s: %w", videoID, err)
	}

	format, ok := pickFormat(video.Formats.WithAudioChannels(), maxBytes)
	if !ok {
		return 0, fmt.Errorf("video %s: no mp4 format with audio under %d bytes", videoID, maxBytes)
	}

	stream, _, err := d.client.GetStreamContext(ctx, video, &format)
	if err != nil {
		return 0, fmt.Errorf("get stream %s: %w", videoID, err)
	}
	defer stream.Close()

	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, copyErr := io.Copy(out, stream)
	closeErr := out.Close()
	if copyErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("download %s: %w", videoID, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(path)
		return 0, fmt.Errorf("close %s: %w", path, closeErr)
	}
	return n, nil
}

// pickFormat prefers the highest bitrate progressive mp4 whose known size fits.
func pickFormat(formats ytdl.FormatList, maxBytes int64) (ytdl.Format, bool) {
	var best ytdl.Format
	found := false
	for _, f := range formats {
		if !strings.HasPrefix(f.MimeType, "video/mp4") || f.QualityLabel == "" {
			continue
		}
		if maxBytes > 0 && f.ContentLength > maxBytes {
			continue
		}
		if !found || f.Bitrate > best.Bitrate {
			best = f
			found = true
		}
	}
	return best, found
}
