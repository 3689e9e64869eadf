package youtube

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// Entry is one flat search result reported by yt-dlp.
type Entry struct {
	ID       string  `json:"id"`
	Title    string  `json:"title"`
	Duration float64 `json:"duration"`
}

// Searcher finds Shorts candidates for a keyword.
type Searcher interface {
	Search(ctx context.Context, keyword string, limit int) ([]Entry, error)
}

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// YTDLPSearcher shells out to yt-dlp with a flat playlist query.
type YTDLPSearcher struct {
	binary  string
	timeout time.Duration
	run     Runner
}

// NewYTDLPSearcher uses binary (default "yt-dlp"). Each search is bounded by
// timeout when it is positive.
func NewYTDLPSearcher(binary string, timeout time.Duration) *YTDLPSearcher {
	if binary == "" {
		binary = "yt-dlp"
	}
	return &YTDLPSearcher{binary: binary, timeout: timeout, run: execRunner}
}

// WithRunner replaces the command runner.
func (s *YTDLPSearcher) WithRunner(run Runner) *YTDLPSearcher {
	s.run = run
	return s
}

// Search runs `ytsearchN:<keyword> shorts` and returns the flat entries.
func (s *YTDLPSearcher) Search(ctx context.Context, keyword string, limit int) ([]Entry, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, fmt.Errorf("search keyword is required")
	}
	if limit <= 0 {
		limit = 10
	}

	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	query := fmt.Sprintf("ytsearch%d:%s shorts", limit, keyword)
	out, err := s.run(ctx, s.binary, "--flat-playlist", "-J", "--no-warnings", query)
	if err != nil {
		return nil, fmt.Errorf("yt-dlp search %q: %w", keyword, err)
	}
	if len(bytes.TrimSpace(out)) == 0 {
		return nil, fmt.Errorf("yt-dlp returned empty output")
	}
	return parseSearch(out)
}

func parseSearch(out []byte) ([]Entry, error) {
	var payload struct {
		Entries []Entry `json:"entries"`
	}
	if err := json.Unmarshal(out, &payload); err != nil {
		return nil, fmt.Errorf("parse yt-dlp output: %w", err)
	}
	return payload.Entries, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
