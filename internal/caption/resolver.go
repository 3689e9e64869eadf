package caption

import (
	"context"
	"errors"
	"log/slog"
	"math/rand/v2"
	"strings"
	"time"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// Options tunes the fallback material of a Resolver.
type Options struct {
	Boilerplate []string
	Pool        []string
	Timeout     time.Duration
	// Pick returns an index in [0, n); defaults to math/rand.
	Pick func(n int) int
}

// Resolver turns a raw source caption into a publishable one.
type Resolver struct {
	rewriter    ports.Rewriter
	boilerplate map[string]struct{}
	pool        []string
	timeout     time.Duration
	pick        func(n int) int
	logger      *slog.Logger
}

var _ ports.CaptionResolver = (*Resolver)(nil)

// NewResolver builds a resolver; a nil rewriter makes every rewrite count as failed.
func NewResolver(rewriter ports.Rewriter, opts Options, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}

	boilerplate := make(map[string]struct{}, len(opts.Boilerplate))
	for _, b := range opts.Boilerplate {
		key := normalize(b)
		if key != "" {
			boilerplate[key] = struct{}{}
		}
	}

	pool := make([]string, 0, len(opts.Pool))
	for _, p := range opts.Pool {
		if strings.TrimSpace(p) != "" {
			pool = append(pool, p)
		}
	}

	pick := opts.Pick
	if pick == nil {
		pick = rand.IntN
	}

	return &Resolver{
		rewriter:    rewriter,
		boilerplate: boilerplate,
		pool:        pool,
		timeout:     opts.Timeout,
		pick:        pick,
		logger:      logger,
	}
}

// Resolve never returns an empty or whitespace-only text.
func (r *Resolver) Resolve(ctx context.Context, raw string, kind domain.MediaKind) domain.CaptionDecision {
	if r.isBlank(raw) {
		if len(r.pool) == 0 {
			return domain.CaptionDecision{Source: domain.CaptionFallbackDefault, Text: domain.DefaultCaption(kind)}
		}
		text := r.pool[r.pick(len(r.pool))]
		r.logger.Debug("caption from fallback pool", "raw", raw)
		return domain.CaptionDecision{Source: domain.CaptionFallbackGeneric, Text: text}
	}

	text, err := r.rewrite(ctx, raw, kind)
	if err != nil {
		r.logger.Warn("caption rewrite failed, keeping raw caption", "error", err)
		return domain.CaptionDecision{Source: domain.CaptionFallbackFromRaw, Text: raw}
	}
	return domain.CaptionDecision{Source: domain.CaptionRewritten, Text: text}
}

func (r *Resolver) rewrite(ctx context.Context, raw string, kind domain.MediaKind) (string, error) {
	if r.rewriter == nil {
		return "", errors.New("no caption rewriter configured")
	}

	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	text, err := r.rewriter.Rewrite(ctx, raw, kind)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.ErrEmptyRewrite
	}
	return text, nil
}

func (r *Resolver) isBlank(raw string) bool {
	key := normalize(raw)
	if key == "" {
		return true
	}
	_, ok := r.boilerplate[key]
	return ok
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
