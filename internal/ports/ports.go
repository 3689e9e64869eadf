package ports

import (
	"context"

	"ReelsAutoposter/internal/domain"
)

// MediaSource yields the next unseen media item after a cursor.
// The returned cursor is never lower than the one passed in, even on error.
type MediaSource interface {
	FetchNext(ctx context.Context, cursor int64) (*domain.MediaItem, int64, error)
}

// DedupStore remembers unique ids that reached the publish step. Get returns
// the stored record so a duplicate can be reported with its prior status.
type DedupStore interface {
	IsPosted(ctx context.Context, uniqueID string) (bool, error)
	Record(ctx context.Context, uniqueID string, record domain.DedupRecord) error
	Get(ctx context.Context, uniqueID string) (domain.DedupRecord, bool, error)
}

// CursorStore persists the highest observed update position.
type CursorStore interface {
	Load(ctx context.Context) (int64, error)
	Save(ctx context.Context, cursor int64) error
}

// Prober extracts duration and resolution from a local video file.
type Prober interface {
	Probe(ctx context.Context, path string) (domain.ProbeResult, error)
}

// Classifier decides whether a video is a Reel, a regular video, or invalid.
type Classifier interface {
	Classify(ctx context.Context, path string) domain.Classification
}

// Rewriter turns a raw caption into a cleaned social caption via an LLM.
type Rewriter interface {
	Rewrite(ctx context.Context, text string, kind domain.MediaKind) (string, error)
}

// CaptionResolver always produces a publishable caption.
type CaptionResolver interface {
	Resolve(ctx context.Context, raw string, kind domain.MediaKind) domain.CaptionDecision
}

// Publisher is the wire-level publish sink of the destination page.
type Publisher interface {
	UploadPhoto(ctx context.Context, path, caption string) (string, error)
	UploadVideo(ctx context.Context, path, caption string) (string, error)
	StartReel(ctx context.Context, fileSize int64) (domain.ReelSession, error)
	TransferReel(ctx context.Context, session domain.ReelSession, path string) error
	FinishReel(ctx context.Context, session domain.ReelSession, caption string) (string, error)
}

// Notifier delivers human-readable status messages.
type Notifier interface {
	Notify(ctx context.Context, text string) error
}

// EventPublisher emits machine-readable pass outcomes.
type EventPublisher interface {
	PublishOutcome(ctx context.Context, outcome domain.Outcome) error
}
