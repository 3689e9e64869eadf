package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"runtime/debug"
	"time"

	"github.com/google/uuid"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// reportTimeout bounds the terminal notification and outcome event, which are
// sent even after the run context is cancelled.
const reportTimeout = 10 * time.Second

// PipelineOptions tunes validation and run budgeting.
type PipelineOptions struct {
	MaxFileSize           int64
	MaxPostsPerRun        int
	DowngradeInvalid      bool
	ProgressNotifications bool
	SourceName            string
}

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.MediaSource
	Dedup      ports.DedupStore
	Cursor     ports.CursorStore
	Classifier ports.Classifier
	Captions   ports.CaptionResolver
	Publisher  ports.Publisher
	Notifier   ports.Notifier
	Events     ports.EventPublisher
	Logger     *slog.Logger
	Options    PipelineOptions
	Clock      func() time.Time
	NewRunID   func() string
}

// Pipeline implements the fetch, validate, caption, publish and record workflow.
type Pipeline struct {
	source     ports.MediaSource
	dedup      ports.DedupStore
	cursor     ports.CursorStore
	classifier ports.Classifier
	captions   ports.CaptionResolver
	publisher  ports.Publisher
	notifier   ports.Notifier
	events     ports.EventPublisher
	logger     *slog.Logger
	opts       PipelineOptions
	clock      func() time.Time
	newRunID   func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	clock := deps.Clock
	if clock == nil {
		clock = time.Now
	}
	newRunID := deps.NewRunID
	if newRunID == nil {
		newRunID = uuid.NewString
	}
	opts := deps.Options
	if opts.MaxPostsPerRun <= 0 {
		opts.MaxPostsPerRun = 1
	}
	return &Pipeline{
		source:     deps.Source,
		dedup:      deps.Dedup,
		cursor:     deps.Cursor,
		classifier: deps.Classifier,
		captions:   deps.Captions,
		publisher:  deps.Publisher,
		notifier:   deps.Notifier,
		events:     deps.Events,
		logger:     logger,
		opts:       opts,
		clock:      clock,
		newRunID:   newRunID,
	}
}

// Run executes one pass, and further passes only while every previous pass
// was a publish attempt and the MaxPostsPerRun budget is not used up. Any
// other outcome (no media, duplicate, rejected, error) ends the run.
func (p *Pipeline) Run(ctx context.Context) ([]domain.Outcome, error) {
	var outcomes []domain.Outcome
	for attempts := 0; attempts < p.opts.MaxPostsPerRun; attempts++ {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		out, err := p.RunOnce(ctx)
		outcomes = append(outcomes, out)
		if err != nil {
			return outcomes, err
		}
		if !out.Attempted() {
			break
		}
	}
	return outcomes, nil
}

// RunOnce processes at most one media item. Every exit path removes the local
// file and emits exactly one terminal notification; panics are recovered and
// returned as errors wrapping domain.ErrPanic.
func (p *Pipeline) RunOnce(ctx context.Context) (out domain.Outcome, err error) {
	runID := p.newRunID()
	logger := p.logger.With("run_id", runID)
	out = domain.Outcome{RunID: runID, Source: p.opts.SourceName}

	var localPath string
	defer func() {
		if r := recover(); r != nil {
			logger.Error("pass panicked", "panic", r, "stack", string(debug.Stack()))
			err = fmt.Errorf("%w: %v", domain.ErrPanic, r)
		}
		if err != nil {
			out.Kind = domain.OutcomeError
			out.Detail = err.Error()
		}
		p.cleanup(logger, localPath)
		out.FinishedAt = p.clock()
		p.finish(ctx, logger, out)
	}()

	p.progress(ctx, logger, startMessage(p.opts.SourceName))

	cursor, err := p.cursor.Load(ctx)
	if err != nil {
		return out, fmt.Errorf("load cursor: %w", err)
	}
	out.Cursor = cursor

	item, next, fetchErr := p.source.FetchNext(ctx, cursor)
	if item != nil {
		localPath = item.LocalPath
	}
	if next > cursor {
		if err := p.cursor.Save(ctx, next); err != nil {
			return out, fmt.Errorf("save cursor: %w", err)
		}
		out.Cursor = next
	}
	if fetchErr != nil {
		logger.Warn("fetch failed", "cursor", cursor, "next", next, "error", fetchErr)
		out.Kind = domain.OutcomeNoMedia
		out.Detail = fetchErr.Error()
		return out, nil
	}
	if item == nil {
		logger.Info("no new media", "cursor", out.Cursor)
		out.Kind = domain.OutcomeNoMedia
		return out, nil
	}

	out.UniqueID = item.UniqueID
	out.MediaKind = item.Kind
	if item.Source != "" {
		out.Source = item.Source
	}
	logger = logger.With("unique_id", item.UniqueID, "media_kind", item.Kind.String())

	posted, err := p.dedup.IsPosted(ctx, item.UniqueID)
	if err != nil {
		return out, fmt.Errorf("check dedup %s: %w", item.UniqueID, err)
	}
	if posted {
		out.Kind = domain.OutcomeDuplicate
		prior, ok, err := p.dedup.Get(ctx, item.UniqueID)
		if err != nil {
			logger.Warn("load prior record", "error", err)
		} else if ok {
			out.Detail = priorDetail(prior)
		}
		logger.Info("media already posted", "prior", out.Detail)
		return out, nil
	}

	info, err := os.Stat(item.LocalPath)
	if err != nil {
		return out, fmt.Errorf("stat media %s: %w", item.UniqueID, err)
	}
	item.SizeBytes = info.Size()
	out.SizeBytes = item.SizeBytes
	if p.opts.MaxFileSize > 0 && item.SizeBytes > p.opts.MaxFileSize {
		logger.Warn("media too large", "bytes", item.SizeBytes, "limit", p.opts.MaxFileSize)
		out.Kind = domain.OutcomeRejected
		out.Reason = reasonTooLarge
		out.Detail = fmt.Sprintf("limit %d", p.opts.MaxFileSize)
		return out, nil
	}

	p.progress(ctx, logger, foundMessage(item))

	postType, class, reason := p.route(ctx, logger, item)
	if reason != "" {
		out.Kind = domain.OutcomeRejected
		out.Reason = reason
		return out, nil
	}
	out.PostType = postType

	decision := p.captions.Resolve(ctx, item.RawCaption, item.Kind)
	out.Caption = decision.Text
	out.CaptionSource = decision.Source.String()
	logger.Info("caption resolved", "caption_source", out.CaptionSource)

	p.progress(ctx, logger, uploadingMessage(postType, class))

	result := p.publish(ctx, logger, postType, item, decision.Text)

	record := domain.DedupRecord{
		FinalCaption:     decision.Text,
		PublishPostID:    result.PostID,
		Timestamp:        p.clock().UTC(),
		MediaKind:        item.Kind,
		ClassifiedAsReel: class.IsReel(),
		Status:           domain.StatusPosted,
		Source:           out.Source,
		RunID:            runID,
	}
	if !result.OK {
		record.Status = domain.StatusFailedUpload
		record.Error = result.Detail
	}
	if err := p.dedup.Record(ctx, item.UniqueID, record); err != nil {
		return out, fmt.Errorf("record %s as %s: %w", item.UniqueID, record.Status, err)
	}

	out.PostID = result.PostID
	out.Detail = result.Detail
	if result.OK {
		out.Kind = domain.OutcomePublished
		logger.Info("media published", "post_type", postType, "post_id", result.PostID)
	} else {
		out.Kind = domain.OutcomeFailed
		logger.Error("publish failed", "post_type", postType, "detail", result.Detail)
	}
	return out, nil
}

// route picks the publish flavour or returns a rejection reason.
func (p *Pipeline) route(ctx context.Context, logger *slog.Logger, item *domain.MediaItem) (domain.PostType, domain.Classification, string) {
	switch item.Kind {
	case domain.MediaKindPhoto:
		return domain.PostTypePhoto, domain.Classification{}, ""
	case domain.MediaKindVideo:
		class := p.classifier.Classify(ctx, item.LocalPath)
		item.Duration = class.Duration
		item.Width = class.Width
		item.Height = class.Height
		logger.Info("video classified", "class", class.Kind.String(), "duration", class.Duration,
			"width", class.Width, "height", class.Height, "reason", class.Reason)

		switch class.Kind {
		case domain.ClassReel:
			return domain.PostTypeReel, class, ""
		case domain.ClassRegularVideo:
			return domain.PostTypeVideo, class, ""
		default:
			if p.opts.DowngradeInvalid && class.Reason != domain.ReasonUnprobable {
				logger.Warn("invalid video downgraded to regular upload", "reason", class.Reason)
				return domain.PostTypeVideo, class, ""
			}
			return "", class, string(class.Reason)
		}
	default:
		return "", domain.Classification{}, reasonUnsupported
	}
}

func (p *Pipeline) cleanup(logger *slog.Logger, path string) {
	if path == "" {
		return
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.Warn("remove local media", "path", path, "error", err)
	}
}

// finish sends the terminal notification and outcome event; neither can fail the pass.
// Both detach from ctx cancellation so an interrupted run still reports.
func (p *Pipeline) finish(ctx context.Context, logger *slog.Logger, out domain.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("reporting outcome panicked", "panic", r)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), reportTimeout)
	defer cancel()

	logger.Info("pass finished", "outcome", out.Kind, "cursor", out.Cursor)
	p.notify(ctx, logger, outcomeMessage(out, p.opts.MaxFileSize))

	if p.events == nil {
		return
	}
	if err := p.events.PublishOutcome(ctx, out); err != nil {
		logger.Warn("publish outcome event", "error", err)
	}
}

func (p *Pipeline) progress(ctx context.Context, logger *slog.Logger, text string) {
	if p.opts.ProgressNotifications {
		p.notify(ctx, logger, text)
	}
}

func (p *Pipeline) notify(ctx context.Context, logger *slog.Logger, text string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, text); err != nil {
		logger.Warn("send notification", "error", err)
	}
}
