package usecase

import (
	"context"
	"log/slog"

	"ReelsAutoposter/internal/domain"
)

// PublishResult is the flattened result of one publish attempt.
type PublishResult struct {
	OK     bool
	PostID string
	Detail string
}

// publish calls the sink exactly once for the chosen post type. Errors are
// folded into the result.
func (p *Pipeline) publish(ctx context.Context, logger *slog.Logger, postType domain.PostType, item *domain.MediaItem, caption string) PublishResult {
	var (
		postID string
		err    error
	)
	switch postType {
	case domain.PostTypePhoto:
		postID, err = p.publisher.UploadPhoto(ctx, item.LocalPath, caption)
	case domain.PostTypeVideo:
		postID, err = p.publisher.UploadVideo(ctx, item.LocalPath, caption)
	case domain.PostTypeReel:
		postID, err = p.publishReel(ctx, logger, item, caption)
	default:
		return PublishResult{Detail: "unsupported post type " + string(postType)}
	}

	if err != nil {
		logger.Error("publish call failed", "post_type", postType, "error", err)
		return PublishResult{Detail: err.Error()}
	}
	if postID == "" {
		return PublishResult{Detail: "publish returned no post id"}
	}
	return PublishResult{OK: true, PostID: postID}
}

func (p *Pipeline) publishReel(ctx context.Context, logger *slog.Logger, item *domain.MediaItem, caption string) (string, error) {
	session, err := p.publisher.StartReel(ctx, item.SizeBytes)
	if err != nil {
		return "", err
	}
	logger.Debug("reel session started", "video_id", session.VideoID)

	if err := p.publisher.TransferReel(ctx, session, item.LocalPath); err != nil {
		return "", err
	}
	return p.publisher.FinishReel(ctx, session, caption)
}
