package usecase

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"ReelsAutoposter/internal/domain"
)

const (
	reasonTooLarge    = "too_large"
	reasonUnsupported = "unsupported_media"
)

func startMessage(source string) string {
	if source == "" {
		source = "the source"
	}
	return fmt.Sprintf("🚀 Starting autopost run. Looking for new media from %s...", source)
}

func foundMessage(item *domain.MediaItem) string {
	caption := strings.TrimSpace(item.RawCaption)
	if caption == "" {
		caption = "(no caption)"
	}
	return fmt.Sprintf("📥 Media found: '%s'. Type: %s, %s. Processing...",
		caption, item.Kind.Label(), humanize.Bytes(uint64(max(item.SizeBytes, 0))))
}

func uploadingMessage(postType domain.PostType, class domain.Classification) string {
	switch postType {
	case domain.PostTypeReel:
		return fmt.Sprintf("🎥 Video fits Reels (%.0fs, %dx%d). Uploading as Reel...", class.Duration, class.Width, class.Height)
	case domain.PostTypeVideo:
		if class.Kind == domain.ClassInvalid {
			return fmt.Sprintf("🎞️ Video failed the %s check. Uploading as regular video...", class.Reason)
		}
		return "🎞️ Video does not fit Reels (duration/ratio). Uploading as regular video..."
	case domain.PostTypePhoto:
		return "📸 Media is a photo. Uploading as photo..."
	default:
		return "⏫ Uploading..."
	}
}

// outcomeMessage renders the single terminal notification of a pass.
func outcomeMessage(out domain.Outcome, maxFileSize int64) string {
	switch out.Kind {
	case domain.OutcomeNoMedia:
		if out.Detail != "" {
			return "❌ No new media found this run (source unavailable): " + out.Detail
		}
		return "❌ No new media found. Nothing was sent to the channel since the last run, or it was already processed."
	case domain.OutcomeDuplicate:
		if out.Detail != "" {
			return fmt.Sprintf("♻️ Media %s was already processed (%s). Skipping.", out.UniqueID, out.Detail)
		}
		return fmt.Sprintf("♻️ Media %s was already posted. Skipping.", out.UniqueID)
	case domain.OutcomeRejected:
		return rejectedMessage(out, maxFileSize)
	case domain.OutcomePublished:
		return fmt.Sprintf("✅ %s posted to Facebook!\nCaption: %s\nPost ID: %s", out.PostType.Label(), out.Caption, out.PostID)
	case domain.OutcomeFailed:
		return fmt.Sprintf("❌ Failed to upload %s to Facebook: '%s'.\n%s", out.PostType.Label(), out.Caption, out.Detail)
	default:
		return "🔥 Autopost run failed: " + out.Detail
	}
}

// priorDetail summarises the dedup record that made a pass a duplicate.
func priorDetail(rec domain.DedupRecord) string {
	parts := []string{"status " + string(rec.Status)}
	if rec.PublishPostID != "" {
		parts = append(parts, "post "+rec.PublishPostID)
	}
	if !rec.Timestamp.IsZero() {
		parts = append(parts, "at "+rec.Timestamp.UTC().Format(time.RFC3339))
	}
	return strings.Join(parts, ", ")
}

func rejectedMessage(out domain.Outcome, maxFileSize int64) string {
	switch out.Reason {
	case reasonTooLarge:
		return fmt.Sprintf("⚠️ Media %s is too large (%s, limit %s). Skipping.",
			out.UniqueID, humanize.Bytes(uint64(max(out.SizeBytes, 0))), humanize.Bytes(uint64(max(maxFileSize, 0))))
	case string(domain.ReasonDuration):
		return fmt.Sprintf("⚠️ Video %s rejected: duration outside the allowed range. Skipping.", out.UniqueID)
	case string(domain.ReasonAspectRatio):
		return fmt.Sprintf("⚠️ Video %s rejected: unsupported aspect ratio. Skipping.", out.UniqueID)
	case string(domain.ReasonUnprobable):
		return fmt.Sprintf("⚠️ Video %s rejected: could not read duration or resolution. Skipping.", out.UniqueID)
	case reasonUnsupported:
		return fmt.Sprintf("⚠️ Media %s has an unsupported type. Skipping.", out.UniqueID)
	default:
		return fmt.Sprintf("⚠️ Media %s rejected (%s). Skipping.", out.UniqueID, out.Reason)
	}
}
