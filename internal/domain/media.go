package domain

import (
	"fmt"
	"strings"
)

// MediaKind enumerates the attachment types the pipeline can publish.
type MediaKind int

const (
	MediaKindUnknown MediaKind = iota
	MediaKindVideo
	MediaKindPhoto
)

// String returns the lowercase wire name of the kind.
func (k MediaKind) String() string {
	switch k {
	case MediaKindVideo:
		return "video"
	case MediaKindPhoto:
		return "photo"
	default:
		return ""
	}
}

// Label returns the capitalized kind used in human-facing texts.
func (k MediaKind) Label() string {
	switch k {
	case MediaKindVideo:
		return "Video"
	case MediaKindPhoto:
		return "Photo"
	default:
		return "Media"
	}
}

// Extension returns the file extension used for downloaded media of this kind.
func (k MediaKind) Extension() string {
	switch k {
	case MediaKindVideo:
		return ".mp4"
	case MediaKindPhoto:
		return ".jpg"
	default:
		return ".bin"
	}
}

// ParseMediaKind resolves a wire name into a MediaKind.
func ParseMediaKind(value string) (MediaKind, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "video":
		return MediaKindVideo, nil
	case "photo", "foto", "image":
		return MediaKindPhoto, nil
	case "":
		return MediaKindUnknown, nil
	default:
		return MediaKindUnknown, fmt.Errorf("unknown media kind %q", value)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (k MediaKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *MediaKind) UnmarshalText(text []byte) error {
	parsed, err := ParseMediaKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// MediaItem is one unit of inbound media owned by a single pipeline pass.
type MediaItem struct {
	SourceUpdateID int64
	UniqueID       string
	Kind           MediaKind
	LocalPath      string
	RawCaption     string
	Source         string
	SizeBytes      int64

	// Populated for videos once probed.
	Duration float64
	Width    int
	Height   int
}

// ProbeResult is what the inspection tool reports about a video file.
type ProbeResult struct {
	Duration float64
	Width    int
	Height   int
}

// ReelSession is the upload session handed out by the reels start phase.
type ReelSession struct {
	VideoID   string
	UploadURL string
	FileSize  int64
}
