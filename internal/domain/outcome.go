package domain

import "time"

// OutcomeKind enumerates the terminal states of one pipeline pass.
type OutcomeKind string

const (
	OutcomeNoMedia   OutcomeKind = "no_media"
	OutcomeDuplicate OutcomeKind = "duplicate"
	OutcomeRejected  OutcomeKind = "rejected"
	OutcomePublished OutcomeKind = "published"
	OutcomeFailed    OutcomeKind = "failed"
	OutcomeError     OutcomeKind = "error"
)

// PostType is the publish flavour chosen for an item.
type PostType string

const (
	PostTypeReel  PostType = "reel"
	PostTypeVideo PostType = "video"
	PostTypePhoto PostType = "photo"
)

// Label returns the capitalized post type for notifications.
func (t PostType) Label() string {
	switch t {
	case PostTypeReel:
		return "Reel"
	case PostTypeVideo:
		return "Video"
	case PostTypePhoto:
		return "Photo"
	default:
		return "Post"
	}
}

// Outcome summarizes one pass for notifications and outcome events.
type Outcome struct {
	RunID         string      `json:"run_id"`
	Kind          OutcomeKind `json:"kind"`
	Source        string      `json:"source,omitempty"`
	UniqueID      string      `json:"unique_id,omitempty"`
	MediaKind     MediaKind   `json:"media_kind,omitempty"`
	SizeBytes     int64       `json:"size_bytes,omitempty"`
	PostType      PostType    `json:"post_type,omitempty"`
	PostID        string      `json:"post_id,omitempty"`
	Caption       string      `json:"caption,omitempty"`
	CaptionSource string      `json:"caption_source,omitempty"`
	Reason        string      `json:"reason,omitempty"`
	Detail        string      `json:"detail,omitempty"`
	Cursor        int64       `json:"cursor"`
	FinishedAt    time.Time   `json:"finished_at"`
}

// Attempted reports whether the pass reached the publish step.
func (o Outcome) Attempted() bool {
	return o.Kind == OutcomePublished || o.Kind == OutcomeFailed
}
