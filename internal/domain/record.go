package domain

import "time"

// PostStatus is the outcome stored for a unique id in the dedup history.
type PostStatus string

const (
	StatusPosted       PostStatus = "posted"
	StatusFailedUpload PostStatus = "failed_upload"
)

// DedupRecord is persisted per unique id after a publish attempt.
type DedupRecord struct {
	FinalCaption     string     `json:"final_caption"`
	PublishPostID    string     `json:"publish_post_id"`
	Timestamp        time.Time  `json:"timestamp"`
	MediaKind        MediaKind  `json:"media_kind"`
	ClassifiedAsReel bool       `json:"classified_as_reel"`
	Status           PostStatus `json:"status"`
	Source           string     `json:"source,omitempty"`
	RunID            string     `json:"run_id,omitempty"`
	Error            string     `json:"error,omitempty"`
}
