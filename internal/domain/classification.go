package domain

// ClassificationKind is the verdict of the video classifier.
type ClassificationKind int

const (
	ClassInvalid ClassificationKind = iota
	ClassReel
	ClassRegularVideo
)

// String returns a readable name for logs.
func (k ClassificationKind) String() string {
	switch k {
	case ClassReel:
		return "reel"
	case ClassRegularVideo:
		return "regular_video"
	default:
		return "invalid"
	}
}

// InvalidReason explains why a video was classified Invalid.
type InvalidReason string

const (
	ReasonUnprobable  InvalidReason = "unprobable"
	ReasonDuration    InvalidReason = "duration"
	ReasonAspectRatio InvalidReason = "aspect_ratio"
)

// Classification is derived per run and never persisted.
type Classification struct {
	Kind     ClassificationKind
	Duration float64
	Width    int
	Height   int
	Reason   InvalidReason
}

// Invalid builds an Invalid classification with the given reason.
func Invalid(reason InvalidReason) Classification {
	return Classification{Kind: ClassInvalid, Reason: reason}
}

// IsReel reports whether the classification selected the reels flow.
func (c Classification) IsReel() bool {
	return c.Kind == ClassReel
}
