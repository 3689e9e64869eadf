package domain

// CaptionSource records which branch of the caption resolver produced the text.
type CaptionSource int

const (
	CaptionRewritten CaptionSource = iota + 1
	CaptionFallbackGeneric
	CaptionFallbackFromRaw
	CaptionFallbackDefault
)

// String returns the branch name.
func (s CaptionSource) String() string {
	switch s {
	case CaptionRewritten:
		return "rewritten"
	case CaptionFallbackGeneric:
		return "fallback_generic"
	case CaptionFallbackFromRaw:
		return "fallback_from_raw"
	case CaptionFallbackDefault:
		return "fallback_default"
	default:
		return "unknown"
	}
}

// CaptionDecision always carries a non-empty text.
type CaptionDecision struct {
	Source CaptionSource
	Text   string
}

// DefaultCaption is the last-resort caption for a media kind.
func DefaultCaption(kind MediaKind) string {
	return kind.Label() + " from bot"
}
