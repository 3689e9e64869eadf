package classifier

import (
	"context"
	"log/slog"
	"math"
	"time"

	"ReelsAutoposter/internal/config"
	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// Ratio is an accepted width/height proportion.
type Ratio struct {
	Name     string
	Width    float64
	Height   float64
	Portrait bool
}

// Value returns width divided by height.
func (r Ratio) Value() float64 {
	return r.Width / r.Height
}

// Policy holds the thresholds applied to probed videos.
type Policy struct {
	MinDuration     time.Duration
	MaxDuration     time.Duration
	ReelMaxDuration time.Duration
	Tolerance       float64
	Ratios          []Ratio
}

// DefaultRatios are portrait 9:16, landscape 16:9 and square 1:1.
func DefaultRatios() []Ratio {
	return []Ratio{
		{Name: "9:16", Width: 9, Height: 16, Portrait: true},
		{Name: "16:9", Width: 16, Height: 9},
		{Name: "1:1", Width: 1, Height: 1},
	}
}

// DefaultPolicy accepts 3 to 90 seconds and reserves Reels for portrait clips up to 60 seconds.
func DefaultPolicy() Policy {
	return Policy{
		MinDuration:     3 * time.Second,
		MaxDuration:     90 * time.Second,
		ReelMaxDuration: 60 * time.Second,
		Tolerance:       0.02,
		Ratios:          DefaultRatios(),
	}
}

// PolicyFromConfig maps configuration thresholds onto a Policy.
func PolicyFromConfig(cfg config.ClassifierConfig) Policy {
	return Policy{
		MinDuration:     cfg.MinDuration,
		MaxDuration:     cfg.MaxDuration,
		ReelMaxDuration: cfg.ReelMaxDuration,
		Tolerance:       cfg.RatioTolerance,
		Ratios:          DefaultRatios(),
	}
}

// Evaluate classifies already probed values. Both duration bounds are inclusive.
func (p Policy) Evaluate(duration float64, width, height int) domain.Classification {
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 || width <= 0 || height <= 0 {
		return domain.Invalid(domain.ReasonUnprobable)
	}

	result := domain.Classification{Duration: duration, Width: width, Height: height}

	if duration < p.MinDuration.Seconds() || duration > p.MaxDuration.Seconds() {
		result.Kind = domain.ClassInvalid
		result.Reason = domain.ReasonDuration
		return result
	}

	matched, ok := p.matchRatio(float64(width) / float64(height))
	if !ok {
		result.Kind = domain.ClassInvalid
		result.Reason = domain.ReasonAspectRatio
		return result
	}

	if matched.Portrait && duration <= p.ReelMaxDuration.Seconds() {
		result.Kind = domain.ClassReel
		return result
	}
	result.Kind = domain.ClassRegularVideo
	return result
}

func (p Policy) matchRatio(ratio float64) (Ratio, bool) {
	for _, candidate := range p.Ratios {
		if math.Abs(ratio-candidate.Value()) <= p.Tolerance {
			return candidate, true
		}
	}
	return Ratio{}, false
}

// Classifier probes a file and applies the Policy.
type Classifier struct {
	prober ports.Prober
	policy Policy
	logger *slog.Logger
}

var _ ports.Classifier = (*Classifier)(nil)

// New wires the probe collaborator with a policy.
func New(prober ports.Prober, policy Policy, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{prober: prober, policy: policy, logger: logger}
}

// Classify never fails: probe errors become Invalid{unprobable}.
func (c *Classifier) Classify(ctx context.Context, path string) domain.Classification {
	if c.prober == nil {
		return domain.Invalid(domain.ReasonUnprobable)
	}

	probe, err := c.prober.Probe(ctx, path)
	if err != nil {
		c.logger.Warn("probe failed", "path", path, "error", err)
		return domain.Invalid(domain.ReasonUnprobable)
	}

	result := c.policy.Evaluate(probe.Duration, probe.Width, probe.Height)
	c.logger.Debug("video classified",
		"path", path,
		"duration", probe.Duration,
		"width", probe.Width,
		"height", probe.Height,
		"class", result.Kind.String(),
		"reason", result.Reason,
	)
	return result
}
