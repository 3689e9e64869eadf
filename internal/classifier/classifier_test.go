package classifier

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"ReelsAutoposter/internal/domain"
)

type stubProber struct {
	result domain.ProbeResult
	err    error
}

func (s stubProber) Probe(context.Context, string) (domain.ProbeResult, error) {
	return s.result, s.err
}

func TestEvaluateDurationBoundaries(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	tests := []struct {
		name     string
		duration float64
		want     domain.ClassificationKind
		reason   domain.InvalidReason
	}{
		{"exactly min", 3, domain.ClassReel, ""},
		{"just below min", 2.999, domain.ClassInvalid, domain.ReasonDuration},
		{"exactly max", 90, domain.ClassRegularVideo, ""},
		{"just above max", 90.001, domain.ClassInvalid, domain.ReasonDuration},
		{"reel ceiling", 60, domain.ClassReel, ""},
		{"past reel ceiling", 60.5, domain.ClassRegularVideo, ""},
		{"too long", 120, domain.ClassInvalid, domain.ReasonDuration},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := policy.Evaluate(tt.duration, 1080, 1920)
			require.Equal(t, tt.want, got.Kind)
			require.Equal(t, tt.reason, got.Reason)
		})
	}
}

func TestEvaluateAspectRatios(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	tests := []struct {
		name          string
		width, height int
		want          domain.ClassificationKind
	}{
		{"portrait exact", 1080, 1920, domain.ClassReel},
		{"landscape exact", 1920, 1080, domain.ClassRegularVideo},
		{"square exact", 1080, 1080, domain.ClassRegularVideo},
		{"portrait within tolerance", 1088, 1920, domain.ClassReel},
		{"portrait 10% off", 1188, 1920, domain.ClassInvalid},
		{"landscape 10% off", 1920, 1200, domain.ClassInvalid},
		{"square 10% off", 1188, 1080, domain.ClassInvalid},
		{"four by three", 1440, 1080, domain.ClassInvalid},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := policy.Evaluate(20, tt.width, tt.height)
			require.Equal(t, tt.want, got.Kind)
			if tt.want == domain.ClassInvalid {
				require.Equal(t, domain.ReasonAspectRatio, got.Reason)
			}
		})
	}
}

func TestEvaluateUnprobableValues(t *testing.T) {
	t.Parallel()
	policy := DefaultPolicy()

	for _, tc := range []struct {
		duration      float64
		width, height int
	}{
		{0, 1080, 1920},
		{20, 0, 1920},
		{20, 1080, 0},
		{-1, 1080, 1920},
	} {
		got := policy.Evaluate(tc.duration, tc.width, tc.height)
		require.Equal(t, domain.ClassInvalid, got.Kind)
		require.Equal(t, domain.ReasonUnprobable, got.Reason)
	}
}

func TestClassifyUsesProber(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	c := New(stubProber{result: domain.ProbeResult{Duration: 20, Width: 1080, Height: 1920}}, DefaultPolicy(), nil)
	got := c.Classify(ctx, "/tmp/v1.mp4")
	require.True(t, got.IsReel())
	require.Equal(t, 1080, got.Width)
	require.Equal(t, 1920, got.Height)
	require.InDelta(t, 20.0, got.Duration, 1e-9)

	failing := New(stubProber{err: errors.New("ffprobe missing")}, DefaultPolicy(), nil)
	got = failing.Classify(ctx, "/tmp/v1.mp4")
	require.Equal(t, domain.ClassInvalid, got.Kind)
	require.Equal(t, domain.ReasonUnprobable, got.Reason)

	got = New(nil, DefaultPolicy(), nil).Classify(ctx, "/tmp/v1.mp4")
	require.Equal(t, domain.ReasonUnprobable, got.Reason)
}
