package probe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"ReelsAutoposter/internal/domain"
	"ReelsAutoposter/internal/ports"
)

// Runner executes a command and returns its stdout.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

// FFProbe reads duration and resolution with the ffprobe binary.
type FFProbe struct {
	binary  string
	timeout time.Duration
	run     Runner
}

var _ ports.Prober = (*FFProbe)(nil)

// NewFFProbe uses binary (default "ffprobe") bounded by timeout.
func NewFFProbe(binary string, timeout time.Duration) *FFProbe {
	if binary == "" {
		binary = "ffprobe"
	}
	return &FFProbe{binary: binary, timeout: timeout, run: execRunner}
}

// WithRunner replaces the command runner.
func (p *FFProbe) WithRunner(run Runner) *FFProbe {
	p.run = run
	return p
}

// Probe returns the container duration and the first video stream size.
func (p *FFProbe) Probe(ctx context.Context, path string) (domain.ProbeResult, error) {
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	out, err := p.run(ctx, p.binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("%w: ffprobe %s: %v", domain.ErrProbeFailed, path, err)
	}

	result, err := parseOutput(out)
	if err != nil {
		return domain.ProbeResult{}, fmt.Errorf("%w: %s: %v", domain.ErrProbeFailed, path, err)
	}
	return result, nil
}

type ffprobeOutput struct {
	Format struct {
		Duration string `json:"duration"`
	} `json:"format"`
	Streams []struct {
		CodecType string `json:"codec_type"`
		Width     int    `json:"width"`
		Height    int    `json:"height"`
		Duration  string `json:"duration"`
	} `json:"streams"`
}

func parseOutput(out []byte) (domain.ProbeResult, error) {
	var parsed ffprobeOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return domain.ProbeResult{}, fmt.Errorf("parse ffprobe output: %w", err)
	}

	var result domain.ProbeResult
	streamDuration := ""
	for _, s := range parsed.Streams {
		if s.CodecType == "video" {
			result.Width = s.Width
			result.Height = s.Height
			streamDuration = s.Duration
			break
		}
	}
	if result.Width <= 0 || result.Height <= 0 {
		return domain.ProbeResult{}, fmt.Errorf("no video stream with dimensions")
	}

	raw := parsed.Format.Duration
	if raw == "" || raw == "N/A" {
		raw = streamDuration
	}
	dur, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || dur <= 0 {
		return domain.ProbeResult{}, fmt.Errorf("invalid duration %q", raw)
	}
	result.Duration = dur
	return result, nil
}

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("%w: %s", err, strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}
