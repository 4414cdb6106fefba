package audio

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-audio/wav"

	"github.com/himanishpuri/KaraokeScore/pkg/karaoke/errs"
)

// Prober measures the total duration of an audio buffer in seconds.
type Prober interface {
	Duration(ctx context.Context, data []byte) (float64, error)
}

var (
	_ Prober = (*FFProbe)(nil)
	_ Prober = WAVProber{}
)

const defaultProbeTimeout = 10 * time.Second

// FFProbe reads container duration with ffprobe.
type FFProbe struct {
	binary  string
	tempDir string
	runner  CommandRunner
}

// ProbeOption configures an FFProbe.
type ProbeOption func(*FFProbe)

// WithProbeBinary overrides the ffprobe executable.
func WithProbeBinary(path string) ProbeOption {
	return func(p *FFProbe) {
		p.binary = path
	}
}

// WithProbeTempDir sets where the scoped input file is written.
func WithProbeTempDir(dir string) ProbeOption {
	return func(p *FFProbe) {
		p.tempDir = dir
	}
}

// WithProbeRunner replaces command execution.
func WithProbeRunner(r CommandRunner) ProbeOption {
	return func(p *FFProbe) {
		p.runner = r
	}
}

func NewFFProbe(opts ...ProbeOption) *FFProbe {
	p := &FFProbe{
		binary: "ffprobe",
		runner: DefaultRunner(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Duration writes data to a scoped temp file, probes it and removes the file on every path.
func (p *FFProbe) Duration(ctx context.Context, data []byte) (float64, error) {
	out, err := p.run(ctx, data, "-show_format")
	if err != nil {
		return 0, err
	}
	seconds, err := parseFFProbeDuration(out)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrProbe, err)
	}
	return seconds, nil
}

// run invokes ffprobe on a scoped copy of data and returns its JSON output.
func (p *FFProbe) run(ctx context.Context, data []byte, show ...string) ([]byte, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty buffer", errs.ErrProbe)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultProbeTimeout)
		defer cancel()
	}

	var out []byte
	err := WithTempScope(p.tempDir, "karaoke-probe-*", func(scope *TempScope) error {
		in, err := scope.WriteFile("input", data)
		if err != nil {
			return err
		}

		args := append([]string{"-v", "quiet", "-print_format", "json"}, show...)
		out, err = p.runner.Output(ctx, p.binary, append(args, in)...)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrProbe, err)
	}
	return out, nil
}

func parseFFProbeDuration(out []byte) (float64, error) {
	var probe ffprobeOutput
	if err := json.Unmarshal(out, &probe); err != nil {
		return 0, fmt.Errorf("parsing ffprobe output: %w", err)
	}
	raw := strings.TrimSpace(probe.Format.Duration)
	if raw == "" || raw == "N/A" {
		return 0, errors.New("ffprobe reported no duration")
	}
	d, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing duration %q: %w", raw, err)
	}
	return d, nil
}

// WAVProber reads duration straight from a RIFF/WAVE header. No external tool needed.
type WAVProber struct{}

func (WAVProber) Duration(_ context.Context, data []byte) (float64, error) {
	d := wav.NewDecoder(bytes.NewReader(data))
	if !d.IsValidFile() {
		return 0, fmt.Errorf("%w: not a valid WAV file", errs.ErrProbe)
	}
	dur, err := d.Duration()
	if err != nil {
		return 0, fmt.Errorf("%w: %v", errs.ErrProbe, err)
	}
	return dur.Seconds(), nil
}
