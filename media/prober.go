package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"os/exec"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"video-compressor/config"
	"video-compressor/failure"
)

// Info is the result of probing one file. It is not modified after Probe returns.
type Info struct {
	Path      string
	Duration  float64 // seconds
	SizeBytes int64
	Width     int
	Height    int
	HasAudio  bool
}

// RunFunc executes a command and returns its stdout
type RunFunc func(ctx context.Context, name string, args ...string) ([]byte, error)

func execOutput(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).Output()
}

// Prober runs ffprobe against source files
type Prober struct {
	Binary string
	Log    logrus.FieldLogger
	run    RunFunc
}

// NewProber creates a prober that invokes binary (usually "ffprobe")
func NewProber(binary string, log logrus.FieldLogger) *Prober {
	return &Prober{Binary: binary, Log: log, run: execOutput}
}

// WithRunner replaces the command runner; used by tests
func (p *Prober) WithRunner(run RunFunc) *Prober {
	p.run = run
	return p
}

// Probe validates path and reads its duration and stream layout
func (p *Prober) Probe(ctx context.Context, path string) (Info, error) {
	fi, err := os.Stat(path)
	if err != nil || !fi.Mode().IsRegular() {
		return Info{}, fmt.Errorf("%s: %w", path, failure.ErrNotFound)
	}
	if !config.IsSupportedInput(path) {
		return Info{}, fmt.Errorf("%s: %w", path, failure.ErrUnsupportedFormat)
	}

	out, err := p.run(ctx, p.Binary,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format", "-show_streams",
		path,
	)
	if err != nil {
		// a bare name missing from PATH gives ErrNotFound, a missing path gives ErrNotExist
		if errors.Is(err, exec.ErrNotFound) || errors.Is(err, fs.ErrNotExist) {
			return Info{}, fmt.Errorf("%s: %w", p.Binary, failure.ErrEncoderNotFound)
		}
		if ctx.Err() != nil {
			return Info{}, fmt.Errorf("ffprobe %q: %w", path, failure.ErrCancelled)
		}
		return Info{}, fmt.Errorf("ffprobe %q: %v: %w", path, err, failure.ErrProbeFailed)
	}

	info, err := ParseJSON(out)
	if err != nil {
		return Info{}, fmt.Errorf("%s: %w", path, err)
	}
	info.Path = path
	info.SizeBytes = fi.Size()

	if p.Log != nil {
		p.Log.WithFields(logrus.Fields{
			"file":     path,
			"duration": info.Duration,
			"size":     info.SizeBytes,
			"height":   info.Height,
		}).Debug("probed")
	}
	return info, nil
}

// --- ffprobe JSON wire types ---

type ffprobeOutput struct {
	Format  ffprobeFormat   `json:"format"`
	Streams []ffprobeStream `json:"streams"`
}

type ffprobeFormat struct {
	Duration string `json:"duration"`
	Size     string `json:"size"`
}

type ffprobeStream struct {
	CodecType   string         `json:"codec_type"`
	Width       int            `json:"width"`
	Height      int            `json:"height"`
	Duration    string         `json:"duration"`
	Disposition map[string]int `json:"disposition"`
}

// ParseJSON converts raw ffprobe output into an Info without Path and
// SizeBytes. The container duration is preferred; the longest stream
// duration is the fallback.
func ParseJSON(data []byte) (Info, error) {
	var raw ffprobeOutput
	if err := json.Unmarshal(data, &raw); err != nil {
		return Info{}, fmt.Errorf("parse ffprobe JSON: %v: %w", err, failure.ErrProbeFailed)
	}

	var info Info
	info.Duration = parseSeconds(raw.Format.Duration)

	var streamDur float64
	for _, s := range raw.Streams {
		if d := parseSeconds(s.Duration); d > streamDur {
			streamDur = d
		}
		switch s.CodecType {
		case "video":
			if s.Disposition["attached_pic"] == 1 || info.Height > 0 {
				continue
			}
			info.Width = s.Width
			info.Height = s.Height
		case "audio":
			info.HasAudio = true
		}
	}
	if info.Duration <= 0 {
		info.Duration = streamDur
	}
	if info.Duration <= 0 {
		return Info{}, fmt.Errorf("no duration in ffprobe output: %w", failure.ErrProbeFailed)
	}
	return info, nil
}

func parseSeconds(s string) float64 {
	s = strings.TrimSpace(s)
	if s == "" || s == "N/A" {
		return 0
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < 0 {
		return 0
	}
	return f
}
