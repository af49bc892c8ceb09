package planner

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"time"

	"video-compressor/config"
	"video-compressor/failure"
	"video-compressor/media"
)

const (
	// SafetyMargin is the default fraction of the computed video bitrate kept
	SafetyMargin = 0.95
	// MinVideoKbps is the default bitrate floor; below it a plan is TargetTooSmall
	MinVideoKbps = 1
	// tightFactor flags plans whose target is within 10% of the audio size
	tightFactor = 1.1

	bytesPerMB      = 1024 * 1024
	timestampLayout = "2006-01-02-15-04-05"
)

// Plan is the encode budget for one file
type Plan struct {
	InputPath       string
	OutputPath      string
	Format          config.Format
	TargetSizeBytes int64
	SourceSizeBytes int64
	Duration        float64
	AudioKbps       int
	VideoKbps       int
	HasAudio        bool
	Quality         Quality
	// Tight is set when audio alone takes more than ~90% of the target
	Tight bool
}

// Planner computes plans. The zero value is not usable; call New.
type Planner struct {
	Margin       float64
	MinVideoKbps int
	// Now stamps output names; replaceable for tests
	Now func() time.Time
}

// New creates a planner using the margin and floor from cfg
func New(cfg config.Config) *Planner {
	margin := cfg.SafetyMargin
	if margin <= 0 || margin > 1 {
		margin = SafetyMargin
	}
	floor := cfg.MinVideoKbps
	if floor < MinVideoKbps {
		floor = MinVideoKbps
	}
	return &Planner{Margin: margin, MinVideoKbps: floor, Now: time.Now}
}

// Plan builds the compression plan for info at targetBytes
func (p *Planner) Plan(info media.Info, targetBytes int64, audioKbps int, format config.Format) (Plan, error) {
	if targetBytes <= 0 {
		return Plan{}, fmt.Errorf("target size %d bytes: %w", targetBytes, failure.ErrInvalidInput)
	}
	if !format.Valid() {
		return Plan{}, fmt.Errorf("output format %q: %w", format, failure.ErrInvalidInput)
	}
	if targetBytes >= info.SizeBytes {
		return Plan{}, fmt.Errorf("target %.2f MB, current %.2f MB: %w",
			BytesToMB(targetBytes), BytesToMB(info.SizeBytes), failure.ErrTargetTooLarge)
	}

	kbps, err := VideoKbps(targetBytes, info.Duration, audioKbps, p.Margin)
	if err != nil {
		return Plan{}, err
	}
	if kbps < p.MinVideoKbps {
		return Plan{}, fmt.Errorf("video bitrate %d kbps below %d kbps floor: %w",
			kbps, p.MinVideoKbps, failure.ErrTargetTooSmall)
	}

	now := time.Now
	if p.Now != nil {
		now = p.Now
	}

	return Plan{
		InputPath:       info.Path,
		OutputPath:      OutputPath(info.Path, targetBytes, now(), format),
		Format:          format,
		TargetSizeBytes: targetBytes,
		SourceSizeBytes: info.SizeBytes,
		Duration:        info.Duration,
		AudioKbps:       audioKbps,
		VideoKbps:       kbps,
		HasAudio:        info.HasAudio,
		Quality:         EstimateQuality(kbps, info.Height),
		Tight:           float64(targetBytes) < AudioBytes(audioKbps, info.Duration)*tightFactor,
	}, nil
}

// AudioBytes is the size of audioKbps of audio over duration seconds
func AudioBytes(audioKbps int, duration float64) float64 {
	return float64(audioKbps) * 1000 / 8 * duration
}

// VideoKbps computes the video bitrate that fills targetBytes after audio,
// truncated to whole kbps.
func VideoKbps(targetBytes int64, duration float64, audioKbps int, margin float64) (int, error) {
	if targetBytes <= 0 {
		return 0, fmt.Errorf("target size %d bytes: %w", targetBytes, failure.ErrInvalidInput)
	}
	if math.IsNaN(duration) || math.IsInf(duration, 0) || duration <= 0 {
		return 0, fmt.Errorf("duration %v: %w", duration, failure.ErrInvalidInput)
	}
	if audioKbps <= 0 {
		return 0, fmt.Errorf("audio bitrate %d kbps: %w", audioKbps, failure.ErrInvalidInput)
	}
	if math.IsNaN(margin) || margin <= 0 || margin > 1 {
		return 0, fmt.Errorf("safety margin %v: %w", margin, failure.ErrInvalidInput)
	}

	audio := AudioBytes(audioKbps, duration)
	if float64(targetBytes) <= audio {
		return 0, fmt.Errorf("audio alone needs %.2f MB: %w", audio/bytesPerMB, failure.ErrTargetTooSmall)
	}

	video := (float64(targetBytes) - audio) / duration * 8 / 1000 * margin
	return int(math.Floor(video)), nil
}

// MBToBytes converts a size in binary megabytes to bytes
func MBToBytes(mb float64) (int64, error) {
	if math.IsNaN(mb) || math.IsInf(mb, 0) || mb <= 0 {
		return 0, fmt.Errorf("size %v MB: %w", mb, failure.ErrInvalidInput)
	}
	b := mb * bytesPerMB
	if b >= math.MaxInt64 {
		return 0, fmt.Errorf("size %v MB: %w", mb, failure.ErrInvalidInput)
	}
	return int64(math.Round(b)), nil
}

// BytesToMB converts bytes to binary megabytes
func BytesToMB(b int64) float64 {
	return float64(b) / bytesPerMB
}

// OutputName is <stem>--compressed--<size>MB--<timestamp>.<ext>
func OutputName(stem string, targetBytes int64, ts time.Time, format config.Format) string {
	return fmt.Sprintf("%s--compressed--%.1fMB--%s.%s",
		stem, BytesToMB(targetBytes), ts.Format(timestampLayout), format.Ext())
}

// OutputPath places OutputName next to the input file
func OutputPath(input string, targetBytes int64, ts time.Time, format config.Format) string {
	base := filepath.Base(input)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(filepath.Dir(input), OutputName(stem, targetBytes, ts, format))
}

// Reduction is the fraction of the source size the target removes
func (p Plan) Reduction() float64 {
	if p.SourceSizeBytes <= 0 {
		return 0
	}
	return 1 - float64(p.TargetSizeBytes)/float64(p.SourceSizeBytes)
}
