package config

import (
	"fmt"
	"math"
	"path/filepath"
	"strings"
)

// Format is an output container the encoder knows how to produce
type Format string

const (
	FormatMP4  Format = "mp4"  // MP4 (H.264/AAC)
	FormatMOV  Format = "mov"  // QuickTime (H.264/AAC)
	FormatAVI  Format = "avi"  // AVI (H.264/MP3)
	FormatMKV  Format = "mkv"  // Matroska (H.264/AAC)
	FormatWebM Format = "webm" // WebM (VP9/Opus)
	FormatFLV  Format = "flv"  // Flash Video (H.264/AAC)
)

// AvailableFormats returns all output formats in menu order
func AvailableFormats() []Format {
	return []Format{FormatMP4, FormatMOV, FormatAVI, FormatMKV, FormatWebM, FormatFLV}
}

// ParseFormat accepts a format name or extension, with or without a leading dot
func ParseFormat(s string) (Format, error) {
	f := Format(strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "."))
	if !f.Valid() {
		return "", fmt.Errorf("unknown output format %q", s)
	}
	return f, nil
}

// Valid reports whether f is one of AvailableFormats
func (f Format) Valid() bool {
	switch f {
	case FormatMP4, FormatMOV, FormatAVI, FormatMKV, FormatWebM, FormatFLV:
		return true
	}
	return false
}

// Ext returns the file extension without the dot
func (f Format) Ext() string {
	return string(f)
}

// Description returns a human-readable description of a format
func (f Format) Description() string {
	switch f {
	case FormatMOV:
		return "MOV (QuickTime)"
	case FormatAVI:
		return "AVI"
	case FormatMKV:
		return "MKV (Matroska)"
	case FormatWebM:
		return "WebM (VP9/Opus)"
	case FormatFLV:
		return "FLV (Flash Video)"
	default:
		return "MP4 (H.264)"
	}
}

// VideoCodec returns the ffmpeg video encoder used for f
func (f Format) VideoCodec() string {
	if f == FormatWebM {
		return "libvpx-vp9"
	}
	return "libx264"
}

// AudioCodec returns the ffmpeg audio encoder used for f
func (f Format) AudioCodec() string {
	switch f {
	case FormatWebM:
		return "libopus"
	case FormatAVI:
		return "libmp3lame"
	default:
		return "aac"
	}
}

// MuxerArgs returns the container flags appended to the final pass
func (f Format) MuxerArgs() []string {
	switch f {
	case FormatMP4:
		return []string{"-movflags", "+faststart", "-f", "mp4"}
	case FormatMOV:
		return []string{"-movflags", "+faststart", "-f", "mov"}
	case FormatAVI:
		return []string{"-f", "avi"}
	case FormatMKV:
		return []string{"-f", "matroska"}
	case FormatWebM:
		return []string{"-row-mt", "1", "-f", "webm"}
	case FormatFLV:
		return []string{"-f", "flv"}
	}
	return nil
}

// FormatForInput picks the output format for an input when none was chosen:
// the source container if it is writable, otherwise MP4.
func FormatForInput(path string) Format {
	f := Format(strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if f.Valid() {
		return f
	}
	return FormatMP4
}

// supportedInputs are the extensions accepted as sources
var supportedInputs = []string{
	".mp4", ".avi", ".mov", ".mkv", ".flv",
	".wmv", ".webm", ".m4v", ".mpeg", ".mpg",
}

// SupportedInputExtensions returns the accepted source extensions
func SupportedInputExtensions() []string {
	out := make([]string, len(supportedInputs))
	copy(out, supportedInputs)
	return out
}

// IsSupportedInput reports whether path has a supported source extension
func IsSupportedInput(path string) bool {
	ext := strings.ToLower(filepath.Ext(path))
	for _, s := range supportedInputs {
		if ext == s {
			return true
		}
	}
	return false
}

// Config holds the compressor settings
type Config struct {
	// FFmpegPath is the encoder binary (looked up on PATH when not absolute)
	FFmpegPath string
	// FFprobePath is the prober binary
	FFprobePath string
	// AudioKbps is the fixed audio bitrate. Audio quality is never traded for video.
	AudioKbps int
	// SafetyMargin scales the computed video bitrate so encoder overshoot
	// still lands under the target (0 < margin <= 1)
	SafetyMargin float64
	// MinVideoKbps is the lowest video bitrate a plan may carry
	MinVideoKbps int
	// ProgressWindow is the number of trailing samples used for ETA
	ProgressWindow int
	// LogFile receives the run log when the TUI owns the terminal
	LogFile string
	// LogLevel is a logrus level name
	LogLevel string
	// HistoryPath is the SQLite history database ("" = disabled)
	HistoryPath string
}

// Default returns the standard settings: 192 kbps audio and a 5% margin
func Default() Config {
	return Config{
		FFmpegPath:     "ffmpeg",
		FFprobePath:    "ffprobe",
		AudioKbps:      192,
		SafetyMargin:   0.95,
		MinVideoKbps:   1,
		ProgressWindow: 8,
		LogLevel:       "info",
	}
}

// Validate checks the settings for values the planner cannot work with
func (c Config) Validate() error {
	if c.FFmpegPath == "" {
		return fmt.Errorf("ffmpeg path is empty")
	}
	if c.FFprobePath == "" {
		return fmt.Errorf("ffprobe path is empty")
	}
	if c.AudioKbps <= 0 {
		return fmt.Errorf("audio bitrate must be positive, got %d", c.AudioKbps)
	}
	if math.IsNaN(c.SafetyMargin) || c.SafetyMargin <= 0 || c.SafetyMargin > 1 {
		return fmt.Errorf("safety margin must be in (0, 1], got %v", c.SafetyMargin)
	}
	if c.MinVideoKbps < 1 {
		return fmt.Errorf("minimum video bitrate must be at least 1 kbps, got %d", c.MinVideoKbps)
	}
	if c.ProgressWindow < 2 {
		return fmt.Errorf("progress window needs at least 2 samples, got %d", c.ProgressWindow)
	}
	return nil
}
