package batch

import (
	"time"

	"github.com/google/uuid"

	"video-compressor/config"
	"video-compressor/failure"
	"video-compressor/media"
	"video-compressor/planner"
)

// Target is the requested output for one file. An empty Format keeps the
// source container when it can be written, otherwise mp4.
type Target struct {
	SizeMB float64
	Format config.Format
}

// Item is one file of a batch with its fully formed target
type Item struct {
	Path   string
	Target Target
}

// Shared gives every path the same target
func Shared(paths []string, target Target) []Item {
	items := make([]Item, len(paths))
	for i, p := range paths {
		items[i] = Item{Path: p, Target: target}
	}
	return items
}

// FromManifest converts resolved manifest entries to items
func FromManifest(entries []config.Entry) []Item {
	items := make([]Item, len(entries))
	for i, e := range entries {
		items[i] = Item{Path: e.Path, Target: Target{SizeMB: e.SizeMB, Format: e.Format}}
	}
	return items
}

// Session carries the settings of one batch invocation
type Session struct {
	Config config.Config
	DryRun bool
	RunID  string
}

// NewSession creates a session with a fresh run ID
func NewSession(cfg config.Config, dryRun bool) Session {
	return Session{Config: cfg, DryRun: dryRun, RunID: uuid.NewString()}
}

// Status of a batch item
type Status int

const (
	StatusPending Status = iota
	StatusRunning
	StatusSucceeded
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusRunning:
		return "running"
	case StatusSucceeded:
		return "succeeded"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the status is final
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed
}

// Result is the outcome of one item
type Result struct {
	Index int
	Path  string
	Info  *media.Info
	Plan  *planner.Plan

	Status Status
	Reason failure.Kind
	Err    error

	OutputPath      string
	OutputSizeBytes int64
	// SizeDelta is output size minus target size; negative means under target
	SizeDelta int64

	Started  time.Time
	Finished time.Time
	DryRun   bool
}

// Duration is the wall time spent on the item
func (r Result) Duration() time.Duration {
	if r.Started.IsZero() || r.Finished.IsZero() {
		return 0
	}
	return r.Finished.Sub(r.Started)
}
