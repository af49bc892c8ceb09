package tui

import (
	"errors"
	"strings"
	"testing"
	"testing/quick"
	"time"

	"video-compressor/batch"
	"video-compressor/failure"
	"video-compressor/planner"
	"video-compressor/progress"
)

// For any non-negative file size, formatBytes returns a string with binary units
func TestFormatBytes_Property(t *testing.T) {
	f := func(size uint32) bool {
		result := formatBytes(int64(size))
		if result == "" {
			return false
		}
		for _, unit := range []string{" B", "KiB", "MiB", "GiB"} {
			if strings.HasSuffix(result, unit) {
				return true
			}
		}
		return false
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

// A running pass never shows 100% and never leaves the 0..99.9 range
func TestFormatPercentage_Property(t *testing.T) {
	f := func(fraction float64) bool {
		result := formatPercentage(fraction, false)
		return strings.HasSuffix(result, "%") && result != "100.0%"
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

// The whole-file fraction stays in [0, 1] and pass 2 is always at least half
func TestItemFraction_Property(t *testing.T) {
	f := func(raw uint16, second bool) bool {
		fraction := float64(raw) / 65535
		pass := 1
		if second {
			pass = 2
		}
		got := itemFraction(pass, fraction)
		if got < 0 || got > 1 {
			return false
		}
		return !second || got >= 0.5
	}
	if err := quick.Check(f, &quick.Config{MaxCount: 1000}); err != nil {
		t.Error(err)
	}
}

func TestFormatBytes_EdgeCases(t *testing.T) {
	tests := []struct {
		input    int64
		expected string
	}{
		{0, "0 B"},
		{1023, "1023 B"},
		{1024, "1.0 KiB"},
		{50 * 1024 * 1024, "50.0 MiB"},
		{1024 * 1024 * 1024, "1.0 GiB"},
	}

	for _, tc := range tests {
		if result := formatBytes(tc.input); result != tc.expected {
			t.Errorf("formatBytes(%d) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestFormatDuration_EdgeCases(t *testing.T) {
	tests := []struct {
		input    time.Duration
		expected string
	}{
		{-1, "—"},
		{0, "0:00"},
		{90 * time.Second, "1:30"},
		{5*time.Minute + 30*time.Second, "5:30"},
		{time.Hour + 30*time.Minute + 45*time.Second, "1:30:45"},
	}

	for _, tc := range tests {
		if result := formatDuration(tc.input); result != tc.expected {
			t.Errorf("formatDuration(%v) = %q, want %q", tc.input, result, tc.expected)
		}
	}
}

func TestFormatSpeed(t *testing.T) {
	tests := []struct {
		speed    float64
		expected string
	}{
		{0, "—"},
		{-1, "—"},
		{1.5, "1.50x"},
		{12.345, "12.35x"},
	}

	for _, tc := range tests {
		if result := formatSpeed(tc.speed); result != tc.expected {
			t.Errorf("formatSpeed(%v) = %q, want %q", tc.speed, result, tc.expected)
		}
	}
}

func TestFormatETADisplay(t *testing.T) {
	tests := []struct {
		eta       time.Duration
		available bool
		expected  string
	}{
		{-1, false, "—"},
		{time.Minute, false, "—"},
		{time.Minute, true, "1:00"},
		{time.Hour + time.Minute, true, "1:01:00"},
	}

	for _, tc := range tests {
		if result := formatETADisplay(tc.eta, tc.available); result != tc.expected {
			t.Errorf("formatETADisplay(%v, %v) = %q, want %q", tc.eta, tc.available, result, tc.expected)
		}
	}
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		fraction float64
		done     bool
		expected string
	}{
		{0, false, "0.0%"},
		{0.5, false, "50.0%"},
		{-0.1, false, "0.0%"},
		{1, false, "99.9%"},
		{1, true, "100.0%"},
	}

	for _, tc := range tests {
		if result := formatPercentage(tc.fraction, tc.done); result != tc.expected {
			t.Errorf("formatPercentage(%v, %v) = %q, want %q", tc.fraction, tc.done, result, tc.expected)
		}
	}
}

func TestFormatDelta(t *testing.T) {
	if got := formatDelta(-2048); got != "-2.0 KiB" {
		t.Errorf("formatDelta(-2048) = %q", got)
	}
	if got := formatDelta(0); got != "+0 B" {
		t.Errorf("formatDelta(0) = %q", got)
	}
}

func TestTruncatePath(t *testing.T) {
	tests := []struct {
		path     string
		maxLen   int
		expected string
	}{
		{"/short/path", 50, "/short/path"},
		{"/a/very/long/path/that/exceeds/the/maximum/length", 25, "/a/very/lo ... mum/length"},
		{"clip-with-a-long-name.mp4", 10, "clip-wi..."},
	}

	for _, tc := range tests {
		if result := truncatePath(tc.path, tc.maxLen); result != tc.expected {
			t.Errorf("truncatePath(%q, %d) = %q, want %q", tc.path, tc.maxLen, result, tc.expected)
		}
	}
}

func TestOverallFraction(t *testing.T) {
	s := batch.TrackerState{
		Items: []batch.Result{
			{Status: batch.StatusSucceeded},
			{Status: batch.StatusRunning},
			{Status: batch.StatusPending},
			{Status: batch.StatusPending},
		},
		Current:  1,
		Progress: progress.Snapshot{Pass: 2, Fraction: 0.5},
	}
	// one done plus three quarters of the second
	if got := overallFraction(s); got != 1.75/4 {
		t.Errorf("overallFraction = %v, want %v", got, 1.75/4)
	}
	if got := overallFraction(batch.TrackerState{Current: -1}); got != 0 {
		t.Errorf("empty batch fraction = %v", got)
	}
}

func TestDescribeResult(t *testing.T) {
	plan := &planner.Plan{VideoKbps: 1025, TargetSizeBytes: 50 << 20, Quality: planner.QualityGood}
	tests := []struct {
		r    batch.Result
		want string
	}{
		{batch.Result{Status: batch.StatusPending}, "waiting"},
		{batch.Result{Status: batch.StatusRunning}, "probing"},
		{batch.Result{Status: batch.StatusRunning, Plan: plan}, "1025 kbps video → 50.0 MiB"},
		{batch.Result{Status: batch.StatusSucceeded, OutputSizeBytes: 49 << 20, SizeDelta: -(1 << 20)}, "49.0 MiB (-1.0 MiB vs target)"},
		{batch.Result{Status: batch.StatusSucceeded, DryRun: true, Plan: plan}, "planned 1025 kbps video, quality " + planner.QualityGood.String()},
		{batch.Result{Status: batch.StatusFailed, Reason: failure.KindEncodeFailed, Err: errors.New("exit status 1")}, "EncodeFailed: exit status 1"},
	}
	for _, tt := range tests {
		if got := describeResult(tt.r); got != tt.want {
			t.Errorf("describeResult(%v) = %q, want %q", tt.r.Status, got, tt.want)
		}
	}
}

func TestSummaryLine(t *testing.T) {
	sum := batch.Summary{Total: 4, Succeeded: 3, Failed: 1}
	if got := summaryLine(sum, 5); got != "3 succeeded, 1 failed, 1 not run" {
		t.Errorf("summaryLine = %q", got)
	}
	dry := batch.Summary{Total: 2, Succeeded: 2, DryRun: 2}
	if got := summaryLine(dry, 2); got != "2 planned" {
		t.Errorf("dry-run summaryLine = %q", got)
	}
}

func TestPassLabel(t *testing.T) {
	if !strings.HasPrefix(passLabel(1), "Pass 1/2") || !strings.HasPrefix(passLabel(2), "Pass 2/2") {
		t.Errorf("pass labels = %q, %q", passLabel(1), passLabel(2))
	}
	if passLabel(0) != "Probing" {
		t.Errorf("passLabel(0) = %q", passLabel(0))
	}
}
