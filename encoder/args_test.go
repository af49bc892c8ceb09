package encoder

import (
	"os"
	"slices"
	"testing"

	"video-compressor/config"
	"video-compressor/planner"
)

func argsPlan(format config.Format, audio bool) planner.Plan {
	return planner.Plan{
		InputPath:  "in.mkv",
		OutputPath: "out." + format.Ext(),
		Format:     format,
		AudioKbps:  128,
		VideoKbps:  1025,
		HasAudio:   audio,
	}
}

// valueAfter returns the argument following flag, or "" when absent
func valueAfter(args []string, flag string) string {
	i := slices.Index(args, flag)
	if i < 0 || i+1 >= len(args) {
		return ""
	}
	return args[i+1]
}

func TestPass1Args(t *testing.T) {
	args := passArgs(argsPlan(config.FormatMP4, true), 1, "/tmp/x/ffmpeg2pass")

	want := map[string]string{
		"-progress":    "pipe:1",
		"-i":           "in.mkv",
		"-c:v":         "libx264",
		"-b:v":         "1025k",
		"-pass":        "1",
		"-passlogfile": "/tmp/x/ffmpeg2pass",
		"-f":           "null",
	}
	for flag, v := range want {
		if got := valueAfter(args, flag); got != v {
			t.Errorf("%s = %q, want %q", flag, got, v)
		}
	}
	if !slices.Contains(args, "-an") {
		t.Error("pass 1 should drop audio")
	}
	if slices.Contains(args, "-c:a") {
		t.Error("pass 1 should not encode audio")
	}
	if args[len(args)-1] != os.DevNull {
		t.Errorf("pass 1 output = %q, want %q", args[len(args)-1], os.DevNull)
	}
}

func TestPass2Args(t *testing.T) {
	args := passArgs(argsPlan(config.FormatMP4, true), 2, "/tmp/x/ffmpeg2pass")

	if got := valueAfter(args, "-pass"); got != "2" {
		t.Errorf("-pass = %q", got)
	}
	if got := valueAfter(args, "-c:a"); got != "aac" {
		t.Errorf("-c:a = %q", got)
	}
	if got := valueAfter(args, "-b:a"); got != "128k" {
		t.Errorf("-b:a = %q", got)
	}
	if got := valueAfter(args, "-movflags"); got != "+faststart" {
		t.Errorf("-movflags = %q", got)
	}
	if slices.Contains(args, "-an") {
		t.Error("pass 2 with audio should keep audio")
	}
	if args[len(args)-1] != "out.mp4" {
		t.Errorf("output = %q", args[len(args)-1])
	}
}

func TestPass2ArgsWithoutAudio(t *testing.T) {
	args := passArgs(argsPlan(config.FormatMKV, false), 2, "p")
	if !slices.Contains(args, "-an") {
		t.Error("silent source should be encoded with -an")
	}
	if slices.Contains(args, "-c:a") {
		t.Error("silent source should not name an audio codec")
	}
	if got := valueAfter(args, "-f"); got != "matroska" {
		t.Errorf("-f = %q", got)
	}
}

func TestPass2ArgsWebM(t *testing.T) {
	args := passArgs(argsPlan(config.FormatWebM, true), 2, "p")
	if got := valueAfter(args, "-c:v"); got != "libvpx-vp9" {
		t.Errorf("-c:v = %q", got)
	}
	if got := valueAfter(args, "-c:a"); got != "libopus" {
		t.Errorf("-c:a = %q", got)
	}
}
