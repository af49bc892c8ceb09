package media

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-compressor/failure"
)

const sampleJSON = `{
  "streams": [
    {"codec_type": "video", "width": 1920, "height": 1080, "duration": "330.000000"},
    {"codec_type": "audio", "duration": "329.980000"},
    {"codec_type": "video", "width": 600, "height": 600, "disposition": {"attached_pic": 1}}
  ],
  "format": {"duration": "330.033000", "size": "157810688"}
}`

func writeFile(t *testing.T, name string, size int) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, make([]byte, size), 0o644))
	return path
}

func fixedRunner(out string, err error) RunFunc {
	return func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return []byte(out), err
	}
}

func TestParseJSON(t *testing.T) {
	info, err := ParseJSON([]byte(sampleJSON))
	require.NoError(t, err)
	assert.InDelta(t, 330.033, info.Duration, 1e-9)
	assert.Equal(t, 1920, info.Width)
	assert.Equal(t, 1080, info.Height)
	assert.True(t, info.HasAudio)
}

func TestParseJSON_StreamDurationFallback(t *testing.T) {
	info, err := ParseJSON([]byte(`{"streams":[{"codec_type":"video","height":720,"duration":"12.5"}],"format":{"duration":"N/A"}}`))
	require.NoError(t, err)
	assert.Equal(t, 12.5, info.Duration)
	assert.False(t, info.HasAudio)
}

func TestParseJSON_Errors(t *testing.T) {
	tests := map[string]string{
		"not json":      "garbage",
		"no duration":   `{"streams":[],"format":{}}`,
		"zero duration": `{"format":{"duration":"0"}}`,
		"negative":      `{"format":{"duration":"-3"}}`,
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := ParseJSON([]byte(doc))
			assert.ErrorIs(t, err, failure.ErrProbeFailed)
		})
	}
}

func TestProbe(t *testing.T) {
	path := writeFile(t, "clip.MP4", 4096)

	var gotArgs []string
	p := NewProber("ffprobe", nil).WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		gotArgs = append([]string{name}, args...)
		return []byte(sampleJSON), nil
	})

	info, err := p.Probe(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, path, info.Path)
	assert.Equal(t, int64(4096), info.SizeBytes)
	assert.InDelta(t, 330.033, info.Duration, 1e-9)
	assert.Equal(t, []string{"ffprobe", "-v", "quiet", "-print_format", "json", "-show_format", "-show_streams", path}, gotArgs)
}

func TestProbe_Failures(t *testing.T) {
	dir := t.TempDir()
	video := writeFile(t, "ok.mkv", 10)
	text := writeFile(t, "notes.txt", 10)

	tests := []struct {
		name string
		path string
		run  RunFunc
		want error
	}{
		{"missing", filepath.Join(dir, "nope.mp4"), fixedRunner(sampleJSON, nil), failure.ErrNotFound},
		{"directory", dir, fixedRunner(sampleJSON, nil), failure.ErrNotFound},
		{"extension", text, fixedRunner(sampleJSON, nil), failure.ErrUnsupportedFormat},
		{"ffprobe missing", video, fixedRunner("", &exec.Error{Name: "ffprobe", Err: exec.ErrNotFound}), failure.ErrEncoderNotFound},
		{"ffprobe path missing", video, fixedRunner("", &fs.PathError{Op: "fork/exec", Path: "/opt/bin/ffprobe", Err: fs.ErrNotExist}), failure.ErrEncoderNotFound},
		{"ffprobe failed", video, fixedRunner("", errors.New("exit status 1")), failure.ErrProbeFailed},
		{"corrupt", video, fixedRunner(`{"format":{}}`, nil), failure.ErrProbeFailed},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := NewProber("ffprobe", nil).WithRunner(tc.run).Probe(context.Background(), tc.path)
			assert.ErrorIs(t, err, tc.want)
		})
	}
}

func TestProbe_MissingAbsoluteBinary(t *testing.T) {
	video := writeFile(t, "ok.mp4", 10)
	binary := filepath.Join(t.TempDir(), "bin", "ffprobe")

	_, err := NewProber(binary, nil).Probe(context.Background(), video)
	assert.ErrorIs(t, err, failure.ErrEncoderNotFound)
}

func TestProbe_Cancelled(t *testing.T) {
	video := writeFile(t, "ok.mov", 10)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := NewProber("ffprobe", nil).WithRunner(func(ctx context.Context, name string, args ...string) ([]byte, error) {
		return nil, fmt.Errorf("signal: killed")
	})
	_, err := p.Probe(ctx, video)
	assert.ErrorIs(t, err, failure.ErrCancelled)
}
