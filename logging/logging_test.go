package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWritesToFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "app.log")

	log, closer, err := New(path, "info")
	require.NoError(t, err)

	Component(log, "batch").WithField("file", "clip.mp4").Info("encode complete")
	log.Debug("hidden at info level")
	require.NoError(t, closer.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.Contains(t, out, `msg="encode complete"`)
	assert.Contains(t, out, "component=batch")
	assert.Contains(t, out, "file=clip.mp4")
	assert.NotContains(t, out, "hidden at info level")
}

func TestNewAppends(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.log")
	for _, msg := range []string{"first", "second"} {
		log, closer, err := New(path, "info")
		require.NoError(t, err)
		log.Info(msg)
		require.NoError(t, closer.Close())
	}
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "first")
	assert.Contains(t, string(data), "second")
}

func TestNewStderr(t *testing.T) {
	log, closer, err := New("", "debug")
	require.NoError(t, err)
	assert.Equal(t, os.Stderr, log.Out)
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.NoError(t, closer.Close())
}

func TestNewBadLevel(t *testing.T) {
	_, _, err := New("", "loud")
	assert.Error(t, err)
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, DefaultFile, filepath.Base(DefaultPath()))
}
