package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"video-compressor/batch"
	"video-compressor/config"
	"video-compressor/failure"
	"video-compressor/history"
	"video-compressor/logging"
)

func TestLoadItemsFromPaths(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"b.mp4", "a.mov", "readme.txt"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	items, err := loadItems("", 50, "webm", []string{dir})
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, filepath.Join(dir, "a.mov"), items[0].Path)
	assert.Equal(t, batch.Target{SizeMB: 50, Format: config.FormatWebM}, items[1].Target)
}

func TestLoadItemsErrors(t *testing.T) {
	_, err := loadItems("", 50, "", nil)
	assert.ErrorIs(t, err, errUsage)

	_, err = loadItems("", 0, "", []string{"a.mp4"})
	assert.Error(t, err)

	_, err = loadItems("", 50, "gif", []string{"a.mp4"})
	assert.Error(t, err)

	_, err = loadItems("batch.yaml", 0, "", []string{"a.mp4"})
	assert.Error(t, err)

	_, err = loadItems("", 50, "", []string{t.TempDir()})
	assert.Error(t, err, "empty directory")
}

func TestLoadItemsFromManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "batch.yaml")
	require.NoError(t, os.WriteFile(path, []byte("defaults:\n  size_mb: 25\nfiles:\n  - path: talk.mov\n  - path: clip.mkv\n    size_mb: 8\n    format: webm\n"), 0o644))

	items, err := loadItems(path, 0, "", nil)
	require.NoError(t, err)
	assert.Equal(t, []batch.Item{
		{Path: filepath.Join(dir, "talk.mov"), Target: batch.Target{SizeMB: 25}},
		{Path: filepath.Join(dir, "clip.mkv"), Target: batch.Target{SizeMB: 8, Format: config.FormatWebM}},
	}, items)
}

func TestExitCode(t *testing.T) {
	log := logging.Discard()
	items := make([]batch.Item, 3)
	ok := batch.Result{Status: batch.StatusSucceeded}
	failed := batch.Result{Status: batch.StatusFailed, Reason: failure.KindEncodeFailed}
	cancelled := batch.Result{Status: batch.StatusFailed, Reason: failure.KindCancelled}

	assert.Equal(t, exitOK, exitCode(items, []batch.Result{ok, ok, ok}, log))
	assert.Equal(t, exitFailed, exitCode(items, []batch.Result{ok, failed, ok}, log))
	assert.Equal(t, exitCancelled, exitCode(items, []batch.Result{ok, cancelled}, log))
	assert.Equal(t, exitFailed, exitCode(items, []batch.Result{ok}, log))
}

func TestPrintHistory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.Open(path)
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, store.Record(ctx, "run-1", batch.Result{Path: "/v/a.mp4", Status: batch.StatusSucceeded}))
	require.NoError(t, store.Record(ctx, "run-2", batch.Result{Path: "/v/b.mp4", Status: batch.StatusSucceeded}))
	require.NoError(t, store.Close())

	assert.Equal(t, exitOK, printHistory(path, 0, "run-1"))
	assert.Equal(t, exitOK, printHistory(path, 5, ""))
	assert.Equal(t, exitUsage, printHistory("", 5, ""))
}
