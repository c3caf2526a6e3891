package filesync

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// fakeUploader records mirrored operations.
type fakeUploader struct {
	mu      sync.Mutex
	uploads map[string][]byte
	deletes []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{uploads: make(map[string][]byte)}
}

func (u *fakeUploader) UploadFile(_ context.Context, _, relPath string, content []byte) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.uploads[relPath] = append([]byte(nil), content...)
	return nil
}

func (u *fakeUploader) DeleteFile(_ context.Context, _, relPath string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.deletes = append(u.deletes, relPath)
	return nil
}

func (u *fakeUploader) upload(relPath string) ([]byte, bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	content, ok := u.uploads[relPath]
	return content, ok
}

func (u *fakeUploader) deleted(relPath string) bool {
	u.mu.Lock()
	defer u.mu.Unlock()
	for _, p := range u.deletes {
		if p == relPath {
			return true
		}
	}
	return false
}

func startSyncer(t *testing.T, root string, uploader Uploader) *Syncer {
	t.Helper()
	s := New(Config{
		Root:         root,
		ProjectID:    "proj-1",
		SettleWindow: 50 * time.Millisecond,
	}, uploader, nil, nil)
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Stop)
	return s
}

func TestSyncerUploadsNewFile(t *testing.T) {
	root := t.TempDir()
	uploader := newFakeUploader()
	startSyncer(t, root, uploader)

	require.NoError(t, os.WriteFile(filepath.Join(root, "main.go"), []byte("package main"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := uploader.upload("main.go")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	content, _ := uploader.upload("main.go")
	assert.Equal(t, []byte("package main"), content)
}

func TestSyncerCoalescesWriteBursts(t *testing.T) {
	root := t.TempDir()
	uploader := newFakeUploader()
	startSyncer(t, root, uploader)

	path := filepath.Join(root, "burst.txt")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("v-final"), 0o644))
	}

	require.Eventually(t, func() bool {
		_, ok := uploader.upload("burst.txt")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	// The settled upload carries the final content.
	content, _ := uploader.upload("burst.txt")
	assert.Equal(t, []byte("v-final"), content)
}

func TestSyncerDeletesRemovedFile(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "doomed.txt")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))

	uploader := newFakeUploader()
	startSyncer(t, root, uploader)

	require.NoError(t, os.Remove(path))

	require.Eventually(t, func() bool {
		return uploader.deleted("doomed.txt")
	}, 3*time.Second, 20*time.Millisecond)
}

func TestSyncerIgnoresExcludedPaths(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(root, ".gitignore"), []byte("*.log\n"), 0o644))

	uploader := newFakeUploader()
	startSyncer(t, root, uploader)

	require.NoError(t, os.WriteFile(filepath.Join(root, "noise.log"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(root, "kept.txt"), []byte("y"), 0o644))

	require.Eventually(t, func() bool {
		_, ok := uploader.upload("kept.txt")
		return ok
	}, 3*time.Second, 20*time.Millisecond)

	_, ok := uploader.upload("noise.log")
	assert.False(t, ok)
}

func TestSyncerWatchesNewDirectories(t *testing.T) {
	root := t.TempDir()
	uploader := newFakeUploader()
	startSyncer(t, root, uploader)

	sub := filepath.Join(root, "pkg", "util")
	require.NoError(t, os.MkdirAll(sub, 0o755))
	// Give the watcher a beat to pick up the new directory before
	// writing into it.
	require.Eventually(t, func() bool {
		err := os.WriteFile(filepath.Join(sub, "util.go"), []byte("package util"), 0o644)
		if err != nil {
			return false
		}
		_, ok := uploader.upload(filepath.ToSlash(filepath.Join("pkg", "util", "util.go")))
		return ok
	}, 5*time.Second, 100*time.Millisecond)
}

func TestSyncerStopIsIdempotent(t *testing.T) {
	root := t.TempDir()
	uploader := newFakeUploader()
	s := New(Config{Root: root, ProjectID: "p"}, uploader, nil, nil)
	require.NoError(t, s.Start(context.Background()))

	assert.NotPanics(t, func() {
		s.Stop()
		s.Stop()
	})
}
