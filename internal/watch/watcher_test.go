package watch

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func testOptions() Options {
	return Options{
		Extensions: []string{".txt", "md"},
		Debounce:   50 * time.Millisecond,
		Logger:     zerolog.Nop(),
	}
}

func waitFor(t *testing.T, ch <-chan []string) []string {
	t.Helper()
	select {
	case files := <-ch:
		return files
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for callback")
		return nil
	}
}

func TestWatcher_DebouncesAndFilters(t *testing.T) {
	dir := t.TempDir()
	got := make(chan []string, 4)

	w, err := New([]string{dir}, func(files []string) { got <- files }, testOptions())
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "ignored.png"), []byte("x"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.md"), []byte("b"), 0644))

	files := waitFor(t, got)
	assert.Contains(t, files, filepath.Join(dir, "a.txt"))
	assert.NotContains(t, files, filepath.Join(dir, "ignored.png"))
}

func TestWatcher_NewDirectoryIsWatched(t *testing.T) {
	dir := t.TempDir()
	got := make(chan []string, 8)

	w, err := New([]string{dir}, func(files []string) { got <- files }, testOptions())
	require.NoError(t, err)
	defer w.Close()

	sub := filepath.Join(dir, "20240101_000000")
	require.NoError(t, os.Mkdir(sub, 0755))
	files := waitFor(t, got)
	assert.Contains(t, files, sub)

	require.NoError(t, os.WriteFile(filepath.Join(sub, "git_log.txt"), []byte("log"), 0644))
	files = waitFor(t, got)
	assert.Contains(t, files, filepath.Join(sub, "git_log.txt"))
}

func TestWatcher_MissingPathIsSkipped(t *testing.T) {
	w, err := New([]string{filepath.Join(t.TempDir(), "absent")}, func([]string) {}, testOptions())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.NoError(t, w.Close(), "Close is idempotent")
}

func TestRun_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)

	go func() {
		done <- Run(ctx, []string{t.TempDir()}, func([]string) {}, testOptions())
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_CallbacksNeverOverlap(t *testing.T) {
	dir := t.TempDir()
	opts := testOptions()
	opts.Debounce = 20 * time.Millisecond

	var (
		mu       sync.Mutex
		active   int
		peak     int
		finished = make(chan struct{}, 4)
	)
	slowRebuild := func([]string) {
		mu.Lock()
		active++
		peak = max(peak, active)
		mu.Unlock()

		time.Sleep(400 * time.Millisecond)

		mu.Lock()
		active--
		mu.Unlock()
		finished <- struct{}{}
	}

	w, err := New([]string{dir}, slowRebuild, opts)
	require.NoError(t, err)
	defer w.Close()

	require.NoError(t, os.WriteFile(filepath.Join(dir, "a.txt"), []byte("a"), 0644))
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b.txt"), []byte("b"), 0644))

	for range 2 {
		select {
		case <-finished:
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for rebuilds")
		}
	}

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, peak, "rebuilds ran concurrently")
}
