// Package watch re-runs a callback when files under the context directories
// change, coalescing bursts of events.
package watch

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce is the quiet period before the callback fires.
const DefaultDebounce = 500 * time.Millisecond

// Callback receives the changed paths, sorted.
type Callback func(changed []string)

// Watcher watches directories for changes to files with given extensions.
type Watcher struct {
	watcher  *fsnotify.Watcher
	callback Callback
	exts     map[string]struct{}
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	pending map[string]struct{}
	// callbackMu keeps at most one callback running.
	callbackMu sync.Mutex
	timer      *time.Timer
	stopCh     chan struct{}
	doneCh     chan struct{}
	stopped    bool
	running    sync.WaitGroup
}

// Options configures a Watcher.
type Options struct {
	// Extensions filters events by file extension; empty accepts all files.
	Extensions []string
	Debounce   time.Duration
	Logger     zerolog.Logger
}

// New starts watching paths. Paths that cannot be watched are logged and
// skipped. New directories created directly under a watched path are added.
func New(paths []string, callback Callback, opts Options) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		watcher:  fw,
		callback: callback,
		exts:     make(map[string]struct{}, len(opts.Extensions)),
		debounce: opts.Debounce,
		logger:   opts.Logger,
		pending:  make(map[string]struct{}),
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	if w.debounce <= 0 {
		w.debounce = DefaultDebounce
	}
	for _, ext := range opts.Extensions {
		ext = strings.ToLower(ext)
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		w.exts[ext] = struct{}{}
	}

	for _, p := range paths {
		if err := fw.Add(p); err != nil {
			w.logger.Warn().Err(err).Str("path", p).Msg("watch: failed to watch path")
		} else {
			w.logger.Debug().Str("path", p).Msg("watch: watching path")
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer close(w.doneCh)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error().Err(err).Msg("watch: watcher error")

		case <-w.stopCh:
			return
		}
	}
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
		return
	}
	if event.Op&fsnotify.Create != 0 && isDir(event.Name) {
		if err := w.watcher.Add(event.Name); err == nil {
			w.logger.Debug().Str("path", event.Name).Msg("watch: watching new directory")
		}
		w.addPending(event.Name)
		return
	}
	if !w.accepts(event.Name) {
		return
	}
	w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("watch: file changed")
	w.addPending(event.Name)
}

func (w *Watcher) accepts(path string) bool {
	if len(w.exts) == 0 {
		return true
	}
	_, ok := w.exts[strings.ToLower(filepath.Ext(path))]
	return ok
}

// addPending adds a file to the pending set and resets the debounce timer.
func (w *Watcher) addPending(file string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stopped {
		return
	}

	w.pending[file] = struct{}{}
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.firePending)
}

// firePending invokes the callback with all pending files.
func (w *Watcher) firePending() {
	w.mu.Lock()
	if w.stopped || len(w.pending) == 0 {
		w.mu.Unlock()
		return
	}
	files := make([]string, 0, len(w.pending))
	for f := range w.pending {
		files = append(files, f)
	}
	w.pending = make(map[string]struct{})
	w.running.Add(1)
	w.mu.Unlock()
	defer w.running.Done()

	w.callbackMu.Lock()
	defer w.callbackMu.Unlock()

	sort.Strings(files)
	w.logger.Info().Int("files", len(files)).Msg("watch: change detected")
	w.callback(files)
}

// Close stops the watcher and waits for a running callback to return.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.stopped {
		w.mu.Unlock()
		return nil
	}
	w.stopped = true
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	close(w.stopCh)
	err := w.watcher.Close()
	<-w.doneCh
	w.running.Wait()
	return err
}

// Run watches paths until ctx is cancelled.
func Run(ctx context.Context, paths []string, callback Callback, opts Options) error {
	w, err := New(paths, callback, opts)
	if err != nil {
		return err
	}
	<-ctx.Done()
	return w.Close()
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
