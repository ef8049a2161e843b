// Package watch monitors an inbox directory for new video files and feeds
// them into the processing queue.
package watch

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// settleDelay is how long a file must be quiet before it is considered fully
// copied. Video files arrive over seconds, not milliseconds, so this is
// deliberately longer than a typical fsnotify debounce.
const settleDelay = 2 * time.Second

// EnqueueFunc hands a settled video file to the processing queue. It returns
// false when the queue is full.
type EnqueueFunc func(path string) bool

// Status is a snapshot of the watcher for the health endpoint.
type Status struct {
	Status        string `json:"status"` // starting, scanning, watching, stopped
	InboxDir      string `json:"inbox_dir"`
	FilesEnqueued int64  `json:"files_enqueued"`
	FilesSkipped  int64  `json:"files_skipped"`
}

// Watcher monitors the inbox directory for new video files. Events are
// debounced per file so a video still being copied in is not enqueued until
// writes stop.
type Watcher struct {
	inboxDir string
	enqueue  EnqueueFunc
	settle   time.Duration
	log      zerolog.Logger

	watcher *fsnotify.Watcher
	ctx     context.Context
	cancel  context.CancelFunc

	// Coalesce rapid Create+Write events on the same file.
	debounceMu     sync.Mutex
	debounceTimers map[string]*time.Timer

	filesEnqueued atomic.Int64
	filesSkipped  atomic.Int64
	status        atomic.Value // string
}

// videoExts are the file extensions treated as video input.
var videoExts = map[string]bool{
	".mp4":  true,
	".m4v":  true,
	".mov":  true,
	".avi":  true,
	".mkv":  true,
	".webm": true,
}

// New creates a watcher over inboxDir. Settled video files are passed to
// enqueue.
func New(inboxDir string, enqueue EnqueueFunc, log zerolog.Logger) *Watcher {
	ctx, cancel := context.WithCancel(context.Background())
	w := &Watcher{
		inboxDir:       inboxDir,
		enqueue:        enqueue,
		settle:         settleDelay,
		log:            log.With().Str("component", "watcher").Logger(),
		ctx:            ctx,
		cancel:         cancel,
		debounceTimers: make(map[string]*time.Timer),
	}
	w.status.Store("starting")
	return w
}

// Start initializes the fsnotify watcher and begins watching. Videos already
// sitting in the inbox are enqueued oldest-first in a background scan.
func (w *Watcher) Start() error {
	if err := os.MkdirAll(w.inboxDir, 0o755); err != nil {
		return err
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	w.watcher = fsw

	if err := fsw.Add(w.inboxDir); err != nil {
		fsw.Close()
		return err
	}

	w.log.Info().Str("inbox", w.inboxDir).Msg("inbox watcher started")
	go w.watchLoop()
	go w.scanExisting()
	return nil
}

// Stop closes the fsnotify watcher and cancels pending debounce timers.
func (w *Watcher) Stop() {
	w.status.Store("stopped")
	w.cancel()
	if w.watcher != nil {
		w.watcher.Close()
	}

	w.debounceMu.Lock()
	for path, t := range w.debounceTimers {
		t.Stop()
		delete(w.debounceTimers, path)
	}
	w.debounceMu.Unlock()

	w.log.Info().
		Int64("files_enqueued", w.filesEnqueued.Load()).
		Int64("files_skipped", w.filesSkipped.Load()).
		Msg("inbox watcher stopped")
}

// CurrentStatus returns a snapshot for the health endpoint.
func (w *Watcher) CurrentStatus() Status {
	s, _ := w.status.Load().(string)
	return Status{
		Status:        s,
		InboxDir:      w.inboxDir,
		FilesEnqueued: w.filesEnqueued.Load(),
		FilesSkipped:  w.filesSkipped.Load(),
	}
}

func (w *Watcher) watchLoop() {
	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			if !isVideo(event.Name) {
				continue
			}
			w.scheduleEnqueue(event.Name)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Error().Err(err).Msg("fsnotify error")
		}
	}
}

// scheduleEnqueue debounces a file until writes stop for settleDelay.
func (w *Watcher) scheduleEnqueue(path string) {
	w.debounceMu.Lock()
	defer w.debounceMu.Unlock()

	if t, ok := w.debounceTimers[path]; ok {
		t.Reset(w.settle)
		return
	}

	w.debounceTimers[path] = time.AfterFunc(w.settle, func() {
		w.debounceMu.Lock()
		delete(w.debounceTimers, path)
		w.debounceMu.Unlock()

		if w.ctx.Err() != nil {
			return
		}
		w.enqueueFile(path)
	})
}

func (w *Watcher) enqueueFile(path string) {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() || info.Size() == 0 {
		w.filesSkipped.Add(1)
		return
	}

	if !w.enqueue(path) {
		w.filesSkipped.Add(1)
		w.log.Warn().Str("video", path).Msg("queue full, video skipped")
		return
	}

	w.filesEnqueued.Add(1)
	w.log.Info().Str("video", path).Msg("video enqueued")
}

// scanExisting enqueues videos already present in the inbox, oldest first, so
// a restart does not strand files that arrived while the service was down.
func (w *Watcher) scanExisting() {
	w.status.Store("scanning")

	type entry struct {
		path    string
		modTime time.Time
	}
	var found []entry

	_ = filepath.WalkDir(w.inboxDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isVideo(path) {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil
		}
		found = append(found, entry{path: path, modTime: info.ModTime()})
		return nil
	})

	sort.Slice(found, func(i, j int) bool {
		return found[i].modTime.Before(found[j].modTime)
	})

	for _, f := range found {
		if w.ctx.Err() != nil {
			return
		}
		w.enqueueFile(f.path)
	}

	if len(found) > 0 {
		w.log.Info().Int("files", len(found)).Msg("inbox scan complete")
	}
	w.status.Store("watching")
}

func isVideo(path string) bool {
	return videoExts[strings.ToLower(filepath.Ext(path))]
}
