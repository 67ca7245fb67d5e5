package still

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/teslashibe/go-moodcam/internal/log"
	"github.com/teslashibe/go-moodcam/pkg/camera"
)

// settleDelay lets writers finish a file before it is decoded.
const settleDelay = 200 * time.Millisecond

// Handler receives the outcome of each analyzed file.
type Handler func(res *Result, err error)

// Watcher analyzes every image that appears in a directory.
type Watcher struct {
	dir      string
	analyzer *Analyzer
	handle   Handler
}

// NewWatcher creates a watcher for dir.
func NewWatcher(dir string, a *Analyzer, handle Handler) *Watcher {
	return &Watcher{dir: dir, analyzer: a, handle: handle}
}

// Run watches until ctx is cancelled.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	log.Info("watching for images", "dir", w.dir)

	// Debounce: a file is analyzed once writes to it stop.
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(settleDelay / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
				if camera.IsImage(event.Name) && !IsAnnotated(event.Name) {
					pending[event.Name] = time.Now()
				}
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Warn("watcher error", "error", err)

		case now := <-ticker.C:
			for path, seen := range pending {
				if now.Sub(seen) < settleDelay {
					continue
				}
				delete(pending, path)
				res, err := w.analyzer.AnalyzeFile(ctx, path)
				w.handle(res, err)
			}
		}
	}
}
