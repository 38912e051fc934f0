// Package watcher re-synchronizes the catalog when its source file
// changes on disk.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"github.com/netzhuffle/tcgp-tracker/internal/tcgp/catalog"
)

// Syncer runs one reconciliation pass against storage.
type Syncer interface {
	Synchronize(ctx context.Context, doc catalog.Document) (*catalog.Report, error)
}

// Watcher triggers a catalog synchronization when the source file is
// written. Rapid write bursts, as editors produce when saving, collapse
// into a single pass per debounce window.
type Watcher struct {
	sourcePath string
	debounce   time.Duration
	syncer     Syncer
	logger     *zap.SugaredLogger
}

// New creates a watcher over the catalog source file at sourcePath.
func New(sourcePath string, debounce time.Duration, syncer Syncer, logger *zap.Logger) *Watcher {
	return &Watcher{
		sourcePath: sourcePath,
		debounce:   debounce,
		syncer:     syncer,
		logger:     logger.Sugar(),
	}
}

// Run watches the source file until ctx is cancelled. The watch covers
// the file's directory because editors replace files on save, which
// drops a watch on the file itself.
func (w *Watcher) Run(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	if err := watcher.Add(filepath.Dir(w.sourcePath)); err != nil {
		return fmt.Errorf("failed to watch source directory: %w", err)
	}

	var timer *time.Timer
	var timerC <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return ctx.Err()

		case event := <-watcher.Events:
			if filepath.Clean(event.Name) != filepath.Clean(w.sourcePath) {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				timerC = timer.C
			} else {
				timer.Reset(w.debounce)
			}

		case err := <-watcher.Errors:
			w.logger.Warnw("file watcher error", "error", err)

		case <-timerC:
			timer = nil
			timerC = nil
			w.resync(ctx)
		}
	}
}

func (w *Watcher) resync(ctx context.Context) {
	doc, err := catalog.Load(w.sourcePath)
	if err != nil {
		w.logger.Errorw("failed to load catalog source", "path", w.sourcePath, "error", err)
		return
	}

	report, err := w.syncer.Synchronize(ctx, doc)
	if err != nil {
		w.logger.Errorw("catalog re-synchronization failed", "error", err)
		return
	}
	w.logger.Infow("catalog re-synchronized",
		"sets_created", report.SetsCreated,
		"boosters_created", report.BoostersCreated,
		"cards_created", report.CardsCreated,
	)
}
