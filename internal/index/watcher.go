package index

import (
	"context"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/starford/pdfarchiver/internal/checksum"
	"github.com/starford/pdfarchiver/internal/storage"
)

// Event kinds passed to an EventCallback.
const (
	EventCreated = "created"
	EventUpdated = "updated"
	EventDeleted = "deleted"
)

const reconcileDelay = 200 * time.Millisecond

// EventCallback is called after a watcher-driven index change.
type EventCallback func(kind string, path string)

// Watcher keeps the index in step with the archive directory.
type Watcher struct {
	db     DocumentIndex
	store  storage.Provider
	ix     FileIndexer
	logger *slog.Logger
	cb     EventCallback
}

// NewWatcher returns a watcher that hands changed PDFs to ix and reports
// every index mutation to cb (which may be nil).
func NewWatcher(db DocumentIndex, store storage.Provider, ix FileIndexer, logger *slog.Logger, cb EventCallback) *Watcher {
	if cb == nil {
		cb = func(string, string) {}
	}
	return &Watcher{db: db, store: store, ix: ix, logger: logger, cb: cb}
}

// Run watches the archive root until ctx is cancelled.
//
// New directories created at runtime (a new year, say) are added to the
// watch list. Rename events trigger a debounced reconciliation pass that
// removes stale entries and indexes files that arrived under a new name.
func (w *Watcher) Run(ctx context.Context) error {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer fw.Close()

	root := w.store.Root()
	if err := addDirsRecursive(fw, root); err != nil {
		return err
	}

	w.logger.Info("watcher: started", slog.String("root", root))

	var reconcileTimer *time.Timer
	var reconcileCh <-chan time.Time

	scheduleReconcile := func() {
		if reconcileTimer == nil {
			reconcileTimer = time.NewTimer(reconcileDelay)
			reconcileCh = reconcileTimer.C
		} else {
			reconcileTimer.Reset(reconcileDelay)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reconcileTimer != nil {
				reconcileTimer.Stop()
			}
			w.logger.Info("watcher: stopped")
			return nil

		case <-reconcileCh:
			w.reconcile()

		case ev, ok := <-fw.Events:
			if !ok {
				return nil
			}
			w.handle(fw, root, ev, scheduleReconcile)

		case watchErr, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func (w *Watcher) handle(fw *fsnotify.Watcher, root string, ev fsnotify.Event, scheduleReconcile func()) {
	absPath := ev.Name

	if ev.Has(fsnotify.Create) {
		if info, err := os.Stat(absPath); err == nil && info.IsDir() {
			if strings.HasPrefix(info.Name(), ".") {
				return
			}
			if err := addDirsRecursive(fw, absPath); err != nil {
				w.logger.Warn("watcher: add new dir failed",
					slog.String("path", absPath),
					slog.String("error", err.Error()))
			} else {
				w.logger.Debug("watcher: watching new dir", slog.String("path", absPath))
			}
			w.indexDir(root, absPath)
			return
		}
	}

	if !storage.IsDocument(absPath) {
		return
	}
	rel, err := filepath.Rel(root, absPath)
	if err != nil {
		return
	}
	rel = filepath.ToSlash(rel)

	switch {
	case ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write):
		kind := EventUpdated
		if ev.Has(fsnotify.Create) {
			kind = EventCreated
		}
		if w.index(rel) {
			w.logger.Debug("watcher: indexed", slog.String("path", rel), slog.String("op", kind))
			w.cb(kind, rel)
		}

	case ev.Has(fsnotify.Remove):
		if err := w.db.DeleteDocument(rel); err != nil {
			w.logger.Warn("watcher: delete failed", slog.String("path", rel), slog.String("error", err.Error()))
			return
		}
		w.logger.Debug("watcher: deleted", slog.String("path", rel))
		w.cb(EventDeleted, rel)

	case ev.Has(fsnotify.Rename):
		// fsnotify reports Rename on the old path only; the new name shows
		// up as a Create if it stays inside a watched directory.
		if err := w.db.DeleteDocument(rel); err != nil {
			w.logger.Warn("watcher: rename delete failed", slog.String("path", rel), slog.String("error", err.Error()))
		} else {
			w.logger.Debug("watcher: rename old deleted", slog.String("path", rel))
			w.cb(EventDeleted, rel)
		}
		scheduleReconcile()
	}
}

// index reads and indexes one file. A file whose checksum is already
// recorded (the service indexed it itself) is reported without reindexing.
func (w *Watcher) index(rel string) bool {
	data, err := w.store.Read(rel)
	if err != nil {
		w.logger.Warn("watcher: read failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	if cs, _ := w.db.GetChecksum(rel); cs != "" && cs == checksum.Sum(data) {
		return true
	}
	if err := w.ix.IndexFile(rel, data); err != nil {
		// Files still being copied in fail validation; the next Write retries.
		w.logger.Warn("watcher: index failed", slog.String("path", rel), slog.String("error", err.Error()))
		return false
	}
	return true
}

// reconcile removes index entries without a file on disk and indexes
// on-disk files whose checksum the index does not know.
func (w *Watcher) reconcile() {
	checksums, err := w.db.AllChecksums()
	if err != nil {
		w.logger.Warn("reconcile: all checksums failed", slog.String("error", err.Error()))
		return
	}
	metas, err := w.store.List("")
	if err != nil {
		w.logger.Warn("reconcile: list failed", slog.String("error", err.Error()))
		return
	}

	disk := make(map[string]string, len(metas))
	for _, m := range metas {
		disk[m.Path] = m.Checksum
	}

	for p := range checksums {
		if _, ok := disk[p]; ok {
			continue
		}
		if err := w.db.DeleteDocument(p); err == nil {
			w.logger.Debug("reconcile: removed stale", slog.String("path", p))
			w.cb(EventDeleted, p)
		}
	}

	for p, cs := range disk {
		if checksums[p] == cs {
			continue
		}
		if w.index(p) {
			w.logger.Debug("reconcile: indexed new", slog.String("path", p))
			w.cb(EventCreated, p)
		}
	}
}

// indexDir indexes the PDFs found in a directory that appeared at runtime.
func (w *Watcher) indexDir(root, dir string) {
	_ = filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() || !storage.IsDocument(path) {
			return nil
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if w.index(rel) {
			w.logger.Debug("watcher: indexed from new dir", slog.String("path", rel))
			w.cb(EventCreated, rel)
		}
		return nil
	})
}

// addDirsRecursive adds root and all its visible subdirectories to the watcher.
func addDirsRecursive(fw *fsnotify.Watcher, root string) error {
	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() {
			return nil
		}
		if path != root && strings.HasPrefix(d.Name(), ".") {
			return filepath.SkipDir
		}
		return fw.Add(path)
	})
}
