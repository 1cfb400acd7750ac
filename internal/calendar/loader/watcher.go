package loader

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// debounce is how long the watcher waits for writes to a file to settle.
const debounce = 200 * time.Millisecond

// Watch republishes a jurisdiction file whenever it is created or rewritten
// in dir, until ctx is cancelled. Removing a file does not unpublish it.
func Watch(ctx context.Context, dir string, pub Publisher, logger *slog.Logger) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dir); err != nil {
		return err
	}
	logger.InfoContext(ctx, "calendar watcher: started", "dir", dir)

	pending := make(map[string]struct{})
	var (
		timer   *time.Timer
		timerCh <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			timerCh = timer.C
			return
		}
		timer.Reset(debounce)
	}

	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			logger.InfoContext(ctx, "calendar watcher: stopped")
			return nil

		case <-timerCh:
			timer, timerCh = nil, nil
			for path := range pending {
				reload(ctx, path, pub, logger)
			}
			clear(pending)

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isCatalogFile(ev.Name) || ev.Op&(fsnotify.Create|fsnotify.Write) == 0 {
				continue
			}
			pending[filepath.Clean(ev.Name)] = struct{}{}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.ErrorContext(ctx, "calendar watcher: error", "error", watchErr)
		}
	}
}

func reload(ctx context.Context, path string, pub Publisher, logger *slog.Logger) {
	doc, err := LoadFile(path)
	if err != nil {
		logger.WarnContext(ctx, "calendar watcher: rejected file", "path", path, "error", err)
		return
	}
	if err := Apply(ctx, pub, doc); err != nil {
		logger.WarnContext(ctx, "calendar watcher: publish failed", "path", path, "error", err)
		return
	}
	logger.InfoContext(ctx, "calendar watcher: republished",
		"path", path,
		"jurisdiction", doc.Profile.Code,
		"calendars", len(doc.Calendars),
	)
}
