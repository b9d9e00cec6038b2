package store

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

const reloadDebounce = 200 * time.Millisecond

// Watch watches the database file (and its -wal/-shm companions) for writes
// made by other processes and republishes the note list when it changed.
// It blocks until ctx is cancelled. In-memory stores return immediately.
func (s *SQLite) Watch(ctx context.Context) error {
	if s.path == MemoryPath {
		return nil
	}

	abs, err := filepath.Abs(s.path)
	if err != nil {
		return err
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	base := filepath.Base(abs)

	s.logger.Info("store watcher: started", slog.String("path", abs))

	// reloadTimer debounces bursts of WAL writes into one reload.
	var reloadTimer *time.Timer
	var reloadCh <-chan time.Time

	scheduleReload := func() {
		if reloadTimer == nil {
			reloadTimer = time.NewTimer(reloadDebounce)
			reloadCh = reloadTimer.C
		} else {
			reloadTimer.Reset(reloadDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if reloadTimer != nil {
				reloadTimer.Stop()
			}
			s.logger.Info("store watcher: stopped")
			return nil

		case <-reloadCh:
			if err := s.refresh(ctx, false); err != nil {
				s.logger.Warn("store watcher: reload failed", slog.String("error", err.Error()))
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !strings.HasPrefix(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				scheduleReload()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			s.logger.Error("store watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
