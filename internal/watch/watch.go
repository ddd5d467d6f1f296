// Package watch notices writes to the node database made by any process,
// including other CLI invocations sharing the same file.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce coalesces bursts of writes from a single transaction.
const DefaultDebounce = 150 * time.Millisecond

// Database watches the directory holding dbPath and calls onChange once per
// burst of writes to the database file or its -wal and -journal companions.
// It blocks until ctx is cancelled.
func Database(ctx context.Context, dbPath string, debounce time.Duration, logger *slog.Logger, onChange func()) error {
	abs, err := filepath.Abs(dbPath)
	if err != nil {
		return err
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	dir, base := filepath.Dir(abs), filepath.Base(abs)

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(dir); err != nil {
		return err
	}
	logger.Info("watcher: started", slog.String("db", abs))

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	schedule := func() {
		if timer == nil {
			timer = time.NewTimer(debounce)
			fire = timer.C
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
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			logger.Debug("watcher: database changed", slog.String("db", abs))
			onChange()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !isDatabaseFile(filepath.Base(ev.Name), base) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0 {
				schedule()
			}

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}

func isDatabaseFile(name, base string) bool {
	suffix, ok := strings.CutPrefix(name, base)
	if !ok {
		return false
	}
	switch suffix {
	case "", "-wal", "-journal":
		return true
	}
	return false
}
