package cli

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

const (
	watchDebounce = 200 * time.Millisecond
	watchPoll     = 2 * time.Second
)

// watchFile calls onChange after path is written, coalescing bursts of
// events within debounce. It watches the parent directory so that editors
// that save by renaming a temp file are seen. When fsnotify is unavailable
// it falls back to polling the modification time. It returns when ctx is
// done.
func watchFile(ctx context.Context, path string, debounce time.Duration, onChange func()) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	w, err := fsnotify.NewWatcher()
	if err == nil {
		err = w.Add(filepath.Dir(abs))
	}
	if err != nil {
		if w != nil {
			w.Close()
		}
		return pollFile(ctx, abs, watchPoll, onChange)
	}
	defer w.Close()

	timer := time.NewTimer(debounce)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			timer.Reset(debounce)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case <-timer.C:
			onChange()
		}
	}
}

func pollFile(ctx context.Context, path string, interval time.Duration, onChange func()) error {
	var last time.Time
	if info, err := os.Stat(path); err == nil {
		last = info.ModTime()
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			info, err := os.Stat(path)
			if err != nil || !info.ModTime().After(last) {
				continue
			}
			last = info.ModTime()
			onChange()
		}
	}
}
