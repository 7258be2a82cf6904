package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchConfig watches the given files and emits on the returned channel
// after a change settles. Editors doing atomic saves produce Create
// events, so those count as changes too. The watcher stops when the
// context is canceled.
func WatchConfig(ctx context.Context, files ...string) <-chan struct{} {
	reloadCh := make(chan struct{}, 1)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		slog.Error("Failed to create fsnotify watcher", "error", err)
		return reloadCh
	}

	for _, file := range files {
		absPath, err := filepath.Abs(file)
		if err != nil {
			slog.Warn("Could not resolve absolute path for watch file", "file", file)
			continue
		}
		if err := watcher.Add(absPath); err != nil {
			slog.Warn("Could not watch file", "file", file, "error", err)
		} else {
			slog.Debug("Watching configuration file", "file", file)
		}
	}

	go func() {
		defer watcher.Close()
		defer close(reloadCh)

		var timer *time.Timer
		const debounce = 500 * time.Millisecond

		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Write) || event.Op.Has(fsnotify.Create) {
					if timer != nil {
						timer.Stop()
					}
					timer = time.AfterFunc(debounce, func() {
						slog.Info("Configuration change detected", "file", event.Name)
						select {
						case reloadCh <- struct{}{}:
						default:
						}
					})
				}
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				slog.Error("Watcher encountered an error", "error", err)
			}
		}
	}()

	return reloadCh
}
