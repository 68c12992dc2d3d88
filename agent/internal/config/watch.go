package config

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch monitors the config file at path and calls onChange with the newly
// loaded Config each time it is written. It runs until ctx is cancelled.
//
// If a reload fails (e.g., invalid YAML), the error is logged and the
// previous config remains active; onChange is not called.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	return WatchFiles(ctx, []string{path}, func(changed string) {
		cfg, err := Load(changed)
		if err != nil {
			slog.Error("config: reload failed, keeping previous config",
				"path", changed, "err", err)
			return
		}
		slog.Info("config: reloaded", "path", changed)
		onChange(cfg)
	})
}

// WatchFiles calls onChange(path) whenever one of paths is written or
// recreated. The parent directories are watched rather than the files so
// that atomic saves (write to temp, rename over) keep being observed.
// It runs until ctx is cancelled.
func WatchFiles(ctx context.Context, paths []string, onChange func(path string)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	targets := make(map[string]string, len(paths)) // cleaned abs path -> caller's path
	dirs := make(map[string]struct{})
	for _, p := range paths {
		abs, err := filepath.Abs(p)
		if err != nil {
			return err
		}
		targets[abs] = p
		dirs[filepath.Dir(abs)] = struct{}{}
	}
	for dir := range dirs {
		if err := watcher.Add(dir); err != nil {
			return err
		}
	}

	slog.Info("config: watching for changes", "paths", paths)

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			abs, err := filepath.Abs(event.Name)
			if err != nil {
				continue
			}
			orig, ok := targets[abs]
			if !ok {
				continue
			}
			onChange(orig)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("config: watcher error", "err", err)
		}
	}
}
