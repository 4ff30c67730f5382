package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	"go-lyre/debug"
)

// Watch reloads path whenever it is written and hands the result to fn,
// until ctx is done. The parent directory is watched so editors that
// replace the file are picked up too. fn runs on the watcher goroutine.
func Watch(ctx context.Context, path string, fn func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		watcher.Close()
		return err
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", dir, err)
	}

	target := filepath.Clean(path)
	go func() {
		defer watcher.Close()
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				cfg, err := LoadFrom(path)
				if err != nil {
					// usually a half-written file; the next event retries
					debug.Warn("config reload failed", zap.String("path", path), zap.Error(err))
					continue
				}
				debug.Log("config", "reloaded %s", path)
				fn(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				debug.Warn("config watcher error", zap.Error(err))
			case <-ctx.Done():
				return
			}
		}
	}()
	return nil
}
