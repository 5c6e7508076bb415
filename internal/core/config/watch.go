// SPDX-License-Identifier: Apache-2.0

package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"github.com/kusari-oss/vigil/internal/logger"
)

// Watch reloads the config file whenever it changes and hands the new config to
// onChange. The parent directory is watched so editors that replace the file
// by rename are still seen. Reload errors are logged and the previous config stays in effect.
// Watching stops when ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	path = filepath.Clean(ExpandPathWithTilde(path))

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create fsnotify watcher: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close()
		return fmt.Errorf("watch %s: %w", filepath.Dir(path), err)
	}

	go func() {
		defer watcher.Close()
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != path {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				logger.Debug("config: fsnotify event=%s file=%s", event.Op, event.Name)

				config, err := LoadConfig(path)
				if err != nil {
					logger.Warn("config: reload of %s failed, keeping previous settings: %v", path, err)
					continue
				}
				logger.Info("config: reloaded %s", path)
				onChange(config)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Error("config: fsnotify error=%v", err)
			}
		}
	}()
	return nil
}
