package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

var logger = log.NewWithOptions(os.Stderr, log.Options{
	ReportTimestamp: true,
	Prefix:          "config",
})

// SetLogLevel sets the logging level for the config package.
func SetLogLevel(level log.Level) {
	logger.SetLevel(level)
}

// Watch reloads the config file whenever it changes and hands the parsed
// result to onChange. Editors replace files rather than rewriting them, so
// the watch covers the parent directory and filters on the file name. The
// returned stop function releases the watcher.
func Watch(path string, onChange func(*Config)) (func(), error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("config watch: %w", err)
	}
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		watcher.Close() //nolint:errcheck
		return nil, fmt.Errorf("config watch %s: %w", path, err)
	}

	go func() {
		for {
			select {
			case ev, ok := <-watcher.Events:
				if !ok {
					return
				}
				if ev.Name != path || !ev.Op.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				data, err := os.ReadFile(path)
				if err != nil {
					logger.Warn("config reload failed", "err", err)
					continue
				}
				cfg, err := Parse(data)
				if err != nil {
					logger.Warn("config reload rejected", "err", err)
					continue
				}
				logger.Info("config reloaded", "path", path)
				onChange(cfg)
			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("config watcher error", "err", err)
			}
		}
	}()

	stop := func() {
		watcher.Close() //nolint:errcheck
	}
	return stop, nil
}
