package configwatch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/icarus-mcp/icarus-bridge/internal/logging"
)

// Watcher monitors the bridge configuration file for changes and triggers
// reload of the Canister Client / Agent Pool wiring.
type Watcher struct {
	path     string
	onChange func() error
	validate func(path string) error
	logger   *slog.Logger
	debounce time.Duration
}

// NewWatcher creates a file watcher for the given config path. onChange is
// called when the file changes (after debouncing). The bridge's Server
// supports exactly one Connect, so onChange can't hot-swap a new
// Canister Client in place — it's meant to shut the bridge down so a
// process supervisor restarts it against the new config (see
// cmd/icarus-bridge/serve.go).
func NewWatcher(path string, onChange func() error) *Watcher {
	return &Watcher{
		path:     path,
		onChange: onChange,
		logger:   logging.NewDiscardLogger(),
		debounce: 300 * time.Millisecond,
	}
}

// SetLogger sets the logger for watcher events.
func (w *Watcher) SetLogger(logger *slog.Logger) {
	if logger != nil {
		w.logger = logger
	}
}

// SetDebounce sets the debounce duration for file changes.
func (w *Watcher) SetDebounce(d time.Duration) {
	w.debounce = d
}

// SetValidator installs a check run against the changed file before
// onChange fires. A restart-on-change policy is only useful if the file
// being restarted into actually parses; without this, an editor's
// intermediate save (a half-written YAML document mid-keystroke) would
// trigger a restart into a config that immediately fails to load. validate
// receives the watcher's configured path and should return a non-nil
// error for anything onChange shouldn't be told about.
func (w *Watcher) SetValidator(validate func(path string) error) {
	w.validate = validate
}

// Watch starts watching the file for changes.
// Blocks until context is cancelled.
//
// We watch the parent directory rather than the file directly because most
// editors use atomic saves (write to temp file, then rename). When a file is
// renamed over the watched file, fsnotify loses track of it. Watching the
// directory catches all events including renames.
func (w *Watcher) Watch(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory containing the file, not the file itself.
	// This handles atomic saves where editors rename temp files over the target.
	dir := filepath.Dir(w.path)
	filename := filepath.Base(w.path)

	if err := watcher.Add(dir); err != nil {
		return err
	}

	w.logger.Info("watching for config changes", "path", w.path)

	var debounceTimer *time.Timer
	var debounceChan <-chan time.Time

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("stopping config watcher")
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}

			// Only process events for our target file
			if filepath.Base(event.Name) != filename {
				continue
			}

			// Trigger on write or create events.
			// Create handles atomic saves where a temp file is renamed over target.
			// Write handles direct writes to the file.
			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				w.logger.Debug("config file changed", "event", event.Op.String())

				// Debounce: reset timer on each change
				if debounceTimer != nil {
					debounceTimer.Stop()
				}
				debounceTimer = time.NewTimer(w.debounce)
				debounceChan = debounceTimer.C
			}

		case <-debounceChan:
			if w.validate != nil {
				if err := w.validate(w.path); err != nil {
					w.logger.Warn("config change failed validation, ignoring", "error", err)
					debounceChan = nil
					continue
				}
			}
			w.logger.Info("config change detected, reloading")
			if err := w.onChange(); err != nil {
				w.logger.Error("reload failed", "error", err)
			}
			debounceChan = nil

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Error("watcher error", "error", err)
		}
	}
}
