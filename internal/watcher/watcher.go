// Package watcher reloads the engine when the dataset files on disk change.
package watcher

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

// DefaultDebounce coalesces the burst of events a multi-file save produces.
const DefaultDebounce = 250 * time.Millisecond

// ReloadFunc is invoked once per settled burst of changes.
type ReloadFunc func(ctx context.Context) error

// Watcher monitors a directory for *.json writes, renames and removals.
type Watcher struct {
	dir      string
	reload   ReloadFunc
	debounce time.Duration
	logger   zerolog.Logger

	mu      sync.Mutex
	reloads int
}

// Option configures a Watcher.
type Option func(*Watcher)

// WithDebounce overrides DefaultDebounce.
func WithDebounce(d time.Duration) Option {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithLogger sets the watcher logger.
func WithLogger(l zerolog.Logger) Option { return func(w *Watcher) { w.logger = l } }

// New creates a watcher for dir.
func New(dir string, reload ReloadFunc, opts ...Option) *Watcher {
	w := &Watcher{dir: filepath.Clean(dir), reload: reload, debounce: DefaultDebounce, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Reloads returns how many reloads have run.
func (w *Watcher) Reloads() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.reloads
}

// Run watches until ctx is cancelled. ready, when non-nil, is closed once the
// watch is established.
func (w *Watcher) Run(ctx context.Context, ready chan<- struct{}) error {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer fsw.Close()
	if err := fsw.Add(w.dir); err != nil {
		return fmt.Errorf("watch %s: %w", w.dir, err)
	}
	w.logger.Info().Str("dir", w.dir).Msg("watching dataset directory")
	if ready != nil {
		close(ready)
	}

	var (
		timer *time.Timer
		fire  <-chan time.Time
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fsw.Events:
			if !ok {
				return nil
			}
			if !relevant(event) {
				continue
			}
			w.logger.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("dataset file changed")
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				if !timer.Stop() {
					select {
					case <-timer.C:
					default:
					}
				}
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case <-fire:
			fire = nil
			w.runReload(ctx)
		case err, ok := <-fsw.Errors:
			if !ok {
				return nil
			}
			w.logger.Error().Err(err).Msg("watcher error")
		}
	}
}

func (w *Watcher) runReload(ctx context.Context) {
	err := w.reload(ctx)
	w.mu.Lock()
	w.reloads++
	w.mu.Unlock()
	if err != nil {
		w.logger.Error().Err(err).Msg("reload after change failed; keeping previous snapshot")
		return
	}
	w.logger.Info().Msg("dataset reloaded after change")
}

func relevant(event fsnotify.Event) bool {
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || filepath.Ext(base) != ".json" {
		return false
	}
	return event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) != 0
}
