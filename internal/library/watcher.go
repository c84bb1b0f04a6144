package library

import (
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"

	"github.com/dokzlo13/ledseqd/internal/middleware"
)

// DefaultQuietWindow is how long the watcher waits for file events to stop
// before reloading.
const DefaultQuietWindow = 500 * time.Millisecond

// Watcher reloads the library when its files change on disk. Events are
// debounced through a quiet window so a burst of editor writes triggers a
// single reload.
type Watcher struct {
	lib      *Library
	watcher  *fsnotify.Watcher
	quiet    *middleware.QuietCollector
	onReload func(count int)
	done     chan struct{}
}

// NewWatcher starts watching the library paths. onReload runs after every
// successful reload; it may be nil.
func NewWatcher(lib *Library, quietWindow time.Duration, onReload func(count int)) (*Watcher, error) {
	if quietWindow <= 0 {
		quietWindow = DefaultQuietWindow
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	for _, p := range lib.Paths() {
		if err := fsw.Add(p); err != nil {
			fsw.Close()
			return nil, fmt.Errorf("watch %q: %w", p, err)
		}
	}

	w := &Watcher{
		lib:      lib,
		watcher:  fsw,
		onReload: onReload,
		done:     make(chan struct{}),
	}
	w.quiet = middleware.NewQuietCollector(quietWindow, w.flush)

	go w.watch()
	log.Debug().Strs("paths", lib.Paths()).Dur("quiet_window", quietWindow).Msg("Library watcher started")
	return w, nil
}

func (w *Watcher) watch() {
	defer close(w.done)
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if !isSequenceFile(event.Name) {
				continue
			}
			log.Debug().Str("file", event.Name).Str("op", event.Op.String()).Msg("Library file changed")
			w.quiet.AddEvent(map[string]any{"file": event.Name, "op": event.Op.String()})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Warn().Err(err).Msg("Library watcher error")
		}
	}
}

func (w *Watcher) flush(events []map[string]any) {
	count, err := w.lib.Reload()
	if err != nil {
		log.Error().Err(err).Msg("Library reload failed, keeping previous sequences")
		return
	}
	log.Info().Int("sequences", count).Int("changes", len(events)).Msg("Library reloaded")
	if w.onReload != nil {
		w.onReload(count)
	}
}

// Close stops watching. A pending debounced reload is dropped.
func (w *Watcher) Close() error {
	err := w.watcher.Close()
	<-w.done
	w.quiet.Close()
	return err
}
