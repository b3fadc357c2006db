package config

import (
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"evo/internal/logging"
)

// debounceWindow absorbs the burst of write events most editors and
// `mv`-based atomic saves generate for a single logical edit.
const debounceWindow = 300 * time.Millisecond

// Watcher watches a single config file for external edits and reloads
// it, handing the freshly parsed Config to a callback — grounded on the
// teacher's MangleWatcher (internal/core/mangle_watcher.go), which
// watches a policy directory and re-validates on change. evo.yaml is a
// single file rather than a directory of policy fragments, so this is
// a much smaller cousin: one watched path, one debounce timer, one
// reload callback.
type Watcher struct {
	mu      sync.Mutex
	watcher *fsnotify.Watcher
	path    string
	stopCh  chan struct{}
	doneCh  chan struct{}
	running bool
}

// NewWatcher creates a Watcher for the config file at path. It does not
// start watching until Start is called.
func NewWatcher(path string) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &Watcher{watcher: fsw, path: path}, nil
}

// Start begins watching w.path in the background, calling onChange with
// the reloaded Config each time the file settles after an edit. A
// reload that fails to parse is logged and skipped — the daemon keeps
// running on its last-known-good config rather than crashing on a
// transient half-written file.
func (w *Watcher) Start(onChange func(*Config)) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	if err := w.watcher.Add(w.path); err != nil {
		logging.Get(logging.CategoryConfig).Warn("config watcher: failed to watch %s: %v", w.path, err)
	}

	go w.run(onChange)
	return nil
}

// Stop halts the watcher and waits for its goroutine to exit. Safe to
// call once; calling it when not running is a no-op.
func (w *Watcher) Stop() {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return
	}
	w.running = false
	w.mu.Unlock()

	close(w.stopCh)
	<-w.doneCh
	w.watcher.Close()
}

func (w *Watcher) run(onChange func(*Config)) {
	defer close(w.doneCh)

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		var debounceC <-chan time.Time
		if debounce != nil {
			debounceC = debounce.C
		}

		select {
		case <-w.stopCh:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logging.Get(logging.CategoryConfig).Warn("config watcher error: %v", err)

		case <-debounceC:
			cfg, err := Load(w.path)
			if err != nil {
				logging.Get(logging.CategoryConfig).Warn("config watcher: reload of %s failed, keeping previous config: %v", w.path, err)
				continue
			}
			onChange(cfg)
		}
	}
}
