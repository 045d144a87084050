package session

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounceInterval is how long the watcher waits after the last
// event before reporting a change.
const DefaultDebounceInterval = 100 * time.Millisecond

// ChangeFunc is called after the watched file settles.
type ChangeFunc func(path string)

// Watcher reports writes to a single file. It watches the parent
// directory so that files replaced by rename are still seen.
type Watcher struct {
	path             string
	onChange         ChangeFunc
	logFn            LogFunc
	debounceInterval time.Duration

	watcher   *fsnotify.Watcher
	stopChan  chan struct{}
	doneChan  chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	timer *time.Timer
}

// NewWatcher creates a watcher for path. logFn may be nil.
func NewWatcher(path string, onChange ChangeFunc, logFn LogFunc) (*Watcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if logFn == nil {
		logFn = func(format string, args ...interface{}) {}
	}
	return &Watcher{
		path:             filepath.Clean(path),
		onChange:         onChange,
		logFn:            logFn,
		debounceInterval: DefaultDebounceInterval,
		watcher:          fsWatcher,
		stopChan:         make(chan struct{}),
		doneChan:         make(chan struct{}),
	}, nil
}

// Start begins watching.
func (w *Watcher) Start() error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		w.watcher.Close()
		close(w.doneChan)
		return err
	}
	go w.processEvents()
	return nil
}

// Close stops the watcher and waits for its goroutine.
func (w *Watcher) Close() {
	w.closeOnce.Do(func() {
		close(w.stopChan)
		w.watcher.Close()

		w.mu.Lock()
		if w.timer != nil {
			w.timer.Stop()
			w.timer = nil
		}
		w.mu.Unlock()

		<-w.doneChan
	})
}

func (w *Watcher) processEvents() {
	defer close(w.doneChan)

	for {
		select {
		case <-w.stopChan:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logFn("watch %s: %v", w.path, err)
		}
	}
}

func (w *Watcher) handleEvent(event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
		return
	}
	w.schedule()
}

// schedule restarts the debounce timer.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.stopChan:
		return
	default:
	}

	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounceInterval, func() {
		select {
		case <-w.stopChan:
			return
		default:
		}
		w.onChange(w.path)
	})
}

// Watch reports changes made to the open file by other programs. Saves
// made through the session are not reported. The watch follows the
// session to another file after Open or a save under a new name.
// Closing the session stops the watcher.
func (s *Session) Watch(onChange ChangeFunc) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return ErrNoDocument
	}
	s.onChange = onChange
	return s.rewatch()
}

// rewatch replaces the watcher with one for the current path. Callers
// hold s.mu.
func (s *Session) rewatch() error {
	if s.watcher != nil {
		s.watcher.Close()
		s.watcher = nil
	}
	onChange := s.onChange
	w, err := NewWatcher(s.store.Path(), func(path string) {
		if s.ChangedOnDisk() {
			onChange(path)
		}
	}, s.opts.Log)
	if err != nil {
		return err
	}
	if err := w.Start(); err != nil {
		return err
	}
	s.watcher = w
	return nil
}

// follow moves an active watch to the current path. Callers hold s.mu.
func (s *Session) follow(oldPath string) {
	if s.onChange == nil || samePath(oldPath, s.store.Path()) {
		return
	}
	if err := s.rewatch(); err != nil {
		s.opts.Log("watch %s: %v", s.store.Path(), err)
	}
}

// ChangedOnDisk reports whether the open file differs from what was
// last loaded or saved.
func (s *Session) ChangedOnDisk() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.store == nil {
		return false
	}
	h, err := s.store.Hash()
	return err == nil && h != s.hash
}
