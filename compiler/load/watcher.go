package load

import (
	"context"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/logger"
)

// ReloadFunc receives the outcome of a reload: a freshly populated manager,
// or the error that prevented it. The previous manager is never touched.
type ReloadFunc func(*introspect.ModelManager, error)

// Watcher reloads model files whenever they change on disk. Bursts of
// events are coalesced into one reload.
type Watcher struct {
	paths      []string
	watcher    *fsnotify.Watcher
	newManager func() (*introspect.ModelManager, error)
	debounce   time.Duration

	mu        sync.Mutex
	timer     *time.Timer
	callbacks []ReloadFunc
}

// WatchOption configures a Watcher.
type WatchOption func(*Watcher)

// WithDebounce sets how long the watcher waits for further events before
// reloading. The default is 250ms.
func WithDebounce(d time.Duration) WatchOption {
	return func(w *Watcher) {
		if d > 0 {
			w.debounce = d
		}
	}
}

// WithManagerFactory sets the constructor of the manager each reload
// populates, so callers can install decorator factories or a logger.
func WithManagerFactory(f func() (*introspect.ModelManager, error)) WatchOption {
	return func(w *Watcher) {
		if f != nil {
			w.newManager = f
		}
	}
}

// NewWatcher watches paths, which may be files or directories. Directories
// are watched recursively.
func NewWatcher(paths []string, opts ...WatchOption) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "create fsnotify watcher")
	}
	w := &Watcher{
		paths:   paths,
		watcher: fw,
		newManager: func() (*introspect.ModelManager, error) {
			return introspect.NewModelManager()
		},
		debounce: 250 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(w)
	}
	for _, p := range paths {
		if err := w.add(p); err != nil {
			fw.Close()
			return nil, err
		}
	}
	return w, nil
}

// OnReload registers a callback run after every reload.
func (w *Watcher) OnReload(fn ReloadFunc) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callbacks = append(w.callbacks, fn)
}

// Reload loads the watched paths into a new manager.
func (w *Watcher) Reload() (*introspect.ModelManager, error) {
	mm, err := w.newManager()
	if err != nil {
		return nil, err
	}
	if _, err := Load(mm, w.paths...); err != nil {
		return nil, err
	}
	return mm, nil
}

// Run processes file events until ctx is done or the watcher is closed.
func (w *Watcher) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnw("model watcher error", logger.FieldError, err)
		}
	}
}

// Close stops watching. A pending reload is cancelled.
func (w *Watcher) Close() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

func (w *Watcher) handle(event fsnotify.Event) {
	if event.Has(fsnotify.Create) {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.add(event.Name); err != nil {
				logger.Warnw("model watcher cannot watch directory", logger.FieldDir, event.Name, logger.FieldError, err)
			}
			w.schedule()
			return
		}
	}
	if filepath.Ext(event.Name) != Ext || event.Has(fsnotify.Chmod) && !event.Has(fsnotify.Write) {
		return
	}
	logger.Debugw("model file changed", logger.FieldFile, event.Name, "op", event.Op.String())
	w.schedule()
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.reload)
}

func (w *Watcher) reload() {
	mm, err := w.Reload()
	if err != nil {
		logger.Errorw("model reload failed", logger.FieldError, err)
	} else {
		logger.Infow("models reloaded", logger.FieldCount, len(mm.ModelFiles())-1)
	}
	w.mu.Lock()
	callbacks := make([]ReloadFunc, len(w.callbacks))
	copy(callbacks, w.callbacks)
	w.mu.Unlock()
	for _, fn := range callbacks {
		fn(mm, err)
	}
}

// add watches path, and every directory below it that Sources would read.
func (w *Watcher) add(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "watch %s", path)
	}
	if !info.IsDir() {
		return errors.Wrapf(w.watcher.Add(path), "watch %s", path)
	}
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil || !d.IsDir() {
			return err
		}
		if p != path && skipDir(d.Name()) {
			return filepath.SkipDir
		}
		return errors.Wrapf(w.watcher.Add(p), "watch %s", p)
	})
}
