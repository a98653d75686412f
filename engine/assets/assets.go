package assets

import (
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/fsnotify/fsnotify"

	"github.com/spaghettifunk/vkcube/engine/core"
)

type AssetKind uint8

const (
	AssetKindNone AssetKind = iota
	AssetKindShader
	AssetKindTexture
)

func (k AssetKind) String() string {
	switch k {
	case AssetKindShader:
		return "shader"
	case AssetKindTexture:
		return "texture"
	}
	return "none"
}

type AssetInfo struct {
	Path        string
	Kind        AssetKind
	LastChanged time.Time
}

var ErrWatcherClosed = errors.New("asset watcher already closed")

// Watcher reports changes to shader modules and textures below a set of
// paths. Directories are watched recursively, including ones created later.
type Watcher struct {
	assets map[string]AssetInfo
	mutex  sync.RWMutex

	fsnotify *fsnotify.Watcher
	events   chan string
	done     chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
	isClosed bool
}

func NewWatcher(paths ...string) (*Watcher, error) {
	fsWatch, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "failed to create fsnotify watcher")
	}
	w := &Watcher{
		assets:   make(map[string]AssetInfo),
		fsnotify: fsWatch,
		events:   make(chan string, 16),
		done:     make(chan struct{}),
	}
	for _, p := range paths {
		if err := w.Add(p); err != nil {
			fsWatch.Close()
			return nil, err
		}
	}
	w.wg.Add(1)
	go w.start()
	return w, nil
}

// Events delivers the path of every changed asset. The channel is closed by
// Close.
func (w *Watcher) Events() <-chan string {
	return w.events
}

// Add starts watching path. Directories are added recursively; a single file
// is watched through its parent directory.
func (w *Watcher) Add(path string) error {
	w.mutex.RLock()
	closed := w.isClosed
	w.mutex.RUnlock()
	if closed {
		return ErrWatcherClosed
	}

	fi, err := os.Stat(path)
	if err != nil {
		return errors.Wrapf(err, "cannot watch '%s'", path)
	}
	if !fi.IsDir() {
		w.track(path)
		return errors.Wrapf(w.fsnotify.Add(filepath.Dir(path)), "cannot watch '%s'", path)
	}
	return w.watchRecursive(path, false)
}

// Assets returns a snapshot of every known asset.
func (w *Watcher) Assets() []AssetInfo {
	w.mutex.RLock()
	defer w.mutex.RUnlock()
	out := make([]AssetInfo, 0, len(w.assets))
	for _, a := range w.assets {
		out = append(out, a)
	}
	return out
}

func (w *Watcher) Close() error {
	var err error
	w.once.Do(func() {
		w.mutex.Lock()
		w.isClosed = true
		w.mutex.Unlock()
		close(w.done)
		w.wg.Wait()
		err = w.fsnotify.Close()
		close(w.events)
	})
	return err
}

func (w *Watcher) start() {
	defer w.wg.Done()
	for {
		select {
		case e, ok := <-w.fsnotify.Events:
			if !ok {
				return
			}
			w.handle(e)

		case err, ok := <-w.fsnotify.Errors:
			if !ok {
				return
			}
			core.LogError("asset watcher: %s", err)

		case <-w.done:
			return
		}
	}
}

func (w *Watcher) handle(e fsnotify.Event) {
	if e.Op&fsnotify.Create != 0 {
		if s, err := os.Stat(e.Name); err == nil && s.IsDir() {
			if err := w.watchRecursive(e.Name, false); err != nil {
				core.LogWarn("asset watcher: failed to watch '%s': %s", e.Name, err)
			}
			return
		}
	}
	// a removed directory cannot be stat'ed, so every removal is dropped from
	// the watch list and the error ignored
	if e.Op&(fsnotify.Remove|fsnotify.Rename) != 0 {
		w.fsnotify.Remove(e.Name)
		w.forget(e.Name)
		return
	}
	if e.Op&(fsnotify.Create|fsnotify.Write) == 0 {
		return
	}
	if !w.track(e.Name) {
		return
	}
	select {
	case w.events <- e.Name:
	case <-w.done:
	default:
		core.LogDebug("asset watcher: dropping change for '%s', consumer is behind", e.Name)
	}
}

func (w *Watcher) watchRecursive(path string, unWatch bool) error {
	return filepath.Walk(path, func(walkPath string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if fi.IsDir() {
			if unWatch {
				return w.fsnotify.Remove(walkPath)
			}
			return w.fsnotify.Add(walkPath)
		}
		w.track(walkPath)
		return nil
	})
}

// track records path if it is an asset the renderer cares about.
func (w *Watcher) track(path string) bool {
	kind := DetermineAssetKind(path)
	if kind == AssetKindNone {
		return false
	}
	w.mutex.Lock()
	defer w.mutex.Unlock()
	w.assets[path] = AssetInfo{
		Path:        path,
		Kind:        kind,
		LastChanged: time.Now(),
	}
	return true
}

func (w *Watcher) forget(path string) {
	w.mutex.Lock()
	defer w.mutex.Unlock()
	delete(w.assets, path)
}

func DetermineAssetKind(path string) AssetKind {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".spv":
		return AssetKindShader
	case ".png", ".jpg", ".jpeg", ".bmp", ".tif", ".tiff", ".webp":
		return AssetKindTexture
	default:
		return AssetKindNone
	}
}
