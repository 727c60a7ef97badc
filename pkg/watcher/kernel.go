package watcher

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/filewarden/filewarden/internal/logger"
)

// kernelSource is Source A: a recursive fsnotify subscription over every
// protected directory. When a new directory appears under a watched root,
// it is added to the subscription so the tree stays fully covered.
type kernelSource struct {
	fsw   *fsnotify.Watcher
	queue chan<- WatchEvent

	paused atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

func newKernelSource(queue chan<- WatchEvent) (*kernelSource, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	return &kernelSource{
		fsw:    fsw,
		queue:  queue,
		stopCh: make(chan struct{}),
		doneCh: make(chan struct{}),
	}, nil
}

// watch subscribes recursively to root. Regular files are watched
// directly; directories are walked and each subdirectory added.
func (k *kernelSource) watch(root string) error {
	info, err := os.Stat(root)
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return k.fsw.Add(root)
	}

	return filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort: skip unreadable subtrees
		}
		if d.IsDir() {
			return k.fsw.Add(path)
		}
		return nil
	})
}

func (k *kernelSource) unwatch(root string) {
	_ = k.fsw.Remove(root)
}

func (k *kernelSource) run() {
	defer close(k.doneCh)

	for {
		select {
		case <-k.stopCh:
			return

		case ev, ok := <-k.fsw.Events:
			if !ok {
				return
			}
			k.handle(ev)

		case err, ok := <-k.fsw.Errors:
			if !ok {
				return
			}
			logger.Warn("kernel watch source error", logger.Err(err))
		}
	}
}

func (k *kernelSource) handle(ev fsnotify.Event) {
	if k.paused.Load() {
		return
	}

	// A directory created under a watched root needs its own subscription
	// so files created inside it are seen too.
	if ev.Op&fsnotify.Create == fsnotify.Create {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			if err := k.fsw.Add(ev.Name); err != nil {
				logger.Warn("failed to add recursive watch", logger.Path(ev.Name), logger.Err(err))
			}
			return
		}
	}

	typ, ok := normalizeOp(ev.Op)
	if !ok {
		return
	}

	// Directories themselves are filtered — only regular-file events are
	// forwarded, per spec.md §4.3.
	if typ != Delete {
		if info, err := os.Stat(ev.Name); err == nil && info.IsDir() {
			return
		}
	}

	select {
	case k.queue <- WatchEvent{Type: typ, FilePath: ev.Name, Timestamp: time.Now()}:
	default:
		logger.Warn("kernel source queue full, dropping event; poll source will heal", logger.Path(ev.Name))
	}
}

// normalizeOp maps fsnotify's op bitmask to the watcher's event set:
// {content modification, close-after-write, deletion, creation, moved-in,
// moved-out, self-move, self-delete} -> {Modify | Delete | Create | Move}.
func normalizeOp(op fsnotify.Op) (Type, bool) {
	switch {
	case op&fsnotify.Remove == fsnotify.Remove:
		return Delete, true
	case op&fsnotify.Rename == fsnotify.Rename:
		return Move, true
	case op&fsnotify.Create == fsnotify.Create:
		return Create, true
	case op&fsnotify.Write == fsnotify.Write, op&fsnotify.Chmod == fsnotify.Chmod:
		return Modify, true
	default:
		return "", false
	}
}

func (k *kernelSource) stop() {
	close(k.stopCh)
	<-k.doneCh
	_ = k.fsw.Close()
}
