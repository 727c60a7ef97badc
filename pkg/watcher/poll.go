package watcher

import (
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/filewarden/filewarden/internal/logger"
)

// pollSource is Source B: every interval, walk every protected path and
// diff a fresh stat() against the cached (mtime, size, inode). It is
// indispensable even with the kernel source running — it heals dropped
// events and catches paths that became watchable after startup.
type pollSource struct {
	interval time.Duration
	cache    *stateCache
	paths    *pathSet
	queue    chan<- WatchEvent
	stats    *statsCounters

	paused atomic.Bool
	stopCh chan struct{}
	doneCh chan struct{}
}

func newPollSource(interval time.Duration, cache *stateCache, paths *pathSet, queue chan<- WatchEvent, stats *statsCounters) *pollSource {
	return &pollSource{
		interval: interval,
		cache:    cache,
		paths:    paths,
		queue:    queue,
		stats:    stats,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

func (p *pollSource) run() {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	// Run one pass immediately so newly-added paths get a baseline state
	// without waiting a full interval.
	p.scanOnce()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			p.scanOnce()
		}
	}
}

func (p *pollSource) scanOnce() {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("poll source recovered from panic", logger.Reason("panic"), slog.Any("recover", r))
		}
	}()

	if p.paused.Load() {
		return
	}

	for _, root := range p.paths.list() {
		p.scanRoot(root)
	}
}

func (p *pollSource) scanRoot(root string) {
	info, err := os.Stat(root)
	if err != nil {
		if os.IsNotExist(err) {
			p.handleMissing(root)
		}
		return
	}

	if !info.IsDir() {
		p.scanFile(root, info)
		return
	}

	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil //nolint:nilerr // best-effort scan: skip unreadable entries, don't abort the walk
		}
		if d.IsDir() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return nil //nolint:nilerr
		}
		p.scanFile(path, info)
		return nil
	})

	// A cached file under root that no longer exists is reported as deleted.
	prefix := root + string(os.PathSeparator)
	var cached []string
	p.cache.mu.Lock()
	for path := range p.cache.state {
		if len(path) > len(prefix) && path[:len(prefix)] == prefix {
			cached = append(cached, path)
		}
	}
	p.cache.mu.Unlock()
	for _, path := range cached {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			p.handleMissing(path)
		}
	}
}

func (p *pollSource) handleMissing(path string) {
	if _, ok := p.cache.get(path); !ok {
		return
	}
	p.cache.delete(path)
	p.emit(WatchEvent{Type: Delete, FilePath: path, Timestamp: time.Now()})
}

func (p *pollSource) scanFile(path string, info os.FileInfo) {
	if !info.Mode().IsRegular() {
		return
	}

	current := fileState{
		mtimeUnixNano: info.ModTime().UnixNano(),
		size:          info.Size(),
		inode:         inodeOf(info),
	}

	cached, ok := p.cache.get(path)
	switch {
	case !ok:
		p.cache.set(path, current)
		p.emit(WatchEvent{Type: Create, FilePath: path, Timestamp: time.Now()})
	case cached.mtimeUnixNano != current.mtimeUnixNano || cached.size != current.size:
		p.cache.set(path, current)
		p.emit(WatchEvent{Type: Modify, FilePath: path, Timestamp: time.Now()})
	}
}

func (p *pollSource) emit(e WatchEvent) {
	select {
	case p.queue <- e:
	default:
		// Queue full: drop. The next poll pass will re-derive state from
		// disk, so a dropped event here is not a lost change — it heals.
	}
}

func (p *pollSource) stop() {
	close(p.stopCh)
	<-p.doneCh
}

// inodeOf extracts the inode number from a FileInfo on platforms exposing
// syscall.Stat_t; returns 0 where unavailable.
func inodeOf(info os.FileInfo) uint64 {
	if stat, ok := info.Sys().(*syscall.Stat_t); ok {
		return stat.Ino
	}
	return 0
}
