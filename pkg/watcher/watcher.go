package watcher

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/filewarden/filewarden/internal/logger"
)

// queueCapacity bounds the single multi-producer/single-consumer channel
// both sources push into (spec.md §9 "the event queue is a bounded
// multi-producer/single-consumer channel").
const queueCapacity = 4096

// DedupWindow is the interval within which repeated events on the same
// path collapse to the first. Dedup is temporal only: this implementation
// takes spec.md §9's option (a) — different event types on the same path
// within the window collapse too, matching the source's original behavior
// exactly rather than the per-(path, event_type) alternative.
const DedupWindow = 2 * time.Second

// Config configures a Watcher.
type Config struct {
	Paths                  []string
	FallbackInterval       time.Duration
	UseKernelNotifications bool
}

// Watcher runs the kernel and poll sources concurrently, funneling both
// into one serialized queue consumed by a single worker that invokes the
// caller-supplied Handler. See spec.md §4.3.
type Watcher struct {
	handler Handler
	paths   *pathSet
	cache   *stateCache
	stats   *statsCounters

	queue  chan WatchEvent
	kernel *kernelSource
	poll   *pollSource

	paused atomic.Bool
	wg     sync.WaitGroup
	stopCh chan struct{}

	lastEmit map[string]time.Time // dedup state, confined to the worker goroutine
}

// New constructs a Watcher over cfg.Paths. Start must be called to begin
// producing events.
func New(cfg Config, handler Handler) (*Watcher, error) {
	if cfg.FallbackInterval <= 0 {
		cfg.FallbackInterval = 60 * time.Second
	}

	w := &Watcher{
		handler:  handler,
		paths:    newPathSet(cfg.Paths),
		cache:    newStateCache(),
		stats:    &statsCounters{},
		queue:    make(chan WatchEvent, queueCapacity),
		stopCh:   make(chan struct{}),
		lastEmit: make(map[string]time.Time),
	}

	w.poll = newPollSource(cfg.FallbackInterval, w.cache, w.paths, w.queue, w.stats)

	if cfg.UseKernelNotifications {
		kernel, err := newKernelSource(w.queue)
		if err != nil {
			return nil, err
		}
		w.kernel = kernel
		for _, p := range cfg.Paths {
			if err := kernel.watch(p); err != nil {
				logger.Warn("failed to establish kernel watch", logger.Path(p), logger.Err(err))
			}
		}
	}

	return w, nil
}

// Start launches both sources and the dispatcher worker.
func (w *Watcher) Start() {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.dispatch()
	}()

	if w.kernel != nil {
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.kernel.run()
		}()
	}

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		w.poll.run()
	}()
}

// Stop is cooperative: it stops both sources, signals the dispatcher to
// exit (the event queue itself is left open), and joins worker goroutines
// with a bounded wait. Goroutines that exceed
// the bound are abandoned; all owned resources are released on process exit.
func (w *Watcher) Stop() {
	if w.kernel != nil {
		w.kernel.stop()
	}
	w.poll.stop()
	close(w.stopCh)

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		logger.Warn("watcher stop exceeded bounded wait, abandoning workers")
	}
}

// Pause drains and ignores events from both sources; the sources keep
// running so state stays warm for a later Resume.
func (w *Watcher) Pause() {
	w.paused.Store(true)
	if w.kernel != nil {
		w.kernel.paused.Store(true)
	}
	w.poll.paused.Store(true)
}

// Resume reverses Pause.
func (w *Watcher) Resume() {
	w.paused.Store(false)
	if w.kernel != nil {
		w.kernel.paused.Store(false)
	}
	w.poll.paused.Store(false)
}

// AddPath begins protecting path: the poll source picks it up on its next
// pass, and the kernel source (if enabled) subscribes immediately.
func (w *Watcher) AddPath(path string) error {
	w.paths.add(path)
	if w.kernel != nil {
		return w.kernel.watch(path)
	}
	return nil
}

// RemovePath stops protecting path.
func (w *Watcher) RemovePath(path string) {
	w.paths.remove(path)
	w.cache.delete(path)
	if w.kernel != nil {
		w.kernel.unwatch(path)
	}
}

// Paths returns the set of paths currently under watch.
func (w *Watcher) Paths() []string {
	return w.paths.list()
}

// Statistics returns a point-in-time snapshot of watcher activity.
func (w *Watcher) Statistics() Stats {
	emitted, deduped := w.stats.snapshot()
	return Stats{
		EventsEmitted: emitted,
		EventsDeduped: deduped,
		PathsWatched:  w.paths.len(),
		QueueDepth:    len(w.queue),
		QueueCapacity: queueCapacity,
	}
}

// dispatch is the single worker: it owns dedup state exclusively (spec.md
// §5 "no cross-thread sharing") and invokes the handler serially in
// enqueue order.
func (w *Watcher) dispatch() {
	for {
		select {
		case <-w.stopCh:
			return
		case ev, ok := <-w.queue:
			if !ok {
				return
			}
			if w.paused.Load() {
				continue
			}
			if w.shouldDrop(ev) {
				w.stats.recordDeduped()
				continue
			}
			w.invoke(ev)
		}
	}
}

func (w *Watcher) shouldDrop(ev WatchEvent) bool {
	last, ok := w.lastEmit[ev.FilePath]
	w.lastEmit[ev.FilePath] = ev.Timestamp
	return ok && ev.Timestamp.Sub(last) < DedupWindow
}

func (w *Watcher) invoke(ev WatchEvent) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("watcher handler panicked, continuing", logger.Path(ev.FilePath))
		}
	}()

	w.stats.recordEmitted()
	w.handler(ev)
}
