package watcher

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// collectingHandler records every WatchEvent it receives, safe for
// concurrent use by the watcher's single worker goroutine and the test
// goroutine reading it back.
type collectingHandler struct {
	mu     sync.Mutex
	events []WatchEvent
}

func (c *collectingHandler) handle(ev WatchEvent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, ev)
}

func (c *collectingHandler) snapshot() []WatchEvent {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]WatchEvent, len(c.events))
	copy(out, c.events)
	return out
}

func waitFor(t *testing.T, timeout time.Duration, check func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if check() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	require.True(t, check(), "condition not met within %s", timeout)
}

func TestWatcher_PollSourceDetectsCreateModifyDelete(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "protected.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))

	h := &collectingHandler{}
	w, err := New(Config{
		Paths:            []string{dir},
		FallbackInterval: 30 * time.Millisecond,
	}, h.handle)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	waitFor(t, 2*time.Second, func() bool {
		for _, ev := range h.snapshot() {
			if ev.FilePath == filePath && ev.Type == Create {
				return true
			}
		}
		return false
	})

	time.Sleep(2100 * time.Millisecond) // clear the dedup window before the next write
	require.NoError(t, os.WriteFile(filePath, []byte("hello world"), 0644))

	waitFor(t, 2*time.Second, func() bool {
		for _, ev := range h.snapshot() {
			if ev.FilePath == filePath && ev.Type == Modify {
				return true
			}
		}
		return false
	})

	time.Sleep(2100 * time.Millisecond)
	require.NoError(t, os.Remove(filePath))

	waitFor(t, 2*time.Second, func() bool {
		for _, ev := range h.snapshot() {
			if ev.FilePath == filePath && ev.Type == Delete {
				return true
			}
		}
		return false
	})
}

func TestWatcher_PauseStopsDelivery(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))

	h := &collectingHandler{}
	w, err := New(Config{
		Paths:            []string{dir},
		FallbackInterval: 20 * time.Millisecond,
	}, h.handle)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return len(h.snapshot()) > 0 })

	w.Pause()
	before := len(h.snapshot())
	time.Sleep(2100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filePath, []byte("changed"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, len(h.snapshot()), "no new events should be delivered while paused")

	w.Resume()
	waitFor(t, time.Second, func() bool { return len(h.snapshot()) > before })
}

func TestWatcher_RemovePathStopsTracking(t *testing.T) {
	dir := t.TempDir()
	filePath := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(filePath, []byte("hello"), 0644))

	h := &collectingHandler{}
	w, err := New(Config{
		Paths:            []string{dir},
		FallbackInterval: 20 * time.Millisecond,
	}, h.handle)
	require.NoError(t, err)
	w.Start()
	defer w.Stop()

	waitFor(t, time.Second, func() bool { return len(h.snapshot()) > 0 })

	w.RemovePath(dir)
	before := len(h.snapshot())
	time.Sleep(2100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filePath, []byte("changed again"), 0644))
	time.Sleep(150 * time.Millisecond)
	assert.Equal(t, before, len(h.snapshot()))
}

func TestWatcher_Paths(t *testing.T) {
	dir := t.TempDir()
	other := t.TempDir()
	w, err := New(Config{Paths: []string{dir}}, func(WatchEvent) {})
	require.NoError(t, err)

	assert.Equal(t, []string{dir}, w.Paths())

	require.NoError(t, w.AddPath(other))
	assert.ElementsMatch(t, []string{dir, other}, w.Paths())

	w.RemovePath(dir)
	assert.Equal(t, []string{other}, w.Paths())
}

func TestWatcher_Statistics(t *testing.T) {
	dir := t.TempDir()
	h := &collectingHandler{}
	w, err := New(Config{
		Paths:            []string{dir},
		FallbackInterval: 20 * time.Millisecond,
	}, h.handle)
	require.NoError(t, err)

	stats := w.Statistics()
	assert.Equal(t, 1, stats.PathsWatched)
	assert.Equal(t, queueCapacity, stats.QueueCapacity)
}

func TestWatcher_ShouldDrop_CollapsesWithinWindow(t *testing.T) {
	w := &Watcher{lastEmit: make(map[string]time.Time)}
	base := time.Now()

	assert.False(t, w.shouldDrop(WatchEvent{FilePath: "/a", Timestamp: base}))
	assert.True(t, w.shouldDrop(WatchEvent{FilePath: "/a", Timestamp: base.Add(time.Second)}))
	assert.False(t, w.shouldDrop(WatchEvent{FilePath: "/a", Timestamp: base.Add(3 * time.Second)}))
}

func TestWatcher_ShouldDrop_CollapsesAcrossEventTypesOnSamePath(t *testing.T) {
	// Option (a) from spec.md §9: dedup is temporal-only, so a Delete
	// immediately following a Modify on the same path is suppressed.
	w := &Watcher{lastEmit: make(map[string]time.Time)}
	base := time.Now()

	assert.False(t, w.shouldDrop(WatchEvent{Type: Modify, FilePath: "/a", Timestamp: base}))
	assert.True(t, w.shouldDrop(WatchEvent{Type: Delete, FilePath: "/a", Timestamp: base.Add(500 * time.Millisecond)}))
}
