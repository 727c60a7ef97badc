package watcher

import "sync"

// fileState is the poll source's cached snapshot of one file, compared
// against a fresh stat() on every scan pass.
type fileState struct {
	mtimeUnixNano int64
	size          int64
	inode         uint64
}

// stateCache is the watcher's exclusively-owned path -> fileState map
// (spec.md §3 "the Watcher exclusively owns its file-state cache"). Written
// and read by the poll source; Watcher.RemovePath evicts entries. The kernel
// source does not use it. A single global lock is used, per spec.md §5's
// "either is acceptable".
type stateCache struct {
	mu    sync.Mutex
	state map[string]fileState
}

func newStateCache() *stateCache {
	return &stateCache{state: make(map[string]fileState)}
}

func (c *stateCache) get(path string) (fileState, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.state[path]
	return s, ok
}

func (c *stateCache) set(path string, s fileState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[path] = s
}

func (c *stateCache) delete(path string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.state, path)
}
