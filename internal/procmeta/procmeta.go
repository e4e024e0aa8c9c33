// Package procmeta looks up /proc/<pid>/comm for display purposes. It is
// not part of the core: a lookup failure degrades to "?" rather than
// blocking or erroring, following the teacher's readCommForPID.
package procmeta

import (
	"os"
	"strconv"
	"strings"
	"sync"
	"time"
)

const negativeTTL = 2 * time.Second

// Cache memoizes comm lookups, including negative ones, for a short TTL
// so a busy socket table doesn't re-stat /proc on every render.
type Cache struct {
	mu      sync.Mutex
	entries map[uint32]cacheEntry
}

type cacheEntry struct {
	comm    string
	ok      bool
	expires time.Time
}

// NewCache returns an empty Cache.
func NewCache() *Cache {
	return &Cache{entries: make(map[uint32]cacheEntry)}
}

// Lookup returns the process's comm name and whether the lookup
// succeeded, using and refreshing the Cache.
func (c *Cache) Lookup(pid uint32) (string, bool) {
	now := time.Now()

	c.mu.Lock()
	if e, ok := c.entries[pid]; ok && now.Before(e.expires) {
		c.mu.Unlock()
		return e.comm, e.ok
	}
	c.mu.Unlock()

	comm, ok := readComm(pid)

	c.mu.Lock()
	c.entries[pid] = cacheEntry{comm: comm, ok: ok, expires: now.Add(negativeTTL)}
	c.mu.Unlock()

	return comm, ok
}

func readComm(pid uint32) (string, bool) {
	data, err := os.ReadFile("/proc/" + strconv.FormatUint(uint64(pid), 10) + "/comm")
	if err != nil {
		return "?", false
	}
	return strings.TrimSpace(string(data)), true
}
