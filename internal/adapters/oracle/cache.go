package oracle

import (
	"sync"
	"time"

	"github.com/okian/echelon/internal/domain/model"
)

const defaultMemoSize = 50000

type memoKey struct {
	personID int
	asOf     string
}

type memoNode struct {
	key  memoKey
	snap model.Snapshot
	next *memoNode
}

// memoCache memoizes (person, date) lookups for the duration of a recompute
// pass. Bounded with LIFO eviction so a full-history pass cannot grow it
// without limit.
type memoCache struct {
	mu      sync.RWMutex
	entries map[memoKey]*memoNode
	head    *memoNode
	maxSize int
}

func newMemoCache(maxSize int) *memoCache {
	return &memoCache{
		entries: make(map[memoKey]*memoNode),
		maxSize: maxSize,
	}
}

func keyFor(personID int, asOf time.Time) memoKey {
	return memoKey{personID: personID, asOf: asOf.Format("2006-01-02")}
}

func (c *memoCache) get(personID int, asOf time.Time) (model.Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if n, ok := c.entries[keyFor(personID, asOf)]; ok {
		return n.snap, true
	}
	return model.Snapshot{}, false
}

func (c *memoCache) put(personID int, asOf time.Time, snap model.Snapshot) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := keyFor(personID, asOf)
	if n, ok := c.entries[key]; ok {
		n.snap = snap
		return
	}

	if len(c.entries) >= c.maxSize {
		c.evict()
	}

	n := &memoNode{key: key, snap: snap, next: c.head}
	c.head = n
	c.entries[key] = n
}

// evict drops the oldest entry (tail of the list). Must hold c.mu.
func (c *memoCache) evict() {
	if c.head == nil {
		return
	}
	if c.head.next == nil {
		delete(c.entries, c.head.key)
		c.head = nil
		return
	}

	prev := c.head
	for prev.next.next != nil {
		prev = prev.next
	}
	delete(c.entries, prev.next.key)
	prev.next = nil
}

func (c *memoCache) size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
