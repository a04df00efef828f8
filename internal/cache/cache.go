package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/MeKo-Tech/skintex/internal/skintone"
	"github.com/MeKo-Tech/skintex/internal/texture"
)

// DefaultCapacity is the entry limit used when the caller passes a
// non-positive capacity.
const DefaultCapacity = 50

// Manager is a mutex-guarded LRU cache of baked texture sets, keyed by
// skin tone. It is the sole owner of the buffers inserted into it:
// eviction, removal, overwrite and Clear dispose them, each at most
// once. Callers that Get a set borrow it and must not dispose it.
type Manager struct {
	capacity int

	mu       sync.Mutex
	items    map[skintone.Key]*list.Element
	eviction *list.List // front = most recently used

	hits      uint64
	misses    uint64
	evictions uint64

	logger *slog.Logger
}

// entry is the cache's bookkeeping for one tone. Owned exclusively by
// the Manager; only snapshots leave via Info and Entries.
type entry struct {
	key         skintone.Key
	toneHex     string
	set         *texture.Set
	lastAccess  time.Time
	accessCount uint64
}

// EntryInfo is a read-only snapshot of one cache entry.
type EntryInfo struct {
	Key         skintone.Key
	ToneHex     string
	AccessCount uint64
	LastAccess  time.Time
	MemoryBytes int64
}

// New builds a Manager holding at most capacity texture sets. A
// non-positive capacity selects DefaultCapacity. The logger may be nil.
func New(capacity int, logger *slog.Logger) *Manager {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Manager{
		capacity: capacity,
		items:    make(map[skintone.Key]*list.Element),
		eviction: list.New(),
		logger:   logger,
	}
}

func (m *Manager) log() *slog.Logger {
	if m.logger != nil {
		return m.logger
	}
	return slog.Default()
}

// Get returns the cached set for key. A hit refreshes the entry's
// access time, increments its access count and promotes it to most
// recently used. A miss only bumps the miss counter; it is not an error.
func (m *Manager) Get(key skintone.Key) (*texture.Set, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		m.misses++
		return nil, false
	}

	m.eviction.MoveToFront(elem)
	e := elem.Value.(*entry)
	e.accessCount++
	e.lastAccess = time.Now()
	m.hits++
	return e.set, true
}

// Set inserts a baked set for key, taking ownership of its buffers.
// At capacity the single least recently used entry is evicted and
// disposed first. Overwriting an existing key disposes the previous
// set, resets the access count to one and refreshes recency.
func (m *Manager) Set(key skintone.Key, toneHex string, set *texture.Set) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if elem, ok := m.items[key]; ok {
		e := elem.Value.(*entry)
		e.set.Dispose()
		e.set = set
		e.toneHex = toneHex
		e.lastAccess = now
		e.accessCount = 1
		m.eviction.MoveToFront(elem)
		return
	}

	if m.eviction.Len() >= m.capacity {
		m.evictOldest()
	}

	elem := m.eviction.PushFront(&entry{
		key:         key,
		toneHex:     toneHex,
		set:         set,
		lastAccess:  now,
		accessCount: 1,
	})
	m.items[key] = elem
}

// Has reports whether key is cached without touching recency or the
// hit/miss counters.
func (m *Manager) Has(key skintone.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	_, ok := m.items[key]
	return ok
}

// Remove disposes and deletes the entry for key, reporting whether it
// was present.
func (m *Manager) Remove(key skintone.Key) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return false
	}
	m.removeElement(elem)
	return true
}

// Clear disposes every entry and resets the hit/miss/eviction counters.
func (m *Manager) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, elem := range m.items {
		elem.Value.(*entry).set.Dispose()
	}
	m.items = make(map[skintone.Key]*list.Element)
	m.eviction.Init()
	m.hits = 0
	m.misses = 0
	m.evictions = 0

	m.log().Debug("texture cache cleared")
}

// Len returns the number of cached sets.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.eviction.Len()
}

// Capacity returns the configured entry limit.
func (m *Manager) Capacity() int {
	return m.capacity
}

// Info returns a snapshot of one entry without touching recency.
func (m *Manager) Info(key skintone.Key) (EntryInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	elem, ok := m.items[key]
	if !ok {
		return EntryInfo{}, false
	}
	return snapshot(elem.Value.(*entry)), true
}

// Entries returns snapshots of all entries, most recently used first.
func (m *Manager) Entries() []EntryInfo {
	m.mu.Lock()
	defer m.mu.Unlock()

	infos := make([]EntryInfo, 0, m.eviction.Len())
	for elem := m.eviction.Front(); elem != nil; elem = elem.Next() {
		infos = append(infos, snapshot(elem.Value.(*entry)))
	}
	return infos
}

func snapshot(e *entry) EntryInfo {
	return EntryInfo{
		Key:         e.key,
		ToneHex:     e.toneHex,
		AccessCount: e.accessCount,
		LastAccess:  e.lastAccess,
		MemoryBytes: e.set.MemoryBytes(),
	}
}

// evictOldest disposes and removes the least recently used entry
// (must be called with lock held).
func (m *Manager) evictOldest() {
	elem := m.eviction.Back()
	if elem == nil {
		return
	}
	e := elem.Value.(*entry)
	m.log().Debug("evicting least recently used texture set",
		"tone", e.toneHex,
		"accessCount", e.accessCount)
	m.removeElement(elem)
	m.evictions++
}

// removeElement disposes an entry and unlinks it (must be called with
// lock held).
func (m *Manager) removeElement(elem *list.Element) {
	m.eviction.Remove(elem)
	e := elem.Value.(*entry)
	delete(m.items, e.key)
	e.set.Dispose()
}
