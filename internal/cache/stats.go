package cache

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Stats is a point-in-time view of cache performance, computed on
// demand. Safe to call on an empty cache.
type Stats struct {
	Entries           int     `json:"entries"`
	Capacity          int     `json:"capacity"`
	Hits              uint64  `json:"hits"`
	Misses            uint64  `json:"misses"`
	Evictions         uint64  `json:"evictions"`
	HitRatePercent    float64 `json:"hit_rate_percent"`
	ApproxMemoryBytes int64   `json:"approx_memory_bytes"`
	OldestEntryAgeMs  int64   `json:"oldest_entry_age_ms"`
}

// Stats computes the current statistics. The hit rate is
// 100*hits/(hits+misses), zero when nothing has been looked up yet;
// the oldest age derives from the least recently used entry.
func (m *Manager) Stats() Stats {
	m.mu.Lock()
	defer m.mu.Unlock()

	s := Stats{
		Entries:   m.eviction.Len(),
		Capacity:  m.capacity,
		Hits:      m.hits,
		Misses:    m.misses,
		Evictions: m.evictions,
	}

	if total := m.hits + m.misses; total > 0 {
		s.HitRatePercent = 100 * float64(m.hits) / float64(total)
	}

	for elem := m.eviction.Front(); elem != nil; elem = elem.Next() {
		s.ApproxMemoryBytes += elem.Value.(*entry).set.MemoryBytes()
	}

	if tail := m.eviction.Back(); tail != nil {
		age := time.Since(tail.Value.(*entry).lastAccess)
		if age > 0 {
			s.OldestEntryAgeMs = age.Milliseconds()
		}
	}
	return s
}

func (s Stats) String() string {
	return fmt.Sprintf("entries=%d/%d hits=%d misses=%d hitRate=%.1f%% mem=%s oldest=%s",
		s.Entries, s.Capacity, s.Hits, s.Misses, s.HitRatePercent,
		humanize.Bytes(uint64(s.ApproxMemoryBytes)),
		time.Duration(s.OldestEntryAgeMs)*time.Millisecond)
}
