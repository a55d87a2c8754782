package core

// UnreadStore tracks per-peer unread private message counts across restarts.
//
// Mutation is deliberately confined to two paths: Increment is called only by
// the event router when a PM arrives for a thread that is not focused, and
// Reset is called only when a thread gains focus. Keeping every other
// component read-only against this store is what prevents double and under
// counting.
type UnreadStore interface {
	// Load returns the persisted counters. Absent or malformed persisted
	// state yields an empty mapping, never an error.
	Load() map[string]int
	Count(peer string) int
	Increment(peer string)
	Reset(peer string)
}

// MemoryUnreadStore keeps counters in process memory. It backs tests and is
// the fallback when the durable store cannot be opened.
type MemoryUnreadStore struct {
	counts *SyncMap[string, int]
}

func NewMemoryUnreadStore() *MemoryUnreadStore {
	return &MemoryUnreadStore{counts: NewSyncMap[string, int]()}
}

func (s *MemoryUnreadStore) Load() map[string]int {
	counts := make(map[string]int)
	s.counts.RRange(func(peer string, n int) bool {
		if n > 0 {
			counts[peer] = n
		}
		return true
	})
	return counts
}

func (s *MemoryUnreadStore) Count(peer string) int {
	n, _ := s.counts.Load(peer)
	return n
}

func (s *MemoryUnreadStore) Increment(peer string) {
	s.counts.LoadAndStore(peer, func(n int, _ bool) int {
		return n + 1
	})
}

func (s *MemoryUnreadStore) Reset(peer string) {
	s.counts.Delete(peer)
}
