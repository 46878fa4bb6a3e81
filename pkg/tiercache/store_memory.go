package tiercache

import (
	"container/list"
	"sync"
	"time"
)

// memoryStore is the in-process tier: a map of decoded entries, optionally
// bounded by an LRU discipline. It is volatile and private to one Cache
// instance; it is always a copy of the slower tiers, never authoritative.
type memoryStore struct {
	mu       sync.Mutex
	entries  map[string]*list.Element
	order    *list.List // front = most recently used
	capacity int        // 0 means unbounded
}

type memoryItem struct {
	key   string
	entry *Entry
}

func newMemoryStore(capacity int) *memoryStore {
	return &memoryStore{
		entries:  make(map[string]*list.Element),
		order:    list.New(),
		capacity: capacity,
	}
}

func (s *memoryStore) get(key string) *Entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	el, ok := s.entries[key]
	if !ok {
		return nil
	}
	s.order.MoveToFront(el)
	return el.Value.(*memoryItem).entry
}

func (s *memoryStore) set(key string, e *Entry) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		el.Value.(*memoryItem).entry = e
		s.order.MoveToFront(el)
		return
	}
	s.entries[key] = s.order.PushFront(&memoryItem{key: key, entry: e})

	if s.capacity > 0 {
		for s.order.Len() > s.capacity {
			oldest := s.order.Back()
			if oldest == nil {
				break
			}
			s.order.Remove(oldest)
			delete(s.entries, oldest.Value.(*memoryItem).key)
		}
	}
}

func (s *memoryStore) delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if el, ok := s.entries[key]; ok {
		s.order.Remove(el)
		delete(s.entries, key)
	}
}

func (s *memoryStore) clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = make(map[string]*list.Element)
	s.order.Init()
}

func (s *memoryStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// sweep removes every expired entry and reports how many were removed.
func (s *memoryStore) sweep(now time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	removed := 0
	for key, el := range s.entries {
		if el.Value.(*memoryItem).entry.Expired(now) {
			s.order.Remove(el)
			delete(s.entries, key)
			removed++
		}
	}
	return removed
}
