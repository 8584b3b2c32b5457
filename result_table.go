package computecache

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/karupanerura/compute-cache/internal/keyhash"
)

// entry is the record of a cached key.
// lastAccess is the key's row in the recency table; keeping it on the same record as the handle
// means a key is never present in one table and missing from the other.
type entry[K KeyConstraint, V ValueConstraint] struct {
	key        K
	handle     *Handle[V]
	lastAccess atomic.Int64 // unix nanoseconds
}

func (e *entry[K, V]) touch(now int64) {
	e.lastAccess.Store(now)
}

type shard[K KeyConstraint, V ValueConstraint] struct {
	mu sync.RWMutex
	m  map[K]*entry[K, V]
}

// resultTable maps keys to entries. A key always lives in the same shard,
// and the shard lock makes insert-if-absent and remove indivisible for that key.
type resultTable[K KeyConstraint, V ValueConstraint] struct {
	shards []*shard[K, V]
	hash   func(K) uint64
	size   atomic.Int64
}

func newResultTable[K KeyConstraint, V ValueConstraint](shards int) *resultTable[K, V] {
	t := &resultTable[K, V]{
		shards: make([]*shard[K, V], shards),
		hash:   keyhash.For[K](),
	}
	for i := range t.shards {
		t.shards[i] = &shard[K, V]{m: map[K]*entry[K, V]{}}
	}
	return t
}

func (t *resultTable[K, V]) resolveShard(key K) *shard[K, V] {
	if len(t.shards) == 1 {
		return t.shards[0]
	}
	return t.shards[t.hash(key)%uint64(len(t.shards))]
}

// lookupOrInsert returns the entry for key, creating it with create if absent.
// The boolean result is true only for the caller whose entry was installed.
func (t *resultTable[K, V]) lookupOrInsert(key K, create func() *entry[K, V]) (*entry[K, V], bool) {
	s := t.resolveShard(key)

	s.mu.RLock()
	e, ok := s.m[key]
	s.mu.RUnlock()
	if ok {
		return e, false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.m[key]; ok {
		return e, false
	}

	e = create()
	s.m[key] = e
	t.size.Add(1)
	return e, true
}

// remove deletes key only while it still maps to e.
func (t *resultTable[K, V]) remove(key K, e *entry[K, V]) bool {
	s := t.resolveShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m[key] != e {
		return false
	}
	delete(s.m, key)
	t.size.Add(-1)
	return true
}

// removeIfStale deletes key only while it still maps to e and e was last accessed before cutoff.
func (t *resultTable[K, V]) removeIfStale(key K, e *entry[K, V], cutoff int64) bool {
	s := t.resolveShard(key)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.m[key] != e || e.lastAccess.Load() >= cutoff {
		return false
	}
	delete(s.m, key)
	t.size.Add(-1)
	return true
}

func (t *resultTable[K, V]) len() int {
	return int(t.size.Load())
}

type candidate[K KeyConstraint, V ValueConstraint] struct {
	entry      *entry[K, V]
	lastAccess int64
}

// oldest returns up to n entries ordered from the least recently accessed.
// The snapshot is taken one shard at a time, so it may miss concurrent touches.
func (t *resultTable[K, V]) oldest(n int) []candidate[K, V] {
	if n <= 0 {
		return nil
	}

	all := make([]candidate[K, V], 0, t.len())
	for _, s := range t.shards {
		s.mu.RLock()
		for _, e := range s.m {
			all = append(all, candidate[K, V]{entry: e, lastAccess: e.lastAccess.Load()})
		}
		s.mu.RUnlock()
	}

	slices.SortFunc(all, func(a, b candidate[K, V]) int {
		return cmp.Compare(a.lastAccess, b.lastAccess)
	})
	if len(all) > n {
		all = all[:n]
	}
	return all
}
