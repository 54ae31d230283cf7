package distance

import (
	"math"
	"sync"

	"market-finder/internal/metrics"
	"market-finder/internal/models"
)

// EarthRadiusKm is the mean Earth radius used by Haversine
const EarthRadiusKm = 6371.0

// minMemoCapacity is the floor applied by NewMemo
const minMemoCapacity = 64

// Haversine returns the great-circle distance between two points in kilometers
func Haversine(a, b models.Coordinates) float64 {
	lat1 := a.Lat * math.Pi / 180.0
	lat2 := b.Lat * math.Pi / 180.0
	dLat := lat2 - lat1
	dLng := (b.Lng - a.Lng) * math.Pi / 180.0

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)

	return EarthRadiusKm * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// pairKey is the canonical unordered pair: the lexicographically smaller
// endpoint always comes first, so (a,b) and (b,a) share one slot.
type pairKey struct {
	a, b models.Coordinates
}

func canonicalPair(a, b models.Coordinates) pairKey {
	if b.Lat < a.Lat || (b.Lat == a.Lat && b.Lng < a.Lng) {
		a, b = b, a
	}
	return pairKey{a: a, b: b}
}

type memoEntry struct {
	key        pairKey
	km         float64
	prev, next *memoEntry
}

// Memo is a bounded LRU memo of haversine results, scoped to one search.
// Keys are exact coordinates; no rounding is applied. Safe for concurrent use.
type Memo struct {
	mu       sync.Mutex
	capacity int
	items    map[pairKey]*memoEntry
	// head.next is most recently used, tail.prev least recently used
	head, tail *memoEntry

	hits   int64
	misses int64
}

// NewMemo creates a memo holding at most capacity pairs (minimum 64)
func NewMemo(capacity int) *Memo {
	if capacity < minMemoCapacity {
		capacity = minMemoCapacity
	}
	m := &Memo{
		capacity: capacity,
		items:    make(map[pairKey]*memoEntry, capacity),
		head:     &memoEntry{},
		tail:     &memoEntry{},
	}
	m.head.next = m.tail
	m.tail.prev = m.head
	return m
}

// MemoCapacityFor returns the default memo size for a candidate count
func MemoCapacityFor(candidates int) int {
	return 4 * candidates
}

// Distance returns Haversine(a, b), computing it at most once per resident pair
func (m *Memo) Distance(a, b models.Coordinates) float64 {
	key := canonicalPair(a, b)

	m.mu.Lock()
	if e, ok := m.items[key]; ok {
		m.moveToFront(e)
		m.hits++
		m.mu.Unlock()
		metrics.MemoHits.Inc()
		return e.km
	}
	m.misses++
	m.mu.Unlock()
	metrics.MemoMisses.Inc()

	// computed from the canonical order so both directions agree bit-for-bit
	km := Haversine(key.a, key.b)

	m.mu.Lock()
	defer m.mu.Unlock()
	if e, ok := m.items[key]; ok {
		m.moveToFront(e)
		return e.km
	}
	e := &memoEntry{key: key, km: km}
	m.addToFront(e)
	m.items[key] = e
	for len(m.items) > m.capacity {
		m.evictOldest()
	}
	return km
}

// Len returns the number of resident pairs
func (m *Memo) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.items)
}

// Stats returns hit and miss counts
func (m *Memo) Stats() (hits, misses int64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.hits, m.misses
}

func (m *Memo) addToFront(e *memoEntry) {
	e.prev = m.head
	e.next = m.head.next
	m.head.next.prev = e
	m.head.next = e
}

func (m *Memo) unlink(e *memoEntry) {
	e.prev.next = e.next
	e.next.prev = e.prev
}

func (m *Memo) moveToFront(e *memoEntry) {
	m.unlink(e)
	m.addToFront(e)
}

func (m *Memo) evictOldest() {
	oldest := m.tail.prev
	if oldest == m.head {
		return
	}
	m.unlink(oldest)
	delete(m.items, oldest.key)
}

// FromTarget computes the distance from target to every candidate, index-aligned.
// The returned slice is the per-search snapshot that every strategy and the
// optimizer read from.
func FromTarget(memo *Memo, target models.Coordinates, candidates []models.Candidate) []float64 {
	out := make([]float64, len(candidates))
	for i := range candidates {
		out[i] = memo.Distance(target, candidates[i].GetCoords())
	}
	return out
}
