// Package history implements a generational recency tracker with O(1)
// amortized hits and eviction decisions.
//
// Keys live in time-sliced generations instead of an exactly ordered list.
// Fresh and refreshed keys go to the open generation (next); when next fills
// up it is sealed into a ring of past generations, and the oldest sealed
// generation falls off into the reclamation band (old). Spill drains the
// reclamation band, which is the owner's signal to evict the corresponding
// values. The trade is approximate recency for constant-time bookkeeping.
package history

// Band reports the usage of one age band, oldest first in History.Bands.
// The reclamation band has no cap and reports Limited=false.
type Band struct {
	Usage   uint64
	Limit   uint64
	Limited bool
}

// History tracks key recency across generations. A key occurs in at most one
// of {next, ring, old} at any time.
//
// Not safe for concurrent use; callers share it behind their own
// serialization boundary.
type History[K comparable] struct {
	maxGenerationUsage uint64
	generationCount    int

	next *Bucket[K] // open generation, receives all hits
	old  *Bucket[K] // reclamation band, drained by Spill
	ring []*Bucket[K]
}

// New creates a tracker that seals the open generation once its usage reaches
// maxGenerationUsage and retains generationCount sealed generations before
// they fall off into the reclamation band.
func New[K comparable](maxGenerationUsage uint64, generationCount int) *History[K] {
	return &History[K]{
		maxGenerationUsage: maxGenerationUsage,
		generationCount:    generationCount,
		next:               NewBucket[K](),
		old:                NewBucket[K](),
		ring:               make([]*Bucket[K], 0, generationCount),
	}
}

// Hit marks key as recently used with the given cost.
//
// A key already in the open generation with the same cost is left alone; with
// a different cost it is updated in place (a size change does not reset
// recency). Otherwise the key is dug out of whichever band currently holds it
// and inserted into the open generation.
//
// Rotation is checked after insertion: a generation may temporarily exceed
// the threshold by one oversized item.
func (h *History[K]) Hit(key K, cost uint64) {
	h.insert(key, cost)
	if h.next.Usage() >= h.maxGenerationUsage {
		h.rotate()
	}
}

func (h *History[K]) insert(key K, cost uint64) {
	if old, ok := h.next.Get(key); ok {
		if old != cost {
			h.next.Insert(key, cost)
		}
		return
	}

	h.old.Remove(key)
	h.digOut(key)

	h.next.Insert(key, cost)
}

// Remove deletes key from whichever band holds it; no-op if absent.
func (h *History[K]) Remove(key K) bool {
	if h.next.Remove(key) {
		return true
	}
	if h.digOut(key) {
		return true
	}
	return h.old.Remove(key)
}

// Spill moves the entire contents of the reclamation band to collect and
// clears the band. Entries handed to collect have aged out of every tracked
// generation; the owning cache evicts their values in response.
func (h *History[K]) Spill(collect func(key K, cost uint64)) {
	for k, cost := range h.old.All() {
		collect(k, cost)
	}
	h.old.Clear()
}

func (h *History[K]) Clear() {
	h.next.Clear()
	h.old.Clear()
	h.ring = h.ring[:0]
}

// Usage returns the total cost across all bands.
func (h *History[K]) Usage() uint64 {
	total := h.old.Usage()
	for _, b := range h.ring {
		total += b.Usage()
	}
	return total + h.next.Usage()
}

// Usages returns per-band usage, oldest first: reclamation band, sealed
// generations, open generation.
func (h *History[K]) Usages() []uint64 {
	res := make([]uint64, 0, 2+len(h.ring))
	res = append(res, h.old.Usage())
	for _, b := range h.ring {
		res = append(res, b.Usage())
	}
	return append(res, h.next.Usage())
}

// Bands is like Usages but also reports each band's cap. The reclamation
// band is uncapped.
func (h *History[K]) Bands() []Band {
	res := make([]Band, 0, 2+len(h.ring))
	res = append(res, Band{Usage: h.old.Usage()})
	for _, b := range h.ring {
		res = append(res, Band{Usage: b.Usage(), Limit: h.maxGenerationUsage, Limited: true})
	}
	return append(res, Band{Usage: h.next.Usage(), Limit: h.maxGenerationUsage, Limited: true})
}

// digOut scans the sealed generations for key and removes it. Linear in the
// ring length, which is a small fixed constant.
func (h *History[K]) digOut(key K) bool {
	for _, b := range h.ring {
		if b.Remove(key) {
			return true
		}
	}
	return false
}

// rotate seals the open generation into the ring. When the ring is full the
// oldest generation is drained into the reclamation band and its emptied
// storage is recycled as the new open generation instead of allocating a
// fresh one.
func (h *History[K]) rotate() {
	var fresh *Bucket[K]
	if len(h.ring) > 0 && len(h.ring) >= h.generationCount {
		oldest := h.ring[0]
		copy(h.ring, h.ring[1:])
		h.ring = h.ring[:len(h.ring)-1]

		h.old.Extend(oldest.All())
		oldest.Clear()
		fresh = oldest
	} else {
		fresh = NewBucket[K]()
	}

	h.ring = append(h.ring, h.next)
	h.next = fresh
}
