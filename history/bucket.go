package history

import "iter"

// Bucket is a size-tracked set of keys. Every key carries a byte cost and the
// bucket maintains the running sum of all costs; the sum is adjusted on each
// mutation, never recomputed.
//
// Inserting a key that is already present replaces its cost and adjusts the
// aggregate by the delta.
type Bucket[K comparable] struct {
	entries map[K]uint64
	usage   uint64
}

func NewBucket[K comparable]() *Bucket[K] {
	return &Bucket[K]{entries: make(map[K]uint64)}
}

func (b *Bucket[K]) Contains(key K) bool {
	_, ok := b.entries[key]
	return ok
}

// Get returns the cost recorded for key.
func (b *Bucket[K]) Get(key K) (uint64, bool) {
	cost, ok := b.entries[key]
	return cost, ok
}

// Insert upserts key with the given cost and reports whether the key was new.
func (b *Bucket[K]) Insert(key K, cost uint64) bool {
	old, ok := b.entries[key]
	if ok {
		b.usage -= old
	}
	b.entries[key] = cost
	b.usage += cost
	return !ok
}

// Remove deletes key and reports whether it was present. Removing an absent
// key is a no-op.
func (b *Bucket[K]) Remove(key K) bool {
	cost, ok := b.entries[key]
	if !ok {
		return false
	}
	b.usage -= cost
	delete(b.entries, key)
	return true
}

// All iterates over the live (key, cost) pairs in unspecified order. The
// returned sequence is restartable.
func (b *Bucket[K]) All() iter.Seq2[K, uint64] {
	return func(yield func(K, uint64) bool) {
		for k, cost := range b.entries {
			if !yield(k, cost) {
				return
			}
		}
	}
}

// Extend bulk-upserts all pairs from the sequence. Equivalent to repeated
// Insert.
func (b *Bucket[K]) Extend(pairs iter.Seq2[K, uint64]) {
	for k, cost := range pairs {
		b.Insert(k, cost)
	}
}

func (b *Bucket[K]) Clear() {
	clear(b.entries)
	b.usage = 0
}

// Usage returns the sum of all entry costs.
func (b *Bucket[K]) Usage() uint64 { return b.usage }

func (b *Bucket[K]) Len() int { return len(b.entries) }
