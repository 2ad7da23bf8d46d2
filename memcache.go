package bytecache

import (
	"github.com/unkn0wn-root/bytecache/history"
)

type memCache[K comparable, V any] struct {
	limit  uint64
	size   SizeFunc[V]
	log    Logger
	hooks  Hooks
	values map[K]V
	hist   *history.History[K]
}

func newMemCache[K comparable, V any](opts Options[K, V]) *memCache[K, V] {
	threshold := opts.GenerationThreshold
	if threshold == 0 {
		threshold = max(opts.Limit/5, 1)
	}
	count := coalesce(opts.GenerationCount, 2)

	return &memCache[K, V]{
		limit:  opts.Limit,
		size:   opts.Size,
		log:    coalesce[Logger](opts.Logger, NopLogger{}),
		hooks:  coalesce[Hooks](opts.Hooks, NopHooks{}),
		values: make(map[K]V),
		hist:   history.New[K](threshold, count),
	}
}

func (c *memCache[K, V]) Set(key K, value V) error {
	newCost := c.size(value)

	// Replacing with an equal-or-smaller value never requires freeing;
	// only the marginal cost has to be admitted.
	marginal := newCost
	if existing, ok := c.values[key]; ok {
		if old := c.size(existing); old < newCost {
			marginal = newCost - old
		} else {
			marginal = 0
		}
	}

	if !c.freeMemory(key, marginal, newCost) {
		// The attempted replacement must not leave a larger-than-planned
		// footprint; drop the key entirely.
		if _, ok := c.values[key]; ok {
			delete(c.values, key)
			c.hist.Remove(key)
		}
		c.hooks.AdmissionRejected(marginal, c.hist.Usage())
		c.log.Debug("admission rejected", Fields{"cost": newCost, "usage": c.hist.Usage(), "limit": c.limit})
		return ErrOutOfMemory
	}

	c.values[key] = value
	c.hist.Hit(key, newCost)
	return nil
}

// freeMemory reclaims aged-out entries until marginal more bytes fit under
// the limit. Only the reclamation band is drained: entries still tracked in
// a generation are never freed on demand, they have to age out first. A
// spill that reclaims nothing means admission fails.
//
// When the key under admission is itself reclaimed, its existing cost no
// longer offsets the new one and the full cost must fit.
func (c *memCache[K, V]) freeMemory(key K, marginal, full uint64) bool {
	for c.hist.Usage()+marginal > c.limit {
		evicted, freed := 0, uint64(0)
		c.hist.Spill(func(k K, cost uint64) {
			delete(c.values, k)
			if k == key {
				marginal = full
			}
			evicted++
			freed += cost
		})
		if evicted == 0 {
			return false
		}
		c.hooks.Evicted(evicted, freed)
		c.log.Debug("spilled aged-out entries", Fields{"evicted": evicted, "freed": freed})
	}
	return true
}

func (c *memCache[K, V]) Get(key K) (V, bool) {
	v, ok := c.values[key]
	if !ok {
		var zero V
		return zero, false
	}
	// reads extend lifetime exactly like writes
	c.hist.Hit(key, c.size(v))
	return v, true
}

func (c *memCache[K, V]) Delete(key K) bool {
	if _, ok := c.values[key]; !ok {
		return false
	}
	delete(c.values, key)
	c.hist.Remove(key)
	return true
}

func (c *memCache[K, V]) Usage() uint64 { return c.hist.Usage() }

func (c *memCache[K, V]) Limit() uint64 { return c.limit }

func (c *memCache[K, V]) Len() int { return len(c.values) }

func (c *memCache[K, V]) DetailedUsage() []Band { return c.hist.Bands() }

func (c *memCache[K, V]) Clear() {
	clear(c.values)
	c.hist.Clear()
}
