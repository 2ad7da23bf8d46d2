// Package asynchook decouples hook sinks from the cache's hot path: events
// are queued to a small worker pool and dropped when the queue is full.
//
// usage:
//
//	raw := sloghooks.New(slog.Default(), sloghooks.Options{EvictedEvery: 10})
//	hooks := asynchook.New(raw, 1, 1000) // 1 worker; queue 1000 events
//	defer hooks.Close()
//
//	cache, _ := bytecache.New[string, []byte](bytecache.Options[string, []byte]{
//	    Limit: 64 << 20,
//	    Size:  bytecache.BytesSize,
//	    Hooks: hooks, // or `raw` if you don't want async
//	})
package asynchook

import (
	"sync"

	"github.com/unkn0wn-root/bytecache"
)

type Hooks struct {
	inner bytecache.Hooks
	q     chan func()
	wg    sync.WaitGroup
	once  sync.Once
}

var _ bytecache.Hooks = (*Hooks)(nil)

func New(inner bytecache.Hooks, workers, qlen int) *Hooks {
	if workers <= 0 {
		workers = 1
	}
	if qlen <= 0 {
		qlen = 1024
	}

	h := &Hooks{inner: inner, q: make(chan func(), qlen)}
	h.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer h.wg.Done()
			for f := range h.q {
				f()
			}
		}()
	}
	return h
}

func (h *Hooks) Close() {
	h.once.Do(func() {
		close(h.q)
		h.wg.Wait()
	})
}

func (h *Hooks) try(f func()) {
	select {
	case h.q <- f:
	default: // drop
	}
}

func (h *Hooks) Evicted(count int, bytes uint64) { h.try(func() { h.inner.Evicted(count, bytes) }) }
func (h *Hooks) SelfHeal(key, reason string)     { h.try(func() { h.inner.SelfHeal(key, reason) }) }
func (h *Hooks) AdmissionRejected(cost, usage uint64) {
	h.try(func() { h.inner.AdmissionRejected(cost, usage) })
}
