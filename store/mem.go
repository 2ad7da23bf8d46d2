package store

import (
	"context"
	"sync"
	"time"

	"github.com/unkn0wn-root/bytecache"
)

// Mem adapts the in-memory bytecache.Cache to the Store interface, so the
// generational cache itself can serve as a hot tier. TTL and cost are
// ignored; recency and the byte budget govern lifetime instead.
//
// The underlying cache performs no internal locking; Mem adds the exclusive
// boundary required for concurrent callers.
type Mem struct {
	mu sync.Mutex
	c  bytecache.Cache[string, []byte]
}

var _ Store = (*Mem)(nil)

// NewMem builds a Mem over a fresh bytecache.Cache with the given byte
// budget.
func NewMem(limit uint64) (*Mem, error) {
	c, err := bytecache.New[string, []byte](bytecache.Options[string, []byte]{
		Limit: limit,
		Size:  bytecache.BytesSize,
	})
	if err != nil {
		return nil, err
	}
	return &Mem{c: c}, nil
}

// WrapMem adapts an existing cache. The adapter assumes exclusive ownership.
func WrapMem(c bytecache.Cache[string, []byte]) *Mem {
	return &Mem{c: c}
}

func (m *Mem) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.Lock()
	v, ok := m.c.Get(key)
	m.mu.Unlock()
	if !ok {
		return nil, false, nil
	}
	return v, true, nil
}

func (m *Mem) Set(_ context.Context, key string, value []byte, _ int64, _ time.Duration) (bool, error) {
	m.mu.Lock()
	err := m.c.Set(key, value)
	m.mu.Unlock()
	if err != nil {
		// budget pressure, not an IO failure
		return false, nil
	}
	return true, nil
}

func (m *Mem) Del(_ context.Context, key string) error {
	m.mu.Lock()
	m.c.Delete(key)
	m.mu.Unlock()
	return nil
}

func (m *Mem) Close(context.Context) error {
	m.mu.Lock()
	m.c.Clear()
	m.mu.Unlock()
	return nil
}
