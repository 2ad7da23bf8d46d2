package bytecache

import (
	"fmt"

	"github.com/unkn0wn-root/bytecache/history"
)

// SizeFunc reports the cost of a value in bytes. It must be cheap and
// deterministic for the lifetime of a stored value.
type SizeFunc[V any] func(V) uint64

// Band is one age band of the recency tracker, oldest first in DetailedUsage.
type Band = history.Band

// Cache is a byte-budgeted in-memory key/value store with approximate
// recency-based eviction.
//
// Reads refresh recency exactly like writes. Entries leave the cache either
// through Delete or by aging out of every tracked generation, at which point
// a later admission reclaims them.
//
// A Cache is a single-owner data structure: it performs no internal locking
// and concurrent callers must serialize access externally (one lock around
// the whole cache, or a single owning goroutine).
type Cache[K comparable, V any] interface {
	// Set stores value under key. It returns ErrOutOfMemory when the value
	// cannot be admitted even after reclaiming every aged-out entry. The
	// cache stays consistent on failure, but a failed replacement removes
	// the key entirely.
	Set(key K, value V) error

	// Get returns the live value for key and refreshes its recency.
	Get(key K) (V, bool)

	// Delete removes key and reports whether it was present.
	Delete(key K) bool

	Usage() uint64
	Limit() uint64
	Len() int

	// DetailedUsage reports per-band usage of the tracker, oldest first.
	DetailedUsage() []Band

	Clear()
}

// Options tune the cache. Limit and Size are required; the rest default to
// the reference sizing.
type Options[K comparable, V any] struct {
	// Required
	Limit uint64      // total byte budget
	Size  SizeFunc[V] // value cost; e.g. BytesSize for []byte

	// GenerationThreshold caps the open generation. 0 => Limit/5, minimum 1.
	GenerationThreshold uint64
	// GenerationCount is the number of sealed generations retained before
	// entries fall out for reclamation. 0 => 2.
	GenerationCount int

	Logger Logger // nil => NopLogger
	Hooks  Hooks  // nil => NopHooks
}

// New builds a Cache from opts.
func New[K comparable, V any](opts Options[K, V]) (Cache[K, V], error) {
	if opts.Limit == 0 {
		return nil, fmt.Errorf("bytecache: limit is required")
	}
	if opts.Size == nil {
		return nil, fmt.Errorf("bytecache: size func is required")
	}
	if opts.GenerationCount < 0 {
		return nil, fmt.Errorf("bytecache: negative generation count")
	}
	return newMemCache(opts), nil
}

// BytesSize is the SizeFunc for raw byte slice values.
func BytesSize(b []byte) uint64 { return uint64(len(b)) }

// StringSize is the SizeFunc for string values.
func StringSize(s string) uint64 { return uint64(len(s)) }
