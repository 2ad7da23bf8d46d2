// Package store defines a minimal byte store with TTLs, used as an optional
// hot tier in front of the file-backed cache or standalone.
//
// Implementations MUST be byte-for-byte transparent: Get must return exactly
// the same []byte previously passed to Set for a key. If a backend performs
// internal transforms (e.g. compression), they must be fully reversed.
package store

import (
	"context"
	"time"
)

// Store is a minimal byte store with TTLs. Implementations must be safe for
// concurrent use.
type Store interface {
	// Get returns (value, true, nil) on hit; (nil, false, nil) on miss.
	// IO/remote errors are returned as (nil, false, err).
	Get(ctx context.Context, key string) ([]byte, bool, error)

	// Set stores value with the given TTL. Backends may ignore cost or TTL
	// if unsupported. Returns ok=false when the write was rejected under
	// pressure.
	Set(ctx context.Context, key string, value []byte, cost int64, ttl time.Duration) (ok bool, err error)

	// Del removes a key (best-effort).
	Del(ctx context.Context, key string) error

	// Close releases resources.
	Close(ctx context.Context) error
}
