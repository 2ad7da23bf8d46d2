// Package bytecache implements an in-process, capacity-bounded cache with
// approximate recency-based eviction.
//
// Recency is tracked by a generational bucket history (package history)
// instead of an exactly ordered list: recently touched keys live in the open
// generation, sealed generations age through a small ring, and keys that fall
// off the ring are reclaimed the next time an admission needs room. Hits and
// eviction decisions are O(1) amortized.
//
// Components:
//   - history: the generational recency tracker (Bucket, History).
//   - Cache / New: the byte-budgeted in-memory store consuming a History.
//   - pathgen: sharded on-disk path derivation for file-backed storage.
//   - fscache: a file-backed variant layered on the same tracker, with
//     pluggable value codecs (codec) and an optional hot tier (store).
//
// The in-memory cache is a single-owner structure with no internal locking;
// rotation touches multiple buckets as one logical step, so callers embed it
// behind one exclusive boundary rather than fine-grained locks.
//
// Sizing: New derives the per-generation threshold as Limit/5 (minimum 1)
// and keeps 2 sealed generations, giving three to four effective age bands.
// Both knobs are exposed in Options.
package bytecache
