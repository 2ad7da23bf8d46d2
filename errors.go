package bytecache

import "errors"

// ErrOutOfMemory is returned by Set when the marginal cost of an admission
// still exceeds the byte budget after every aged-out entry has been
// reclaimed. The cache remains consistent; nothing is partially inserted.
var ErrOutOfMemory = errors.New("bytecache: out of memory")
