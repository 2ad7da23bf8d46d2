// Package pathgen derives sharded relative paths from cache keys for
// file-backed storage.
//
// Long keys are split into a fixed number of fixed-length subdirectories so
// that a flat keyspace does not land in one giant directory: "aabbcc" with
// the defaults becomes "aa/bb/cc/aabbcc". Every blob has a sibling metadata
// path with a ".meta" suffix.
package pathgen

import (
	"path"
	"strings"
)

const (
	// DefaultSubdirs is the default number of shard directories, e.g.
	// "FSHFJKDS" generates FS/HF/JK.
	DefaultSubdirs = 3

	// DefaultSubdirLen is the default shard directory name length.
	DefaultSubdirLen = 2

	// MetaSuffix is appended to a blob's file name for its metadata path.
	MetaSuffix = ".meta"
)

// ReplaceInvalidPathChars substitutes path separators inside a key so the
// key cannot escape the shard layout.
func ReplaceInvalidPathChars(key string) string {
	return strings.ReplaceAll(key, "/", "_")
}

// Construct builds the sharded relative path for key. subdirs is the maximum
// number of shard directories, subdirLen their name length. The empty key
// has no path.
func Construct(key string, subdirs, subdirLen int) (string, bool) {
	if key == "" {
		return "", false
	}

	key = ReplaceInvalidPathChars(key)

	parts := make([]string, 0, subdirs+1)
	offset := 0
	for i := 0; i < subdirs; i++ {
		next := offset + subdirLen
		if next > len(key) {
			break
		}
		if next > offset {
			parts = append(parts, key[offset:next])
		}
		offset = next
	}
	parts = append(parts, key)

	return path.Join(parts...), true
}

// ConstructDefault is Construct with DefaultSubdirs and DefaultSubdirLen.
func ConstructDefault(key string) (string, bool) {
	return Construct(key, DefaultSubdirs, DefaultSubdirLen)
}

// PathGen holds the derived paths for one key.
type PathGen struct {
	base string
	ok   bool
}

func New(key string, subdirs, subdirLen int) PathGen {
	base, ok := Construct(key, subdirs, subdirLen)
	return PathGen{base: base, ok: ok}
}

// Default is New with the default shard parameters.
func Default(key string) PathGen {
	base, ok := ConstructDefault(key)
	return PathGen{base: base, ok: ok}
}

// FilePath returns the relative path of the binary blob.
func (p PathGen) FilePath() (string, bool) {
	return p.base, p.ok
}

// MetaPath returns the relative path of the blob's metadata file.
func (p PathGen) MetaPath() (string, bool) {
	if !p.ok {
		return "", false
	}
	return p.base + MetaSuffix, true
}
