package fscache

import (
	"bytes"
	"encoding/binary"
	"errors"
	"time"
)

// Meta sidecar: magic(4) | ver(1) | cost(u64 be) | storedAt unix-nano (i64 be)

const metaVersion byte = 1

const metaSize = 4 + 1 + 8 + 8

var (
	ErrCorruptMeta = errors.New("fscache: corrupt meta entry")

	magic4 = [...]byte{'B', 'C', 'M', 'E'}
)

type meta struct {
	Cost     uint64
	StoredAt time.Time
}

func encodeMeta(m meta) []byte {
	b := make([]byte, metaSize)
	copy(b, magic4[:])
	b[4] = metaVersion
	binary.BigEndian.PutUint64(b[5:], m.Cost)
	binary.BigEndian.PutUint64(b[13:], uint64(m.StoredAt.UnixNano()))
	return b
}

func decodeMeta(b []byte) (meta, error) {
	if len(b) != metaSize || !bytes.Equal(b[:4], magic4[:]) || b[4] != metaVersion {
		return meta{}, ErrCorruptMeta
	}
	return meta{
		Cost:     binary.BigEndian.Uint64(b[5:]),
		StoredAt: time.Unix(0, int64(binary.BigEndian.Uint64(b[13:]))),
	}, nil
}
