// Package hashkey derives bakecache keys from parameter sets.
//
// A parameter value is encoded with a deterministic codec and the bytes are
// hashed with xxhash64. Equal parameter sets always produce equal keys;
// distinct sets may collide, and nothing here detects that.
package hashkey

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/codec"
)

// Hasher computes keys for parameter sets of type P.
type Hasher[P any] struct {
	codec codec.Codec[P]
	seed  uint64
}

// New returns a Hasher using c. A nil codec selects canonical CBOR.
// Hashers with different seeds produce unrelated keys for the same input, which
// keeps two kinds of resource from sharing a keyspace.
func New[P any](c codec.Codec[P], seed uint64) Hasher[P] {
	if c == nil {
		c = codec.MustCBOR[P](true)
	}
	return Hasher[P]{codec: c, seed: seed}
}

func (h Hasher[P]) Sum(p P) (bakecache.Key, error) {
	b, err := h.codec.Encode(p)
	if err != nil {
		return 0, fmt.Errorf("hashkey: encode: %w", err)
	}
	d := xxhash.New()
	var s [8]byte
	binary.LittleEndian.PutUint64(s[:], h.seed)
	_, _ = d.Write(s[:])
	_, _ = d.Write(b)
	return bakecache.Key(d.Sum64()), nil
}

// MustSum is Sum for parameter types whose encoding cannot fail (plain structs
// of numbers, strings and bools).
func (h Hasher[P]) MustSum(p P) bakecache.Key {
	k, err := h.Sum(p)
	if err != nil {
		panic(err)
	}
	return k
}

// Combine folds keys into one, order-sensitive.
func Combine(keys ...bakecache.Key) bakecache.Key {
	buf := make([]byte, 8*len(keys))
	for i, k := range keys {
		binary.LittleEndian.PutUint64(buf[i*8:], uint64(k))
	}
	return bakecache.Key(xxhash.Sum64(buf))
}
