// Package codec turns values into bytes. bakecache uses codecs in two places:
// hashkey encodes parameter sets before hashing them, so encodings must be
// deterministic; report encodes stats snapshots for the CLI.
package codec

// Codec encodes/decodes values V to []byte.
type Codec[V any] interface {
	Encode(V) ([]byte, error)
	Decode([]byte) (V, error)
}
