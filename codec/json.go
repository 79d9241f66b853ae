package codec

import "encoding/json"

// JSON uses encoding/json. Struct fields encode in declaration order and map
// keys sorted, so it is deterministic for hashing too.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
