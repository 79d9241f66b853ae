package hashkey

import (
	"testing"

	"github.com/unkn0wn-root/bakecache/codec"
)

type bake struct {
	Resolution int        `cbor:"res" msgpack:"res"`
	Upper      bool       `cbor:"upper" msgpack:"upper"`
	Sun        [3]float32 `cbor:"sun" msgpack:"sun"`
}

func TestEqualParamsEqualKeys(t *testing.T) {
	cases := []struct {
		name string
		h    Hasher[bake]
	}{
		{"cbor_default", New[bake](nil, 0)},
		{"msgpack", New[bake](codec.Msgpack[bake]{}, 0)},
		{"json", New[bake](codec.JSON[bake]{}, 0)},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			a := bake{Resolution: 512, Upper: true, Sun: [3]float32{0, -1, 0}}
			b := a
			if tc.h.MustSum(a) != tc.h.MustSum(b) {
				t.Fatalf("equal params hashed differently")
			}
			b.Upper = false
			if tc.h.MustSum(a) == tc.h.MustSum(b) {
				t.Fatalf("different params hashed equal (unexpected collision)")
			}
		})
	}
}

func TestSeedSeparatesKeyspaces(t *testing.T) {
	p := bake{Resolution: 256}
	if New[bake](nil, 1).MustSum(p) == New[bake](nil, 2).MustSum(p) {
		t.Fatalf("different seeds should give different keys")
	}
}

func TestCombineOrderSensitive(t *testing.T) {
	if Combine(1, 2) == Combine(2, 1) {
		t.Fatalf("Combine should depend on order")
	}
	if Combine(1, 2) != Combine(1, 2) {
		t.Fatalf("Combine not stable")
	}
}

func TestSumEncodeError(t *testing.T) {
	h := New[chan int](codec.JSON[chan int]{}, 0)
	if _, err := h.Sum(make(chan int)); err == nil {
		t.Fatalf("expected encode error for channel")
	}
}
