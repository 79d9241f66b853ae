// Package report encodes the end-of-run summary of cloudbake.
package report

import (
	"encoding/json"
	"fmt"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/codec"
)

// Formats lists the supported output formats.
var Formats = []string{"json", "cbor", "msgpack", "protobuf"}

type Device struct {
	Allocated uint64 `json:"allocated" cbor:"allocated" msgpack:"allocated"`
	Released  uint64 `json:"released" cbor:"released" msgpack:"released"`
	Live      int    `json:"live" cbor:"live" msgpack:"live"`
	UsedBytes int64  `json:"used_bytes" cbor:"used_bytes" msgpack:"used_bytes"`
	Pooled    int    `json:"pooled" cbor:"pooled" msgpack:"pooled"`
}

type Report struct {
	Frames     int             `json:"frames" cbor:"frames" msgpack:"frames"`
	Renderers  int             `json:"renderers" cbor:"renderers" msgpack:"renderers"`
	Dispatches int             `json:"dispatches" cbor:"dispatches" msgpack:"dispatches"`
	Rebinds    int             `json:"rebinds" cbor:"rebinds" msgpack:"rebinds"`
	Cache      bakecache.Stats `json:"cache" cbor:"cache" msgpack:"cache"`
	HitRatio   float64         `json:"hit_ratio" cbor:"hit_ratio" msgpack:"hit_ratio"`
	Device     Device          `json:"device" cbor:"device" msgpack:"device"`
}

// Encode renders r in format. protobuf output is a google.protobuf.Struct
// carrying the same fields as the json form.
func Encode(r Report, format string) ([]byte, error) {
	r.HitRatio = r.Cache.HitRatio()
	switch format {
	case "json":
		return json.MarshalIndent(r, "", "  ")
	case "cbor":
		return codec.MustCBOR[Report](true).Encode(r)
	case "msgpack":
		return codec.Msgpack[Report]{}.Encode(r)
	case "protobuf":
		s, err := toStruct(r)
		if err != nil {
			return nil, err
		}
		return newStructCodec().Encode(s)
	default:
		return nil, fmt.Errorf("report: unknown format %q", format)
	}
}

// maxDecode bounds the input Decode accepts; a report is a few hundred bytes.
const maxDecode = 1 << 20

func limit[V any](c codec.Codec[V]) codec.LimitCodec[V] {
	return codec.LimitCodec[V]{Inner: c, MaxDecode: maxDecode}
}

// Decode parses b in format.
func Decode(b []byte, format string) (Report, error) {
	switch format {
	case "json":
		return limit[Report](codec.JSON[Report]{}).Decode(b)
	case "cbor":
		return limit[Report](codec.MustCBOR[Report](true)).Decode(b)
	case "msgpack":
		return limit[Report](codec.Msgpack[Report]{}).Decode(b)
	case "protobuf":
		s, err := limit[*structpb.Struct](newStructCodec()).Decode(b)
		if err != nil {
			return Report{}, err
		}
		js, err := s.MarshalJSON()
		if err != nil {
			return Report{}, err
		}
		return codec.JSON[Report]{}.Decode(js)
	default:
		return Report{}, fmt.Errorf("report: unknown format %q", format)
	}
}

func newStructCodec() codec.Protobuf[*structpb.Struct] {
	return codec.NewProtobuf(func() *structpb.Struct { return &structpb.Struct{} })
}

// toStruct goes through json so field names match the json form.
func toStruct(r Report) (*structpb.Struct, error) {
	js, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var m map[string]any
	if err := json.Unmarshal(js, &m); err != nil {
		return nil, err
	}
	return structpb.NewStruct(m)
}
