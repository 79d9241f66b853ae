package cloudlayer

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/hashkey"
)

// sunQuantum is the step sun directions are rounded to before hashing, so
// sub-quantum jitter of the light does not trigger a re-bake.
const sunQuantum = 1.0 / 256

type layerBake struct {
	CloudMap  string     `cbor:"1,keyasint"`
	Opacity   [4]float32 `cbor:"2,keyasint"`
	Rotation  float32    `cbor:"3,keyasint"`
	Lighting  bool       `cbor:"4,keyasint"`
	Steps     int        `cbor:"5,keyasint"`
	Thickness float32    `cbor:"6,keyasint"`
}

// bakeParams is everything outside the layers that changes the baked textures.
type bakeParams struct {
	Resolution       int      `cbor:"1,keyasint"`
	Upper            bool     `cbor:"2,keyasint"`
	Layers           int      `cbor:"3,keyasint"`
	Shadows          bool     `cbor:"4,keyasint"`
	ShadowResolution int      `cbor:"5,keyasint"`
	Sun              [3]int32 `cbor:"6,keyasint"`
	HasSun           bool     `cbor:"7,keyasint"`
}

// Keyer computes the baking key of a cloud layer under a sun.
type Keyer struct {
	h     hashkey.Hasher[bakeParams]
	layer hashkey.Hasher[layerBake]
}

const (
	keySeed   = 0xC10D1A7E
	layerSeed = 0xC10D1A7F
)

func NewKeyer() Keyer {
	return Keyer{
		h:     hashkey.New[bakeParams](nil, keySeed),
		layer: hashkey.New[layerBake](nil, layerSeed),
	}
}

// Key hashes the parameters that affect baking. Render-only fields (scrolling,
// altitude, distortion, tint, opacity) are excluded so animating them never re-bakes.
// sun may be nil.
func (k Keyer) Key(s Settings, sun *Sun) (bakecache.Key, error) {
	p := bakeParams{
		Resolution: s.Resolution,
		Upper:      s.UpperHemisphereOnly,
		Layers:     s.NumLayers(),
		Shadows:    s.CastShadows(),
	}
	if p.Shadows {
		p.ShadowResolution = s.ShadowResolution
	}
	if sun != nil {
		p.HasSun = true
		p.Sun = quantize(sun.Forward)
	}
	g, err := k.h.Sum(p)
	if err != nil {
		return 0, err
	}
	keys := []bakecache.Key{g, k.layer.MustSum(bakeLayer(s.A))}
	if s.NumLayers() == 2 {
		keys = append(keys, k.layer.MustSum(bakeLayer(s.B)))
	}
	return hashkey.Combine(keys...), nil
}

// bakeLayer keeps the fields bakingParameters reads; Steps only matters lit.
func bakeLayer(l Layer) layerBake {
	b := layerBake{
		CloudMap:  l.CloudMap,
		Opacity:   l.Opacity,
		Rotation:  l.Rotation,
		Lighting:  l.Lighting,
		Thickness: l.Thickness,
	}
	if l.Lighting {
		b.Steps = l.Steps
	}
	return b
}

func quantize(v ms3.Vec) [3]int32 {
	q := func(f float32) int32 { return int32(math32.Round(f / sunQuantum)) }
	return [3]int32{q(v.X), q(v.Y), q(v.Z)}
}
