// Package cloudlayer precomputes and renders the 2D cloud layers of a sky.
//
// Baked cloud textures and shadow maps depend only on a subset of the layer
// settings and the sun direction. Skies whose baking parameters hash to the
// same key share one Data through a reference-counted cache, and the previous
// texture of each kind is pooled so toggling between two configurations does
// not reallocate.
package cloudlayer

import (
	"errors"
	"fmt"

	"github.com/unkn0wn-root/bakecache/pool"
)

type DistortionMode int

const (
	DistortionNone DistortionMode = iota
	DistortionProcedural
	DistortionFlowmap
)

var distortionNames = [...]string{"none", "procedural", "flowmap"}

func (m DistortionMode) String() string {
	if m >= 0 && int(m) < len(distortionNames) {
		return distortionNames[m]
	}
	return fmt.Sprintf("DistortionMode(%d)", int(m))
}

func (m DistortionMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *DistortionMode) UnmarshalText(b []byte) error {
	for i, n := range distortionNames {
		if string(b) == n {
			*m = DistortionMode(i)
			return nil
		}
	}
	return fmt.Errorf("unknown distortion mode %q", b)
}

type MapMode int

const (
	MapSingle MapMode = iota
	MapDouble
)

func (m MapMode) String() string {
	switch m {
	case MapSingle:
		return "single"
	case MapDouble:
		return "double"
	}
	return fmt.Sprintf("MapMode(%d)", int(m))
}

func (m MapMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *MapMode) UnmarshalText(b []byte) error {
	switch string(b) {
	case "single":
		*m = MapSingle
	case "double":
		*m = MapDouble
	default:
		return fmt.Errorf("unknown map mode %q", b)
	}
	return nil
}

// Layer is one cloud map layer. Fields tagged "bake" feed the cloud texture bake;
// the rest only affect per-frame rendering.
type Layer struct {
	CloudMap  string     `yaml:"cloud_map" toml:"cloud_map"` // bake
	Opacity   [4]float32 `yaml:"opacity" toml:"opacity"`     // bake; per map channel R,G,B,A
	Rotation  float32    `yaml:"rotation" toml:"rotation"`   // bake; 0..1 of a full turn
	Lighting  bool       `yaml:"lighting" toml:"lighting"`   // bake
	Steps     int        `yaml:"steps" toml:"steps"`         // bake; raymarch steps when Lighting
	Thickness float32    `yaml:"thickness" toml:"thickness"` // bake

	Tint              [3]float32     `yaml:"tint" toml:"tint"`
	Exposure          float32        `yaml:"exposure" toml:"exposure"` // EV applied to Tint
	DistortionMode    DistortionMode `yaml:"distortion" toml:"distortion"`
	ScrollOrientation float32        `yaml:"scroll_orientation" toml:"scroll_orientation"` // degrees
	ScrollSpeed       float32        `yaml:"scroll_speed" toml:"scroll_speed"`             // km/h
	Flowmap           string         `yaml:"flowmap" toml:"flowmap"`
	Altitude          float32        `yaml:"altitude" toml:"altitude"` // meters
	CastShadows       bool           `yaml:"cast_shadows" toml:"cast_shadows"`
}

// Settings is the full cloud-layer configuration for one sky.
type Settings struct {
	Opacity             float32 `yaml:"opacity" toml:"opacity"`
	UpperHemisphereOnly bool    `yaml:"upper_hemisphere_only" toml:"upper_hemisphere_only"`
	Layers              MapMode `yaml:"layers" toml:"layers"`
	Resolution          int     `yaml:"resolution" toml:"resolution"`

	ShadowResolution int        `yaml:"shadow_resolution" toml:"shadow_resolution"`
	ShadowMultiplier float32    `yaml:"shadow_multiplier" toml:"shadow_multiplier"`
	ShadowTint       [3]float32 `yaml:"shadow_tint" toml:"shadow_tint"`
	ShadowSize       float32    `yaml:"shadow_size" toml:"shadow_size"` // ground distance, meters

	A Layer `yaml:"layer_a" toml:"layer_a"`
	B Layer `yaml:"layer_b" toml:"layer_b"`
}

func DefaultSettings() Settings {
	layer := Layer{
		Opacity:   [4]float32{1, 0, 0, 0},
		Tint:      [3]float32{1, 1, 1},
		Lighting:  true,
		Steps:     6,
		Thickness: 0.5,
		Altitude:  2000,
	}
	return Settings{
		Opacity:             1,
		UpperHemisphereOnly: true,
		Resolution:          1024,
		ShadowResolution:    512,
		ShadowMultiplier:    1,
		ShadowTint:          [3]float32{0, 0, 0},
		ShadowSize:          500,
		A:                   layer,
		B:                   layer,
	}
}

func (s Settings) NumLayers() int {
	if s.Layers == MapDouble {
		return 2
	}
	return 1
}

// CastShadows reports whether any active layer casts shadows.
func (s Settings) CastShadows() bool {
	return s.A.CastShadows || (s.Layers == MapDouble && s.B.CastShadows)
}

// TextureSize is the size of the baked cloud texture: a square map, halved
// vertically when only the upper hemisphere is drawn, one slice per layer.
func (s Settings) TextureSize() pool.Size {
	h := s.Resolution
	if s.UpperHemisphereOnly {
		h = s.Resolution / 2
	}
	return pool.Size{Width: s.Resolution, Height: h, Depth: s.NumLayers()}
}

func (s Settings) ShadowMapSize() pool.Size {
	return pool.Size{Width: s.ShadowResolution, Height: s.ShadowResolution, Depth: 1}
}

func (s Settings) Validate() error {
	var errs []error
	if s.Resolution < 2 {
		errs = append(errs, fmt.Errorf("resolution %d: must be >= 2", s.Resolution))
	}
	if s.CastShadows() && s.ShadowResolution < 1 {
		errs = append(errs, fmt.Errorf("shadow_resolution %d: must be >= 1 when shadows are cast", s.ShadowResolution))
	}
	if s.Layers != MapSingle && s.Layers != MapDouble {
		errs = append(errs, fmt.Errorf("layers %d: unknown map mode", s.Layers))
	}
	if s.Opacity < 0 || s.Opacity > 1 {
		errs = append(errs, fmt.Errorf("opacity %v: must be within [0,1]", s.Opacity))
	}
	return errors.Join(errs...)
}
