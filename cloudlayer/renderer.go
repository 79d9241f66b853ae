package cloudlayer

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/gpu"
)

// kmhToMs converts a scroll speed in km/h to the per-second scroll factor.
const kmhToMs = 0.277778

// Cache is the cache shared by every cloud-layer renderer on a device.
type Cache = bakecache.Cache[Params, *Data]

// NewCache builds a cache over pre. opts.Allocator is overridden.
func NewCache(pre *Precomputer, opts bakecache.Options[Params, *Data]) (Cache, error) {
	opts.Allocator = pre
	return bakecache.New(opts)
}

// Camera is the per-frame view state rendering depends on.
type Camera struct {
	Position         ms3.Vec
	Time             float64 // seconds
	AnimateMaterials bool

	// VolumetricShadowDistance, when > 0, replaces Settings.ShadowSize so cloud
	// layer shadows cover the same distance as volumetric cloud shadows.
	VolumetricShadowDistance float32
}

// Cookie is the sun light cookie a lighting pass projects onto the scene.
type Cookie struct {
	Texture  gpu.Texture
	Position ms3.Vec // camera position on the ground plane
	Size     [2]float32
}

// DrawParams are the material inputs for drawing the sky's cloud layers.
type DrawParams struct {
	CloudTexture gpu.Texture
	Flowmap      [2]gpu.Vec4 // xy orientation, z scroll factor; w upper-only (A), opacity (B)
	Params1      [2]gpu.Vec4 // xyz layer color, w altitude
	SunDirection gpu.Vec4
	Flowmaps     [2]string
	Keywords     map[string]bool
}

// Renderer draws the cloud layers of one sky. Renderers with matching baking
// parameters share precomputed data through the cache.
//
// Renderer is not safe for concurrent use.
type Renderer struct {
	handle *bakecache.Handle[Params, *Data]
	keyer  Keyer
	log    bakecache.Logger

	lastTime float64
	scroll   [2]float32
}

func NewRenderer(c Cache, log bakecache.Logger) *Renderer {
	if log == nil {
		log = bakecache.NopLogger{}
	}
	return &Renderer{handle: bakecache.NewHandle(c), keyer: NewKeyer(), log: log}
}

// Update points the renderer at the precomputed data for s and sun, releasing
// the previous data when the baking key changed. It reports whether it did.
func (r *Renderer) Update(s Settings, sun *Sun) (bool, error) {
	key, err := r.keyer.Key(s, sun)
	if err != nil {
		return false, err
	}
	_, changed, err := r.handle.Update(key, Params{Settings: s, Sun: sun})
	if err != nil {
		return false, err
	}
	if changed {
		r.log.Debug("cloud layer rebound", bakecache.Fields{"key": key})
	}
	return changed, nil
}

// Data returns the precomputed data the renderer currently holds.
func (r *Renderer) Data() (*Data, bool) { return r.handle.Resource() }

// SunLightCookie returns the shadow cookie for the sun. ok is false when no
// layer casts shadows. The renderer is updated first if it holds no shadow map.
func (r *Renderer) SunLightCookie(s Settings, sun Sun, cam Camera) (c Cookie, ok bool, err error) {
	if !s.CastShadows() {
		return Cookie{}, false, nil
	}
	d, held := r.Data()
	if !held || d.CloudShadows == nil {
		if _, err := r.Update(s, &sun); err != nil {
			return Cookie{}, false, err
		}
		d, _ = r.Data()
	}
	return Cookie{
		Texture:  d.CloudShadows,
		Position: ms3.Vec{X: cam.Position.X, Z: cam.Position.Z},
		Size:     ShadowSize(s, sun, cam),
	}, true, nil
}

// RenderSunLightCookie bakes the shadow map for the current frame.
func (r *Renderer) RenderSunLightCookie(s Settings, sun Sun, cam Camera, cmd gpu.CommandBuffer) error {
	d, ok := r.Data()
	if !ok {
		return ErrNotPrepared
	}
	flow := [2]gpu.Vec4{r.flowParams(s.A, 0), r.flowParams(s.B, 1)}
	flow[0][3] = boolFloat(s.UpperHemisphereOnly)
	flow[1][3] = s.Opacity
	return d.BakeCloudShadows(s, sun, ShadowSize(s, sun, cam), flow, cmd)
}

// RenderClouds bakes the cloud texture if needed and returns the draw inputs.
// ok is false when the layers are fully transparent and nothing should be drawn.
func (r *Renderer) RenderClouds(s Settings, sun *Sun, cam Camera, cmd gpu.CommandBuffer) (p DrawParams, ok bool, err error) {
	if s.Opacity == 0 {
		return DrawParams{}, false, nil
	}
	d, held := r.Data()
	if !held {
		return DrawParams{}, false, ErrNotPrepared
	}

	var dt float32
	if cam.AnimateMaterials {
		dt = float32(cam.Time - r.lastTime)
	} else {
		r.scroll = [2]float32{}
	}
	r.lastTime = cam.Time

	d.InitIfNeeded(s, sun, cmd)

	var light [3]float32
	if sun != nil {
		light = sun.LightColor()
		p.SunDirection = vec4(toSun(*sun), 0)
	}

	p.CloudTexture = d.CloudTexture
	p.Flowmap = [2]gpu.Vec4{r.flowParams(s.A, 0), r.flowParams(s.B, 1)}
	p.Flowmap[0][3] = boolFloat(s.UpperHemisphereOnly)
	p.Flowmap[1][3] = s.Opacity
	p.Params1 = [2]gpu.Vec4{layerColor(s.A, light), layerColor(s.B, light)}
	p.Flowmaps = [2]string{s.A.Flowmap, s.B.Flowmap}

	motionA, flowA := distortionKeywords(s.A)
	p.Keywords = map[string]bool{
		"USE_CLOUD_MOTION":       motionA,
		"USE_FLOWMAP":            flowA,
		"USE_SECOND_CLOUD_LAYER": s.NumLayers() == 2,
	}
	// scroll advances after the parameters are captured, and only for layers
	// in motion; they lag one frame
	if motionA {
		r.scroll[0] += s.A.ScrollSpeed * dt * kmhToMs
	}
	if s.NumLayers() == 2 {
		motionB, flowB := distortionKeywords(s.B)
		p.Keywords["USE_SECOND_CLOUD_MOTION"] = motionB
		p.Keywords["USE_SECOND_FLOWMAP"] = flowB
		if motionB {
			r.scroll[1] += s.B.ScrollSpeed * dt * kmhToMs
		}
	}
	return p, true, nil
}

// Cleanup releases the held data. The renderer may be updated again later.
func (r *Renderer) Cleanup() { r.handle.Close() }

// Scroll returns the accumulated scroll factor of each layer.
func (r *Renderer) Scroll() [2]float32 { return r.scroll }

func (r *Renderer) flowParams(l Layer, i int) gpu.Vec4 {
	sin, cos := math32.Sincos(l.ScrollOrientation * math32.Pi / 180)
	return gpu.Vec4{-cos, -sin, r.scroll[i], 0}
}

func layerColor(l Layer, light [3]float32) gpu.Vec4 {
	ev := math32.Exp2(l.Exposure)
	return gpu.Vec4{
		l.Tint[0] * ev * light[0],
		l.Tint[1] * ev * light[1],
		l.Tint[2] * ev * light[2],
		l.Altitude,
	}
}

// ShadowSize is the ground-plane extent of the shadow cookie: twice the shadow
// distance, projected along the sun's right and up axes.
func ShadowSize(s Settings, sun Sun, cam Camera) [2]float32 {
	dist := s.ShadowSize
	if cam.VolumetricShadowDistance > 0 {
		dist = cam.VolumetricShadowDistance
	}
	ground := 2 * dist
	return [2]float32{
		ground * math32.Abs(ms3.Dot(sun.Right, flatten(sun.Right))),
		ground * math32.Abs(ms3.Dot(sun.Up, flatten(sun.Up))),
	}
}

// flatten projects v onto the ground plane and normalizes it; zero stays zero.
func flatten(v ms3.Vec) ms3.Vec {
	g := ms3.Vec{X: v.X, Z: v.Z}
	if ms3.Norm(g) == 0 {
		return ms3.Vec{}
	}
	return ms3.Unit(g)
}

func boolFloat(b bool) float32 {
	if b {
		return 1
	}
	return 0
}
