package cloudlayer

import (
	"context"
	"fmt"
	"time"

	"github.com/chewxy/math32"

	"github.com/unkn0wn-root/bakecache"
	"github.com/unkn0wn-root/bakecache/bakestore"
	"github.com/unkn0wn-root/bakecache/gpu"
	"github.com/unkn0wn-root/bakecache/pool"
)

const (
	KernelBakeTexture gpu.Kernel = "BakeCloudTexture"
	KernelBakeShadows gpu.Kernel = "BakeCloudShadows"

	groupSize = 8

	defaultStoreTimeout = 100 * time.Millisecond
)

// Params is what the cache allocates precomputed data from.
type Params struct {
	Settings Settings
	Sun      *Sun // nil when no directional light is present
}

// Data is the GPU state shared by every sky whose baking key matches: the baked
// cloud texture and, when any layer casts shadows, the shadow map.
//
// Data is not safe for concurrent use; the rendering thread owns it.
type Data struct {
	CloudTexture gpu.Texture
	CloudShadows gpu.Texture // nil unless shadows are cast

	key         bakecache.Key
	initialized bool
	storeGen    uint64 // generation observed at allocation, for the store CAS
	pre         *Precomputer
}

func (d *Data) Key() bakecache.Key { return d.key }
func (d *Data) Initialized() bool  { return d.initialized }

// PrecomputerOptions configures a Precomputer.
type PrecomputerOptions struct {
	// Store, when set, persists baked cloud textures on Free and restores them
	// on the next allocation of the same key so the bake dispatch is skipped.
	Store        *bakestore.Store
	StoreTimeout time.Duration // per store call; 0 => 100ms

	Logger bakecache.Logger // nil => NopLogger
	Hooks  bakecache.Hooks  // pool events; nil => NopHooks
}

// Precomputer allocates and frees precomputed cloud data on a device. It keeps
// the most recently freed texture of each kind in a single-slot pool so a
// reconfiguration back to the previous size reuses it.
//
// Precomputer is the cache's Allocator and is only called under the cache lock.
type Precomputer struct {
	dev      gpu.Device
	textures *pool.Pool[gpu.Texture]
	shadows  *pool.Pool[gpu.Texture]

	store   *bakestore.Store
	timeout time.Duration
	log     bakecache.Logger
}

var _ bakecache.Allocator[Params, *Data] = (*Precomputer)(nil)

func NewPrecomputer(dev gpu.Device, opts PrecomputerOptions) (*Precomputer, error) {
	if dev == nil {
		return nil, fmt.Errorf("cloudlayer: device is required")
	}
	hooks := opts.Hooks
	if hooks == nil {
		hooks = bakecache.NopHooks{}
	}
	p := &Precomputer{
		dev:     dev,
		store:   opts.Store,
		timeout: opts.StoreTimeout,
		log:     opts.Logger,
	}
	if p.timeout <= 0 {
		p.timeout = defaultStoreTimeout
	}
	if p.log == nil {
		p.log = bakecache.NopLogger{}
	}
	newPool := func() *pool.Pool[gpu.Texture] {
		return pool.New(pool.Options[gpu.Texture]{
			Free:    dev.ReleaseTexture,
			OnReuse: hooks.PoolReuse,
			OnEvict: hooks.PoolEvicted,
		})
	}
	p.textures, p.shadows = newPool(), newPool()
	return p, nil
}

func cloudTextureDesc(s pool.Size) gpu.TextureDesc {
	return gpu.TextureDesc{
		Name:        "Cloud Texture",
		Width:       s.Width,
		Height:      s.Height,
		Slices:      s.Depth,
		Format:      gpu.R16G16SFloat,
		Dimension:   gpu.Tex2DArray,
		RandomWrite: true,
		Filter:      gpu.FilterBilinear,
		Wrap:        gpu.WrapRepeat,
	}
}

func shadowDesc(s pool.Size) gpu.TextureDesc {
	return gpu.TextureDesc{
		Name:        "Cloud Shadows",
		Width:       s.Width,
		Height:      s.Height,
		Slices:      1,
		Format:      gpu.B10G11R11UFloatPack32,
		Dimension:   gpu.Tex2D,
		RandomWrite: true,
		Filter:      gpu.FilterBilinear,
		Wrap:        gpu.WrapClamp,
	}
}

func sizeOf(t gpu.Texture) pool.Size {
	d := t.Desc()
	return pool.Size{Width: d.Width, Height: d.Height, Depth: d.Slices}
}

func (p *Precomputer) acquire(pl *pool.Pool[gpu.Texture], desc gpu.TextureDesc) (gpu.Texture, error) {
	size := pool.Size{Width: desc.Width, Height: desc.Height, Depth: desc.Slices}
	if t, ok := pl.Take(size); ok {
		return t, nil
	}
	return p.dev.AllocTexture(desc)
}

func (p *Precomputer) Allocate(key bakecache.Key, params Params) (*Data, error) {
	s := params.Settings
	if err := s.Validate(); err != nil {
		return nil, err
	}

	tex, err := p.acquire(p.textures, cloudTextureDesc(s.TextureSize()))
	if err != nil {
		return nil, fmt.Errorf("cloud texture %v: %w", s.TextureSize(), err)
	}
	d := &Data{CloudTexture: tex, key: key, pre: p}

	if s.CastShadows() {
		sh, err := p.acquire(p.shadows, shadowDesc(s.ShadowMapSize()))
		if err != nil {
			p.textures.Offer(sizeOf(tex), tex)
			return nil, fmt.Errorf("cloud shadows %v: %w", s.ShadowMapSize(), err)
		}
		d.CloudShadows = sh
	}

	if p.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
		d.storeGen = p.store.SnapshotGen(ctx, key)
		cancel()
	}
	return d, nil
}

func (p *Precomputer) Free(key bakecache.Key, d *Data) {
	if d == nil {
		return
	}
	if d.initialized {
		p.persist(key, d)
	}
	if d.CloudTexture != nil {
		p.textures.Offer(sizeOf(d.CloudTexture), d.CloudTexture)
	}
	if d.CloudShadows != nil {
		p.shadows.Offer(sizeOf(d.CloudShadows), d.CloudShadows)
	}
	d.CloudTexture, d.CloudShadows, d.initialized = nil, nil, false
}

// Pooled reports how many textures wait for reuse.
func (p *Precomputer) Pooled() int { return p.textures.Len() + p.shadows.Len() }

// Close releases every pooled texture back to the device.
func (p *Precomputer) Close(context.Context) error {
	p.textures.Drain()
	p.shadows.Drain()
	return nil
}

// Invalidate drops the persisted bake of key, e.g. after a cloud map asset
// changed on disk. Live data is unaffected.
func (p *Precomputer) Invalidate(ctx context.Context, key bakecache.Key) error {
	if p.store == nil {
		return nil
	}
	return p.store.Invalidate(ctx, key)
}

type texelReader interface{ Bytes() []byte }

func (p *Precomputer) persist(key bakecache.Key, d *Data) {
	if p.store == nil {
		return
	}
	tr, ok := d.CloudTexture.(texelReader)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	if err := p.store.Put(ctx, key, d.CloudTexture.Desc(), tr.Bytes(), d.storeGen); err != nil {
		p.log.Warn("persist cloud texture failed", bakecache.Fields{"key": key, "err": err})
	}
}

func (p *Precomputer) restore(d *Data) bool {
	if p.store == nil {
		return false
	}
	tr, ok := d.CloudTexture.(texelReader)
	if !ok {
		return false
	}
	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	texels, ok, err := p.store.Get(ctx, d.key, d.CloudTexture.Desc())
	if err != nil {
		p.log.Warn("restore cloud texture failed", bakecache.Fields{"key": d.key, "err": err})
		return false
	}
	if !ok {
		return false
	}
	dst := tr.Bytes()
	if len(dst) != len(texels) {
		return false
	}
	copy(dst, texels)
	p.log.Debug("cloud texture restored", bakecache.Fields{"key": d.key})
	return true
}

// InitIfNeeded bakes the cloud texture the first time it is called, either by
// restoring a persisted bake or by recording the bake dispatch into cmd.
// It reports whether the texture became initialized in this call.
func (d *Data) InitIfNeeded(s Settings, sun *Sun, cmd gpu.CommandBuffer) bool {
	if d.initialized {
		return false
	}
	if d.pre != nil && d.pre.restore(d) {
		d.initialized = true
		return true
	}

	const k = KernelBakeTexture
	var dir gpu.Vec4
	if sun != nil {
		dir = vec4(toSun(*sun), 0)
	}
	if s.UpperHemisphereOnly {
		dir[3] = 1
	}
	cmd.SetVector(k, "_Params", dir)
	cmd.SetTexture(k, "_CloudTexture", d.CloudTexture)

	a1, a2 := bakingParameters(s.A)
	cmd.SetAsset(k, "_CloudMapA", s.A.CloudMap)
	if s.NumLayers() == 1 {
		cmd.SetKeyword(k, "USE_SECOND_CLOUD_LAYER", false)
		cmd.SetVectorArray(k, "_Params1", []gpu.Vec4{a1})
		cmd.SetVectorArray(k, "_Params2", []gpu.Vec4{a2})
	} else {
		b1, b2 := bakingParameters(s.B)
		cmd.SetAsset(k, "_CloudMapB", s.B.CloudMap)
		cmd.SetKeyword(k, "USE_SECOND_CLOUD_LAYER", true)
		cmd.SetVectorArray(k, "_Params1", []gpu.Vec4{a1, b1})
		cmd.SetVectorArray(k, "_Params2", []gpu.Vec4{a2, b2})
	}

	desc := d.CloudTexture.Desc()
	cmd.SetFloat(k, "_Resolution", 1/float32(desc.Width))
	cmd.Dispatch(k, gpu.ThreadGroups(desc.Width, groupSize), gpu.ThreadGroups(desc.Height, groupSize), 1)

	d.initialized = true
	return true
}

// bakingParameters packs a layer's bake inputs: channel opacities, then
// rotation in radians, lighting steps (0 when unlit) and thickness.
func bakingParameters(l Layer) (gpu.Vec4, gpu.Vec4) {
	steps := 0
	if l.Lighting {
		steps = l.Steps
	}
	p1 := gpu.Vec4(l.Opacity)
	p2 := gpu.Vec4{-l.Rotation * 2 * math32.Pi, float32(steps), l.Thickness, 0}
	return p1, p2
}

// BakeCloudShadows renders the shadow map for the given sun and shadow extent.
// flow holds the per-layer flowmap parameters of the current frame.
func (d *Data) BakeCloudShadows(s Settings, sun Sun, shadowSize [2]float32, flow [2]gpu.Vec4, cmd gpu.CommandBuffer) error {
	if d.CloudShadows == nil {
		return ErrNoShadows
	}
	d.InitIfNeeded(s, &sun, cmd)

	const k = KernelBakeShadows
	useSecond := s.NumLayers() == 2

	st := s.ShadowTint
	cmd.SetVector(k, "_Params", gpu.Vec4{st[0], st[1], st[2], s.ShadowMultiplier})
	res := float32(d.CloudShadows.Desc().Width)
	cmd.SetVector(k, "_Params2", gpu.Vec4{shadowSize[0], shadowSize[1], 1 / res, 0})
	cmd.SetTexture(k, "_CloudTexture", d.CloudTexture)
	cmd.SetTexture(k, "_CloudShadows", d.CloudShadows)
	cmd.SetVectorArray(k, "_FlowmapParam", flow[:])
	cmd.SetVectorArray(k, "_Params1", []gpu.Vec4{
		vec4(sun.Right, s.A.Altitude),
		vec4(sun.Up, s.B.Altitude),
	})
	cmd.SetVector(k, "_SunDirection", vec4(toSun(sun), 0))

	cmd.SetKeyword(k, "DISABLE_MAIN_LAYER", !s.A.CastShadows)
	cmd.SetKeyword(k, "USE_SECOND_CLOUD_LAYER", useSecond)
	if s.A.CastShadows {
		motion, flowmap := distortionKeywords(s.A)
		cmd.SetKeyword(k, "USE_CLOUD_MOTION", motion)
		cmd.SetKeyword(k, "USE_FLOWMAP", flowmap)
		if flowmap {
			cmd.SetAsset(k, "_FlowmapA", s.A.Flowmap)
		}
	}
	if useSecond {
		motion, flowmap := distortionKeywords(s.B)
		cmd.SetKeyword(k, "USE_SECOND_CLOUD_MOTION", motion)
		cmd.SetKeyword(k, "USE_SECOND_FLOWMAP", flowmap)
		if flowmap {
			cmd.SetAsset(k, "_FlowmapB", s.B.Flowmap)
		}
	}

	g := gpu.ThreadGroups(int(res), groupSize)
	cmd.Dispatch(k, g, g, 1)
	d.CloudShadows.IncrementUpdateCount()
	return nil
}

func distortionKeywords(l Layer) (motion, flowmap bool) {
	motion = l.DistortionMode != DistortionNone
	flowmap = l.DistortionMode == DistortionFlowmap
	return motion, flowmap
}
