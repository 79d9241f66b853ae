package cloudlayer

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"

	"github.com/unkn0wn-root/bakecache/gpu"
)

// Sun is the directional light the clouds are lit and shadowed by.
type Sun struct {
	Forward ms3.Vec // direction the light travels
	Right   ms3.Vec
	Up      ms3.Vec

	Color     [3]float32 // linear
	Intensity float32
	// Temperature, when > 0, is a correlated color temperature in kelvin that
	// filters Color.
	Temperature float32
}

// SunFromAngles builds a sun whose light arrives from the given elevation
// above the horizon and azimuth (clockwise from +Z), both in degrees.
func SunFromAngles(elevationDeg, azimuthDeg float64) Sun {
	sinEl, cosEl := math32.Sincos(float32(elevationDeg) * math32.Pi / 180)
	sinAz, cosAz := math32.Sincos(float32(azimuthDeg) * math32.Pi / 180)
	fwd := ms3.Scale(-1, ms3.Vec{X: cosEl * sinAz, Y: sinEl, Z: cosEl * cosAz})

	right := ms3.Cross(ms3.Vec{Y: 1}, fwd)
	if ms3.Norm(right) < 1e-6 {
		right = ms3.Vec{X: 1} // straight overhead
	} else {
		right = ms3.Unit(right)
	}
	up := ms3.Unit(ms3.Cross(fwd, right))
	return Sun{Forward: fwd, Right: right, Up: up, Color: [3]float32{1, 1, 1}, Intensity: 1}
}

// LightColor is the linear sun color scaled by intensity and, when set, the
// color temperature filter.
func (s Sun) LightColor() [3]float32 {
	var c [3]float32
	t := [3]float32{1, 1, 1}
	if s.Temperature > 0 {
		t = TemperatureToRGB(s.Temperature)
	}
	for i := range c {
		c[i] = s.Color[i] * s.Intensity * t[i]
	}
	return c
}

// TemperatureToRGB approximates the linear RGB of a black body at kelvin,
// clamped to 1000K-40000K, with the brightest channel normalized to 1.
func TemperatureToRGB(kelvin float32) [3]float32 {
	k := math32.Max(1000, math32.Min(40000, kelvin)) / 100
	var r, g, b float32
	if k <= 66 {
		r = 255
		g = 99.4708025861*math32.Log(k) - 161.1195681661
	} else {
		r = 329.698727446 * math32.Pow(k-60, -0.1332047592)
		g = 288.1221695283 * math32.Pow(k-60, -0.0755148492)
	}
	switch {
	case k >= 66:
		b = 255
	case k <= 19:
		b = 0
	default:
		b = 138.5177312231*math32.Log(k-10) - 305.0447927307
	}
	rgb := [3]float32{r, g, b}
	hi := float32(0)
	for i, c := range rgb {
		c = math32.Max(0, math32.Min(255, c)) / 255
		rgb[i] = c * c // srgb-ish to linear
		hi = math32.Max(hi, rgb[i])
	}
	for i := range rgb {
		rgb[i] /= hi
	}
	return rgb
}

func vec4(v ms3.Vec, w float32) gpu.Vec4 { return gpu.Vec4{v.X, v.Y, v.Z, w} }

func toSun(s Sun) ms3.Vec { return ms3.Scale(-1, s.Forward) }
