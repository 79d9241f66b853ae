// Package gpu models the GPU as seen by the bake cache: a device that allocates
// and releases textures, and a command buffer that records compute parameters
// and dispatches. SoftDevice and Recorder are in-memory implementations used by
// tests and the cloudbake CLI.
package gpu

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrOutOfMemory = errors.New("gpu: out of memory")

type Format uint8

const (
	FormatUnknown Format = iota
	R16G16SFloat
	B10G11R11UFloatPack32
	R8G8B8A8UNorm
	R32SFloat
)

func (f Format) BytesPerTexel() int {
	switch f {
	case R16G16SFloat, B10G11R11UFloatPack32, R8G8B8A8UNorm, R32SFloat:
		return 4
	default:
		return 0
	}
}

func (f Format) String() string {
	switch f {
	case R16G16SFloat:
		return "R16G16_SFloat"
	case B10G11R11UFloatPack32:
		return "B10G11R11_UFloatPack32"
	case R8G8B8A8UNorm:
		return "R8G8B8A8_UNorm"
	case R32SFloat:
		return "R32_SFloat"
	default:
		return "Unknown"
	}
}

type Dimension uint8

const (
	Tex2D Dimension = iota + 1
	Tex2DArray
)

type FilterMode uint8

const (
	FilterPoint FilterMode = iota
	FilterBilinear
)

type WrapMode uint8

const (
	WrapRepeat WrapMode = iota
	WrapClamp
)

type TextureDesc struct {
	Name        string
	Width       int
	Height      int
	Slices      int // array layers for Tex2DArray; 1 for Tex2D
	Format      Format
	Dimension   Dimension
	RandomWrite bool
	Filter      FilterMode
	Wrap        WrapMode
}

// Bytes is the backing size of a texture with this description.
func (d TextureDesc) Bytes() int64 {
	return int64(d.Width) * int64(d.Height) * int64(max(d.Slices, 1)) * int64(d.Format.BytesPerTexel())
}

func (d TextureDesc) Validate() error {
	if d.Width <= 0 || d.Height <= 0 {
		return fmt.Errorf("gpu: invalid texture size %dx%d", d.Width, d.Height)
	}
	if d.Format.BytesPerTexel() == 0 {
		return fmt.Errorf("gpu: unsupported format %v", d.Format)
	}
	if d.Dimension == Tex2D && d.Slices > 1 {
		return fmt.Errorf("gpu: Tex2D with %d slices", d.Slices)
	}
	return nil
}

// Texture is a device texture handle.
type Texture interface {
	ID() uuid.UUID
	Desc() TextureDesc
	// UpdateCount increments whenever the contents are rewritten by a dispatch.
	UpdateCount() uint64
	IncrementUpdateCount()
}

// Device allocates textures. ReleaseTexture of a texture not owned by the
// device, or already released, is ignored.
type Device interface {
	AllocTexture(desc TextureDesc) (Texture, error)
	ReleaseTexture(t Texture)
}
