// Package wire frames baked textures for storage in a byte provider.
//
//	magic(4)="BAKE" | ver(1) | kind(1) | gen(u64 be)
//	width(u32 be) | height(u32 be) | slices(u32 be) | format(u8)
//	tlen(u32 be) | texels(tlen)
//
// Decoding is strict: unknown magic/version/kind, short buffers, a length
// that does not match the buffer, or trailing bytes are all ErrCorrupt.
package wire

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	version     byte = 1
	kindTexture byte = 1

	headerLen = 4 + 1 + 1 + 8 + 4 + 4 + 4 + 1 + 4
)

var (
	ErrCorrupt = errors.New("bakecache: corrupt bake entry")
	magic4     = [...]byte{'B', 'A', 'K', 'E'}
)

// Header describes the texture a frame holds.
type Header struct {
	Gen    uint64
	Width  uint32
	Height uint32
	Slices uint32
	Format uint8
}

func EncodeTexture(h Header, texels []byte) ([]byte, error) {
	if uint64(len(texels)) > 0xFFFFFFFF {
		return nil, fmt.Errorf("wire: texel payload too large (%d bytes)", len(texels))
	}
	var buf bytes.Buffer
	buf.Grow(headerLen + len(texels))

	buf.Write(magic4[:])
	buf.WriteByte(version)
	buf.WriteByte(kindTexture)

	var u8 [8]byte
	var u4 [4]byte

	binary.BigEndian.PutUint64(u8[:], h.Gen)
	buf.Write(u8[:])

	for _, v := range [...]uint32{h.Width, h.Height, h.Slices} {
		binary.BigEndian.PutUint32(u4[:], v)
		buf.Write(u4[:])
	}
	buf.WriteByte(h.Format)

	binary.BigEndian.PutUint32(u4[:], uint32(len(texels)))
	buf.Write(u4[:])
	buf.Write(texels)
	return buf.Bytes(), nil
}

// DecodeTexture returns the header and a zero-copy slice of the texels.
func DecodeTexture(b []byte) (Header, []byte, error) {
	if len(b) < headerLen || !bytes.Equal(b[:4], magic4[:]) || b[4] != version || b[5] != kindTexture {
		return Header{}, nil, ErrCorrupt
	}
	off := 6

	var h Header
	h.Gen = binary.BigEndian.Uint64(b[off : off+8])
	off += 8
	h.Width = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Height = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Slices = binary.BigEndian.Uint32(b[off : off+4])
	off += 4
	h.Format = b[off]
	off++

	tlen := uint64(binary.BigEndian.Uint32(b[off : off+4]))
	off += 4
	if tlen != uint64(len(b)-off) { // rejects both truncation and trailing bytes
		return Header{}, nil, ErrCorrupt
	}
	return h, b[off:], nil
}
