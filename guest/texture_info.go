package guest

import (
	"encoding/binary"
	"fmt"
	"hash/fnv"
)

// Dimension identifies the shape of a guest texture.
type Dimension uint8

const (
	// Dimension2D is a plain two-dimensional texture.
	Dimension2D Dimension = iota

	// DimensionCube is a six-faced cube texture.
	DimensionCube
)

// String returns a human-readable name for the dimension.
func (d Dimension) String() string {
	switch d {
	case Dimension2D:
		return "2D"
	case DimensionCube:
		return "Cube"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(d))
	}
}

// FaceCount returns the number of array faces the dimension implies.
func (d Dimension) FaceCount() uint32 {
	if d == DimensionCube {
		return 6
	}
	return 1
}

// TextureInfo describes one guest texture: where it lives in guest physical
// memory and how its texels are laid out. It is produced by the register-file
// decoder from a fetch constant and is immutable once built.
type TextureInfo struct {
	// BaseAddress is the guest physical address of the first texel byte.
	BaseAddress uint32

	// Width and Height are the texel dimensions of the base level.
	Width  uint32
	Height uint32

	// Dimension selects 2D or cube shape.
	Dimension Dimension

	// Format is the guest pixel format.
	Format Format

	// Pitch is the guest row stride in bytes. Zero means tightly packed.
	Pitch uint32

	// Tiled is true when the guest data uses the GPU's tiled layout and
	// must be detiled by the conversion kernel during upload.
	Tiled bool

	// MipLevels is the level count in guest memory. Only the base level is
	// uploaded; the field exists so footprints cover the full range.
	MipLevels uint32
}

// RowPitch returns the effective guest row stride in bytes for one row of
// blocks, honoring an explicit Pitch when set.
func (t TextureInfo) RowPitch() uint32 {
	bw, _ := t.Format.BlockSize()
	blocksWide := (t.Width + bw - 1) / bw
	packed := blocksWide * t.Format.BytesPerBlock()
	if t.Pitch > packed {
		return t.Pitch
	}
	return packed
}

// FaceSizeBytes returns the guest storage footprint of one face's base level.
func (t TextureInfo) FaceSizeBytes() uint32 {
	_, bh := t.Format.BlockSize()
	blocksHigh := (t.Height + bh - 1) / bh
	return t.RowPitch() * blocksHigh
}

// SizeBytes returns the total guest storage footprint of the texture.
func (t TextureInfo) SizeBytes() uint32 {
	return t.FaceSizeBytes() * t.Dimension.FaceCount()
}

// EndAddress returns the guest address one past the last texel byte.
func (t TextureInfo) EndAddress() uint32 {
	return t.BaseAddress + t.SizeBytes()
}

// Key derives the cache key for the texture. The key covers base address,
// dimensions, shape, and format only: two descriptors that differ in access
// or sampling hints but reference the same guest bytes hash identically.
func (t TextureInfo) Key() uint64 {
	var buf [20]byte
	binary.LittleEndian.PutUint32(buf[0:], t.BaseAddress)
	binary.LittleEndian.PutUint32(buf[4:], t.Width)
	binary.LittleEndian.PutUint32(buf[8:], t.Height)
	binary.LittleEndian.PutUint32(buf[12:], t.MipLevels)
	buf[16] = byte(t.Dimension)
	buf[17] = byte(t.Format)
	h := fnv.New64a()
	h.Write(buf[:])
	return h.Sum64()
}

// String returns a compact description for logging.
func (t TextureInfo) String() string {
	return fmt.Sprintf("Texture[%s %dx%d %s @%08x]",
		t.Dimension, t.Width, t.Height, t.Format, t.BaseAddress)
}
