package guest

import (
	"fmt"

	"github.com/gogpu/gputypes"
)

// Format identifies a guest texture pixel format.
type Format uint8

const (
	// FormatRGBA8 is 32-bit RGBA, 8 bits per channel.
	FormatRGBA8 Format = iota

	// FormatBGRA8 is 32-bit BGRA, 8 bits per channel.
	FormatBGRA8

	// FormatR8 is single-channel 8-bit.
	FormatR8

	// Format565 is 16-bit RGB (5-6-5 packed).
	Format565

	// Format4444 is 16-bit RGBA (4 bits per channel).
	Format4444

	// Format1555 is 16-bit RGBA (5-5-5-1 packed).
	Format1555

	// FormatDXT1 is block-compressed color (4x4 blocks, 8 bytes per block).
	FormatDXT1

	// FormatDXT3 is block-compressed color + explicit alpha (16 bytes per block).
	FormatDXT3

	// FormatDXT5 is block-compressed color + interpolated alpha (16 bytes per block).
	FormatDXT5

	formatCount
)

// String returns a human-readable name for the format.
func (f Format) String() string {
	switch f {
	case FormatRGBA8:
		return "RGBA8"
	case FormatBGRA8:
		return "BGRA8"
	case FormatR8:
		return "R8"
	case Format565:
		return "565"
	case Format4444:
		return "4444"
	case Format1555:
		return "1555"
	case FormatDXT1:
		return "DXT1"
	case FormatDXT3:
		return "DXT3"
	case FormatDXT5:
		return "DXT5"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(f))
	}
}

// IsValid returns true for formats this package knows about.
func (f Format) IsValid() bool { return f < formatCount }

// IsCompressed returns true for block-compressed guest formats.
func (f Format) IsCompressed() bool {
	return f == FormatDXT1 || f == FormatDXT3 || f == FormatDXT5
}

// BlockSize returns the guest block dimensions in texels. Uncompressed
// formats report 1x1.
func (f Format) BlockSize() (w, h uint32) {
	if f.IsCompressed() {
		return 4, 4
	}
	return 1, 1
}

// BytesPerBlock returns the guest storage size of one block.
func (f Format) BytesPerBlock() uint32 {
	switch f {
	case FormatRGBA8, FormatBGRA8:
		return 4
	case FormatR8:
		return 1
	case Format565, Format4444, Format1555:
		return 2
	case FormatDXT1:
		return 8
	case FormatDXT3, FormatDXT5:
		return 16
	default:
		return 4
	}
}

// HostFormat returns the host texture format uploads decode into. Packed
// 16-bit and block-compressed guest formats are expanded to RGBA8 by their
// conversion kernels; only byte-identical formats pass through.
func (f Format) HostFormat() gputypes.TextureFormat {
	switch f {
	case FormatBGRA8:
		return gputypes.TextureFormatBGRA8Unorm
	case FormatR8:
		return gputypes.TextureFormatR8Unorm
	default:
		return gputypes.TextureFormatRGBA8Unorm
	}
}

// HostBytesPerPixel returns the per-texel size of the host format.
func (f Format) HostBytesPerPixel() uint32 {
	if f.HostFormat() == gputypes.TextureFormatR8Unorm {
		return 1
	}
	return 4
}
