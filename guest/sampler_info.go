package guest

import "fmt"

// AddressMode selects how texture coordinates outside [0,1] resolve.
type AddressMode uint8

const (
	AddressRepeat AddressMode = iota
	AddressMirror
	AddressClampToEdge
	AddressClampToBorder
)

// String returns a human-readable name for the mode.
func (m AddressMode) String() string {
	switch m {
	case AddressRepeat:
		return "Repeat"
	case AddressMirror:
		return "Mirror"
	case AddressClampToEdge:
		return "ClampToEdge"
	case AddressClampToBorder:
		return "ClampToBorder"
	default:
		return fmt.Sprintf("Unknown(%d)", uint8(m))
	}
}

// SamplerInfo describes guest sampler state: filtering and wrap behavior
// decoded from a fetch constant. Samplers reference no guest memory, so
// they carry no address and are never invalidated.
type SamplerInfo struct {
	// MagLinear and MinLinear select linear (true) or point filtering.
	MagLinear bool
	MinLinear bool

	// MipLinear selects trilinear filtering between mip levels.
	MipLinear bool

	// AddressU, AddressV, AddressW are the per-axis wrap modes.
	AddressU AddressMode
	AddressV AddressMode
	AddressW AddressMode
}

// Key derives the cache key for the sampler. All fields participate.
func (s SamplerInfo) Key() uint64 {
	k := uint64(0)
	if s.MagLinear {
		k |= 1
	}
	if s.MinLinear {
		k |= 2
	}
	if s.MipLinear {
		k |= 4
	}
	k |= uint64(s.AddressU) << 3
	k |= uint64(s.AddressV) << 6
	k |= uint64(s.AddressW) << 9
	return k
}
