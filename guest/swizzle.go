package guest

import "fmt"

// SwizzleSource selects where one output channel of a texture fetch reads
// from: a source channel, constant zero, or constant one.
type SwizzleSource uint8

const (
	SwizzleR SwizzleSource = iota
	SwizzleG
	SwizzleB
	SwizzleA
	SwizzleZero
	SwizzleOne
)

// String returns a single-character name for the source.
func (s SwizzleSource) String() string {
	switch s {
	case SwizzleR:
		return "R"
	case SwizzleG:
		return "G"
	case SwizzleB:
		return "B"
	case SwizzleA:
		return "A"
	case SwizzleZero:
		return "0"
	case SwizzleOne:
		return "1"
	default:
		return "?"
	}
}

// Swizzle packs four 3-bit channel selectors (bits 0-11, X first) into a
// uint16. The top 4 bits are reserved and always zero. A Swizzle is
// immutable once built; views are deduplicated on this value.
type Swizzle uint16

// SwizzleIdentity maps every output channel to its own source channel.
const SwizzleIdentity = Swizzle(uint16(SwizzleR) |
	uint16(SwizzleG)<<3 |
	uint16(SwizzleB)<<6 |
	uint16(SwizzleA)<<9)

// MakeSwizzle packs four channel selectors.
func MakeSwizzle(x, y, z, w SwizzleSource) Swizzle {
	return Swizzle(uint16(x&7) |
		uint16(y&7)<<3 |
		uint16(z&7)<<6 |
		uint16(w&7)<<9)
}

// X returns the selector for the first output channel.
func (s Swizzle) X() SwizzleSource { return SwizzleSource(s & 7) }

// Y returns the selector for the second output channel.
func (s Swizzle) Y() SwizzleSource { return SwizzleSource(s >> 3 & 7) }

// Z returns the selector for the third output channel.
func (s Swizzle) Z() SwizzleSource { return SwizzleSource(s >> 6 & 7) }

// W returns the selector for the fourth output channel.
func (s Swizzle) W() SwizzleSource { return SwizzleSource(s >> 9 & 7) }

// String returns the four selectors in XYZW order, e.g. "RGBA" or "BGR1".
func (s Swizzle) String() string {
	return fmt.Sprintf("%s%s%s%s", s.X(), s.Y(), s.Z(), s.W())
}
