package guest

import "testing"

// TestSwizzleRoundTrip tests that packing and unpacking selectors is exact.
func TestSwizzleRoundTrip(t *testing.T) {
	sources := []SwizzleSource{SwizzleR, SwizzleG, SwizzleB, SwizzleA, SwizzleZero, SwizzleOne}
	for _, x := range sources {
		for _, y := range sources {
			for _, z := range sources {
				for _, w := range sources {
					s := MakeSwizzle(x, y, z, w)
					if s.X() != x || s.Y() != y || s.Z() != z || s.W() != w {
						t.Fatalf("MakeSwizzle(%v,%v,%v,%v) round-trip = %v,%v,%v,%v",
							x, y, z, w, s.X(), s.Y(), s.Z(), s.W())
					}
					if s&0xf000 != 0 {
						t.Fatalf("reserved bits set in %04x", uint16(s))
					}
				}
			}
		}
	}
}

// TestSwizzleIdentity tests the identity constant.
func TestSwizzleIdentity(t *testing.T) {
	if SwizzleIdentity != MakeSwizzle(SwizzleR, SwizzleG, SwizzleB, SwizzleA) {
		t.Errorf("SwizzleIdentity = %04x, want RGBA packing", uint16(SwizzleIdentity))
	}
	if got := SwizzleIdentity.String(); got != "RGBA" {
		t.Errorf("SwizzleIdentity.String() = %q, want %q", got, "RGBA")
	}
}

// TestSwizzleString tests selector formatting.
func TestSwizzleString(t *testing.T) {
	s := MakeSwizzle(SwizzleB, SwizzleG, SwizzleR, SwizzleOne)
	if got := s.String(); got != "BGR1" {
		t.Errorf("String() = %q, want %q", got, "BGR1")
	}
}
