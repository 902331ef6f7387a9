package texres

// Handle identifies a texture slot in the cache's arena. The generation
// guards against slot reuse: a handle taken before an eviction resolves to
// nil afterwards instead of aliasing whatever texture claimed the slot.
type Handle struct {
	index uint32
	gen   uint32
}

// NilHandle is the zero Handle; it never resolves.
var NilHandle = Handle{}

type arenaSlot struct {
	gen uint32
	tex *Texture
}

// textureArena owns every live Texture. The registry maps keys to handles
// rather than pointers so evicted entries cannot dangle.
type textureArena struct {
	slots []arenaSlot
	free  []uint32
}

// insert claims a slot for tex and stamps tex with its handle.
func (a *textureArena) insert(tex *Texture) Handle {
	var idx uint32
	if n := len(a.free); n > 0 {
		idx = a.free[n-1]
		a.free = a.free[:n-1]
	} else {
		idx = uint32(len(a.slots))
		a.slots = append(a.slots, arenaSlot{gen: 1})
	}
	slot := &a.slots[idx]
	slot.tex = tex
	h := Handle{index: idx, gen: slot.gen}
	tex.handle = h
	return h
}

// get resolves a handle, or nil if the slot was recycled.
func (a *textureArena) get(h Handle) *Texture {
	if int(h.index) >= len(a.slots) {
		return nil
	}
	slot := &a.slots[h.index]
	if slot.gen != h.gen {
		return nil
	}
	return slot.tex
}

// remove releases a slot and bumps its generation, invalidating every
// outstanding handle to it. Returns the texture that occupied the slot.
func (a *textureArena) remove(h Handle) *Texture {
	tex := a.get(h)
	if tex == nil {
		return nil
	}
	slot := &a.slots[h.index]
	slot.tex = nil
	slot.gen++
	a.free = append(a.free, h.index)
	return tex
}

// len reports the number of live textures.
func (a *textureArena) len() int {
	return len(a.slots) - len(a.free)
}
