package texres

import "github.com/gogpu/wgpu/hal"

// reclaimItem is one object waiting on a completion fence: a descriptor
// set handed to a draw, or a texture evicted while still referenced.
// Exactly one of bindGroup and texture is set.
type reclaimItem struct {
	bindGroup hal.BindGroup
	texture   *Texture
	fence     *Fence
}

// reclaimer frees GPU objects only after the fence that last used them has
// signaled. Items move InFlight -> Reclaimable (fence signaled) -> Freed;
// unsignaled items stay queued in submission order.
//
// Owned by the producer thread.
type reclaimer struct {
	device  hal.Device
	pending []reclaimItem
	freed   uint64
}

// trackSet queues a descriptor set against the draw's completion fence.
func (r *reclaimer) trackSet(bg hal.BindGroup, fence *Fence) {
	r.pending = append(r.pending, reclaimItem{bindGroup: bg, fence: fence})
}

// trackTexture queues an evicted texture until its last fence clears.
func (r *reclaimer) trackTexture(tex *Texture, fence *Fence) {
	r.pending = append(r.pending, reclaimItem{texture: tex, fence: fence})
}

// referencesTexture reports whether any queued descriptor set may still
// reference tex (conservatively: any pending set whose fence is the
// texture's in-flight fence keeps it alive; the fence gate already covers
// this, so the check is for the direct-free contract).
func (r *reclaimer) holdsTexture(tex *Texture) bool {
	for i := range r.pending {
		if r.pending[i].texture == tex {
			return true
		}
	}
	return false
}

// scavenge polls every queued item (never waits) and frees those whose
// fence has signaled. freeTexture performs the actual texture teardown so
// the cache keeps ownership of that path. Returns the number freed.
func (r *reclaimer) scavenge(freeTexture func(*Texture)) int {
	if len(r.pending) == 0 {
		return 0
	}
	n := 0
	kept := r.pending[:0]
	for _, item := range r.pending {
		if item.fence != nil && !item.fence.Signaled() {
			kept = append(kept, item)
			continue
		}
		if item.bindGroup != nil {
			r.device.DestroyBindGroup(item.bindGroup)
		}
		if item.texture != nil {
			freeTexture(item.texture)
		}
		n++
	}
	// Clear the tail so freed items are not retained by the backing array.
	for i := len(kept); i < len(r.pending); i++ {
		r.pending[i] = reclaimItem{}
	}
	r.pending = kept
	r.freed += uint64(n)
	return n
}

// drain frees everything unconditionally. Only valid when the caller
// guarantees no GPU work is outstanding (full-reset boundary).
func (r *reclaimer) drain(freeTexture func(*Texture)) {
	for _, item := range r.pending {
		if item.bindGroup != nil {
			r.device.DestroyBindGroup(item.bindGroup)
		}
		if item.texture != nil {
			freeTexture(item.texture)
		}
	}
	r.pending = nil
}
