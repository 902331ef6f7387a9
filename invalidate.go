package texres

// Invalidation tracking.
//
// A one-shot write watch covers each keyed texture's guest range. The
// watch callback runs on whatever thread performed the guest write; it
// must not touch the registry maps. It only sets the texture's stale flag
// and appends the pointer to the active invalidation buffer under the
// buffer lock. Two buffers exist so the producer can swap and drain
// without holding the lock while it processes.
//
// Resolve targets are invalidated by resolve operations, not guest
// writes, and use their own list and lock so the two streams never mix.

// registerWatch covers tex's guest range with a fresh one-shot watch.
// Called on creation and after each revalidation.
func (c *TextureCache) registerWatch(tex *Texture) {
	c.invalidMu.Lock()
	defer c.invalidMu.Unlock()
	if tex.watch != NoWatch {
		return
	}
	tex.watch = c.memory.AddWriteWatch(tex.info.BaseAddress, tex.info.SizeBytes(), func() {
		c.watchFired(tex)
	})
}

// releaseWatch cancels an unfired watch. The lock serializes against a
// concurrently firing callback so the handle is cancelled or consumed,
// never both.
func (c *TextureCache) releaseWatch(tex *Texture) {
	c.invalidMu.Lock()
	defer c.invalidMu.Unlock()
	if tex.watch != NoWatch {
		c.memory.CancelWatch(tex.watch)
		tex.watch = NoWatch
	}
}

// watchFired is the write-watch callback. Foreign thread; appends only.
func (c *TextureCache) watchFired(tex *Texture) {
	tex.pendingInvalidation.Store(true)
	c.invalidMu.Lock()
	tex.watch = NoWatch // one-shot, handle is dead
	c.invalidBufs[c.invalidActive] = append(c.invalidBufs[c.invalidActive], tex)
	c.invalidMu.Unlock()
}

// InvalidateResolveRange marks every resolve texture overlapping
// [addr, addr+length) stale. Driven by EDRAM resolve operations; the
// affected entries are dropped on the next drain and re-created by the
// next DemandResolveTexture.
func (c *TextureCache) InvalidateResolveRange(addr, length uint32) {
	c.resolveInvalidMu.Lock()
	defer c.resolveInvalidMu.Unlock()
	for _, h := range c.resolveTextures {
		tex := c.arena.get(h)
		if tex == nil {
			continue
		}
		if addr >= tex.info.EndAddress() || addr+length <= tex.info.BaseAddress {
			continue
		}
		if !tex.pendingInvalidation.Swap(true) {
			c.invalidResolve = append(c.invalidResolve, tex)
		}
	}
}

// drainInvalidations swaps out both invalidation buffers and processes
// them. Keyed textures keep their registry entry with the stale flag set;
// the next Demand re-uploads them in place. Stale resolve textures leave
// the resolve list and go through fence-gated teardown.
func (c *TextureCache) drainInvalidations() {
	c.invalidMu.Lock()
	drained := c.invalidBufs[c.invalidActive]
	c.invalidActive ^= 1
	c.invalidMu.Unlock()

	for _, tex := range drained {
		c.invalidations++
		slogger().Debug("texres: texture invalidated", "texture", tex.info.String())
	}
	if len(drained) > 0 {
		c.invalidMu.Lock()
		c.invalidBufs[c.invalidActive^1] = drained[:0]
		c.invalidMu.Unlock()
	}

	c.resolveInvalidMu.Lock()
	resolveDrained := c.invalidResolve
	c.invalidResolve = nil
	c.resolveInvalidMu.Unlock()

	if len(resolveDrained) == 0 {
		return
	}
	stale := make(map[*Texture]bool, len(resolveDrained))
	for _, tex := range resolveDrained {
		stale[tex] = true
		c.invalidations++
	}
	kept := c.resolveTextures[:0]
	for _, h := range c.resolveTextures {
		tex := c.arena.get(h)
		if tex == nil {
			continue
		}
		if !stale[tex] {
			kept = append(kept, h)
			continue
		}
		c.arena.remove(tex.handle)
		if !c.freeTexture(tex) {
			c.reclaim.trackTexture(tex, tex.inFlight)
		}
	}
	c.resolveTextures = kept
}
