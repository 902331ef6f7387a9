package texres

import (
	"fmt"
	"image"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// LookupAddress searches for a cached texture whose guest footprint exactly
// matches or fully contains the queried region. An exact match returns a
// zero offset; a containment match returns the containing texture and the
// texel offset of the query within it. Entries queued for eviction are
// never returned.
func (c *TextureCache) LookupAddress(addr, width, height uint32, format guest.Format) (*Texture, image.Point, bool) {
	if c.closed {
		return nil, image.Point{}, false
	}
	c.drainInvalidations()

	probe := func(tex *Texture) (image.Point, bool) {
		info := tex.info
		if info.Format != format {
			return image.Point{}, false
		}
		if info.BaseAddress == addr && info.Width == width && info.Height == height {
			return image.Point{}, true
		}
		if addr < info.BaseAddress || addr >= info.EndAddress() {
			return image.Point{}, false
		}
		// Sub-region: derive the texel origin from the byte offset and
		// make sure the queried extent fits inside.
		byteOffset := addr - info.BaseAddress
		pitch := info.RowPitch()
		bw, bh := info.Format.BlockSize()
		y := byteOffset / pitch * bh
		x := byteOffset % pitch / info.Format.BytesPerBlock() * bw
		if x+width > info.Width || y+height > info.Height {
			return image.Point{}, false
		}
		return image.Point{X: int(x), Y: int(y)}, true
	}

	for _, h := range c.textures {
		tex := c.arena.get(h)
		if tex == nil {
			continue
		}
		if off, ok := probe(tex); ok {
			return tex, off, true
		}
	}
	for _, h := range c.resolveTextures {
		tex := c.arena.get(h)
		if tex == nil {
			continue
		}
		if off, ok := probe(tex); ok {
			return tex, off, true
		}
	}
	return nil, image.Point{}, false
}

// Demand returns the resident texture for info, uploading it first when
// necessary. A cache hit whose backing memory was invalidated is
// re-uploaded in place before being returned. When an upload would be
// needed and encoder is nil, Demand returns ErrNoCommandBuffer without
// side effects; this is the fast path for existence checks.
func (c *TextureCache) Demand(info guest.TextureInfo, encoder hal.CommandEncoder, fence *Fence) (*Texture, error) {
	if c.closed {
		return nil, ErrCacheClosed
	}
	c.drainInvalidations()
	c.demandClock++
	key := info.Key()

	if h, ok := c.textures[key]; ok {
		tex := c.arena.get(h)
		switch {
		case tex == nil:
			delete(c.textures, key)
		case tex.info != info:
			// Same key, different descriptor: the old entry is stale by
			// definition. Evict it and fall through to a fresh demand.
			c.evictKeyedTexture(key, tex)
		case !tex.pendingInvalidation.Load():
			tex.lastDemand = c.demandClock
			tex.markInFlight(fence)
			return tex, nil
		default:
			// Stale hit: guest wrote the backing range. Re-upload in place.
			if encoder == nil {
				return nil, ErrNoCommandBuffer
			}
			if err := c.uploadTexture(encoder, fence, tex, info); err != nil {
				c.evictKeyedTexture(key, tex)
				return nil, fmt.Errorf("%w: revalidate %s: %w", ErrUploadFailed, info, err)
			}
			tex.pendingInvalidation.Store(false)
			c.registerWatch(tex)
			tex.lastDemand = c.demandClock
			tex.markInFlight(fence)
			slogger().Debug("texres: revalidated", "texture", info.String())
			return tex, nil
		}
	}

	if encoder == nil {
		return nil, ErrNoCommandBuffer
	}

	tex, err := c.allocateTexture(info, true)
	if err != nil {
		return nil, err
	}
	if err := c.uploadTexture(encoder, fence, tex, info); err != nil {
		c.destroyTexture(tex)
		return nil, fmt.Errorf("%w: %s: %w", ErrUploadFailed, info, err)
	}
	c.textures[key] = c.arena.insert(tex)
	c.registerWatch(tex)
	tex.lastDemand = c.demandClock
	tex.markInFlight(fence)
	slogger().Debug("texres: uploaded", "texture", info.String())
	return tex, nil
}

// DemandResolveTexture returns a texture for a GPU-internal resolve target,
// where only address, sizes, and format are known. An existing resolve
// texture whose footprint contains the request is reused, possibly larger
// than asked for, and outOffset receives the texel offset of the request
// within it. The returned image is always at least large enough to hold the
// requested footprint. No upload happens; the resolve writes the contents.
func (c *TextureCache) DemandResolveTexture(info guest.TextureInfo, format guest.Format, outOffset *image.Point) (*Texture, error) {
	if c.closed {
		return nil, ErrCacheClosed
	}
	c.drainInvalidations()
	c.demandClock++
	info.Format = format

	for _, h := range c.resolveTextures {
		tex := c.arena.get(h)
		if tex == nil || tex.pendingInvalidation.Load() {
			continue
		}
		if tex.info.Format != format {
			continue
		}
		if info.BaseAddress < tex.info.BaseAddress ||
			info.EndAddress() > tex.info.EndAddress() {
			continue
		}
		if info.Width > tex.info.Width || info.Height > tex.info.Height {
			continue
		}
		if outOffset != nil {
			byteOffset := info.BaseAddress - tex.info.BaseAddress
			pitch := tex.info.RowPitch()
			bw, bh := format.BlockSize()
			outOffset.Y = int(byteOffset / pitch * bh)
			outOffset.X = int(byteOffset % pitch / format.BytesPerBlock() * bw)
		}
		tex.lastDemand = c.demandClock
		return tex, nil
	}

	tex, err := c.allocateTexture(info, false)
	if err != nil {
		return nil, err
	}
	c.resolveTextures = append(c.resolveTextures, c.arena.insert(tex))
	tex.lastDemand = c.demandClock
	if outOffset != nil {
		*outOffset = image.Point{}
	}
	slogger().Debug("texres: resolve texture created", "texture", info.String())
	return tex, nil
}

// allocateTexture reserves the host image for info. Out-of-memory is
// recovered once by evicting reclaimable entries; a second failure is
// reported as ErrOutOfDeviceMemory and the caller degrades the slot.
func (c *TextureCache) allocateTexture(info guest.TextureInfo, fullTexture bool) (*Texture, error) {
	layers := info.Dimension.FaceCount()
	hostSize := uint64(info.Width) * uint64(info.Height) *
		uint64(info.Format.HostBytesPerPixel()) * uint64(layers)

	if c.usedBytes+hostSize > c.budgetBytes {
		c.relieveMemoryPressure(hostSize)
	}

	desc := &hal.TextureDescriptor{
		Label: fmt.Sprintf("texres_%08x_%s", info.BaseAddress, info.Format),
		Size: hal.Extent3D{
			Width:              info.Width,
			Height:             info.Height,
			DepthOrArrayLayers: layers,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        info.Format.HostFormat(),
		Usage: gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopyDst |
			gputypes.TextureUsageCopySrc,
	}

	img, err := c.device.CreateTexture(desc)
	if err != nil {
		// Transient exhaustion: free what the GPU is done with, retry once.
		c.relieveMemoryPressure(hostSize)
		img, err = c.device.CreateTexture(desc)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrOutOfDeviceMemory, info, err)
		}
	}

	c.usedBytes += hostSize
	return &Texture{
		info:        info,
		fullTexture: fullTexture,
		hostFormat:  info.Format.HostFormat(),
		image:       img,
		usage:       gputypes.TextureUsageCopyDst,
		sizeBytes:   hostSize,
	}, nil
}

// freeTexture releases a texture immediately. It refuses, returning
// false, while the texture's last fence is unsignaled or a queued
// descriptor set still references it; the caller must route such entries
// through the reclaimer instead.
func (c *TextureCache) freeTexture(tex *Texture) bool {
	if tex.fencePending() || c.reclaim.holdsTexture(tex) {
		return false
	}
	c.destroyTexture(tex)
	return true
}

// destroyTexture tears a texture down unconditionally: views, image,
// watch, and budget accounting. Reclaimer callbacks land here once the
// fence gate has cleared.
func (c *TextureCache) destroyTexture(tex *Texture) {
	c.releaseWatch(tex)
	c.destroyViews(tex)
	if tex.image != nil {
		c.device.DestroyTexture(tex.image)
		tex.image = nil
	}
	c.usedBytes -= tex.sizeBytes
	tex.sizeBytes = 0
}

// evictKeyedTexture removes a keyed entry from the live registry. A
// fence-pending texture moves to the reclaimer's pending queue rather than
// being destroyed.
func (c *TextureCache) evictKeyedTexture(key uint64, tex *Texture) {
	delete(c.textures, key)
	c.arena.remove(tex.handle)
	c.releaseWatch(tex)
	c.evictions++
	if !c.freeTexture(tex) {
		c.reclaim.trackTexture(tex, tex.inFlight)
	}
}

// relieveMemoryPressure evicts least-recently-demanded entries that are
// not fence-pending until roughly want bytes have been freed or nothing
// evictable remains.
func (c *TextureCache) relieveMemoryPressure(want uint64) {
	c.Scavenge()

	freed := uint64(0)
	for freed < want {
		var victimKey uint64
		var victim *Texture
		for key, h := range c.textures {
			tex := c.arena.get(h)
			if tex == nil || tex.fencePending() {
				continue
			}
			if victim == nil || tex.lastDemand < victim.lastDemand {
				victimKey, victim = key, tex
			}
		}
		if victim == nil {
			break
		}
		freed += victim.sizeBytes
		c.evictKeyedTexture(victimKey, victim)
	}
	if freed > 0 {
		slogger().Warn("texres: evicted under memory pressure", "bytes", freed)
	}
}
