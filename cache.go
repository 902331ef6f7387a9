package texres

import (
	"fmt"
	"sync"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// Memory limits.
const (
	// DefaultMemoryBudgetMB is the default texture memory budget (256 MB).
	DefaultMemoryBudgetMB = 256

	// MinMemoryBudgetMB is the minimum allowed budget (16 MB).
	MinMemoryBudgetMB = 16

	// BindingSlotCount is the number of fetch-constant binding slots the
	// fixed descriptor-set layout exposes. Slot i binds its texture view
	// at binding i and its sampler at binding BindingSlotCount+i.
	BindingSlotCount = 32
)

// Config holds construction parameters for a TextureCache. Zero values
// select defaults.
type Config struct {
	// StagingMB is the upload ring size in megabytes.
	StagingMB int

	// MemoryBudgetMB is the texture memory budget in megabytes. The cache
	// evicts reclaimable entries when an allocation would exceed it.
	MemoryBudgetMB int

	// TraceWriter receives guest memory read notifications. Nil disables
	// tracing.
	TraceWriter TraceWriter
}

// Stats are cumulative cache counters.
type Stats struct {
	TexturesLive   int
	SamplersLive   int
	Uploads        uint64
	Invalidations  uint64
	Evictions      uint64
	StagingFlushes uint64
	SetsPrepared   uint64
	UsedBytes      uint64
	BudgetBytes    uint64
}

// String returns a one-line summary.
func (s Stats) String() string {
	return fmt.Sprintf("TexCache[%d textures, %d samplers, %d/%d MB, %d uploads, %d evictions]",
		s.TexturesLive, s.SamplersLive,
		s.UsedBytes/(1024*1024), s.BudgetBytes/(1024*1024),
		s.Uploads, s.Evictions)
}

// TextureCache owns every host texture, view, and sampler translated from
// guest state, the staging ring that feeds uploads, and the fence-gated
// reclamation queue.
//
// All methods are producer-thread only; the single cross-thread entry
// point is the watch callback, which confines itself to the mutex-guarded
// invalidation buffers (see invalidate.go).
type TextureCache struct {
	device hal.Device
	queue  hal.Queue
	memory GuestMemory
	trace  TraceWriter

	staging *stagingRing

	arena    textureArena
	textures map[uint64]Handle
	samplers map[uint64]*Sampler

	// resolveTextures holds demand-created resolve targets; they are not
	// keyed (partial metadata) and are searched by footprint.
	resolveTextures []Handle

	reclaim reclaimer

	layout hal.BindGroupLayout

	// placeholder resources back degraded and unreferenced binding slots.
	placeholder     *Texture
	placeholderView *TextureView
	defaultSampler  *Sampler

	// Invalidation handoff. The watch callback appends to the active slot
	// under invalidMu; the producer swaps slots to drain. Resolve-target
	// invalidation is driven by resolve operations, not guest writes, and
	// keeps its own list and lock.
	invalidMu        sync.Mutex
	invalidActive    int
	invalidBufs      [2][]*Texture
	resolveInvalidMu sync.Mutex
	invalidResolve   []*Texture

	converters map[guest.Format]ConvertFunc

	budgetBytes uint64
	usedBytes   uint64
	demandClock uint64
	closed      bool

	uploads        uint64
	invalidations  uint64
	evictions      uint64
	stagingFlushes uint64
	setsPrepared   uint64
}

// NewTextureCache creates a cache bound to a host device and queue and a
// guest memory space.
func NewTextureCache(device hal.Device, queue hal.Queue, memory GuestMemory, cfg Config) (*TextureCache, error) {
	if device == nil || queue == nil {
		return nil, fmt.Errorf("texres: nil device or queue")
	}
	if memory == nil {
		return nil, fmt.Errorf("texres: nil guest memory")
	}

	stagingMB := cfg.StagingMB
	if stagingMB < MinStagingMB {
		stagingMB = DefaultStagingMB
	}
	budgetMB := cfg.MemoryBudgetMB
	if budgetMB < MinMemoryBudgetMB {
		budgetMB = DefaultMemoryBudgetMB
	}
	trace := cfg.TraceWriter
	if trace == nil {
		trace = NopTraceWriter{}
	}

	c := &TextureCache{
		device:      device,
		queue:       queue,
		memory:      memory,
		trace:       trace,
		textures:    make(map[uint64]Handle),
		samplers:    make(map[uint64]*Sampler),
		reclaim:     reclaimer{device: device},
		converters:  builtinConverters(),
		budgetBytes: uint64(budgetMB) * 1024 * 1024,
	}

	staging, err := newStagingRing(device, queue, uint64(stagingMB)*1024*1024)
	if err != nil {
		return nil, err
	}
	c.staging = staging

	if err := c.createSetLayout(); err != nil {
		c.staging.destroy()
		return nil, err
	}
	if err := c.createPlaceholders(); err != nil {
		c.device.DestroyBindGroupLayout(c.layout)
		c.staging.destroy()
		return nil, err
	}

	slogger().Info("texres: cache created",
		"staging_mb", stagingMB, "budget_mb", budgetMB)
	return c, nil
}

// createSetLayout builds the fixed 32-slot layout: texture at binding i,
// sampler at binding 32+i. The shader-binding layer must match this layout
// exactly.
func (c *TextureCache) createSetLayout() error {
	entries := make([]gputypes.BindGroupLayoutEntry, 0, 2*BindingSlotCount)
	for i := uint32(0); i < BindingSlotCount; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    i,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		})
	}
	for i := uint32(0); i < BindingSlotCount; i++ {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    BindingSlotCount + i,
			Visibility: gputypes.ShaderStageVertex | gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		})
	}

	layout, err := c.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "texres_texture_set_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create texture set layout: %w", err)
	}
	c.layout = layout
	return nil
}

// createPlaceholders builds the 1x1 texture, view, and default sampler
// that fill unresolved binding slots.
func (c *TextureCache) createPlaceholders() error {
	image, err := c.device.CreateTexture(&hal.TextureDescriptor{
		Label:         "texres_placeholder",
		Size:          hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        gputypes.TextureFormatRGBA8Unorm,
		Usage:         gputypes.TextureUsageTextureBinding | gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return fmt.Errorf("create placeholder texture: %w", err)
	}

	tex := &Texture{
		info: guest.TextureInfo{
			Width: 1, Height: 1,
			Format:    guest.FormatRGBA8,
			MipLevels: 1,
		},
		fullTexture: false,
		hostFormat:  gputypes.TextureFormatRGBA8Unorm,
		image:       image,
		usage:       gputypes.TextureUsageCopyDst,
		sizeBytes:   4,
	}
	c.placeholder = tex

	// Transparent black, so a degraded binding reads as nothing rather
	// than garbage.
	c.queue.WriteTexture(
		&hal.ImageCopyTexture{Texture: image, MipLevel: 0},
		[]byte{0, 0, 0, 0},
		&hal.ImageDataLayout{Offset: 0, BytesPerRow: 4, RowsPerImage: 1},
		&hal.Extent3D{Width: 1, Height: 1, DepthOrArrayLayers: 1},
	)

	view, err := c.DemandView(tex, guest.SwizzleIdentity)
	if err != nil {
		c.device.DestroyTexture(image)
		return err
	}
	c.placeholderView = view

	sampler, err := c.DemandSampler(guest.SamplerInfo{})
	if err != nil {
		c.destroyViews(tex)
		c.device.DestroyTexture(image)
		return err
	}
	c.defaultSampler = sampler
	return nil
}

// TextureSetLayout returns the fixed descriptor-set layout the cache
// prepares bind groups against. The shader-binding layer must use this
// exact layout for slots 0-31.
func (c *TextureCache) TextureSetLayout() hal.BindGroupLayout { return c.layout }

// Stats returns a snapshot of cache counters.
func (c *TextureCache) Stats() Stats {
	return Stats{
		TexturesLive:   c.arena.len(),
		SamplersLive:   len(c.samplers),
		Uploads:        c.uploads,
		Invalidations:  c.invalidations,
		Evictions:      c.evictions,
		StagingFlushes: c.stagingFlushes,
		SetsPrepared:   c.setsPrepared,
		UsedBytes:      c.usedBytes,
		BudgetBytes:    c.budgetBytes,
	}
}

// Scavenge frees whatever has become reclaimable: it drains the
// invalidation buffers, retires fence-clear descriptor sets and evicted
// textures, and returns staging ring space. It polls fences but never
// waits.
func (c *TextureCache) Scavenge() {
	if c.closed {
		return
	}
	c.drainInvalidations()
	c.staging.scavenge()
	freed := c.reclaim.scavenge(c.destroyTexture)
	if freed > 0 {
		slogger().Debug("texres: scavenged", "freed", freed)
	}
}

// ClearCache destroys every cache entry unconditionally. The caller must
// guarantee no GPU work that references cache resources is outstanding;
// violating that corrupts host device lifetimes. Used at full-reset
// boundaries, not during normal operation.
func (c *TextureCache) ClearCache() {
	if c.closed {
		return
	}
	c.reclaim.drain(c.destroyTexture)

	for key, h := range c.textures {
		if tex := c.arena.remove(h); tex != nil {
			c.releaseWatch(tex)
			c.destroyTexture(tex)
		}
		delete(c.textures, key)
	}
	for _, h := range c.resolveTextures {
		if tex := c.arena.remove(h); tex != nil {
			c.destroyTexture(tex)
		}
	}
	c.resolveTextures = nil

	for key, s := range c.samplers {
		if s == c.defaultSampler {
			continue
		}
		c.device.DestroySampler(s.sampler)
		delete(c.samplers, key)
	}

	c.invalidMu.Lock()
	c.invalidBufs[0] = nil
	c.invalidBufs[1] = nil
	c.invalidMu.Unlock()
	c.resolveInvalidMu.Lock()
	c.invalidResolve = nil
	c.resolveInvalidMu.Unlock()

	c.usedBytes = 0
	slogger().Info("texres: cache cleared")
}

// Destroy tears the cache down completely: clears all entries, then the
// placeholder resources, set layout, and staging ring. The same
// outstanding-work contract as ClearCache applies.
func (c *TextureCache) Destroy() {
	if c.closed {
		return
	}

	// Unlike ClearCache, Destroy owns the shutdown: wait out every fence
	// the reclaimer still gates on before tearing resources down.
	for i := range c.reclaim.pending {
		if f := c.reclaim.pending[i].fence; f != nil {
			if err := f.Wait(stagingFlushTimeout); err != nil {
				slogger().Warn("texres: fence wait during destroy", "error", err)
			}
		}
	}
	c.ClearCache()

	if c.placeholder != nil {
		c.destroyViews(c.placeholder)
		c.device.DestroyTexture(c.placeholder.image)
		c.placeholder = nil
		c.placeholderView = nil
	}
	if c.defaultSampler != nil {
		c.device.DestroySampler(c.defaultSampler.sampler)
		delete(c.samplers, c.defaultSampler.info.Key())
		c.defaultSampler = nil
	}
	if c.layout != nil {
		c.device.DestroyBindGroupLayout(c.layout)
		c.layout = nil
	}
	c.staging.destroy()
	c.closed = true
	slogger().Info("texres: cache destroyed")
}
