package texres

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// updateSetInfo accumulates one PrepareTextureSet call's descriptor
// writes. hasSetupFetchMask has one bit per fetch-constant slot so a slot
// referenced by both stages is resolved exactly once. The accumulator is
// stack-scoped; nothing of it survives the call.
type updateSetInfo struct {
	hasSetupFetchMask uint32
	entries           [2 * BindingSlotCount]gputypes.BindGroupEntry
}

// PrepareTextureSet resolves every texture binding the draw references,
// vertex and pixel stages both, and returns a freshly created bind group laid
// out per TextureSetLayout. Textures are uploaded, converted, and
// transitioned as needed on encoder. fence must be the draw's completion
// fence; the returned set is queued on it for reclamation and must not be
// used after a later Scavenge observes the fence signaled.
//
// A binding that cannot be resolved (upload failure, no kernel) degrades
// to the placeholder texture so the remaining slots still bind.
func (c *TextureCache) PrepareTextureSet(encoder hal.CommandEncoder, fence *Fence, vertexBindings, pixelBindings []guest.TextureBinding) (hal.BindGroup, error) {
	if c.closed {
		return nil, ErrCacheClosed
	}
	c.drainInvalidations()

	var update updateSetInfo
	placeholderTex := gputypes.TextureViewBinding{
		TextureView: c.placeholderView.Raw().NativeHandle(),
	}
	placeholderSamp := gputypes.SamplerBinding{
		Sampler: c.defaultSampler.Raw().NativeHandle(),
	}
	for i := uint32(0); i < BindingSlotCount; i++ {
		update.entries[i] = gputypes.BindGroupEntry{Binding: i, Resource: placeholderTex}
		update.entries[BindingSlotCount+i] = gputypes.BindGroupEntry{
			Binding: BindingSlotCount + i, Resource: placeholderSamp,
		}
	}

	c.setupTextureBindings(encoder, fence, &update, vertexBindings)
	c.setupTextureBindings(encoder, fence, &update, pixelBindings)

	bg, err := c.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "texres_texture_set",
		Layout:  c.layout,
		Entries: update.entries[:],
	})
	if err != nil {
		return nil, fmt.Errorf("create texture set: %w", err)
	}

	c.reclaim.trackSet(bg, fence)
	c.setsPrepared++
	return bg, nil
}

// setupTextureBindings resolves one stage's binding list, skipping slots
// already handled for this set.
func (c *TextureCache) setupTextureBindings(encoder hal.CommandEncoder, fence *Fence, update *updateSetInfo, bindings []guest.TextureBinding) {
	for i := range bindings {
		b := &bindings[i]
		if b.FetchConstant >= BindingSlotCount {
			slogger().Warn("texres: fetch constant out of range",
				"fetch_constant", b.FetchConstant, "stage", b.Stage.String())
			continue
		}
		bit := uint32(1) << b.FetchConstant
		if update.hasSetupFetchMask&bit != 0 {
			continue
		}
		c.setupTextureBinding(encoder, fence, update, b)
		update.hasSetupFetchMask |= bit
	}
}

// setupTextureBinding demands the texture, sampler, and view for one fetch
// constant and writes the slot's two descriptor entries. Failures leave
// the slot on its placeholder.
func (c *TextureCache) setupTextureBinding(encoder hal.CommandEncoder, fence *Fence, update *updateSetInfo, b *guest.TextureBinding) {
	tex, err := c.Demand(b.Texture, encoder, fence)
	if err != nil {
		slogger().Warn("texres: binding degraded to placeholder",
			"fetch_constant", b.FetchConstant, "error", err)
		return
	}

	view, err := c.DemandView(tex, b.Swizzle)
	if err != nil {
		slogger().Warn("texres: view creation failed",
			"fetch_constant", b.FetchConstant, "error", err)
		return
	}

	sampler, err := c.DemandSampler(b.Sampler)
	if err != nil {
		slogger().Warn("texres: sampler creation failed, using default",
			"fetch_constant", b.FetchConstant, "error", err)
		sampler = c.defaultSampler
	}

	tex.markInFlight(fence)
	update.entries[b.FetchConstant].Resource = gputypes.TextureViewBinding{
		TextureView: view.Raw().NativeHandle(),
	}
	update.entries[BindingSlotCount+b.FetchConstant].Resource = gputypes.SamplerBinding{
		Sampler: sampler.Raw().NativeHandle(),
	}
}
