package texres

import (
	"fmt"
	"sync/atomic"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// Texture is one host-resident image backing a guest texture.
//
// The descriptor, host image, and views are owned by the cache and mutated
// only on the producer thread. pendingInvalidation is the single field the
// guest-write watch thread touches.
type Texture struct {
	info guest.TextureInfo

	// fullTexture is false when the entry was created for a resolve or
	// write target rather than a verified guest texture; such entries may
	// carry partial metadata and callers must tolerate that.
	fullTexture bool

	hostFormat gputypes.TextureFormat
	image      hal.Texture
	usage      gputypes.TextureUsage
	sizeBytes  uint64

	// views are exclusively owned, deduplicated per swizzle.
	views []*TextureView

	handle Handle
	watch  WatchHandle

	pendingInvalidation atomic.Bool

	// inFlight is the most recent completion fence that could still be
	// reading this texture on the GPU. Shared, never owned.
	inFlight *Fence
	inValue  uint64

	// lastDemand orders entries for eviction under memory pressure.
	lastDemand uint64
}

// Info returns the guest descriptor the texture was created from.
func (t *Texture) Info() guest.TextureInfo { return t.info }

// IsFullTexture reports whether the descriptor is fully trusted guest
// metadata, as opposed to the partial shape of a resolve target.
func (t *Texture) IsFullTexture() bool { return t.fullTexture }

// Image returns the host image handle.
func (t *Texture) Image() hal.Texture { return t.image }

// HostFormat returns the host format uploads decode into.
func (t *Texture) HostFormat() gputypes.TextureFormat { return t.hostFormat }

// Handle returns the texture's generation-checked arena handle.
func (t *Texture) Handle() Handle { return t.handle }

// PendingInvalidation reports whether guest memory behind the texture has
// been written since the last upload.
func (t *Texture) PendingInvalidation() bool { return t.pendingInvalidation.Load() }

// fencePending reports whether GPU work that references the texture may
// still be in flight.
func (t *Texture) fencePending() bool {
	return t.inFlight != nil && !t.inFlight.Signaled()
}

// markInFlight records fence as the latest user of the texture.
func (t *Texture) markInFlight(fence *Fence) {
	if fence != nil {
		t.inFlight = fence
		t.inValue = fence.Value()
	}
}

// transitionUsage records a usage-state barrier into the encoder and
// tracks the new state. No-op when already in the requested state.
func (t *Texture) transitionUsage(encoder hal.CommandEncoder, usage gputypes.TextureUsage) {
	if t.usage == usage {
		return
	}
	encoder.TransitionTextures([]hal.TextureBarrier{{
		Texture: t.image,
		Usage: hal.TextureUsageTransition{
			OldUsage: t.usage,
			NewUsage: usage,
		},
	}})
	t.usage = usage
}

// TextureView is a typed reinterpretation of a texture for binding. The
// swizzle is immutable; a different swizzle is a different view.
type TextureView struct {
	texture *Texture
	view    hal.TextureView
	swizzle guest.Swizzle
}

// Texture returns the view's owning texture.
func (v *TextureView) Texture() *Texture { return v.texture }

// Swizzle returns the channel swizzle the view was created with.
func (v *TextureView) Swizzle() guest.Swizzle { return v.swizzle }

// Raw returns the host view handle.
func (v *TextureView) Raw() hal.TextureView { return v.view }

// DemandView returns tex's view for the requested swizzle, creating it on
// first use. Two demands with equal swizzle return the same view object.
//
// Host texture views carry no channel swizzle of their own; the swizzle is
// bookkeeping the shader-binding layer folds into its fetch code. The view
// still exists per swizzle so bindings stay distinct and dedup stays exact.
func (c *TextureCache) DemandView(tex *Texture, swizzle guest.Swizzle) (*TextureView, error) {
	for _, v := range tex.views {
		if v.swizzle == swizzle {
			return v, nil
		}
	}

	dim := gputypes.TextureViewDimension2D
	layers := uint32(1)
	if tex.info.Dimension == guest.DimensionCube {
		dim = gputypes.TextureViewDimensionCube
		layers = 6
	}
	raw, err := c.device.CreateTextureView(tex.image, &hal.TextureViewDescriptor{
		Label:           fmt.Sprintf("texres_view_%08x_%s", tex.info.BaseAddress, swizzle),
		Format:          tex.hostFormat,
		Dimension:       dim,
		Aspect:          gputypes.TextureAspectAll,
		BaseMipLevel:    0,
		MipLevelCount:   1,
		BaseArrayLayer:  0,
		ArrayLayerCount: layers,
	})
	if err != nil {
		return nil, fmt.Errorf("create texture view: %w", err)
	}

	view := &TextureView{texture: tex, view: raw, swizzle: swizzle}
	tex.views = append(tex.views, view)
	return view, nil
}

// destroyViews releases every view owned by tex.
func (c *TextureCache) destroyViews(tex *Texture) {
	for _, v := range tex.views {
		c.device.DestroyTextureView(v.view)
		v.view = nil
	}
	tex.views = nil
}
