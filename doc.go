// Package texres manages texture residency for an emulated console GPU's
// graphics backend.
//
// The emulated program describes textures through its register file; the
// register-file decoder turns those registers into guest.TextureInfo and
// guest.SamplerInfo descriptors. This package translates the descriptors
// into host GPU resources over github.com/gogpu/wgpu/hal, caches the
// translations keyed by guest memory location and format, keeps the cache
// coherent with writes the emulated CPU makes to the backing memory, and
// reclaims host resources only after the GPU completion fence that last
// touched them has signaled.
//
// The central type is TextureCache. A draw call asks PrepareTextureSet for
// a bind group covering the 32 fetch-constant slots; missing textures are
// staged through a circular upload ring and copied on the caller's command
// encoder. Guest writes to cached ranges arrive asynchronously via one-shot
// memory watches and mark entries stale; the next demand for a stale entry
// re-uploads it in place.
//
// All TextureCache methods except the watch callback path must be called
// from the single thread that builds GPU commands.
package texres
