package texres

import (
	"fmt"
	"time"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// stagingFlushTimeout bounds the synchronous wait of a mid-build flush.
const stagingFlushTimeout = 5 * time.Second

// ConvertFunc decodes one face of guest texel data into host-format rows.
// dst holds info.Height rows of dstPitch bytes each (dstPitch is already
// row-aligned for the copy); src is the face's guest bytes laid out per
// info (pitch, tiling). Kernels own detiling and format expansion; the
// cache owns everything around them.
type ConvertFunc func(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo) error

// RegisterConverter installs or replaces the conversion kernel for a guest
// format. Formats without a kernel fail their uploads, degrading the
// affected binding slots to placeholders.
func (c *TextureCache) RegisterConverter(format guest.Format, fn ConvertFunc) {
	c.converters[format] = fn
}

// builtinConverters covers the formats whose decode is a plain row copy or
// a trivial 16-bit unpack. Block-compressed and tiled decodes are external
// kernels registered by the format-conversion collaborator.
func builtinConverters() map[guest.Format]ConvertFunc {
	linear := ConvertFunc(convertLinear)
	return map[guest.Format]ConvertFunc{
		guest.FormatRGBA8: linear,
		guest.FormatBGRA8: linear,
		guest.FormatR8:    linear,
		guest.Format565:   convert565,
		guest.Format4444:  convert4444,
		guest.Format1555:  convert1555,
	}
}

func convertLinear(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo) error {
	if info.Tiled {
		return fmt.Errorf("no detiling kernel registered for %s", info.Format)
	}
	srcPitch := info.RowPitch()
	rowBytes := info.Width * info.Format.BytesPerBlock()
	for y := uint32(0); y < info.Height; y++ {
		srcRow := src[y*srcPitch : y*srcPitch+rowBytes]
		copy(dst[y*dstPitch:], srcRow)
	}
	return nil
}

// unpack16 expands each 16-bit texel to RGBA8 through unpack.
func unpack16(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo, unpack func(uint16) [4]byte) error {
	if info.Tiled {
		return fmt.Errorf("no detiling kernel registered for %s", info.Format)
	}
	srcPitch := info.RowPitch()
	for y := uint32(0); y < info.Height; y++ {
		srcRow := src[y*srcPitch:]
		dstRow := dst[y*dstPitch:]
		for x := uint32(0); x < info.Width; x++ {
			texel := uint16(srcRow[2*x]) | uint16(srcRow[2*x+1])<<8
			px := unpack(texel)
			copy(dstRow[4*x:4*x+4], px[:])
		}
	}
	return nil
}

func convert565(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo) error {
	return unpack16(dst, dstPitch, src, info, func(t uint16) [4]byte {
		r := uint8(t >> 11 & 0x1f)
		g := uint8(t >> 5 & 0x3f)
		b := uint8(t & 0x1f)
		return [4]byte{r<<3 | r>>2, g<<2 | g>>4, b<<3 | b>>2, 0xff}
	})
}

func convert4444(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo) error {
	return unpack16(dst, dstPitch, src, info, func(t uint16) [4]byte {
		r := uint8(t >> 12 & 0xf)
		g := uint8(t >> 8 & 0xf)
		b := uint8(t >> 4 & 0xf)
		a := uint8(t & 0xf)
		return [4]byte{r<<4 | r, g<<4 | g, b<<4 | b, a<<4 | a}
	})
}

func convert1555(dst []byte, dstPitch uint32, src []byte, info guest.TextureInfo) error {
	return unpack16(dst, dstPitch, src, info, func(t uint16) [4]byte {
		r := uint8(t >> 10 & 0x1f)
		g := uint8(t >> 5 & 0x1f)
		b := uint8(t & 0x1f)
		a := uint8(0)
		if t&0x8000 != 0 {
			a = 0xff
		}
		return [4]byte{r<<3 | r>>2, g<<3 | g>>2, b<<3 | b>>2, a}
	})
}

// uploadTexture dispatches on the texture's shape.
func (c *TextureCache) uploadTexture(encoder hal.CommandEncoder, fence *Fence, dest *Texture, info guest.TextureInfo) error {
	if info.Dimension == guest.DimensionCube {
		return c.uploadTextureCube(encoder, fence, dest, info)
	}
	return c.uploadTexture2D(encoder, fence, dest, info)
}

// uploadTexture2D converts one 2D face through the staging ring and
// records the copy and layout transitions into encoder.
func (c *TextureCache) uploadTexture2D(encoder hal.CommandEncoder, fence *Fence, dest *Texture, info guest.TextureInfo) error {
	if err := c.uploadFace(encoder, fence, dest, info, 0); err != nil {
		return err
	}
	dest.transitionUsage(encoder, gputypes.TextureUsageTextureBinding)
	c.uploads++
	return nil
}

// uploadTextureCube uploads all six faces, each through its own staging
// region.
func (c *TextureCache) uploadTextureCube(encoder hal.CommandEncoder, fence *Fence, dest *Texture, info guest.TextureInfo) error {
	for face := uint32(0); face < 6; face++ {
		if err := c.uploadFace(encoder, fence, dest, info, face); err != nil {
			return fmt.Errorf("face %d: %w", face, err)
		}
	}
	dest.transitionUsage(encoder, gputypes.TextureUsageTextureBinding)
	c.uploads++
	return nil
}

// uploadFace stages one face's texels and records its buffer-to-image
// copy. When the staging ring cannot hold the transfer, the in-progress
// command buffer is flushed to the GPU and synchronously waited on to
// reclaim ring space. That stall is deliberate backpressure, not an error.
func (c *TextureCache) uploadFace(encoder hal.CommandEncoder, fence *Fence, dest *Texture, info guest.TextureInfo, face uint32) error {
	conv := c.converters[info.Format]
	if conv == nil {
		return fmt.Errorf("no conversion kernel for format %s", info.Format)
	}

	faceBytes := info.FaceSizeBytes()
	srcAddr := info.BaseAddress + face*faceBytes
	src, err := c.memory.Span(srcAddr, faceBytes)
	if err != nil {
		return fmt.Errorf("read guest memory @%08x+%d: %w", srcAddr, faceBytes, err)
	}
	c.trace.WriteMemoryRead(srcAddr, faceBytes)

	dstPitch := uint32(alignUp(uint64(info.Width)*uint64(info.Format.HostBytesPerPixel()), copyPitchAlignment))
	transferSize := uint64(dstPitch) * uint64(info.Height)

	offset, ok := c.staging.acquire(transferSize, fence)
	if !ok {
		// Ring exhausted: push the recorded work to the GPU and wait for
		// it so its staging regions come back.
		if err := c.flushStaging(encoder, fence); err != nil {
			return err
		}
		offset, ok = c.staging.acquire(transferSize, fence)
		if !ok {
			return fmt.Errorf("%w: transfer of %d bytes", ErrStagingExhausted, transferSize)
		}
	}

	pixels := make([]byte, transferSize)
	if err := conv(pixels, dstPitch, src, info); err != nil {
		return fmt.Errorf("convert %s: %w", info.Format, err)
	}
	c.staging.write(offset, pixels)

	dest.transitionUsage(encoder, gputypes.TextureUsageCopyDst)
	encoder.CopyBufferToTexture(c.staging.buffer, dest.image, []hal.BufferTextureCopy{{
		BufferLayout: hal.ImageDataLayout{
			Offset:       offset,
			BytesPerRow:  dstPitch,
			RowsPerImage: info.Height,
		},
		TextureBase: hal.ImageCopyTexture{
			Texture:  dest.image,
			MipLevel: 0,
			Origin:   hal.Origin3D{X: 0, Y: 0, Z: face},
			Aspect:   gputypes.TextureAspectAll,
		},
		Size: hal.Extent3D{Width: info.Width, Height: info.Height, DepthOrArrayLayers: 1},
	}})
	return nil
}

// flushStaging ends the in-progress encoder, submits it behind a private
// fence, blocks until the GPU finishes, retires the ring regions that work
// consumed, and reopens the encoder for further recording.
func (c *TextureCache) flushStaging(encoder hal.CommandEncoder, fence *Fence) error {
	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		return fmt.Errorf("flush staging: end encoding: %w", err)
	}

	flushFence, err := NewFence(c.device)
	if err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("flush staging: %w", err)
	}
	defer flushFence.Destroy()

	if err := c.queue.Submit([]hal.CommandBuffer{cmdBuf}, flushFence.Raw(), flushFence.Value()); err != nil {
		c.device.FreeCommandBuffer(cmdBuf)
		return fmt.Errorf("flush staging: submit: %w", err)
	}
	waitErr := flushFence.Wait(stagingFlushTimeout)
	c.device.FreeCommandBuffer(cmdBuf)
	if waitErr != nil {
		return fmt.Errorf("flush staging: %w", waitErr)
	}

	// Everything recorded so far has executed: regions tagged with the
	// caller's fence are done even though that fence never signals for
	// this submission, and older submissions' fences have signaled.
	c.staging.retireFence(fence)
	c.staging.scavenge()
	c.stagingFlushes++
	slogger().Warn("texres: staging ring flushed mid-build")

	if err := encoder.BeginEncoding("texres_upload_resume"); err != nil {
		return fmt.Errorf("flush staging: reopen encoder: %w", err)
	}
	return nil
}
