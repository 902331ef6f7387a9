package texres

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/texres/guest"
)

// Sampler is cached host sampler state. Samplers describe no guest memory,
// so they have no invalidation path and live until ClearCache.
type Sampler struct {
	info    guest.SamplerInfo
	sampler hal.Sampler
}

// Info returns the guest descriptor the sampler was created from.
func (s *Sampler) Info() guest.SamplerInfo { return s.info }

// Raw returns the host sampler handle.
func (s *Sampler) Raw() hal.Sampler { return s.sampler }

func guestAddressMode(m guest.AddressMode) gputypes.AddressMode {
	switch m {
	case guest.AddressRepeat:
		return gputypes.AddressModeRepeat
	case guest.AddressMirror:
		return gputypes.AddressModeMirrorRepeat
	default:
		// Border color sampling has no direct host equivalent; edge
		// clamping is the closest the device offers.
		return gputypes.AddressModeClampToEdge
	}
}

func filterMode(linear bool) gputypes.FilterMode {
	if linear {
		return gputypes.FilterModeLinear
	}
	return gputypes.FilterModeNearest
}

// DemandSampler returns the cached sampler for info, creating it on miss.
func (c *TextureCache) DemandSampler(info guest.SamplerInfo) (*Sampler, error) {
	if c.closed {
		return nil, ErrCacheClosed
	}
	key := info.Key()
	if s, ok := c.samplers[key]; ok {
		return s, nil
	}

	raw, err := c.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        fmt.Sprintf("texres_sampler_%03x", key),
		AddressModeU: guestAddressMode(info.AddressU),
		AddressModeV: guestAddressMode(info.AddressV),
		AddressModeW: guestAddressMode(info.AddressW),
		MagFilter:    filterMode(info.MagLinear),
		MinFilter:    filterMode(info.MinLinear),
		MipmapFilter: filterMode(info.MipLinear),
	})
	if err != nil {
		return nil, fmt.Errorf("create sampler: %w", err)
	}

	s := &Sampler{info: info, sampler: raw}
	c.samplers[key] = s
	slogger().Debug("texres: sampler created", "key", key)
	return s, nil
}
