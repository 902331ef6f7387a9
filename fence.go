package texres

import (
	"fmt"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Fence pairs a hal fence with the value a submission will signal it to.
// A *Fence is shared freely: the cache, every texture the submission
// touched, and the reclaimer all hold the same pointer, and Signaled never
// takes ownership. The creator of the submission owns destruction.
type Fence struct {
	device hal.Device
	raw    hal.Fence
	value  uint64
}

// NewFence creates a fence to be signaled to value 1 by its submission.
func NewFence(device hal.Device) (*Fence, error) {
	raw, err := device.CreateFence()
	if err != nil {
		return nil, fmt.Errorf("create fence: %w", err)
	}
	return &Fence{device: device, raw: raw, value: 1}, nil
}

// Raw returns the underlying hal fence for queue submission.
func (f *Fence) Raw() hal.Fence { return f.raw }

// Value returns the value the submission signals the fence to.
func (f *Fence) Value() uint64 { return f.value }

// Signaled polls the fence without blocking.
func (f *Fence) Signaled() bool {
	ok, err := f.device.Wait(f.raw, f.value, 0)
	return err == nil && ok
}

// Wait blocks until the fence signals or the timeout elapses.
func (f *Fence) Wait(timeout time.Duration) error {
	ok, err := f.device.Wait(f.raw, f.value, timeout)
	if err != nil {
		return fmt.Errorf("wait fence: %w", err)
	}
	if !ok {
		return fmt.Errorf("wait fence: timeout after %v", timeout)
	}
	return nil
}

// Destroy releases the hal fence. Only the submission owner calls this,
// and only once no cache object still references the fence.
func (f *Fence) Destroy() {
	if f.raw != nil {
		f.device.DestroyFence(f.raw)
		f.raw = nil
	}
}
