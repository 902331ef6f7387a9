package texres

import (
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"
)

// Staging ring settings.
const (
	// DefaultStagingMB is the default upload ring size (16 MB).
	DefaultStagingMB = 16

	// MinStagingMB is the minimum allowed ring size (1 MB).
	MinStagingMB = 1

	// stagingOffsetAlignment keeps every reservation at a copy-legal
	// buffer offset.
	stagingOffsetAlignment = 512

	// copyPitchAlignment is the row alignment buffer-to-texture copies
	// require (256 bytes on WebGPU and DX12).
	copyPitchAlignment = 256
)

// stagingRegion is one reservation in flight on the GPU. pad counts bytes
// wasted at the end of the buffer when the reservation wrapped to offset 0.
type stagingRegion struct {
	offset uint64
	size   uint64
	pad    uint64
	fence  *Fence
	done   bool
}

// stagingRing is a circular transient allocator feeding texture uploads.
// Reservations are consumed by copy commands and reclaimed in FIFO order
// once the fence of the submission that consumed them signals.
//
// The ring is owned by the producer thread; none of its methods are safe
// for concurrent use.
type stagingRing struct {
	device   hal.Device
	queue    hal.Queue
	buffer   hal.Buffer
	capacity uint64

	// head is the next write offset; used counts live bytes including
	// wrap padding. head == (tail + used) mod capacity.
	head uint64
	used uint64

	inFlight []stagingRegion
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

func newStagingRing(device hal.Device, queue hal.Queue, capacity uint64) (*stagingRing, error) {
	buffer, err := device.CreateBuffer(&hal.BufferDescriptor{
		Label: "texres_staging_ring",
		Size:  capacity,
		Usage: gputypes.BufferUsageCopySrc | gputypes.BufferUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create staging ring: %w", err)
	}
	return &stagingRing{
		device:   device,
		queue:    queue,
		buffer:   buffer,
		capacity: capacity,
	}, nil
}

// canAcquire reports whether a reservation of the given size could succeed
// right now, without reserving it.
func (r *stagingRing) canAcquire(size uint64) bool {
	_, _, ok := r.place(alignUp(size, stagingOffsetAlignment))
	return ok
}

// place computes the offset and wrap padding for a reservation of aligned
// size, without mutating state.
func (r *stagingRing) place(size uint64) (offset, pad uint64, ok bool) {
	if size == 0 || size > r.capacity {
		return 0, 0, false
	}
	head := r.head
	if len(r.inFlight) == 0 {
		head = 0
	}
	offset = head
	if head+size > r.capacity {
		pad = r.capacity - head
		offset = 0
	}
	if r.liveBytes()+size+pad > r.capacity {
		return 0, 0, false
	}
	return offset, pad, true
}

func (r *stagingRing) liveBytes() uint64 {
	if len(r.inFlight) == 0 {
		return 0
	}
	return r.used
}

// acquire reserves size bytes tagged with the fence of the submission that
// will consume them. It returns false when the ring lacks contiguous free
// space; the caller decides whether to flush and retry.
func (r *stagingRing) acquire(size uint64, fence *Fence) (uint64, bool) {
	size = alignUp(size, stagingOffsetAlignment)
	offset, pad, ok := r.place(size)
	if !ok {
		return 0, false
	}
	if len(r.inFlight) == 0 {
		r.head = 0
		r.used = 0
	}
	r.inFlight = append(r.inFlight, stagingRegion{
		offset: offset,
		size:   size,
		pad:    pad,
		fence:  fence,
	})
	r.head = offset + size
	if r.head == r.capacity {
		r.head = 0
	}
	r.used += size + pad
	return offset, true
}

// write copies pixel data into a reserved region.
func (r *stagingRing) write(offset uint64, data []byte) {
	r.queue.WriteBuffer(r.buffer, offset, data)
}

// scavenge reclaims regions from the front of the FIFO whose consuming
// submissions have completed. Polling only; never blocks.
func (r *stagingRing) scavenge() int {
	n := 0
	for len(r.inFlight) > 0 {
		front := &r.inFlight[0]
		if !front.done && !front.fence.Signaled() {
			break
		}
		r.used -= front.size + front.pad
		r.inFlight = r.inFlight[1:]
		n++
	}
	if len(r.inFlight) == 0 {
		r.head = 0
		r.used = 0
		r.inFlight = nil
	}
	return n
}

// retireFence marks every region tagged with fence as complete. Used after
// a mid-build flush has synchronously waited for the commands that consumed
// those regions.
func (r *stagingRing) retireFence(fence *Fence) {
	for i := range r.inFlight {
		if r.inFlight[i].fence == fence {
			r.inFlight[i].done = true
		}
	}
	r.scavenge()
}

func (r *stagingRing) destroy() {
	if r.buffer != nil {
		r.device.DestroyBuffer(r.buffer)
		r.buffer = nil
	}
	r.inFlight = nil
	r.head = 0
	r.used = 0
}
