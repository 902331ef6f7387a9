package texres

import (
	"fmt"
	"sync"
	"time"

	"github.com/gogpu/wgpu/hal"
)

// Test doubles for the hal interfaces. Each mock embeds the interface it
// doubles so only the methods the cache actually exercises need bodies;
// calling anything else panics, which is exactly what a test wants.

var mockHandleSeq uintptr

func nextMockHandle() uintptr {
	mockHandleSeq++
	return mockHandleSeq
}

type mockTexture struct {
	hal.Texture
	handle uintptr
	label  string
}

func (t *mockTexture) Destroy()              {}
func (t *mockTexture) NativeHandle() uintptr { return t.handle }

type mockTextureView struct {
	hal.TextureView
	handle uintptr
}

func (v *mockTextureView) Destroy()              {}
func (v *mockTextureView) NativeHandle() uintptr { return v.handle }

type mockSampler struct {
	hal.Sampler
	handle uintptr
}

func (s *mockSampler) Destroy()              {}
func (s *mockSampler) NativeHandle() uintptr { return s.handle }

type mockBuffer struct {
	hal.Buffer
	handle uintptr
	size   uint64
}

func (b *mockBuffer) Destroy()              {}
func (b *mockBuffer) NativeHandle() uintptr { return b.handle }

type mockBindGroup struct {
	hal.BindGroup
	entries int
}

type mockBindGroupLayout struct {
	hal.BindGroupLayout
}

type mockFence struct {
	hal.Fence
	id uintptr
}

type mockCommandBuffer struct {
	hal.CommandBuffer
}

// mockDevice doubles hal.Device. Fences are signaled by default; tests
// hold specific fences back with holdFence and release them with
// signalFence.
type mockDevice struct {
	hal.Device

	texturesCreated   int
	texturesDestroyed int
	viewsCreated      int
	viewsDestroyed    int
	samplersCreated   int
	samplersDestroyed int
	buffersCreated    int
	buffersDestroyed  int
	groupsCreated     int
	groupsDestroyed   int
	fencesCreated     int
	fencesDestroyed   int

	lastGroupEntries int

	// createTextureErr, when non-nil, is returned by CreateTexture for
	// failCount calls.
	createTextureErr error
	failCount        int

	unsignaled map[hal.Fence]bool
}

func newMockDevice() *mockDevice {
	return &mockDevice{unsignaled: make(map[hal.Fence]bool)}
}

func (d *mockDevice) holdFence(f hal.Fence)   { d.unsignaled[f] = true }
func (d *mockDevice) signalFence(f hal.Fence) { delete(d.unsignaled, f) }

func (d *mockDevice) CreateTexture(desc *hal.TextureDescriptor) (hal.Texture, error) {
	if d.createTextureErr != nil && d.failCount != 0 {
		if d.failCount > 0 {
			d.failCount--
		}
		return nil, d.createTextureErr
	}
	d.texturesCreated++
	return &mockTexture{handle: nextMockHandle(), label: desc.Label}, nil
}

func (d *mockDevice) DestroyTexture(hal.Texture) { d.texturesDestroyed++ }

func (d *mockDevice) CreateTextureView(_ hal.Texture, _ *hal.TextureViewDescriptor) (hal.TextureView, error) {
	d.viewsCreated++
	return &mockTextureView{handle: nextMockHandle()}, nil
}

func (d *mockDevice) DestroyTextureView(hal.TextureView) { d.viewsDestroyed++ }

func (d *mockDevice) CreateSampler(_ *hal.SamplerDescriptor) (hal.Sampler, error) {
	d.samplersCreated++
	return &mockSampler{handle: nextMockHandle()}, nil
}

func (d *mockDevice) DestroySampler(hal.Sampler) { d.samplersDestroyed++ }

func (d *mockDevice) CreateBuffer(desc *hal.BufferDescriptor) (hal.Buffer, error) {
	d.buffersCreated++
	return &mockBuffer{handle: nextMockHandle(), size: desc.Size}, nil
}

func (d *mockDevice) DestroyBuffer(hal.Buffer) { d.buffersDestroyed++ }

func (d *mockDevice) CreateBindGroupLayout(_ *hal.BindGroupLayoutDescriptor) (hal.BindGroupLayout, error) {
	return &mockBindGroupLayout{}, nil
}

func (d *mockDevice) DestroyBindGroupLayout(hal.BindGroupLayout) {}

func (d *mockDevice) CreateBindGroup(desc *hal.BindGroupDescriptor) (hal.BindGroup, error) {
	d.groupsCreated++
	d.lastGroupEntries = len(desc.Entries)
	return &mockBindGroup{entries: len(desc.Entries)}, nil
}

func (d *mockDevice) DestroyBindGroup(hal.BindGroup) { d.groupsDestroyed++ }

func (d *mockDevice) CreateFence() (hal.Fence, error) {
	d.fencesCreated++
	return &mockFence{id: nextMockHandle()}, nil
}

func (d *mockDevice) DestroyFence(hal.Fence) { d.fencesDestroyed++ }

func (d *mockDevice) Wait(f hal.Fence, _ uint64, _ time.Duration) (bool, error) {
	return !d.unsignaled[f], nil
}

func (d *mockDevice) FreeCommandBuffer(hal.CommandBuffer) {}

// mockQueue doubles hal.Queue and records writes and submissions.
type mockQueue struct {
	hal.Queue

	mu            sync.Mutex
	bufferWrites  []mockBufferWrite
	textureWrites int
	submits       int
}

type mockBufferWrite struct {
	offset uint64
	size   int
}

func (q *mockQueue) WriteBuffer(_ hal.Buffer, offset uint64, data []byte) error {
	q.mu.Lock()
	q.bufferWrites = append(q.bufferWrites, mockBufferWrite{offset: offset, size: len(data)})
	q.mu.Unlock()
	return nil
}

func (q *mockQueue) WriteTexture(_ *hal.ImageCopyTexture, _ []byte, _ *hal.ImageDataLayout, _ *hal.Extent3D) error {
	q.textureWrites++
	return nil
}

func (q *mockQueue) Submit(_ []hal.CommandBuffer, _ hal.Fence, _ uint64) error {
	q.submits++
	return nil
}

// mockEncoder doubles hal.CommandEncoder, counting recorded commands.
type mockEncoder struct {
	hal.CommandEncoder

	begun       int
	ended       int
	copies      int
	transitions int
}

func (e *mockEncoder) BeginEncoding(string) error { e.begun++; return nil }

func (e *mockEncoder) EndEncoding() (hal.CommandBuffer, error) {
	e.ended++
	return &mockCommandBuffer{}, nil
}

func (e *mockEncoder) DiscardEncoding() {}

func (e *mockEncoder) TransitionTextures([]hal.TextureBarrier) { e.transitions++ }

func (e *mockEncoder) CopyBufferToTexture(_ hal.Buffer, _ hal.Texture, _ []hal.BufferTextureCopy) {
	e.copies++
}

// mockGuestMemory is a flat guest physical memory with one-shot write
// watches, like the emulator's memory subsystem provides.
type mockGuestMemory struct {
	mu      sync.Mutex
	base    uint32
	data    []byte
	watches map[WatchHandle]mockWatch
	nextID  WatchHandle
}

type mockWatch struct {
	addr, length uint32
	callback     func()
}

func newMockGuestMemory(base uint32, size int) *mockGuestMemory {
	return &mockGuestMemory{
		base:    base,
		data:    make([]byte, size),
		watches: make(map[WatchHandle]mockWatch),
	}
}

func (m *mockGuestMemory) Span(addr, length uint32) ([]byte, error) {
	off := int64(addr) - int64(m.base)
	if off < 0 || off+int64(length) > int64(len(m.data)) {
		return nil, fmt.Errorf("span out of range: %08x+%d", addr, length)
	}
	return m.data[off : off+int64(length)], nil
}

func (m *mockGuestMemory) AddWriteWatch(addr, length uint32, callback func()) WatchHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	h := m.nextID
	m.watches[h] = mockWatch{addr: addr, length: length, callback: callback}
	return h
}

func (m *mockGuestMemory) CancelWatch(handle WatchHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.watches, handle)
}

// write simulates a guest CPU store: fires (and removes) every watch
// overlapping the range, then updates the bytes.
func (m *mockGuestMemory) write(addr uint32, data []byte) {
	m.mu.Lock()
	var fired []func()
	for h, w := range m.watches {
		if addr >= w.addr+w.length || addr+uint32(len(data)) <= w.addr {
			continue
		}
		fired = append(fired, w.callback)
		delete(m.watches, h)
	}
	m.mu.Unlock()

	for _, cb := range fired {
		cb()
	}
	copy(m.data[addr-m.base:], data)
}

func (m *mockGuestMemory) watchCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.watches)
}

// countTrace records memory-read notifications.
type countTrace struct {
	reads int
	bytes uint64
}

func (t *countTrace) WriteMemoryRead(_ uint32, length uint32) {
	t.reads++
	t.bytes += uint64(length)
}

// newTestCache builds a cache over fresh mocks.
func newTestCache(cfg Config) (*TextureCache, *mockDevice, *mockQueue, *mockGuestMemory) {
	device := newMockDevice()
	queue := &mockQueue{}
	memory := newMockGuestMemory(0, 16*1024*1024)
	cache, err := NewTextureCache(device, queue, memory, cfg)
	if err != nil {
		panic(err)
	}
	return cache, device, queue, memory
}

// newTestFence returns a shareable fence over the mock device.
func newTestFence(device *mockDevice) *Fence {
	f, err := NewFence(device)
	if err != nil {
		panic(err)
	}
	return f
}
