package texres

import "testing"

func newTestRing(t *testing.T, capacity uint64) (*stagingRing, *mockDevice) {
	t.Helper()
	device := newMockDevice()
	ring, err := newStagingRing(device, &mockQueue{}, capacity)
	if err != nil {
		t.Fatalf("newStagingRing: %v", err)
	}
	return ring, device
}

func TestStagingRingAlignment(t *testing.T) {
	ring, device := newTestRing(t, 4096)
	defer ring.destroy()
	fence := newTestFence(device)
	device.holdFence(fence.Raw())

	off, ok := ring.acquire(100, fence)
	if !ok || off != 0 {
		t.Fatalf("first acquire = (%d, %v), want (0, true)", off, ok)
	}
	off, ok = ring.acquire(100, fence)
	if !ok || off != stagingOffsetAlignment {
		t.Fatalf("second acquire = (%d, %v), want (%d, true)", off, ok, stagingOffsetAlignment)
	}
	if ring.used != 2*stagingOffsetAlignment {
		t.Fatalf("used = %d, want %d", ring.used, 2*stagingOffsetAlignment)
	}
}

func TestStagingRingExhaustionAndScavenge(t *testing.T) {
	ring, device := newTestRing(t, 4096)
	defer ring.destroy()
	fence := newTestFence(device)
	device.holdFence(fence.Raw())

	for i := 0; i < 2; i++ {
		if _, ok := ring.acquire(2048, fence); !ok {
			t.Fatalf("acquire %d failed with free space", i)
		}
	}
	if ring.canAcquire(1) {
		t.Fatal("canAcquire succeeded on a full ring")
	}
	if n := ring.scavenge(); n != 0 {
		t.Fatalf("scavenge freed %d regions with fence unsignaled", n)
	}

	device.signalFence(fence.Raw())
	if n := ring.scavenge(); n != 2 {
		t.Fatalf("scavenge freed %d regions, want 2", n)
	}
	if _, ok := ring.acquire(4096, fence); !ok {
		t.Fatal("acquire failed after full scavenge")
	}
}

func TestStagingRingWraparound(t *testing.T) {
	ring, device := newTestRing(t, 4096)
	defer ring.destroy()

	f1 := newTestFence(device)
	f2 := newTestFence(device)
	f3 := newTestFence(device)
	device.holdFence(f1.Raw())
	device.holdFence(f2.Raw())
	device.holdFence(f3.Raw())

	if off, _ := ring.acquire(1536, f1); off != 0 {
		t.Fatalf("first offset = %d, want 0", off)
	}
	if off, _ := ring.acquire(1536, f2); off != 1536 {
		t.Fatalf("second offset = %d, want 1536", off)
	}

	device.signalFence(f1.Raw())
	if n := ring.scavenge(); n != 1 {
		t.Fatalf("scavenge freed %d, want 1", n)
	}

	// 1024 bytes remain at the tail end; a 1536 reservation must wrap to
	// offset 0 and account the tail as padding.
	off, ok := ring.acquire(1536, f3)
	if !ok || off != 0 {
		t.Fatalf("wrapped acquire = (%d, %v), want (0, true)", off, ok)
	}
	if ring.used != 4096 {
		t.Fatalf("used = %d after wrap, want 4096 (pad included)", ring.used)
	}
	if ring.canAcquire(1) {
		t.Fatal("ring should be full after wrap")
	}

	// Freeing the second region releases its bytes but not the wrap pad,
	// which belongs to the third region.
	device.signalFence(f2.Raw())
	ring.scavenge()
	if ring.used != 1536+1024 {
		t.Fatalf("used = %d, want %d", ring.used, 1536+1024)
	}
}

func TestStagingRingRetireFence(t *testing.T) {
	ring, device := newTestRing(t, 4096)
	defer ring.destroy()

	held := newTestFence(device)
	device.holdFence(held.Raw())
	other := newTestFence(device)
	device.holdFence(other.Raw())

	ring.acquire(512, held)
	ring.acquire(512, held)
	ring.acquire(512, other)

	// retireFence completes the tagged regions even though their fence
	// never signals; the third region still gates on its own fence.
	ring.retireFence(held)
	if len(ring.inFlight) != 1 {
		t.Fatalf("inFlight = %d after retire, want 1", len(ring.inFlight))
	}
	if ring.used != 512 {
		t.Fatalf("used = %d after retire, want 512", ring.used)
	}
}

func TestStagingRingRejectsOversize(t *testing.T) {
	ring, device := newTestRing(t, 4096)
	defer ring.destroy()
	fence := newTestFence(device)

	if _, ok := ring.acquire(8192, fence); ok {
		t.Fatal("acquire of more than capacity succeeded")
	}
	if _, ok := ring.acquire(0, fence); ok {
		t.Fatal("zero-size acquire succeeded")
	}
}

func TestAlignUp(t *testing.T) {
	tests := []struct {
		v, align, want uint64
	}{
		{0, 256, 0},
		{1, 256, 256},
		{256, 256, 256},
		{257, 256, 512},
		{511, 512, 512},
	}
	for _, tt := range tests {
		if got := alignUp(tt.v, tt.align); got != tt.want {
			t.Errorf("alignUp(%d, %d) = %d, want %d", tt.v, tt.align, got, tt.want)
		}
	}
}
