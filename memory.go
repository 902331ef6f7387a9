package texres

// WatchHandle is an opaque token identifying one registered write watch.
type WatchHandle uintptr

// NoWatch is the zero WatchHandle; no watch is registered.
const NoWatch WatchHandle = 0

// GuestMemory is the emulated machine's physical memory, as the residency
// manager needs it: raw texel access for staging, and page-granularity
// write watches for invalidation.
//
// Watches are one-shot: after the callback fires the handle is dead and
// must not be cancelled. The callback runs on whatever thread performed
// the guest write, concurrently with the GPU thread; implementations must
// not call back into the cache from it beyond what the cache's own
// callback does.
type GuestMemory interface {
	// Span returns a read-only view of guest physical memory. The slice
	// aliases guest memory and is only valid until the next guest write;
	// upload paths copy out of it before returning.
	Span(addr, length uint32) ([]byte, error)

	// AddWriteWatch registers a one-shot callback for the first write
	// anywhere in [addr, addr+length).
	AddWriteWatch(addr, length uint32, callback func()) WatchHandle

	// CancelWatch removes a watch that has not fired.
	CancelWatch(handle WatchHandle)
}
