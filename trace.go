package texres

// TraceWriter receives passive notifications about guest memory the cache
// reads, for diagnostic capture and playback. Implementations must not
// call back into the cache; nothing they return affects cache behavior.
type TraceWriter interface {
	// WriteMemoryRead records that [addr, addr+length) was read from
	// guest memory to source an upload.
	WriteMemoryRead(addr, length uint32)
}

// NopTraceWriter discards all trace notifications.
type NopTraceWriter struct{}

// WriteMemoryRead implements TraceWriter.
func (NopTraceWriter) WriteMemoryRead(addr, length uint32) {}
