package texres

import "errors"

// Cache errors. Transient conditions (staging or device memory pressure)
// are recovered internally where the contract allows; only the sentinels
// below escape to callers.
var (
	// ErrNoCommandBuffer is returned by Demand when the texture is not
	// resident and no command encoder was supplied to upload it with.
	ErrNoCommandBuffer = errors.New("texres: upload required but no command encoder supplied")

	// ErrOutOfDeviceMemory is returned when a texture allocation fails
	// even after evicting reclaimable cache entries.
	ErrOutOfDeviceMemory = errors.New("texres: out of device memory")

	// ErrUploadFailed is returned when guest texel data cannot be read or
	// converted for upload.
	ErrUploadFailed = errors.New("texres: texture upload failed")

	// ErrStagingExhausted is returned when the staging ring cannot hold a
	// transfer even after flushing all in-flight work.
	ErrStagingExhausted = errors.New("texres: staging ring exhausted")

	// ErrCacheClosed is returned when operating on a destroyed cache.
	ErrCacheClosed = errors.New("texres: texture cache destroyed")
)
