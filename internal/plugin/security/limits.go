package security

import (
	"time"
)

// ResourceLimits defines resource limits for a plugin.
type ResourceLimits struct {
	// Memory limit in bytes (advisory - the JS heap is not strictly bounded)
	MemoryLimit int64

	// Maximum execution time per call into the plugin
	ExecutionTimeout time.Duration

	// Maximum decompressed size of a single archive entry at load time
	MaxEntrySize int64

	// Maximum number of bytes a plugin may write through a single
	// writable stream. Zero means unlimited.
	MaxOutputSize int64
}

// DefaultResourceLimits returns sensible default limits.
func DefaultResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      10 * 1024 * 1024, // 10 MB
		ExecutionTimeout: 5 * time.Second,
		MaxEntrySize:     32 * 1024 * 1024, // 32 MB
		MaxOutputSize:    16 * 1024 * 1024, // 16 MB
	}
}

// StrictResourceLimits returns stricter limits for untrusted plugins.
func StrictResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      5 * 1024 * 1024, // 5 MB
		ExecutionTimeout: 2 * time.Second,
		MaxEntrySize:     4 * 1024 * 1024, // 4 MB
		MaxOutputSize:    1 * 1024 * 1024, // 1 MB
	}
}

// RelaxedResourceLimits returns relaxed limits for trusted plugins.
func RelaxedResourceLimits() ResourceLimits {
	return ResourceLimits{
		MemoryLimit:      50 * 1024 * 1024, // 50 MB
		ExecutionTimeout: 30 * time.Second,
		MaxEntrySize:     256 * 1024 * 1024, // 256 MB
		MaxOutputSize:    128 * 1024 * 1024, // 128 MB
	}
}
