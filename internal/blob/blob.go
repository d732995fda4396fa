// Package blob provides opaque binary handles for plugin-visible file
// content. A blob exposes its bytes through repeatable readers and
// optionally knows its size, content digest, and media type.
package blob

import (
	"io"
)

// SizeUnknown is reported by SizeAware when a blob's size cannot be
// determined.
const SizeUnknown int64 = -1

// ReadOnlyBlob is a handle to binary content.
type ReadOnlyBlob interface {
	// ReadCloser returns a new reader positioned at the start of the
	// blob. It may be called multiple times; it is the caller's
	// responsibility to close each returned reader.
	ReadCloser() (io.ReadCloser, error)
}

// SizeAware is implemented by blobs that know their size.
type SizeAware interface {
	// Size returns the blob size in bytes, or SizeUnknown.
	Size() int64
}

// DigestAware is implemented by blobs that know their content digest.
type DigestAware interface {
	// Digest returns the blob's content digest if known.
	Digest() (digest string, known bool)
}

// MediaTypeAware is implemented by blobs associated with a media type.
type MediaTypeAware interface {
	// MediaType returns the blob's media type if known.
	MediaType() (mediaType string, known bool)
}
