package blob

import (
	"bytes"
	"io"
	"mime"
	"path"
	"sync"

	"github.com/opencontainers/go-digest"
)

// DefaultMediaType is used when nothing better is known about a blob's
// content.
const DefaultMediaType = "application/octet-stream"

// Memory is an immutable in-memory blob. Construct with NewMemory; the
// zero value is not usable.
type Memory struct {
	data      []byte
	mediaType string

	digestOnce sync.Once
	digest     digest.Digest
}

var (
	_ ReadOnlyBlob   = (*Memory)(nil)
	_ SizeAware      = (*Memory)(nil)
	_ DigestAware    = (*Memory)(nil)
	_ MediaTypeAware = (*Memory)(nil)
)

// MemoryOption configures a Memory blob.
type MemoryOption func(*Memory)

// WithMediaType sets the blob's media type.
func WithMediaType(mediaType string) MemoryOption {
	return func(m *Memory) {
		m.mediaType = mediaType
	}
}

// WithDigest sets a precalculated digest, skipping computation on the
// first Digest call.
func WithDigest(d string) MemoryOption {
	return func(m *Memory) {
		m.digest = digest.Digest(d)
	}
}

// NewMemory creates a blob over a copy of data.
func NewMemory(data []byte, opts ...MemoryOption) *Memory {
	content := make([]byte, len(data))
	copy(content, data)

	m := &Memory{
		data:      content,
		mediaType: DefaultMediaType,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// ReadCloser returns a new reader positioned at the start of the blob.
func (m *Memory) ReadCloser() (io.ReadCloser, error) {
	return io.NopCloser(bytes.NewReader(m.data)), nil
}

// Size returns the blob size in bytes.
func (m *Memory) Size() int64 {
	return int64(len(m.data))
}

// Bytes returns a copy of the blob's content.
func (m *Memory) Bytes() []byte {
	content := make([]byte, len(m.data))
	copy(content, m.data)
	return content
}

// Digest returns the blob's canonical content digest, computing and
// caching it on first call.
func (m *Memory) Digest() (string, bool) {
	m.digestOnce.Do(func() {
		if m.digest == "" {
			m.digest = digest.FromBytes(m.data)
		}
	})
	return m.digest.String(), true
}

// MediaType returns the blob's media type.
func (m *Memory) MediaType() (string, bool) {
	return m.mediaType, true
}

// TypeByPath guesses a media type from the path's extension, falling
// back to DefaultMediaType.
func TypeByPath(p string) string {
	if mt := mime.TypeByExtension(path.Ext(p)); mt != "" {
		return mt
	}
	return DefaultMediaType
}
