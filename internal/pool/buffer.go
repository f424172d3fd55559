// Package pool provides memory management optimizations.
// This includes buffer pooling to reduce allocations on the streaming
// transfer path, where every object passes through an in-memory sniff
// buffer.
package pool

import (
	"sync"
)

// SniffBufferSize covers the content-type detection prefix (4KB)
const SniffBufferSize = 4 * 1024

// BufferPool manages reusable buffers to reduce allocations.
type BufferPool struct {
	sniff *sync.Pool
}

// NewBufferPool creates a new buffer pool with default sizes.
func NewBufferPool() *BufferPool {
	return &BufferPool{
		sniff: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, SniffBufferSize)
				return &buf
			},
		},
	}
}

// GetSniff returns a sniff-sized buffer from the pool.
// The caller is responsible for calling PutSniff when done.
func (bp *BufferPool) GetSniff() []byte {
	bufPtr := bp.sniff.Get().(*[]byte)
	return (*bufPtr)[:SniffBufferSize]
}

// PutSniff returns a sniff buffer to the pool.
// The buffer should not be used after calling PutSniff.
func (bp *BufferPool) PutSniff(buf []byte) {
	if cap(buf) < SniffBufferSize {
		return
	}
	buf = buf[:0]
	bp.sniff.Put(&buf)
}

// Global buffer pool instance shared by the streaming backend.
var globalBufferPool = NewBufferPool()

// GetSniffBuffer returns a sniff buffer from the global pool.
func GetSniffBuffer() []byte {
	return globalBufferPool.GetSniff()
}

// PutSniffBuffer returns a sniff buffer to the global pool.
func PutSniffBuffer(buf []byte) {
	globalBufferPool.PutSniff(buf)
}
