package pool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewBufferPool(t *testing.T) {
	bp := NewBufferPool()
	require.NotNil(t, bp)
	assert.NotNil(t, bp.sniff)
}

func TestBufferPool_GetSniff(t *testing.T) {
	bp := NewBufferPool()

	buf := bp.GetSniff()
	require.NotNil(t, buf)
	assert.Equal(t, SniffBufferSize, len(buf))
	assert.Equal(t, SniffBufferSize, cap(buf))

	// Use the buffer
	copy(buf, []byte("test data"))

	// Return to pool
	bp.PutSniff(buf)
}

func TestBufferPool_BufferReuse(t *testing.T) {
	bp := NewBufferPool()

	buf1 := bp.GetSniff()
	copy(buf1, []byte("first use"))
	bp.PutSniff(buf1)

	// Get another buffer - should come back at full length
	buf2 := bp.GetSniff()
	assert.Equal(t, SniffBufferSize, len(buf2))

	bp.PutSniff(buf2)
}

func TestBufferPool_PutUndersizedBuffer(t *testing.T) {
	bp := NewBufferPool()

	// An undersized buffer must not poison the pool
	bp.PutSniff(make([]byte, 8))

	buf := bp.GetSniff()
	assert.Equal(t, SniffBufferSize, len(buf))
}

func TestGlobalBufferPool(t *testing.T) {
	buf := GetSniffBuffer()
	require.NotNil(t, buf)
	assert.Equal(t, SniffBufferSize, len(buf))

	PutSniffBuffer(buf)
}

func BenchmarkBufferPool_GetPutSniff(b *testing.B) {
	bp := NewBufferPool()

	b.ResetTimer()
	b.RunParallel(func(pb *testing.PB) {
		for pb.Next() {
			buf := bp.GetSniff()
			bp.PutSniff(buf)
		}
	})
}
