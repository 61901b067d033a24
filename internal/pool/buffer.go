// Package pool provides memory management for part payloads.
// This includes fixed-capacity buffer pooling and the chunk buffer that
// accumulates a stream between cut points.
//
// Part buffers are large (10 MiB by default) and a busy process cuts many of
// them, so both the chunk buffer's storage and the immutable part snapshots
// are drawn from, and returned to, a pool keyed by part capacity.
package pool

import (
	"sync"
)

// BufferPool manages reusable buffers of a single capacity.
type BufferPool struct {
	size int
	pool *sync.Pool
}

// NewBufferPool creates a new buffer pool handing out buffers of capacity size.
func NewBufferPool(size int) *BufferPool {
	return &BufferPool{
		size: size,
		pool: &sync.Pool{
			New: func() interface{} {
				buf := make([]byte, size)
				return &buf
			},
		},
	}
}

// Size returns the capacity of the buffers in the pool.
func (bp *BufferPool) Size() int {
	return bp.size
}

// Get returns a zero-length buffer with the pool's capacity.
// The caller is responsible for calling Put to return the buffer to the pool.
func (bp *BufferPool) Get() []byte {
	bufPtr := bp.pool.Get().(*[]byte)
	// Reset length to 0 but keep capacity
	*bufPtr = (*bufPtr)[:0]
	return *bufPtr
}

// Put returns a buffer to the pool.
// Buffers of a different capacity are dropped. The buffer should not be used
// after calling Put.
func (bp *BufferPool) Put(buf []byte) {
	if cap(buf) != bp.size {
		return
	}
	buf = buf[:0]
	bp.pool.Put(&buf)
}

// pools holds one shared BufferPool per capacity.
var pools sync.Map

// ForSize returns the shared pool for buffers of capacity size.
func ForSize(size int) *BufferPool {
	if p, ok := pools.Load(size); ok {
		return p.(*BufferPool)
	}
	p, _ := pools.LoadOrStore(size, NewBufferPool(size))
	return p.(*BufferPool)
}
