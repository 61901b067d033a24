package pool

import (
	"github.com/input-output-hk/catalyst-forge-libs/aws/s3stream/errors"
)

// ChunkBuffer accumulates written bytes up to a fixed capacity.
//
// A ChunkBuffer is owned by a single writer and is not safe for concurrent
// use. Snapshots are the only data that leaves it.
type ChunkBuffer struct {
	buf  []byte
	pool *BufferPool
}

// NewChunkBuffer returns an empty buffer whose capacity is the pool's size.
func NewChunkBuffer(p *BufferPool) *ChunkBuffer {
	return &ChunkBuffer{
		buf:  p.Get(),
		pool: p,
	}
}

// WriteByte appends b. full reports whether the buffer reached capacity and
// must be cut before the next write.
func (c *ChunkBuffer) WriteByte(b byte) (full bool, err error) {
	if c.buf == nil {
		return false, errors.ErrBufferClosed
	}
	c.buf = append(c.buf, b)
	return c.Full(), nil
}

// Write appends as much of p as fits and returns the number of bytes taken.
// full reports whether the buffer reached capacity.
func (c *ChunkBuffer) Write(p []byte) (n int, full bool, err error) {
	if c.buf == nil {
		return 0, false, errors.ErrBufferClosed
	}
	n = min(len(p), c.Available())
	c.buf = append(c.buf, p[:n]...)
	return n, c.Full(), nil
}

// Len returns the number of bytes written since the last snapshot.
func (c *ChunkBuffer) Len() int {
	return len(c.buf)
}

// Cap returns the buffer capacity, which is the part size.
func (c *ChunkBuffer) Cap() int {
	return c.pool.Size()
}

// Available returns how many bytes fit before the buffer is full.
func (c *ChunkBuffer) Available() int {
	if c.buf == nil {
		return 0
	}
	return c.pool.Size() - len(c.buf)
}

// Full reports whether the buffer holds exactly its capacity.
func (c *ChunkBuffer) Full() bool {
	return c.buf != nil && len(c.buf) >= c.pool.Size()
}

// Snapshot returns a copy of the bytes written since the last snapshot and
// resets the write cursor. The copy comes from the pool; hand it back with
// Recycle once nothing reads it anymore. An empty buffer yields an empty,
// non-nil payload.
func (c *ChunkBuffer) Snapshot() []byte {
	snapshot := c.pool.Get()
	snapshot = append(snapshot, c.buf...)
	if c.buf != nil {
		c.buf = c.buf[:0]
	}
	return snapshot
}

// Recycle returns a snapshot to the pool.
func (c *ChunkBuffer) Recycle(snapshot []byte) {
	c.pool.Put(snapshot)
}

// Release returns the buffer's storage to the pool. Later writes fail with
// errors.ErrBufferClosed. Calling Release more than once is a no-op.
func (c *ChunkBuffer) Release() {
	if c.buf == nil {
		return
	}
	c.pool.Put(c.buf)
	c.buf = nil
}

// Released reports whether Release was called.
func (c *ChunkBuffer) Released() bool {
	return c.buf == nil
}
