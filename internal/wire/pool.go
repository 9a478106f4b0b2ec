// pool.go provides the reusable-buffer arena both the TLOG writer and the
// Multiplex server are built on (spec §5: "pool-allocated internals... the
// data path must be allocation-free"). It buckets by capacity the same way
// a RocksDB-style memory arena would, so the common small block/frame
// sizes round-trip through sync.Pool without ever growing past their
// bucket on reuse.
package wire

import "sync"

// bucketSizes are the capacity classes buffers are pooled in. They cover
// the common sizes for TLOG schema/data block bodies and multiplex frame
// payloads without forcing a reallocation on every GetBuffer/Put cycle.
var bucketSizes = [...]int{256, 1024, 4096, 16384, 65536}

// Pool hands out reusable *Buffer instances bucketed by capacity.
//
// A Pool is safe for concurrent use; callers still arrange exclusive
// ownership of a given Buffer between Get and Put (a writer never hands
// the same buffer to two goroutines at once).
type Pool struct {
	buckets [len(bucketSizes)]sync.Pool
}

// NewPool constructs an empty Pool. Each size bucket lazily allocates on
// first Get.
func NewPool() *Pool {
	p := &Pool{}
	for i := range p.buckets {
		size := bucketSizes[i]
		p.buckets[i] = sync.Pool{
			New: func() any { return NewBuffer(size) },
		}
	}
	return p
}

// Get returns a Buffer with at least minSize bytes of capacity, reset to
// length zero. Buffers larger than the largest bucket are allocated
// on-demand and not pooled.
func (p *Pool) Get(minSize int) *Buffer {
	i := p.bucket(minSize)
	if i < 0 {
		return NewBuffer(minSize)
	}
	buf, _ := p.buckets[i].Get().(*Buffer)
	buf.Reset()
	return buf
}

// Put returns buf to its size bucket for reuse. Buffers too large for any
// bucket, or smaller than the smallest one, are dropped rather than
// retained.
func (p *Pool) Put(buf *Buffer) {
	if buf == nil {
		return
	}
	i := p.bucket(cap(buf.buf))
	if i < 0 {
		return
	}
	if cap(buf.buf) < bucketSizes[i] {
		// A buffer that grew past one class but not to the next is filed
		// under the class below, so Get's capacity guarantee still holds.
		i--
		if i < 0 {
			return
		}
	}
	buf.Reset()
	p.buckets[i].Put(buf)
}

func (p *Pool) bucket(size int) int {
	for i, s := range bucketSizes {
		if size <= s {
			return i
		}
	}
	return -1
}
