package wire

// Buffer is a growable byte buffer used to build block bodies and frame
// payloads before they are handed to a writer or socket. It exposes
// absolute-offset append operations for every primitive this module's wire
// formats need, mirroring the write side of a RocksDB-style encoding
// toolkit (EncodeFixed*/AppendVarint*) but collected behind one handle so
// callers (and WriteBlock/MakeTunnel) can pass it around as a unit.
type Buffer struct {
	buf []byte
}

// NewBuffer returns a Buffer with the given initial capacity.
func NewBuffer(capacity int) *Buffer {
	return &Buffer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the buffer's current contents. The returned slice aliases
// the buffer's storage and is invalidated by the next mutating call.
func (b *Buffer) Bytes() []byte { return b.buf }

// Size returns the number of bytes currently written to the buffer.
func (b *Buffer) Size() int { return len(b.buf) }

// Reset empties the buffer without releasing its backing array.
func (b *Buffer) Reset() { b.buf = b.buf[:0] }

// Write appends raw bytes to the buffer.
func (b *Buffer) Write(p []byte) (int, error) {
	b.buf = append(b.buf, p...)
	return len(p), nil
}

// WriteByte appends a single byte.
func (b *Buffer) WriteByte(c byte) error {
	b.buf = append(b.buf, c)
	return nil
}

// WriteVaruint appends v as a base-128 varuint.
func (b *Buffer) WriteVaruint(v uint32) {
	b.buf = AppendVaruint(b.buf, v)
}

// WriteU16 appends v little-endian.
func (b *Buffer) WriteU16(v uint16) { b.buf = AppendU16(b.buf, v) }

// WriteU32 appends v little-endian.
func (b *Buffer) WriteU32(v uint32) { b.buf = AppendU32(b.buf, v) }

// WriteU64 appends v little-endian.
func (b *Buffer) WriteU64(v uint64) { b.buf = AppendU64(b.buf, v) }

// WriteI64 appends v little-endian.
func (b *Buffer) WriteI64(v int64) { b.buf = AppendI64(b.buf, v) }

// WriteF32 appends the IEEE-754 bit pattern of v little-endian.
func (b *Buffer) WriteF32(v float32) { b.buf = AppendF32(b.buf, v) }
