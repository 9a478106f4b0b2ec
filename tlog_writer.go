// tlog_writer.go implements the TLOG v3 writer.
//
// Writer appends schema-tagged, timestamped, optionally-compressed blocks
// to a byte sink and, on Close, emits a trailing index so a reader can
// seek directly to the most recent record for any identifier without a
// full scan.
package tlogmux

import (
	"fmt"
	"io"
	"os"
	"runtime"

	"github.com/brindlerobotics/tlogmux/internal/compression"
	"github.com/brindlerobotics/tlogmux/internal/faultpoint"
	"github.com/brindlerobotics/tlogmux/internal/logging"
	"github.com/brindlerobotics/tlogmux/internal/wire"
	"github.com/zeebo/xxh3"
)

// Sink is the byte-oriented destination a Writer appends blocks to.
// *os.File satisfies it.
type Sink interface {
	io.Writer
	Sync() error
	Close() error
}

type indexEntry struct {
	schemaOffset uint64
	finalOffset  uint64
}

type seekPoint struct {
	timestamp int64
	offset    uint64
}

type seekState struct {
	recent []seekPoint
	count  int
}

// Writer appends TLOG v3 blocks to a Sink.
//
// A Writer is not safe for concurrent use: like the format it produces, it
// assumes one caller at a time and suspends only inside Sink calls. Once a
// Sink call returns an error the Writer becomes permanently unusable:
// every subsequent operation that writes to the sink (WriteSchema,
// WriteData, WriteCompressionDictionary, WriteBlock, Flush, Close) returns
// that same error. AllocateIdentifier and ReserveIdentifier never touch
// the sink and are not affected.
type Writer struct {
	sink   Sink
	opened bool
	closed bool
	offset uint64
	fatal  error

	options Options
	logger  Logger
	pool    *wire.Pool

	names   map[string]Identifier
	idName  map[Identifier]string
	used    map[Identifier]bool
	entries map[Identifier]*indexEntry
	order   []Identifier

	allocCount uint64

	seek map[Identifier]*seekState
	dict map[Identifier][]byte
}

// Open truncates or creates the file at path and returns a Writer that has
// already written the file header.
func Open(path string, opts *Options) (*Writer, error) {
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("tlogmux: open %s: %w", path, err)
	}
	w, err := NewFileWriter(f, opts)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return w, nil
}

// NewFileWriter wraps an already-open Sink as a Writer, writing the file
// header immediately.
func NewFileWriter(sink Sink, opts *Options) (*Writer, error) {
	o := DefaultOptions()
	if opts != nil {
		o = opts
	}
	pool := o.BufferPool
	if pool == nil {
		pool = wire.NewPool()
	}
	w := &Writer{
		sink:    sink,
		options: *o,
		logger:  logging.OrDefault(o.Logger),
		pool:    pool,
		names:   make(map[string]Identifier),
		idName:  make(map[Identifier]string),
		used:    make(map[Identifier]bool),
		entries: make(map[Identifier]*indexEntry),
		seek:    make(map[Identifier]*seekState),
		dict:    make(map[Identifier][]byte),
	}
	if err := w.writeHeader(); err != nil {
		return nil, err
	}
	w.opened = true
	runtime.SetFinalizer(w, (*Writer).finalize)
	return w, nil
}

func (w *Writer) writeHeader() error {
	return w.writeRaw([]byte(tlogMagic))
}

// IsOpen reports whether the writer has an open, unclosed sink.
func (w *Writer) IsOpen() bool {
	return w.opened && !w.closed
}

// Reopen attaches sink to a Writer value that has not yet been opened,
// writing the file header. It fails with ErrAlreadyOpen if the writer is
// currently open.
func (w *Writer) Reopen(sink Sink, opts *Options) error {
	if w.IsOpen() {
		return ErrAlreadyOpen
	}
	reopened, err := NewFileWriter(sink, opts)
	if err != nil {
		return err
	}
	// reopened is discarded once copied into w; clear its own finalizer so
	// it cannot write a trailer to and close the shared sink when collected.
	runtime.SetFinalizer(reopened, nil)
	*w = *reopened
	runtime.SetFinalizer(w, (*Writer).finalize)
	return nil
}

// AllocateIdentifier returns the existing id if name was previously
// registered (by AllocateIdentifier or ReserveIdentifier); otherwise it
// picks a fresh id from the non-clustering auto-allocation sequence,
// skipping any id already reserved or allocated, and binds name to it.
// AllocateIdentifier never writes to the sink.
func (w *Writer) AllocateIdentifier(name string) (Identifier, error) {
	if !w.IsOpen() {
		return 0, ErrNotOpen
	}
	if id, ok := w.names[name]; ok {
		return id, nil
	}
	for {
		w.allocCount++
		id := nextAutoIdentifier(w.allocCount)
		if w.used[id] {
			continue
		}
		w.bindIdentifier(name, id)
		return id, nil
	}
}

// ReserveIdentifier binds name to the explicit id. It returns false and
// has no effect if id or name is already taken: ErrDuplicateName reports
// the name collision, ErrIdentifierReserved the id collision.
func (w *Writer) ReserveIdentifier(name string, id Identifier) (bool, error) {
	if !w.IsOpen() {
		return false, ErrNotOpen
	}
	if id == 0 {
		return false, ErrIdentifierReserved
	}
	if _, taken := w.names[name]; taken {
		return false, ErrDuplicateName
	}
	if w.used[id] {
		return false, ErrIdentifierReserved
	}
	w.bindIdentifier(name, id)
	return true, nil
}

func (w *Writer) bindIdentifier(name string, id Identifier) {
	w.names[name] = id
	w.idName[id] = name
	w.used[id] = true
	w.entries[id] = &indexEntry{finalOffset: noFinalOffset}
	w.order = append(w.order, id)
}

// WriteSchema emits a Schema block for id and records its absolute offset
// as the identifier's schema_offset. It must be called at most once per
// identifier, after the identifier exists.
func (w *Writer) WriteSchema(id Identifier, schema []byte) error {
	if !w.IsOpen() {
		return ErrNotOpen
	}
	if w.fatal != nil {
		return w.fatal
	}
	entry, ok := w.entries[id]
	if !ok {
		return ErrUnknownIdentifier
	}
	if entry.schemaOffset != 0 {
		return ErrSchemaAlreadyWritten
	}

	name := w.idName[id]
	body := w.pool.Get(8 + len(name) + len(schema))
	defer w.pool.Put(body)
	body.WriteVaruint(uint32(id))
	body.WriteByte(0)
	body.WriteVaruint(uint32(len(name)))
	_, _ = body.Write([]byte(name))
	_, _ = body.Write(schema)

	offset := w.offset
	if err := w.writeBlock(BlockSchema, body.Bytes()); err != nil {
		return err
	}
	entry.schemaOffset = offset
	return nil
}

// WriteData emits a Data block for id carrying payload, timestamped with
// timestamp (microseconds since 1970-01-01 UTC), and updates the
// identifier's final_record_offset to the new block's start offset. A
// schema must already have been written for id.
func (w *Writer) WriteData(timestamp int64, id Identifier, payload []byte) error {
	if !w.IsOpen() {
		return ErrNotOpen
	}
	if w.fatal != nil {
		return w.fatal
	}
	entry, ok := w.entries[id]
	if !ok {
		return ErrUnknownIdentifier
	}
	if entry.schemaOffset == 0 {
		return ErrSchemaNotWritten
	}

	flags := byte(dataFlagTimestamp)
	hasPrev := entry.finalOffset != noFinalOffset
	if hasPrev {
		flags |= dataFlagPrevOffset
	}

	out := payload
	if w.options.DefaultCompression && len(payload) > w.options.CompressionThreshold {
		compressed, ok := w.compressPayload(id, payload)
		if ok {
			out = compressed
			flags |= dataFlagCompressed
		}
	}
	if w.options.Checksum {
		flags |= dataFlagChecksum
	}

	body := w.pool.Get(24 + len(out))
	defer w.pool.Put(body)
	body.WriteVaruint(uint32(id))
	body.WriteByte(flags)
	if hasPrev {
		body.WriteVaruint(uint32(entry.finalOffset))
	}
	body.WriteI64(timestamp)
	_, _ = body.Write(out)

	if w.options.Checksum {
		sum := xxh3.Hash(body.Bytes())
		var sumBytes [8]byte
		wire.PutU64(sumBytes[:], sum)
		_, _ = body.Write(sumBytes[:])
	}

	offset := w.offset
	if err := w.writeBlock(BlockData, body.Bytes()); err != nil {
		return err
	}
	entry.finalOffset = offset
	return w.recordSeekPoint(id, timestamp, offset)
}

func (w *Writer) compressPayload(id Identifier, payload []byte) ([]byte, bool) {
	codec := w.options.Codec
	if codec == CompressionNone {
		return nil, false
	}
	if codec == CompressionZstdDict {
		dict := w.dict[id]
		out, err := compression.CompressWithDict(payload, dict)
		if err != nil {
			w.logger.Warnf("%szstd-dict compression failed for id=%d: %v", logging.NSTlog, id, err)
			return nil, false
		}
		return out, true
	}
	out, err := compression.Compress(compression.Codec(codec), payload)
	if err != nil {
		w.logger.Warnf("%scompression failed for id=%d: %v", logging.NSTlog, id, err)
		return nil, false
	}
	if out == nil {
		// LZ4 reports an incompressible block as a nil result; store raw.
		return nil, false
	}
	return out, true
}

// recordSeekPoint tracks (timestamp, offset) for id and, once
// options.SeekMarkerInterval data blocks have accumulated since the last
// marker, flushes a SeekMarker block listing them.
func (w *Writer) recordSeekPoint(id Identifier, timestamp int64, offset uint64) error {
	interval := w.options.SeekMarkerInterval
	if interval <= 0 {
		return nil
	}
	st := w.seek[id]
	if st == nil {
		st = &seekState{}
		w.seek[id] = st
	}
	st.recent = append(st.recent, seekPoint{timestamp: timestamp, offset: offset})
	st.count++
	if st.count < interval {
		return nil
	}

	body := w.pool.Get(16 + len(st.recent)*16)
	defer w.pool.Put(body)
	body.WriteVaruint(uint32(id))
	body.WriteVaruint(uint32(len(st.recent)))
	for _, p := range st.recent {
		body.WriteI64(p.timestamp)
		body.WriteU64(p.offset)
	}
	if err := w.writeBlock(BlockSeekMarker, body.Bytes()); err != nil {
		return err
	}
	st.count = 0
	st.recent = st.recent[:0]
	return nil
}

// WriteCompressionDictionary emits a CompressionDictionary block for id
// and keeps dict as the zstd dictionary that compresses that identifier's
// subsequent Data blocks when Options.Codec is CompressionZstdDict. It
// must be called at most once per identifier, before any WriteData for it.
func (w *Writer) WriteCompressionDictionary(id Identifier, dict []byte) error {
	if !w.IsOpen() {
		return ErrNotOpen
	}
	if w.fatal != nil {
		return w.fatal
	}
	if _, ok := w.entries[id]; !ok {
		return ErrUnknownIdentifier
	}
	if _, exists := w.dict[id]; exists {
		return fmt.Errorf("tlogmux: compression dictionary already written for identifier %d", id)
	}

	body := w.pool.Get(8 + len(dict))
	defer w.pool.Put(body)
	body.WriteVaruint(uint32(id))
	_, _ = body.Write(dict)
	if err := w.writeBlock(BlockCompressionDictionary, body.Bytes()); err != nil {
		return err
	}
	w.dict[id] = append([]byte(nil), dict...)
	return nil
}

// GetBuffer returns a recycled scratch buffer for the caller to fill and
// later pass to WriteBlock.
func (w *Writer) GetBuffer() *wire.Buffer {
	return w.pool.Get(256)
}

// WriteBlock emits buf's current contents verbatim as a block body of the
// given type, and returns buf to the pool. WriteBlock never updates an
// identifier's final_record_offset, even for BlockData: offset tracking
// is only performed by WriteData.
func (w *Writer) WriteBlock(t BlockType, buf *wire.Buffer) error {
	defer w.pool.Put(buf)
	if !w.IsOpen() {
		return ErrNotOpen
	}
	if w.fatal != nil {
		return w.fatal
	}
	return w.writeBlock(t, buf.Bytes())
}

func (w *Writer) writeBlock(t BlockType, body []byte) error {
	var hdr [1 + wire.MaxVaruintLen]byte
	hdr[0] = byte(t)
	n := 1 + wire.PutVaruint(hdr[1:], uint32(len(body)))
	if err := w.writeRaw(hdr[:n]); err != nil {
		return err
	}
	return w.writeRaw(body)
}

func (w *Writer) writeRaw(p []byte) error {
	n, err := w.sink.Write(p)
	w.offset += uint64(n)
	if err != nil {
		return w.ioError(err)
	}
	if n != len(p) {
		return w.ioError(io.ErrShortWrite)
	}
	return nil
}

func (w *Writer) ioError(err error) error {
	wrapped := fmt.Errorf("tlogmux: sink error: %w", err)
	w.fatal = wrapped
	w.logger.Errorf("%swriter sink error: %v", logging.NSTlog, err)
	return wrapped
}

// Flush flushes any pending writes to the sink.
func (w *Writer) Flush() error {
	if !w.IsOpen() {
		return ErrNotOpen
	}
	if w.fatal != nil {
		return w.fatal
	}
	if err := faultpoint.MaybeFail(faultpoint.TlogFlush); err != nil {
		return w.ioError(err)
	}
	if err := w.sink.Sync(); err != nil {
		return w.ioError(err)
	}
	return nil
}

// Close flushes any pending writes, emits the index trailer and footer,
// and closes the underlying sink. If the sink has already failed
// irrecoverably, buffered state is discarded and the sink is closed
// best-effort, returning the original sink error.
func (w *Writer) Close() error {
	return w.closeInternal()
}

func (w *Writer) closeInternal() error {
	if w.closed {
		return nil
	}
	if !w.opened {
		return ErrNotOpen
	}
	w.closed = true
	runtime.SetFinalizer(w, nil)

	if w.fatal != nil {
		_ = w.sink.Close()
		return w.fatal
	}

	if err := faultpoint.MaybeFail(faultpoint.TlogIndexWrite); err != nil {
		ioErr := w.ioError(err)
		_ = w.sink.Close()
		return ioErr
	}

	if err := w.writeIndexTrailer(); err != nil {
		_ = w.sink.Close()
		return err
	}
	if err := w.sink.Sync(); err != nil {
		syncErr := w.ioError(err)
		_ = w.sink.Close()
		return syncErr
	}
	if err := w.sink.Close(); err != nil {
		return fmt.Errorf("tlogmux: close: %w", err)
	}
	return nil
}

// writeIndexTrailer emits the single Index block whose body is the real
// index entries followed by the fixed 12-byte footer. The footer's
// recorded size counts the whole block (type + size varuint + body),
// where body in turn already includes the footer's own 12 bytes — so the
// recorded size equals the byte distance from the start of the Index
// block through the final magic byte, which is exactly what a reader
// seeking backward from end-of-file needs.
func (w *Writer) writeIndexTrailer() error {
	realBody := w.pool.Get(16 + len(w.order)*20)
	defer w.pool.Put(realBody)
	realBody.WriteByte(0)
	realBody.WriteVaruint(uint32(len(w.order)))
	for _, id := range w.order {
		e := w.entries[id]
		realBody.WriteVaruint(uint32(id))
		realBody.WriteU64(e.schemaOffset)
		realBody.WriteU64(e.finalOffset)
	}

	bodySize := realBody.Size() + footerSize
	sizeLen := wire.VaruintLen(uint32(bodySize))
	totalBlockLen := 1 + sizeLen + bodySize

	var hdr [1 + wire.MaxVaruintLen]byte
	hdr[0] = byte(BlockIndex)
	n := 1 + wire.PutVaruint(hdr[1:], uint32(bodySize))
	if err := w.writeRaw(hdr[:n]); err != nil {
		return err
	}
	if err := w.writeRaw(realBody.Bytes()); err != nil {
		return err
	}

	var footer [footerSize]byte
	wire.PutU32(footer[:4], uint32(totalBlockLen))
	copy(footer[4:], indexFooterMagic)
	return w.writeRaw(footer[:])
}

// finalize is the scoped-release cleanup a Writer's finalizer calls if the
// caller never called Close. It best-effort emits the index trailer; a
// fatal sink error from an earlier operation is not retried here.
func (w *Writer) finalize() {
	if w.closed {
		return
	}
	_ = w.closeInternal()
}
