// mux_server.go implements the Multiplex protocol server: frame
// receive/dispatch, register RPC, and tunnel multiplexing over one
// underlying stream.
package tlogmux

import (
	"context"
	"fmt"
	"io"
	"sync"
	"sync/atomic"

	"github.com/brindlerobotics/tlogmux/internal/faultpoint"
	"github.com/brindlerobotics/tlogmux/internal/logging"
	"github.com/brindlerobotics/tlogmux/internal/wire"
)

// Stream is the byte-oriented duplex the Server reads frames from and
// writes responses to.
type Stream interface {
	io.Reader
	io.Writer
}

// RegisterServer is the capability a Server dispatches register
// operations to. Any type implementing it is acceptable; dispatch is a
// plain interface call, not inheritance.
type RegisterServer interface {
	// Write stores value at register and returns a RegisterError code (0
	// on success).
	Write(register uint32, value Value) uint32
	// Read returns the current value of register as the requested type,
	// and a RegisterError code (0 on success; the returned value is
	// ignored on non-zero).
	Read(register uint32, t ValueType) (Value, uint32)
}

// ConfigStore is the persistent key/value collaborator a Server uses to
// remember its node ID across restarts.
type ConfigStore interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

const nodeIDConfigKey = "tlogmux.node_id"

// memConfigStore is an in-memory ConfigStore used when the caller doesn't
// need persistence across process restarts.
type memConfigStore struct {
	mu     sync.Mutex
	values map[string][]byte
}

// NewMemConfigStore returns a ConfigStore backed by an in-memory map.
func NewMemConfigStore() ConfigStore {
	return &memConfigStore{values: make(map[string][]byte)}
}

func (s *memConfigStore) Get(key string) ([]byte, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.values[key]
	return v, ok
}

func (s *memConfigStore) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = append([]byte(nil), value...)
	return nil
}

// Stats counts FrameError occurrences and outbound traffic. All fields
// are updated with atomic operations and are safe to read concurrently
// with Server.Start.
type Stats struct {
	WrongID           uint64
	ChecksumMismatch  uint64
	ReceiveOverrun    uint64
	UnknownSubframe   uint64
	MissingSubframe   uint64
	MalformedSubframe uint64
	FramesSent        uint64
	BytesSent         uint64
}

// Server dispatches Multiplex frames read from a Stream to a
// RegisterServer and multiplexes tunnel byte streams over the same link.
//
// A Server is constructed once over (pool, stream, options) and is driven
// by a single call to Start; like the TLOG writer it is not internally
// concurrent; the only concurrency it tolerates is MakeTunnel/Tunnel
// Read/Write and AsyncReadUnknown being called from other goroutines
// while Start's loop is running.
type Server struct {
	stream  Stream
	options MuxOptions
	pool    *wire.Pool
	logger  Logger
	config  ConfigStore

	id byte

	stats Stats

	tunnelMu sync.Mutex
	tunnels  map[uint32]*Tunnel

	unknownWaiters chan chan []byte
}

// NewServer constructs a Server over stream. config, if non-nil, persists
// the server's node ID across restarts under a fixed key; the server's ID
// is the stored value, or options.DefaultID if nothing has been stored
// yet (in which case it is stored immediately).
func NewServer(pool *wire.Pool, stream Stream, opts *MuxOptions, config ConfigStore) (*Server, error) {
	o := DefaultMuxOptions()
	if opts != nil {
		o = opts
	}
	o = o.validated()
	if pool == nil {
		pool = wire.NewPool()
	}
	if config == nil {
		config = NewMemConfigStore()
	}

	id := o.DefaultID & nodeIDMask
	if stored, ok := config.Get(nodeIDConfigKey); ok && len(stored) == 1 {
		id = stored[0] & nodeIDMask
	} else if err := config.Put(nodeIDConfigKey, []byte{id}); err != nil {
		return nil, fmt.Errorf("tlogmux: persist node id: %w", err)
	}

	return &Server{
		stream:         stream,
		options:        *o,
		pool:           pool,
		logger:         logging.OrDefault(o.Logger),
		config:         config,
		id:             id,
		tunnels:        make(map[uint32]*Tunnel),
		unknownWaiters: make(chan chan []byte, 1),
	}, nil
}

// ID returns the server's node ID.
func (s *Server) ID() byte { return s.id }

// Stats returns a snapshot of the server's error and traffic counters.
func (s *Server) Stats() Stats {
	return Stats{
		WrongID:           atomic.LoadUint64(&s.stats.WrongID),
		ChecksumMismatch:  atomic.LoadUint64(&s.stats.ChecksumMismatch),
		ReceiveOverrun:    atomic.LoadUint64(&s.stats.ReceiveOverrun),
		UnknownSubframe:   atomic.LoadUint64(&s.stats.UnknownSubframe),
		MissingSubframe:   atomic.LoadUint64(&s.stats.MissingSubframe),
		MalformedSubframe: atomic.LoadUint64(&s.stats.MalformedSubframe),
		FramesSent:        atomic.LoadUint64(&s.stats.FramesSent),
		BytesSent:         atomic.LoadUint64(&s.stats.BytesSent),
	}
}

// MakeTunnel returns a Tunnel whose reads/writes traverse 0x40/0x41
// subframes on the given channel. It fails with ErrTunnelsExhausted if
// options.MaxTunnelStreams tunnels already exist.
func (s *Server) MakeTunnel(channel uint32) (*Tunnel, error) {
	s.tunnelMu.Lock()
	defer s.tunnelMu.Unlock()
	if t, ok := s.tunnels[channel]; ok {
		return t, nil
	}
	if len(s.tunnels) >= s.options.MaxTunnelStreams {
		return nil, ErrTunnelsExhausted
	}
	t := newTunnel(channel, s.options.TunnelBufferSize)
	s.tunnels[channel] = t
	return t, nil
}

func (s *Server) tunnel(channel uint32) *Tunnel {
	s.tunnelMu.Lock()
	defer s.tunnelMu.Unlock()
	return s.tunnels[channel]
}

// AsyncReadUnknown blocks until the next frame addressed to a node other
// than this one arrives, then copies its raw payload into buffer (up to
// buffer's capacity) and returns the number of bytes copied. It is used
// by a central client observing bus activity rather than acting as a node
// itself.
func (s *Server) AsyncReadUnknown(ctx context.Context, buffer []byte) (int, error) {
	respCh := make(chan []byte, 1)
	select {
	case s.unknownWaiters <- respCh:
	case <-ctx.Done():
		return 0, ctx.Err()
	}
	select {
	case payload := <-respCh:
		return copy(buffer, payload), nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// RawWriteStream exposes an unframed output channel used to push
// asynchronous data directly onto the bus, bypassing frame dispatch.
func (s *Server) RawWriteStream() io.Writer {
	return rawWriter{s}
}

type rawWriter struct{ s *Server }

func (w rawWriter) Write(p []byte) (int, error) {
	n, err := w.s.stream.Write(p)
	atomic.AddUint64(&w.s.stats.BytesSent, uint64(n))
	return n, err
}

// Start reads from the stream until it returns an error or ctx is
// cancelled, decoding and dispatching frames to impl as they complete.
// Subframes within one request are processed in declared order; a
// response frame (CRC included) is fully written before the next request
// frame is decoded.
func (s *Server) Start(ctx context.Context, impl RegisterServer) error {
	decoder := NewFrameDecoder(s.options.BufferSize)
	buf := make([]byte, s.options.BufferSize)

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := s.stream.Read(buf)
		for i := range n {
			if frame := decoder.Feed(buf[i]); frame != nil {
				s.handleFrame(ctx, impl, frame)
			}
		}
		if err != nil {
			if err == io.EOF {
				return nil
			}
			return err
		}
	}
}

// ProcessChunk feeds data through the server's own decoder and dispatches
// any frames it completes. It is exposed so callers can drive the server
// without a live Stream (e.g. in tests), and to let a caller confirm that
// byte-at-a-time and bulk delivery of the same bytes behave identically.
func (s *Server) ProcessChunk(ctx context.Context, decoder *FrameDecoder, impl RegisterServer, data []byte) {
	for _, b := range data {
		if frame := decoder.Feed(b); frame != nil {
			s.handleFrame(ctx, impl, frame)
		}
	}
}

// recordFrameError bumps the named Stats counter and logs the sentinel
// error it corresponds to, so FrameError kinds are never a silently
// incremented number with nothing in the codebase actually naming them.
func (s *Server) recordFrameError(counter *uint64, err error) {
	atomic.AddUint64(counter, 1)
	s.logger.Warnf("%s%v", logging.NSMux, err)
}

func (s *Server) handleFrame(ctx context.Context, impl RegisterServer, frame *decodedFrame) {
	if !frame.crcOK {
		s.recordFrameError(&s.stats.ChecksumMismatch, ErrChecksumMismatch)
		return
	}
	if frame.dest != s.id {
		select {
		case waiter := <-s.unknownWaiters:
			waiter <- frame.payload
		default:
			s.recordFrameError(&s.stats.WrongID, ErrWrongID)
		}
		return
	}

	responseWanted := frame.source&responseRequestedBit != 0
	reqSource := frame.source & nodeIDMask

	resp := s.pool.Get(s.options.BufferSize)
	defer s.pool.Put(resp)
	s.dispatchSubframes(impl, frame.payload, resp)

	if !responseWanted {
		return
	}
	if err := faultpoint.MaybeFail(faultpoint.MuxResponseWrite); err != nil {
		s.logger.Errorf("%sresponse write fault: %v", logging.NSMux, err)
		return
	}
	out := encodeFrame(s.id, reqSource, resp.Bytes())
	n, err := s.stream.Write(out)
	if err != nil {
		s.logger.Errorf("%sresponse write: %v", logging.NSMux, err)
		return
	}
	atomic.AddUint64(&s.stats.FramesSent, 1)
	atomic.AddUint64(&s.stats.BytesSent, uint64(n))
}

// dispatchSubframes walks payload's TLV subframes in order, invoking impl
// for register ops and appending Reply/Error/tunnel-reply subframes to
// resp. A subframe that would overflow resp is dropped and counted as
// receive_overrun; the rest of payload is still processed against impl
// (writes/reads still take effect) even though their replies can't fit.
func (s *Server) dispatchSubframes(impl RegisterServer, payload []byte, resp *wire.Buffer) {
	i := 0
	for i < len(payload) {
		op := payload[i]
		i++
		switch {
		case isWriteOp(op):
			consumed, ok := s.dispatchWrite(impl, op, payload[i:])
			if !ok {
				return
			}
			i += consumed

		case isReadOp(op):
			consumed, ok := s.dispatchRead(impl, op, payload[i:], resp)
			if !ok {
				return
			}
			i += consumed

		case op == opTunnelC2S:
			consumed, ok := s.dispatchTunnelC2S(payload[i:], resp)
			if !ok {
				return
			}
			i += consumed

		case op == opTunnelS2C:
			s.recordFrameError(&s.stats.UnknownSubframe, ErrUnknownSubframe)
			return

		default:
			s.recordFrameError(&s.stats.UnknownSubframe, ErrUnknownSubframe)
			return
		}
	}
}

func (s *Server) dispatchWrite(impl RegisterServer, op byte, rest []byte) (int, bool) {
	t := opValueType(opWriteSingleBase, op)
	if op >= opWriteMultiBase {
		t = opValueType(opWriteMultiBase, op)
		return s.dispatchWriteMulti(impl, t, rest)
	}
	reg, n, err := wire.Varuint(rest)
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	val, m, err := decodeValue(t, rest[n:])
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	impl.Write(reg, val)
	return n + m, true
}

func (s *Server) dispatchWriteMulti(impl RegisterServer, t ValueType, rest []byte) (int, bool) {
	count, n, err := wire.Varuint(rest)
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	off := n
	for range count {
		reg, rn, err := wire.Varuint(rest[off:])
		if err != nil {
			atomic.AddUint64(&s.stats.MissingSubframe, 1)
			return 0, false
		}
		off += rn
		val, vn, err := decodeValue(t, rest[off:])
		if err != nil {
			atomic.AddUint64(&s.stats.MissingSubframe, 1)
			return 0, false
		}
		off += vn
		impl.Write(reg, val)
	}
	return off, true
}

func (s *Server) dispatchRead(impl RegisterServer, op byte, rest []byte, resp *wire.Buffer) (int, bool) {
	if op >= opReadMultiBase {
		t := opValueType(opReadMultiBase, op)
		return s.dispatchReadMulti(impl, t, rest, resp)
	}
	t := opValueType(opReadSingleBase, op)
	reg, n, err := wire.Varuint(rest)
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	val, code := impl.Read(reg, t)
	s.appendReply(resp, t, reg, val, code, false)
	return n, true
}

func (s *Server) dispatchReadMulti(impl RegisterServer, t ValueType, rest []byte, resp *wire.Buffer) (int, bool) {
	count, n, err := wire.Varuint(rest)
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	off := n
	for range count {
		reg, rn, err := wire.Varuint(rest[off:])
		if err != nil {
			atomic.AddUint64(&s.stats.MissingSubframe, 1)
			return 0, false
		}
		off += rn
		val, code := impl.Read(reg, t)
		s.appendReply(resp, t, reg, val, code, true)
	}
	return off, true
}

// appendReply appends a Reply (or Error, on a non-zero RegisterError
// code) subframe to resp. If it would overflow the response buffer, the
// subframe is dropped and receive_overrun is counted instead.
func (s *Server) appendReply(resp *wire.Buffer, t ValueType, reg uint32, val Value, code uint32, multi bool) {
	regLen := wire.VaruintLen(reg)
	var need int
	if code != 0 {
		need = 1 + regLen + 4
	} else {
		need = 1 + regLen + t.Size()
	}
	if resp.Size()+need > s.options.BufferSize {
		s.recordFrameError(&s.stats.ReceiveOverrun, ErrReceiveOverrun)
		return
	}

	if code != 0 {
		if multi {
			resp.WriteByte(opErrorMulti)
		} else {
			resp.WriteByte(opErrorSingle)
		}
		resp.WriteVaruint(reg)
		resp.WriteU32(code)
		return
	}

	if multi {
		resp.WriteByte(opReplyMultiBase + byte(t))
	} else {
		resp.WriteByte(opReplySingleBase + byte(t))
	}
	resp.WriteVaruint(reg)
	encodeValue(resp, val)
}

// dispatchTunnelC2S consumes one 0x40 subframe (channel, length, bytes),
// delivers its bytes (if any) to the matching tunnel's ingress, and always
// appends a 0x41 reply subframe draining that tunnel's egress — empty if
// nothing is queued — since tunnel traffic is entirely client-polled.
func (s *Server) dispatchTunnelC2S(rest []byte, resp *wire.Buffer) (int, bool) {
	if len(rest) < 4 {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	channel := wire.U32(rest)
	length, n, err := wire.Varuint(rest[4:])
	if err != nil {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	off := 4 + n
	if off+int(length) > len(rest) {
		atomic.AddUint64(&s.stats.MissingSubframe, 1)
		return 0, false
	}
	data := rest[off : off+int(length)]

	t := s.tunnel(channel)
	if t != nil {
		t.deliver(data)
	}
	s.appendTunnelReply(resp, channel, t)
	return off + int(length), true
}

// appendTunnelReply appends a 0x41 subframe draining channel's egress
// buffer into resp, up to whatever room remains in the response. If the
// tunnel is unknown it reports zero bytes available, matching a tunnel
// that exists but has never been written to.
func (s *Server) appendTunnelReply(resp *wire.Buffer, channel uint32, t *Tunnel) {
	const header = 1 + 4 + wire.MaxVaruintLen
	room := s.options.BufferSize - resp.Size() - header
	if room < 0 {
		s.recordFrameError(&s.stats.ReceiveOverrun, ErrReceiveOverrun)
		return
	}
	body := make([]byte, room)
	n := 0
	if t != nil {
		n = t.drain(body)
	}
	resp.WriteByte(opTunnelS2C)
	resp.WriteU32(channel)
	resp.WriteVaruint(uint32(n))
	_, _ = resp.Write(body[:n])
}
