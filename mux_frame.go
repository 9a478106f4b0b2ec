// mux_frame.go implements the Multiplex wire frame: encoding, CRC, and the
// Hunt -> MagicLo -> MagicHi -> Header -> Size -> Payload -> Crc receive
// state machine (spec §4.3).
package tlogmux

import "github.com/brindlerobotics/tlogmux/internal/wire"

const (
	frameMagicLo = 0x54
	frameMagicHi = 0xAB

	responseRequestedBit = 0x80
	nodeIDMask           = 0x7F
)

// encodeFrame serializes a complete frame. The CRC is computed over the
// whole frame (magic, header, size, payload) with the CRC field itself
// held at zero, then the trailing two zero bytes are overwritten with the
// computed value.
func encodeFrame(source, dest byte, payload []byte) []byte {
	buf := make([]byte, 0, 4+wire.MaxVaruintLen+len(payload)+2)
	buf = append(buf, frameMagicLo, frameMagicHi, source, dest)
	buf = wire.AppendVaruint(buf, uint32(len(payload)))
	buf = append(buf, payload...)
	buf = append(buf, 0, 0)
	crc := wire.CRC16(buf)
	wire.PutU16(buf[len(buf)-2:], crc)
	return buf
}

func computeFrameCRC(source, dest byte, sizeBytes, payload []byte) uint16 {
	buf := make([]byte, 0, 4+len(sizeBytes)+len(payload)+2)
	buf = append(buf, frameMagicLo, frameMagicHi, source, dest)
	buf = append(buf, sizeBytes...)
	buf = append(buf, payload...)
	buf = append(buf, 0, 0)
	return wire.CRC16(buf)
}

type decoderState uint8

const (
	stateHunt decoderState = iota
	stateMagicLo
	stateMagicHi
	stateHeader
	stateSize
	statePayload
	stateCrc
)

// decodedFrame is a frame whose magic, header and trailing CRC bytes have
// been fully collected. crcOK reports whether the CRC the frame carried
// matches the one computed over the received bytes; the caller (not the
// decoder) is responsible for counting a mismatch and for deciding what
// to do with dest != self.id.
type decodedFrame struct {
	source  byte
	dest    byte
	payload []byte
	crcOK   bool
}

// FrameDecoder implements the receive-path state machine. Feed is safe to
// call one byte at a time or with arbitrarily chunked input — the same
// byte sequence always yields the same sequence of decoded frames.
type FrameDecoder struct {
	maxPayload int

	state  decoderState
	source byte
	dest   byte

	sizeBuf [wire.MaxVaruintLen]byte
	sizeLen int

	payloadSize int
	payload     []byte
	payloadLen  int

	crcBuf [2]byte
	crcLen int
}

// NewFrameDecoder returns a decoder that drops any frame whose declared
// payload size exceeds maxPayload (the server's configured buffer_size).
func NewFrameDecoder(maxPayload int) *FrameDecoder {
	return &FrameDecoder{maxPayload: maxPayload}
}

// Feed advances the state machine by one byte, returning a non-nil
// decodedFrame exactly when b completes one.
func (d *FrameDecoder) Feed(b byte) *decodedFrame {
	switch d.state {
	case stateHunt:
		if b == frameMagicLo {
			d.state = stateMagicLo
		}
		return nil

	case stateMagicLo:
		switch b {
		case frameMagicHi:
			d.state = stateMagicHi
		case frameMagicLo:
			// Stay: this byte is a fresh low-magic candidate.
		default:
			d.state = stateHunt
		}
		return nil

	case stateMagicHi:
		d.source = b
		d.state = stateHeader
		return nil

	case stateHeader:
		d.dest = b
		d.state = stateSize
		d.sizeLen = 0
		return nil

	case stateSize:
		d.sizeBuf[d.sizeLen] = b
		d.sizeLen++
		if b < 0x80 {
			size, _, err := wire.Varuint(d.sizeBuf[:d.sizeLen])
			if err != nil || int(size) > d.maxPayload {
				d.reset()
				return nil
			}
			d.payloadSize = int(size)
			d.payload = make([]byte, d.payloadSize)
			d.payloadLen = 0
			if d.payloadSize == 0 {
				d.state = stateCrc
				d.crcLen = 0
			} else {
				d.state = statePayload
			}
			return nil
		}
		if d.sizeLen == wire.MaxVaruintLen {
			d.reset()
		}
		return nil

	case statePayload:
		d.payload[d.payloadLen] = b
		d.payloadLen++
		if d.payloadLen == d.payloadSize {
			d.state = stateCrc
			d.crcLen = 0
		}
		return nil

	case stateCrc:
		d.crcBuf[d.crcLen] = b
		d.crcLen++
		if d.crcLen == 2 {
			frame := d.finish()
			d.reset()
			return frame
		}
		return nil
	}
	return nil
}

func (d *FrameDecoder) finish() *decodedFrame {
	want := wire.U16(d.crcBuf[:])
	got := computeFrameCRC(d.source, d.dest, d.sizeBuf[:d.sizeLen], d.payload)
	return &decodedFrame{
		source:  d.source,
		dest:    d.dest,
		payload: d.payload,
		crcOK:   got == want,
	}
}

func (d *FrameDecoder) reset() {
	d.state = stateHunt
	d.sizeLen = 0
	d.payloadLen = 0
	d.crcLen = 0
}
