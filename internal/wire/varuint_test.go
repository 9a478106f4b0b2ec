package wire

import (
	"bytes"
	"testing"
)

func TestVaruintRoundTrip(t *testing.T) {
	values := []uint32{0, 1, 127, 128, 16383, 16384, 2097151, 2097152,
		268435455, 268435456, 0xFFFFFFFF}

	for _, v := range values {
		var buf [MaxVaruintLen]byte
		n := PutVaruint(buf[:], v)
		if n != VaruintLen(v) {
			t.Fatalf("PutVaruint(%d) wrote %d bytes, VaruintLen says %d", v, n, VaruintLen(v))
		}
		got, read, err := Varuint(buf[:n])
		if err != nil {
			t.Fatalf("Varuint(%d) decode error: %v", v, err)
		}
		if got != v || read != n {
			t.Fatalf("Varuint round trip for %d: got (%d, %d), want (%d, %d)", v, got, read, v, n)
		}
	}
}

func TestVaruintLengthBounds(t *testing.T) {
	if VaruintLen(0) != 1 || VaruintLen(127) != 1 {
		t.Error("single-byte range should encode in 1 byte")
	}
	if VaruintLen(0xFFFFFFFF) != 5 {
		t.Errorf("max u32 should encode in 5 bytes, got %d", VaruintLen(0xFFFFFFFF))
	}
}

func TestVaruintShortBuffer(t *testing.T) {
	// A continuation byte with nothing following it.
	_, _, err := Varuint([]byte{0x80})
	if err != ErrShortBuffer {
		t.Fatalf("want ErrShortBuffer, got %v", err)
	}
}

func TestVaruintMalformedFifthByte(t *testing.T) {
	// Five bytes, all with the continuation bit set: the decoder must
	// reject this rather than read a 6th byte looking for a u32.
	data := []byte{0x80, 0x80, 0x80, 0x80, 0x80}
	_, _, err := Varuint(data)
	if err != ErrMalformedVaruint {
		t.Fatalf("want ErrMalformedVaruint, got %v", err)
	}
}

func TestAppendVaruint(t *testing.T) {
	dst := AppendVaruint([]byte("prefix:"), 300)
	if !bytes.HasPrefix(dst, []byte("prefix:")) {
		t.Fatal("AppendVaruint must not disturb existing contents")
	}
	v, n, err := Varuint(dst[len("prefix:"):])
	if err != nil || v != 300 || n != 2 {
		t.Fatalf("got (%d, %d, %v), want (300, 2, nil)", v, n, err)
	}
}
