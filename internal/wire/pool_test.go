package wire

import "testing"

func TestPoolGetPutRoundTrip(t *testing.T) {
	p := NewPool()

	buf := p.Get(100)
	if buf.Size() != 0 {
		t.Fatalf("fresh buffer should be empty, got size %d", buf.Size())
	}
	buf.WriteVaruint(42)
	buf.Write([]byte("payload"))
	if buf.Size() == 0 {
		t.Fatal("expected buffer to grow after writes")
	}

	p.Put(buf)

	reused := p.Get(100)
	if reused.Size() != 0 {
		t.Fatalf("buffer returned from pool must be reset, got size %d", reused.Size())
	}
}

func TestPoolOversizedBufferNotPooled(t *testing.T) {
	p := NewPool()
	huge := p.Get(10 * 1024 * 1024)
	if cap(huge.buf) < 10*1024*1024 {
		t.Fatal("oversized Get must still satisfy the capacity request")
	}
	// Must not panic and must simply decline to pool it.
	p.Put(huge)
}
