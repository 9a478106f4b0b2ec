package compression

import (
	"bytes"
	"strings"
	"testing"
)

func TestSnappyRoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("telemetry-sample-payload", 64))

	compressed, err := Compress(CodecSnappy, data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if len(compressed) >= len(data) {
		t.Fatalf("expected snappy to shrink a repetitive payload: %d >= %d", len(compressed), len(data))
	}

	got, err := Decompress(CodecSnappy, compressed)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("snappy round trip mismatch")
	}
}

func TestLZ4RoundTrip(t *testing.T) {
	data := []byte(strings.Repeat("abcdefgh", 128))

	compressed, err := Compress(CodecLZ4, data)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}
	if compressed == nil {
		t.Fatal("expected a compressible payload to shrink, not report incompressible")
	}

	got, err := DecompressLZ4(compressed, len(data))
	if err != nil {
		t.Fatalf("DecompressLZ4: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("lz4 round trip mismatch")
	}
}

func TestZstdDictRoundTrip(t *testing.T) {
	dict := []byte(strings.Repeat("schema-shape-prefix", 8))
	data := append(append([]byte{}, dict...), []byte("unique-tail-payload")...)

	compressed, err := CompressWithDict(data, dict)
	if err != nil {
		t.Fatalf("CompressWithDict: %v", err)
	}

	got, err := DecompressWithDict(compressed, dict)
	if err != nil {
		t.Fatalf("DecompressWithDict: %v", err)
	}
	if !bytes.Equal(got, data) {
		t.Fatal("zstd dictionary round trip mismatch")
	}
}

func TestZstdDictWrongDictionaryFails(t *testing.T) {
	dict := []byte(strings.Repeat("A", 64))
	otherDict := []byte(strings.Repeat("B", 64))
	data := []byte("payload compressed against one dictionary")

	compressed, err := CompressWithDict(data, dict)
	if err != nil {
		t.Fatalf("CompressWithDict: %v", err)
	}

	got, err := DecompressWithDict(compressed, otherDict)
	if err == nil && bytes.Equal(got, data) {
		t.Fatal("decompressing with the wrong dictionary should not silently succeed")
	}
}

func TestCodecStringer(t *testing.T) {
	cases := map[Codec]string{
		CodecNone:     "None",
		CodecSnappy:   "Snappy",
		CodecLZ4:      "LZ4",
		CodecZstdDict: "ZstdDict",
	}
	for c, want := range cases {
		if got := c.String(); got != want {
			t.Errorf("Codec(%d).String() = %q, want %q", c, got, want)
		}
	}
}
