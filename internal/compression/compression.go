// Package compression implements the payload codecs the TLOG writer can
// apply to a Data block's payload (spec §4.2, Data flags bit 3).
//
// Snappy is the default codec when a writer's Options.DefaultCompression is
// set and a payload crosses the compression threshold. LZ4 is offered as an
// alternate codec for callers whose telemetry payloads compress better with
// LZ4's block format. Zstd, seeded with a per-identifier dictionary written
// once via a CompressionDictionary block, backs CodecZstdDict for schemas
// that repeat enough small structure for a trained dictionary to pay off.
package compression

import (
	"fmt"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
	"github.com/pierrec/lz4/v4"
)

// Codec names a payload compression algorithm.
type Codec uint8

const (
	// CodecNone leaves the payload as-is.
	CodecNone Codec = iota
	// CodecSnappy compresses with Google Snappy (spec default).
	CodecSnappy
	// CodecLZ4 compresses with LZ4's raw block format.
	CodecLZ4
	// CodecZstdDict compresses with zstd, seeded with a per-identifier
	// dictionary from a CompressionDictionary block.
	CodecZstdDict
)

func (c Codec) String() string {
	switch c {
	case CodecNone:
		return "None"
	case CodecSnappy:
		return "Snappy"
	case CodecLZ4:
		return "LZ4"
	case CodecZstdDict:
		return "ZstdDict"
	default:
		return fmt.Sprintf("Unknown(%d)", c)
	}
}

// Compress compresses data with the given codec. CodecZstdDict requires a
// non-empty dictionary; use CompressWithDict directly for that codec.
func Compress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Encode(nil, data), nil
	case CodecLZ4:
		return compressLZ4(data)
	case CodecZstdDict:
		return nil, fmt.Errorf("compression: %s requires a dictionary, use CompressWithDict", c)
	default:
		return nil, fmt.Errorf("compression: unsupported codec %s", c)
	}
}

// Decompress reverses Compress for codecs that don't need a dictionary or
// an expected size. LZ4 decompression needs the original length, so
// DecompressLZ4 below must be used for CodecLZ4.
func Decompress(c Codec, data []byte) ([]byte, error) {
	switch c {
	case CodecNone:
		return data, nil
	case CodecSnappy:
		return snappy.Decode(nil, data)
	default:
		return nil, fmt.Errorf("compression: unsupported codec %s for size-less decompression", c)
	}
}

func compressLZ4(data []byte) ([]byte, error) {
	dst := make([]byte, lz4.CompressBlockBound(len(data)))
	var ht [1 << 16]int
	n, err := lz4.CompressBlock(data, dst, ht[:])
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 compress block: %w", err)
	}
	if n == 0 {
		// Incompressible; the writer falls back to storing it raw.
		return nil, nil
	}
	return dst[:n], nil
}

// DecompressLZ4 decompresses an LZ4 raw block given the known original
// (uncompressed) size, which the TLOG Data block's flags/length do not
// otherwise carry.
func DecompressLZ4(data []byte, originalSize int) ([]byte, error) {
	dst := make([]byte, originalSize)
	n, err := lz4.UncompressBlock(data, dst)
	if err != nil {
		return nil, fmt.Errorf("compression: lz4 uncompress block: %w", err)
	}
	return dst[:n], nil
}

// CompressWithDict compresses data using zstd seeded with dict. An empty
// dict falls back to an undictioned zstd encoder.
func CompressWithDict(data, dict []byte) ([]byte, error) {
	opts := []zstd.EOption{zstd.WithEncoderLevel(zstd.SpeedDefault)}
	if len(dict) > 0 {
		opts = append(opts, zstd.WithEncoderDict(dict))
	}
	enc, err := zstd.NewWriter(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("compression: zstd encoder: %w", err)
	}
	defer enc.Close()
	return enc.EncodeAll(data, nil), nil
}

// DecompressWithDict reverses CompressWithDict.
func DecompressWithDict(data, dict []byte) ([]byte, error) {
	var opts []zstd.DOption
	if len(dict) > 0 {
		opts = append(opts, zstd.WithDecoderDicts(dict))
	}
	dec, err := zstd.NewReader(nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("compression: zstd decoder: %w", err)
	}
	defer dec.Close()
	return dec.DecodeAll(data, nil)
}
