package tlogmux

import (
	"github.com/brindlerobotics/tlogmux/internal/logging"
	"github.com/brindlerobotics/tlogmux/internal/wire"
)

// Logger is an alias for the logging.Logger interface, so callers can pass
// their own implementation without importing the internal package.
type Logger = logging.Logger

// Compression selects the codec a Writer applies to Data block payloads.
type Compression uint8

const (
	// CompressionNone disables payload compression.
	CompressionNone Compression = iota
	// CompressionSnappy is the default codec when DefaultCompression is set.
	CompressionSnappy
	// CompressionLZ4 selects the LZ4 block codec.
	CompressionLZ4
	// CompressionZstdDict selects zstd seeded with a per-identifier
	// dictionary previously written via WriteCompressionDictionary.
	CompressionZstdDict
)

// Options configures a Writer. The zero value is not valid; use
// DefaultOptions and override individual fields.
type Options struct {
	// DefaultCompression enables payload compression for Data blocks whose
	// payload exceeds CompressionThreshold bytes.
	DefaultCompression bool

	// Codec selects which codec DefaultCompression applies.
	Codec Compression

	// CompressionThreshold is the payload size, in bytes, above which
	// DefaultCompression takes effect.
	CompressionThreshold int

	// Checksum enables the optional per-block XXH3-64 checksum (Data
	// flags bit 2): an 8-byte digest appended after the payload, covering
	// the identifier, flags, previous-offset, timestamp and payload.
	Checksum bool

	// SeekMarkerInterval, if greater than zero, emits a SeekMarker block
	// for an identifier every N WriteData calls against it, recording the
	// (timestamp, offset) pairs written since the previous marker. Zero
	// disables seek markers.
	SeekMarkerInterval int

	// BufferPool is the byte-buffer arena backing GetBuffer, WriteBlock,
	// and internal scratch space. A private pool is created if nil.
	BufferPool *wire.Pool

	// Logger receives writer lifecycle and sink-error messages. Defaults
	// to a WARN-level logger writing to stderr.
	Logger Logger
}

// DefaultOptions returns the Writer defaults: no compression, no
// checksums, no seek markers.
func DefaultOptions() *Options {
	return &Options{
		DefaultCompression:   false,
		Codec:                CompressionSnappy,
		CompressionThreshold: 64,
	}
}
