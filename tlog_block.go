package tlogmux

// BlockType identifies the kind of a TLOG block body.
type BlockType uint8

// Block type constants (spec §3).
const (
	BlockSchema                BlockType = 0x01
	BlockData                  BlockType = 0x02
	BlockIndex                 BlockType = 0x03
	BlockCompressionDictionary BlockType = 0x04
	BlockSeekMarker            BlockType = 0x05
)

func (t BlockType) String() string {
	switch t {
	case BlockSchema:
		return "Schema"
	case BlockData:
		return "Data"
	case BlockIndex:
		return "Index"
	case BlockCompressionDictionary:
		return "CompressionDictionary"
	case BlockSeekMarker:
		return "SeekMarker"
	default:
		return "Unknown"
	}
}

const (
	tlogMagic        = "TLOG0003\x00"
	indexFooterMagic = "TLOGIDEX"
	footerSize       = 12

	// noFinalOffset marks an identifier that has never had a Data block
	// written for it.
	noFinalOffset = ^uint64(0)
)

// Data block flag bits (spec §4.2, §6).
const (
	dataFlagPrevOffset = 1 << 0
	dataFlagTimestamp  = 1 << 1
	dataFlagChecksum   = 1 << 2
	dataFlagCompressed = 1 << 3
)
