package tlogmux

// Subframe opcodes. Register write/read ranges, the two error opcodes and
// the two tunnel opcodes are pinned by spec §4.3/§6; the reply opcodes
// below are this module's own choice of wire layout for the values the
// spec leaves implementation-defined, made self-consistent with the rest
// of the subframe TLV scheme (opcode varuint, in practice single-byte).
const (
	// opWriteSingleBase..opWriteSingleBase+3 write one register of the
	// given type (i8, i16, i32, f32 in that order). opcodes 0x10-0x13.
	opWriteSingleBase = 0x10
	// opWriteMultiBase..+3 write a run of registers of the given type.
	// opcodes 0x14-0x17.
	opWriteMultiBase = 0x14

	// opReadSingleBase..+3 read one register of the given type.
	// opcodes 0x18-0x1B.
	opReadSingleBase = 0x18
	// opReadMultiBase..+3 read a run of registers of the given type.
	// opcodes 0x1C-0x1F.
	opReadMultiBase = 0x1C

	// opReplySingleBase..+3 answer a single register read.
	// opcodes 0x20-0x23.
	opReplySingleBase = 0x20
	// opReplyMultiBase..+3 answer a run of register reads.
	// opcodes 0x24-0x27.
	opReplyMultiBase = 0x24

	// opErrorSingle/opErrorMulti report a non-zero RegisterError code for
	// a single register or a run of registers, in place of a Reply.
	opErrorSingle = 0x28
	opErrorMulti  = 0x29

	// opTunnelC2S carries tunnel bytes from client to server.
	opTunnelC2S = 0x40
	// opTunnelS2C carries tunnel bytes from server to client.
	opTunnelS2C = 0x41
)

func isWriteOp(op byte) bool {
	return op >= opWriteSingleBase && op <= opWriteMultiBase+3
}

func isReadOp(op byte) bool {
	return op >= opReadSingleBase && op <= opReadMultiBase+3
}

func opValueType(base, op byte) ValueType {
	return ValueType(op - base)
}
