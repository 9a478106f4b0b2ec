// crc16.go implements the CRC-16 variant the Multiplex protocol frames are
// checksummed with: polynomial 0x1021 (CCITT), seed 0xFFFF, no input or
// output reflection, no final XOR ("CCITT-false"). It is table-driven,
// following the same Value/Extend shape as a classic CRC32C implementation,
// adapted to the 16-bit polynomial and the multiplex wire format's seed.
package wire

const (
	crc16Poly = 0x1021
	crc16Init = 0xFFFF
)

var crc16Table = buildCRC16Table(crc16Poly)

func buildCRC16Table(poly uint16) [256]uint16 {
	var table [256]uint16
	for i := range table {
		crc := uint16(i) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ poly
			} else {
				crc <<= 1
			}
		}
		table[i] = crc
	}
	return table
}

// CRC16 computes the CCITT-false CRC-16 of data.
func CRC16(data []byte) uint16 {
	return CRC16Extend(crc16Init, data)
}

// CRC16Extend computes the CCITT-false CRC-16 of data given an initial
// (running) CRC value, letting callers checksum a buffer in pieces without
// concatenating it first.
func CRC16Extend(init uint16, data []byte) uint16 {
	crc := init
	for _, b := range data {
		crc = (crc << 8) ^ crc16Table[byte(crc>>8)^b]
	}
	return crc
}
