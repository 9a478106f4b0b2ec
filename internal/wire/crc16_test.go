package wire

import "testing"

// TestCRC16StandardResults checks against the well-known CRC-16/CCITT-FALSE
// check value: CRC16("123456789") == 0x29B1.
func TestCRC16StandardResults(t *testing.T) {
	tests := []struct {
		name string
		data []byte
		want uint16
	}{
		{"empty", []byte{}, 0xFFFF},
		{"check_string", []byte("123456789"), 0x29B1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CRC16(tt.data); got != tt.want {
				t.Errorf("CRC16(%q) = 0x%04x, want 0x%04x", tt.data, got, tt.want)
			}
		})
	}
}

func TestCRC16ExtendMatchesWholeBuffer(t *testing.T) {
	data := []byte("the quick brown fox jumps over the lazy dog")
	whole := CRC16(data)

	split := len(data) / 3
	partial := CRC16Extend(crc16Init, data[:split])
	partial = CRC16Extend(partial, data[split:])

	if partial != whole {
		t.Errorf("split computation = 0x%04x, want 0x%04x", partial, whole)
	}
}

func TestCRC16ByteAtATimeMatchesBulk(t *testing.T) {
	data := []byte{0xAB, 0x54, 0x81, 0x02, 0x05, 0x18, 0x00, 0x00, 0x00}
	bulk := CRC16(data)

	crc := uint16(crc16Init)
	for _, b := range data {
		crc = CRC16Extend(crc, []byte{b})
	}
	if crc != bulk {
		t.Errorf("byte-at-a-time = 0x%04x, want 0x%04x", crc, bulk)
	}
}
