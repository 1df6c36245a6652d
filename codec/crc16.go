package codec

import "github.com/sigurn/crc16"

// CCITT CRC16: polynomial 0x1021, seed 0xFFFF, no reflection, no final xor.
var crcTable = crc16.MakeTable(crc16.CRC16_CCITT_FALSE)

// CRC16 is a streaming checksum over a frame held in a byte window.
// The window's last two bytes are the CRC itself: on TX they are written
// once the data portion has been consumed, on RX they are folded in so a
// clean frame leaves a zero accumulator.
type CRC16 struct {
	value     uint16
	count     int
	writeBack bool
	buf       []byte
	pos       int
}

// Init seeds the accumulator for length bytes of buf, trailing CRC included.
func (c *CRC16) Init(writeBack bool, length int, buf []byte) {
	if length > len(buf) {
		length = len(buf)
	}
	c.value = crc16.Init(crcTable)
	c.count = length
	c.writeBack = writeBack
	c.buf = buf
	c.pos = 0
}

// Step consumes the byte under the cursor. It returns false once the window
// is exhausted.
func (c *CRC16) Step() bool {
	if c.count <= 0 {
		return false
	}
	if c.count == 2 && c.writeBack {
		sum := crc16.Complete(c.value, crcTable)
		c.buf[c.pos] = byte(sum >> 8)
		c.buf[c.pos+1] = byte(sum)
	}
	c.value = crc16.Update(c.value, c.buf[c.pos:c.pos+1], crcTable)
	c.pos++
	c.count--
	return true
}

func (c *CRC16) Remaining() int { return c.count }

func (c *CRC16) Result() uint16 { return crc16.Complete(c.value, crcTable) }

// Valid reports a fully consumed window with a zero accumulator.
func (c *CRC16) Valid() bool { return c.count == 0 && c.Result() == 0 }

// AppendCRC16 returns data followed by its big-endian CRC16.
func AppendCRC16(data []byte) []byte {
	sum := crc16.Checksum(data, crcTable)
	out := make([]byte, len(data), len(data)+2)
	copy(out, data)
	return append(out, byte(sum>>8), byte(sum))
}

// VerifyCRC16 checks data whose last two bytes are its CRC16.
func VerifyCRC16(data []byte) bool {
	return len(data) >= 2 && crc16.Checksum(data, crcTable) == 0
}
