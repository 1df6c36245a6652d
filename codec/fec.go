package codec

import "math/bits"

// Rate 1/2, constraint length 4 convolutional code. The table is indexed by
// three bits of encoder history followed by the current input bit.
var fecEncodeTable = [16]byte{
	0, 3, 1, 2,
	3, 0, 2, 1,
	3, 0, 2, 1,
	0, 3, 1, 2,
}

const (
	fecTerminator  = 0x0B
	fecStates      = 8
	fecInitialCost = 100
	fecSymbols     = 16 // 2-bit symbols per interleaved block
	fecPathBits    = 32
)

// FECEncodedLen is the on-air size of n bytes once the trellis terminator is
// appended and the result is encoded.
func FECEncodedLen(n int) int {
	m := n + 1
	if m%2 != 0 {
		m++
	}
	return m * 2
}

// FECEncoder turns pairs of input bytes into interleaved 4-byte blocks.
type FECEncoder struct {
	reg uint16
}

func (e *FECEncoder) Init() { e.reg = 0 }

func (e *FECEncoder) encodeByte(b byte) uint16 {
	e.reg = e.reg&0x700 | uint16(b)
	var out uint16
	for j := 0; j < 8; j++ {
		out = out<<2 | uint16(fecEncodeTable[e.reg>>7])
		e.reg = (e.reg << 1) & 0x7FF
	}
	return out
}

// EncodePair encodes two bytes into one interleaved block.
func (e *FECEncoder) EncodePair(a, b byte) [4]byte {
	wa, wb := e.encodeByte(a), e.encodeByte(b)
	return interleave([4]byte{byte(wa >> 8), byte(wa), byte(wb >> 8), byte(wb)})
}

// interleave gathers 2-bit lanes across the four bytes of a block.
func interleave(in [4]byte) [4]byte {
	var v uint32
	for j := 0; j < fecSymbols; j++ {
		v = v<<2 | uint32(in[^j&3]>>(2*((j&0x0C)>>2))&3)
	}
	return [4]byte{byte(v >> 24), byte(v >> 16), byte(v >> 8), byte(v)}
}

func deinterleave(in [4]byte) [4]byte {
	var out [4]byte
	for i := 0; i < 4; i++ {
		var b byte
		for k := 3; k >= 0; k-- {
			b = b<<2 | (in[k]>>(2*i))&3
		}
		out[i] = b
	}
	return out
}

// FECDecoder is a hard-decision Viterbi decoder over the 8-state trellis.
// Cost and path tables are two generations swapped on every symbol.
type FECDecoder struct {
	cost     [2][fecStates]int
	path     [2][fecStates]uint32
	last     int
	pathBits int
	length   int // decoded bytes expected, 0 while unknown
	emitted  int
	offset   int
	metric   int
	done     bool
}

// Init resets the trellis. length may be 0 when the frame length is learned
// from the first decoded byte; call SetLength before the third block then.
func (d *FECDecoder) Init(length int) {
	d.cost[0][0] = 0
	for s := 1; s < fecStates; s++ {
		d.cost[0][s] = fecInitialCost
	}
	d.last = 0
	d.pathBits = 0
	d.length = length
	d.emitted = 0
	d.offset = 0
	d.metric = 0
	d.done = false
}

func (d *FECDecoder) SetLength(n int) { d.length = n }

// Done reports that every expected byte has been emitted.
func (d *FECDecoder) Done() bool { return d.done }

// Metric is the accumulated cost of the surviving path, i.e. the number of
// received code bits that disagreed with it. Valid once Done.
func (d *FECDecoder) Metric() int { return d.metric }

func trellisOutput(src, dest int) byte {
	return fecEncodeTable[src<<1|dest&1]
}

// Decode runs one interleaved block through the trellis and appends any
// decoded bytes to out. Blocks after Done are consumed and ignored.
func (d *FECDecoder) Decode(block [4]byte, out []byte) []byte {
	if d.done {
		return out
	}
	sym := deinterleave(block)
	cur := d.last ^ 1
	minCost := 0

	for n := 0; n < fecSymbols; n++ {
		symbol := sym[n>>2] >> (6 - 2*(n&3)) & 3
		minCost = int(^uint(0) >> 1)

		for dest := 0; dest < fecStates; dest++ {
			src0, src1 := dest>>1, dest>>1|4
			c0 := d.cost[d.last][src0] + bits.OnesCount8(symbol^trellisOutput(src0, dest))
			c1 := d.cost[d.last][src1] + bits.OnesCount8(symbol^trellisOutput(src1, dest))
			bit := uint32(dest & 1)
			// Equal costs keep the first source.
			if c0 <= c1 {
				d.cost[cur][dest] = c0
				d.path[cur][dest] = d.path[d.last][src0]<<1 | bit
			} else {
				d.cost[cur][dest] = c1
				d.path[cur][dest] = d.path[d.last][src1]<<1 | bit
			}
			if d.cost[cur][dest] < minCost {
				minCost = d.cost[cur][dest]
			}
		}
		d.pathBits++

		if d.pathBits == fecPathBits {
			out = append(out, byte(d.path[cur][0]>>24))
			d.emitted++
			d.pathBits -= 8
		}

		// Three terminator symbols after the last data bit drive the
		// encoder back to state 0; flush what is left of its path.
		if rem := d.length - d.emitted; d.length > 0 && rem <= 3 && d.pathBits == 8*rem+3 {
			for d.pathBits >= 8 {
				out = append(out, byte(d.path[cur][0]>>(d.pathBits-8)))
				d.emitted++
				d.pathBits -= 8
			}
			d.metric = d.offset + d.cost[cur][0]
			d.last = cur
			d.done = true
			return out
		}

		d.last, cur = cur, d.last
	}

	for s := 0; s < fecStates; s++ {
		d.cost[d.last][s] -= minCost
	}
	d.offset += minCost
	return out
}

// FECEncode encodes data followed by the trellis terminator.
func FECEncode(data []byte) []byte {
	in := make([]byte, 0, len(data)+2)
	in = append(in, data...)
	in = append(in, fecTerminator)
	if len(in)%2 != 0 {
		in = append(in, fecTerminator)
	}
	var e FECEncoder
	e.Init()
	out := make([]byte, 0, len(in)*2)
	for i := 0; i < len(in); i += 2 {
		blk := e.EncodePair(in[i], in[i+1])
		out = append(out, blk[:]...)
	}
	return out
}

// FECDecode decodes n bytes from an encoded stream. Trailing partial blocks
// are ignored.
func FECDecode(enc []byte, n int) []byte {
	var d FECDecoder
	d.Init(n)
	out := make([]byte, 0, n)
	for i := 0; i+4 <= len(enc) && !d.Done(); i += 4 {
		out = d.Decode([4]byte{enc[i], enc[i+1], enc[i+2], enc[i+3]}, out)
	}
	return out
}
