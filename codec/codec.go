package codec

import (
	"fmt"

	"github.com/ystepanoff/m2radio/protocol"
)

// Strategy is the composition of CRC, PN9 and FEC used for one packet.
type Strategy uint8

const (
	HardwareCRCAndPN9 Strategy = iota
	HardwarePN9Only
	SoftwarePN9
	SoftwareFEC
)

var strategyNames = [...]string{"hw-crc-pn9", "hw-pn9", "sw-pn9", "sw-fec"}

func (s Strategy) String() string {
	if int(s) < len(strategyNames) {
		return strategyNames[s]
	}
	return fmt.Sprintf("strategy(%d)", uint8(s))
}

// HardwareCRC reports whether the transceiver appends and checks the CRC.
func (s Strategy) HardwareCRC() bool { return s == HardwareCRCAndPN9 }

// HardwarePN9 reports whether the transceiver whitens the bitstream.
func (s Strategy) HardwarePN9() bool { return s == HardwareCRCAndPN9 || s == HardwarePN9Only }

// Capabilities lists the coding a transceiver can do by itself.
type Capabilities struct {
	HardwareCRC bool
	HardwarePN9 bool
}

// SelectStrategy picks the strategy for a packet. Hardware coding is only
// used for single frames: chained and flooded packets restart PN9 and carry
// a CRC per frame, which the transceivers in scope cannot do.
func SelectStrategy(caps Capabilities, fec, chained bool) Strategy {
	switch {
	case fec:
		return SoftwareFEC
	case chained || !caps.HardwarePN9:
		return SoftwarePN9
	case caps.HardwareCRC:
		return HardwareCRCAndPN9
	default:
		return HardwarePN9Only
	}
}

// FIFOWriter is the TX half of the transceiver FIFO.
type FIFOWriter interface {
	TxOpen() bool
	TxOpenWide() bool
	PutByte(b byte)
	PutFourBytes(b [4]byte)
}

// FIFOReader is the RX half of the transceiver FIFO.
type FIFOReader interface {
	RxOpen() bool
	RxOpenWide() bool
	GetByte() byte
	GetFourBytes() [4]byte
}

// Codec moves one packet between a Queue and the transceiver FIFO.
type Codec struct {
	strategy   Strategy
	background bool
	q          *protocol.Queue

	crc   CRC16
	crcOn bool
	pn9   PN9
	enc   FECEncoder
	dec   FECDecoder

	frameStart int
	frameLen   int
	consumed   int
	remaining  int
	decoded    int
	more       bool
	corrupt    bool
	invalid    bool

	frames      int
	index       int
	packetOnAir int

	scratch []byte
}

func (c *Codec) Strategy() Strategy { return c.strategy }

func (c *Codec) onAir(length int) int {
	switch c.strategy {
	case HardwareCRCAndPN9:
		return length - protocol.CRCSize
	case SoftwareFEC:
		return FECEncodedLen(length)
	}
	return length
}

func (c *Codec) stored(length int) int {
	if c.strategy.HardwareCRC() {
		return length - protocol.CRCSize
	}
	return length
}

func (c *Codec) reset(s Strategy, q *protocol.Queue, background bool) {
	c.strategy = s
	c.q = q
	c.background = background
	c.frames, c.index, c.packetOnAir = 0, -1, 0
	c.frameLen, c.remaining = 0, 0
	c.more, c.corrupt, c.invalid = false, false, false
}

// NewTxPacket binds s to the packet waiting in q and walks its frame chain.
func (c *Codec) NewTxPacket(s Strategy, q *protocol.Queue, background bool) error {
	c.reset(s, q, background)
	if background {
		c.frames, c.packetOnAir = 1, c.onAir(protocol.BackgroundFrameSize)
		return nil
	}
	off := 0
	for {
		l, err := q.Peek(off + protocol.LengthOffset)
		if err != nil || int(l) < protocol.MinFrameSize {
			break
		}
		c.frames++
		c.packetOnAir += c.onAir(int(l))
		ctl, err := q.Peek(off + protocol.ControlOffset)
		if err != nil || ctl&protocol.ControlContinue == 0 {
			break
		}
		off += int(l)
	}
	if c.frames == 0 {
		return protocol.ErrFrameLength
	}
	return nil
}

// NewTxFrame starts the frame under the queue's read cursor.
func (c *Codec) NewTxFrame() error {
	l := protocol.BackgroundFrameSize
	if !c.background {
		b, err := c.q.Peek(protocol.LengthOffset)
		if err != nil {
			return err
		}
		l = int(b)
	}
	if l < protocol.MinFrameSize || c.q.Len() < l {
		return fmt.Errorf("tx frame of %d bytes with %d queued: %w", l, c.q.Len(), protocol.ErrFrameLength)
	}
	c.more = false
	if !c.background {
		ctl, _ := c.q.Peek(protocol.ControlOffset)
		c.more = ctl&protocol.ControlContinue != 0
	}
	c.index++
	c.frameStart = c.q.GetCursor()
	c.frameLen = l
	c.consumed = 0
	c.remaining = c.onAir(l)
	c.pn9.Init()
	c.enc.Init()
	c.crcOn = !c.strategy.HardwareCRC()
	if c.crcOn {
		span, err := c.q.Span(c.frameStart, l)
		if err != nil {
			return err
		}
		c.crc.Init(true, l, span)
	}
	return nil
}

func (c *Codec) nextTxByte() byte {
	if c.consumed >= c.stored(c.frameLen) {
		c.consumed++
		return fecTerminator
	}
	if c.crcOn {
		c.crc.Step()
	}
	b, err := c.q.Get()
	if err != nil {
		c.corrupt = true
	}
	c.consumed++
	if !c.strategy.HardwarePN9() {
		b = c.pn9.Apply(b)
	}
	return b
}

// Encode pushes encoded bytes of the current frame while the FIFO has room.
// limit caps the bytes pushed by this call; 0 means no cap.
func (c *Codec) Encode(w FIFOWriter, limit int) int {
	n := 0
	if c.strategy == SoftwareFEC {
		for c.remaining >= 4 && (limit <= 0 || n+4 <= limit) && w.TxOpenWide() {
			a := c.nextTxByte()
			b := c.nextTxByte()
			w.PutFourBytes(c.enc.EncodePair(a, b))
			c.remaining -= 4
			n += 4
		}
	} else {
		for c.remaining > 0 && (limit <= 0 || n < limit) && w.TxOpen() {
			w.PutByte(c.nextTxByte())
			c.remaining--
			n++
		}
	}
	if n > 0 && c.remaining == 0 && c.strategy.HardwareCRC() {
		// the transceiver generated the CRC; drop the reserved bytes
		_ = c.q.Skip(protocol.CRCSize)
	}
	return n
}

// NewRxPacket binds s and empties q for reception.
func (c *Codec) NewRxPacket(s Strategy, q *protocol.Queue, background bool) {
	c.reset(s, q, background)
	q.Reset()
}

// NewRxFrame starts a frame at the queue's write cursor.
func (c *Codec) NewRxFrame() {
	c.index++
	c.frameStart = c.q.PutCursor()
	c.frameLen, c.consumed, c.decoded = 0, 0, 0
	c.more, c.corrupt, c.invalid, c.crcOn = false, false, false, false
	c.pn9.Init()
	c.dec.Init(0)
	c.remaining = c.onAir(protocol.MaxFrameSize)
	if c.background {
		c.setRxLength(protocol.BackgroundFrameSize)
	}
}

func (c *Codec) setRxLength(l int) {
	c.frameLen = l
	if c.strategy == SoftwareFEC {
		c.dec.SetLength(l)
	}
	c.remaining = c.onAir(l) - c.consumed
	if c.remaining < 0 {
		c.remaining = 0
	}
	if c.strategy.HardwareCRC() {
		return
	}
	span, err := c.q.Span(c.frameStart, l)
	if err != nil {
		c.corrupt = true
		return
	}
	c.crc.Init(false, l, span)
	c.crcOn = true
}

func (c *Codec) putRx(b byte) {
	if !c.strategy.HardwarePN9() {
		b = c.pn9.Apply(b)
	}
	if c.frameLen > 0 && c.decoded >= c.stored(c.frameLen) {
		return
	}
	if err := c.q.Put(b); err != nil {
		c.corrupt = true
		return
	}
	c.decoded++
	if c.frameLen == 0 {
		if int(b) < protocol.MinFrameSize {
			c.invalid = true
			c.remaining = 0
			return
		}
		c.setRxLength(int(b))
	}
	if c.crcOn {
		c.crc.Step()
	}
	if !c.background && c.decoded == protocol.ControlOffset+1 {
		c.more = b&protocol.ControlContinue != 0
	}
}

// Decode drains the FIFO into the queue until it runs dry or the frame ends.
// FEC blocks past the decoded frame are still consumed to keep framing.
func (c *Codec) Decode(r FIFOReader) {
	if c.strategy == SoftwareFEC {
		for c.remaining >= 4 && r.RxOpenWide() {
			blk := r.GetFourBytes()
			c.consumed += 4
			c.remaining -= 4
			c.scratch = c.dec.Decode(blk, c.scratch[:0])
			for _, b := range c.scratch {
				c.putRx(b)
			}
		}
		return
	}
	for c.remaining > 0 && r.RxOpen() {
		b := r.GetByte()
		c.consumed++
		c.remaining--
		c.putRx(b)
	}
}

// RemainingBytes is the number of on-air bytes of the current frame still to
// pass through the FIFO. Before an RX frame length is known it is an upper
// bound.
func (c *Codec) RemainingBytes() int { return c.remaining }

// RemainingFrames reports whether another frame follows the current one.
func (c *Codec) RemainingFrames() bool { return c.more }

// FramesLeft is the number of TX frames after the current one.
func (c *Codec) FramesLeft() int {
	if n := c.frames - c.index - 1; n > 0 {
		return n
	}
	return 0
}

// PacketLength is the on-air size of the whole TX packet.
func (c *Codec) PacketLength() int { return c.packetOnAir }

// LengthKnown reports whether the current RX frame has declared its length.
func (c *Codec) LengthKnown() bool { return c.frameLen > 0 }

func (c *Codec) FrameLength() int { return c.frameLen }

// HeaderKnown reports whether the frame control byte of the current RX
// frame has been received, so RemainingFrames is meaningful.
func (c *Codec) HeaderKnown() bool {
	return c.background || c.decoded > protocol.ControlOffset || c.invalid
}

// Frame returns the bytes of the current RX frame stored so far.
func (c *Codec) Frame() []byte {
	b := c.q.Bytes()
	if c.frameStart > len(b) {
		return nil
	}
	return b[c.frameStart:]
}

// Corrections is the Viterbi path metric of the current frame.
func (c *Codec) Corrections() int {
	if c.strategy != SoftwareFEC || !c.dec.Done() {
		return 0
	}
	return c.dec.Metric()
}

// Status is the integrity of the finished RX frame: 0 clean, a positive
// count of corrected bits when FEC repaired a frame whose CRC then passed,
// -1 when the frame is unusable. hardwareOK is the transceiver's CRC verdict
// and only matters when the CRC is done in hardware.
func (c *Codec) Status(hardwareOK bool) int {
	if c.invalid || c.corrupt {
		return -1
	}
	if c.strategy.HardwareCRC() {
		if hardwareOK {
			return 0
		}
		return -1
	}
	if !c.crc.Valid() {
		return -1
	}
	return c.Corrections()
}
