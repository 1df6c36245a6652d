// Package cc1101 drives a TI CC1101 sub-GHz transceiver for the Mode 2
// engine over SPI, with GDO0 and GDO2 wired to GPIO inputs.
//
// The packet handler whitens in hardware. Its CRC uses polynomial 0x8005,
// so CRC16 is always computed by the engine.
//
// Datasheet:
// http://www.ti.com/lit/ds/symlink/cc1101.pdf
package cc1101

import (
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"periph.io/x/conn/v3"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
	"github.com/ystepanoff/m2radio/transport"
)

const (
	speed = 5 * physic.MegaHertz
	bits  = 8

	fifoSize = 64

	baseRate = 55555 * physic.Hertz
	highRate = 200 * physic.KiloHertz

	// receive filter bandwidth, upper nibble of MDMCFG4
	baseRateBandwidth = 0x80
	highRateBandwidth = 0x40

	deviation = 50 * physic.KiloHertz
)

// Opts describe the board.
type Opts struct {
	// Crystal is the reference oscillator frequency.
	Crystal physic.Frequency
	// Base is the center frequency of channel index 0.
	Base physic.Frequency
	// Spacing separates adjacent channel centers.
	Spacing physic.Frequency
}

// DefaultOpts is a 26 MHz crystal on the 433 MHz band plan.
var DefaultOpts = Opts{
	Crystal: 26 * physic.MegaHertz,
	Base:    433164 * physic.KiloHertz,
	Spacing: 216 * physic.KiloHertz,
}

type state uint8

const (
	stateSleep state = iota
	stateIdle
	stateTx
	stateRx
)

// Dev is a handle to the device. It implements transport.RadioDriver.
type Dev struct {
	mu     sync.Mutex
	c      conn.Conn
	gdo0   gpio.PinIn
	gdo2   gpio.PinIn
	opts   Opts
	logger *zap.SugaredLogger
	err    error

	state      state
	asleep     bool
	fec        bool
	pa         byte
	whitening  byte
	txTotal    int
	pushed     int
	pulled     int
	txRoom     int
	rxAvail    int
	fixed      bool
	timer      *time.Timer
	timerArmed bool
}

var _ transport.RadioDriver = (*Dev)(nil)
var _ transport.LinkStatusReader = (*Dev)(nil)

// NewSPI connects to the transceiver on p and returns a reset, configured
// device.
func NewSPI(p spi.Port, gdo0, gdo2 gpio.PinIn, opts *Opts) (*Dev, error) {
	c, err := p.Connect(speed, spi.Mode0, bits)
	if err != nil {
		return nil, fmt.Errorf("cc1101: %w", err)
	}
	return New(c, gdo0, gdo2, opts)
}

// New resets the transceiver behind c and writes the base configuration.
// opts may be nil for DefaultOpts.
func New(c conn.Conn, gdo0, gdo2 gpio.PinIn, opts *Opts) (*Dev, error) {
	o := DefaultOpts
	if opts != nil {
		o = *opts
	}
	for _, p := range []gpio.PinIn{gdo0, gdo2} {
		if p == nil {
			continue
		}
		if err := p.In(gpio.PullDown, gpio.BothEdges); err != nil {
			return nil, fmt.Errorf("cc1101: %s: %w", p, err)
		}
	}
	timer := time.NewTimer(time.Hour)
	timer.Stop()
	d := &Dev{
		c:      c,
		gdo0:   gdo0,
		gdo2:   gdo2,
		opts:   o,
		logger: zap.NewNop().Sugar(),
		pa:     paTable[0].val,
		timer:  timer,
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sres)
	ver := d.readStatus(version)
	part := d.readStatus(partnum)
	if d.err != nil {
		return nil, d.err
	}
	if ver == 0x00 || ver == 0xff {
		return nil, fmt.Errorf("cc1101: no device on %s (version %#x)", c, ver)
	}
	if ver != 0x14 || part != 0x00 {
		d.logger.Warnw("unexpected CCxxxx device", "version", ver, "partnum", part)
	}
	d.configure()
	d.state = stateIdle
	return d, d.err
}

func (d *Dev) configure() {
	for _, r := range baseConfig {
		d.writeReg(r.reg, r.val)
	}
	d.writeReg(patable, d.pa)
}

func (d *Dev) SetLogger(logger *zap.SugaredLogger) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.logger = logger
}

// Err returns the first SPI error. Once set, the device ignores further
// register access.
func (d *Dev) Err() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.err
}

func (d *Dev) String() string { return fmt.Sprintf("cc1101{%s}", d.c) }

func (d *Dev) Capabilities() codec.Capabilities {
	return codec.Capabilities{HardwarePN9: true}
}

func (d *Dev) TxOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txSpace(1)
}

func (d *Dev) TxOpenWide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txSpace(4)
}

func (d *Dev) txSpace(n int) bool {
	if d.txRoom < n {
		d.txRoom = fifoSize - int(d.readStatus(txbytes)&fifoBytesMask)
	}
	return d.txRoom >= n
}

func (d *Dev) PutByte(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeFIFO(b)
}

func (d *Dev) PutFourBytes(b [4]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.writeFIFO(b[:]...)
}

func (d *Dev) writeFIFO(b ...byte) {
	w := make([]byte, 0, len(b)+1)
	if len(b) == 1 {
		w = append(w, fifo|writeSingle)
	} else {
		w = append(w, fifo|writeBurst)
	}
	d.tx(append(w, b...), nil)
	d.txRoom -= len(b)
	d.pushed += len(b)
	// leave infinite mode once the rest of a long packet fits the counter
	if d.txTotal > 0xff && !d.fixed && d.txTotal-d.pushed <= 0xff {
		d.fixLength(d.txTotal)
	}
}

func (d *Dev) RxOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxData(1)
}

func (d *Dev) RxOpenWide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxData(4)
}

func (d *Dev) rxData(n int) bool {
	if d.rxAvail < n {
		st := d.readStatus(rxbytes)
		if st&fifoOverflow != 0 {
			d.logger.Warnw("rx fifo overflow")
		}
		d.rxAvail = int(st & fifoBytesMask)
	}
	return d.rxAvail >= n
}

func (d *Dev) GetByte() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	var b [1]byte
	d.readFIFO(b[:])
	return b[0]
}

func (d *Dev) GetFourBytes() (b [4]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.readFIFO(b[:])
	return b
}

func (d *Dev) readFIFO(out []byte) {
	w := make([]byte, len(out)+1)
	r := make([]byte, len(w))
	w[0] = fifo | readSingle
	if len(out) > 1 {
		w[0] = fifo | readBurst
	}
	d.tx(w, r)
	copy(out, r[1:])
	d.rxAvail -= len(out)
	d.pulled += len(out)
}

func (d *Dev) FlushTx() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.strobe(sftx)
	d.txRoom = 0
}

func (d *Dev) FlushRx() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.strobe(sfrx)
	d.rxAvail = 0
}

func (d *Dev) Idle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.stopTimer()
	d.state = stateIdle
}

// Sleep powers the transceiver down. PATABLE and the test registers are
// lost and rewritten on the next operation.
func (d *Dev) Sleep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.strobe(spwd)
	d.stopTimer()
	d.reset()
	d.state = stateSleep
	d.asleep = true
}

func (d *Dev) reset() {
	d.txTotal, d.pushed, d.pulled = 0, 0, 0
	d.txRoom, d.rxAvail = 0, 0
	d.fixed = false
}

func (d *Dev) wake() {
	if !d.asleep {
		return
	}
	d.writeReg(test2, 0x81)
	d.writeReg(test1, 0x35)
	d.writeReg(test0, 0x09)
	d.writeReg(patable, d.pa)
	d.asleep = false
}

func (d *Dev) SetChannelRegisters(regs transport.ChannelRegisters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wake()
	d.strobe(sidle)
	f := d.opts.Base + physic.Frequency(regs.ID.Center())*d.opts.Spacing
	d.writeReg(freq2, calculateFreq(d.opts.Crystal, f)...)

	rate, bw := baseRate, byte(baseRateBandwidth)
	if regs.ID.HighRate() {
		rate, bw = highRate, highRateBandwidth
	}
	e, m := calculateDataRate(d.opts.Crystal, rate)
	d.writeReg(mdmcfg4, bw|e, m)
	d.writeReg(deviatn, calculateDeviatn(d.opts.Crystal, deviation))
	d.fec = regs.ID.FEC()
	if regs.Recalibrate {
		d.strobe(scal)
	}
	d.logger.Debugw("channel programmed", "channel", regs.ID, "frequency", f, "recalibrate", regs.Recalibrate)
	return d.err
}

func (d *Dev) SetTxPower(code uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.pa = paTableValue(protocol.DecodeEIRP(code))
	d.writeReg(patable, d.pa)
	return d.err
}

func (d *Dev) Calibrate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.strobe(scal)
}

func (d *Dev) ReadRSSI() int16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return convertRSSI(d.readStatus(rssi))
}

func (d *Dev) CRCOK() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.readStatus(lqi)&crcOK != 0
}

// ReadLinkStatus reports RSSI and LQI of the last packet.
func (d *Dev) ReadLinkStatus() protocol.LinkInfo {
	d.mu.Lock()
	defer d.mu.Unlock()
	return protocol.LinkInfo{
		RSSI: convertRSSI(d.readStatus(rssi)),
		LQI:  d.readStatus(lqi) &^ crcOK,
	}
}

func (d *Dev) packetFormat(mode transport.PacketMode) {
	d.whitening = 0
	if mode.HardwarePN9 {
		d.whitening = whiteData
	}
	sw := syncWord(d.fec, mode.Background)
	d.writeReg(sync1, byte(sw>>8), byte(sw))
	if mode.Length > 0 && mode.Length <= 0xff {
		d.writeReg(pktlen, byte(mode.Length))
		d.writeReg(pktctrl0, d.whitening|lengthFixed)
		d.fixed = true
		return
	}
	d.writeReg(pktctrl0, d.whitening|lengthInfinite)
	d.fixed = false
}

func (d *Dev) BeginTx(mode transport.PacketMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wake()
	d.packetFormat(mode)
	d.stopTimer()
	d.txTotal = mode.Length
	if !d.fixed && d.txTotal > 0xff && d.txTotal-d.pushed <= 0xff {
		d.fixLength(d.txTotal)
	}
	d.writeReg(iocfg2, gdoTxThreshold)
	d.state = stateTx
	d.strobe(stx)
}

func (d *Dev) BeginRx(mode transport.PacketMode, timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.wake()
	d.reset()
	d.packetFormat(mode)
	d.writeReg(iocfg2, gdoRxThreshold)
	d.state = stateRx
	d.strobe(srx)
	d.stopTimer()
	d.timer.Reset(timeout)
	d.timerArmed = true
}

func (d *Dev) SetFixedLength(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case stateTx:
		d.fixLength(d.pushed + n)
	case stateRx:
		d.fixLength(d.pulled + n)
	}
}

// fixLength ends the packet once the packet byte counter reaches end.
func (d *Dev) fixLength(end int) {
	d.writeReg(pktlen, byte(end))
	d.writeReg(pktctrl0, d.whitening|lengthFixed)
	d.fixed = true
}

func (d *Dev) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.strobe(sidle)
	d.stopTimer()
	d.reset()
	d.state = stateIdle
}

func (d *Dev) currentState() state {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.state
}

// syncDetected disarms the sync-wait timer once a packet is underway.
func (d *Dev) syncDetected() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopTimer()
}

func (d *Dev) stopTimer() {
	if !d.timerArmed {
		return
	}
	if !d.timer.Stop() {
		select {
		case <-d.timer.C:
		default:
		}
	}
	d.timerArmed = false
}

func (d *Dev) tx(w, r []byte) {
	if d.err != nil {
		return
	}
	if err := d.c.Tx(w, r); err != nil {
		d.err = fmt.Errorf("cc1101: %w", err)
		d.logger.Errorw("spi transaction failed", "error", err)
	}
}

// writeReg writes one or more consecutive registers starting at addr.
func (d *Dev) writeReg(addr byte, data ...byte) {
	w := make([]byte, len(data)+1)
	w[0] = addr | writeSingle
	if len(data) > 1 {
		w[0] = addr | writeBurst
	}
	copy(w[1:], data)
	d.tx(w, nil)
}

// readStatus reads a status register; those share addresses with strobes and
// need the burst bit.
func (d *Dev) readStatus(addr byte) byte {
	var r [2]byte
	d.tx([]byte{addr | readBurst, 0}, r[:])
	return r[1]
}

func (d *Dev) strobe(s byte) {
	d.tx([]byte{s}, nil)
}
