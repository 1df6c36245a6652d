// Package stub simulates a FIFO transceiver for host-side development and
// testing. It applies hardware whitening and CRC when the engine asks for
// them and plays the air side of a packet through RunTx and RunRx.
package stub

import (
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
	"github.com/ystepanoff/m2radio/transport"
)

var (
	ErrNotTransmitting = errors.New("stub: transceiver is not transmitting")
	ErrNotReceiving    = errors.New("stub: transceiver is not receiving")
	ErrStalled         = errors.New("stub: packet stalled")
)

const maxSteps = 1 << 14

type state uint8

const (
	stateSleep state = iota
	stateIdle
	stateTx
	stateRx
)

// Config describes the simulated hardware.
type Config struct {
	Capabilities codec.Capabilities
	// FIFOSize defaults to protocol.FIFOSize.
	FIFOSize int
	// NoiseFloor is the RSSI reported once the scripted values run out.
	NoiseFloor int16
}

// Driver implements transport.RadioDriver in memory.
type Driver struct {
	mu  sync.Mutex
	cfg Config

	state state
	mode  transport.PacketMode

	txFIFO  []byte
	txPlain []byte
	sent    int
	txEnd   int
	packets [][]byte

	rxFIFO    []byte
	pulled    int
	rxEnd     int
	crcOK     bool
	rxTimeout time.Duration

	rssi         []int16
	regs         transport.ChannelRegisters
	txPower      uint8
	calibrations int

	logger *zap.SugaredLogger
}

func New(cfg Config) *Driver {
	if cfg.FIFOSize <= 0 {
		cfg.FIFOSize = protocol.FIFOSize
	}
	if cfg.NoiseFloor == 0 {
		cfg.NoiseFloor = -110
	}
	return &Driver{cfg: cfg, txEnd: -1, rxEnd: -1, logger: zap.NewNop().Sugar()}
}

func (d *Driver) SetLogger(logger *zap.SugaredLogger) { d.logger = logger }

func (d *Driver) Capabilities() codec.Capabilities { return d.cfg.Capabilities }

func (d *Driver) TxOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.txFIFO) < d.cfg.FIFOSize
}

func (d *Driver) TxOpenWide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.txFIFO)+4 <= d.cfg.FIFOSize
}

func (d *Driver) PutByte(b byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txFIFO = append(d.txFIFO, b)
}

func (d *Driver) PutFourBytes(b [4]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txFIFO = append(d.txFIFO, b[:]...)
}

func (d *Driver) RxOpen() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rxFIFO) > 0
}

func (d *Driver) RxOpenWide() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.rxFIFO) >= 4
}

func (d *Driver) GetByte() byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rxFIFO) == 0 {
		return 0
	}
	b := d.rxFIFO[0]
	d.rxFIFO = d.rxFIFO[1:]
	d.pulled++
	return b
}

func (d *Driver) GetFourBytes() (b [4]byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := copy(b[:], d.rxFIFO)
	d.rxFIFO = d.rxFIFO[n:]
	d.pulled += n
	return b
}

func (d *Driver) FlushTx() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txFIFO, d.txPlain = nil, nil
}

func (d *Driver) FlushRx() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rxFIFO = nil
}

func (d *Driver) Idle() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = stateIdle
}

func (d *Driver) Sleep() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = stateSleep
}

func (d *Driver) SetChannelRegisters(regs transport.ChannelRegisters) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.regs = regs
	if regs.Recalibrate {
		d.calibrations++
	}
	return nil
}

func (d *Driver) SetTxPower(code uint8) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.txPower = code
	return nil
}

func (d *Driver) Calibrate() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.calibrations++
}

func (d *Driver) ReadRSSI() int16 {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.rssi) == 0 {
		return d.cfg.NoiseFloor
	}
	v := d.rssi[0]
	d.rssi = d.rssi[1:]
	return v
}

func (d *Driver) CRCOK() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.crcOK
}

func (d *Driver) BeginTx(mode transport.PacketMode) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = stateTx
	d.mode = mode
	d.txPlain, d.sent = nil, 0
	d.txEnd = -1
	if mode.Length > 0 {
		d.txEnd = mode.Length
	}
}

func (d *Driver) BeginRx(mode transport.PacketMode, timeout time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = stateRx
	d.mode = mode
	d.rxFIFO, d.pulled = nil, 0
	d.rxTimeout = timeout
	d.crcOK = false
	d.rxEnd = -1
	if mode.Length > 0 {
		d.rxEnd = mode.Length
	}
}

func (d *Driver) SetFixedLength(n int) {
	d.mu.Lock()
	defer d.mu.Unlock()
	switch d.state {
	case stateTx:
		d.txEnd = d.sent + len(d.txFIFO) + n
	case stateRx:
		d.rxEnd = d.pulled + n
	}
}

func (d *Driver) Abort() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.state = stateIdle
	d.txEnd, d.rxEnd = -1, -1
}

// ScriptRSSI queues values for the next ReadRSSI calls.
func (d *Driver) ScriptRSSI(values ...int16) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.rssi = append(d.rssi, values...)
}

// Registers returns the last programmed channel.
func (d *Driver) Registers() transport.ChannelRegisters {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.regs
}

func (d *Driver) TxPower() uint8 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.txPower
}

func (d *Driver) Calibrations() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calibrations
}

// RxTimeout is the timeout of the last BeginRx.
func (d *Driver) RxTimeout() time.Duration {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.rxTimeout
}

// Packets returns the air bytes of every completed transmission.
func (d *Driver) Packets() [][]byte {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][]byte, len(d.packets))
	for i, p := range d.packets {
		out[i] = append([]byte(nil), p...)
	}
	return out
}

// air applies the hardware packet handler to the bytes the engine wrote.
func (d *Driver) air(plain []byte) []byte {
	out := append([]byte(nil), plain...)
	if d.mode.HardwareCRC {
		out = codec.AppendCRC16(out)
	}
	if d.mode.HardwarePN9 {
		out = codec.Whiten(out)
	}
	return out
}

// unair undoes the hardware packet handler on received air bytes.
func (d *Driver) unair(air []byte) []byte {
	out := append([]byte(nil), air...)
	if d.mode.HardwarePN9 {
		// whitening is its own inverse
		out = codec.Whiten(out)
	}
	if d.mode.HardwareCRC {
		d.crcOK = codec.VerifyCRC16(out)
		if len(out) >= protocol.CRCSize {
			out = out[:len(out)-protocol.CRCSize]
		}
	}
	return out
}

func (d *Driver) step(chunk int) (done bool, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateTx {
		return false, ErrNotTransmitting
	}
	n := chunk
	if n > len(d.txFIFO) {
		n = len(d.txFIFO)
	}
	if d.txEnd >= 0 && d.sent+n > d.txEnd {
		n = d.txEnd - d.sent
	}
	d.txPlain = append(d.txPlain, d.txFIFO[:n]...)
	d.txFIFO = d.txFIFO[n:]
	d.sent += n
	if d.txEnd < 0 || d.sent < d.txEnd {
		return false, nil
	}
	d.packets = append(d.packets, d.air(d.txPlain))
	d.txPlain = nil
	d.state = stateIdle
	return true, nil
}

// RunTx plays the transceiver side of the transmission in progress. Each
// step sends up to chunk bytes from the FIFO and raises the interrupt the
// engine expects. It returns the air bytes of the packet.
func (d *Driver) RunTx(h transport.InterruptHandler, chunk int) ([]byte, error) {
	if chunk <= 0 {
		chunk = 1
	}
	for i := 0; i < maxSteps; i++ {
		done, err := d.step(chunk)
		if err != nil {
			return nil, err
		}
		if done {
			h.OnTxDone()
			d.mu.Lock()
			p := append([]byte(nil), d.packets[len(d.packets)-1]...)
			d.mu.Unlock()
			return p, nil
		}
		h.OnTxThreshold()
	}
	return nil, ErrStalled
}

// feed moves up to chunk bytes of payload into the RX FIFO. It reports
// whether the packet is over from the transceiver's point of view.
func (d *Driver) feed(payload []byte, delivered *int, chunk int) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.state != stateRx {
		return false, ErrNotReceiving
	}
	n := chunk
	if room := d.cfg.FIFOSize - len(d.rxFIFO); n > room {
		n = room
	}
	if left := len(payload) - *delivered; n > left {
		n = left
	}
	if d.rxEnd >= 0 {
		if left := d.rxEnd - d.pulled - len(d.rxFIFO); n > left {
			n = left
		}
	}
	if n < 0 {
		n = 0
	}
	d.rxFIFO = append(d.rxFIFO, payload[*delivered:*delivered+n]...)
	*delivered += n
	if *delivered == len(payload) {
		return true, nil
	}
	return d.rxEnd >= 0 && d.pulled+len(d.rxFIFO) >= d.rxEnd, nil
}

// RunRx delivers air to the listening engine: a sync word first, then the
// packet in chunks, ending with the end-of-packet interrupt unless the
// engine completes on its own.
func (d *Driver) RunRx(h transport.InterruptHandler, air []byte, chunk int) error {
	if chunk <= 0 {
		chunk = 1
	}
	d.mu.Lock()
	if d.state != stateRx {
		d.mu.Unlock()
		return ErrNotReceiving
	}
	payload := d.unair(air)
	d.mu.Unlock()

	h.OnSync()
	delivered := 0
	for i := 0; i < maxSteps; i++ {
		ended, err := d.feed(payload, &delivered, chunk)
		if err != nil {
			// the engine finished and put the transceiver to sleep
			return nil
		}
		if ended {
			h.OnRxDone()
			return nil
		}
		h.OnRxThreshold()
	}
	return ErrStalled
}

// Expire fires the receive timer.
func (d *Driver) Expire(h transport.InterruptHandler) {
	d.mu.Lock()
	rx := d.state == stateRx
	d.mu.Unlock()
	if rx {
		h.OnRxTimeout()
	}
}
