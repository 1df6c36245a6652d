package transport

import (
	"time"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
)

// PacketMode programs the transceiver's packet handler for one operation.
type PacketMode struct {
	// Length is the number of bytes that pass through the FIFO before the
	// transceiver ends the packet by itself. 0 leaves the length open; the
	// engine closes it later with SetFixedLength.
	Length      int
	HardwareCRC bool
	HardwarePN9 bool
	Background  bool
}

// ChannelRegisters carries what the transceiver needs to tune a channel.
type ChannelRegisters struct {
	ID          protocol.ChannelID
	Recalibrate bool
}

// RadioDriver is the register-level transceiver abstraction the engine runs on.
// The engine never touches registers itself.
type RadioDriver interface {
	codec.FIFOWriter
	codec.FIFOReader

	Capabilities() codec.Capabilities

	FlushTx()
	FlushRx()
	Idle()
	Sleep()
	SetChannelRegisters(regs ChannelRegisters) error
	SetTxPower(code uint8) error
	Calibrate()
	// ReadRSSI returns the current signal strength in dBm.
	ReadRSSI() int16
	// CRCOK is the hardware CRC verdict of the last received frame.
	CRCOK() bool

	BeginTx(mode PacketMode)
	BeginRx(mode PacketMode, timeout time.Duration)
	// SetFixedLength ends the open-length packet after n more bytes pass the
	// FIFO. On TX, n = 0 ends it once the FIFO drains.
	SetFixedLength(n int)
	// Abort stops any operation and clears pending interrupts.
	Abort()
}

// LinkStatusReader is implemented by drivers that report extra link metrics
// for the last received packet.
type LinkStatusReader interface {
	ReadLinkStatus() protocol.LinkInfo
}

// InterruptHandler receives the transceiver interrupts. *RadioContext
// implements it; drivers dispatch their IRQ lines to it.
type InterruptHandler interface {
	OnTxThreshold()
	OnTxDone()
	OnSync()
	OnRxThreshold()
	OnRxDone()
	OnRxTimeout()
}

var _ InterruptHandler = (*RadioContext)(nil)
