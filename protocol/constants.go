package protocol

import "time"

// Frame layout and radio constants shared by every layer.
const (
	// Foreground frame:
	//   Length (1) | TxEIRP (1) | Subnet (1) | Control (1) | Payload (0-249) | CRC16 (2, big-endian)
	// Length counts the whole frame including itself and the CRC.
	LengthOffset  = 0
	TxEIRPOffset  = 1
	SubnetOffset  = 2
	ControlOffset = 3

	FrameHeaderSize = 4
	CRCSize         = 2
	MinFrameSize    = FrameHeaderSize + CRCSize
	MaxFrameSize    = 255
	MaxPayloadSize  = MaxFrameSize - FrameHeaderSize - CRCSize

	// Background frame: Subnet (1) | ProtocolID (1) | Payload (2) | CRC16 (2). No length byte.
	BackgroundFrameSize   = 6
	BackgroundPayloadSize = 2

	// Frame control bits.
	ControlListen   = 0x80
	ControlContinue = 0x40
	ControlTypeMask = 0x0F

	// FIFO depth of the transceivers in scope.
	FIFOSize = 64

	// Guard times per data-rate class.
	GuardTimeBaseRate = 5 * time.Millisecond
	GuardTimeHighRate = 2 * time.Millisecond

	// Floor applied to every receive timeout.
	MinRxTimeout = 4 * time.Millisecond
)
