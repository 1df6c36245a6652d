// Package m2radio provides a façade to the DASH7 Mode 2 channel-access engine.
package m2radio

import (
	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
	"github.com/ystepanoff/m2radio/transport"
)

// Constructors live in separate files:
// - constructors_host.go - simulated transceiver for development and testing
// - constructors_cc1101.go - CC1101 over SPI

// Re-export types so most callers need only this package.
type (
	Radio        = transport.RadioContext
	Options      = transport.Options
	TxOptions    = transport.TxOptions
	RxOptions    = transport.RxOptions
	Callback     = transport.Callback
	Mode         = transport.Mode
	ChannelID    = protocol.ChannelID
	Frame        = protocol.Frame
	Queue        = protocol.Queue
	LinkInfo     = protocol.LinkInfo
	Capabilities = codec.Capabilities
)

// Errors reported by radio operations.
var (
	ErrKill           = protocol.ErrKill
	ErrCCAFail        = protocol.ErrCCAFail
	ErrBadChannel     = protocol.ErrBadChannel
	ErrTimeout        = protocol.ErrTimeout
	ErrLink           = protocol.ErrLink
	ErrGeneric        = protocol.ErrGeneric
	ErrBusy           = protocol.ErrBusy
	ErrInvalidPayload = protocol.ErrInvalidPayload
	ErrFrameLength    = protocol.ErrFrameLength
	ErrIntegrity      = protocol.ErrIntegrity
)

const (
	ModeIdle             = transport.ModeIdle
	ModeListening        = transport.ModeListening
	ModeCSMA             = transport.ModeCSMA
	ModeReceivingData    = transport.ModeReceivingData
	ModeTransmittingData = transport.ModeTransmittingData

	WildcardChannel = protocol.WildcardChannel
)

// NewQueue returns an empty queue of the given capacity.
func NewQueue(capacity int) *Queue { return protocol.NewQueue(capacity) }

// QueueFrames encodes frames into a fresh queue ready for transmission.
func QueueFrames(frames ...*Frame) (*Queue, error) {
	data, err := protocol.EncodePacket(frames)
	if err != nil {
		return nil, err
	}
	q := protocol.NewQueue(len(data))
	if _, err := q.Write(data); err != nil {
		return nil, err
	}
	return q, nil
}

// Frames decodes the frames received into q. The queue must hold the CRC of
// each frame, which is the case for every software coding strategy.
func Frames(q *Queue) ([]*Frame, error) {
	return protocol.DecodePacket(q.Bytes())
}
