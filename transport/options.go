package transport

import (
	"time"

	"github.com/ystepanoff/m2radio/protocol"
)

// Options tune the engine. Zero fields fall back to DefaultOptions.
type Options struct {
	// CSMAAttempts bounds the CCA samples of one TX before CcaFail.
	CSMAAttempts int
	// RecalibrateEvery recalibrates the oscillator on every Nth CCA retry.
	// A negative value disables it.
	RecalibrateEvery int
	// MinRxTimeout is the floor applied to every receive timeout.
	MinRxTimeout time.Duration
	// PreloadBytes is the slice written to the FIFO before TX starts.
	PreloadBytes int
	// FixedLengthThreshold is the remainder at which RX switches the
	// transceiver to fixed-length mode.
	FixedLengthThreshold int
}

func DefaultOptions() Options {
	return Options{
		CSMAAttempts:         8,
		RecalibrateEvery:     4,
		MinRxTimeout:         protocol.MinRxTimeout,
		PreloadBytes:         4,
		FixedLengthThreshold: 8,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.CSMAAttempts <= 0 {
		o.CSMAAttempts = d.CSMAAttempts
	}
	switch {
	case o.RecalibrateEvery == 0:
		o.RecalibrateEvery = d.RecalibrateEvery
	case o.RecalibrateEvery < 0:
		o.RecalibrateEvery = 0
	}
	if o.MinRxTimeout <= 0 {
		o.MinRxTimeout = d.MinRxTimeout
	}
	if o.PreloadBytes < 4 {
		o.PreloadBytes = d.PreloadBytes
	}
	if o.FixedLengthThreshold <= 0 {
		o.FixedLengthThreshold = d.FixedLengthThreshold
	}
	return o
}

// TxOptions describe one transmission.
type TxOptions struct {
	// Channels is tried in order; the first resolvable id is used.
	Channels []protocol.ChannelID
	// NoCSMA skips clear-channel assessment.
	NoCSMA bool
	// Background sends a fixed-size background frame.
	Background bool
	// Flood repeats the packet until StopFlood.
	Flood bool
}

// RxOptions describe one reception.
type RxOptions struct {
	Channel protocol.ChannelID
	// Timeout bounds the wait for a sync word; it never drops below the
	// engine's MinRxTimeout.
	Timeout    time.Duration
	Background bool
	// MultiFrame announces that the packet may span several frames.
	MultiFrame bool
	// RejectWeakLinks ends reception with a Link error when the link-loss
	// filter rejects the packet.
	RejectWeakLinks bool
	// OnCommit runs when a sync word commits the engine to a reception.
	OnCommit func()
}
