// Package transport is the Mode 2 channel-access engine: CSMA, the TX and RX
// state machines and the completion callback that reports to the upper
// layer.
//
// All state lives in a RadioContext. Its entry points run to completion
// under one lock; the transceiver interrupt handler and the upper layer call
// them from any goroutine. Callbacks run after the lock is released, so a
// callback may start the next operation.
package transport

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/ystepanoff/m2radio/channel"
	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
)

// Mode is the engine's externally visible state.
type Mode uint8

const (
	ModeIdle Mode = iota
	ModeListening
	ModeCSMA
	ModeReceivingData
	ModeTransmittingData
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeListening:
		return "listening"
	case ModeCSMA:
		return "csma"
	case ModeReceivingData:
		return "receiving"
	case ModeTransmittingData:
		return "transmitting"
	}
	return "unknown"
}

// Callback receives frame and packet completions.
//
// A negative arg1 is a terminal error code (see protocol.ErrorCode).
// arg1 == 0 marks the end of the operation; a positive arg1 is an
// intermediate frame notification. For reception arg2 is the frame status:
// 0 clean, positive for FEC-corrected bit count, -1 unusable.
type Callback func(arg1, arg2 int32)

// RadioContext is one transceiver's engine instance.
type RadioContext struct {
	mu sync.Mutex

	driver   RadioDriver
	channels *channel.Manager
	codec    codec.Codec
	opts     Options
	logger   *zap.SugaredLogger
	callback Callback

	mode   Mode
	csma   csmaState
	tx     txState
	rx     rxState
	result [2]int32

	q         *protocol.Queue
	txOpts    TxOptions
	rxQueue   *protocol.Queue
	rxOpts    RxOptions
	floodStop bool
	fixedLen  bool

	lastRSSI int16
	link     protocol.LinkInfo

	pending []func()
	idle    chan struct{}
}

// New builds an idle engine for d using the channel configuration table.
func New(d RadioDriver, table []byte, opts Options) *RadioContext {
	idle := make(chan struct{})
	close(idle)
	logger := zap.NewNop().Sugar()
	channels := channel.NewManager(table)
	channels.SetLogger(logger)
	return &RadioContext{
		driver:   d,
		channels: channels,
		opts:     opts.withDefaults(),
		logger:   logger,
		idle:     idle,
	}
}

func (r *RadioContext) SetLogger(logger *zap.SugaredLogger) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.logger = logger
	r.channels.SetLogger(logger)
}

// SetCallback installs cb. It is only accepted while the engine is idle.
func (r *RadioContext) SetCallback(cb Callback) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.mode != ModeIdle {
		return protocol.ErrBusy
	}
	r.callback = cb
	return nil
}

func (r *RadioContext) Mode() Mode {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.mode
}

// LastRSSI is the RSSI sampled at the last sync word or CCA, in dBm.
func (r *RadioContext) LastRSSI() int16 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.lastRSSI
}

// LastLinkLoss is the link loss of the last received foreground packet, in dB.
func (r *RadioContext) LastLinkLoss() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link.LinkLoss
}

// LinkInfo describes the last completed reception.
func (r *RadioContext) LinkInfo() protocol.LinkInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.link
}

// Result returns the callback arguments of the last completed operation.
func (r *RadioContext) Result() (int32, int32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.result[0], r.result[1]
}

// Channel returns the active channel, if any.
func (r *RadioContext) Channel() (channel.Params, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.channels.Active()
}

// Kill aborts whatever is in progress and reports ErrCodeKill. It is safe in
// every mode, including idle.
func (r *RadioContext) Kill() {
	r.mu.Lock()
	defer r.unlock()
	r.logger.Debugw("kill", "mode", r.mode)
	r.driver.Abort()
	r.driver.FlushTx()
	r.driver.FlushRx()
	r.terminate(int32(protocol.ErrCodeKill), 0)
}

// WaitIdle blocks until the engine returns to idle or ctx ends.
func (r *RadioContext) WaitIdle(ctx context.Context) error {
	r.mu.Lock()
	idle := r.idle
	r.mu.Unlock()
	select {
	case <-idle:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// unlock releases the lock and then runs the callbacks queued meanwhile.
func (r *RadioContext) unlock() {
	pending := r.pending
	r.pending = nil
	r.mu.Unlock()
	for _, f := range pending {
		f()
	}
}

func (r *RadioContext) enter(m Mode) {
	if r.mode == ModeIdle && m != ModeIdle {
		r.idle = make(chan struct{})
	}
	r.mode = m
}

func (r *RadioContext) notify(arg1, arg2 int32) {
	cb := r.callback
	if cb == nil {
		return
	}
	r.pending = append(r.pending, func() { cb(arg1, arg2) })
}

// terminate returns the engine to idle and reports the outcome.
func (r *RadioContext) terminate(arg1, arg2 int32) {
	prev := r.mode
	r.driver.Sleep()
	r.mode = ModeIdle
	r.csma = csmaState{}
	r.tx, r.rx = txIdle, rxIdle
	r.floodStop, r.fixedLen = false, false
	r.result = [2]int32{arg1, arg2}
	if prev != ModeIdle {
		close(r.idle)
	}
	if arg1 < 0 {
		r.logger.Debugw("operation ended", "mode", prev, "error", protocol.ErrorCode(arg1).Err())
	}
	r.notify(arg1, arg2)
}

// tune programs the active channel into the transceiver.
func (r *RadioContext) tune() error {
	p, ok := r.channels.Active()
	if !ok {
		return protocol.ErrBadChannel
	}
	return r.driver.SetChannelRegisters(ChannelRegisters{
		ID:          p.ID,
		Recalibrate: r.channels.TakeCalibration(),
	})
}

func (r *RadioContext) packetMode(s codec.Strategy, background bool) PacketMode {
	return PacketMode{
		HardwareCRC: s.HardwareCRC(),
		HardwarePN9: s.HardwarePN9(),
		Background:  background,
	}
}
