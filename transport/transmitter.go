package transport

import (
	"context"
	"time"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
)

type txState uint8

const (
	txIdle txState = iota
	txInit
	txData
	txDone
)

// startTx binds the codec to the lent queue, preloads the FIFO and starts
// the transceiver. Failures end the operation with ErrCodeGeneric.
func (r *RadioContext) startTx() error {
	r.enter(ModeTransmittingData)
	r.tx = txInit

	p, _ := r.channels.Active()
	bg := r.txOpts.Background
	chained := r.txOpts.Flood
	if !bg {
		if ctl, err := r.q.Peek(protocol.ControlOffset); err == nil && ctl&protocol.ControlContinue != 0 {
			chained = true
		}
	}
	s := codec.SelectStrategy(r.driver.Capabilities(), p.FEC(), chained)
	if err := r.codec.NewTxPacket(s, r.q, bg); err != nil {
		return r.failTx(err)
	}
	if err := r.codec.NewTxFrame(); err != nil {
		return r.failTx(err)
	}
	if r.channels.TakePowerUpdate() {
		if err := r.driver.SetTxPower(p.TxPower); err != nil {
			return r.failTx(err)
		}
	}

	mode := r.packetMode(s, bg)
	if !r.txOpts.Flood {
		mode.Length = r.codec.PacketLength()
	}
	r.codec.Encode(r.driver, r.opts.PreloadBytes)
	r.driver.BeginTx(mode)
	r.tx = txData
	r.logger.Debugw("tx started",
		"channel", p.ID,
		"strategy", s,
		"length", mode.Length,
		"flood", r.txOpts.Flood,
	)
	return nil
}

func (r *RadioContext) failTx(err error) error {
	r.logger.Warnw("tx aborted", "error", err)
	r.driver.FlushTx()
	r.terminate(int32(protocol.ErrCodeGeneric), 0)
	return err
}

// OnTxThreshold refills the TX FIFO. The interrupt handler calls it whenever
// the FIFO drains below its threshold.
func (r *RadioContext) OnTxThreshold() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeTransmittingData || r.tx != txData {
		return
	}
	r.fillTx()
}

func (r *RadioContext) fillTx() {
	for {
		r.codec.Encode(r.driver, 0)
		if r.codec.RemainingBytes() > 0 {
			return
		}
		switch {
		case r.codec.RemainingFrames():
			r.notify(int32(r.codec.FramesLeft()), 0)
			if err := r.codec.NewTxFrame(); err != nil {
				_ = r.failTx(err)
				return
			}
		case r.txOpts.Flood && !r.floodStop:
			r.notify(1, 0)
			r.q.Rewind()
			if err := r.codec.NewTxPacket(r.codec.Strategy(), r.q, r.txOpts.Background); err != nil {
				_ = r.failTx(err)
				return
			}
			if err := r.codec.NewTxFrame(); err != nil {
				_ = r.failTx(err)
				return
			}
		default:
			if r.txOpts.Flood {
				// let the transceiver end the packet after the bytes queued so far
				r.driver.SetFixedLength(0)
			}
			r.tx = txDone
			return
		}
	}
}

// OnTxDone handles the end-of-packet interrupt.
func (r *RadioContext) OnTxDone() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeTransmittingData {
		return
	}
	if r.tx != txDone {
		r.logger.Warnw("tx ended before the packet was written", "remaining", r.codec.RemainingBytes())
		r.driver.FlushTx()
		r.terminate(int32(protocol.ErrCodeGeneric), 0)
		return
	}
	r.terminate(0, 0)
}

// StopFlood ends a flood after the packet currently on air.
func (r *RadioContext) StopFlood() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.floodStop = true
}

// Send transmits the packet in q and blocks until it is on air or fails.
// Backoff waits honour ctx; cancelling ctx kills the transmission.
func (r *RadioContext) Send(ctx context.Context, q *protocol.Queue, opts TxOptions) error {
	if err := r.TxInit(q, opts); err != nil {
		return err
	}
	for {
		res, err := r.TxCSMA()
		if err != nil {
			return err
		}
		if res.State == CSMAGranted {
			break
		}
		t := time.NewTimer(res.Backoff)
		select {
		case <-ctx.Done():
			t.Stop()
			r.Kill()
			return ctx.Err()
		case <-t.C:
		}
	}
	if err := r.WaitIdle(ctx); err != nil {
		r.Kill()
		return err
	}
	code, _ := r.Result()
	return protocol.ErrorCode(code).Err()
}
