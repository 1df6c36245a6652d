package transport

import (
	"context"
	"errors"
	"fmt"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
)

type rxState uint8

const (
	rxIdle rxState = iota
	rxListen
	rxAuto
	rxPaging
	rxMultiFrame
)

var errNoRx = errors.New("no previous reception to re-enter")

// RxInit lends q to the engine and starts listening on opts.Channel. A
// channel that does not resolve reports ErrCodeBadChannel through the
// callback and is returned as well.
func (r *RadioContext) RxInit(q *protocol.Queue, opts RxOptions) error {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeIdle {
		return protocol.ErrBusy
	}
	return r.startRx(q, opts)
}

// ReenterRx restarts the last reception with the same queue and options.
func (r *RadioContext) ReenterRx() error {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeIdle {
		return protocol.ErrBusy
	}
	if r.rxQueue == nil {
		return errNoRx
	}
	return r.startRx(r.rxQueue, r.rxOpts)
}

func (r *RadioContext) startRx(q *protocol.Queue, opts RxOptions) error {
	if q == nil {
		return protocol.ErrInvalidPayload
	}
	if _, err := r.channels.Resolve(opts.Channel); err != nil {
		r.terminate(int32(protocol.ErrCodeBadChannel), 0)
		return err
	}
	if err := r.tune(); err != nil {
		r.terminate(int32(protocol.ErrCodeGeneric), 0)
		return err
	}
	p, _ := r.channels.Active()
	s := codec.SelectStrategy(r.driver.Capabilities(), p.FEC(), opts.MultiFrame)

	r.rxQueue, r.rxOpts = q, opts
	r.q = q
	r.codec.NewRxPacket(s, q, opts.Background)
	r.codec.NewRxFrame()

	timeout := opts.Timeout
	if timeout < r.opts.MinRxTimeout {
		timeout = r.opts.MinRxTimeout
	}
	mode := r.packetMode(s, opts.Background)
	if opts.Background {
		mode.Length = r.codec.RemainingBytes()
	}
	r.fixedLen = opts.Background
	r.link = protocol.LinkInfo{}
	r.enter(ModeListening)
	r.rx = rxListen
	r.driver.BeginRx(mode, timeout)
	r.logger.Debugw("rx started", "channel", p.ID, "strategy", s, "timeout", timeout)
	return nil
}

// OnSync handles sync-word detection: the engine commits to the reception.
func (r *RadioContext) OnSync() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeListening {
		return
	}
	r.enter(ModeReceivingData)
	r.lastRSSI = r.driver.ReadRSSI()
	if r.rxOpts.Background {
		r.rx = rxAuto
	} else {
		r.rx = rxPaging
	}
	if f := r.rxOpts.OnCommit; f != nil {
		r.pending = append(r.pending, f)
	}
}

// OnRxThreshold drains the RX FIFO once it fills past its threshold.
func (r *RadioContext) OnRxThreshold() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeReceivingData {
		return
	}
	r.drainRx()
}

// OnRxDone handles the end-of-packet interrupt. A packet the transceiver
// ends before its declared length is reported with status -1.
func (r *RadioContext) OnRxDone() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeReceivingData {
		return
	}
	r.drainRx()
	if r.mode == ModeReceivingData {
		r.logger.Infow("packet ended early", "remaining", r.codec.RemainingBytes())
		r.driver.FlushRx()
		r.terminate(0, -1)
	}
}

// OnRxTimeout handles the sync-wait timer. A reception already committed by
// a sync word runs to completion.
func (r *RadioContext) OnRxTimeout() {
	r.mu.Lock()
	defer r.unlock()
	if r.mode == ModeReceivingData {
		r.logger.Debugw("rx timeout after sync ignored", "remaining", r.codec.RemainingBytes())
		return
	}
	if r.mode != ModeListening {
		return
	}
	r.driver.Abort()
	r.driver.FlushRx()
	r.terminate(int32(protocol.ErrCodeTimeout), 0)
}

func (r *RadioContext) drainRx() {
	for {
		r.codec.Decode(r.driver)
		if rem := r.codec.RemainingBytes(); rem > 0 {
			r.maybeFixLength(rem)
			return
		}
		status := int32(r.codec.Status(r.driver.CRCOK()))
		if r.codec.RemainingFrames() && status >= 0 {
			r.rx = rxMultiFrame
			r.notify(1, status)
			r.codec.NewRxFrame()
			continue
		}
		r.finishRx(status)
		return
	}
}

// maybeFixLength switches the transceiver to fixed-length mode once the end
// of the last frame is close. It happens at most once per packet.
func (r *RadioContext) maybeFixLength(rem int) {
	if r.fixedLen || r.rx == rxAuto {
		return
	}
	if !r.codec.LengthKnown() || !r.codec.HeaderKnown() || r.codec.RemainingFrames() {
		return
	}
	if rem > r.opts.FixedLengthThreshold {
		return
	}
	r.driver.SetFixedLength(rem)
	r.fixedLen = true
}

func (r *RadioContext) finishRx(status int32) {
	info := protocol.LinkInfo{
		RSSI:        r.lastRSSI,
		Corrections: r.codec.Corrections(),
		Accepted:    true,
	}
	if lr, ok := r.driver.(LinkStatusReader); ok {
		hw := lr.ReadLinkStatus()
		info.PQI, info.SQI, info.LQI, info.AGC = hw.PQI, hw.SQI, hw.LQI, hw.AGC
	}
	if !r.rxOpts.Background && status >= 0 {
		if frame := r.codec.Frame(); len(frame) > protocol.TxEIRPOffset {
			p, _ := r.channels.Active()
			txPower := protocol.DecodeEIRP(frame[protocol.TxEIRPOffset])
			info.LinkLoss = protocol.LinkLoss(txPower, int(info.RSSI))
			info.Accepted = protocol.AcceptLink(int(info.RSSI), txPower, int(p.LinkQuality))
		}
	}
	r.link = info

	if !info.Accepted && r.rxOpts.RejectWeakLinks {
		r.logger.Infow("packet rejected by link filter", "rssi", info.RSSI, "linkLoss", info.LinkLoss)
		r.terminate(int32(protocol.ErrCodeLink), status)
		return
	}
	r.terminate(0, status)
}

// Receive listens for one packet and blocks until it completes. The packet
// bytes are left in q. A packet that fails its integrity check returns
// protocol.ErrIntegrity; cancelling ctx kills the reception.
func (r *RadioContext) Receive(ctx context.Context, q *protocol.Queue, opts RxOptions) (protocol.LinkInfo, error) {
	if err := r.RxInit(q, opts); err != nil {
		return protocol.LinkInfo{}, err
	}
	if err := r.WaitIdle(ctx); err != nil {
		r.Kill()
		return protocol.LinkInfo{}, err
	}
	code, status := r.Result()
	info := r.LinkInfo()
	if err := protocol.ErrorCode(code).Err(); err != nil {
		return info, err
	}
	if status < 0 {
		return info, fmt.Errorf("status %d: %w", status, protocol.ErrIntegrity)
	}
	return info, nil
}
