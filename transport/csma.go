package transport

import (
	"errors"
	"time"

	"github.com/ystepanoff/m2radio/protocol"
)

// CSMAState is the progress of channel access for one transmission.
type CSMAState uint8

const (
	CSMAInit CSMAState = iota
	CSMACCA1
	CSMAGranted
)

func (s CSMAState) String() string {
	switch s {
	case CSMAInit:
		return "init"
	case CSMACCA1:
		return "cca1"
	case CSMAGranted:
		return "granted"
	}
	return "unknown"
}

// CSMAResult is the outcome of one TxCSMA step. While State is CSMACCA1 the
// caller waits Backoff and calls TxCSMA again.
type CSMAResult struct {
	State   CSMAState
	Backoff time.Duration
}

type csmaState struct {
	state    CSMAState
	attempts int
}

var errNoTx = errors.New("no transmission pending")

// TxInit lends q to the engine and prepares channel access. q holds one
// packet of encoded frames (or one background frame) at its read cursor and
// stays owned by the engine until the transmission completes.
func (r *RadioContext) TxInit(q *protocol.Queue, opts TxOptions) error {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeIdle {
		return protocol.ErrBusy
	}
	if q == nil {
		return protocol.ErrInvalidPayload
	}
	r.q = q
	r.txOpts = opts
	r.floodStop = false
	r.csma = csmaState{state: CSMAInit}
	r.enter(ModeCSMA)
	return nil
}

// TxCSMA advances channel access by one step. Once the channel is granted
// the transmission starts and the callback reports its completion.
func (r *RadioContext) TxCSMA() (CSMAResult, error) {
	r.mu.Lock()
	defer r.unlock()
	if r.mode != ModeCSMA {
		return CSMAResult{State: r.csma.state}, errNoTx
	}

	switch r.csma.state {
	case CSMAInit:
		if _, _, ok := r.channels.ResolveAny(r.txOpts.Channels); !ok {
			r.terminate(int32(protocol.ErrCodeBadChannel), 0)
			return CSMAResult{}, protocol.ErrBadChannel
		}
		if err := r.tune(); err != nil {
			r.terminate(int32(protocol.ErrCodeGeneric), 0)
			return CSMAResult{}, err
		}
		if r.txOpts.NoCSMA {
			return r.grant()
		}
		r.csma.state = CSMACCA1
		fallthrough
	case CSMACCA1:
		p, _ := r.channels.Active()
		rssi := r.driver.ReadRSSI()
		r.lastRSSI = rssi
		if rssi <= p.CCALevel() {
			return r.grant()
		}
		r.csma.attempts++
		if r.csma.attempts >= r.opts.CSMAAttempts {
			r.logger.Infow("channel never cleared", "channel", p.ID, "attempts", r.csma.attempts, "rssi", rssi)
			r.terminate(int32(protocol.ErrCodeCCAFail), 0)
			return CSMAResult{State: CSMACCA1}, protocol.ErrCCAFail
		}
		if n := r.opts.RecalibrateEvery; n > 0 && r.csma.attempts%n == 0 {
			r.driver.Calibrate()
		}
		backoff := p.GuardTime() * time.Duration(1+r.csma.attempts)
		r.logger.Debugw("channel busy", "channel", p.ID, "rssi", rssi, "level", p.CCALevel(), "backoff", backoff)
		return CSMAResult{State: CSMACCA1, Backoff: backoff}, nil
	}
	return CSMAResult{State: r.csma.state}, nil
}

func (r *RadioContext) grant() (CSMAResult, error) {
	r.csma.state = CSMAGranted
	if err := r.startTx(); err != nil {
		return CSMAResult{State: CSMAGranted}, err
	}
	return CSMAResult{State: CSMAGranted}, nil
}
