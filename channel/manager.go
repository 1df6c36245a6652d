// Package channel resolves logical channel ids against the channel
// configuration table and tracks the active channel.
package channel

import (
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ystepanoff/m2radio/protocol"
)

// Table record layout, 8 bytes per record.
const (
	RecordSize = 8

	recSpectrum     = 0
	recAutoscale    = 1
	recTxPower      = 2
	recLinkQuality  = 3
	recCSThreshold  = 4
	recCCAThreshold = 5
)

// Params are the transceiver parameters of one resolved channel.
type Params struct {
	ID           protocol.ChannelID
	TxPower      uint8 // EIRP code
	LinkQuality  uint8 // link-loss threshold, dB
	CSThreshold  uint8 // raw RSSI code
	CCAThreshold uint8 // raw RSSI code
}

func (p Params) FEC() bool { return p.ID.FEC() }

func (p Params) Center() uint8 { return p.ID.Center() }

func (p Params) HighRate() bool { return p.ID.HighRate() }

func (p Params) GuardTime() time.Duration { return p.ID.GuardTime() }

// CCALevel is the CCA threshold in dBm.
func (p Params) CCALevel() int16 { return protocol.DecodeRSSIThreshold(p.CCAThreshold) }

// CSLevel is the carrier-sense threshold in dBm.
func (p Params) CSLevel() int16 { return protocol.DecodeRSSIThreshold(p.CSThreshold) }

// Change describes what a successful Resolve altered.
type Change struct {
	Power       bool // TX power table must be reprogrammed
	Recalibrate bool // center frequency moved
}

// Manager owns the active channel.
type Manager struct {
	table  []byte
	active Params
	valid  bool

	powerPending bool
	calPending   bool

	logger *zap.SugaredLogger
}

// NewManager takes the raw table; a trailing partial record is ignored.
func NewManager(table []byte) *Manager {
	n := len(table) / RecordSize * RecordSize
	t := make([]byte, n)
	copy(t, table[:n])
	return &Manager{table: t, logger: zap.NewNop().Sugar()}
}

func (m *Manager) SetLogger(logger *zap.SugaredLogger) { m.logger = logger }

// Records is the number of entries in the table.
func (m *Manager) Records() int { return len(m.table) / RecordSize }

// Active returns the committed channel, if any.
func (m *Manager) Active() (Params, bool) { return m.active, m.valid }

func (m *Manager) lookup(id protocol.ChannelID) (Params, bool) {
	for off := 0; off+RecordSize <= len(m.table); off += RecordSize {
		rec := m.table[off : off+RecordSize]
		if rec[recSpectrum] != id.Spectrum() {
			continue
		}
		return Params{
			ID:           id,
			TxPower:      rec[recTxPower],
			LinkQuality:  rec[recLinkQuality],
			CSThreshold:  rec[recCSThreshold],
			CCAThreshold: rec[recCCAThreshold],
		}, true
	}
	return Params{}, false
}

func (m *Manager) stage(id protocol.ChannelID) (Params, error) {
	if id.IsWildcard() {
		if !m.valid {
			return Params{}, fmt.Errorf("wildcard with no active channel: %w", protocol.ErrBadChannel)
		}
		p := m.active
		p.ID = m.active.ID.WithFEC(id.FEC())
		return p, nil
	}
	p, ok := m.lookup(id)
	if !ok {
		return Params{}, fmt.Errorf("%v: %w", id, protocol.ErrBadChannel)
	}
	return p, nil
}

// Resolve makes id the active channel. Resolving the active id again is a
// no-op. The active channel is left untouched on failure.
func (m *Manager) Resolve(id protocol.ChannelID) (Change, error) {
	if m.valid && id == m.active.ID {
		return Change{}, nil
	}
	p, err := m.stage(id)
	if err != nil {
		return Change{}, err
	}
	ch := Change{
		Power:       !m.valid || p.TxPower != m.active.TxPower,
		Recalibrate: !m.valid || p.Center() != m.active.Center(),
	}
	m.active, m.valid = p, true
	m.powerPending = m.powerPending || ch.Power
	m.calPending = m.calPending || ch.Recalibrate
	m.logger.Debugw("channel resolved", "channel", p.ID, "txPower", p.TxPower,
		"power", ch.Power, "recalibrate", ch.Recalibrate)
	return ch, nil
}

// ResolveAny resolves the first usable id of ids and returns its index.
func (m *Manager) ResolveAny(ids []protocol.ChannelID) (int, Change, bool) {
	for i, id := range ids {
		if ch, err := m.Resolve(id); err == nil {
			return i, ch, true
		}
	}
	return -1, Change{}, false
}

// TakePowerUpdate reports and clears a pending TX power reprogram.
func (m *Manager) TakePowerUpdate() bool {
	p := m.powerPending
	m.powerPending = false
	return p
}

// TakeCalibration reports and clears a pending recalibration.
func (m *Manager) TakeCalibration() bool {
	c := m.calPending
	m.calPending = false
	return c
}

// Invalidate forgets the active channel so the next Resolve reprograms
// everything, e.g. after the transceiver was reset.
func (m *Manager) Invalidate() {
	m.valid = false
}
