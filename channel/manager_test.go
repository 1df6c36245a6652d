package channel

import (
	"testing"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap/zaptest"

	"github.com/ystepanoff/m2radio/protocol"
)

func record(spectrum, txPower, linkQ, cs, cca byte) []byte {
	return []byte{spectrum, 0, txPower, linkQ, cs, cca, 0, 0}
}

func TestResolveEndToEndTable(t *testing.T) {
	c := qt.New(t)
	m := NewManager(record(0x10, 80, 40, 20, 15))
	m.SetLogger(zaptest.NewLogger(t).Sugar())

	ch, err := m.Resolve(0x10)
	c.Assert(err, qt.IsNil)
	c.Assert(ch, qt.Equals, Change{Power: true, Recalibrate: true})
	p, ok := m.Active()
	c.Assert(ok, qt.IsTrue)
	c.Assert(p.TxPower, qt.Equals, uint8(80))
	c.Assert(p.LinkQuality, qt.Equals, uint8(40))
	c.Assert(p.CSThreshold, qt.Equals, uint8(20))
	c.Assert(p.CCAThreshold, qt.Equals, uint8(15))

	_, err = m.Resolve(0x20)
	c.Assert(err, qt.ErrorIs, protocol.ErrBadChannel)
	p, _ = m.Active()
	c.Assert(p.ID, qt.Equals, protocol.ChannelID(0x10))

	_, err = m.Resolve(protocol.WildcardChannel)
	c.Assert(err, qt.IsNil)
	p, _ = m.Active()
	c.Assert(p.TxPower, qt.Equals, uint8(80))
}

func TestResolveIdempotent(t *testing.T) {
	c := qt.New(t)
	m := NewManager(append(record(0x10, 80, 40, 20, 15), record(0x21, 60, 50, 30, 25)...))

	_, err := m.Resolve(0x21)
	c.Assert(err, qt.IsNil)
	c.Assert(m.TakeCalibration(), qt.IsTrue)
	c.Assert(m.TakePowerUpdate(), qt.IsTrue)

	ch, err := m.Resolve(0x21)
	c.Assert(err, qt.IsNil)
	c.Assert(ch.Recalibrate, qt.IsFalse)
	c.Assert(ch.Power, qt.IsFalse)
	c.Assert(m.TakeCalibration(), qt.IsFalse)
	c.Assert(m.TakePowerUpdate(), qt.IsFalse)
}

func TestResolveChangeFlags(t *testing.T) {
	c := qt.New(t)
	m := NewManager(append(
		append(record(0x10, 80, 40, 20, 15), record(0x11, 80, 40, 20, 15)...),
		record(0x21, 60, 40, 20, 15)...))

	_, err := m.Resolve(0x10)
	c.Assert(err, qt.IsNil)

	ch, err := m.Resolve(0x11)
	c.Assert(err, qt.IsNil)
	c.Assert(ch, qt.Equals, Change{Recalibrate: true})

	ch, err = m.Resolve(0x21)
	c.Assert(err, qt.IsNil)
	c.Assert(ch, qt.Equals, Change{Power: true})

	// FEC bit alone selects the same record and frequency
	ch, err = m.Resolve(0xA1)
	c.Assert(err, qt.IsNil)
	c.Assert(ch, qt.Equals, Change{})
	p, _ := m.Active()
	c.Assert(p.FEC(), qt.IsTrue)
}

func TestResolveWildcard(t *testing.T) {
	c := qt.New(t)
	m := NewManager(record(0x2A, 70, 40, 20, 15))

	_, err := m.Resolve(protocol.WildcardChannel)
	c.Assert(err, qt.ErrorIs, protocol.ErrBadChannel)

	_, err = m.Resolve(0x2A)
	c.Assert(err, qt.IsNil)

	ch, err := m.Resolve(0xFF)
	c.Assert(err, qt.IsNil)
	c.Assert(ch, qt.Equals, Change{})
	p, _ := m.Active()
	c.Assert(p.ID, qt.Equals, protocol.ChannelID(0xAA))

	_, err = m.Resolve(protocol.WildcardChannel)
	c.Assert(err, qt.IsNil)
	p, _ = m.Active()
	c.Assert(p.ID, qt.Equals, protocol.ChannelID(0x2A))
}

func TestResolveFirstMatchWins(t *testing.T) {
	c := qt.New(t)
	m := NewManager(append(record(0x10, 80, 40, 20, 15), record(0x10, 10, 10, 10, 10)...))
	_, err := m.Resolve(0x10)
	c.Assert(err, qt.IsNil)
	p, _ := m.Active()
	c.Assert(p.TxPower, qt.Equals, uint8(80))
}

func TestMalformedTable(t *testing.T) {
	c := qt.New(t)
	m := NewManager(append(record(0x10, 80, 40, 20, 15), 0x12, 0x00, 0x01))
	c.Assert(m.Records(), qt.Equals, 1)
	_, err := m.Resolve(0x12)
	c.Assert(err, qt.ErrorIs, protocol.ErrBadChannel)

	empty := NewManager(nil)
	_, err = empty.Resolve(0x10)
	c.Assert(err, qt.ErrorIs, protocol.ErrBadChannel)
}

func TestResolveAny(t *testing.T) {
	c := qt.New(t)
	m := NewManager(append(record(0x10, 80, 40, 20, 15), record(0x22, 60, 40, 20, 15)...))

	i, _, ok := m.ResolveAny([]protocol.ChannelID{0x30, 0x31, 0x22, 0x10})
	c.Assert(ok, qt.IsTrue)
	c.Assert(i, qt.Equals, 2)
	p, _ := m.Active()
	c.Assert(p.ID, qt.Equals, protocol.ChannelID(0x22))

	_, _, ok = m.ResolveAny([]protocol.ChannelID{0x30, 0x40})
	c.Assert(ok, qt.IsFalse)
	p, _ = m.Active()
	c.Assert(p.ID, qt.Equals, protocol.ChannelID(0x22))
}

func TestParamsLevels(t *testing.T) {
	c := qt.New(t)
	p := Params{ID: 0x20, CSThreshold: 40, CCAThreshold: 50}
	c.Assert(p.CSLevel(), qt.Equals, int16(-100))
	c.Assert(p.CCALevel(), qt.Equals, int16(-90))
	c.Assert(p.GuardTime(), qt.Equals, protocol.GuardTimeHighRate)
}
