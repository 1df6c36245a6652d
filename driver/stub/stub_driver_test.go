package stub

import (
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap/zaptest"

	"github.com/ystepanoff/m2radio/codec"
	"github.com/ystepanoff/m2radio/protocol"
	"github.com/ystepanoff/m2radio/transport"
)

var table = []byte{
	0x10, 0x00, 0x78, 0x50, 0x32, 0x3C, 0x00, 0x00,
	0x22, 0x00, 0x70, 0x50, 0x32, 0x3C, 0x00, 0x00,
}

type result struct{ Arg1, Arg2 int32 }

func newRadio(t *testing.T, caps codec.Capabilities) (*transport.RadioContext, *Driver, *[]result) {
	t.Helper()
	d := New(Config{Capabilities: caps})
	d.SetLogger(zaptest.NewLogger(t).Sugar())
	r := transport.New(d, table, transport.Options{})
	r.SetLogger(zaptest.NewLogger(t).Sugar())
	results := &[]result{}
	if err := r.SetCallback(func(a1, a2 int32) { *results = append(*results, result{a1, a2}) }); err != nil {
		t.Fatalf("SetCallback() error = %v", err)
	}
	return r, d, results
}

func send(t *testing.T, r *transport.RadioContext, d *Driver, q *protocol.Queue, id protocol.ChannelID) []byte {
	t.Helper()
	if err := r.TxInit(q, transport.TxOptions{Channels: []protocol.ChannelID{id}, NoCSMA: true}); err != nil {
		t.Fatalf("TxInit() error = %v", err)
	}
	if _, err := r.TxCSMA(); err != nil {
		t.Fatalf("TxCSMA() error = %v", err)
	}
	air, err := d.RunTx(r, 5)
	if err != nil {
		t.Fatalf("RunTx() error = %v", err)
	}
	return air
}

func TestStrategies(t *testing.T) {
	tests := []struct {
		name    string
		caps    codec.Capabilities
		channel protocol.ChannelID
		want    codec.Strategy
	}{
		{"hardware crc and whitening", codec.Capabilities{HardwareCRC: true, HardwarePN9: true}, 0x10, codec.HardwareCRCAndPN9},
		{"hardware whitening", codec.Capabilities{HardwarePN9: true}, 0x10, codec.HardwarePN9Only},
		{"software whitening", codec.Capabilities{}, 0x22, codec.SoftwarePN9},
		{"software fec", codec.Capabilities{HardwareCRC: true, HardwarePN9: true}, 0x90, codec.SoftwareFEC},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			frame := &protocol.Frame{TxEIRP: 0x78, Subnet: 0x0F, Control: 0x02, Payload: []byte("stub transceiver")}
			data, err := protocol.EncodeFrame(frame)
			c.Assert(err, qt.IsNil)

			tx, txd, txResults := newRadio(t, tt.caps)
			q := protocol.NewQueue(256)
			_, err = q.Write(data)
			c.Assert(err, qt.IsNil)
			air := send(t, tx, txd, q, tt.channel)
			c.Assert(*txResults, qt.DeepEquals, []result{{0, 0}})
			c.Assert(txd.Packets(), qt.HasLen, 1)

			wantAir := len(data)
			if tt.want == codec.SoftwareFEC {
				wantAir = codec.FECEncodedLen(len(data))
			}
			c.Assert(air, qt.HasLen, wantAir)

			rx, rxd, rxResults := newRadio(t, tt.caps)
			in := protocol.NewQueue(256)
			c.Assert(rx.RxInit(in, transport.RxOptions{Channel: tt.channel}), qt.IsNil)
			c.Assert(rxd.RunRx(rx, air, 7), qt.IsNil)
			c.Assert(*rxResults, qt.DeepEquals, []result{{0, 0}})

			got := in.Bytes()
			if tt.want.HardwareCRC() {
				c.Assert(got, qt.DeepEquals, data[:len(data)-protocol.CRCSize])
				return
			}
			decoded, err := protocol.DecodeFrame(got)
			c.Assert(err, qt.IsNil)
			c.Assert(decoded.Payload, qt.DeepEquals, frame.Payload)
			c.Assert(codec.VerifyCRC16(got), qt.IsTrue)
		})
	}
}

func TestHardwareCRCFailure(t *testing.T) {
	c := qt.New(t)
	caps := codec.Capabilities{HardwareCRC: true, HardwarePN9: true}
	tx, txd, _ := newRadio(t, caps)
	data, err := protocol.EncodeFrame(&protocol.Frame{TxEIRP: 0x78, Payload: []byte{1, 2, 3, 4}})
	c.Assert(err, qt.IsNil)
	q := protocol.NewQueue(64)
	_, err = q.Write(data)
	c.Assert(err, qt.IsNil)
	air := send(t, tx, txd, q, 0x10)
	air[6] ^= 0x80

	rx, rxd, results := newRadio(t, caps)
	c.Assert(rx.RxInit(protocol.NewQueue(64), transport.RxOptions{Channel: 0x10}), qt.IsNil)
	c.Assert(rxd.RunRx(rx, air, 64), qt.IsNil)
	c.Assert(*results, qt.DeepEquals, []result{{0, -1}})
	c.Assert(rxd.CRCOK(), qt.IsFalse)
}

func TestCCAFailure(t *testing.T) {
	c := qt.New(t)
	r, d, results := newRadio(t, codec.Capabilities{})
	d.ScriptRSSI(-40, -40, -40, -40, -40, -40, -40, -40)
	data, err := protocol.EncodeFrame(&protocol.Frame{Payload: []byte{1}})
	c.Assert(err, qt.IsNil)
	q := protocol.NewQueue(64)
	_, err = q.Write(data)
	c.Assert(err, qt.IsNil)

	c.Assert(r.TxInit(q, transport.TxOptions{Channels: []protocol.ChannelID{0x10}}), qt.IsNil)
	var lastErr error
	for i := 0; i < 16 && lastErr == nil; i++ {
		_, lastErr = r.TxCSMA()
	}
	c.Assert(lastErr, qt.ErrorIs, protocol.ErrCCAFail)
	c.Assert(*results, qt.DeepEquals, []result{{int32(protocol.ErrCodeCCAFail), 0}})
	// one recalibration on resolve, one on the 4th busy sample
	c.Assert(d.Calibrations(), qt.Equals, 2)
}

func TestChannelRegisters(t *testing.T) {
	c := qt.New(t)
	r, d, _ := newRadio(t, codec.Capabilities{})
	data, err := protocol.EncodeFrame(&protocol.Frame{Payload: []byte{1}})
	c.Assert(err, qt.IsNil)
	q := protocol.NewQueue(64)
	_, err = q.Write(data)
	c.Assert(err, qt.IsNil)
	send(t, r, d, q, 0xA2)

	c.Assert(d.Registers(), qt.Equals, transport.ChannelRegisters{ID: 0xA2, Recalibrate: true})
	c.Assert(d.TxPower(), qt.Equals, uint8(0x70))
}

func TestExpire(t *testing.T) {
	c := qt.New(t)
	r, d, results := newRadio(t, codec.Capabilities{})
	c.Assert(r.RxInit(protocol.NewQueue(64), transport.RxOptions{Channel: 0x22, Timeout: 25 * time.Millisecond}), qt.IsNil)
	c.Assert(d.RxTimeout(), qt.Equals, 25*time.Millisecond)
	d.Expire(r)
	c.Assert(*results, qt.DeepEquals, []result{{int32(protocol.ErrCodeTimeout), 0}})

	// nothing listens any more
	d.Expire(r)
	c.Assert(*results, qt.HasLen, 1)
	c.Assert(d.RunRx(r, []byte{1, 2, 3}, 1), qt.ErrorIs, ErrNotReceiving)
}
