package m2radio

import (
	"context"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"go.uber.org/zap/zaptest"
)

var table = []byte{
	0x10, 0x00, 0x78, 0x50, 0x32, 0x3C, 0x00, 0x00,
	0x22, 0x00, 0x78, 0x50, 0x32, 0x3C, 0x00, 0x00,
}

func waitMode(r *Radio, m Mode) {
	for r.Mode() != m {
		time.Sleep(time.Millisecond)
	}
}

func TestSimulatedLink(t *testing.T) {
	tests := []struct {
		name    string
		channel ChannelID
	}{
		{"pn9", 0x10},
		{"fec", 0x90},
		{"high rate", 0x22},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := qt.New(t)
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			logger := zaptest.NewLogger(t).Sugar()

			out, err := QueueFrames(
				&Frame{TxEIRP: 0x78, Subnet: 0x0F, Control: 0x02, Payload: []byte("first")},
				&Frame{TxEIRP: 0x78, Subnet: 0x0F, Control: 0x02, Payload: []byte("second frame")},
			)
			c.Assert(err, qt.IsNil)

			tx, txd := NewSimulated(table, Capabilities{}, Options{}, logger.Named("tx"))
			airc := make(chan []byte, 1)
			go func() {
				waitMode(tx, ModeTransmittingData)
				air, _ := txd.RunTx(tx, 8)
				airc <- air
			}()
			c.Assert(tx.Send(ctx, out, TxOptions{Channels: []ChannelID{tt.channel}}), qt.IsNil)
			air := <-airc

			rx, rxd := NewSimulated(table, Capabilities{}, Options{}, logger.Named("rx"))
			go func() {
				waitMode(rx, ModeListening)
				_ = rxd.RunRx(rx, air, 8)
			}()
			in := NewQueue(256)
			info, err := rx.Receive(ctx, in, RxOptions{Channel: tt.channel, MultiFrame: true})
			c.Assert(err, qt.IsNil)
			c.Assert(info.RSSI, qt.Equals, int16(-110))

			frames, err := Frames(in)
			c.Assert(err, qt.IsNil)
			c.Assert(frames, qt.HasLen, 2)
			c.Assert(string(frames[0].Payload), qt.Equals, "first")
			c.Assert(string(frames[1].Payload), qt.Equals, "second frame")
			c.Assert(frames[0].Continues(), qt.IsTrue)
			c.Assert(frames[1].Continues(), qt.IsFalse)
		})
	}
}

func TestSimulatedTimeout(t *testing.T) {
	c := qt.New(t)
	r, d := NewSimulated(table, Capabilities{}, Options{}, nil)
	go func() {
		waitMode(r, ModeListening)
		d.Expire(r)
	}()
	_, err := r.Receive(context.Background(), NewQueue(64), RxOptions{Channel: 0x10, Timeout: 20 * time.Millisecond})
	c.Assert(err, qt.ErrorIs, ErrTimeout)
	c.Assert(r.Mode(), qt.Equals, ModeIdle)
	c.Assert(d.RxTimeout(), qt.Equals, 20*time.Millisecond)
}

func TestReceiveCancelled(t *testing.T) {
	c := qt.New(t)
	r, _ := NewSimulated(table, Capabilities{}, Options{}, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := r.Receive(ctx, NewQueue(64), RxOptions{Channel: 0x10})
	c.Assert(err, qt.ErrorIs, context.DeadlineExceeded)
	c.Assert(r.Mode(), qt.Equals, ModeIdle)
}

func TestSimulatedBadChannel(t *testing.T) {
	c := qt.New(t)
	r, _ := NewSimulated(table, Capabilities{}, Options{}, nil)
	q, err := QueueFrames(&Frame{Payload: []byte{1}})
	c.Assert(err, qt.IsNil)
	err = r.Send(context.Background(), q, TxOptions{Channels: []ChannelID{0x35}})
	c.Assert(err, qt.ErrorIs, ErrBadChannel)
}

func TestQueueFramesEmpty(t *testing.T) {
	_, err := QueueFrames()
	qt.Assert(t, err, qt.ErrorIs, ErrInvalidPayload)
}
