package cc1101

import (
	"context"
	"time"

	"periph.io/x/conn/v3/gpio"

	"github.com/ystepanoff/m2radio/transport"
)

// Run dispatches GDO edges and the receive timer to h until ctx is done or
// the SPI bus fails.
//
// GDO0 rises on a sync word and falls at the end of a packet. The receive
// timer only bounds the wait for the sync word. GDO2 follows
// the FIFO threshold: it falls when the TX FIFO drains below it and rises
// when the RX FIFO fills past it.
func (d *Dev) Run(ctx context.Context, h transport.InterruptHandler) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	packet := make(chan gpio.Level)
	threshold := make(chan gpio.Level)
	go watch(ctx, d.gdo0, packet)
	go watch(ctx, d.gdo2, threshold)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l := <-packet:
			switch st := d.currentState(); {
			case st == stateRx && l == gpio.High:
				d.syncDetected()
				h.OnSync()
			case st == stateRx:
				h.OnRxDone()
			case st == stateTx && l == gpio.Low:
				h.OnTxDone()
			}
		case l := <-threshold:
			switch st := d.currentState(); {
			case st == stateTx && l == gpio.Low:
				h.OnTxThreshold()
			case st == stateRx && l == gpio.High:
				h.OnRxThreshold()
			}
		case <-d.timer.C:
			if d.currentState() == stateRx {
				d.logger.Debugw("rx timeout")
				h.OnRxTimeout()
			}
		}
		if err := d.Err(); err != nil {
			return err
		}
	}
}

// watch converts WaitForEdge into a channel so Run can select across pins.
func watch(ctx context.Context, p gpio.PinIn, out chan<- gpio.Level) {
	if p == nil {
		return
	}
	for ctx.Err() == nil {
		if !p.WaitForEdge(100 * time.Millisecond) {
			continue
		}
		select {
		case out <- p.Read():
		case <-ctx.Done():
			return
		}
	}
}
