package m2radio

import (
	"go.uber.org/zap"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/spi"

	"github.com/ystepanoff/m2radio/driver/cc1101"
	"github.com/ystepanoff/m2radio/transport"
)

// NewCC1101 opens a CC1101 on port and binds a radio to it. The caller must
// run dev.Run with the returned radio for interrupts to be delivered.
func NewCC1101(port spi.Port, gdo0, gdo2 gpio.PinIn, table []byte, opts Options, logger *zap.SugaredLogger) (*Radio, *cc1101.Dev, error) {
	dev, err := cc1101.NewSPI(port, gdo0, gdo2, nil)
	if err != nil {
		return nil, nil, err
	}
	r := transport.New(dev, table, opts)
	if logger != nil {
		dev.SetLogger(logger.Named("cc1101"))
		r.SetLogger(logger)
	}
	return r, dev, nil
}
