package m2radio

import (
	"go.uber.org/zap"

	"github.com/ystepanoff/m2radio/driver/stub"
	"github.com/ystepanoff/m2radio/transport"
)

// NewSimulated returns a radio backed by the in-memory transceiver. The
// driver is returned so the caller can play the air side of each operation.
func NewSimulated(table []byte, caps Capabilities, opts Options, logger *zap.SugaredLogger) (*Radio, *stub.Driver) {
	d := stub.New(stub.Config{Capabilities: caps})
	r := transport.New(d, table, opts)
	if logger != nil {
		d.SetLogger(logger.Named("stub"))
		r.SetLogger(logger)
	}
	return r, d
}
