package cc1101

// Header flags of an SPI transaction.
const (
	writeSingle = 0x00
	writeBurst  = 0x40
	readSingle  = 0x80
	readBurst   = 0xc0
)

// Strobes.
const (
	sres  = 0x30
	scal  = 0x33
	srx   = 0x34
	stx   = 0x35
	sidle = 0x36
	spwd  = 0x39
	sfrx  = 0x3a
	sftx  = 0x3b
	snop  = 0x3d
)

// Status registers, read with the burst bit set.
const (
	partnum = 0x30
	version = 0x31
	lqi     = 0x33
	rssi    = 0x34
	agctest = 0x2b
	txbytes = 0x3a
	rxbytes = 0x3b

	fifoBytesMask = 0x7f
	fifoOverflow  = 0x80
	crcOK         = 0x80
)

// Configuration registers.
const (
	iocfg2   = 0x00
	iocfg0   = 0x02
	fifothr  = 0x03
	sync1    = 0x04
	sync0    = 0x05
	pktlen   = 0x06
	pktctrl1 = 0x07
	pktctrl0 = 0x08
	fsctrl1  = 0x0b
	freq2    = 0x0d
	freq1    = 0x0e
	freq0    = 0x0f
	mdmcfg4  = 0x10
	mdmcfg3  = 0x11
	mdmcfg2  = 0x12
	mdmcfg1  = 0x13
	deviatn  = 0x15
	mcsm1    = 0x17
	mcsm0    = 0x18
	foccfg   = 0x19
	agcctrl2 = 0x1b
	frend0   = 0x22
	fscal3   = 0x23
	fscal2   = 0x24
	fscal1   = 0x25
	fscal0   = 0x26
	test2    = 0x2c
	test1    = 0x2d
	test0    = 0x2e

	patable = 0x3e
	fifo    = 0x3f
)

// PKTCTRL0 fields.
const (
	whiteData      = 0x40
	lengthFixed    = 0x00
	lengthInfinite = 0x02
)

// GDO signal selections.
const (
	gdoRxThreshold = 0x00 // asserts when the RX FIFO fills past FIFOTHR
	gdoTxThreshold = 0x02 // asserts while the TX FIFO is at or above FIFOTHR
	gdoSync        = 0x06 // asserts on sync word, deasserts at end of packet
)

// baseConfig is written once after reset. Frequency, data rate and sync word
// are programmed per channel.
var baseConfig = []struct{ reg, val byte }{
	{iocfg0, gdoSync},
	{iocfg2, gdoRxThreshold},
	// TX threshold 33 bytes, RX threshold 32 bytes
	{fifothr, 0x07},
	{pktctrl1, 0x00},
	{pktctrl0, lengthInfinite},
	{fsctrl1, 0x08},
	// 2-GFSK, 16 of 16 sync bits
	{mdmcfg2, 0x12},
	// 4 preamble bytes
	{mdmcfg1, 0x22},
	// back to IDLE after RX and TX
	{mcsm1, 0x00},
	// calibration is strobed on channel changes
	{mcsm0, 0x08},
	{foccfg, 0x16},
	{agcctrl2, 0x43},
	{frend0, 0x10},
	{fscal3, 0xe9},
	{fscal2, 0x2a},
	{fscal1, 0x00},
	{fscal0, 0x1f},
	{test2, 0x81},
	{test1, 0x35},
	{test0, 0x09},
}
