package cc1101

import "periph.io/x/conn/v3/physic"

// PATABLE settings for 433 MHz, ascending output power.
var paTable = []struct {
	dBm int
	val byte
}{
	{-30, 0x12},
	{-20, 0x0e},
	{-15, 0x1d},
	{-10, 0x34},
	{0, 0x60},
	{5, 0x84},
	{7, 0xc8},
	{10, 0xc0},
}

// paTableValue picks the strongest setting not above dBm.
func paTableValue(dBm int) byte {
	v := paTable[0].val
	for _, e := range paTable {
		if e.dBm > dBm {
			break
		}
		v = e.val
	}
	return v
}

// syncWord returns the Mode 2 sync word for the frame type and coding.
func syncWord(fec, background bool) uint16 {
	switch {
	case fec && background:
		return 0x192f
	case fec:
		return 0x0b67
	case background:
		return 0xf498
	}
	return 0xe6d0
}

func hz(f physic.Frequency) int64 { return int64(f / physic.Hertz) }

// calculateFreq returns FREQ2, FREQ1 and FREQ0 for carrier f.
func calculateFreq(fxosc, f physic.Frequency) []byte {
	v := hz(f) << 16 / hz(fxosc)
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

// calculateDataRate returns DRATE_E and DRATE_M for rate.
func calculateDataRate(fxosc, rate physic.Frequency) (byte, byte) {
	num := hz(rate) << 28
	for e := 0; e < 16; e++ {
		den := hz(fxosc) << e
		m := (num + den/2) / den
		if m < 512 {
			if m < 256 {
				m = 256
			}
			return byte(e), byte(m - 256)
		}
	}
	return 15, 0xff
}

// calculateDeviatn returns the DEVIATN register for the frequency deviation dev.
func calculateDeviatn(fxosc, dev physic.Frequency) byte {
	num := hz(dev) << 17
	for e := 0; e < 8; e++ {
		den := hz(fxosc) << e
		m := (num+den/2)/den - 8
		if m >= 0 && m <= 7 {
			return byte(e)<<4 | byte(m)
		}
	}
	return 0x77
}

// convertRSSI turns the RSSI status register into dBm.
func convertRSSI(raw byte) int16 {
	const offset = 74
	return int16(int8(raw))/2 - offset
}
