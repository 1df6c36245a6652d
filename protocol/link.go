package protocol

// LinkInfo describes the quality of a received packet. Only RSSI, LinkLoss
// and Corrections are always filled; the remaining fields come from drivers
// that report them.
type LinkInfo struct {
	RSSI        int16
	LinkLoss    int
	Accepted    bool
	PQI         uint8
	SQI         uint8
	LQI         uint8
	AGC         uint8
	Corrections int
}

// LinkLoss is the attenuation between the reported transmit power and the
// measured signal strength, both in dBm.
func LinkLoss(txPower, rssi int) int { return txPower - rssi }

// AcceptLink reports whether a link with the given loss meets threshold (dB).
func AcceptLink(rssi, txPower, threshold int) bool {
	return LinkLoss(txPower, rssi) <= threshold
}

// DecodeRSSIThreshold converts a raw 7-bit threshold code to dBm.
func DecodeRSSIThreshold(raw uint8) int16 { return int16(raw&0x7F) - 140 }

// DecodeEIRP converts a transmit power code to dBm.
func DecodeEIRP(code uint8) int { return int(code)/2 - 40 }

// EncodeEIRP is the inverse of DecodeEIRP, clamped to the code range.
func EncodeEIRP(dBm int) uint8 {
	v := (dBm + 40) * 2
	switch {
	case v < 0:
		return 0
	case v > 0xFF:
		return 0xFF
	}
	return uint8(v)
}
