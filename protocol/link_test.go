package protocol

import "testing"

func TestAcceptLink(t *testing.T) {
	tests := []struct {
		name      string
		rssi      int
		txPower   int
		threshold int
		want      bool
	}{
		{"well under threshold", -60, 0, 80, true},
		{"exactly at threshold", -80, 0, 80, true},
		{"one dB over", -81, 0, 80, false},
		{"strong transmitter", -90, 10, 100, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := AcceptLink(tt.rssi, tt.txPower, tt.threshold); got != tt.want {
				t.Errorf("AcceptLink(%d, %d, %d) = %v, want %v", tt.rssi, tt.txPower, tt.threshold, got, tt.want)
			}
		})
	}
}

func TestCodeConversions(t *testing.T) {
	if got := DecodeRSSIThreshold(40); got != -100 {
		t.Errorf("DecodeRSSIThreshold(40) = %v, want -100", got)
	}
	if got := DecodeEIRP(80); got != 0 {
		t.Errorf("DecodeEIRP(80) = %v, want 0", got)
	}
	for _, dBm := range []int{-40, -10, 0, 10, 20} {
		if got := DecodeEIRP(EncodeEIRP(dBm)); got != dBm {
			t.Errorf("DecodeEIRP(EncodeEIRP(%d)) = %v", dBm, got)
		}
	}
}

func TestErrorCodes(t *testing.T) {
	codes := []ErrorCode{ErrCodeKill, ErrCodeCCAFail, ErrCodeBadChannel, ErrCodeTimeout, ErrCodeGeneric, ErrCodeLink}
	for _, code := range codes {
		if got := CodeOf(code.Err()); got != code {
			t.Errorf("CodeOf(%d.Err()) = %v", code, got)
		}
	}
	if ErrorCode(0).Err() != nil {
		t.Errorf("ErrorCode(0).Err() != nil")
	}
	if CodeOf(nil) != 0 {
		t.Errorf("CodeOf(nil) != 0")
	}
	if CodeOf(ErrBusy) != ErrCodeGeneric {
		t.Errorf("CodeOf(ErrBusy) != ErrCodeGeneric")
	}
}
