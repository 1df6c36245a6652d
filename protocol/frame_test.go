package protocol

import (
	"bytes"
	"testing"
)

func TestFrameEncoding(t *testing.T) {
	tests := []struct {
		name     string
		frame    *Frame
		wantSize int
		wantErr  bool
	}{
		{
			name:     "empty payload",
			frame:    &Frame{TxEIRP: 80, Subnet: 0xF0, Control: 0x01, Payload: []byte{}},
			wantSize: MinFrameSize,
		},
		{
			name:     "small payload",
			frame:    &Frame{TxEIRP: 80, Subnet: 0xF0, Control: 0x02, Payload: []byte{1, 2, 3, 4, 5}},
			wantSize: MinFrameSize + 5,
		},
		{
			name:     "maximum payload",
			frame:    &Frame{TxEIRP: 80, Subnet: 0xF0, Payload: bytes.Repeat([]byte{0xAA}, MaxPayloadSize)},
			wantSize: MaxFrameSize,
		},
		{
			name:    "too large payload",
			frame:   &Frame{Payload: bytes.Repeat([]byte{0xAA}, MaxPayloadSize+1)},
			wantErr: true,
		},
		{
			name:    "nil frame",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			encoded, err := EncodeFrame(tt.frame)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("EncodeFrame() error = nil, want error")
				}
				return
			}
			if err != nil {
				t.Fatalf("EncodeFrame() error = %v", err)
			}
			if len(encoded) != tt.wantSize {
				t.Errorf("EncodeFrame() size = %v, want %v", len(encoded), tt.wantSize)
			}
			if encoded[LengthOffset] != byte(len(encoded)) {
				t.Errorf("Length byte = %v, want %v", encoded[LengthOffset], len(encoded))
			}
			if encoded[TxEIRPOffset] != tt.frame.TxEIRP {
				t.Errorf("TxEIRP = %v, want %v", encoded[TxEIRPOffset], tt.frame.TxEIRP)
			}
			if encoded[SubnetOffset] != tt.frame.Subnet {
				t.Errorf("Subnet = %v, want %v", encoded[SubnetOffset], tt.frame.Subnet)
			}
			if encoded[ControlOffset] != tt.frame.Control {
				t.Errorf("Control = %v, want %v", encoded[ControlOffset], tt.frame.Control)
			}
			// CRC bytes are reserved, not computed
			if tail := encoded[len(encoded)-CRCSize:]; !bytes.Equal(tail, []byte{0, 0}) {
				t.Errorf("CRC placeholder = %v, want zeros", tail)
			}
		})
	}
}

func TestFrameRoundTrip(t *testing.T) {
	frame := &Frame{TxEIRP: 72, Subnet: 0x12, Control: ControlListen | 0x03, Payload: []byte("hello")}
	encoded, err := EncodeFrame(frame)
	if err != nil {
		t.Fatalf("EncodeFrame() error = %v", err)
	}
	decoded, err := DecodeFrame(encoded)
	if err != nil {
		t.Fatalf("DecodeFrame() error = %v", err)
	}
	if decoded.Length != frame.Length || decoded.TxEIRP != frame.TxEIRP || decoded.Subnet != frame.Subnet {
		t.Errorf("DecodeFrame() header = %+v, want %+v", decoded, frame)
	}
	if decoded.Type() != 0x03 {
		t.Errorf("Type() = %v, want 3", decoded.Type())
	}
	if !bytes.Equal(decoded.Payload, frame.Payload) {
		t.Errorf("Payload = %q, want %q", decoded.Payload, frame.Payload)
	}
}

func TestDecodeInvalidFrames(t *testing.T) {
	tests := []struct {
		name string
		data []byte
	}{
		{name: "nil data", data: nil},
		{name: "too short", data: []byte{0x06, 0x02}},
		{name: "length larger than data", data: []byte{0x20, 0, 0, 0, 0, 0, 0}},
		{name: "length below minimum", data: []byte{0x03, 0, 0, 0, 0, 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if decoded, err := DecodeFrame(tt.data); err == nil {
				t.Errorf("DecodeFrame() = %v, want error for invalid frame", decoded)
			}
		})
	}
}

func TestPacketContinuationFlags(t *testing.T) {
	frames := []*Frame{
		{Payload: []byte{1}, Control: ControlContinue},
		{Payload: []byte{2, 2}},
		{Payload: []byte{3, 3, 3}, Control: ControlContinue},
	}
	data, err := EncodePacket(frames)
	if err != nil {
		t.Fatalf("EncodePacket() error = %v", err)
	}
	if want := 3*MinFrameSize + 6; len(data) != want {
		t.Fatalf("EncodePacket() size = %v, want %v", len(data), want)
	}

	decoded, err := DecodePacket(data)
	if err != nil {
		t.Fatalf("DecodePacket() error = %v", err)
	}
	if len(decoded) != 3 {
		t.Fatalf("DecodePacket() frames = %v, want 3", len(decoded))
	}
	for i, f := range decoded {
		if want := i < 2; f.Continues() != want {
			t.Errorf("frame %d Continues() = %v, want %v", i, f.Continues(), want)
		}
		if len(f.Payload) != i+1 {
			t.Errorf("frame %d payload size = %v, want %v", i, len(f.Payload), i+1)
		}
	}
}

func TestBackgroundFrame(t *testing.T) {
	in := &BackgroundFrame{Subnet: 0xF1, ProtocolID: 0xF0, Payload: [2]byte{0x12, 0x34}}
	data := EncodeBackgroundFrame(in)
	if len(data) != BackgroundFrameSize {
		t.Fatalf("EncodeBackgroundFrame() size = %v, want %v", len(data), BackgroundFrameSize)
	}
	out, err := DecodeBackgroundFrame(data)
	if err != nil {
		t.Fatalf("DecodeBackgroundFrame() error = %v", err)
	}
	if *out != *in {
		t.Errorf("DecodeBackgroundFrame() = %+v, want %+v", out, in)
	}
}
