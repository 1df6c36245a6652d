package protocol

// Frame is a foreground frame as handed to and from the engine.
type Frame struct {
	Length  byte
	TxEIRP  byte
	Subnet  byte
	Control byte
	Payload []byte
	CRC     uint16 // decoded frames only; ignored by the encoder
}

func (f *Frame) Continues() bool { return f.Control&ControlContinue != 0 }

func (f *Frame) Type() byte { return f.Control & ControlTypeMask }

// EncodeFrame serialises f with two zeroed CRC bytes reserved at the end.
// The codec fills them in when the frame is transmitted.
func EncodeFrame(f *Frame) ([]byte, error) {
	if f == nil {
		return nil, ErrInvalidPayload
	}
	if len(f.Payload) > MaxPayloadSize {
		return nil, ErrInvalidPayload
	}
	total := FrameHeaderSize + len(f.Payload) + CRCSize
	data := make([]byte, total)
	data[LengthOffset] = byte(total)
	data[TxEIRPOffset] = f.TxEIRP
	data[SubnetOffset] = f.Subnet
	data[ControlOffset] = f.Control
	copy(data[FrameHeaderSize:], f.Payload)
	f.Length = byte(total)
	return data, nil
}

// EncodePacket chains frames into one multi-frame packet, setting the
// continuation flag on every frame but the last.
func EncodePacket(frames []*Frame) ([]byte, error) {
	if len(frames) == 0 {
		return nil, ErrInvalidPayload
	}
	var out []byte
	for i, f := range frames {
		if f == nil {
			return nil, ErrInvalidPayload
		}
		if i < len(frames)-1 {
			f.Control |= ControlContinue
		} else {
			f.Control &^= ControlContinue
		}
		data, err := EncodeFrame(f)
		if err != nil {
			return nil, err
		}
		out = append(out, data...)
	}
	return out, nil
}

// DecodeFrame parses the first frame in data. CRC validity is decided by the
// codec while the frame is received; the trailing CRC is copied as is.
func DecodeFrame(data []byte) (*Frame, error) {
	if len(data) < MinFrameSize {
		return nil, ErrFrameLength
	}
	total := int(data[LengthOffset])
	if total < MinFrameSize || total > len(data) {
		return nil, ErrFrameLength
	}
	f := &Frame{
		Length:  byte(total),
		TxEIRP:  data[TxEIRPOffset],
		Subnet:  data[SubnetOffset],
		Control: data[ControlOffset],
		CRC:     uint16(data[total-2])<<8 | uint16(data[total-1]),
	}
	f.Payload = make([]byte, total-MinFrameSize)
	copy(f.Payload, data[FrameHeaderSize:total-CRCSize])
	return f, nil
}

// DecodePacket splits a multi-frame packet into its frames, stopping at the
// first frame without the continuation flag.
func DecodePacket(data []byte) ([]*Frame, error) {
	var frames []*Frame
	for {
		f, err := DecodeFrame(data)
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
		if !f.Continues() {
			return frames, nil
		}
		data = data[f.Length:]
	}
}

// BackgroundFrame is the fixed-size advertising frame used by floods.
type BackgroundFrame struct {
	Subnet     byte
	ProtocolID byte
	Payload    [BackgroundPayloadSize]byte
}

func EncodeBackgroundFrame(f *BackgroundFrame) []byte {
	return []byte{f.Subnet, f.ProtocolID, f.Payload[0], f.Payload[1], 0, 0}
}

func DecodeBackgroundFrame(data []byte) (*BackgroundFrame, error) {
	if len(data) < BackgroundFrameSize {
		return nil, ErrFrameLength
	}
	return &BackgroundFrame{
		Subnet:     data[0],
		ProtocolID: data[1],
		Payload:    [BackgroundPayloadSize]byte{data[2], data[3]},
	}, nil
}
